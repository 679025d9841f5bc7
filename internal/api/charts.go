package api

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kestrel-data/aperture.report/internal/db"
	"github.com/kestrel-data/aperture.report/internal/mlc"
	"github.com/kestrel-data/aperture.report/internal/units"
)

func (s *Server) chartSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	runID, subPath := parseRunPath(r.URL.Path, "/charts/runs/")
	if runID == "" {
		s.writeJSONError(w, http.StatusNotFound, "run id required")
		return
	}

	run, err := s.store.GetRun(runID)
	if err != nil {
		s.writeJSONError(w, runErrorStatus(err), fmt.Sprintf("Failed to retrieve run: %v", err))
		return
	}

	switch subPath {
	case "histogram":
		s.histogramChart(w, run)
	case "speeds":
		s.speedsChart(w, run)
	default:
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown chart: %s", subPath))
	}
}

// histogramChart renders the MU-weighted aperture area histogram as a bar
// page. Bin labels are converted to the configured display units.
func (s *Server) histogramChart(w http.ResponseWriter, run *db.Run) {
	if len(run.Summary.Histogram) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "run has no area histogram")
		return
	}

	bins := make([]int, 0, len(run.Summary.Histogram))
	for bin := range run.Summary.Histogram {
		bins = append(bins, bin)
	}
	sort.Ints(bins)

	x := make([]string, len(bins))
	y := make([]opts.BarData, len(bins))
	for i, bin := range bins {
		x[i] = fmt.Sprintf("%g", units.ConvertArea(float64(bin), s.units))
		y[i] = opts.BarData{Value: run.Summary.Histogram[bin]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Aperture Area Histogram", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Aperture Area Histogram (%s)", s.units),
			Subtitle: fmt.Sprintf("plan=%s run=%s bin=%d mm2", run.PlanID, run.RunID, run.BinSize),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("mu_fraction", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// speedsChart renders one line chart per delivery profile, with a series per
// dynamic beam, indexed by control point interval.
func (s *Server) speedsChart(w http.ResponseWriter, run *db.Run) {
	maxIntervals := 0
	for _, beam := range run.Beams {
		if len(beam.Dynamics) > maxIntervals {
			maxIntervals = len(beam.Dynamics)
		}
	}
	if maxIntervals == 0 {
		s.writeJSONError(w, http.StatusNotFound, "run has no dynamic beams")
		return
	}

	leafSpeedUnit := "mm/s"
	if s.units == units.CM2 {
		leafSpeedUnit = "cm/s"
	}

	profiles := []struct {
		title string
		yName string
		value func(d mlc.DynamicControlPoint) float64
	}{
		{"Gantry Speed", "deg/s", func(d mlc.DynamicControlPoint) float64 { return d.GantrySpeed }},
		{"Dose Rate", "MU/min", func(d mlc.DynamicControlPoint) float64 { return d.DoseRate }},
		{"Average Leaf Speed", leafSpeedUnit, func(d mlc.DynamicControlPoint) float64 {
			return units.ConvertLength(d.AvgLeafSpeed, s.units)
		}},
	}

	x := make([]string, maxIntervals)
	for i := range x {
		x[i] = strconv.Itoa(i)
	}

	page := components.NewPage()
	for _, prof := range profiles {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: "Delivery Speed Profiles", Width: "100%", Height: "400px"}),
			charts.WithTitleOpts(opts.Title{
				Title:    prof.title,
				Subtitle: fmt.Sprintf("plan=%s run=%s", run.PlanID, run.RunID),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Name: prof.yName}),
		)
		line.SetXAxis(x)
		for _, beam := range run.Beams {
			if len(beam.Dynamics) == 0 {
				continue
			}
			data := make([]opts.LineData, len(beam.Dynamics))
			for i, d := range beam.Dynamics {
				data[i] = opts.LineData{Value: prof.value(d)}
			}
			line.AddSeries(beam.BeamID, data)
		}
		page.AddCharts(line)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
