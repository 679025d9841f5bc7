package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kestrel-data/aperture.report/internal/db"
	"github.com/kestrel-data/aperture.report/internal/mlc"
)

// beamProfiles are the per-interval quantities plotted for each dynamic beam.
var beamProfiles = []struct {
	name   string
	title  string
	yLabel string
	value  func(d mlc.DynamicControlPoint) float64
}{
	{"gantry_speed", "Gantry Speed", "Speed (deg/s)", func(d mlc.DynamicControlPoint) float64 { return d.GantrySpeed }},
	{"dose_rate", "Dose Rate", "Dose Rate (MU/min)", func(d mlc.DynamicControlPoint) float64 { return d.DoseRate }},
	{"leaf_speed", "Average Leaf Speed", "Speed (mm/s)", func(d mlc.DynamicControlPoint) float64 { return d.AvgLeafSpeed }},
}

// GenerateProfilePlots writes delivery profile PNGs for every dynamic beam of
// a run plus the plan-level aperture area histogram.
// Returns the number of plot files written and any error.
func GenerateProfilePlots(outputDir string, run *db.Run) (int, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	count := 0
	for _, beam := range run.Beams {
		if len(beam.Dynamics) == 0 {
			continue
		}
		n, err := generateBeamPlots(outputDir, beam)
		count += n
		if err != nil {
			return count, fmt.Errorf("beam %s: %w", beam.BeamID, err)
		}
	}

	if len(run.Summary.Histogram) > 0 {
		histFile := filepath.Join(outputDir, "area_histogram.png")
		if err := writeHistogramPlot(histFile, run.Summary.Histogram); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// generateBeamPlots creates one PNG per profile quantity for a beam.
func generateBeamPlots(outputDir string, beam db.RunBeam) (int, error) {
	written := 0
	for _, prof := range beamProfiles {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Beam %s - %s", beam.BeamID, prof.title)
		p.X.Label.Text = "Interval"
		p.Y.Label.Text = prof.yLabel

		pts := make(plotter.XYs, 0, len(beam.Dynamics))
		for _, d := range beam.Dynamics {
			pts = append(pts, plotter.XY{X: float64(d.IntervalIndex), Y: prof.value(d)})
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return written, err
		}
		line.Width = vg.Points(1)
		p.Add(line)

		file := filepath.Join(outputDir, fmt.Sprintf("beam_%02d_%s_%s.png", beam.BeamIndex, sanitizeID(beam.BeamID), prof.name))
		if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
			return written, fmt.Errorf("save %s plot: %w", prof.name, err)
		}
		written++
	}
	return written, nil
}

// writeHistogramPlot renders the MU-weighted aperture area histogram as a bar chart.
func writeHistogramPlot(path string, hist map[int]float64) error {
	bins := make([]int, 0, len(hist))
	for bin := range hist {
		bins = append(bins, bin)
	}
	sort.Ints(bins)

	values := make(plotter.Values, len(bins))
	labels := make([]string, len(bins))
	for i, bin := range bins {
		values[i] = hist[bin]
		labels[i] = fmt.Sprintf("%d", bin)
	}

	p := plot.New()
	p.Title.Text = "Aperture Area Histogram"
	p.X.Label.Text = "Area bin (mm^2)"
	p.Y.Label.Text = "MU fraction"

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("histogram bars: %w", err)
	}
	p.Add(bars)
	p.NominalX(labels...)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save histogram plot: %w", err)
	}
	return nil
}

// sanitizeID makes a beam ID safe for use in a file name.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, id)
}
