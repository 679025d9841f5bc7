// Package report renders analysis runs to files: CSV metric tables and
// static PNG delivery profile plots.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/kestrel-data/aperture.report/internal/complexity"
	"github.com/kestrel-data/aperture.report/internal/db"
)

// CSVWriter wraps csv.Writer with methods for run output. Metrics receives
// one row per beam plus a PLAN totals row; Histogram receives the MU-weighted
// aperture area distribution.
type CSVWriter struct {
	Metrics   *csv.Writer
	Histogram *csv.Writer
}

// NewCSVWriter creates a new CSVWriter with the given metrics and histogram writers.
func NewCSVWriter(metrics, histogram io.Writer) *CSVWriter {
	return &CSVWriter{
		Metrics:   csv.NewWriter(metrics),
		Histogram: csv.NewWriter(histogram),
	}
}

// WriteRun writes the complete run to both outputs and flushes them.
func (c *CSVWriter) WriteRun(run *db.Run) error {
	if err := c.WriteMetrics(run); err != nil {
		return err
	}
	return c.WriteHistogramRows(run)
}

// WriteMetrics writes the per-beam metric table followed by the plan totals row.
func (c *CSVWriter) WriteMetrics(run *db.Run) error {
	if err := c.Metrics.Write(FormatMetricsHeader()); err != nil {
		return fmt.Errorf("write metrics header: %w", err)
	}
	for _, beam := range run.Beams {
		if err := c.Metrics.Write(metricsRow(beam.BeamID, beam.TotalMU, beam.TotalTime, beam.Summary)); err != nil {
			return fmt.Errorf("write beam %s row: %w", beam.BeamID, err)
		}
	}
	if err := c.Metrics.Write(metricsRow("PLAN", run.Summary.PlanMU, run.Summary.TotalTime, run.Summary)); err != nil {
		return fmt.Errorf("write plan row: %w", err)
	}

	c.Metrics.Flush()
	return c.Metrics.Error()
}

// WriteHistogramRows writes the plan-level aperture area histogram in bin order.
func (c *CSVWriter) WriteHistogramRows(run *db.Run) error {
	if err := c.Histogram.Write([]string{"bin_mm2", "mu_fraction"}); err != nil {
		return fmt.Errorf("write histogram header: %w", err)
	}

	bins := make([]int, 0, len(run.Summary.Histogram))
	for bin := range run.Summary.Histogram {
		bins = append(bins, bin)
	}
	sort.Ints(bins)

	for _, bin := range bins {
		row := []string{
			fmt.Sprintf("%d", bin),
			fmt.Sprintf("%.6f", run.Summary.Histogram[bin]),
		}
		if err := c.Histogram.Write(row); err != nil {
			return fmt.Errorf("write histogram row: %w", err)
		}
	}

	c.Histogram.Flush()
	return c.Histogram.Error()
}

// FormatMetricsHeader returns the metric table column names.
func FormatMetricsHeader() []string {
	return []string{
		"beam_id",
		"total_mu",
		"total_time_s",
		"mu_per_dose",
		"total_aperture_mu",
		"avg_aperture_count",
		"aperture_jaw_area_ratio",
		"perimeter_area_ratio_pooled",
		"perimeter_area_ratio_averaged",
		"edge_area_ratio_per_cp",
		"edge_area_ratio_pooled",
		"equivalent_square_mm",
		"avg_aperture_area_mm2",
		"area_skewness",
		"avg_closed_leaf_gap_mm",
		"avg_leaf_speed_mm_s",
		"avg_gantry_acceleration",
	}
}

func metricsRow(id string, totalMU, totalTime float64, s complexity.Summary) []string {
	return []string{
		id,
		fmt.Sprintf("%.6f", totalMU),
		fmt.Sprintf("%.6f", totalTime),
		fmt.Sprintf("%.6f", s.MUPerDose),
		fmt.Sprintf("%.6f", s.TotalApertureMU),
		fmt.Sprintf("%.6f", s.AverageApertureCount),
		fmt.Sprintf("%.6f", s.ApertureJawAreaRatio),
		fmt.Sprintf("%.6f", s.PerimeterAreaRatioPooled),
		fmt.Sprintf("%.6f", s.PerimeterAreaRatioAveraged),
		fmt.Sprintf("%.6f", s.EdgeAreaRatioPerControlPoint),
		fmt.Sprintf("%.6f", s.EdgeAreaRatioPooled),
		fmt.Sprintf("%.6f", s.EquivalentSquareLength),
		fmt.Sprintf("%.6f", s.AverageApertureArea),
		fmt.Sprintf("%.6f", s.AreaSkewness),
		fmt.Sprintf("%.6f", s.AverageClosedLeafGap),
		fmt.Sprintf("%.6f", s.AverageLeafSpeed),
		fmt.Sprintf("%.6f", s.AverageGantryAcceleration),
	}
}
