package complexity

import "github.com/kestrel-data/aperture.report/internal/mlc"

// Summary bundles every complexity metric for one record set. A set failing
// validation produces an all-zero summary with an empty histogram.
type Summary struct {
	PlanMU                       float64         `json:"plan_mu"`
	TotalTime                    float64         `json:"total_time_s"`
	MUPerDose                    float64         `json:"mu_per_dose"`
	TotalApertureMU              float64         `json:"total_aperture_mu"`
	AverageApertureCount         float64         `json:"avg_aperture_count"`
	ApertureJawAreaRatio         float64         `json:"aperture_jaw_area_ratio"`
	PerimeterAreaRatioPooled     float64         `json:"perimeter_area_ratio_pooled"`
	PerimeterAreaRatioAveraged   float64         `json:"perimeter_area_ratio_averaged"`
	EdgeAreaRatioPerControlPoint float64         `json:"edge_area_ratio_per_cp"`
	EdgeAreaRatioPooled          float64         `json:"edge_area_ratio_pooled"`
	EquivalentSquareLength       float64         `json:"equivalent_square_mm"`
	AverageApertureArea          float64         `json:"avg_aperture_area_mm2"`
	AreaSkewness                 float64         `json:"area_skewness"`
	AverageClosedLeafGap         float64         `json:"avg_closed_leaf_gap_mm"`
	AverageLeafSpeed             float64         `json:"avg_leaf_speed_mm_s"`
	AverageGantryAcceleration    float64         `json:"avg_gantry_acceleration"`
	Histogram                    map[int]float64 `json:"area_histogram"`
}

// Summarize computes the full metric set over the given beams. The prescribed
// dose feeds only the MU/dose ratio; pass zero when it is unknown. binSize
// sets the histogram bin width in mm^2.
func Summarize(beams []*mlc.BeamRecord, prescribedDoseGy float64, binSize int) Summary {
	s := Summary{Histogram: AreaHistogram(beams, binSize)}
	if !BeamsValid(beams) {
		return s
	}

	s.PlanMU = planMU(beams)
	s.TotalTime = TotalBeamTime(beams)
	s.MUPerDose = MUPerDose(beams, prescribedDoseGy)
	s.TotalApertureMU = TotalApertureMU(beams)
	s.AverageApertureCount = AverageApertureCount(beams)
	s.ApertureJawAreaRatio = ApertureJawAreaRatio(beams)
	s.PerimeterAreaRatioPooled = PerimeterAreaRatioPooled(beams)
	s.PerimeterAreaRatioAveraged = PerimeterAreaRatioAveraged(beams)
	s.EdgeAreaRatioPerControlPoint = EdgeAreaRatioPerControlPoint(beams)
	s.EdgeAreaRatioPooled = EdgeAreaRatioPooled(beams)
	s.EquivalentSquareLength = EquivalentSquareLength(beams)
	s.AverageApertureArea = AverageApertureArea(beams)
	s.AreaSkewness = AreaSkewness(beams)
	s.AverageClosedLeafGap = AverageClosedLeafGap(beams)
	s.AverageLeafSpeed = AverageLeafSpeed(beams)
	s.AverageGantryAcceleration = AverageGantryAcceleration(beams)
	return s
}
