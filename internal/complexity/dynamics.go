package complexity

import (
	"math"

	"github.com/kestrel-data/aperture.report/internal/mlc"
)

// AverageLeafSpeed returns the MU-weighted mean leaf speed across all dynamic
// intervals (mm/s). Static beams contribute no intervals and therefore only
// meterset to the denominator.
func AverageLeafSpeed(beams []*mlc.BeamRecord) float64 {
	if !BeamsValid(beams) {
		return 0
	}
	var sum float64
	for _, b := range beams {
		for _, d := range b.DynamicControlPoints {
			sum += d.IntervalMU * d.AvgLeafSpeed
		}
	}
	return sum / planMU(beams)
}

// AverageGantryAcceleration returns the MU-weighted total gantry speed
// variation per meterset (deg/s per MU of speed change, reported as deg/s).
// Each beam's interval sequence is padded with a virtual zero-speed,
// zero-meterset endpoint on both sides, then every speed transition
// contributes the trapezoidal MU across it times the absolute speed change.
func AverageGantryAcceleration(beams []*mlc.BeamRecord) float64 {
	if !BeamsValid(beams) {
		return 0
	}
	var sum float64
	for _, b := range beams {
		prevMU, prevSpeed := 0.0, 0.0
		for _, d := range b.DynamicControlPoints {
			sum += 0.5 * (d.IntervalMU + prevMU) * math.Abs(d.GantrySpeed-prevSpeed)
			prevMU, prevSpeed = d.IntervalMU, d.GantrySpeed
		}
		// Closing transition back to the virtual zero endpoint.
		sum += 0.5 * prevMU * math.Abs(prevSpeed)
	}
	return sum / planMU(beams)
}

// TotalBeamTime sums the reconciled delivery time over all beams (s).
func TotalBeamTime(beams []*mlc.BeamRecord) float64 {
	var sum float64
	for _, b := range beams {
		if b != nil {
			sum += b.TotalTime
		}
	}
	return sum
}
