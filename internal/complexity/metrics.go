// Package complexity computes MU-weighted delivery complexity metrics from
// reconstructed beam records. Every metric is guarded by the same validity
// gate: an empty record set, or any beam whose meterset is not a finite
// positive number, makes every metric evaluate to zero rather than fail.
// Callers wanting partial results filter invalid beams before submission.
package complexity

import (
	"math"

	"github.com/kestrel-data/aperture.report/internal/mlc"
)

// BeamsValid reports whether the record set is usable for aggregation: at
// least one beam, and every beam's meterset a finite positive number.
func BeamsValid(beams []*mlc.BeamRecord) bool {
	if len(beams) == 0 {
		return false
	}
	for _, b := range beams {
		if b == nil || math.IsNaN(b.TotalMU) || math.IsInf(b.TotalMU, 0) || b.TotalMU <= 0 {
			return false
		}
	}
	return true
}

// planMU sums the meterset over all beams.
func planMU(beams []*mlc.BeamRecord) float64 {
	var sum float64
	for _, b := range beams {
		sum += b.TotalMU
	}
	return sum
}

// apertureMU sums incrementalMU multiplied by the aperture count over all
// control points, the common denominator of the aperture-weighted metrics.
func apertureMU(beams []*mlc.BeamRecord) float64 {
	var sum float64
	for _, b := range beams {
		for _, acp := range b.ApertureControlPoints {
			sum += acp.IncrementalMU * float64(len(acp.Apertures))
		}
	}
	return sum
}

// MUPerDose returns the total plan meterset per prescribed dose (MU/Gy).
func MUPerDose(beams []*mlc.BeamRecord, prescribedDoseGy float64) float64 {
	if !BeamsValid(beams) || prescribedDoseGy <= 0 || math.IsNaN(prescribedDoseGy) {
		return 0
	}
	return planMU(beams) / prescribedDoseGy
}

// TotalApertureMU returns the meterset-weighted aperture count over the whole
// record set (MU).
func TotalApertureMU(beams []*mlc.BeamRecord) float64 {
	if !BeamsValid(beams) {
		return 0
	}
	return apertureMU(beams)
}

// AverageApertureCount returns the MU-weighted mean number of open apertures
// per control point.
func AverageApertureCount(beams []*mlc.BeamRecord) float64 {
	if !BeamsValid(beams) {
		return 0
	}
	return apertureMU(beams) / planMU(beams)
}

// ApertureJawAreaRatio returns the MU-weighted mean fraction of the jaw
// window opened by the MLC.
func ApertureJawAreaRatio(beams []*mlc.BeamRecord) float64 {
	if !BeamsValid(beams) {
		return 0
	}
	var sum float64
	for _, b := range beams {
		for _, acp := range b.ApertureControlPoints {
			if acp.JawArea <= 0 {
				continue
			}
			var area float64
			for _, ap := range acp.Apertures {
				area += ap.Area
			}
			sum += acp.IncrementalMU * (area / acp.JawArea)
		}
	}
	return sum / planMU(beams)
}

// PerimeterAreaRatioPooled returns the ratio of the MU-weighted pooled
// aperture perimeter to the MU-weighted pooled aperture area (1/mm).
func PerimeterAreaRatioPooled(beams []*mlc.BeamRecord) float64 {
	if !BeamsValid(beams) {
		return 0
	}
	var num, den float64
	for _, b := range beams {
		for _, acp := range b.ApertureControlPoints {
			for _, ap := range acp.Apertures {
				num += acp.IncrementalMU * ap.Perimeter
				den += acp.IncrementalMU * ap.Area
			}
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// PerimeterAreaRatioAveraged returns the aperture-MU-weighted mean of each
// aperture's own perimeter/area ratio (1/mm). Unlike the pooled form, small
// irregular apertures are not averaged away by large ones.
func PerimeterAreaRatioAveraged(beams []*mlc.BeamRecord) float64 {
	if !BeamsValid(beams) {
		return 0
	}
	apMU := apertureMU(beams)
	if apMU == 0 {
		return 0
	}
	var sum float64
	for _, b := range beams {
		for _, acp := range b.ApertureControlPoints {
			for _, ap := range acp.Apertures {
				if ap.Area <= 0 {
					continue
				}
				sum += acp.IncrementalMU * (ap.Perimeter / ap.Area)
			}
		}
	}
	return sum / apMU
}

// EdgeAreaRatioPerControlPoint returns the MU-weighted mean of each control
// point's summed edge length over summed aperture area (1/mm). Control points
// with no apertures are skipped.
func EdgeAreaRatioPerControlPoint(beams []*mlc.BeamRecord) float64 {
	if !BeamsValid(beams) {
		return 0
	}
	var sum float64
	for _, b := range beams {
		for _, acp := range b.ApertureControlPoints {
			var edge, area float64
			for _, ap := range acp.Apertures {
				edge += ap.EdgeLength
				area += ap.Area
			}
			if area <= 0 {
				continue
			}
			sum += acp.IncrementalMU * (edge / area)
		}
	}
	return sum / planMU(beams)
}

// EdgeAreaRatioPooled returns the ratio of the MU-weighted pooled edge length
// to the MU-weighted pooled aperture area (1/mm).
func EdgeAreaRatioPooled(beams []*mlc.BeamRecord) float64 {
	num, den := pooledEdgeArea(beams)
	if den == 0 {
		return 0
	}
	return num / den
}

// EquivalentSquareLength returns the side length (mm) of the square whose
// area/edge ratio matches the MU-weighted pooled aperture sums: twice the
// pooled area over the pooled edge length.
func EquivalentSquareLength(beams []*mlc.BeamRecord) float64 {
	edge, area := pooledEdgeArea(beams)
	if edge == 0 {
		return 0
	}
	return 2 * area / edge
}

// pooledEdgeArea returns the MU-weighted pooled edge length and area sums.
// Both are zero when the record set fails validation.
func pooledEdgeArea(beams []*mlc.BeamRecord) (edge, area float64) {
	if !BeamsValid(beams) {
		return 0, 0
	}
	for _, b := range beams {
		for _, acp := range b.ApertureControlPoints {
			for _, ap := range acp.Apertures {
				edge += acp.IncrementalMU * ap.EdgeLength
				area += acp.IncrementalMU * ap.Area
			}
		}
	}
	return edge, area
}

// AverageClosedLeafGap returns the MU-weighted mean closed-leaf-gap width per
// control point (mm): exposed leaf pairs parked closed inside the jaw window.
func AverageClosedLeafGap(beams []*mlc.BeamRecord) float64 {
	if !BeamsValid(beams) {
		return 0
	}
	var sum float64
	for _, b := range beams {
		for _, acp := range b.ApertureControlPoints {
			sum += acp.IncrementalMU * acp.ClosedLeafGapSum
		}
	}
	return sum / planMU(beams)
}
