package complexity

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/kestrel-data/aperture.report/internal/mlc"
)

// MaxHistogramArea caps the aperture area histogram at 120000 mm^2, the
// largest field a 400x300 mm jaw window can expose. Apertures beyond the cap
// are left out, so bin weights may sum to less than one.
const MaxHistogramArea = 120000

// AreaHistogram bins every aperture's area by its upper bound,
// ceil(area/binSize)*binSize, weighting each entry by its control point's
// share of the pooled aperture MU. The returned map is keyed by bin upper
// bound in mm^2; weights sum to at most one.
func AreaHistogram(beams []*mlc.BeamRecord, binSize int) map[int]float64 {
	hist := make(map[int]float64)
	if !BeamsValid(beams) || binSize <= 0 {
		return hist
	}
	apMU := apertureMU(beams)
	if apMU == 0 {
		return hist
	}
	for _, b := range beams {
		for _, acp := range b.ApertureControlPoints {
			for _, ap := range acp.Apertures {
				if ap.Area <= 0 {
					continue
				}
				bin := int(math.Ceil(ap.Area/float64(binSize))) * binSize
				if bin > MaxHistogramArea {
					continue
				}
				hist[bin] += acp.IncrementalMU / apMU
			}
		}
	}
	return hist
}

// AverageApertureArea returns the aperture-MU-weighted mean aperture area
// (mm^2).
func AverageApertureArea(beams []*mlc.BeamRecord) float64 {
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
				sum += acp.IncrementalMU * ap.Area
			}
		}
	}
	return sum / apMU
}

// AreaSkewness returns the aperture-MU-weighted skewness of the aperture area
// distribution: the third central moment over variance^1.5. A distribution
// with zero variance (all areas equal, or a single aperture) reports zero.
func AreaSkewness(beams []*mlc.BeamRecord) float64 {
	if !BeamsValid(beams) {
		return 0
	}

	var areas, weights []float64
	for _, b := range beams {
		for _, acp := range b.ApertureControlPoints {
			for _, ap := range acp.Apertures {
				areas = append(areas, ap.Area)
				weights = append(weights, acp.IncrementalMU)
			}
		}
	}
	if len(areas) == 0 {
		return 0
	}

	mean := stat.Mean(areas, weights)
	variance := stat.MomentAbout(2, areas, mean, weights)
	if variance <= 0 || math.IsNaN(variance) {
		return 0
	}
	m3 := stat.MomentAbout(3, areas, mean, weights)
	return m3 / math.Pow(variance, 1.5)
}
