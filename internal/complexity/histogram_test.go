package complexity

import (
	"math"
	"testing"

	"github.com/kestrel-data/aperture.report/internal/mlc"
)

func TestAreaHistogram(t *testing.T) {
	beams := []*mlc.BeamRecord{record(100,
		acp(60, 4000, 0, mlc.Aperture{Area: 120, Perimeter: 60, EdgeLength: 30}),
		acp(40, 4000, 0, mlc.Aperture{Area: 1600, Perimeter: 160, EdgeLength: 80}),
	)}

	hist := AreaHistogram(beams, 500)
	if len(hist) != 2 {
		t.Fatalf("bin count = %d, want 2: %v", len(hist), hist)
	}
	// 120 mm^2 rounds up to the 500 bin, 1600 mm^2 to the 2000 bin.
	if got := hist[500]; math.Abs(got-0.6) > 1e-9 {
		t.Errorf("hist[500] = %v, want 0.6", got)
	}
	if got := hist[2000]; math.Abs(got-0.4) > 1e-9 {
		t.Errorf("hist[2000] = %v, want 0.4", got)
	}

	var sum float64
	for _, w := range hist {
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("weights sum = %v, want 1", sum)
	}
}

func TestAreaHistogram_ExactBoundary(t *testing.T) {
	// An area landing exactly on a bin boundary belongs to that bin, not
	// the next one up.
	beams := []*mlc.BeamRecord{record(100,
		acp(100, 4000, 0, mlc.Aperture{Area: 1000, Perimeter: 130, EdgeLength: 60}),
	)}

	hist := AreaHistogram(beams, 500)
	if got := hist[1000]; math.Abs(got-1) > 1e-9 {
		t.Errorf("hist[1000] = %v, want 1 (full weight)", got)
	}
	if _, ok := hist[1500]; ok {
		t.Errorf("boundary area leaked into hist[1500]: %v", hist)
	}
}

func TestAreaHistogram_CapDropsOversizedApertures(t *testing.T) {
	beams := []*mlc.BeamRecord{record(150,
		acp(60, 4000, 0, mlc.Aperture{Area: 120, Perimeter: 60, EdgeLength: 30}),
		acp(40, 4000, 0, mlc.Aperture{Area: 1600, Perimeter: 160, EdgeLength: 80}),
		acp(50, 4000, 0, mlc.Aperture{Area: 130000, Perimeter: 2000, EdgeLength: 900}),
	)}

	hist := AreaHistogram(beams, 500)
	var sum float64
	for bin, w := range hist {
		if bin > MaxHistogramArea {
			t.Errorf("bin %d exceeds the %d cap", bin, MaxHistogramArea)
		}
		sum += w
	}
	// The oversized aperture keeps its MU in the denominator, so the
	// remaining weights sum below one: (60+40)/150.
	if math.Abs(sum-100.0/150) > 1e-9 {
		t.Errorf("weights sum = %v, want %v", sum, 100.0/150)
	}
}

func TestAreaHistogram_Degenerate(t *testing.T) {
	valid := []*mlc.BeamRecord{record(100, acp(100, 4000, 0, square(10)))}

	if hist := AreaHistogram(valid, 0); len(hist) != 0 {
		t.Errorf("zero bin size: got %v, want empty", hist)
	}
	if hist := AreaHistogram(nil, 500); hist == nil || len(hist) != 0 {
		t.Errorf("invalid set: got %v, want empty non-nil map", hist)
	}
	closed := []*mlc.BeamRecord{record(100, acp(100, 4000, 0))}
	if hist := AreaHistogram(closed, 500); len(hist) != 0 {
		t.Errorf("no apertures: got %v, want empty", hist)
	}
}

func TestAverageApertureArea(t *testing.T) {
	// (50*100 + 50*400) / 100
	beams := []*mlc.BeamRecord{record(100,
		acp(50, 4000, 0, square(10)),
		acp(50, 4000, 0, square(20)),
	)}
	if got := AverageApertureArea(beams); math.Abs(got-250) > 1e-9 {
		t.Errorf("AverageApertureArea = %v, want 250", got)
	}
}

func TestAreaSkewness(t *testing.T) {
	t.Run("right skewed distribution", func(t *testing.T) {
		// Areas [1,1,4] with equal weights: mean 2, variance 2, third
		// central moment 2, so skewness = 2/2^1.5 = 1/sqrt(2).
		beams := []*mlc.BeamRecord{record(90,
			acp(30, 4000, 0, mlc.Aperture{Area: 1, Perimeter: 4, EdgeLength: 2}),
			acp(30, 4000, 0, mlc.Aperture{Area: 1, Perimeter: 4, EdgeLength: 2}),
			acp(30, 4000, 0, mlc.Aperture{Area: 4, Perimeter: 8, EdgeLength: 4}),
		)}
		want := 1 / math.Sqrt2
		if got := AreaSkewness(beams); math.Abs(got-want) > 1e-9 {
			t.Errorf("AreaSkewness = %v, want %v", got, want)
		}
	})

	t.Run("symmetric distribution has zero skew", func(t *testing.T) {
		beams := []*mlc.BeamRecord{record(100,
			acp(50, 4000, 0, square(10)),
			acp(50, 4000, 0, square(20)),
		)}
		if got := AreaSkewness(beams); math.Abs(got) > 1e-9 {
			t.Errorf("AreaSkewness = %v, want 0", got)
		}
	})

	t.Run("zero variance reports zero", func(t *testing.T) {
		beams := []*mlc.BeamRecord{record(100, acp(100, 4000, 0, square(10)))}
		if got := AreaSkewness(beams); got != 0 {
			t.Errorf("AreaSkewness = %v, want 0", got)
		}
	})
}
