// Package machine holds the treatment machine catalog: MLC leaf geometry by
// model name and axis limits by treatment unit. The compiled-in tables cover
// the common Varian configurations and can be extended or replaced at startup
// from a JSON overrides file, so new machines are additive data rather than
// code changes.
package machine

import "github.com/kestrel-data/aperture.report/internal/mlc"

// uniformSection appends count leaf pairs of the given width, the first
// band's lower edge starting at startY (mm).
func uniformSection(pairs []mlc.LeafPair, startY, width float64, count int) []mlc.LeafPair {
	for i := 0; i < count; i++ {
		pairs = append(pairs, mlc.LeafPair{
			CenterY: startY + width/2 + float64(i)*width,
			Width:   width,
		})
	}
	return pairs
}

// millennium120 covers a 400 mm span with 10 mm outer and 5 mm central
// leaves, 60 pairs in total.
func millennium120() []mlc.LeafPair {
	pairs := make([]mlc.LeafPair, 0, 60)
	pairs = uniformSection(pairs, -200, 10, 10)
	pairs = uniformSection(pairs, -100, 5, 40)
	pairs = uniformSection(pairs, 100, 10, 10)
	return pairs
}

// millennium80 covers a 400 mm span with 40 uniform 10 mm pairs.
func millennium80() []mlc.LeafPair {
	return uniformSection(make([]mlc.LeafPair, 0, 40), -200, 10, 40)
}

// hd120 covers a 220 mm span with 5 mm outer and 2.5 mm central leaves,
// 60 pairs in total.
func hd120() []mlc.LeafPair {
	pairs := make([]mlc.LeafPair, 0, 60)
	pairs = uniformSection(pairs, -110, 5, 14)
	pairs = uniformSection(pairs, -40, 2.5, 32)
	pairs = uniformSection(pairs, 40, 5, 14)
	return pairs
}

// builtinModels returns the compiled-in MLC geometry table.
func builtinModels() map[string][]mlc.LeafPair {
	return map[string][]mlc.LeafPair{
		"Millennium 120": millennium120(),
		"Millennium 80":  millennium80(),
		"HD 120":         hd120(),
	}
}

// builtinUnits returns the compiled-in treatment unit limits. Clinac-class
// machines rotate a full turn in 75 s (4.8 deg/s); TrueBeam-class machines
// manage 6 deg/s.
func builtinUnits() map[string]mlc.SpeedLimits {
	return map[string]mlc.SpeedLimits{
		"TrueBeam":    {MaxGantrySpeed: 6.0, MaxDoseRate: 600},
		"TrueBeamSTx": {MaxGantrySpeed: 6.0, MaxDoseRate: 600},
		"Clinac iX":   {MaxGantrySpeed: 4.8, MaxDoseRate: 600},
		"Clinac 21EX": {MaxGantrySpeed: 4.8, MaxDoseRate: 600},
	}
}
