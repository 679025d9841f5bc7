package mlc

import "math"

// MinOpenGap is the leaf tip separation (mm) at or below which a pair is
// treated as closed. Dynamic deliveries park "closed" leaves with a ~0.5 mm
// dosimetric gap; separations up to this threshold are machine slack, not a
// real opening.
const MinOpenGap = 0.505

// pairState captures one leaf pair's eligibility and opening for a single
// control-point scan.
type pairState struct {
	open bool // Eligible and separated by more than MinOpenGap
	b0   float64
	b1   float64
	gap  float64
}

// ExtractApertures reconstructs the contiguous MLC openings visible through
// the jaw window at one control point.
//
// A leaf pair participates only when its band overlaps the jaw Y window and
// both tips sit inside the jaw X window. The scan walks pairs in band order
// with a running accumulator: each open pair adds its area, boundary and
// leaf-edge contributions, openings on adjacent pairs merge into the same
// aperture while their tip intervals overlap, and the accumulator emits one
// Aperture whenever the run of connected openings ends. Split fields and
// interdigitated shapes therefore yield several apertures for one control
// point.
//
// The second return value sums the leaf widths of participating pairs whose
// tips are closed, the exposed closed gap tracked by the leaf-gap metric.
func ExtractApertures(cp ControlPoint, leaves []LeafPair) ([]Aperture, float64) {
	if len(leaves) == 0 || len(cp.Bank0) != len(leaves) || len(cp.Bank1) != len(leaves) {
		return nil, 0
	}

	states := make([]pairState, len(leaves))
	var closedGapSum float64
	for i, lp := range leaves {
		lo := lp.CenterY - lp.Width/2
		hi := lp.CenterY + lp.Width/2
		if hi <= cp.Jaw.Y1 || lo >= cp.Jaw.Y2 {
			continue // band fully shielded by the Y jaws
		}
		b0, b1 := cp.Bank0[i], cp.Bank1[i]
		if b0 < cp.Jaw.X1 || b0 > cp.Jaw.X2 || b1 < cp.Jaw.X1 || b1 > cp.Jaw.X2 {
			continue // tips parked outside the X window
		}
		gap := b1 - b0
		if gap <= MinOpenGap {
			closedGapSum += lp.Width
			continue
		}
		states[i] = pairState{open: true, b0: b0, b1: b1, gap: gap}
	}

	var apertures []Aperture
	var cur Aperture
	for i, lp := range leaves {
		st := states[i]
		if !st.open {
			continue
		}

		// Portion of the leaf band not shielded by the Y jaws. The two min
		// terms reduce to the band/window intersection length.
		effWidth := math.Min(lp.Width/2, cp.Jaw.Y2-lp.CenterY) +
			math.Min(lp.Width/2, lp.CenterY-cp.Jaw.Y1)

		// Exposed closing edge toward the previous pair: the full gap when
		// nothing continues the opening from that side, otherwise the part of
		// this gap the neighbouring gap does not cover, per bank.
		negEdge := st.gap
		if i > 0 && states[i-1].open {
			prev := states[i-1]
			negEdge = clamp(prev.b0-st.b0, 0, st.gap) + clamp(st.b1-prev.b1, 0, st.gap)
		}
		posEdge := st.gap
		if i+1 < len(leaves) && states[i+1].open {
			next := states[i+1]
			posEdge = clamp(next.b0-st.b0, 0, st.gap) + clamp(st.b1-next.b1, 0, st.gap)
		}

		cur.Area += st.gap * effWidth
		cur.Perimeter += negEdge + posEdge + 2*effWidth
		cur.EdgeLength += negEdge + posEdge

		// A fully exposed positive edge means the next pair does not continue
		// this opening: the aperture is complete.
		if posEdge >= st.gap {
			apertures = append(apertures, cur)
			cur = Aperture{}
		}
	}
	return apertures, closedGapSum
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
