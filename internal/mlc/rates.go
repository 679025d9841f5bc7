package mlc

import "math"

// Wrap180 maps an angle difference onto the equivalent rotation in
// (-180, 180] degrees, the shortest path around the gantry circle.
func Wrap180(deg float64) float64 {
	w := deg + 180
	w -= math.Floor(w/360) * 360
	w -= 180
	if w == -180 {
		w = 180
	}
	return w
}

// ReconcileRates derives per-interval delivery dynamics for a rotational
// beam. For each pair of adjacent control points it computes two candidate
// durations, the meterset delivered at the maximum dose rate and the gantry
// rotation at the maximum speed, takes the slower one as the interval
// duration, and back-solves the unconstrained axis. The returned slice holds
// exactly len(cps)-1 entries; the second return value is the summed delivery
// time in seconds.
//
// Degenerate input (fewer than two control points, non-positive limits)
// yields no dynamics and a zero time.
func ReconcileRates(cps []ControlPoint, leaves []LeafPair, totalMU float64, limits SpeedLimits) ([]DynamicControlPoint, float64) {
	if len(cps) < 2 || limits.MaxGantrySpeed <= 0 || limits.MaxDoseRate <= 0 {
		return nil, 0
	}

	maxYSpan := 0.0
	for _, cp := range cps {
		if h := cp.Jaw.Height(); h > maxYSpan {
			maxYSpan = h
		}
	}

	dynamics := make([]DynamicControlPoint, 0, len(cps)-1)
	var totalTime float64
	for i := 0; i+1 < len(cps); i++ {
		a, b := cps[i], cps[i+1]
		intervalMU := (b.MetersetWeight - a.MetersetWeight) * totalMU
		rotation := math.Abs(Wrap180(b.GantryAngleDeg - a.GantryAngleDeg))

		muTime := intervalMU / (limits.MaxDoseRate / 60)
		gantryTime := rotation / limits.MaxGantrySpeed

		d := DynamicControlPoint{IntervalIndex: i, IntervalMU: intervalMU}
		switch {
		case muTime == 0 && gantryTime == 0:
			d.LimitedBy = LimitNone
		case muTime < gantryTime:
			// Gantry rotation paces the interval; the beam must slow down.
			d.Duration = gantryTime
			d.GantrySpeed = limits.MaxGantrySpeed
			d.DoseRate = intervalMU / gantryTime * 60
			d.LimitedBy = LimitGantry
		default:
			// Meterset delivery paces the interval; the gantry must slow down.
			d.Duration = muTime
			d.GantrySpeed = rotation / muTime
			d.DoseRate = limits.MaxDoseRate
			d.LimitedBy = LimitDoseRate
		}

		if d.Duration > 0 {
			d.AvgLeafSpeed = leafTravel(a, b, leaves, maxYSpan) / d.Duration
		}
		totalTime += d.Duration
		dynamics = append(dynamics, d)
	}
	return dynamics, totalTime
}

// leafTravel sums width-weighted leaf tip displacement between two control
// points. Each pair's mean tip displacement is scaled by its leaf width
// relative to the widest jaw Y span observed in the beam, so a wide outer
// leaf moving the same distance as a fine central leaf contributes
// proportionally more field change. Pairs shielded by the Y jaws at both
// snapshots, or whose opening sits outside the X window at both snapshots,
// contribute nothing.
func leafTravel(a, b ControlPoint, leaves []LeafPair, maxYSpan float64) float64 {
	if maxYSpan <= 0 || len(leaves) == 0 ||
		len(a.Bank0) != len(leaves) || len(a.Bank1) != len(leaves) ||
		len(b.Bank0) != len(leaves) || len(b.Bank1) != len(leaves) {
		return 0
	}

	y1 := math.Min(a.Jaw.Y1, b.Jaw.Y1)
	y2 := math.Max(a.Jaw.Y2, b.Jaw.Y2)

	var travel float64
	for i, lp := range leaves {
		lo := lp.CenterY - lp.Width/2
		hi := lp.CenterY + lp.Width/2
		if hi <= y1 || lo >= y2 {
			continue
		}
		if outsideX(a, i) && outsideX(b, i) {
			continue
		}
		travel += lp.Width / maxYSpan * 0.5 *
			(math.Abs(b.Bank1[i]-a.Bank1[i]) + math.Abs(b.Bank0[i]-a.Bank0[i]))
	}
	return travel
}

// outsideX reports whether pair i's opening lies entirely outside the X jaw
// window at the given control point.
func outsideX(cp ControlPoint, i int) bool {
	return cp.Bank1[i] <= cp.Jaw.X1 || cp.Bank0[i] >= cp.Jaw.X2
}
