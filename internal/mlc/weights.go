package mlc

// IncrementalMU distributes a beam's meterset across its control points using
// a centered trapezoidal rule over the cumulative meterset-weight fractions:
// an interior point takes half the weight span between its two neighbours and
// each endpoint takes half of its single adjacent span. For monotonic weights
// spanning [0,1] the result sums to totalMU within floating-point rounding.
func IncrementalMU(cps []ControlPoint, totalMU float64) []float64 {
	n := len(cps)
	switch n {
	case 0:
		return nil
	case 1:
		return []float64{totalMU}
	}

	out := make([]float64, n)
	out[0] = 0.5 * cps[1].MetersetWeight * totalMU
	for i := 1; i < n-1; i++ {
		out[i] = 0.5 * (cps[i+1].MetersetWeight - cps[i-1].MetersetWeight) * totalMU
	}
	out[n-1] = 0.5 * (cps[n-1].MetersetWeight - cps[n-2].MetersetWeight) * totalMU
	return out
}
