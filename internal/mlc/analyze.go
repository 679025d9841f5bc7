package mlc

// AnalyzeBeam runs the full per-beam reconstruction: meterset weighting,
// aperture extraction at every control point and, for rotational beams with
// known machine limits, rate reconciliation.
//
// An unknown MLC model (empty Leaves) skips aperture extraction and an
// unknown treatment unit (nil Limits) skips rate reconciliation. The record
// still carries the per-control-point meterset split in both cases so callers
// can report whatever remains meaningful.
func AnalyzeBeam(beam Beam) *BeamRecord {
	rec := &BeamRecord{ID: beam.ID, TotalMU: beam.TotalMU}

	incs := IncrementalMU(beam.ControlPoints, beam.TotalMU)
	rec.ApertureControlPoints = make([]ApertureControlPoint, 0, len(beam.ControlPoints))
	for i, cp := range beam.ControlPoints {
		apertures, closedGap := ExtractApertures(cp, beam.Leaves)
		rec.ApertureControlPoints = append(rec.ApertureControlPoints, ApertureControlPoint{
			Index:            i,
			Jaw:              cp.Jaw,
			JawArea:          cp.Jaw.Area(),
			JawPerimeter:     cp.Jaw.Perimeter(),
			IncrementalMU:    incs[i],
			ClosedLeafGapSum: closedGap,
			Apertures:        apertures,
		})
	}

	if beam.Dynamic && beam.Limits != nil {
		rec.DynamicControlPoints, rec.TotalTime = ReconcileRates(
			beam.ControlPoints, beam.Leaves, beam.TotalMU, *beam.Limits)
	}
	return rec
}
