// Package analysis drives the plan pipeline: resolve each beam's machine
// context from the catalog, reconstruct apertures and delivery dynamics, and
// aggregate complexity metrics at beam and plan level.
package analysis

import (
	"fmt"

	"github.com/kestrel-data/aperture.report/internal/complexity"
	"github.com/kestrel-data/aperture.report/internal/machine"
	"github.com/kestrel-data/aperture.report/internal/mlc"
	"github.com/kestrel-data/aperture.report/internal/monitoring"
	"github.com/kestrel-data/aperture.report/internal/planfile"
)

// DefaultBinSize is the aperture area histogram bin width (mm^2) used when
// the caller does not set one.
const DefaultBinSize = 500

// Options tune one analysis run.
type Options struct {
	HistogramBinSize int // Bin width (mm^2); DefaultBinSize when <= 0
}

// SkippedBeam records one beam left out of the aggregation and why.
type SkippedBeam struct {
	BeamID string `json:"beam_id"`
	Reason string `json:"reason"`
}

// Result is a complete plan analysis. Beams holds the reconstructed records
// in plan order with BeamSummaries parallel to it; Summary aggregates across
// all analyzed beams.
type Result struct {
	PlanID           string
	PrescribedDoseGy float64
	BinSize          int
	Summary          complexity.Summary
	Beams            []*mlc.BeamRecord
	BeamSummaries    []complexity.Summary
	Skipped          []SkippedBeam
}

// AnalyzePlan analyzes every structurally valid beam of a plan. Beams that
// fail validation, or whose leaf banks disagree with their declared MLC
// model, are skipped with a recorded reason rather than failing the plan.
// Unknown MLC models and treatment units degrade the beam (no apertures, no
// dynamics) but keep it in the aggregation.
func AnalyzePlan(plan *planfile.Plan, reg *machine.Registry, opts Options) *Result {
	binSize := opts.HistogramBinSize
	if binSize <= 0 {
		binSize = DefaultBinSize
	}

	res := &Result{
		PlanID:           plan.PlanID,
		PrescribedDoseGy: plan.PrescribedDoseGy,
		BinSize:          binSize,
	}

	for i := range plan.Beams {
		pb := &plan.Beams[i]
		if err := pb.Validate(); err != nil {
			res.skip(pb.ID, err.Error())
			continue
		}

		leaves, modelKnown := reg.LeafPairs(pb.MLCModel)
		if !modelKnown {
			monitoring.Logf("plan %s beam %s: unknown MLC model %q, aperture reconstruction skipped",
				plan.PlanID, pb.ID, pb.MLCModel)
		} else if len(leaves) != len(pb.ControlPoints[0].Bank0) {
			res.skip(pb.ID, fmt.Sprintf("mlc model %q has %d leaf pairs, beam carries %d",
				pb.MLCModel, len(leaves), len(pb.ControlPoints[0].Bank0)))
			continue
		}

		var limits *mlc.SpeedLimits
		if l, ok := reg.Limits(pb.TreatmentUnit); ok {
			limits = &l
		} else if pb.Dynamic() {
			monitoring.Logf("plan %s beam %s: unknown treatment unit %q, rate reconciliation skipped",
				plan.PlanID, pb.ID, pb.TreatmentUnit)
		}

		rec := mlc.AnalyzeBeam(mlc.Beam{
			ID:            pb.ID,
			TotalMU:       pb.TotalMU,
			Dynamic:       pb.Dynamic(),
			Leaves:        leaves,
			Limits:        limits,
			ControlPoints: pb.MLCControlPoints(),
		})
		res.Beams = append(res.Beams, rec)
		res.BeamSummaries = append(res.BeamSummaries,
			complexity.Summarize([]*mlc.BeamRecord{rec}, plan.PrescribedDoseGy, binSize))
	}

	res.Summary = complexity.Summarize(res.Beams, plan.PrescribedDoseGy, binSize)
	return res
}

func (r *Result) skip(beamID, reason string) {
	monitoring.Logf("plan %s beam %s skipped: %s", r.PlanID, beamID, reason)
	r.Skipped = append(r.Skipped, SkippedBeam{BeamID: beamID, Reason: reason})
}
