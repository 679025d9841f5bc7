// Package planfile reads treatment plan snapshots from the versioned JSON
// interchange format. Loading validates structure only: machine names are
// resolved later against the catalog, and delivery semantics belong to the
// analysis layer.
package planfile

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/kestrel-data/aperture.report/internal/mlc"
)

// SchemaVersion is the plan snapshot format this build reads.
const SchemaVersion = 1

// Delivery type values accepted in a beam's delivery_type field.
const (
	DeliveryStatic  = "static"
	DeliveryDynamic = "dynamic"
)

// Plan is one exported treatment plan snapshot.
type Plan struct {
	SchemaVersion    int     `json:"schema_version"`
	PlanID           string  `json:"plan_id"`
	PrescribedDoseGy float64 `json:"prescribed_dose_gy"`
	Beams            []Beam  `json:"beams"`
}

// Beam is one beam's delivery sequence plus the machine names the catalog
// resolves.
type Beam struct {
	ID            string         `json:"id"`
	TreatmentUnit string         `json:"treatment_unit"`
	MLCModel      string         `json:"mlc_model"`
	DeliveryType  string         `json:"delivery_type"`
	TotalMU       float64        `json:"total_mu"`
	ControlPoints []ControlPoint `json:"control_points"`
}

// ControlPoint is one geometry snapshot in the interchange format.
type ControlPoint struct {
	GantryAngleDeg     float64   `json:"gantry_angle_deg"`
	CumulativeMeterset float64   `json:"cumulative_meterset"`
	Jaw                Jaw       `json:"jaw"`
	Bank0              []float64 `json:"bank0"`
	Bank1              []float64 `json:"bank1"`
}

// Jaw holds the four jaw positions (mm).
type Jaw struct {
	X1 float64 `json:"x1"`
	X2 float64 `json:"x2"`
	Y1 float64 `json:"y1"`
	Y2 float64 `json:"y2"`
}

// Load reads and validates a plan snapshot from disk.
func Load(path string) (*Plan, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("plan file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat plan file: %w", err)
	}
	const maxFileSize = 32 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("plan file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a plan snapshot.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the plan envelope. Per-beam structural problems are not
// errors at this level: the analysis layer validates each beam so one bad
// beam skips with a reason instead of failing the plan.
func (p *Plan) Validate() error {
	if p.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported plan schema version %d (supported: %d)", p.SchemaVersion, SchemaVersion)
	}
	if p.PlanID == "" {
		return fmt.Errorf("plan has no plan_id")
	}
	if len(p.Beams) == 0 {
		return fmt.Errorf("plan %q has no beams", p.PlanID)
	}
	return nil
}

// Validate checks one beam's structure: a usable meterset, at least one
// control point, consistent bank lengths, a recognized delivery type and a
// monotonic [0,1] meterset-weight sequence.
func (b *Beam) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("beam has no id")
	}
	if math.IsNaN(b.TotalMU) || math.IsInf(b.TotalMU, 0) || b.TotalMU <= 0 {
		return fmt.Errorf("beam %q: total_mu %v is not a finite positive number", b.ID, b.TotalMU)
	}
	if b.DeliveryType != DeliveryStatic && b.DeliveryType != DeliveryDynamic {
		return fmt.Errorf("beam %q: unknown delivery_type %q", b.ID, b.DeliveryType)
	}
	if len(b.ControlPoints) == 0 {
		return fmt.Errorf("beam %q: no control points", b.ID)
	}

	pairCount := len(b.ControlPoints[0].Bank0)
	prev := -1.0
	for i, cp := range b.ControlPoints {
		if len(cp.Bank0) != len(cp.Bank1) {
			return fmt.Errorf("beam %q: control point %d has %d bank0 and %d bank1 positions",
				b.ID, i, len(cp.Bank0), len(cp.Bank1))
		}
		if len(cp.Bank0) != pairCount {
			return fmt.Errorf("beam %q: control point %d has %d leaf pairs, control point 0 has %d",
				b.ID, i, len(cp.Bank0), pairCount)
		}
		w := cp.CumulativeMeterset
		if math.IsNaN(w) || w < 0 || w > 1 {
			return fmt.Errorf("beam %q: control point %d meterset weight %v outside [0,1]", b.ID, i, w)
		}
		if w < prev {
			return fmt.Errorf("beam %q: meterset weight decreases at control point %d (%v after %v)",
				b.ID, i, w, prev)
		}
		prev = w
	}
	return nil
}

// Dynamic reports whether the beam declares rotational delivery.
func (b *Beam) Dynamic() bool {
	return b.DeliveryType == DeliveryDynamic
}

// MLCControlPoints converts the beam's sequence into the analysis types.
func (b *Beam) MLCControlPoints() []mlc.ControlPoint {
	cps := make([]mlc.ControlPoint, len(b.ControlPoints))
	for i, cp := range b.ControlPoints {
		cps[i] = mlc.ControlPoint{
			Index:          i,
			GantryAngleDeg: cp.GantryAngleDeg,
			MetersetWeight: cp.CumulativeMeterset,
			Jaw: mlc.JawWindow{
				X1: cp.Jaw.X1, X2: cp.Jaw.X2,
				Y1: cp.Jaw.Y1, Y2: cp.Jaw.Y2,
			},
			Bank0: cp.Bank0,
			Bank1: cp.Bank1,
		}
	}
	return cps
}
