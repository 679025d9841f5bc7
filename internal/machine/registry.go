package machine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kestrel-data/aperture.report/internal/mlc"
)

// Registry resolves MLC model names and treatment unit identifiers to their
// geometry and limits. Lookups on unknown names report ok=false instead of
// failing; the analysis layer degrades those beams rather than aborting the
// plan.
type Registry struct {
	models map[string][]mlc.LeafPair
	units  map[string]mlc.SpeedLimits
}

// NewRegistry returns a registry preloaded with the compiled-in tables.
func NewRegistry() *Registry {
	return &Registry{
		models: builtinModels(),
		units:  builtinUnits(),
	}
}

// LeafPairs returns the leaf geometry for an MLC model. The returned slice is
// the caller's to keep.
func (r *Registry) LeafPairs(model string) ([]mlc.LeafPair, bool) {
	pairs, ok := r.models[model]
	if !ok {
		return nil, false
	}
	out := make([]mlc.LeafPair, len(pairs))
	copy(out, pairs)
	return out, true
}

// Limits returns the axis limits for a treatment unit.
func (r *Registry) Limits(unit string) (mlc.SpeedLimits, bool) {
	limits, ok := r.units[unit]
	return limits, ok
}

// MLCModels returns the known model names, sorted.
func (r *Registry) MLCModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TreatmentUnits returns the known unit identifiers, sorted.
func (r *Registry) TreatmentUnits() []string {
	names := make([]string, 0, len(r.units))
	for name := range r.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// leafPairJSON mirrors mlc.LeafPair in the overrides file.
type leafPairJSON struct {
	CenterY float64 `json:"center_y"`
	Width   float64 `json:"width"`
}

// unitJSON holds one treatment unit's limits in the overrides file.
type unitJSON struct {
	MaxGantrySpeed float64 `json:"max_gantry_speed_deg_s"`
	MaxDoseRate    float64 `json:"max_dose_rate_mu_min"`
}

// overrides is the JSON schema for extending the catalog. Entries with names
// matching a built-in replace it; new names are added.
type overrides struct {
	MLCModels      map[string][]leafPairJSON `json:"mlc_models,omitempty"`
	TreatmentUnits map[string]unitJSON       `json:"treatment_units,omitempty"`
}

// LoadOverrides merges machine definitions from a JSON file into the
// registry. Partial files are fine: either section may be omitted.
func (r *Registry) LoadOverrides(path string) error {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return fmt.Errorf("machine overrides file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to stat machine overrides file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return fmt.Errorf("machine overrides file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read machine overrides file: %w", err)
	}

	var ov overrides
	if err := json.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("failed to parse machine overrides JSON: %w", err)
	}

	for name, pairs := range ov.MLCModels {
		leaves, err := validateModel(name, pairs)
		if err != nil {
			return err
		}
		r.models[name] = leaves
	}
	for name, unit := range ov.TreatmentUnits {
		if unit.MaxGantrySpeed <= 0 || unit.MaxDoseRate <= 0 {
			return fmt.Errorf("treatment unit %q: limits must be positive, got %v deg/s, %v MU/min",
				name, unit.MaxGantrySpeed, unit.MaxDoseRate)
		}
		r.units[name] = mlc.SpeedLimits{
			MaxGantrySpeed: unit.MaxGantrySpeed,
			MaxDoseRate:    unit.MaxDoseRate,
		}
	}
	return nil
}

// validateModel checks an override model's geometry: at least one pair,
// positive widths, bands ordered by center.
func validateModel(name string, pairs []leafPairJSON) ([]mlc.LeafPair, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("mlc model %q: no leaf pairs", name)
	}
	leaves := make([]mlc.LeafPair, len(pairs))
	for i, p := range pairs {
		if p.Width <= 0 {
			return nil, fmt.Errorf("mlc model %q: pair %d has non-positive width %v", name, i, p.Width)
		}
		if i > 0 && p.CenterY <= pairs[i-1].CenterY {
			return nil, fmt.Errorf("mlc model %q: pair %d out of order (center %v after %v)",
				name, i, p.CenterY, pairs[i-1].CenterY)
		}
		leaves[i] = mlc.LeafPair{CenterY: p.CenterY, Width: p.Width}
	}
	return leaves, nil
}
