// Package mlc reconstructs multi-leaf collimator (MLC) apertures and delivery
// dynamics from radiotherapy beam control-point sequences. All exported
// functions are pure: they read immutable inputs and return freshly allocated
// results, so callers may analyze beams from many plans concurrently without
// locking.
package mlc

// LeafPair describes the beam's-eye-view band covered by one opposing pair of
// MLC leaves. Pairs within a model are ordered by CenterY.
type LeafPair struct {
	CenterY float64 // Band center along the Y axis (mm)
	Width   float64 // Leaf width along the Y axis (mm)
}

// JawWindow is the rectangular field boundary set by the X and Y jaws at one
// control point. X2>X1 and Y2>Y1 when the window is meaningful; a degenerate
// window simply leaves no leaf pair eligible.
type JawWindow struct {
	X1 float64 `json:"x1"` // Negative-side X jaw position (mm)
	X2 float64 `json:"x2"` // Positive-side X jaw position (mm)
	Y1 float64 `json:"y1"` // Negative-side Y jaw position (mm)
	Y2 float64 `json:"y2"` // Positive-side Y jaw position (mm)
}

// Width returns the jaw opening along X (mm).
func (j JawWindow) Width() float64 { return j.X2 - j.X1 }

// Height returns the jaw opening along Y (mm).
func (j JawWindow) Height() float64 { return j.Y2 - j.Y1 }

// Area returns the jaw window area (mm^2).
func (j JawWindow) Area() float64 { return j.Width() * j.Height() }

// Perimeter returns the jaw window boundary length (mm).
func (j JawWindow) Perimeter() float64 { return 2 * (j.Width() + j.Height()) }

// ControlPoint is one geometry snapshot in a beam's delivery sequence.
type ControlPoint struct {
	Index          int       // Position within the beam sequence
	GantryAngleDeg float64   // Gantry angle (deg)
	MetersetWeight float64   // Cumulative fraction of beam MU delivered (0..1)
	Jaw            JawWindow // Jaw window at this snapshot
	Bank0          []float64 // Negative-side leaf tip X positions (mm), one per pair
	Bank1          []float64 // Positive-side leaf tip X positions (mm), one per pair
}

// Aperture is one contiguous MLC opening spanning one or more adjacent leaf
// pairs at a single control point.
type Aperture struct {
	Area       float64 `json:"area_mm2"`       // Open area (mm^2), always > 0 for an emitted aperture
	Perimeter  float64 `json:"perimeter_mm"`   // Boundary length of the opening (mm)
	EdgeLength float64 `json:"edge_length_mm"` // Leaf-defined portion of the boundary (mm)
}

// ApertureControlPoint annotates one control point with its reconstructed
// apertures and its share of the beam meterset.
type ApertureControlPoint struct {
	Index            int        `json:"index"`
	Jaw              JawWindow  `json:"jaw"`
	JawArea          float64    `json:"jaw_area_mm2"`           // Jaw window area (mm^2)
	JawPerimeter     float64    `json:"jaw_perimeter_mm"`       // Jaw window boundary length (mm)
	IncrementalMU    float64    `json:"incremental_mu"`         // MU attributed to this control point (MU)
	ClosedLeafGapSum float64    `json:"closed_leaf_gap_sum_mm"` // Summed widths of exposed-but-closed leaf pairs (mm)
	Apertures        []Aperture `json:"apertures,omitempty"`
}

// LimitingFactor names the machine constraint that paced a dynamic interval.
type LimitingFactor string

const (
	// LimitGantry marks intervals paced by the maximum gantry speed.
	LimitGantry LimitingFactor = "gantry"

	// LimitDoseRate marks intervals paced by the maximum dose rate.
	LimitDoseRate LimitingFactor = "dose_rate"

	// LimitNone marks degenerate intervals with no rotation and no meterset.
	LimitNone LimitingFactor = "none"
)

// DynamicControlPoint describes reconciled delivery dynamics across the
// interval between two adjacent control points.
type DynamicControlPoint struct {
	IntervalIndex int            `json:"interval_index"`      // Interval i spans control points i and i+1
	IntervalMU    float64        `json:"interval_mu"`         // MU delivered across the interval (MU)
	Duration      float64        `json:"duration_s"`          // Reconciled interval duration (s)
	GantrySpeed   float64        `json:"gantry_speed_deg_s"`  // Effective gantry speed (deg/s)
	DoseRate      float64        `json:"dose_rate_mu_min"`    // Effective dose rate (MU/min)
	AvgLeafSpeed  float64        `json:"avg_leaf_speed_mm_s"` // Width-weighted average leaf speed (mm/s)
	LimitedBy     LimitingFactor `json:"limited_by"`          // Constraint that set Duration
}

// SpeedLimits holds the axis limits of a treatment unit.
type SpeedLimits struct {
	MaxGantrySpeed float64 // Maximum gantry rotation speed (deg/s)
	MaxDoseRate    float64 // Maximum dose rate (MU/min)
}

// Beam is the analysis input for one beam: the delivery sequence plus the
// machine context resolved by the caller. An empty Leaves slice marks the MLC
// model as unknown and a nil Limits marks the treatment unit as unknown;
// analysis degrades to the parts that remain computable instead of failing.
type Beam struct {
	ID            string
	TotalMU       float64 // Beam meterset (MU)
	Dynamic       bool    // Rotational delivery with motion between control points
	Leaves        []LeafPair
	Limits        *SpeedLimits
	ControlPoints []ControlPoint
}

// BeamRecord is the per-beam analysis product consumed by the complexity
// metrics and the reporting layers.
type BeamRecord struct {
	ID                    string                 `json:"id"`
	TotalMU               float64                `json:"total_mu"`     // Beam meterset (MU)
	TotalTime             float64                `json:"total_time_s"` // Reconciled delivery time (s), 0 without dynamics
	ApertureControlPoints []ApertureControlPoint `json:"aperture_control_points,omitempty"`
	DynamicControlPoints  []DynamicControlPoint  `json:"dynamic_control_points,omitempty"`
}
