package mlc

import (
	"math"
	"testing"
)

// arcBeam is a small two-point rotational beam with one open leaf pair.
func arcBeam() Beam {
	jaw := JawWindow{X1: -50, X2: 50, Y1: -10, Y2: 10}
	return Beam{
		ID:      "arc-1",
		TotalMU: 100,
		Dynamic: true,
		Leaves:  []LeafPair{{CenterY: 0, Width: 20}},
		Limits:  &SpeedLimits{MaxGantrySpeed: 4.8, MaxDoseRate: 600},
		ControlPoints: []ControlPoint{
			{Index: 0, GantryAngleDeg: 181, MetersetWeight: 0, Jaw: jaw,
				Bank0: []float64{-30}, Bank1: []float64{30}},
			{Index: 1, GantryAngleDeg: 179, MetersetWeight: 1, Jaw: jaw,
				Bank0: []float64{-30}, Bank1: []float64{30}},
		},
	}
}

func TestAnalyzeBeam(t *testing.T) {
	rec := AnalyzeBeam(arcBeam())

	if rec.ID != "arc-1" || rec.TotalMU != 100 {
		t.Errorf("record header = %q/%v, want arc-1/100", rec.ID, rec.TotalMU)
	}
	if len(rec.ApertureControlPoints) != 2 {
		t.Fatalf("aperture control points = %d, want 2", len(rec.ApertureControlPoints))
	}
	if len(rec.DynamicControlPoints) != 1 {
		t.Fatalf("dynamic control points = %d, want 1", len(rec.DynamicControlPoints))
	}

	// Both control points show the same 60x20 opening; the meterset splits
	// 50/50 under the trapezoidal rule.
	for i, acp := range rec.ApertureControlPoints {
		if acp.IncrementalMU != 50 {
			t.Errorf("control point %d: IncrementalMU = %v, want 50", i, acp.IncrementalMU)
		}
		if len(acp.Apertures) != 1 {
			t.Fatalf("control point %d: aperture count = %d, want 1", i, len(acp.Apertures))
		}
		if acp.Apertures[0].Area != 1200 {
			t.Errorf("control point %d: Area = %v, want 1200", i, acp.Apertures[0].Area)
		}
		if acp.JawArea != 2000 {
			t.Errorf("control point %d: JawArea = %v, want 2000", i, acp.JawArea)
		}
		if acp.JawPerimeter != 240 {
			t.Errorf("control point %d: JawPerimeter = %v, want 240", i, acp.JawPerimeter)
		}
	}

	// 100 MU at 600 MU/min needs 10 s; 2 degrees at 4.8 deg/s needs well
	// under a second, so the dose rate binds.
	d := rec.DynamicControlPoints[0]
	if d.LimitedBy != LimitDoseRate {
		t.Errorf("LimitedBy = %q, want %q", d.LimitedBy, LimitDoseRate)
	}
	if math.Abs(rec.TotalTime-10) > 1e-9 {
		t.Errorf("TotalTime = %v, want 10", rec.TotalTime)
	}
	// 181 -> 179 wraps to a 2 degree rotation in 10 s.
	if math.Abs(d.GantrySpeed-0.2) > 1e-9 {
		t.Errorf("GantrySpeed = %v, want 0.2", d.GantrySpeed)
	}
}

func TestAnalyzeBeam_StaticBeam(t *testing.T) {
	b := arcBeam()
	b.Dynamic = false

	rec := AnalyzeBeam(b)
	if len(rec.DynamicControlPoints) != 0 {
		t.Errorf("static beam produced %d dynamic control points", len(rec.DynamicControlPoints))
	}
	if rec.TotalTime != 0 {
		t.Errorf("TotalTime = %v, want 0", rec.TotalTime)
	}
	if len(rec.ApertureControlPoints) != 2 {
		t.Errorf("aperture control points = %d, want 2", len(rec.ApertureControlPoints))
	}
}

func TestAnalyzeBeam_UnknownMachine(t *testing.T) {
	b := arcBeam()
	b.Limits = nil

	rec := AnalyzeBeam(b)
	if len(rec.DynamicControlPoints) != 0 || rec.TotalTime != 0 {
		t.Errorf("unknown machine should skip reconciliation, got %d intervals, time %v",
			len(rec.DynamicControlPoints), rec.TotalTime)
	}
	// Aperture extraction still runs.
	if len(rec.ApertureControlPoints) != 2 {
		t.Fatalf("aperture control points = %d, want 2", len(rec.ApertureControlPoints))
	}
	if len(rec.ApertureControlPoints[0].Apertures) != 1 {
		t.Errorf("apertures = %d, want 1", len(rec.ApertureControlPoints[0].Apertures))
	}
}

func TestAnalyzeBeam_UnknownMLCModel(t *testing.T) {
	b := arcBeam()
	b.Leaves = nil

	rec := AnalyzeBeam(b)
	if len(rec.ApertureControlPoints) != 2 {
		t.Fatalf("aperture control points = %d, want 2", len(rec.ApertureControlPoints))
	}
	for i, acp := range rec.ApertureControlPoints {
		if len(acp.Apertures) != 0 {
			t.Errorf("control point %d: apertures = %d, want 0", i, len(acp.Apertures))
		}
		if acp.IncrementalMU != 50 {
			t.Errorf("control point %d: IncrementalMU = %v, want 50", i, acp.IncrementalMU)
		}
	}
	// Rate reconciliation still runs on jaw and gantry data alone.
	if len(rec.DynamicControlPoints) != 1 {
		t.Errorf("dynamic control points = %d, want 1", len(rec.DynamicControlPoints))
	}
}
