package db

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kestrel-data/aperture.report/internal/analysis"
	"github.com/kestrel-data/aperture.report/internal/complexity"
	"github.com/kestrel-data/aperture.report/internal/mlc"
)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()

	db := newTestDB(t)
	if err := db.MigrateUp(testMigrationsDir); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return NewRunStore(db)
}

func sampleSummary(planMU float64) complexity.Summary {
	return complexity.Summary{
		PlanMU:                       planMU,
		TotalTime:                    12.5,
		MUPerDose:                    planMU / 2,
		TotalApertureMU:              planMU,
		AverageApertureCount:         1,
		ApertureJawAreaRatio:         0.4,
		PerimeterAreaRatioPooled:     0.1,
		PerimeterAreaRatioAveraged:   0.12,
		EdgeAreaRatioPerControlPoint: 0.05,
		EdgeAreaRatioPooled:          0.05,
		EquivalentSquareLength:       40,
		AverageApertureArea:          1600,
		AreaSkewness:                 0.3,
		AverageClosedLeafGap:         5,
		AverageLeafSpeed:             2.5,
		AverageGantryAcceleration:    1.2,
		Histogram:                    map[int]float64{1000: 0.25, 2000: 0.75},
	}
}

func sampleRun() *Run {
	return &Run{
		PlanID:           "PLN-0042",
		PlanFile:         "testdata/plan.json",
		PrescribedDoseGy: 2,
		BinSize:          500,
		BeamCount:        2,
		Summary:          sampleSummary(200),
		Skipped: []analysis.SkippedBeam{
			{BeamID: "arc-3", Reason: "total_mu 0 is not a finite positive number"},
		},
		Beams: []RunBeam{
			{
				BeamIndex: 0,
				BeamID:    "arc-1",
				TotalMU:   120,
				TotalTime: 7.5,
				Summary:   sampleSummary(120),
				Dynamics: []mlc.DynamicControlPoint{
					{IntervalIndex: 0, IntervalMU: 120, Duration: 7.5, GantrySpeed: 0.8, DoseRate: 600, AvgLeafSpeed: 1.5, LimitedBy: mlc.LimitDoseRate},
				},
			},
			{
				BeamIndex: 1,
				BeamID:    "arc-2",
				TotalMU:   80,
				TotalTime: 5,
				Summary:   sampleSummary(80),
			},
		},
	}
}

func TestInsertAndGetRun(t *testing.T) {
	store := newTestStore(t)

	run := sampleRun()
	if err := store.InsertRun(run); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if run.RunID == "" {
		t.Fatal("InsertRun left RunID empty")
	}
	if run.CreatedAtNs == 0 {
		t.Error("InsertRun left CreatedAtNs zero")
	}
	for i := range run.Beams {
		if run.Beams[i].RunID != run.RunID {
			t.Errorf("beam %d RunID = %q, want %q", i, run.Beams[i].RunID, run.RunID)
		}
	}

	got, err := store.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("Run mismatch (-want +got):\n%s", diff)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun("no-such-run")
	if err == nil || !strings.Contains(err.Error(), "run not found") {
		t.Errorf("GetRun error = %v, want run not found", err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	store := newTestStore(t)

	older := sampleRun()
	older.CreatedAtNs = 1000
	newer := sampleRun()
	newer.PlanID = "PLN-0043"
	newer.CreatedAtNs = 2000

	if err := store.InsertRun(older); err != nil {
		t.Fatalf("InsertRun older: %v", err)
	}
	if err := store.InsertRun(newer); err != nil {
		t.Fatalf("InsertRun newer: %v", err)
	}

	runs, err := store.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d runs, want 2", len(runs))
	}
	if runs[0].RunID != newer.RunID || runs[1].RunID != older.RunID {
		t.Errorf("ListRuns order = [%s %s], want newest first", runs[0].PlanID, runs[1].PlanID)
	}

	// Listing skips beam rows but still carries the full summary.
	if runs[0].Beams != nil {
		t.Errorf("listed run carries %d beams, want none", len(runs[0].Beams))
	}
	if runs[0].Summary.PlanMU != 200 {
		t.Errorf("listed run PlanMU = %v, want 200", runs[0].Summary.PlanMU)
	}

	limited, err := store.ListRuns(1)
	if err != nil {
		t.Fatalf("ListRuns limit 1: %v", err)
	}
	if len(limited) != 1 || limited[0].RunID != newer.RunID {
		t.Errorf("ListRuns(1) = %v, want only the newest run", limited)
	}
}

func TestDeleteRun(t *testing.T) {
	store := newTestStore(t)

	run := sampleRun()
	if err := store.InsertRun(run); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	if err := store.DeleteRun(run.RunID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}

	if _, err := store.GetRun(run.RunID); err == nil {
		t.Error("GetRun succeeded after delete")
	}
	beams, err := store.RunBeams(run.RunID)
	if err != nil {
		t.Fatalf("RunBeams after delete: %v", err)
	}
	if len(beams) != 0 {
		t.Errorf("RunBeams after delete returned %d rows, want 0", len(beams))
	}

	if err := store.DeleteRun(run.RunID); err == nil || !strings.Contains(err.Error(), "run not found") {
		t.Errorf("second DeleteRun error = %v, want run not found", err)
	}
}

func TestRunFromResult(t *testing.T) {
	rec := &mlc.BeamRecord{
		ID:        "arc-1",
		TotalMU:   100,
		TotalTime: 5,
		DynamicControlPoints: []mlc.DynamicControlPoint{
			{IntervalIndex: 0, IntervalMU: 100, Duration: 5, GantrySpeed: 0.2, DoseRate: 600, LimitedBy: mlc.LimitDoseRate},
		},
	}
	res := &analysis.Result{
		PlanID:           "PLN-0042",
		PrescribedDoseGy: 2,
		BinSize:          500,
		Summary:          sampleSummary(100),
		Beams:            []*mlc.BeamRecord{rec},
		BeamSummaries:    []complexity.Summary{sampleSummary(100)},
		Skipped:          []analysis.SkippedBeam{{BeamID: "arc-2", Reason: "bad"}},
	}

	run := RunFromResult(res, "plans/a.json")

	if run.PlanID != "PLN-0042" || run.PlanFile != "plans/a.json" {
		t.Errorf("run identity = %q %q, want PLN-0042 plans/a.json", run.PlanID, run.PlanFile)
	}
	if run.BeamCount != 1 || len(run.Beams) != 1 {
		t.Fatalf("beam count = %d (%d rows), want 1", run.BeamCount, len(run.Beams))
	}
	beam := run.Beams[0]
	if beam.BeamID != "arc-1" || beam.TotalMU != 100 || beam.TotalTime != 5 {
		t.Errorf("beam row = %+v, want arc-1 with 100 MU over 5 s", beam)
	}
	if len(beam.Dynamics) != 1 || beam.Dynamics[0].DoseRate != 600 {
		t.Errorf("beam dynamics = %+v, want the record's interval", beam.Dynamics)
	}
	if len(run.Skipped) != 1 {
		t.Errorf("run skipped = %v, want the result's skip carried over", run.Skipped)
	}
}
