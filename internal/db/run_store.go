package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-data/aperture.report/internal/analysis"
	"github.com/kestrel-data/aperture.report/internal/complexity"
	"github.com/kestrel-data/aperture.report/internal/mlc"
)

// ErrRunNotFound is returned when a run ID has no stored row.
var ErrRunNotFound = errors.New("run not found")

// Run is one persisted plan analysis: the aggregate complexity summary plus
// one RunBeam per analyzed beam.
type Run struct {
	RunID            string                 `json:"run_id"`
	PlanID           string                 `json:"plan_id"`
	PlanFile         string                 `json:"plan_file,omitempty"`
	PrescribedDoseGy float64                `json:"prescribed_dose_gy"`
	BinSize          int                    `json:"bin_size"`
	BeamCount        int                    `json:"beam_count"`
	Summary          complexity.Summary     `json:"summary"`
	Skipped          []analysis.SkippedBeam `json:"skipped,omitempty"`
	Beams            []RunBeam              `json:"beams,omitempty"`
	CreatedAtNs      int64                  `json:"created_at_ns"`
}

// RunBeam is one beam's metrics within a run. Dynamics carries the reconciled
// per-interval delivery profile so charts can render from storage.
type RunBeam struct {
	RunID     string                    `json:"run_id"`
	BeamIndex int                       `json:"beam_index"`
	BeamID    string                    `json:"beam_id"`
	TotalMU   float64                   `json:"total_mu"`
	TotalTime float64                   `json:"total_time_s"`
	Summary   complexity.Summary        `json:"summary"`
	Dynamics  []mlc.DynamicControlPoint `json:"dynamics,omitempty"`
}

// RunFromResult shapes an analysis result for persistence. planFile records
// where the plan was read from and may be empty.
func RunFromResult(res *analysis.Result, planFile string) *Run {
	run := &Run{
		PlanID:           res.PlanID,
		PlanFile:         planFile,
		PrescribedDoseGy: res.PrescribedDoseGy,
		BinSize:          res.BinSize,
		BeamCount:        len(res.Beams),
		Summary:          res.Summary,
		Skipped:          res.Skipped,
	}
	for i, rec := range res.Beams {
		run.Beams = append(run.Beams, RunBeam{
			BeamIndex: i,
			BeamID:    rec.ID,
			TotalMU:   rec.TotalMU,
			TotalTime: rec.TotalTime,
			Summary:   res.BeamSummaries[i],
			Dynamics:  rec.DynamicControlPoints,
		})
	}
	return run
}

// RunStore provides persistence for analysis runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

// InsertRun writes a run and its beam rows in one transaction.
// If run.RunID is empty, a new UUID is generated.
func (s *RunStore) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = time.Now().UnixNano()
	}

	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	var skippedJSON string
	if len(run.Skipped) > 0 {
		b, err := json.Marshal(run.Skipped)
		if err != nil {
			return fmt.Errorf("marshal skipped beams: %w", err)
		}
		skippedJSON = string(b)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			run_id, plan_id, plan_file, prescribed_dose_gy, bin_size, beam_count,
			plan_mu, total_time_s, mu_per_dose, equivalent_square_mm,
			summary_json, skipped_json, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.PlanID,
		nullString(run.PlanFile),
		run.PrescribedDoseGy,
		run.BinSize,
		run.BeamCount,
		run.Summary.PlanMU,
		run.Summary.TotalTime,
		run.Summary.MUPerDose,
		run.Summary.EquivalentSquareLength,
		string(summaryJSON),
		nullString(skippedJSON),
		run.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i := range run.Beams {
		beam := &run.Beams[i]
		beam.RunID = run.RunID

		beamSummaryJSON, err := json.Marshal(beam.Summary)
		if err != nil {
			return fmt.Errorf("marshal beam %s summary: %w", beam.BeamID, err)
		}
		var dynamicsJSON string
		if len(beam.Dynamics) > 0 {
			b, err := json.Marshal(beam.Dynamics)
			if err != nil {
				return fmt.Errorf("marshal beam %s dynamics: %w", beam.BeamID, err)
			}
			dynamicsJSON = string(b)
		}

		_, err = tx.Exec(`
			INSERT INTO beam_metrics (
				run_id, beam_index, beam_id, total_mu, total_time_s,
				summary_json, dynamics_json
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			beam.RunID,
			beam.BeamIndex,
			beam.BeamID,
			beam.TotalMU,
			beam.TotalTime,
			string(beamSummaryJSON),
			nullString(dynamicsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert beam %s: %w", beam.BeamID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert run: %w", err)
	}

	return nil
}

// GetRun retrieves a run with its beam rows.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	run, err := s.scanRun(s.db.QueryRow(`
		SELECT run_id, plan_id, plan_file, prescribed_dose_gy, bin_size, beam_count,
		       summary_json, skipped_json, created_at_ns
		FROM runs
		WHERE run_id = ?
	`, runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	beams, err := s.RunBeams(runID)
	if err != nil {
		return nil, err
	}
	run.Beams = beams

	return run, nil
}

// ListRuns retrieves up to limit runs, newest first, without their beam rows.
func (s *RunStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT run_id, plan_id, plan_file, prescribed_dose_gy, bin_size, beam_count,
		       summary_json, skipped_json, created_at_ns
		FROM runs
		ORDER BY created_at_ns DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := s.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}

	return runs, nil
}

// RunBeams retrieves the beam rows of a run in beam order.
func (s *RunStore) RunBeams(runID string) ([]RunBeam, error) {
	rows, err := s.db.Query(`
		SELECT run_id, beam_index, beam_id, total_mu, total_time_s,
		       summary_json, dynamics_json
		FROM beam_metrics
		WHERE run_id = ?
		ORDER BY beam_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get run beams: %w", err)
	}
	defer rows.Close()

	var beams []RunBeam
	for rows.Next() {
		var beam RunBeam
		var summaryJSON string
		var dynamicsJSON sql.NullString

		if err := rows.Scan(
			&beam.RunID,
			&beam.BeamIndex,
			&beam.BeamID,
			&beam.TotalMU,
			&beam.TotalTime,
			&summaryJSON,
			&dynamicsJSON,
		); err != nil {
			return nil, fmt.Errorf("scan beam row: %w", err)
		}

		if err := json.Unmarshal([]byte(summaryJSON), &beam.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal beam %s summary: %w", beam.BeamID, err)
		}
		if dynamicsJSON.Valid && dynamicsJSON.String != "" {
			if err := json.Unmarshal([]byte(dynamicsJSON.String), &beam.Dynamics); err != nil {
				return nil, fmt.Errorf("unmarshal beam %s dynamics: %w", beam.BeamID, err)
			}
		}

		beams = append(beams, beam)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run beams rows: %w", err)
	}

	return beams, nil
}

// DeleteRun deletes a run and its beam rows.
func (s *RunStore) DeleteRun(runID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM beam_metrics WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run beams: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return tx.Commit()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *RunStore) scanRun(row rowScanner) (*Run, error) {
	var run Run
	var planFile, skippedJSON sql.NullString
	var summaryJSON string

	if err := row.Scan(
		&run.RunID,
		&run.PlanID,
		&planFile,
		&run.PrescribedDoseGy,
		&run.BinSize,
		&run.BeamCount,
		&summaryJSON,
		&skippedJSON,
		&run.CreatedAtNs,
	); err != nil {
		return nil, err
	}

	if planFile.Valid {
		run.PlanFile = planFile.String
	}
	if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal run summary: %w", err)
	}
	if skippedJSON.Valid && skippedJSON.String != "" {
		if err := json.Unmarshal([]byte(skippedJSON.String), &run.Skipped); err != nil {
			return nil, fmt.Errorf("unmarshal skipped beams: %w", err)
		}
	}

	return &run, nil
}

// nullString converts empty strings to nil for SQL storage.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
