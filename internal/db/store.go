package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/ccnfit/internal/pipeline"
	"github.com/banshee-data/ccnfit/internal/sigmoid"
)

var (
	ErrRunNotFound    = errors.New("run not found")
	ErrFitNotFound    = errors.New("fit not found")
	ErrDuplicateIndex = errors.New("duplicate scan index")
)

// Run is one batch run: the tuning it used and the batch reference shift.
type Run struct {
	ID             string
	Version        string
	Tuning         json.RawMessage
	ReferenceShift *int // nil until the run is recorded, or when no scan gave a usable shift
	CreatedAt      time.Time
}

// ScanRecord is the stored outcome of one scan.
type ScanRecord struct {
	RunID       string
	ScanIndex   int
	Shift       int
	Messages    []string
	Attempts    int
	Status      pipeline.StatusCode
	Valid       bool
	Description string
	Outlier     bool
}

// FitRecord is one stored logistic fit.
type FitRecord struct {
	RunID     string
	ScanIndex int
	Peak      int
	Params    sigmoid.Params
	Dp50      float64
	Region    sigmoid.Region
}

// CreateRun inserts a new run and returns its identifier.
func (db *DB) CreateRun(version string, tuning []byte) (string, error) {
	if len(tuning) == 0 {
		tuning = []byte("{}")
	}
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO runs (run_id, version, tuning_json, created_unix_nano) VALUES (?, ?, ?, ?)`,
		id, version, string(tuning), time.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// GetRun returns the run with the given id.
func (db *DB) GetRun(runID string) (Run, error) {
	var (
		r       Run
		tuning  string
		ref     sql.NullInt64
		created int64
	)
	err := db.QueryRow(
		`SELECT run_id, version, tuning_json, reference_shift, created_unix_nano FROM runs WHERE run_id = ?`,
		runID,
	).Scan(&r.ID, &r.Version, &tuning, &ref, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	r.Tuning = json.RawMessage(tuning)
	if ref.Valid {
		v := int(ref.Int64)
		r.ReferenceShift = &v
	}
	r.CreatedAt = time.Unix(0, created)
	return r, nil
}

// RecordReport stores every outcome of a batch and the batch reference
// shift in one transaction. Scan indices must be unique within the report.
func (db *DB) RecordReport(runID string, rep *pipeline.Report) error {
	seen := make(map[int]bool, len(rep.Outcomes))
	for _, o := range rep.Outcomes {
		if seen[o.Index] {
			return fmt.Errorf("%w: %d", ErrDuplicateIndex, o.Index)
		}
		seen[o.Index] = true
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var ref interface{}
	if rep.ReferenceShiftOK {
		ref = rep.ReferenceShift
	}
	res, err := tx.Exec(`UPDATE runs SET reference_shift = ? WHERE run_id = ?`, ref, runID)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	for _, o := range rep.Outcomes {
		if err := recordOutcome(tx, runID, o); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	storeLog("run %s: recorded %d scans", runID, len(rep.Outcomes))
	return nil
}

// RecordOutcome stores a single scan outcome and its fits.
func (db *DB) RecordOutcome(runID string, o pipeline.Outcome) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := recordOutcome(tx, runID, o); err != nil {
		return err
	}
	return tx.Commit()
}

func recordOutcome(tx *sql.Tx, runID string, o pipeline.Outcome) error {
	messages := o.ShiftMessages
	if messages == nil {
		messages = []string{}
	}
	msgJSON, err := json.Marshal(messages)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO scans (
			run_id, scan_index, shift, shift_messages, attempts,
			status_code, status_valid, status_description, outlier
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, scan_index) DO UPDATE SET
			shift = excluded.shift,
			shift_messages = excluded.shift_messages,
			attempts = excluded.attempts,
			status_code = excluded.status_code,
			status_valid = excluded.status_valid,
			status_description = excluded.status_description,
			outlier = excluded.outlier`,
		runID, o.Index, o.Shift, string(msgJSON), o.Attempts,
		int(o.Status.Code), o.Status.Valid, o.Status.Description, o.Outlier,
	)
	if err != nil {
		return fmt.Errorf("failed to record scan %d: %w", o.Index, err)
	}

	if _, err := tx.Exec(`DELETE FROM fits WHERE run_id = ? AND scan_index = ?`, runID, o.Index); err != nil {
		return fmt.Errorf("failed to clear fits of scan %d: %w", o.Index, err)
	}
	for peak, r := range o.Fit.Results {
		_, err := tx.Exec(`
			INSERT INTO fits (
				run_id, scan_index, peak, x0, curve_max, k, y0, dp50,
				region_peak, region_left, region_right
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, o.Index, peak, r.Params.X0, r.Params.CurveMax, r.Params.K, r.Params.Y0, r.Dp50,
			r.Region.Peak, r.Region.Left, r.Region.Right,
		)
		if err != nil {
			return fmt.Errorf("failed to record fit %d of scan %d: %w", peak, o.Index, err)
		}
	}
	return nil
}

// ListScans returns the stored scans of a run ordered by scan index.
func (db *DB) ListScans(runID string) ([]ScanRecord, error) {
	rows, err := db.Query(`
		SELECT run_id, scan_index, shift, shift_messages, attempts,
		       status_code, status_valid, status_description, outlier
		FROM scans WHERE run_id = ? ORDER BY scan_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var (
			s        ScanRecord
			messages string
			code     int
		)
		if err := rows.Scan(&s.RunID, &s.ScanIndex, &s.Shift, &messages, &s.Attempts,
			&code, &s.Valid, &s.Description, &s.Outlier); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(messages), &s.Messages); err != nil {
			return nil, fmt.Errorf("scan %d: bad shift messages: %w", s.ScanIndex, err)
		}
		s.Status = pipeline.StatusCode(code)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListFits returns every stored fit of a run ordered by scan and peak.
func (db *DB) ListFits(runID string) ([]FitRecord, error) {
	rows, err := db.Query(`
		SELECT run_id, scan_index, peak, x0, curve_max, k, y0, dp50,
		       region_peak, region_left, region_right
		FROM fits WHERE run_id = ? ORDER BY scan_index, peak`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FitRecord
	for rows.Next() {
		var f FitRecord
		if err := rows.Scan(&f.RunID, &f.ScanIndex, &f.Peak,
			&f.Params.X0, &f.Params.CurveMax, &f.Params.K, &f.Params.Y0, &f.Dp50,
			&f.Region.Peak, &f.Region.Left, &f.Region.Right); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// LoadFitParams returns the stored parameters of one fitted peak.
func (db *DB) LoadFitParams(runID string, scanIndex, peak int) (sigmoid.Params, error) {
	var p sigmoid.Params
	err := db.QueryRow(
		`SELECT x0, curve_max, k, y0 FROM fits WHERE run_id = ? AND scan_index = ? AND peak = ?`,
		runID, scanIndex, peak,
	).Scan(&p.X0, &p.CurveMax, &p.K, &p.Y0)
	if errors.Is(err, sql.ErrNoRows) {
		return sigmoid.Params{}, fmt.Errorf("%w: run %s scan %d peak %d", ErrFitNotFound, runID, scanIndex, peak)
	}
	if err != nil {
		return sigmoid.Params{}, err
	}
	return p, nil
}
