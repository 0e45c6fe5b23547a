// Package journal records provisioning runs and their stages in a local
// SQLite database, so operators can see what previous runs did.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/hostforge/hostforge/internal/provisioning"
)

// Stage results.
const (
	ResultRunning   = "running"
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
)

// Journal is an open run database.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time // zero while running or after a crash
	State       string
	FailedStage string
	FailureKind string
	Error       string
	Version     string
}

// Duration returns the run length, or zero for unfinished runs.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StageRecord is one row of the stages table.
type StageRecord struct {
	Stage     string
	StartedAt time.Time
	Duration  time.Duration
	Result    string
	Error     string
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Begin inserts a running run and returns its recorder.
func (j *Journal) Begin(ctx context.Context, id, version string, log logr.Logger) (*Run, error) {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, state, version) VALUES (?, ?, ?, ?)`,
		id, j.now().UnixMilli(), provisioning.StageStart.String(), version)
	if err != nil {
		return nil, fmt.Errorf("failed to record run %s: %w", id, err)
	}
	return &Run{journal: j, id: id, log: log}, nil
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, state, failed_stage, failure_kind, error, version
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		var (
			r        RunRecord
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.State, &r.FailedStage, &r.FailureKind, &r.Error, &r.Version); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			r.FinishedAt = time.UnixMilli(finished.Int64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stages returns the stage rows of a run in execution order.
func (j *Journal) Stages(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT stage, started_at, duration_ms, result, error
		FROM stages WHERE run_id = ? ORDER BY started_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StageRecord
	for rows.Next() {
		var (
			s        StageRecord
			started  int64
			duration sql.NullInt64
		)
		if err := rows.Scan(&s.Stage, &started, &duration, &s.Result, &s.Error); err != nil {
			return nil, err
		}
		s.StartedAt = time.UnixMilli(started)
		if duration.Valid {
			s.Duration = time.Duration(duration.Int64) * time.Millisecond
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Run records one provisioning run. It implements provisioning.Recorder.
type Run struct {
	journal *Journal
	id      string
	log     logr.Logger
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// StageStarted implements provisioning.Recorder.
func (r *Run) StageStarted(stage provisioning.Stage) {
	r.exec(`INSERT OR REPLACE INTO stages (run_id, stage, started_at, result) VALUES (?, ?, ?, ?)`,
		r.id, stage.String(), r.journal.now().UnixMilli(), ResultRunning)
	r.exec(`UPDATE runs SET state = ? WHERE id = ?`, stage.String(), r.id)
}

// StageFinished implements provisioning.Recorder.
func (r *Run) StageFinished(stage provisioning.Stage, elapsed time.Duration, err error) {
	result, msg := ResultSucceeded, ""
	if err != nil {
		result, msg = ResultFailed, err.Error()
	}
	r.exec(`UPDATE stages SET duration_ms = ?, result = ?, error = ? WHERE run_id = ? AND stage = ?`,
		elapsed.Milliseconds(), result, msg, r.id, stage.String())
}

// Finish stores the terminal state of the run.
func (r *Run) Finish(ctx context.Context, state provisioning.Stage, runErr error) error {
	var failedStage, kind, msg string
	if runErr != nil {
		msg = runErr.Error()
		kind = provisioning.KindOf(runErr).String()
		var se *provisioning.StageError
		if errors.As(runErr, &se) {
			failedStage = se.Location()
		}
	}
	_, err := r.journal.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, state = ?, failed_stage = ?, failure_kind = ?, error = ?
		WHERE id = ?`,
		r.journal.now().UnixMilli(), state.String(), failedStage, kind, msg, r.id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", r.id, err)
	}
	return nil
}

// exec runs a write for the Recorder callbacks, which cannot return errors.
func (r *Run) exec(query string, args ...any) {
	if _, err := r.journal.db.Exec(query, args...); err != nil {
		r.log.Error(err, "journal write failed", "run", r.id)
	}
}
