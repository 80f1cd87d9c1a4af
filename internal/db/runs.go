package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAmbiguous is returned when a run ID prefix matches more than one run.
var ErrAmbiguous = errors.New("ambiguous run id")

// scanner abstracts *sql.Row and *sql.Rows for scanning a single row.
type scanner interface {
	Scan(dest ...any) error
}

// RunTotals are the counters stored on a run when it finishes.
type RunTotals struct {
	Attachments int
	Bytes       int64
	Workspaces  int
}

const runColumns = `id, started_at, finished_at, output_dir, base_url, status, error, attachments, bytes, workspaces`

// CreateRun inserts a new run in the running state. The run's ID and
// StartedAt are assigned here and written back to run.
func CreateRun(db *sql.DB, run *model.Run) error {
	run.ID = uuid.NewString()
	run.StartedAt = time.Now().UTC().Truncate(time.Second)
	run.Status = model.RunRunning

	_, err := db.Exec(
		`INSERT INTO runs (id, started_at, output_dir, base_url, status)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.Format(time.RFC3339),
		run.OutputDir,
		run.BaseURL,
		string(run.Status),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// FinishRun marks a run completed or failed and stores its totals. A non-nil
// runErr marks the run failed.
func FinishRun(db *sql.DB, id string, totals RunTotals, runErr error) error {
	status := model.RunCompleted
	var msg any
	if runErr != nil {
		status = model.RunFailed
		msg = runErr.Error()
	}
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := db.Exec(
		`UPDATE runs SET finished_at = ?, status = ?, error = ?, attachments = ?, bytes = ?, workspaces = ?
		 WHERE id = ?`,
		now, string(status), msg, totals.Attachments, totals.Bytes, totals.Workspaces, id,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRun retrieves a run by its full ID or by a unique prefix of it, such as
// the short ID shown by the runs listing.
func GetRun(db *sql.DB, id string) (*model.Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	rows, err := db.Query(
		`SELECT `+runColumns+` FROM runs
		 WHERE id = ? OR substr(id, 1, ?) = ?
		 ORDER BY id = ? DESC
		 LIMIT 2`,
		id, len(id), id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	defer rows.Close()

	var found []*model.Run
	for rows.Next() {
		r, err := scanRunFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	switch {
	case len(found) == 0:
		return nil, ErrNotFound
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches more than one run", ErrAmbiguous, id)
	}
}

// ListRuns returns runs newest first. A limit of zero or less returns all runs.
func ListRuns(db *sql.DB, limit int) ([]*model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		r, err := scanRunFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and, through the foreign key, its file records.
func DeleteRun(db *sql.DB, id string) error {
	res, err := db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- helpers ---

func scanRunFrom(s scanner) (*model.Run, error) {
	var r model.Run
	var startedAt string
	var finishedAt, errMsg sql.NullString

	err := s.Scan(
		&r.ID, &startedAt, &finishedAt, &r.OutputDir, &r.BaseURL,
		&r.Status, &errMsg, &r.Attachments, &r.Bytes, &r.Workspaces,
	)
	if err != nil {
		return nil, err
	}
	r.Error = errMsg.String
	if err := model.ValidateRunStatus(r.Status); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	r.StartedAt = t

	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		r.FinishedAt = &t
	}

	return &r, nil
}
