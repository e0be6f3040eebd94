package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded segmentation invocation.
type Run struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // micrograph, slab, tomogram, training
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	Model      string    `json:"model"`
	NumMasks   int       `json:"num_masks"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordRun inserts a run record, assigning a fresh ID when unset.
func (db *DB) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := db.Exec(
		`INSERT INTO runs (id, kind, input, output, model, num_masks, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Input, run.Output, run.Model, run.NumMasks, run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// parseTimestamp decodes the text form sqlite stores for
// CURRENT_TIMESTAMP columns.
func parseTimestamp(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(id string) (*Run, error) {
	var run Run
	var createdAt string
	err := db.QueryRow(
		`SELECT id, kind, input, output, model, num_masks, duration_ms, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Kind, &run.Input, &run.Output, &run.Model,
		&run.NumMasks, &run.DurationMs, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.CreatedAt = parseTimestamp(createdAt)
	return &run, nil
}

// ListRuns returns the most recent runs, newest first. A kind of "" lists
// all kinds.
func (db *DB) ListRuns(kind string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, kind, input, output, model, num_masks, duration_ms, created_at
	          FROM runs`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt string
		if err := rows.Scan(&run.ID, &run.Kind, &run.Input, &run.Output, &run.Model,
			&run.NumMasks, &run.DurationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.CreatedAt = parseTimestamp(createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
