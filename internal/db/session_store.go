package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is one annotation session over a training-data zarr store.
type Session struct {
	ID         string    `json:"id"`
	ZarrPath   string    `json:"zarr_path"`
	ClassNames []string  `json:"class_names"`
	NumItems   int       `json:"num_items"`
	CreatedAt  time.Time `json:"created_at"`
}

// OpenSession returns the session for a zarr store, creating it on first
// use. Reopening the same store resumes the existing session with its
// labels intact.
func (db *DB) OpenSession(zarrPath string, classNames []string, numItems int) (*Session, error) {
	if existing, err := db.sessionByPath(zarrPath); err == nil {
		return existing, nil
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	classJSON, err := json.Marshal(classNames)
	if err != nil {
		return nil, fmt.Errorf("failed to encode class names: %w", err)
	}
	session := &Session{
		ID:         uuid.New().String(),
		ZarrPath:   zarrPath,
		ClassNames: classNames,
		NumItems:   numItems,
	}
	_, err = db.Exec(
		`INSERT INTO sessions (id, zarr_path, class_names, num_items) VALUES (?, ?, ?, ?)`,
		session.ID, session.ZarrPath, string(classJSON), session.NumItems,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (db *DB) sessionByPath(zarrPath string) (*Session, error) {
	var session Session
	var classJSON, createdAt string
	err := db.QueryRow(
		`SELECT id, zarr_path, class_names, num_items, created_at
		 FROM sessions WHERE zarr_path = ?`, zarrPath,
	).Scan(&session.ID, &session.ZarrPath, &classJSON, &session.NumItems, &createdAt)
	if err != nil {
		return nil, err
	}
	session.CreatedAt = parseTimestamp(createdAt)
	if err := json.Unmarshal([]byte(classJSON), &session.ClassNames); err != nil {
		return nil, fmt.Errorf("failed to decode class names: %w", err)
	}
	return &session, nil
}

// SetItemLabels replaces the class set of one item. Saving the same labels
// twice leaves the database unchanged.
func (db *DB) SetItemLabels(sessionID string, itemIndex int, classes []int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM labels WHERE session_id = ? AND item_index = ?`,
		sessionID, itemIndex,
	); err != nil {
		return fmt.Errorf("failed to clear labels: %w", err)
	}
	for _, class := range classes {
		if _, err := tx.Exec(
			`INSERT INTO labels (session_id, item_index, class) VALUES (?, ?, ?)`,
			sessionID, itemIndex, class,
		); err != nil {
			return fmt.Errorf("failed to insert label: %w", err)
		}
	}
	return tx.Commit()
}

// ItemLabels returns the class set of one item, in ascending order. An
// unlabeled item returns an empty slice.
func (db *DB) ItemLabels(sessionID string, itemIndex int) ([]int, error) {
	rows, err := db.Query(
		`SELECT class FROM labels WHERE session_id = ? AND item_index = ? ORDER BY class`,
		sessionID, itemIndex,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	classes := []int{}
	for rows.Next() {
		var class int
		if err := rows.Scan(&class); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		classes = append(classes, class)
	}
	return classes, rows.Err()
}

// AllLabels returns every labeled item of a session as index -> classes.
func (db *DB) AllLabels(sessionID string) (map[int][]int, error) {
	rows, err := db.Query(
		`SELECT item_index, class FROM labels WHERE session_id = ? ORDER BY item_index, class`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	out := map[int][]int{}
	for rows.Next() {
		var idx, class int
		if err := rows.Scan(&idx, &class); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		out[idx] = append(out[idx], class)
	}
	return out, rows.Err()
}

// Progress returns how many items of a session carry at least one label.
func (db *DB) Progress(sessionID string) (labeled int, err error) {
	err = db.QueryRow(
		`SELECT COUNT(DISTINCT item_index) FROM labels WHERE session_id = ?`,
		sessionID,
	).Scan(&labeled)
	if err != nil {
		return 0, fmt.Errorf("failed to count labeled items: %w", err)
	}
	return labeled, nil
}
