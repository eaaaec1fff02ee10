package pathstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pdrpinto/roboroute"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore keeps the record in a one-row SQLite table so the last path
// survives a relay restart.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens or creates the database at path.
// Use ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection so ":memory:" databases are shared by every query
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS last_path (
			slot INTEGER PRIMARY KEY CHECK (slot = 1),
			id TEXT NOT NULL,
			start_cell TEXT NOT NULL,
			goal_cell TEXT NOT NULL,
			path TEXT NOT NULL,
			heuristic TEXT NOT NULL,
			computed_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, record Record) error {
	start, err := json.Marshal(record.Start)
	if err != nil {
		return fmt.Errorf("encode start: %w", err)
	}
	goal, err := json.Marshal(record.Goal)
	if err != nil {
		return fmt.Errorf("encode goal: %w", err)
	}
	path, err := json.Marshal(record.Path)
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO last_path (slot, id, start_cell, goal_cell, path, heuristic, computed_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			id = excluded.id,
			start_cell = excluded.start_cell,
			goal_cell = excluded.goal_cell,
			path = excluded.path,
			heuristic = excluded.heuristic,
			computed_at = excluded.computed_at
	`, record.ID.String(), string(start), string(goal), string(path),
		string(record.Heuristic), record.ComputedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save path: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, ErrStoreClosed
	}

	var id, start, goal, path, heuristic, computedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, start_cell, goal_cell, path, heuristic, computed_at
		FROM last_path WHERE slot = 1
	`).Scan(&id, &start, &goal, &path, &heuristic, &computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrEmpty
	}
	if err != nil {
		return Record{}, fmt.Errorf("load path: %w", err)
	}

	record := Record{Heuristic: roboroute.HeuristicName(heuristic)}
	if record.ID, err = uuid.Parse(id); err != nil {
		return Record{}, fmt.Errorf("decode id: %w", err)
	}
	if err := json.Unmarshal([]byte(start), &record.Start); err != nil {
		return Record{}, fmt.Errorf("decode start: %w", err)
	}
	if err := json.Unmarshal([]byte(goal), &record.Goal); err != nil {
		return Record{}, fmt.Errorf("decode goal: %w", err)
	}
	if err := json.Unmarshal([]byte(path), &record.Path); err != nil {
		return Record{}, fmt.Errorf("decode path: %w", err)
	}
	if record.ComputedAt, err = time.Parse(time.RFC3339Nano, computedAt); err != nil {
		return Record{}, fmt.Errorf("decode timestamp: %w", err)
	}
	return record, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
