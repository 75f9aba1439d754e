// Package history keeps a SQLite ledger of finished jobs so their outcome can
// be looked up after the triggering request has returned.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database connectivity
)

// ErrNotFound is returned by Get for an unknown job ID.
var ErrNotFound = errors.New("job not found")

// Entry is the recorded outcome of one job.
type Entry struct {
	JobID          string    `json:"jobId"`
	SourceBucket   string    `json:"bucket"`
	SourceObject   string    `json:"name"`
	OutputBucket   string    `json:"outputBucket"`
	SourceLanguage string    `json:"sourceLanguage,omitempty"`
	State          string    `json:"state"`
	OutputFiles    []string  `json:"outputFiles"`
	Error          string    `json:"error,omitempty"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// Store persists entries in SQLite.
type Store struct {
	DB   *sql.DB
	mu   sync.RWMutex
	path string
}

// Open opens or creates the ledger at dbPath. ":memory:" keeps it in memory.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("history database path is required")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "." && dir != "/" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	s := &Store{DB: db, path: dbPath}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS jobs (
		job_id TEXT PRIMARY KEY,
		entry TEXT NOT NULL,
		state TEXT NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_finished_at ON jobs(finished_at);
	`
	_, err := s.DB.ExecContext(context.Background(), query)
	return err
}

// Record inserts or replaces the entry for e.JobID.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now().UTC()
	}
	if e.OutputFiles == nil {
		e.OutputFiles = []string{}
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO jobs (job_id, entry, state, finished_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(job_id) DO UPDATE SET
		entry = excluded.entry,
		state = excluded.state,
		finished_at = excluded.finished_at
	`
	_, err = s.DB.ExecContext(ctx, query, e.JobID, string(payload), e.State, e.FinishedAt)
	return err
}

// Get returns the entry for jobID.
func (s *Store) Get(ctx context.Context, jobID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.DB.QueryRowContext(ctx, "SELECT entry FROM jobs WHERE job_id = ?", jobID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("query job %s: %w", jobID, err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Entry{}, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.DB.QueryContext(ctx, "SELECT entry FROM jobs ORDER BY finished_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query recent jobs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.DB.Close(); err != nil {
		return fmt.Errorf("close history %s: %w", s.path, err)
	}
	return nil
}

// Path returns the database location the store was opened with.
func (s *Store) Path() string {
	return s.path
}
