// Package history provides SQLite-backed persistence of compile and clean
// runs, so past results can be listed from the CLI or over MCP.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    tex_file TEXT,
    working_dir TEXT NOT NULL,
    mode TEXT,
    compiler TEXT,
    success BOOLEAN NOT NULL,
    error_count INTEGER DEFAULT 0,
    warning_count INTEGER DEFAULT 0,
    removed_count INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    started_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run kinds.
const (
	KindCompile = "compile"
	KindClean   = "clean"
)

// Run is one recorded compile or clean invocation.
type Run struct {
	ID           string
	Kind         string
	TexFile      string
	WorkingDir   string
	Mode         string
	Compiler     string
	Success      bool
	ErrorCount   int
	WarningCount int
	RemovedCount int
	DurationMs   int64
	StartedAt    time.Time
}

// Store provides SQLite-backed run persistence
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a run. A missing ID or start time is filled in.
func (s *Store) Record(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (id, kind, tex_file, working_dir, mode, compiler, success,
			error_count, warning_count, removed_count, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.TexFile, run.WorkingDir, run.Mode, run.Compiler,
		run.Success, run.ErrorCount, run.WarningCount, run.RemovedCount,
		run.DurationMs, run.StartedAt,
	)
	return err
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, tex_file, working_dir, mode, compiler, success,
			error_count, warning_count, removed_count, duration_ms, started_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ID, &run.Kind, &run.TexFile, &run.WorkingDir,
			&run.Mode, &run.Compiler, &run.Success, &run.ErrorCount,
			&run.WarningCount, &run.RemovedCount, &run.DurationMs, &run.StartedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
