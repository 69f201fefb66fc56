package state

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// sqliteTimeLayout stores timestamps as fixed-width UTC text so that
// SQLite's date functions can parse them and ORDER BY sorts them
// chronologically.
const sqliteTimeLayout = "2006-01-02 15:04:05.000"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema initializes the database schema.
func (s *SQLiteStore) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// CreateRun records the start of a conversion run.
func (s *SQLiteStore) CreateRun(command string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Command:   command,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, command, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Command, run.Status, run.StartedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with its final status and counts.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, counts RunCounts, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE runs
		 SET status = ?, workbooks = ?, tables_seen = ?, facts = ?,
		     warnings = ?, fatals = ?, completed_at = ?, error = ?
		 WHERE id = ?`,
		status, counts.Workbooks, counts.Tables, counts.Facts,
		counts.Warnings, counts.Fatals, now.Format(sqliteTimeLayout), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// SaveDiagnostics persists a run's diagnostics in report order.
func (s *SQLiteStore) SaveDiagnostics(runID string, diags []RunDiagnostic) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if len(diags) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO diagnostics (run_id, severity, stage, key, message) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range diags {
		if _, err := stmt.Exec(runID, d.Severity, d.Stage, d.Key, d.Message); err != nil {
			return fmt.Errorf("failed to save diagnostic: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, command, status, workbooks, tables_seen, facts,
		        warnings, fatals, started_at, completed_at, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var startedAt string
		var completedAt, errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.Command, &run.Status,
			&run.Workbooks, &run.Tables, &run.Facts,
			&run.Warnings, &run.Fatals,
			&startedAt, &completedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(sqliteTimeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if completedAt.Valid {
			at, err := time.Parse(sqliteTimeLayout, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse completed_at: %w", err)
			}
			run.CompletedAt = &at
		}
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
