package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Use WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate creates the schema if it does not exist
func (db *DB) Migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			beat_number INTEGER NOT NULL,
			timestamp_utc TEXT NOT NULL,
			timestamp_local TEXT NOT NULL,
			backend_name TEXT NOT NULL,
			job_id TEXT NOT NULL,
			execution_time_seconds REAL NOT NULL,
			num_qubits INTEGER NOT NULL,
			circuit_depth INTEGER NOT NULL,
			shots INTEGER NOT NULL,
			counts_json TEXT NOT NULL,
			coherence_estimate REAL NOT NULL,
			entropy REAL NOT NULL,
			top_states_json TEXT NOT NULL,
			budget_used_total REAL NOT NULL,
			budget_remaining REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_beat ON runs(beat_number)`,
		`CREATE TABLE IF NOT EXISTS surface_snapshots (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL,
			vertices_blob BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scheduler_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}
