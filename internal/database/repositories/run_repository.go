package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
)

// RunRepository handles persistence of heartbeat run records
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

// Create inserts a run record
func (r *RunRepository) Create(rec *domain.RunRecord) error {
	countsJSON, err := json.Marshal(rec.Counts)
	if err != nil {
		return fmt.Errorf("failed to marshal counts: %w", err)
	}
	topJSON, err := json.Marshal(rec.TopStates)
	if err != nil {
		return fmt.Errorf("failed to marshal top states: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO runs (
			run_id, beat_number, timestamp_utc, timestamp_local,
			backend_name, job_id, execution_time_seconds,
			num_qubits, circuit_depth, shots,
			counts_json, coherence_estimate, entropy, top_states_json,
			budget_used_total, budget_remaining
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID, rec.BeatNumber, rec.TimestampUTC, rec.TimestampLocal,
		rec.BackendName, rec.JobID, rec.ExecutionSeconds,
		rec.NumQubits, rec.CircuitDepth, rec.Shots,
		string(countsJSON), rec.Coherence, rec.Entropy, string(topJSON),
		rec.BudgetUsedTotal, rec.BudgetRemaining,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	r.log.Debug().Str("run_id", rec.RunID).Int("beat", rec.BeatNumber).Msg("Run record stored")
	return nil
}

// Latest returns the most recent run record, or domain.ErrNotAvailable when
// no run has completed yet.
func (r *RunRepository) Latest() (*domain.RunRecord, error) {
	row := r.db.QueryRow(`
		SELECT run_id, beat_number, timestamp_utc, timestamp_local,
			backend_name, job_id, execution_time_seconds,
			num_qubits, circuit_depth, shots,
			counts_json, coherence_estimate, entropy, top_states_json,
			budget_used_total, budget_remaining
		FROM runs ORDER BY beat_number DESC LIMIT 1
	`)

	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotAvailable
	}
	return rec, err
}

// List returns the most recent run records, newest first
func (r *RunRepository) List(limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT run_id, beat_number, timestamp_utc, timestamp_local,
			backend_name, job_id, execution_time_seconds,
			num_qubits, circuit_depth, shots,
			counts_json, coherence_estimate, entropy, top_states_json,
			budget_used_total, budget_remaining
		FROM runs ORDER BY beat_number DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []*domain.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// NextBeatNumber returns the beat number the next run should use
func (r *RunRepository) NextBeatNumber() (int, error) {
	var max sql.NullInt64
	if err := r.db.QueryRow(`SELECT MAX(beat_number) FROM runs`).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to query max beat number: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*domain.RunRecord, error) {
	var rec domain.RunRecord
	var countsJSON, topJSON string

	err := row.Scan(
		&rec.RunID, &rec.BeatNumber, &rec.TimestampUTC, &rec.TimestampLocal,
		&rec.BackendName, &rec.JobID, &rec.ExecutionSeconds,
		&rec.NumQubits, &rec.CircuitDepth, &rec.Shots,
		&countsJSON, &rec.Coherence, &rec.Entropy, &topJSON,
		&rec.BudgetUsedTotal, &rec.BudgetRemaining,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(countsJSON), &rec.Counts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal counts: %w", err)
	}
	if err := json.Unmarshal([]byte(topJSON), &rec.TopStates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal top states: %w", err)
	}
	return &rec, nil
}
