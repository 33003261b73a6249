// Package domain holds the shared data model for the quantum heartbeat
// pipeline: measurement distributions, derived run metrics, and the run
// record exported to collaborators.
package domain

import (
	"errors"
	"time"
)

// ErrMalformedDistribution indicates a measurement distribution that violates
// the upstream contract: empty counts, zero total shots, a negative count, or
// mismatched bit-pattern lengths. It is a defect signal, never coerced.
var ErrMalformedDistribution = errors.New("malformed measurement distribution")

// ErrNotAvailable is returned by read operations before the first beat
// completes.
var ErrNotAvailable = errors.New("not yet available")

// Distribution maps observed bit-patterns (fixed-length binary strings) to
// occurrence counts.
type Distribution map[string]int

// TotalShots returns the sum of all counts.
func (d Distribution) TotalShots() int {
	total := 0
	for _, c := range d {
		total += c
	}
	return total
}

// Validate checks the distribution contract: non-empty, positive total shots,
// non-negative counts, and equal bit-pattern lengths.
func (d Distribution) Validate() error {
	if len(d) == 0 {
		return ErrMalformedDistribution
	}
	length := -1
	total := 0
	for pattern, count := range d {
		if count < 0 {
			return ErrMalformedDistribution
		}
		if length == -1 {
			length = len(pattern)
		} else if len(pattern) != length {
			return ErrMalformedDistribution
		}
		total += count
	}
	if total <= 0 {
		return ErrMalformedDistribution
	}
	return nil
}

// NumQubits returns the bit-pattern length, or 0 for an empty distribution.
func (d Distribution) NumQubits() int {
	for pattern := range d {
		return len(pattern)
	}
	return 0
}

// TopState is one entry of the ranked outcome list.
type TopState struct {
	State       string  `json:"state"`
	Count       int     `json:"count"`
	Probability float64 `json:"probability"`
}

// RunMetrics holds the values derived from one measurement distribution.
type RunMetrics struct {
	CoherenceEstimate float64    `json:"coherence_estimate"`
	EntropyBits       float64    `json:"entropy"`
	TopStates         []TopState `json:"top_states"`
}

// RunRecord is the exported record of one heartbeat execution. Field names
// follow the persisted JSON contract.
type RunRecord struct {
	RunID            string       `json:"run_id"`
	BeatNumber       int          `json:"beat_number"`
	TimestampUTC     string       `json:"timestamp_utc"`
	TimestampLocal   string       `json:"timestamp_local"`
	BackendName      string       `json:"backend_name"`
	JobID            string       `json:"job_id"`
	ExecutionSeconds float64      `json:"execution_time_seconds"`
	NumQubits        int          `json:"num_qubits"`
	CircuitDepth     int          `json:"circuit_depth"`
	Shots            int          `json:"shots"`
	Counts           Distribution `json:"counts"`
	Coherence        float64      `json:"coherence_estimate"`
	Entropy          float64      `json:"entropy"`
	TopStates        []TopState   `json:"top_states"`
	BudgetUsedTotal  float64      `json:"budget_used_total"`
	BudgetRemaining  float64      `json:"budget_remaining"`
}

// Timestamps fills both timestamp fields from t.
func (r *RunRecord) Timestamps(t time.Time) {
	r.TimestampUTC = t.UTC().Format(time.RFC3339)
	r.TimestampLocal = t.Local().Format(time.RFC3339)
}
