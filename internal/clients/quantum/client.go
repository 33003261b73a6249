// Package quantum abstracts the external circuit execution capability. The
// core treats it as "submit a circuit, get bit-pattern counts back"; the only
// contract details that matter here are the job lifecycle and the elapsed
// processor seconds, which the budget ledger bills for.
package quantum

import (
	"context"
	"errors"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
)

// ErrExecutionFailed indicates the remote capability returned an error or
// timed out. Recoverable: the heartbeat service retries a bounded number of
// times and then skips the cycle.
var ErrExecutionFailed = errors.New("execution failed")

// JobStatus models the lifecycle of one submitted execution.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusTimedOut  JobStatus = "timed_out"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusCancelled:
		return true
	}
	return false
}

// Request describes one heartbeat circuit execution.
type Request struct {
	NumQubits  int
	Shots      int
	BeatNumber int // embedded in the phase signature so each beat differs
}

// Result is the outcome of one execution. ElapsedSeconds is populated for
// every terminal status, including Failed and Cancelled: a job that ran and
// then failed still consumed processor time and must be billed.
type Result struct {
	JobID          string
	BackendName    string
	Status         JobStatus
	Counts         domain.Distribution
	CircuitDepth   int
	ElapsedSeconds float64
}

// Backend is one execution target. Execute blocks until the job reaches a
// terminal state or ctx is cancelled; on cancellation it returns a Result
// with StatusCancelled carrying the partial elapsed time alongside ctx's
// error, so callers can still commit the billed seconds.
type Backend interface {
	Name() string
	Execute(ctx context.Context, req Request) (*Result, error)
}
