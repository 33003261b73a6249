// Package budget meters quantum-processor seconds against a hard period
// quota. The ledger is the single authority on whether an execution is
// affordable; the heartbeat service must hold a successful reservation
// before submitting anything to a backend.
package budget

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrBudgetExceeded is returned by Reserve when the requested slice does not
// fit in the remaining quota. Recoverable: the caller skips the trigger.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Snapshot is a read-only view of the ledger state.
type Snapshot struct {
	QuotaSeconds     float64   `json:"period_quota_seconds"`
	ConsumedSeconds  float64   `json:"consumed_seconds"`
	RemainingSeconds float64   `json:"remaining_seconds"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
}

// Ledger tracks cumulative consumed execution time within a rolling period.
// Reserve/Commit pairs execute under one mutex so two concurrent reservation
// attempts can never both pass on a stale consumed value.
type Ledger struct {
	mu          sync.Mutex
	quota       float64
	consumed    float64
	periodStart time.Time
	periodEnd   time.Time
	period      time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewLedger creates a ledger with the given quota (seconds) and period length.
func NewLedger(quotaSeconds float64, period time.Duration, log zerolog.Logger) *Ledger {
	l := &Ledger{
		quota:  quotaSeconds,
		period: period,
		now:    time.Now,
		log:    log.With().Str("component", "budget").Logger(),
	}
	start := l.now()
	l.periodStart = start
	l.periodEnd = start.Add(period)
	return l
}

// WithClock overrides the time source. Test hook.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	l.periodStart = now()
	l.periodEnd = l.periodStart.Add(l.period)
	return l
}

// Reserve approves a time slice of the requested size, or fails with
// ErrBudgetExceeded. State is not mutated on failure; the approved seconds
// are only accounted for when Commit is called.
func (l *Ledger) Reserve(requestedSeconds float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked()

	if l.consumed+requestedSeconds > l.quota {
		l.log.Warn().
			Float64("requested", requestedSeconds).
			Float64("consumed", l.consumed).
			Float64("quota", l.quota).
			Msg("Reservation rejected")
		return 0, ErrBudgetExceeded
	}
	return requestedSeconds, nil
}

// Commit records the seconds actually consumed by an approved execution.
// Must be called exactly once per approved execution, regardless of whether
// the execution itself succeeded. Consumption is clamped at the quota so the
// ledger invariant holds even when an execution overruns its reservation.
func (l *Ledger) Commit(actualSeconds float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked()

	if actualSeconds < 0 {
		actualSeconds = 0
	}
	l.consumed += actualSeconds
	if l.consumed > l.quota {
		l.log.Warn().
			Float64("consumed", l.consumed).
			Float64("quota", l.quota).
			Msg("Committed time overran quota, clamping")
		l.consumed = l.quota
	}

	l.log.Debug().
		Float64("committed", actualSeconds).
		Float64("consumed_total", l.consumed).
		Float64("remaining", l.quota-l.consumed).
		Msg("Execution time committed")
}

// Snapshot returns the current ledger state, applying lazy rollover first.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked()

	return Snapshot{
		QuotaSeconds:     l.quota,
		ConsumedSeconds:  l.consumed,
		RemainingSeconds: l.quota - l.consumed,
		PeriodStart:      l.periodStart,
		PeriodEnd:        l.periodEnd,
	}
}

// BeatsRemaining estimates how many executions of the given cost still fit
// in the current period.
func (l *Ledger) BeatsRemaining(secondsPerBeat float64) int {
	if secondsPerBeat <= 0 {
		return 0
	}
	snap := l.Snapshot()
	return int(snap.RemainingSeconds / secondsPerBeat)
}

// rolloverLocked resets consumption when the current time has passed the
// period end. Rollover is a pure check-on-access; no background timer.
func (l *Ledger) rolloverLocked() {
	now := l.now()
	if now.Before(l.periodEnd) {
		return
	}
	for !now.Before(l.periodEnd) {
		l.periodStart = l.periodStart.Add(l.period)
		l.periodEnd = l.periodEnd.Add(l.period)
	}
	l.consumed = 0
	l.log.Info().
		Time("period_start", l.periodStart).
		Time("period_end", l.periodEnd).
		Msg("Budget period rolled over")
}
