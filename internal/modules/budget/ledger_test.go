package budget

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tecnocrat/aios-quantum-sub000/pkg/logger"
)

func testLedger(t *testing.T, quota float64, period time.Duration) *Ledger {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	return NewLedger(quota, period, log)
}

func TestReserveCommitCycle(t *testing.T) {
	l := testLedger(t, 600, 30*24*time.Hour)

	approved, err := l.Reserve(0.83)
	require.NoError(t, err)
	assert.Equal(t, 0.83, approved)

	// Reserve does not mutate state until commit
	assert.Equal(t, 0.0, l.Snapshot().ConsumedSeconds)

	l.Commit(0.83)
	assert.InDelta(t, 0.83, l.Snapshot().ConsumedSeconds, 1e-9)
}

func TestSevenHundredTwentyBeats(t *testing.T) {
	l := testLedger(t, 600, 30*24*time.Hour)

	for i := 0; i < 720; i++ {
		_, err := l.Reserve(0.83)
		require.NoError(t, err, "reservation %d should succeed", i)
		l.Commit(0.83)
	}

	snap := l.Snapshot()
	assert.InDelta(t, 597.6, snap.ConsumedSeconds, 1e-6)

	// A small slice still fits in the remaining margin
	_, err := l.Reserve(0.83)
	assert.NoError(t, err)

	// A large one does not
	_, err = l.Reserve(3)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
}

func TestReserveFailureDoesNotMutate(t *testing.T) {
	l := testLedger(t, 10, time.Hour)
	l.Commit(9.5)

	_, err := l.Reserve(1)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.InDelta(t, 9.5, l.Snapshot().ConsumedSeconds, 1e-9)

	// The remaining margin is still reservable
	_, err = l.Reserve(0.5)
	assert.NoError(t, err)
}

func TestQuotaNeverExceeded(t *testing.T) {
	l := testLedger(t, 100, time.Hour)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 10000; i++ {
		req := rng.Float64() * 5
		if _, err := l.Reserve(req); err == nil {
			// Occasionally overrun the reservation to exercise clamping
			actual := req
			if rng.Intn(10) == 0 {
				actual = req * 1.5
			}
			l.Commit(actual)
		}
		snap := l.Snapshot()
		require.LessOrEqual(t, snap.ConsumedSeconds, snap.QuotaSeconds)
		require.GreaterOrEqual(t, snap.ConsumedSeconds, 0.0)
	}
}

func TestPeriodRollover(t *testing.T) {
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := testLedger(t, 10, 24*time.Hour).WithClock(func() time.Time { return current })

	l.Commit(10)
	_, err := l.Reserve(1)
	assert.ErrorIs(t, err, ErrBudgetExceeded)

	// Crossing the period end resets consumption lazily
	current = current.Add(25 * time.Hour)
	approved, err := l.Reserve(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, approved)

	snap := l.Snapshot()
	assert.Equal(t, 0.0, snap.ConsumedSeconds)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), snap.PeriodStart)
	assert.Equal(t, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), snap.PeriodEnd)
}

func TestRolloverSkipsMultiplePeriods(t *testing.T) {
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := testLedger(t, 10, 24*time.Hour).WithClock(func() time.Time { return current })

	l.Commit(5)
	current = current.Add(10 * 24 * time.Hour)

	snap := l.Snapshot()
	assert.Equal(t, 0.0, snap.ConsumedSeconds)
	assert.True(t, snap.PeriodEnd.After(current))
	assert.False(t, snap.PeriodStart.After(current))
}

func TestBeatsRemaining(t *testing.T) {
	l := testLedger(t, 600, time.Hour)
	assert.Equal(t, 750, l.BeatsRemaining(0.8))

	l.Commit(200)
	assert.Equal(t, 500, l.BeatsRemaining(0.8))

	assert.Equal(t, 0, l.BeatsRemaining(0))
}
