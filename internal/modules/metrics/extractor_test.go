package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
)

func TestExtractReferenceDistribution(t *testing.T) {
	// 1024-shot, 3-qubit heartbeat measurement
	dist := domain.Distribution{
		"000": 897,
		"100": 55,
		"010": 37,
		"001": 18,
		"110": 10,
	}

	m, err := Extract(dist, 5)
	require.NoError(t, err)

	assert.InDelta(t, 0.876, m.CoherenceEstimate, 0.001)
	assert.InDelta(t, 0.63, m.EntropyBits, 0.02)

	require.Len(t, m.TopStates, 5)
	assert.Equal(t, "000", m.TopStates[0].State)
	assert.Equal(t, 897, m.TopStates[0].Count)
	assert.InDelta(t, 0.876, m.TopStates[0].Probability, 0.001)
	assert.Equal(t, "100", m.TopStates[1].State)
	assert.Equal(t, "110", m.TopStates[4].State)
}

func TestEntropyBounds(t *testing.T) {
	// Single outcome: entropy exactly zero, coherence exactly one
	m, err := Extract(domain.Distribution{"11": 512}, 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.EntropyBits)
	assert.Equal(t, 1.0, m.CoherenceEstimate)

	// Equiprobable outcomes: entropy is log2(number of patterns)
	m, err = Extract(domain.Distribution{"00": 256, "01": 256, "10": 256, "11": 256}, 5)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.EntropyBits, 1e-9)
	assert.Equal(t, 0.25, m.CoherenceEstimate)
}

func TestTopStatesTieBreaking(t *testing.T) {
	dist := domain.Distribution{
		"011": 100,
		"001": 100,
		"111": 300,
		"010": 100,
	}

	m, err := Extract(dist, 3)
	require.NoError(t, err)

	require.Len(t, m.TopStates, 3)
	assert.Equal(t, "111", m.TopStates[0].State)
	// Ties resolved by ascending bit-pattern
	assert.Equal(t, "001", m.TopStates[1].State)
	assert.Equal(t, "010", m.TopStates[2].State)
}

func TestExtractRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		dist domain.Distribution
	}{
		{"empty", domain.Distribution{}},
		{"zero shots", domain.Distribution{"00": 0, "01": 0}},
		{"negative count", domain.Distribution{"00": -1, "01": 10}},
		{"mixed lengths", domain.Distribution{"00": 5, "010": 5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract(tc.dist, 5)
			assert.ErrorIs(t, err, domain.ErrMalformedDistribution)
		})
	}
}

func TestCoherenceRange(t *testing.T) {
	dist := domain.Distribution{"0": 3, "1": 7}
	m, err := Extract(dist, 5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.CoherenceEstimate, 0.0)
	assert.LessOrEqual(t, m.CoherenceEstimate, 1.0)
	assert.Equal(t, 0.7, m.CoherenceEstimate)
}

func TestNormalizedEntropy(t *testing.T) {
	assert.InDelta(t, 0.4, NormalizedEntropy(2.0, 5), 1e-9)
	assert.Equal(t, 0.0, NormalizedEntropy(2.0, 0))
}

func TestQubitBias(t *testing.T) {
	// Qubit 0 (rightmost) is always 1, qubit 1 is split 50/50
	dist := domain.Distribution{"01": 50, "11": 50}
	bias, err := QubitBias(dist)
	require.NoError(t, err)

	require.Len(t, bias, 2)
	assert.InDelta(t, 0.5, bias[0], 1e-9)
	assert.InDelta(t, 0.0, bias[1], 1e-9)
}

func TestTrendsReversesChronology(t *testing.T) {
	// Newest-first input, coherence rising over time
	records := []*domain.RunRecord{
		{Coherence: 0.9, Entropy: 0.5, ExecutionSeconds: 0.8},
		{Coherence: 0.8, Entropy: 0.6, ExecutionSeconds: 0.7},
		{Coherence: 0.7, Entropy: 0.7, ExecutionSeconds: 0.9},
	}

	report := Trends(records, 3)
	assert.Equal(t, 3, report.Beats)
	assert.InDelta(t, 0.8, report.CoherenceMean, 1e-9)
	assert.InDelta(t, 0.8, report.CoherenceSMA, 1e-9)
	assert.False(t, math.IsNaN(report.CoherenceEMA))
	assert.InDelta(t, 0.8, report.ExecutionMeanS, 1e-9)
}

func TestTrendsShortHistory(t *testing.T) {
	records := []*domain.RunRecord{{Coherence: 0.9, Entropy: 0.5}}
	report := Trends(records, 5)
	assert.Equal(t, 1, report.Beats)
	assert.Equal(t, 0.0, report.CoherenceSMA)
	assert.InDelta(t, 0.9, report.CoherenceMean, 1e-9)
}
