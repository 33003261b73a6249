package topology

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
	"github.com/Tecnocrat/aios-quantum-sub000/pkg/geometry"
)

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"uniform-probability": StrategyUniform,
		"uniform":             StrategyUniform,
		"spiral":              StrategySpiral,
		"clustered":           StrategyClustered,
		"harmonic":            StrategyHarmonic,
	}
	for name, want := range cases {
		got, err := ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseStrategy("voronoi")
	assert.Error(t, err)
}

func TestMapPointBudgetExact(t *testing.T) {
	dist := domain.Distribution{
		"000": 897,
		"100": 55,
		"010": 37,
		"001": 18,
		"110": 10,
	}

	for _, strat := range []Strategy{StrategyUniform, StrategySpiral, StrategyClustered, StrategyHarmonic} {
		points, err := Map(dist, Options{Strategy: strat})
		require.NoError(t, err)
		// 1017 shots exceed the cap, so the budget is exactly the cap
		assert.Len(t, points, DefaultPointCap, strat.String())
	}
}

func TestMapAllocationSumsExactly(t *testing.T) {
	// Fractional shares that floor to 8 of 10 points
	dist := domain.Distribution{
		"00": 1,
		"01": 1,
		"10": 1,
		"11": 4,
	}

	points, err := Map(dist, Options{TotalPoints: 10})
	require.NoError(t, err)
	require.Len(t, points, 10)

	perPattern := map[string]int{}
	for _, p := range points {
		perPattern[p.BitPattern]++
	}
	// Floors: 5+1+1+1; the two extra points go to the largest fractional
	// parts, "11" (.714) first, then the lexicographically smallest of the
	// tied tail patterns (.429 each)
	assert.Equal(t, 6, perPattern["11"])
	assert.Equal(t, 2, perPattern["00"])
	assert.Equal(t, 1, perPattern["01"])
	assert.Equal(t, 1, perPattern["10"])
}

func TestMapAllocationHighEntropy(t *testing.T) {
	// Equiprobable patterns whose rounded shares would overshoot the budget
	cases := []struct {
		name     string
		patterns []string
		total    int
	}{
		{"four halves", []string{"00", "01", "10", "11"}, 2},
		{"six halves", []string{"000", "001", "010", "011", "100", "101"}, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dist := domain.Distribution{}
			for _, p := range tc.patterns {
				dist[p] = 1
			}

			points, err := Map(dist, Options{TotalPoints: tc.total})
			require.NoError(t, err)
			assert.Len(t, points, tc.total)
		})
	}
}

func TestMapAllocationManyPatternsAtCap(t *testing.T) {
	// 1024 distinct single-shot patterns against the default cap: every
	// share floors to 0 and the whole budget is distributed fractionally
	dist := domain.Distribution{}
	for i := 0; i < 1024; i++ {
		dist[fmt.Sprintf("%010b", i)] = 1
	}

	points, err := Map(dist, Options{})
	require.NoError(t, err)
	assert.Len(t, points, DefaultPointCap)
}

func TestMapDegenerateSinglePattern(t *testing.T) {
	dist := domain.Distribution{"0000": 1024}

	points, err := Map(dist, Options{TotalPoints: 64})
	require.NoError(t, err)
	require.Len(t, points, 64)

	for _, p := range points {
		assert.Equal(t, "0000", p.BitPattern)
		assert.Equal(t, 1.0, p.Probability)
	}
}

func TestMapAngularRanges(t *testing.T) {
	dist := domain.Distribution{"0": 600, "1": 400}

	for _, strat := range []Strategy{StrategyUniform, StrategySpiral, StrategyClustered, StrategyHarmonic} {
		points, err := Map(dist, Options{Strategy: strat, TotalPoints: 200})
		require.NoError(t, err)

		for _, p := range points {
			assert.GreaterOrEqual(t, p.Position.Theta, 0.0, strat.String())
			assert.LessOrEqual(t, p.Position.Theta, math.Pi, strat.String())
			assert.GreaterOrEqual(t, p.Position.Phi, 0.0, strat.String())
			assert.Less(t, p.Position.Phi, 2*math.Pi, strat.String())
			assert.Greater(t, p.Radius, 0.0, strat.String())
		}
	}
}

func TestMapUniformLongitudeSteps(t *testing.T) {
	// Uniform placement advances longitude by the golden angle per point
	points, err := Map(domain.Distribution{"0": 1024}, Options{Strategy: StrategyUniform, TotalPoints: 32})
	require.NoError(t, err)

	for i := 1; i < len(points); i++ {
		step := geometry.DeltaPhi(points[i].Position.Phi, points[i-1].Position.Phi)
		assert.InDelta(t, geometry.GoldenAngle, step, 1e-9)
	}
}

func TestMapDeterministic(t *testing.T) {
	dist := domain.Distribution{"00": 700, "01": 200, "10": 100}
	opts := Options{Strategy: StrategySpiral, TotalPoints: 128, Coherence: 0.7}

	a, err := Map(dist, opts)
	require.NoError(t, err)
	b, err := Map(dist, opts)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestMapRadiusTracksProbability(t *testing.T) {
	dist := domain.Distribution{"00": 900, "11": 100}

	points, err := Map(dist, Options{Strategy: StrategyUniform, TotalPoints: 10})
	require.NoError(t, err)

	var dominant, tail float64
	for _, p := range points {
		switch p.BitPattern {
		case "00":
			dominant = p.Radius
		case "11":
			tail = p.Radius
		}
	}
	assert.Greater(t, dominant, tail)
}

func TestMapRejectsMalformed(t *testing.T) {
	_, err := Map(domain.Distribution{}, Options{})
	assert.ErrorIs(t, err, domain.ErrMalformedDistribution)

	_, err = Map(domain.Distribution{"00": -5}, Options{})
	assert.ErrorIs(t, err, domain.ErrMalformedDistribution)
}
