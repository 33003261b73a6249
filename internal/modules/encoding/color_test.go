package encoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColorStrategy(t *testing.T) {
	cases := map[string]ColorStrategy{
		"by-value":         ColorByValue,
		"harmonic":         ColorHarmonic,
		"entropy-weighted": ColorEntropyWeighted,
		"time-varying":     ColorTimeVarying,
	}
	for name, want := range cases {
		got, err := ParseColorStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseColorStrategy("rainbow")
	assert.Error(t, err)
}

func TestColorForDeterministic(t *testing.T) {
	cfg := ColorConfig{
		Strategy:       ColorTimeVarying,
		SaturationBase: 0.4,
		HueOffset:      0.1,
		TimeRate:       0.05,
	}

	a := ColorFor("101", 0.3, 0.8, 12.5, cfg)
	b := ColorFor("101", 0.3, 0.8, 12.5, cfg)
	assert.Equal(t, a, b)
}

func TestColorChannelsInRange(t *testing.T) {
	strategies := []ColorStrategy{ColorByValue, ColorHarmonic, ColorEntropyWeighted, ColorTimeVarying}
	patterns := []string{"000", "001", "110", "111"}

	for _, strat := range strategies {
		cfg := ColorConfig{Strategy: strat, SaturationBase: 0.4, TimeRate: 0.1}
		for _, pattern := range patterns {
			for _, p := range []float64{0, 0.01, 0.5, 1} {
				c := ColorFor(pattern, p, 0.7, 3.0, cfg)
				for _, ch := range []float64{c.R, c.G, c.B} {
					assert.GreaterOrEqual(t, ch, 0.0)
					assert.LessOrEqual(t, ch, 1.0)
				}
			}
		}
	}
}

func TestColorByValueSpansHueRange(t *testing.T) {
	cfg := ColorConfig{Strategy: ColorByValue, SaturationBase: 0.4}

	// All-zeros maps to hue 0 (red-dominant), all-ones to hue 1 which wraps
	// back to red; the midpoint lands elsewhere.
	low := ColorFor("000", 0.5, 0.5, 0, cfg)
	mid := ColorFor("011", 0.5, 0.5, 0, cfg)
	assert.NotEqual(t, low, mid)
}

func TestSaturationTracksProbability(t *testing.T) {
	// Pure grayscale at saturation 0 means equal channels
	c := HSLToRGB(0.5, 0, 0.6)
	assert.Equal(t, c.R, c.G)
	assert.Equal(t, c.G, c.B)
}

func TestHSLToRGBKnownValues(t *testing.T) {
	// Full-saturation primaries at half lightness
	red := HSLToRGB(0, 1, 0.5)
	assert.InDelta(t, 1, red.R, 1e-9)
	assert.InDelta(t, 0, red.G, 1e-9)
	assert.InDelta(t, 0, red.B, 1e-9)

	green := HSLToRGB(1.0/3.0, 1, 0.5)
	assert.InDelta(t, 0, green.R, 1e-9)
	assert.InDelta(t, 1, green.G, 1e-9)
	assert.InDelta(t, 0, green.B, 1e-9)

	blue := HSLToRGB(2.0/3.0, 1, 0.5)
	assert.InDelta(t, 0, blue.R, 1e-9)
	assert.InDelta(t, 0, blue.G, 1e-9)
	assert.InDelta(t, 1, blue.B, 1e-9)
}

func TestModulateDefaults(t *testing.T) {
	m := Modulate(1.0, 2.0, 5.0, ModulatorConfig{})
	assert.Equal(t, 1.0, m.Scale)
	assert.Equal(t, 1.0, m.Alpha)
	assert.Equal(t, 0.0, m.Glow)
}

func TestModulateResonanceBounds(t *testing.T) {
	cfg := ModulatorConfig{
		ResonanceEnabled:   true,
		ResonanceAmplitude: 0.2,
		ResonanceL:         3,
		ResonanceM:         2,
	}

	for theta := 0.0; theta <= math.Pi; theta += 0.1 {
		for phi := 0.0; phi < 2*math.Pi; phi += 0.2 {
			m := Modulate(theta, phi, 0, cfg)
			assert.GreaterOrEqual(t, m.Scale, 0.8)
			assert.LessOrEqual(t, m.Scale, 1.2)
		}
	}
}

func TestModulateGlowPatterns(t *testing.T) {
	base := ModulatorConfig{GlowFrequency: 4, GlowSpeed: 1, GlowRate: 2, Coherence: 0.9}

	wave := base
	wave.Glow = GlowWave
	grid := base
	grid.Glow = GlowGrid
	pulse := base
	pulse.Glow = GlowPulse

	for _, cfg := range []ModulatorConfig{wave, grid, pulse} {
		m := Modulate(1.2, 0.7, 3.5, cfg)
		assert.GreaterOrEqual(t, m.Glow, 0.0)
		assert.LessOrEqual(t, m.Glow, 1.0)
	}

	// Pulse scales with coherence: zero coherence means no glow
	dark := pulse
	dark.Coherence = 0
	assert.Equal(t, 0.0, Modulate(1.2, 0.7, 3.5, dark).Glow)
}

func TestModulateTemporalAlpha(t *testing.T) {
	cfg := ModulatorConfig{TemporalSync: true}
	m := Modulate(0.5, 0, 1.0, cfg)
	assert.InDelta(t, 0.7+0.3*math.Sin(1.0+1.0), m.Alpha, 1e-9)
	assert.GreaterOrEqual(t, m.Alpha, 0.4)
	assert.LessOrEqual(t, m.Alpha, 1.0)
}
