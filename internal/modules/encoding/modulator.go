package encoding

import (
	"fmt"
	"math"
)

// GlowPattern selects the glow intensity formula. Closed set; GlowOff is the
// default.
type GlowPattern int

const (
	GlowOff GlowPattern = iota
	GlowWave
	GlowGrid
	GlowPulse
)

// String returns the config name of the pattern
func (g GlowPattern) String() string {
	switch g {
	case GlowOff:
		return "off"
	case GlowWave:
		return "wave"
	case GlowGrid:
		return "grid"
	case GlowPulse:
		return "pulse"
	}
	return "unknown"
}

// ParseGlowPattern resolves a config name to a GlowPattern
func ParseGlowPattern(name string) (GlowPattern, error) {
	switch name {
	case "off", "":
		return GlowOff, nil
	case "wave":
		return GlowWave, nil
	case "grid":
		return GlowGrid, nil
	case "pulse":
		return GlowPulse, nil
	}
	return 0, fmt.Errorf("unknown glow pattern %q", name)
}

// ModulatorConfig is supplied by the caller on every call; the modulator
// itself holds no state between frames.
type ModulatorConfig struct {
	ResonanceEnabled   bool
	ResonanceAmplitude float64 // bounds the scale perturbation
	ResonanceL         int     // polar degree
	ResonanceM         int     // azimuthal order
	Glow               GlowPattern
	GlowFrequency      float64 // k in the wave and grid formulas
	GlowSpeed          float64 // wave travel speed
	GlowRate           float64 // pulse oscillation rate
	Coherence          float64 // scales the pulse pattern
	TemporalSync       bool    // enables the alpha oscillation
}

// Modulation is the per-vertex output: a radial scale factor, an opacity,
// and a glow intensity in [0, 1].
type Modulation struct {
	Scale float64
	Alpha float64
	Glow  float64
}

// Modulate computes the visual modulation for a spherical position at time t.
func Modulate(theta, phi, t float64, cfg ModulatorConfig) Modulation {
	m := Modulation{Scale: 1, Alpha: 1}

	if cfg.ResonanceEnabled && cfg.ResonanceAmplitude > 0 {
		a := cfg.ResonanceAmplitude
		scale := 1 + a*math.Cos(float64(cfg.ResonanceL)*theta)*math.Cos(float64(cfg.ResonanceM)*phi)
		if scale < 1-a {
			scale = 1 - a
		}
		if scale > 1+a {
			scale = 1 + a
		}
		m.Scale = scale
	}

	switch cfg.Glow {
	case GlowWave:
		m.Glow = 0.5 * (1 + math.Sin(cfg.GlowFrequency*theta-t*cfg.GlowSpeed))
	case GlowGrid:
		m.Glow = math.Abs(math.Sin(cfg.GlowFrequency*theta) * math.Cos(cfg.GlowFrequency*phi))
	case GlowPulse:
		m.Glow = 0.5 * (1 + math.Sin(t*cfg.GlowRate)) * cfg.Coherence
	}

	if cfg.TemporalSync {
		m.Alpha = 0.7 + 0.3*math.Sin(t+theta*2)
	}

	return m
}
