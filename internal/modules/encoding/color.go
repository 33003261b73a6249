// Package encoding assigns visual attributes to placed sample points: RGB
// color per bit-pattern and the time-varying scale/alpha/glow modulation.
// Everything here is pure; repeated calls with identical inputs produce
// byte-identical output.
package encoding

import (
	"fmt"
	"math"
	"strconv"
)

// ColorStrategy selects the hue computation. Closed set, resolved at the
// config boundary by ParseColorStrategy.
type ColorStrategy int

const (
	ColorByValue ColorStrategy = iota
	ColorHarmonic
	ColorEntropyWeighted
	ColorTimeVarying
)

// String returns the config name of the strategy
func (s ColorStrategy) String() string {
	switch s {
	case ColorByValue:
		return "by-value"
	case ColorHarmonic:
		return "harmonic"
	case ColorEntropyWeighted:
		return "entropy-weighted"
	case ColorTimeVarying:
		return "time-varying"
	}
	return "unknown"
}

// ParseColorStrategy resolves a config name to a ColorStrategy
func ParseColorStrategy(name string) (ColorStrategy, error) {
	switch name {
	case "by-value":
		return ColorByValue, nil
	case "harmonic":
		return ColorHarmonic, nil
	case "entropy-weighted":
		return ColorEntropyWeighted, nil
	case "time-varying":
		return ColorTimeVarying, nil
	}
	return 0, fmt.Errorf("unknown color strategy %q", name)
}

// LightnessMode selects what drives the lightness channel.
type LightnessMode int

const (
	LightnessCoherence LightnessMode = iota
	LightnessProbability
	LightnessFixed
)

// RGB is a color with channels in [0, 1].
type RGB struct {
	R float64 `json:"r" msgpack:"r"`
	G float64 `json:"g" msgpack:"g"`
	B float64 `json:"b" msgpack:"b"`
}

// ColorConfig carries the per-run encoder settings.
type ColorConfig struct {
	Strategy       ColorStrategy
	Lightness      LightnessMode
	HueOffset      float64 // added to the computed hue, wrapped mod 1
	SaturationBase float64 // floor of the saturation ramp
	FixedLightness float64 // used when Lightness is LightnessFixed
	TimeRate       float64 // hue drift rate for the time-varying strategy
}

const entropyEpsilon = 1e-10

// ColorFor computes the RGB color for one bit-pattern. The time argument is
// consulted only by the time-varying strategy.
func ColorFor(pattern string, probability, coherence, t float64, cfg ColorConfig) RGB {
	value, err := strconv.ParseUint(pattern, 2, 64)
	if err != nil {
		value = 0
	}
	span := math.Pow(2, float64(len(pattern)))

	var hue float64
	switch cfg.Strategy {
	case ColorHarmonic:
		// Golden-angle stepping separates adjacent integer values.
		hue = math.Mod(float64(value)*137.5, 360) / 360
	case ColorEntropyWeighted:
		hue = 0.6 - 0.6*(-probability*math.Log2(probability+entropyEpsilon))
	case ColorTimeVarying:
		hue = float64(value)/span + t*cfg.TimeRate
	default: // ColorByValue
		if span > 1 {
			hue = float64(value) / (span - 1)
		}
	}
	hue = wrapUnit(hue + cfg.HueOffset)

	saturation := cfg.SaturationBase + (1-cfg.SaturationBase)*probability

	var lightness float64
	switch cfg.Lightness {
	case LightnessProbability:
		lightness = 0.3 + 0.5*probability
	case LightnessFixed:
		lightness = cfg.FixedLightness
	default: // LightnessCoherence
		lightness = 0.3 + 0.4*coherence
	}

	return HSLToRGB(hue, clampUnit(saturation), clampUnit(lightness))
}

// HSLToRGB converts hue/saturation/lightness, all in [0, 1], to RGB via the
// standard piecewise construction.
func HSLToRGB(h, s, l float64) RGB {
	if s == 0 {
		return RGB{R: l, G: l, B: l}
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	return RGB{
		R: hueChannel(p, q, h+1.0/3.0),
		G: hueChannel(p, q, h),
		B: hueChannel(p, q, h-1.0/3.0),
	}
}

func hueChannel(p, q, t float64) float64 {
	t = wrapUnit(t)
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

func wrapUnit(v float64) float64 {
	v = math.Mod(v, 1)
	if v < 0 {
		v++
	}
	return v
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
