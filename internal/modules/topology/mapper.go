// Package topology converts a measurement distribution into positioned
// sample points on the unit sphere. Placement is strategy-driven and fully
// deterministic: identical inputs always reproduce identical geometry.
package topology

import (
	"fmt"
	"math"
	"sort"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
	"github.com/Tecnocrat/aios-quantum-sub000/pkg/geometry"
)

// Strategy selects the placement algorithm. The set is closed: unknown
// names fail at the config boundary in ParseStrategy, not at placement time.
type Strategy int

const (
	StrategyUniform Strategy = iota // even-area latitude, golden-angle longitude
	StrategySpiral                  // Fibonacci sphere spiral
	StrategyClustered               // fixed azimuthal cluster slots
	StrategyHarmonic                // degree/order lattice
)

// String returns the config name of the strategy
func (s Strategy) String() string {
	switch s {
	case StrategyUniform:
		return "uniform-probability"
	case StrategySpiral:
		return "spiral"
	case StrategyClustered:
		return "clustered"
	case StrategyHarmonic:
		return "harmonic"
	}
	return "unknown"
}

// ParseStrategy resolves a config name to a Strategy
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "uniform-probability", "uniform":
		return StrategyUniform, nil
	case "spiral":
		return StrategySpiral, nil
	case "clustered":
		return StrategyClustered, nil
	case "harmonic":
		return StrategyHarmonic, nil
	}
	return 0, fmt.Errorf("unknown topology strategy %q", name)
}

// DefaultPointCap bounds the point budget derived from the shot count.
const DefaultPointCap = 512

// Options configures a mapping run.
type Options struct {
	Strategy     Strategy
	TotalPoints  int     // 0 derives min(shots, Cap)
	Cap          int     // 0 uses DefaultPointCap
	ClusterCount int     // clustered strategy; 0 uses 8
	SpiralTurns  float64 // spiral strategy; 0 uses 3
	Radius       float64 // base radius; 0 uses 1
	Coherence    float64 // from the run's metrics
}

// SamplePoint is one placed sample: a bit-pattern pinned to a spherical
// position with a strategy-scaled radius.
type SamplePoint struct {
	BitPattern  string
	Position    geometry.Spherical
	Radius      float64
	Probability float64
}

// Map places the distribution's bit-patterns on the sphere. The output
// length always equals the resolved point budget: patterns get
// floor(p·total) points each and the shortfall is distributed by largest
// fractional remainder.
func Map(dist domain.Distribution, opts Options) ([]SamplePoint, error) {
	if err := dist.Validate(); err != nil {
		return nil, err
	}

	if opts.Cap <= 0 {
		opts.Cap = DefaultPointCap
	}
	if opts.Radius <= 0 {
		opts.Radius = 1
	}
	if opts.ClusterCount <= 0 {
		opts.ClusterCount = 8
	}
	if opts.SpiralTurns <= 0 {
		opts.SpiralTurns = 3
	}

	total := opts.TotalPoints
	if total <= 0 {
		total = dist.TotalShots()
		if total > opts.Cap {
			total = opts.Cap
		}
	}

	alloc := allocate(dist, total)

	points := make([]SamplePoint, 0, total)
	idx := 0
	for _, a := range alloc {
		for k := 0; k < a.points; k++ {
			pos, radius := place(opts, idx, total, a.probability)
			points = append(points, SamplePoint{
				BitPattern:  a.pattern,
				Position:    pos,
				Radius:      radius,
				Probability: a.probability,
			})
			idx++
		}
	}
	return points, nil
}

type allocation struct {
	pattern     string
	probability float64
	points      int
}

// allocate distributes the point budget across patterns by largest
// remainder: every pattern gets floor(p·total), then the shortfall goes to
// the largest fractional parts. Exact probabilities sum to 1, so the floors
// leave a shortfall in [0, patterns−1] and the result always sums to total.
func allocate(dist domain.Distribution, total int) []allocation {
	shots := float64(dist.TotalShots())

	type share struct {
		allocation
		frac float64
	}

	used := 0
	shares := make([]share, 0, len(dist))
	for pattern, count := range dist {
		p := float64(count) / shots
		exact := p * float64(total)
		whole := int(math.Floor(exact))
		used += whole
		shares = append(shares, share{
			allocation: allocation{pattern: pattern, probability: p, points: whole},
			frac:       exact - float64(whole),
		})
	}

	// Descending by probability with lexicographic tie-breaks; the stable
	// fractional ranking below inherits this order, keeping the whole
	// allocation deterministic.
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].probability != shares[j].probability {
			return shares[i].probability > shares[j].probability
		}
		return shares[i].pattern < shares[j].pattern
	})

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return shares[order[a]].frac > shares[order[b]].frac
	})
	for k := 0; k < total-used; k++ {
		shares[order[k]].points++
	}

	allocs := make([]allocation, len(shares))
	for i := range shares {
		allocs[i] = shares[i].allocation
	}
	return allocs
}

// place computes the position for one point index under the configured
// strategy. Pure: no randomness, only index arithmetic.
func place(opts Options, i, total int, probability float64) (geometry.Spherical, float64) {
	fi := float64(i)
	ft := float64(total)

	switch opts.Strategy {
	case StrategySpiral:
		theta := math.Acos(geometry.Clamp(1-2*(fi+0.5)/ft, -1, 1))
		phi := geometry.WrapPhi(2 * math.Pi * fi * opts.SpiralTurns / geometry.GoldenRatio)
		return geometry.Spherical{Theta: theta, Phi: phi}, opts.Radius * (0.9 + 0.1*probability)

	case StrategyClustered:
		cluster := i % opts.ClusterCount
		rank := i / opts.ClusterCount
		centerPhi := 2 * math.Pi * float64(cluster) / float64(opts.ClusterCount)

		// Higher probability pulls points tighter around the slot center.
		spread := 0.15 + 0.85*(1-probability)
		u1 := 2*frac(float64(rank+1)/geometry.GoldenRatio) - 1
		u2 := 2*frac(float64(rank+1)*math.Sqrt2) - 1

		theta := geometry.Clamp(math.Pi/2+u1*spread, 0, math.Pi)
		phi := geometry.WrapPhi(centerPhi + u2*spread)
		return geometry.Spherical{Theta: theta, Phi: phi}, opts.Radius

	case StrategyHarmonic:
		l := int(math.Floor(math.Sqrt(fi)))
		m := i - l*l - l // order in [-l, l]

		theta := math.Pi / 2
		if l > 0 {
			theta = math.Pi * float64(m+l) / float64(2*l)
		}
		phi := geometry.WrapPhi(2 * math.Pi * frac((fi+1)/geometry.GoldenRatio))
		return geometry.Spherical{Theta: theta, Phi: phi}, opts.Radius * (0.85 + 0.15*opts.Coherence)

	default: // StrategyUniform
		theta := math.Acos(geometry.Clamp(2*fi/ft-1, -1, 1))
		phi := geometry.WrapPhi(fi * geometry.GoldenAngle)
		return geometry.Spherical{Theta: theta, Phi: phi}, opts.Radius * (0.8 + 0.2*probability)
	}
}

func frac(v float64) float64 {
	return v - math.Floor(v)
}
