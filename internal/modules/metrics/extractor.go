// Package metrics derives run metrics from raw measurement distributions:
// the coherence estimate, Shannon entropy, ranked top outcomes, and the
// per-qubit bias used as surface error metadata.
package metrics

import (
	"math"
	"sort"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
)

// DefaultTopN is the number of ranked outcomes kept when the caller does not
// ask for a specific truncation.
const DefaultTopN = 5

// Extract computes RunMetrics from a distribution. The distribution is
// validated first; a malformed one is rejected with
// domain.ErrMalformedDistribution rather than coerced.
func Extract(dist domain.Distribution, topN int) (domain.RunMetrics, error) {
	if err := dist.Validate(); err != nil {
		return domain.RunMetrics{}, err
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	total := float64(dist.TotalShots())

	var entropy float64
	maxCount := 0
	states := make([]domain.TopState, 0, len(dist))
	for pattern, count := range dist {
		if count == 0 {
			continue // 0·log2(0) = 0 by convention
		}
		p := float64(count) / total
		entropy -= p * math.Log2(p)
		if count > maxCount {
			maxCount = count
		}
		states = append(states, domain.TopState{
			State:       pattern,
			Count:       count,
			Probability: p,
		})
	}

	// Descending by count, ties broken by ascending bit-pattern
	sort.Slice(states, func(i, j int) bool {
		if states[i].Count != states[j].Count {
			return states[i].Count > states[j].Count
		}
		return states[i].State < states[j].State
	})
	if len(states) > topN {
		states = states[:topN]
	}

	// A single-outcome distribution leaves a negative zero in the sum
	if entropy <= 0 {
		entropy = 0
	}

	return domain.RunMetrics{
		CoherenceEstimate: float64(maxCount) / total,
		EntropyBits:       entropy,
		TopStates:         states,
	}, nil
}

// NormalizedEntropy scales entropy in bits to [0, 1] against the maximum for
// the given qubit count.
func NormalizedEntropy(entropyBits float64, numQubits int) float64 {
	if numQubits <= 0 {
		return 0
	}
	return entropyBits / float64(numQubits)
}

// QubitBias returns the per-qubit deviation from the ideal 50/50 split,
// |0.5 − ones/total| for each qubit. Qubit 0 is the rightmost bit of the
// pattern. Used as the error metadata on surface vertices.
func QubitBias(dist domain.Distribution) ([]float64, error) {
	if err := dist.Validate(); err != nil {
		return nil, err
	}

	numQubits := dist.NumQubits()
	total := float64(dist.TotalShots())

	bias := make([]float64, numQubits)
	for q := 0; q < numQubits; q++ {
		ones := 0
		for pattern, count := range dist {
			if pattern[len(pattern)-1-q] == '1' {
				ones += count
			}
		}
		bias[q] = math.Abs(0.5 - float64(ones)/total)
	}
	return bias, nil
}
