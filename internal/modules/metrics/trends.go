package metrics

import (
	"github.com/markcheno/go-talib"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
	"github.com/Tecnocrat/aios-quantum-sub000/pkg/formulas"
)

// TrendReport summarizes how coherence and entropy have moved over the
// recent beat history. SMA/EMA values are 0 until enough beats exist to fill
// the window.
type TrendReport struct {
	Beats           int     `json:"beats"`
	Window          int     `json:"window"`
	CoherenceMean   float64 `json:"coherence_mean"`
	CoherenceSMA    float64 `json:"coherence_sma"`
	CoherenceEMA    float64 `json:"coherence_ema"`
	EntropyMean     float64 `json:"entropy_mean"`
	EntropySMA      float64 `json:"entropy_sma"`
	EntropyEMA      float64 `json:"entropy_ema"`
	ExecutionMeanS  float64 `json:"execution_mean_seconds"`
}

// Trends computes moving statistics over run records. Records are expected
// newest-first (repository order); the series is reversed into chronological
// order before the moving averages are taken.
func Trends(records []*domain.RunRecord, window int) TrendReport {
	if window <= 0 {
		window = 5
	}

	n := len(records)
	coherence := make([]float64, n)
	entropy := make([]float64, n)
	execTime := make([]float64, n)
	for i, rec := range records {
		// newest-first -> chronological
		j := n - 1 - i
		coherence[j] = rec.Coherence
		entropy[j] = rec.Entropy
		execTime[j] = rec.ExecutionSeconds
	}

	report := TrendReport{
		Beats:          n,
		Window:         window,
		CoherenceMean:  formulas.Mean(coherence),
		EntropyMean:    formulas.Mean(entropy),
		ExecutionMeanS: formulas.Mean(execTime),
	}

	if n >= window {
		report.CoherenceSMA = last(talib.Sma(coherence, window))
		report.CoherenceEMA = last(talib.Ema(coherence, window))
		report.EntropySMA = last(talib.Sma(entropy, window))
		report.EntropyEMA = last(talib.Ema(entropy, window))
	}

	return report
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}
