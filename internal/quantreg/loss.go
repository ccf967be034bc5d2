package quantreg

import (
	"fmt"
	"math"
	"sort"
)

// CheckLoss computes the weighted check (pinball) loss of a residual vector
// at quantile level tau: sum(w_i * rho_tau(r_i)) with rho_tau(u) = tau*u for
// u >= 0 and (tau-1)*u otherwise. NaN residuals are skipped rather than
// poisoning the sum. A nil weights slice means unit weights.
func CheckLoss(residuals []float64, tau float64, weights []float64) float64 {
	if tau <= 0 || tau >= 1 {
		panic(fmt.Sprintf("quantreg: tau must be in (0, 1), got %v", tau))
	}
	if weights != nil && len(weights) != len(residuals) {
		panic(fmt.Sprintf("quantreg: weights length %d != residuals length %d", len(weights), len(residuals)))
	}

	var sum float64
	for i, r := range residuals {
		if math.IsNaN(r) {
			continue
		}
		w := 1.0
		if weights != nil {
			w = weights[i]
			if w < 0 {
				panic(fmt.Sprintf("quantreg: negative weight %v at index %d", w, i))
			}
		}
		if r >= 0 {
			sum += w * tau * r
		} else {
			sum += w * (tau - 1) * r
		}
	}
	return sum
}

// Quantile computes the tau-th empirical quantile of x by linear
// interpolation between order statistics.
func Quantile(x []float64, tau float64) float64 {
	if len(x) == 0 {
		panic("quantreg: quantile of empty slice")
	}
	if tau < 0 || tau > 1 {
		panic(fmt.Sprintf("quantreg: tau must be in [0, 1], got %v", tau))
	}

	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)

	pos := tau * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}

	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
