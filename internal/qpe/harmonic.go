// Package qpe computes quantile periodograms: spectral estimates built from
// trigonometric quantile regression over a grid of frequencies and quantile
// levels.
package qpe

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/spectral.report/internal/quantreg"
)

// FrequencyClass tags a frequency by the design matrix it needs. The zero
// and Nyquist frequencies are degenerate: at 0 the oscillation is constant
// and at 0.5 the sampled sine term vanishes identically.
type FrequencyClass int

const (
	// FreqInterior covers 0 < f < 0.5: full cosine+sine pair.
	FreqInterior FrequencyClass = iota
	// FreqZero covers f == 0: no oscillation, only the quantile level.
	FreqZero
	// FreqNyquist covers f == 0.5: cosine term only, sine is identically zero.
	FreqNyquist
)

// ClassifyFrequency maps a frequency in [0, 0.5] to its design class.
// Frequencies outside that range are a caller error.
func ClassifyFrequency(freq float64) (FrequencyClass, error) {
	switch {
	case math.IsNaN(freq) || freq < 0 || freq > 0.5:
		return 0, fmt.Errorf("qpe: frequency %v outside [0, 0.5]", freq)
	case freq == 0:
		return FreqZero, nil
	case freq == 0.5:
		return FreqNyquist, nil
	default:
		return FreqInterior, nil
	}
}

// HarmonicFit holds per-tau coefficients of a harmonic quantile regression:
// y ~ intercept + cos(2*pi*f*t) + sin(2*pi*f*t). For fits without an
// intercept the Intercept entries are zero; at the Nyquist frequency the Sin
// entries are zero.
type HarmonicFit struct {
	Freq      float64
	Taus      []float64
	Intercept []float64
	Cos       []float64
	Sin       []float64
}

// FitHarmonic fits y against a single harmonic at freq for every tau in
// taus. With an intercept the design is {1, cos, sin} in the interior,
// {1, cos} at Nyquist, and the pure empirical quantile at zero frequency.
// Without an intercept the intercept column is dropped and the zero-frequency
// fit is identically zero. A solver that fails to converge for one tau is
// absorbed: that tau gets the documented fallback (zero oscillation, and the
// empirical quantile as intercept when fitting with one) so a frequency sweep
// never aborts mid-grid.
func FitHarmonic(y []float64, freq float64, taus []float64, withIntercept bool, weights []float64) (*HarmonicFit, error) {
	class, err := ClassifyFrequency(freq)
	if err != nil {
		return nil, err
	}
	if len(y) == 0 {
		return nil, fmt.Errorf("qpe: empty series")
	}
	if weights != nil && len(weights) != len(y) {
		return nil, fmt.Errorf("qpe: weights length %d != series length %d", len(weights), len(y))
	}
	for _, tau := range taus {
		if tau <= 0 || tau >= 1 {
			return nil, fmt.Errorf("qpe: tau %v outside (0, 1)", tau)
		}
	}

	fit := &HarmonicFit{
		Freq:      freq,
		Taus:      taus,
		Intercept: make([]float64, len(taus)),
		Cos:       make([]float64, len(taus)),
		Sin:       make([]float64, len(taus)),
	}

	if class == FreqZero {
		if withIntercept {
			for ti, tau := range taus {
				fit.Intercept[ti] = quantreg.Quantile(y, tau)
			}
		}
		return fit, nil
	}

	design, hasSin := harmonicDesign(len(y), freq, class, withIntercept)
	for ti, tau := range taus {
		coefs, err := quantreg.Solve(design, y, tau, weights)
		if err != nil {
			// Fallback keeps the sweep total: zero oscillation, and the
			// empirical quantile as level when an intercept is present.
			if withIntercept {
				fit.Intercept[ti] = quantreg.Quantile(y, tau)
			}
			continue
		}
		k := 0
		if withIntercept {
			fit.Intercept[ti] = coefs[k]
			k++
		}
		fit.Cos[ti] = coefs[k]
		k++
		if hasSin {
			fit.Sin[ti] = coefs[k]
		}
	}
	return fit, nil
}

// harmonicDesign builds the regression design for one frequency. The sine
// column is omitted at Nyquist where sin(pi*t) samples to zero.
func harmonicDesign(n int, freq float64, class FrequencyClass, withIntercept bool) (x *mat.Dense, hasSin bool) {
	hasSin = class == FreqInterior
	cols := 1
	if hasSin {
		cols = 2
	}
	if withIntercept {
		cols++
	}
	x = mat.NewDense(n, cols, nil)
	for t := 0; t < n; t++ {
		arg := 2 * math.Pi * freq * float64(t)
		j := 0
		if withIntercept {
			x.Set(t, j, 1)
			j++
		}
		x.Set(t, j, math.Cos(arg))
		if hasSin {
			x.Set(t, j+1, math.Sin(arg))
		}
	}
	return x, hasSin
}

// fittedResiduals evaluates y minus the fitted harmonic for the tau at
// index ti.
func (f *HarmonicFit) fittedResiduals(y []float64, ti int, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(y))
	}
	for t := range y {
		arg := 2 * math.Pi * f.Freq * float64(t)
		fitted := f.Intercept[ti] + f.Cos[ti]*math.Cos(arg) + f.Sin[ti]*math.Sin(arg)
		dst[t] = y[t] - fitted
	}
	return dst
}
