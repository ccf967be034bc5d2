package qpe

import (
	"fmt"
	"strings"
	"sync"

	"github.com/banshee-data/spectral.report/internal/quantreg"
)

// Estimator selects how a harmonic fit is converted into a spectral value.
type Estimator int

const (
	// EstimatorCostDiff measures the check-loss reduction of the harmonic
	// fit relative to a quantile-only baseline.
	EstimatorCostDiff Estimator = iota
	// EstimatorCoefNorm measures the squared norm of the fitted
	// cosine/sine coefficient pair, scaled by series length.
	EstimatorCoefNorm
)

// String returns the configuration name of the estimator.
func (e Estimator) String() string {
	switch e {
	case EstimatorCostDiff:
		return "cost_diff"
	case EstimatorCoefNorm:
		return "coef_norm"
	default:
		return fmt.Sprintf("estimator(%d)", int(e))
	}
}

// ParseEstimator maps a configuration name to an Estimator.
func ParseEstimator(s string) (Estimator, error) {
	switch strings.ToLower(s) {
	case "cost_diff", "costdiff":
		return EstimatorCostDiff, nil
	case "coef_norm", "coefnorm":
		return EstimatorCoefNorm, nil
	default:
		return 0, fmt.Errorf("qpe: unknown estimator %q", s)
	}
}

// Options configures a periodogram computation.
type Options struct {
	Estimator     Estimator
	WithIntercept bool
	Weights       []float64 // nil means unit weights
	Workers       int       // frequency-loop parallelism; <1 means 1
}

// DefaultOptions returns the standard configuration: cost-difference
// estimator with an intercept, single worker.
func DefaultOptions() Options {
	return Options{Estimator: EstimatorCostDiff, WithIntercept: true, Workers: 1}
}

// Spectrum is a quantile periodogram: one non-negative value per
// (frequency, quantile) pair.
type Spectrum struct {
	Freqs  []float64
	Taus   []float64
	Values [][]float64 // indexed [frequency][tau]
}

// At returns the value at frequency index fi and tau index ti.
func (s *Spectrum) At(fi, ti int) float64 { return s.Values[fi][ti] }

// Squeeze returns the single-tau spectrum as a plain vector. It panics when
// the spectrum carries more than one quantile level.
func (s *Spectrum) Squeeze() []float64 {
	if len(s.Taus) != 1 {
		panic(fmt.Sprintf("qpe: Squeeze on spectrum with %d taus", len(s.Taus)))
	}
	out := make([]float64, len(s.Freqs))
	for fi := range s.Values {
		out[fi] = s.Values[fi][0]
	}
	return out
}

// Periodogram computes the quantile periodogram of y over a frequency and
// quantile grid. The frequency loop is embarrassingly parallel: each worker
// reads only the immutable inputs and writes its finished row into a
// pre-allocated slot, so any worker count produces identical results. All
// entries are clamped at zero; the estimators can go slightly negative from
// regression slack and non-negativity is a modelling constraint.
func Periodogram(y, freqs, taus []float64, opts Options) (*Spectrum, error) {
	if len(y) == 0 {
		return nil, fmt.Errorf("qpe: empty series")
	}
	if opts.Weights != nil && len(opts.Weights) != len(y) {
		return nil, fmt.Errorf("qpe: weights length %d != series length %d", len(opts.Weights), len(y))
	}
	for _, f := range freqs {
		if _, err := ClassifyFrequency(f); err != nil {
			return nil, err
		}
	}
	for _, tau := range taus {
		if tau <= 0 || tau >= 1 {
			return nil, fmt.Errorf("qpe: tau %v outside (0, 1)", tau)
		}
	}

	spec := &Spectrum{
		Freqs:  freqs,
		Taus:   taus,
		Values: make([][]float64, len(freqs)),
	}
	if len(freqs) == 0 || len(taus) == 0 {
		for fi := range spec.Values {
			spec.Values[fi] = make([]float64, 0)
		}
		return spec, nil
	}

	// The quantile-only baseline is shared by every frequency; computing it
	// per frequency would be both wasteful and wrong if it drifted.
	var cost0 []float64
	if opts.Estimator == EstimatorCostDiff {
		cost0 = baselineCosts(y, taus, opts.Weights)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(freqs) {
		workers = len(freqs)
	}

	idx := make(chan int)
	errs := make([]error, len(freqs))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fi := range idx {
				row, err := frequencyRow(y, freqs[fi], taus, opts, cost0)
				spec.Values[fi] = row
				errs[fi] = err
			}
		}()
	}
	for fi := range freqs {
		idx <- fi
	}
	close(idx)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	for fi := range spec.Values {
		for ti, v := range spec.Values[fi] {
			if v < 0 {
				spec.Values[fi][ti] = 0
			}
		}
	}
	return spec, nil
}

// baselineCosts computes the per-tau check loss of y centred at its
// empirical tau-quantile, once per call.
func baselineCosts(y, taus []float64, weights []float64) []float64 {
	cost0 := make([]float64, len(taus))
	resid := make([]float64, len(y))
	for ti, tau := range taus {
		q := quantreg.Quantile(y, tau)
		for i := range y {
			resid[i] = y[i] - q
		}
		cost0[ti] = quantreg.CheckLoss(resid, tau, weights)
	}
	return cost0
}

// frequencyRow computes one row of the periodogram: every tau at a single
// frequency.
func frequencyRow(y []float64, freq float64, taus []float64, opts Options, cost0 []float64) ([]float64, error) {
	row := make([]float64, len(taus))

	if opts.WithIntercept {
		// One batched call covers the whole tau grid.
		fit, err := FitHarmonic(y, freq, taus, true, opts.Weights)
		if err != nil {
			return nil, err
		}
		resid := make([]float64, len(y))
		for ti := range taus {
			switch opts.Estimator {
			case EstimatorCoefNorm:
				row[ti] = coefNorm(len(y), freq, fit.Cos[ti], fit.Sin[ti])
			default:
				fit.fittedResiduals(y, ti, resid)
				row[ti] = cost0[ti] - quantreg.CheckLoss(resid, taus[ti], opts.Weights)
			}
		}
		return row, nil
	}

	// Without an intercept the regression does not batch across tau.
	resid := make([]float64, len(y))
	for ti, tau := range taus {
		fit, err := FitHarmonic(y, freq, []float64{tau}, false, opts.Weights)
		if err != nil {
			return nil, err
		}
		switch opts.Estimator {
		case EstimatorCoefNorm:
			row[ti] = coefNorm(len(y), freq, fit.Cos[0], fit.Sin[0])
		default:
			fit.fittedResiduals(y, 0, resid)
			row[ti] = cost0[ti] - quantreg.CheckLoss(resid, tau, opts.Weights)
		}
	}
	return row, nil
}

// coefNorm converts a coefficient pair into the squared-norm spectral value.
// At the Nyquist frequency the sampled cosine carries half the true
// amplitude, so the coefficients are doubled before squaring.
func coefNorm(n int, freq float64, cosCoef, sinCoef float64) float64 {
	if freq == 0.5 {
		cosCoef *= 2
		sinCoef *= 2
	}
	return 0.25 * float64(n) * (cosCoef*cosCoef + sinCoef*sinCoef)
}
