package qpe

import (
	"math"
	"math/rand"
	"testing"
)

func noiseSeries(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	y := make([]float64, n)
	for i := range y {
		y[i] = rng.NormFloat64()
	}
	return y
}

func fourierGrid(n int) []float64 {
	freqs := make([]float64, 0, n/2)
	for k := 1; k < n/2; k++ {
		freqs = append(freqs, float64(k)/float64(n))
	}
	return freqs
}

func TestPeriodogram_NonNegative(t *testing.T) {
	y := noiseSeries(48, 7)
	taus := []float64{0.1, 0.5, 0.9}
	for _, est := range []Estimator{EstimatorCostDiff, EstimatorCoefNorm} {
		opts := DefaultOptions()
		opts.Estimator = est
		spec, err := Periodogram(y, fourierGrid(48), taus, opts)
		if err != nil {
			t.Fatalf("%v: %v", est, err)
		}
		for fi := range spec.Values {
			for ti, v := range spec.Values[fi] {
				if v < 0 {
					t.Errorf("%v: negative entry %v at freq %v tau %v", est, v, spec.Freqs[fi], taus[ti])
				}
			}
		}
	}
}

func TestPeriodogram_ZeroFrequencyCostDiffIsZero(t *testing.T) {
	// At f=0 the harmonic fit with intercept is the quantile-only baseline,
	// so the cost difference must be exactly zero for every tau.
	y := noiseSeries(64, 3)
	taus := []float64{0.06, 0.25, 0.5, 0.75, 0.94}
	spec, err := Periodogram(y, []float64{0}, taus, DefaultOptions())
	if err != nil {
		t.Fatalf("Periodogram: %v", err)
	}
	for ti := range taus {
		if got := spec.At(0, ti); got != 0 {
			t.Errorf("tau %v: estimate at f=0 is %v, want exactly 0", taus[ti], got)
		}
	}
}

func TestPeriodogram_NyquistCoefNormDoubling(t *testing.T) {
	y := cosineSeries(32, 0.5, 0, 1)
	opts := DefaultOptions()
	opts.Estimator = EstimatorCoefNorm
	spec, err := Periodogram(y, []float64{0.5}, []float64{0.5}, opts)
	if err != nil {
		t.Fatalf("Periodogram: %v", err)
	}

	fit, err := FitHarmonic(y, 0.5, []float64{0.5}, true, nil)
	if err != nil {
		t.Fatalf("FitHarmonic: %v", err)
	}
	undoubled := 0.25 * float64(len(y)) * (fit.Cos[0]*fit.Cos[0] + fit.Sin[0]*fit.Sin[0])
	if math.Abs(spec.At(0, 0)-4*undoubled) > 1e-8*math.Abs(spec.At(0, 0)) {
		t.Errorf("Nyquist estimate = %v, want 4x the undoubled value %v", spec.At(0, 0), undoubled)
	}
}

func TestPeriodogram_WorkerCountInvariance(t *testing.T) {
	y := noiseSeries(64, 11)
	taus := []float64{0.2, 0.5, 0.8}
	freqs := fourierGrid(64)

	one := DefaultOptions()
	one.Workers = 1
	four := DefaultOptions()
	four.Workers = 4

	specOne, err := Periodogram(y, freqs, taus, one)
	if err != nil {
		t.Fatalf("workers=1: %v", err)
	}
	specFour, err := Periodogram(y, freqs, taus, four)
	if err != nil {
		t.Fatalf("workers=4: %v", err)
	}
	for fi := range freqs {
		for ti := range taus {
			a, b := specOne.At(fi, ti), specFour.At(fi, ti)
			if math.Abs(a-b) > 1e-10 {
				t.Errorf("freq %v tau %v: workers=1 gives %v, workers=4 gives %v", freqs[fi], taus[ti], a, b)
			}
		}
	}
}

func TestPeriodogram_SinusoidPeak(t *testing.T) {
	// 64-sample cosine at f=0.1: the cost reduction at the true frequency
	// should dominate its grid neighbours by more than 2x.
	y := cosineSeries(64, 0.1, 0, 1)
	spec, err := Periodogram(y, []float64{0.05, 0.1, 0.15}, []float64{0.5}, DefaultOptions())
	if err != nil {
		t.Fatalf("Periodogram: %v", err)
	}
	v := spec.Squeeze()
	if v[1] <= 2*v[0] || v[1] <= 2*v[2] {
		t.Errorf("no dominant peak at f=0.1: %v", v)
	}
}

func TestPeriodogram_NoInterceptMatchesInterceptOnCentredCosine(t *testing.T) {
	// Sanity check for the no-intercept branch: a zero-level cosine gives a
	// strong peak at its frequency without an intercept column too.
	y := cosineSeries(64, 0.125, 0, 1)
	opts := DefaultOptions()
	opts.WithIntercept = false
	spec, err := Periodogram(y, []float64{0.0625, 0.125, 0.25}, []float64{0.5}, opts)
	if err != nil {
		t.Fatalf("Periodogram: %v", err)
	}
	v := spec.Squeeze()
	if v[1] <= 2*v[0] || v[1] <= 2*v[2] {
		t.Errorf("no dominant peak at f=0.125 without intercept: %v", v)
	}
}

func TestPeriodogram_EmptyGrids(t *testing.T) {
	y := noiseSeries(16, 1)
	spec, err := Periodogram(y, nil, []float64{0.5}, DefaultOptions())
	if err != nil {
		t.Fatalf("empty frequency grid: %v", err)
	}
	if len(spec.Values) != 0 {
		t.Errorf("empty frequency grid produced %d rows", len(spec.Values))
	}

	spec, err = Periodogram(y, []float64{0.25}, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("empty tau grid: %v", err)
	}
	if len(spec.Values) != 1 || len(spec.Values[0]) != 0 {
		t.Errorf("empty tau grid produced unexpected shape: %v", spec.Values)
	}
}

func TestPeriodogram_ContractViolations(t *testing.T) {
	y := noiseSeries(16, 2)
	if _, err := Periodogram(y, []float64{0.75}, []float64{0.5}, DefaultOptions()); err == nil {
		t.Error("expected error for frequency above Nyquist")
	}
	if _, err := Periodogram(y, []float64{0.25}, []float64{-0.5}, DefaultOptions()); err == nil {
		t.Error("expected error for negative tau")
	}
	if _, err := Periodogram(nil, []float64{0.25}, []float64{0.5}, DefaultOptions()); err == nil {
		t.Error("expected error for empty series")
	}
}

func TestEstimatorParseRoundTrip(t *testing.T) {
	for _, est := range []Estimator{EstimatorCostDiff, EstimatorCoefNorm} {
		got, err := ParseEstimator(est.String())
		if err != nil {
			t.Fatalf("ParseEstimator(%q): %v", est.String(), err)
		}
		if got != est {
			t.Errorf("round trip %v -> %v", est, got)
		}
	}
	if _, err := ParseEstimator("fourier"); err == nil {
		t.Error("expected error for unknown estimator name")
	}
}
