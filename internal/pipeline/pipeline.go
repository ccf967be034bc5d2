// Package pipeline wires the full analysis together: per-series quantile
// periodograms, feature flattening, PCA reduction, and classifier training
// and evaluation over a train/test split.
package pipeline

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/spectral.report/internal/classify"
	"github.com/banshee-data/spectral.report/internal/config"
	"github.com/banshee-data/spectral.report/internal/qpe"
	"github.com/banshee-data/spectral.report/internal/spectra"
)

// ClassData is the input for one class: a name and its series, all of one
// shared length.
type ClassData struct {
	Name   string
	Series [][]float64
}

// Params configures a run. Zero values are not defaulted here; build Params
// from config.AnalysisConfig (see FromConfig) or set every field.
type Params struct {
	Taus          []float64
	Estimator     qpe.Estimator
	WithIntercept bool
	Workers       int
	Components    int
	Methods       []classify.Method
	TrainFraction float64
	Seed          int64
}

// FromConfig translates a validated AnalysisConfig into runtime parameters.
func FromConfig(cfg *config.AnalysisConfig) (Params, error) {
	est, err := qpe.ParseEstimator(*cfg.Estimator)
	if err != nil {
		return Params{}, err
	}
	methods := make([]classify.Method, 0, len(cfg.Methods))
	for _, name := range cfg.Methods {
		m, err := classify.ParseMethod(name)
		if err != nil {
			return Params{}, err
		}
		methods = append(methods, m)
	}
	return Params{
		Taus:          cfg.TauGrid(),
		Estimator:     est,
		WithIntercept: *cfg.WithIntercept,
		Workers:       *cfg.Workers,
		Components:    *cfg.Components,
		Methods:       methods,
		TrainFraction: *cfg.TrainFraction,
		Seed:          *cfg.Seed,
	}, nil
}

// SplitCounts records the train/test sizes of one class.
type SplitCounts struct {
	Train int
	Test  int
}

// Result carries everything a caller needs to report or persist a run.
type Result struct {
	Freqs []float64
	Taus  []float64

	TrainAccuracy map[classify.Method]float64
	TestAccuracy  map[classify.Method]float64
	FitErrors     map[classify.Method]string
	ClassCounts   map[string]SplitCounts

	PCA          *spectra.PCA
	SeriesLength int
	NSeries      int
}

// Run executes the pipeline on in-memory class data. The frequency loop
// inside each periodogram runs on p.Workers goroutines; the series loop is
// sequential so the two levels do not multiply into oversubscription.
func Run(classes []ClassData, p Params) (*Result, error) {
	if len(classes) < 2 {
		return nil, fmt.Errorf("pipeline: need at least 2 classes, got %d", len(classes))
	}
	n := 0
	for _, c := range classes {
		if len(c.Series) < 2 {
			return nil, fmt.Errorf("pipeline: class %q has %d series, need at least 2 for a split", c.Name, len(c.Series))
		}
		for _, s := range c.Series {
			if n == 0 {
				n = len(s)
			}
			if len(s) != n {
				return nil, fmt.Errorf("pipeline: class %q mixes series lengths %d and %d", c.Name, n, len(s))
			}
		}
	}
	if p.TrainFraction <= 0 || p.TrainFraction >= 1 {
		return nil, fmt.Errorf("pipeline: train fraction %v outside (0, 1)", p.TrainFraction)
	}

	freqs := config.FrequencyGrid(n)
	opts := qpe.Options{
		Estimator:     p.Estimator,
		WithIntercept: p.WithIntercept,
		Workers:       p.Workers,
	}

	stack := spectra.NewStack(freqs, p.Taus)
	var labels []string
	for _, c := range classes {
		for _, s := range c.Series {
			spec, err := qpe.Periodogram(s, freqs, p.Taus, opts)
			if err != nil {
				return nil, fmt.Errorf("pipeline: class %q: %w", c.Name, err)
			}
			if err := stack.Add(spec); err != nil {
				return nil, err
			}
			labels = append(labels, c.Name)
		}
	}

	features, err := stack.Flatten(nil, nil)
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx, counts := stratifiedSplit(labels, p.TrainFraction, p.Seed)
	trainX, trainY := subset(features, labels, trainIdx)
	testX, testY := subset(features, labels, testIdx)

	pca, err := spectra.FitPCA(trainX)
	if err != nil {
		return nil, err
	}
	nComp := p.Components
	if nComp > pca.Components() {
		nComp = pca.Components()
	}
	comps := make([]int, nComp)
	for i := range comps {
		comps[i] = i
	}

	trainProj, err := pca.Project(trainX, comps)
	if err != nil {
		return nil, err
	}
	testProj, err := pca.Project(testX, comps)
	if err != nil {
		return nil, err
	}

	ensemble, err := classify.Train(trainProj, trainY, p.Methods)
	if err != nil {
		return nil, err
	}
	pred, err := ensemble.Predict(testProj, testY)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Freqs:         freqs,
		Taus:          p.Taus,
		TrainAccuracy: ensemble.TrainAccuracy,
		TestAccuracy:  make(map[classify.Method]float64),
		FitErrors:     ensemble.FitError,
		ClassCounts:   counts,
		PCA:           pca,
		SeriesLength:  n,
		NSeries:       len(labels),
	}
	for _, m := range p.Methods {
		if ensemble.Available(m) {
			res.TestAccuracy[m] = pred.Accuracy[m]
		}
	}
	return res, nil
}

// stratifiedSplit shuffles each class independently with a seeded RNG so a
// fixed seed always yields the same split, then takes the leading fraction
// of every class as training data. Every class keeps at least one sample on
// each side.
func stratifiedSplit(labels []string, trainFraction float64, seed int64) (trainIdx, testIdx []int, counts map[string]SplitCounts) {
	byClass := make(map[string][]int)
	var order []string
	for i, l := range labels {
		if _, ok := byClass[l]; !ok {
			order = append(order, l)
		}
		byClass[l] = append(byClass[l], i)
	}
	sort.Strings(order)

	rng := rand.New(rand.NewSource(seed))
	counts = make(map[string]SplitCounts)
	for _, c := range order {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTrain := int(float64(len(idx)) * trainFraction)
		if nTrain < 1 {
			nTrain = 1
		}
		if nTrain >= len(idx) {
			nTrain = len(idx) - 1
		}
		trainIdx = append(trainIdx, idx[:nTrain]...)
		testIdx = append(testIdx, idx[nTrain:]...)
		counts[c] = SplitCounts{Train: nTrain, Test: len(idx) - nTrain}
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx, counts
}

// subset extracts the rows of x and entries of labels named by idx.
func subset(x *mat.Dense, labels []string, idx []int) (*mat.Dense, []string) {
	_, d := x.Dims()
	out := mat.NewDense(len(idx), d, nil)
	outLabels := make([]string, len(idx))
	for k, i := range idx {
		for j := 0; j < d; j++ {
			out.Set(k, j, x.At(i, j))
		}
		outLabels[k] = labels[i]
	}
	return out, outLabels
}
