// Package classify trains a small ensemble of classifiers over projected
// spectral features: linear and quadratic discriminant analysis plus a
// linear SVM. A method that fails to fit is marked unavailable without
// taking the others down.
package classify

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Method names one classifier in the ensemble.
type Method string

const (
	MethodLDA       Method = "lda"
	MethodQDA       Method = "qda"
	MethodLinearSVM Method = "linear_svm"
)

// AllMethods lists every supported classifier.
var AllMethods = []Method{MethodLDA, MethodQDA, MethodLinearSVM}

// ParseMethod maps a configuration name to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(s)) {
	case MethodLDA, MethodQDA, MethodLinearSVM:
		return Method(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("classify: unknown method %q", s)
	}
}

// model is one trained decision rule over feature vectors.
type model interface {
	predict(features *mat.Dense) []string
}

// Ensemble holds the trained models. It is created once by Train and not
// mutated afterwards.
type Ensemble struct {
	Methods       []Method
	TrainAccuracy map[Method]float64
	FitError      map[Method]string // methods that failed to train

	models  map[Method]model
	classes []string
}

// Prediction holds per-method predicted labels, plus accuracies when true
// labels were supplied. Unavailable methods carry all-empty labels.
type Prediction struct {
	Labels   map[Method][]string
	Accuracy map[Method]float64
}

// Train fits every requested method on the feature matrix and labels.
// Individual fit failures (e.g. a singular covariance) are recorded in
// FitError; only structural problems (shape mismatches, no methods) are
// returned as errors.
func Train(features *mat.Dense, labels []string, methods []Method) (*Ensemble, error) {
	n, _ := features.Dims()
	if n != len(labels) {
		return nil, fmt.Errorf("classify: %d feature rows but %d labels", n, len(labels))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("classify: no methods requested")
	}

	classes := uniqueClasses(labels)
	if len(classes) < 2 {
		return nil, fmt.Errorf("classify: need at least 2 classes, got %d", len(classes))
	}

	e := &Ensemble{
		Methods:       methods,
		TrainAccuracy: make(map[Method]float64),
		FitError:      make(map[Method]string),
		models:        make(map[Method]model),
		classes:       classes,
	}
	for _, m := range methods {
		var fitted model
		var err error
		switch m {
		case MethodLDA:
			fitted, err = fitLDA(features, labels, classes)
		case MethodQDA:
			fitted, err = fitQDA(features, labels, classes)
		case MethodLinearSVM:
			fitted, err = fitLinearSVM(features, labels, classes)
		default:
			err = fmt.Errorf("unknown method %q", m)
		}
		if err != nil {
			e.FitError[m] = err.Error()
			continue
		}
		e.models[m] = fitted
		e.TrainAccuracy[m] = accuracy(fitted.predict(features), labels)
	}
	return e, nil
}

// Available reports whether a method trained successfully.
func (e *Ensemble) Available(m Method) bool {
	_, ok := e.models[m]
	return ok
}

// Classes returns the sorted class labels seen at training time.
func (e *Ensemble) Classes() []string { return e.classes }

// Predict scores the feature matrix with every method. When truth is
// non-nil it must match the row count and per-method accuracies are
// computed for the available methods.
func (e *Ensemble) Predict(features *mat.Dense, truth []string) (*Prediction, error) {
	n, _ := features.Dims()
	if truth != nil && len(truth) != n {
		return nil, fmt.Errorf("classify: %d feature rows but %d true labels", n, len(truth))
	}

	pred := &Prediction{
		Labels:   make(map[Method][]string),
		Accuracy: make(map[Method]float64),
	}
	for _, m := range e.Methods {
		fitted, ok := e.models[m]
		if !ok {
			pred.Labels[m] = make([]string, n)
			continue
		}
		labels := fitted.predict(features)
		pred.Labels[m] = labels
		if truth != nil {
			pred.Accuracy[m] = accuracy(labels, truth)
		}
	}
	return pred, nil
}

func uniqueClasses(labels []string) []string {
	seen := make(map[string]bool)
	var classes []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	return classes
}

func accuracy(predicted, truth []string) float64 {
	if len(truth) == 0 {
		return 0
	}
	correct := 0
	for i := range truth {
		if predicted[i] == truth[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(truth))
}

// classMeans computes per-class sample means and counts.
func classMeans(features *mat.Dense, labels []string, classes []string) (means map[string][]float64, counts map[string]int) {
	_, p := features.Dims()
	means = make(map[string][]float64, len(classes))
	counts = make(map[string]int, len(classes))
	for _, c := range classes {
		means[c] = make([]float64, p)
	}
	for i, l := range labels {
		counts[l]++
		for j := 0; j < p; j++ {
			means[l][j] += features.At(i, j)
		}
	}
	for _, c := range classes {
		for j := range means[c] {
			means[c][j] /= float64(counts[c])
		}
	}
	return means, counts
}
