package classify

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	svmLambda = 1e-3
	svmEpochs = 50
)

// svmModel is a set of one-vs-rest linear SVMs trained by deterministic
// subgradient descent on the regularised hinge loss. With two classes a
// single separating hyperplane is trained.
type svmModel struct {
	classes []string
	weights [][]float64 // one hyperplane per class (binary: one total)
	bias    []float64
	binary  bool
}

func fitLinearSVM(features *mat.Dense, labels []string, classes []string) (model, error) {
	n, _ := features.Dims()
	if n < 2 {
		return nil, fmt.Errorf("linear_svm: need at least 2 samples, got %d", n)
	}

	m := &svmModel{classes: classes, binary: len(classes) == 2}
	planes := len(classes)
	if m.binary {
		planes = 1
	}
	m.weights = make([][]float64, planes)
	m.bias = make([]float64, planes)
	for k := 0; k < planes; k++ {
		positive := classes[k]
		if m.binary {
			// Single plane separates classes[0] (negative) from classes[1].
			positive = classes[1]
		}
		y := make([]float64, n)
		for i, l := range labels {
			if l == positive {
				y[i] = 1
			} else {
				y[i] = -1
			}
		}
		m.weights[k] = trainHingePlane(features, y, &m.bias[k])
	}
	return m, nil
}

// trainHingePlane runs Pegasos-style subgradient descent. Samples are
// visited in a fixed cyclic order so the fit is deterministic.
func trainHingePlane(features *mat.Dense, y []float64, bias *float64) []float64 {
	n, p := features.Dims()
	w := make([]float64, p)
	b := 0.0
	step := 0
	for epoch := 0; epoch < svmEpochs; epoch++ {
		for i := 0; i < n; i++ {
			step++
			eta := 1 / (svmLambda * float64(step))
			margin := b
			for j := 0; j < p; j++ {
				margin += w[j] * features.At(i, j)
			}
			margin *= y[i]

			decay := 1 - eta*svmLambda
			for j := 0; j < p; j++ {
				w[j] *= decay
			}
			if margin < 1 {
				for j := 0; j < p; j++ {
					w[j] += eta * y[i] * features.At(i, j)
				}
				b += eta * y[i]
			}
		}
	}
	*bias = b
	return w
}

func (m *svmModel) predict(features *mat.Dense) []string {
	n, p := features.Dims()
	out := make([]string, n)
	for i := 0; i < n; i++ {
		if m.binary {
			score := m.bias[0]
			for j := 0; j < p; j++ {
				score += m.weights[0][j] * features.At(i, j)
			}
			if score >= 0 {
				out[i] = m.classes[1]
			} else {
				out[i] = m.classes[0]
			}
			continue
		}
		bestScore := 0.0
		bestSet := false
		for k, c := range m.classes {
			score := m.bias[k]
			for j := 0; j < p; j++ {
				score += m.weights[k][j] * features.At(i, j)
			}
			if !bestSet || score > bestScore {
				bestScore = score
				bestSet = true
				out[i] = c
			}
		}
	}
	return out
}
