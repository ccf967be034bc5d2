package classify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ldaModel is linear discriminant analysis: shared (pooled) covariance, one
// linear score per class.
type ldaModel struct {
	classes []string
	weights map[string]*mat.VecDense // pooled-covariance-whitened class means
	offsets map[string]float64       // -0.5*mu'S^-1*mu + log prior
}

func fitLDA(features *mat.Dense, labels []string, classes []string) (model, error) {
	n, p := features.Dims()
	if n <= len(classes) {
		return nil, fmt.Errorf("lda: %d samples cannot support %d classes", n, len(classes))
	}

	means, counts := classMeans(features, labels, classes)

	// Pooled within-class covariance with denominator N-K.
	pooled := mat.NewSymDense(p, nil)
	for i, l := range labels {
		mu := means[l]
		for j := 0; j < p; j++ {
			dj := features.At(i, j) - mu[j]
			for k := j; k < p; k++ {
				pooled.SetSym(j, k, pooled.At(j, k)+dj*(features.At(i, k)-mu[k]))
			}
		}
	}
	denom := float64(n - len(classes))
	for j := 0; j < p; j++ {
		for k := j; k < p; k++ {
			pooled.SetSym(j, k, pooled.At(j, k)/denom)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(pooled); !ok {
		return nil, fmt.Errorf("lda: pooled covariance is singular")
	}

	m := &ldaModel{
		classes: classes,
		weights: make(map[string]*mat.VecDense, len(classes)),
		offsets: make(map[string]float64, len(classes)),
	}
	for _, c := range classes {
		mu := mat.NewVecDense(p, means[c])
		w := mat.NewVecDense(p, nil)
		if err := chol.SolveVecTo(w, mu); err != nil {
			return nil, fmt.Errorf("lda: solving for class %q: %v", c, err)
		}
		prior := float64(counts[c]) / float64(n)
		m.weights[c] = w
		m.offsets[c] = -0.5*mat.Dot(mu, w) + math.Log(prior)
	}
	return m, nil
}

func (m *ldaModel) predict(features *mat.Dense) []string {
	n, p := features.Dims()
	out := make([]string, n)
	x := mat.NewVecDense(p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			x.SetVec(j, features.At(i, j))
		}
		best := math.Inf(-1)
		for _, c := range m.classes {
			score := mat.Dot(x, m.weights[c]) + m.offsets[c]
			if score > best {
				best = score
				out[i] = c
			}
		}
	}
	return out
}

// qdaModel is quadratic discriminant analysis: one covariance per class.
type qdaModel struct {
	classes []string
	means   map[string][]float64
	chols   map[string]*mat.Cholesky
	offsets map[string]float64 // -0.5*logdet + log prior
}

func fitQDA(features *mat.Dense, labels []string, classes []string) (model, error) {
	n, p := features.Dims()
	means, counts := classMeans(features, labels, classes)

	m := &qdaModel{
		classes: classes,
		means:   means,
		chols:   make(map[string]*mat.Cholesky, len(classes)),
		offsets: make(map[string]float64, len(classes)),
	}
	for _, c := range classes {
		if counts[c] <= p {
			return nil, fmt.Errorf("qda: class %q has %d samples for %d features", c, counts[c], p)
		}
		cov := mat.NewSymDense(p, nil)
		mu := means[c]
		for i, l := range labels {
			if l != c {
				continue
			}
			for j := 0; j < p; j++ {
				dj := features.At(i, j) - mu[j]
				for k := j; k < p; k++ {
					cov.SetSym(j, k, cov.At(j, k)+dj*(features.At(i, k)-mu[k]))
				}
			}
		}
		denom := float64(counts[c] - 1)
		for j := 0; j < p; j++ {
			for k := j; k < p; k++ {
				cov.SetSym(j, k, cov.At(j, k)/denom)
			}
		}

		chol := &mat.Cholesky{}
		if ok := chol.Factorize(cov); !ok {
			return nil, fmt.Errorf("qda: covariance for class %q is singular", c)
		}
		prior := float64(counts[c]) / float64(n)
		m.chols[c] = chol
		m.offsets[c] = -0.5*chol.LogDet() + math.Log(prior)
	}
	return m, nil
}

func (m *qdaModel) predict(features *mat.Dense) []string {
	n, p := features.Dims()
	out := make([]string, n)
	diff := mat.NewVecDense(p, nil)
	solved := mat.NewVecDense(p, nil)
	for i := 0; i < n; i++ {
		best := math.Inf(-1)
		for _, c := range m.classes {
			mu := m.means[c]
			for j := 0; j < p; j++ {
				diff.SetVec(j, features.At(i, j)-mu[j])
			}
			if err := m.chols[c].SolveVecTo(solved, diff); err != nil {
				continue
			}
			score := m.offsets[c] - 0.5*mat.Dot(diff, solved)
			if score > best {
				best = score
				out[i] = c
			}
		}
	}
	return out
}
