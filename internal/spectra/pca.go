package spectra

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PCA is a fitted principal component model: a column-mean centre, an
// orthonormal rotation with components ordered by decreasing explained
// variance, and the variances themselves. Fit once on training features and
// reuse for every projection.
type PCA struct {
	Center       []float64
	Rotation     *mat.Dense // D x C, orthonormal columns
	ExplainedVar []float64  // length C, decreasing
}

// FitPCA computes the principal components of the rows of x via the thin
// SVD of the column-centred matrix. With N rows and D columns the model
// carries min(N, D) components.
func FitPCA(x *mat.Dense) (*PCA, error) {
	n, d := x.Dims()
	if n < 2 {
		return nil, fmt.Errorf("spectra: need at least 2 rows to fit PCA, got %d", n)
	}

	center := make([]float64, d)
	for j := 0; j < d; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += x.At(i, j)
		}
		center[j] = sum / float64(n)
	}

	centred := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			centred.Set(i, j, x.At(i, j)-center[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(centred, mat.SVDThin); !ok {
		return nil, fmt.Errorf("spectra: SVD of centred feature matrix failed")
	}

	var rotation mat.Dense
	svd.VTo(&rotation)

	values := svd.Values(nil)
	explained := make([]float64, len(values))
	for i, sv := range values {
		explained[i] = sv * sv / float64(n-1)
	}

	return &PCA{Center: center, Rotation: &rotation, ExplainedVar: explained}, nil
}

// Components returns the number of components the model carries.
func (p *PCA) Components() int {
	_, c := p.Rotation.Dims()
	return c
}

// Project maps data onto the selected components: (data - center) * R[:, components].
// A nil component selection projects onto every component. The data must
// have the training dimensionality; this works identically in-sample and
// out-of-sample, with no refitting.
func (p *PCA) Project(data *mat.Dense, components []int) (*mat.Dense, error) {
	m, d := data.Dims()
	if d != len(p.Center) {
		return nil, fmt.Errorf("spectra: data has %d columns, model was fitted on %d", d, len(p.Center))
	}
	if components == nil {
		components = allIndices(p.Components())
	}
	for _, c := range components {
		if c < 0 || c >= p.Components() {
			return nil, fmt.Errorf("spectra: component index %d out of range [0,%d)", c, p.Components())
		}
	}

	centred := mat.NewDense(m, d, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < d; j++ {
			centred.Set(i, j, data.At(i, j)-p.Center[j])
		}
	}

	sub := mat.NewDense(d, len(components), nil)
	for k, c := range components {
		for j := 0; j < d; j++ {
			sub.Set(j, k, p.Rotation.At(j, c))
		}
	}

	out := mat.NewDense(m, len(components), nil)
	out.Mul(centred, sub)
	return out, nil
}

// Reconstruct maps projected scores back to the original feature space:
// center + scores * R[:, components]'. With every component this inverts
// Project up to floating error.
func (p *PCA) Reconstruct(scores *mat.Dense, components []int) (*mat.Dense, error) {
	m, c := scores.Dims()
	if components == nil {
		components = allIndices(p.Components())
	}
	if c != len(components) {
		return nil, fmt.Errorf("spectra: %d score columns for %d components", c, len(components))
	}

	d := len(p.Center)
	sub := mat.NewDense(d, len(components), nil)
	for k, comp := range components {
		if comp < 0 || comp >= p.Components() {
			return nil, fmt.Errorf("spectra: component index %d out of range [0,%d)", comp, p.Components())
		}
		for j := 0; j < d; j++ {
			sub.Set(j, k, p.Rotation.At(j, comp))
		}
	}

	out := mat.NewDense(m, d, nil)
	out.Mul(scores, sub.T())
	for i := 0; i < m; i++ {
		for j := 0; j < d; j++ {
			out.Set(i, j, out.At(i, j)+p.Center[j])
		}
	}
	return out, nil
}
