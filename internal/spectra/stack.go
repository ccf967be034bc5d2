// Package spectra turns per-series quantile periodograms into feature
// matrices and reduces them with principal component analysis.
package spectra

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/spectral.report/internal/qpe"
)

// Stack collects the periodograms of many series sharing one frequency and
// quantile grid. Grid identity is an invariant checked on every Add.
type Stack struct {
	Freqs []float64
	Taus  []float64
	specs []*qpe.Spectrum
}

// NewStack creates an empty stack over the given grids.
func NewStack(freqs, taus []float64) *Stack {
	return &Stack{Freqs: freqs, Taus: taus}
}

// Len returns the number of stacked periodograms.
func (s *Stack) Len() int { return len(s.specs) }

// Add appends one periodogram, rejecting any grid mismatch.
func (s *Stack) Add(spec *qpe.Spectrum) error {
	if err := sameGrid(s.Freqs, spec.Freqs, "frequency"); err != nil {
		return err
	}
	if err := sameGrid(s.Taus, spec.Taus, "tau"); err != nil {
		return err
	}
	s.specs = append(s.specs, spec)
	return nil
}

func sameGrid(want, got []float64, name string) error {
	if len(want) != len(got) {
		return fmt.Errorf("spectra: %s grid has %d points, stack expects %d", name, len(got), len(want))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("spectra: %s grid differs at index %d (%v != %v)", name, i, got[i], want[i])
		}
	}
	return nil
}

// Flatten produces the feature matrix of the stack: one row per series, one
// column per selected (frequency, tau) cell. Nil selections mean all
// indices. Ordering is frequency-major: tau varies fastest, so the feature
// at column fi*len(tauSel)+ti belongs to (freqSel[fi], tauSel[ti]). Train
// and test features must use the same selection for PCA rotations to line
// up.
func (s *Stack) Flatten(freqSel, tauSel []int) (*mat.Dense, error) {
	freqSel, tauSel, err := s.selections(freqSel, tauSel)
	if err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("spectra: flatten of empty stack")
	}

	out := mat.NewDense(s.Len(), len(freqSel)*len(tauSel), nil)
	for i, spec := range s.specs {
		row, err := FlattenSpectrum(spec, freqSel, tauSel)
		if err != nil {
			return nil, err
		}
		out.SetRow(i, row)
	}
	return out, nil
}

func (s *Stack) selections(freqSel, tauSel []int) ([]int, []int, error) {
	if freqSel == nil {
		freqSel = allIndices(len(s.Freqs))
	}
	if tauSel == nil {
		tauSel = allIndices(len(s.Taus))
	}
	for _, fi := range freqSel {
		if fi < 0 || fi >= len(s.Freqs) {
			return nil, nil, fmt.Errorf("spectra: frequency index %d out of range [0,%d)", fi, len(s.Freqs))
		}
	}
	for _, ti := range tauSel {
		if ti < 0 || ti >= len(s.Taus) {
			return nil, nil, fmt.Errorf("spectra: tau index %d out of range [0,%d)", ti, len(s.Taus))
		}
	}
	return freqSel, tauSel, nil
}

func allIndices(n int) []int {
	sel := make([]int, n)
	for i := range sel {
		sel[i] = i
	}
	return sel
}

// FlattenSpectrum flattens a single periodogram with the same frequency-major
// ordering used by Stack.Flatten. Nil selections mean all indices.
func FlattenSpectrum(spec *qpe.Spectrum, freqSel, tauSel []int) ([]float64, error) {
	if freqSel == nil {
		freqSel = allIndices(len(spec.Freqs))
	}
	if tauSel == nil {
		tauSel = allIndices(len(spec.Taus))
	}
	out := make([]float64, 0, len(freqSel)*len(tauSel))
	for _, fi := range freqSel {
		if fi < 0 || fi >= len(spec.Freqs) {
			return nil, fmt.Errorf("spectra: frequency index %d out of range [0,%d)", fi, len(spec.Freqs))
		}
		for _, ti := range tauSel {
			if ti < 0 || ti >= len(spec.Taus) {
				return nil, fmt.Errorf("spectra: tau index %d out of range [0,%d)", ti, len(spec.Taus))
			}
			out = append(out, spec.At(fi, ti))
		}
	}
	return out, nil
}

// UnflattenSpectrum inverts FlattenSpectrum for a selection of known shape,
// returning the nFreq x nTau sub-matrix.
func UnflattenSpectrum(features []float64, nFreq, nTau int) ([][]float64, error) {
	if len(features) != nFreq*nTau {
		return nil, fmt.Errorf("spectra: %d features do not fill a %dx%d matrix", len(features), nFreq, nTau)
	}
	out := make([][]float64, nFreq)
	for fi := 0; fi < nFreq; fi++ {
		out[fi] = make([]float64, nTau)
		copy(out[fi], features[fi*nTau:(fi+1)*nTau])
	}
	return out, nil
}
