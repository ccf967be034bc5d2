// Package quantreg provides weighted quantile (check-loss) regression for
// small design matrices, plus the check-loss and empirical-quantile helpers
// the spectral pipeline builds on.
package quantreg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNoConverge is returned by Solve when the iteration cap is reached before
// the coefficient update drops below tolerance. Callers are expected to
// substitute a documented fallback rather than abort a whole frequency sweep.
var ErrNoConverge = errors.New("quantreg: solver did not converge")

const (
	solveMaxIter = 200
	solveTol     = 1e-10

	// smoothingEps regularises the majorised check loss so the reweighted
	// least-squares step stays finite as residuals approach zero.
	smoothingEps = 1e-9
)

// Solve fits coefficients b minimising sum(w_i * rho_tau(y_i - x_i'b)) by
// iteratively reweighted least squares on a majorised check loss. The design
// x must have as many rows as y; weights may be nil for unit weights. The
// method is intended for the narrow designs (one to three columns) used by
// harmonic quantile regression and converges in a handful of iterations on
// well-conditioned inputs.
func Solve(x *mat.Dense, y []float64, tau float64, weights []float64) ([]float64, error) {
	n, p := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("quantreg: design has %d rows but response has %d values", n, len(y))
	}
	if tau <= 0 || tau >= 1 {
		return nil, fmt.Errorf("quantreg: tau must be in (0, 1), got %v", tau)
	}
	if weights != nil && len(weights) != n {
		return nil, fmt.Errorf("quantreg: weights length %d != response length %d", len(weights), n)
	}
	if n < p {
		return nil, fmt.Errorf("quantreg: underdetermined design (%d rows, %d columns)", n, p)
	}

	obsWeight := func(i int) float64 {
		if weights == nil {
			return 1
		}
		return weights[i]
	}

	// Start from the weighted least-squares solution; it is cheap and keeps
	// the first reweighting step well scaled.
	b, err := weightedLeastSquares(x, y, obsWeight, nil, tau)
	if err != nil {
		return nil, err
	}

	resid := make([]float64, n)
	for iter := 0; iter < solveMaxIter; iter++ {
		for i := 0; i < n; i++ {
			r := y[i]
			for j := 0; j < p; j++ {
				r -= x.At(i, j) * b[j]
			}
			resid[i] = r
		}

		next, err := weightedLeastSquares(x, y, obsWeight, resid, tau)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoConverge, err)
		}

		var maxDelta, maxCoef float64
		for j := 0; j < p; j++ {
			if d := math.Abs(next[j] - b[j]); d > maxDelta {
				maxDelta = d
			}
			if a := math.Abs(next[j]); a > maxCoef {
				maxCoef = a
			}
		}
		b = next
		if maxDelta <= solveTol*(1+maxCoef) {
			return b, nil
		}
	}
	return b, ErrNoConverge
}

// weightedLeastSquares solves the normal equations of one majorisation step.
// With resid == nil it solves plain weighted least squares (the starting
// point); otherwise each observation is additionally weighted by
// 1/(eps+|r_i|) and the right-hand side carries the (2*tau-1) asymmetry term.
func weightedLeastSquares(x *mat.Dense, y []float64, obsWeight func(int) float64, resid []float64, tau float64) ([]float64, error) {
	n, p := x.Dims()

	a := mat.NewDense(p, p, nil)
	rhs := mat.NewVecDense(p, nil)
	for i := 0; i < n; i++ {
		c := obsWeight(i)
		if c == 0 {
			continue
		}
		w := c
		if resid != nil {
			w = c / (smoothingEps + math.Abs(resid[i]))
		}
		for j := 0; j < p; j++ {
			xj := x.At(i, j)
			rhs.SetVec(j, rhs.AtVec(j)+w*xj*y[i])
			if resid != nil {
				rhs.SetVec(j, rhs.AtVec(j)+(2*tau-1)*c*xj)
			}
			for k := j; k < p; k++ {
				a.Set(j, k, a.At(j, k)+w*xj*x.At(i, k))
			}
		}
	}
	for j := 0; j < p; j++ {
		for k := 0; k < j; k++ {
			a.Set(j, k, a.At(k, j))
		}
	}

	var b mat.VecDense
	if err := b.SolveVec(a, rhs); err != nil {
		return nil, fmt.Errorf("normal equations singular: %v", err)
	}
	out := make([]float64, p)
	for j := 0; j < p; j++ {
		out[j] = b.AtVec(j)
	}
	return out, nil
}
