package spectra

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func randomMatrix(n, d int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
	}
	return x
}

func TestFitPCA_ExplainedVarianceOrdered(t *testing.T) {
	x := randomMatrix(20, 6, 42)
	p, err := FitPCA(x)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	for i := 1; i < len(p.ExplainedVar); i++ {
		if p.ExplainedVar[i] > p.ExplainedVar[i-1] {
			t.Errorf("explained variance not decreasing at %d: %v > %v", i, p.ExplainedVar[i], p.ExplainedVar[i-1])
		}
	}
}

func TestFitPCA_RotationOrthonormal(t *testing.T) {
	x := randomMatrix(15, 5, 7)
	p, err := FitPCA(x)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	c := p.Components()
	var gram mat.Dense
	gram.Mul(p.Rotation.T(), p.Rotation)
	for i := 0; i < c; i++ {
		for j := 0; j < c; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(gram.At(i, j)-want) > 1e-10 {
				t.Errorf("R'R[%d,%d] = %v, want %v", i, j, gram.At(i, j), want)
			}
		}
	}
}

func TestPCA_ReconstructionRoundTrip(t *testing.T) {
	x := randomMatrix(12, 4, 3)
	p, err := FitPCA(x)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}

	scores, err := p.Project(x, nil)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	back, err := p.Reconstruct(scores, nil)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}

	n, d := x.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			if math.Abs(x.At(i, j)-back.At(i, j)) > 1e-9 {
				t.Fatalf("reconstruction differs at (%d,%d): %v != %v", i, j, back.At(i, j), x.At(i, j))
			}
		}
	}
}

func TestPCA_ProjectOutOfSample(t *testing.T) {
	train := randomMatrix(10, 3, 1)
	p, err := FitPCA(train)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}

	// Out-of-sample data with matching width projects without refitting.
	test := randomMatrix(4, 3, 2)
	scores, err := p.Project(test, []int{0, 1})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	rows, cols := scores.Dims()
	if rows != 4 || cols != 2 {
		t.Errorf("projected shape = %dx%d, want 4x2", rows, cols)
	}
}

func TestPCA_ProjectContractViolations(t *testing.T) {
	p, err := FitPCA(randomMatrix(8, 3, 5))
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	if _, err := p.Project(randomMatrix(4, 5, 6), nil); err == nil {
		t.Error("expected error for mismatched feature dimensionality")
	}
	if _, err := p.Project(randomMatrix(4, 3, 6), []int{9}); err == nil {
		t.Error("expected error for out-of-range component index")
	}
}

func TestFitPCA_FirstComponentTracksDominantDirection(t *testing.T) {
	// Points spread along (1,1)/sqrt(2) with tiny orthogonal noise: the
	// first component must align with that direction.
	rng := rand.New(rand.NewSource(9))
	x := mat.NewDense(40, 2, nil)
	for i := 0; i < 40; i++ {
		s := rng.NormFloat64() * 5
		e := rng.NormFloat64() * 0.01
		x.Set(i, 0, s+e)
		x.Set(i, 1, s-e)
	}
	p, err := FitPCA(x)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	v0, v1 := p.Rotation.At(0, 0), p.Rotation.At(1, 0)
	dot := math.Abs(v0+v1) / math.Sqrt2
	if dot < 0.999 {
		t.Errorf("first component %v,%v not aligned with (1,1): |dot| = %v", v0, v1, dot)
	}
	if p.ExplainedVar[0] < 100*p.ExplainedVar[1] {
		t.Errorf("variance not concentrated in first component: %v", p.ExplainedVar)
	}
}
