package sensorlog

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeCapture writes a header followed by (index, sample) pairs.
func writeCapture(t *testing.T, samples []float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("9000 1\n") // 2-field header
	for i, v := range samples {
		fmt.Fprintf(&b, "%d %g\n", i+1, v)
	}
	path := filepath.Join(t.TempDir(), "capture.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadSeriesMatrix_ShapeAndStandardization(t *testing.T) {
	// Two series of length 4, folded column-wise.
	samples := []float64{1, 2, 3, 4, 10, 20, 30, 40}
	path := writeCapture(t, samples)

	m, err := LoadSeriesMatrix(path, 2, 4)
	if err != nil {
		t.Fatalf("LoadSeriesMatrix: %v", err)
	}
	r, c := m.Dims()
	if r != 4 || c != 2 {
		t.Fatalf("shape = %dx%d, want 4x2", r, c)
	}

	for j := 0; j < c; j++ {
		col := Column(m, j)
		var mean float64
		for _, v := range col {
			mean += v
		}
		mean /= float64(len(col))
		if math.Abs(mean) > 1e-12 {
			t.Errorf("column %d mean = %v, want 0", j, mean)
		}
		var ss float64
		for _, v := range col {
			ss += (v - mean) * (v - mean)
		}
		sd := math.Sqrt(ss / float64(len(col)-1))
		if math.Abs(sd-1) > 1e-12 {
			t.Errorf("column %d sd = %v, want 1", j, sd)
		}
	}

	// Both raw columns are increasing, so both standardised columns are the
	// same increasing profile.
	col0, col1 := Column(m, 0), Column(m, 1)
	for i := range col0 {
		if math.Abs(col0[i]-col1[i]) > 1e-12 {
			t.Errorf("standardised columns differ at %d: %v != %v", i, col0[i], col1[i])
		}
	}
}

func TestLoadSeriesMatrix_DiscardsIndexColumn(t *testing.T) {
	// Index fields (written as i+1 by the fixture helper) must not leak
	// into the samples: a constant sample column stays constant.
	samples := []float64{5, 5, 5, 5}
	path := writeCapture(t, samples)

	m, err := LoadSeriesMatrix(path, 1, 4)
	if err != nil {
		t.Fatalf("LoadSeriesMatrix: %v", err)
	}
	col := Column(m, 0)
	for i, v := range col {
		if v != 0 {
			t.Errorf("constant series entry %d = %v, want centred 0", i, v)
		}
	}
}

func TestLoadSeriesMatrix_ShortFile(t *testing.T) {
	path := writeCapture(t, []float64{1, 2, 3})
	if _, err := LoadSeriesMatrix(path, 2, 4); err == nil {
		t.Error("expected error for short capture")
	}
}

func TestLoadSeriesMatrix_BadValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(path, []byte("1 2\n1 oops\n2 4.0\n"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := LoadSeriesMatrix(path, 1, 2); err == nil {
		t.Error("expected error for unparseable value")
	}
}

func TestLoadSeriesMatrix_MissingFile(t *testing.T) {
	if _, err := LoadSeriesMatrix(filepath.Join(t.TempDir(), "nope.txt"), 1, 4); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStandardize_Constant(t *testing.T) {
	s := []float64{3, 3, 3}
	Standardize(s)
	for i, v := range s {
		if v != 0 {
			t.Errorf("entry %d = %v, want 0", i, v)
		}
	}
}
