// Package sensorlog loads sensor capture files into standardised series
// matrices. A capture is a stream of whitespace-separated floating point
// numbers: a 2-field header, then (index, sample) pairs. Only the sample
// column is kept; samples are folded column-wise into one series per column
// and each series is standardised to zero mean and unit variance.
package sensorlog

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// headerFields is the number of leading values to discard.
const headerFields = 2

// LoadSeriesMatrix reads a capture file and returns a seriesLength x nSeries
// matrix with one standardised series per column. A file holding fewer than
// headerFields + 2*nSeries*seriesLength values is an error.
func LoadSeriesMatrix(path string, nSeries, seriesLength int) (*mat.Dense, error) {
	if nSeries < 1 || seriesLength < 2 {
		return nil, fmt.Errorf("sensorlog: invalid shape %d series x %d samples", nSeries, seriesLength)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sensorlog: %w", err)
	}
	defer f.Close()

	need := nSeries * seriesLength
	samples := make([]float64, 0, need)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	field := 0
	for sc.Scan() && len(samples) < need {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("sensorlog: %s: bad value at field %d: %v", path, field, err)
		}
		switch {
		case field < headerFields:
			// header, skipped
		case (field-headerFields)%2 == 1:
			// second element of each (index, sample) pair
			samples = append(samples, v)
		}
		field++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("sensorlog: reading %s: %w", path, err)
	}
	if len(samples) < need {
		return nil, fmt.Errorf("sensorlog: %s holds %d samples, need %d (%d series x %d)", path, len(samples), need, nSeries, seriesLength)
	}

	// Column-major fold: sample k belongs to series k/seriesLength.
	m := mat.NewDense(seriesLength, nSeries, nil)
	for k, v := range samples {
		m.Set(k%seriesLength, k/seriesLength, v)
	}

	col := make([]float64, seriesLength)
	for j := 0; j < nSeries; j++ {
		mat.Col(col, j, m)
		Standardize(col)
		m.SetCol(j, col)
	}
	return m, nil
}

// Standardize rescales a series in place to zero mean and unit sample
// variance. A constant series is only centred; there is no scale to divide
// by.
func Standardize(series []float64) {
	mean, std := stat.MeanStdDev(series, nil)
	for i := range series {
		series[i] -= mean
	}
	if std == 0 {
		return
	}
	for i := range series {
		series[i] /= std
	}
}

// Column extracts one series from a loaded matrix.
func Column(m *mat.Dense, j int) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	mat.Col(out, j, m)
	return out
}
