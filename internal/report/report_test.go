package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/spectral.report/internal/qpe"
)

func demoSpectrum() *qpe.Spectrum {
	freqs := []float64{0.1, 0.2, 0.3}
	taus := []float64{0.25, 0.5, 0.75}
	values := make([][]float64, len(freqs))
	for fi := range freqs {
		values[fi] = make([]float64, len(taus))
		for ti := range taus {
			values[fi][ti] = float64(fi+1) * float64(ti+1)
		}
	}
	return &qpe.Spectrum{Freqs: freqs, Taus: taus, Values: values}
}

func TestPlotSpectrum_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "spectrum.png")
	if err := PlotSpectrum(demoSpectrum(), nil, "demo", path); err != nil {
		t.Fatalf("PlotSpectrum: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestPlotSpectrum_TauSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.png")
	if err := PlotSpectrum(demoSpectrum(), []int{1}, "single tau", path); err != nil {
		t.Fatalf("PlotSpectrum: %v", err)
	}
	if err := PlotSpectrum(demoSpectrum(), []int{5}, "bad", path); err == nil {
		t.Error("expected error for out-of-range tau index")
	}
}

func TestPlotSpectrum_EmptyGrid(t *testing.T) {
	empty := &qpe.Spectrum{}
	if err := PlotSpectrum(empty, nil, "empty", "unused.png"); err == nil {
		t.Error("expected error for empty spectrum")
	}
}

func TestWriteHeatmap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heatmap.html")
	if err := WriteHeatmap(demoSpectrum(), "demo heatmap", path); err != nil {
		t.Fatalf("WriteHeatmap: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	html := string(data)
	if !strings.Contains(html, "echarts") {
		t.Error("rendered page does not reference echarts")
	}
	if !strings.Contains(html, "demo heatmap") {
		t.Error("rendered page does not carry the title")
	}
}

func TestWriteHeatmap_EmptyGrid(t *testing.T) {
	empty := &qpe.Spectrum{}
	if err := WriteHeatmap(empty, "empty", "unused.html"); err == nil {
		t.Error("expected error for empty spectrum")
	}
}
