// Package report renders quantile periodograms for inspection: per-tau line
// plots as PNG and a frequency-by-quantile heatmap as a standalone HTML
// page.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/spectral.report/internal/qpe"
)

// linePalette cycles across tau traces.
var linePalette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 255},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 255},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 255},
	{R: 0xd6, G: 0x27, B: 0x28, A: 255},
	{R: 0x94, G: 0x67, B: 0xbd, A: 255},
}

// PlotSpectrum writes a line plot of the periodogram to path, one trace per
// selected tau index (nil means every tau). The output format follows the
// file extension, e.g. .png or .svg.
func PlotSpectrum(spec *qpe.Spectrum, tauSel []int, title, path string) error {
	if len(spec.Freqs) == 0 {
		return fmt.Errorf("report: nothing to plot, empty frequency grid")
	}
	if tauSel == nil {
		tauSel = make([]int, len(spec.Taus))
		for i := range tauSel {
			tauSel[i] = i
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "frequency (cycles/sample)"
	p.Y.Label.Text = "power"

	for k, ti := range tauSel {
		if ti < 0 || ti >= len(spec.Taus) {
			return fmt.Errorf("report: tau index %d out of range [0,%d)", ti, len(spec.Taus))
		}
		pts := make(plotter.XYs, len(spec.Freqs))
		for fi := range spec.Freqs {
			pts[fi].X = spec.Freqs[fi]
			pts[fi].Y = spec.At(fi, ti)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("report: building line for tau %v: %w", spec.Taus[ti], err)
		}
		line.Color = linePalette[k%len(linePalette)]
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("tau=%.2f", spec.Taus[ti]), line)
	}
	p.Legend.Top = true

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("report: creating output dir: %w", err)
		}
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("report: saving plot: %w", err)
	}
	return nil
}
