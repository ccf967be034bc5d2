package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/spectral.report/internal/qpe"
)

// viridis is the colour ramp used for heatmap intensity.
var viridis = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// WriteHeatmap renders the full (frequency x quantile) periodogram as an
// ECharts heatmap HTML page at path.
func WriteHeatmap(spec *qpe.Spectrum, title, path string) error {
	if len(spec.Freqs) == 0 || len(spec.Taus) == 0 {
		return fmt.Errorf("report: nothing to render, empty grid")
	}

	xs := make([]string, len(spec.Freqs))
	for fi, f := range spec.Freqs {
		xs[fi] = fmt.Sprintf("%.4f", f)
	}
	ys := make([]string, len(spec.Taus))
	for ti, tau := range spec.Taus {
		ys[ti] = fmt.Sprintf("%.2f", tau)
	}

	data := make([]opts.HeatMapData, 0, len(spec.Freqs)*len(spec.Taus))
	maxVal := 0.0
	for fi := range spec.Freqs {
		for ti := range spec.Taus {
			v := spec.At(fi, ti)
			if v > maxVal {
				maxVal = v
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{fi, ti, v}})
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d frequencies x %d quantile levels", len(spec.Freqs), len(spec.Taus))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xs, Name: "frequency"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ys, Name: "tau"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.AddSeries("periodogram", data)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("report: creating output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := hm.Render(f); err != nil {
		return fmt.Errorf("report: rendering heatmap: %w", err)
	}
	return nil
}
