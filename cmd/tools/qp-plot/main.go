// qp-plot renders the quantile periodogram of a single series from a
// capture file as a line plot and a heatmap, for eyeballing spectra before
// running the full classification pipeline.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/spectral.report/internal/config"
	"github.com/banshee-data/spectral.report/internal/qpe"
	"github.com/banshee-data/spectral.report/internal/report"
	"github.com/banshee-data/spectral.report/internal/sensorlog"
)

var (
	file         = flag.String("file", "", "Capture file to read (required)")
	nSeries      = flag.Int("series", 100, "Series in the capture file")
	seriesLength = flag.Int("length", 512, "Samples per series")
	seriesIdx    = flag.Int("index", 0, "Which series to plot")
	tauList      = flag.String("taus", "0.1,0.25,0.5,0.75,0.9", "Comma-separated quantile levels")
	estimator    = flag.String("estimator", "cost_diff", "Spectral estimator: cost_diff or coef_norm")
	workers      = flag.Int("workers", 4, "Frequency-loop worker count")
	outDir       = flag.String("out", "plots", "Output directory")
)

func main() {
	flag.Parse()
	if *file == "" {
		log.Fatal("a capture file is required (-file)")
	}
	if *seriesIdx < 0 || *seriesIdx >= *nSeries {
		log.Fatalf("series index %d outside [0, %d)", *seriesIdx, *nSeries)
	}

	taus, err := parseTaus(*tauList)
	if err != nil {
		log.Fatalf("invalid tau list: %v", err)
	}
	est, err := qpe.ParseEstimator(*estimator)
	if err != nil {
		log.Fatal(err)
	}

	m, err := sensorlog.LoadSeriesMatrix(*file, *nSeries, *seriesLength)
	if err != nil {
		log.Fatalf("failed to load capture: %v", err)
	}
	y := sensorlog.Column(m, *seriesIdx)

	opts := qpe.DefaultOptions()
	opts.Estimator = est
	opts.Workers = *workers
	freqs := config.FrequencyGrid(len(y))
	spec, err := qpe.Periodogram(y, freqs, taus, opts)
	if err != nil {
		log.Fatalf("periodogram failed: %v", err)
	}

	stem := strings.TrimSuffix(filepath.Base(*file), filepath.Ext(*file))
	title := fmt.Sprintf("%s series %d (%s)", stem, *seriesIdx, est)
	pngPath := filepath.Join(*outDir, fmt.Sprintf("%s_%d.png", stem, *seriesIdx))
	htmlPath := filepath.Join(*outDir, fmt.Sprintf("%s_%d.html", stem, *seriesIdx))

	if err := report.PlotSpectrum(spec, nil, title, pngPath); err != nil {
		log.Fatalf("failed to write line plot: %v", err)
	}
	if err := report.WriteHeatmap(spec, title, htmlPath); err != nil {
		log.Fatalf("failed to write heatmap: %v", err)
	}
	log.Printf("wrote %s and %s", pngPath, htmlPath)
}

func parseTaus(s string) ([]float64, error) {
	var taus []float64
	for _, part := range strings.Split(s, ",") {
		tau, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		if tau <= 0 || tau >= 1 {
			return nil, fmt.Errorf("tau %v outside (0, 1)", tau)
		}
		taus = append(taus, tau)
	}
	return taus, nil
}
