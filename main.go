// Command spectral.report runs the quantile-periodogram classification
// pipeline end to end: it loads one capture file per class, computes a
// quantile periodogram for every series, reduces the flattened spectra with
// PCA, trains the classifier ensemble on a stratified split, and reports
// held-out accuracy per method.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/spectral.report/internal/config"
	"github.com/banshee-data/spectral.report/internal/pipeline"
	"github.com/banshee-data/spectral.report/internal/qpe"
	"github.com/banshee-data/spectral.report/internal/report"
	"github.com/banshee-data/spectral.report/internal/sensorlog"
	"github.com/banshee-data/spectral.report/internal/specdb"
	"github.com/banshee-data/spectral.report/internal/version"
)

var (
	dataDir      = flag.String("data", "data", "Directory of capture files, one class per file")
	nSeries      = flag.Int("series", 100, "Series per capture file")
	seriesLength = flag.Int("length", 512, "Samples per series")
	configPath   = flag.String("config", "", "Optional JSON analysis config")
	dbPath       = flag.String("db", "spectral_results.db", "Results database path; empty disables persistence")
	plotDir      = flag.String("plots", "", "Optional directory for per-class spectrum plots")
)

func main() {
	flag.Parse()
	log.Printf("spectral.report %s (%s)", version.Version, version.GitSHA)

	cfg := config.DefaultAnalysisConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadAnalysisConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	params, err := pipeline.FromConfig(cfg)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	classes, err := loadClasses(*dataDir, *nSeries, *seriesLength)
	if err != nil {
		log.Fatalf("failed to load captures: %v", err)
	}
	var names []string
	for _, c := range classes {
		names = append(names, fmt.Sprintf("%s(%d)", c.Name, len(c.Series)))
	}
	log.Printf("loaded %d classes: %s", len(classes), strings.Join(names, ", "))

	res, err := pipeline.Run(classes, params)
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	log.Printf("computed %d periodograms (%d frequencies x %d quantile levels)",
		res.NSeries, len(res.Freqs), len(res.Taus))
	for _, m := range params.Methods {
		if fitErr, failed := res.FitErrors[m]; failed {
			log.Printf("%-10s unavailable: %s", m, fitErr)
			continue
		}
		log.Printf("%-10s train=%.3f test=%.3f", m, res.TrainAccuracy[m], res.TestAccuracy[m])
	}

	if *dbPath != "" {
		runID, err := persist(*dbPath, params, res)
		if err != nil {
			log.Fatalf("failed to persist run: %v", err)
		}
		log.Printf("recorded run %s in %s", runID, *dbPath)
	}

	if *plotDir != "" {
		if err := renderPlots(classes, params, *plotDir); err != nil {
			log.Fatalf("failed to render plots: %v", err)
		}
		log.Printf("wrote spectrum plots to %s", *plotDir)
	}
}

// loadClasses reads every regular file in dir as one class capture. The
// class name is the file name without its extension.
func loadClasses(dir string, nSeries, length int) ([]pipeline.ClassData, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var classes []pipeline.ClassData
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		m, err := sensorlog.LoadSeriesMatrix(path, nSeries, length)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		c := pipeline.ClassData{Name: name}
		for j := 0; j < nSeries; j++ {
			c.Series = append(c.Series, sensorlog.Column(m, j))
		}
		classes = append(classes, c)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("no capture files in %s", dir)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

// persist writes the run, its class splits, and per-method accuracies to
// the results database.
func persist(path string, params pipeline.Params, res *pipeline.Result) (string, error) {
	db, err := specdb.Open(path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	runID, err := db.InsertRun(specdb.RunRecord{
		SeriesLength:  res.SeriesLength,
		NSeries:       res.NSeries,
		NFreqs:        len(res.Freqs),
		NTaus:         len(res.Taus),
		Estimator:     params.Estimator.String(),
		WithIntercept: params.WithIntercept,
		Workers:       params.Workers,
		Components:    params.Components,
	})
	if err != nil {
		return "", err
	}

	var classNames []string
	for c := range res.ClassCounts {
		classNames = append(classNames, c)
	}
	sort.Strings(classNames)
	for _, c := range classNames {
		counts := res.ClassCounts[c]
		if err := db.RecordClassCounts(runID, c, counts.Train, counts.Test); err != nil {
			return "", err
		}
	}

	for _, m := range params.Methods {
		if fitErr, failed := res.FitErrors[m]; failed {
			if err := db.RecordAccuracy(runID, string(m), "train", nil, fitErr); err != nil {
				return "", err
			}
			continue
		}
		trainAcc := res.TrainAccuracy[m]
		testAcc := res.TestAccuracy[m]
		if err := db.RecordAccuracy(runID, string(m), "train", &trainAcc, ""); err != nil {
			return "", err
		}
		if err := db.RecordAccuracy(runID, string(m), "test", &testAcc, ""); err != nil {
			return "", err
		}
	}
	return runID, nil
}

// renderPlots writes one line plot and one heatmap per class, computed from
// the first series of each class.
func renderPlots(classes []pipeline.ClassData, params pipeline.Params, dir string) error {
	opts := qpe.Options{
		Estimator:     params.Estimator,
		WithIntercept: params.WithIntercept,
		Workers:       params.Workers,
	}
	for _, c := range classes {
		freqs := config.FrequencyGrid(len(c.Series[0]))
		spec, err := qpe.Periodogram(c.Series[0], freqs, params.Taus, opts)
		if err != nil {
			return fmt.Errorf("class %s: %w", c.Name, err)
		}

		// A handful of representative quantile levels keeps the line plot
		// readable on dense tau grids.
		tauSel := representativeTaus(len(params.Taus))
		if err := report.PlotSpectrum(spec, tauSel, fmt.Sprintf("quantile periodogram: %s", c.Name),
			filepath.Join(dir, c.Name+".png")); err != nil {
			return err
		}
		if err := report.WriteHeatmap(spec, fmt.Sprintf("quantile periodogram: %s", c.Name),
			filepath.Join(dir, c.Name+".html")); err != nil {
			return err
		}
	}
	return nil
}

// representativeTaus picks up to five evenly spaced tau indices.
func representativeTaus(nTaus int) []int {
	if nTaus <= 5 {
		sel := make([]int, nTaus)
		for i := range sel {
			sel[i] = i
		}
		return sel
	}
	sel := make([]int, 5)
	for i := range sel {
		sel[i] = i * (nTaus - 1) / 4
	}
	return sel
}
