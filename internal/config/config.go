// Package config holds the analysis run configuration. The JSON schema uses
// pointer fields so partial files can override just the values they name;
// everything else keeps its default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxConfigFileSize guards against loading something that is not a config.
const maxConfigFileSize = 1 << 20

// AnalysisConfig is the root configuration for a spectral classification
// run.
type AnalysisConfig struct {
	// Quantile grid: tau_min, tau_min+tau_step, ..., up to tau_max.
	TauMin  *float64 `json:"tau_min,omitempty"`
	TauMax  *float64 `json:"tau_max,omitempty"`
	TauStep *float64 `json:"tau_step,omitempty"`

	// Periodogram params
	Estimator     *string `json:"estimator,omitempty"` // "cost_diff" or "coef_norm"
	WithIntercept *bool   `json:"with_intercept,omitempty"`
	Workers       *int    `json:"workers,omitempty"` // frequency-loop pool size

	// Feature reduction and classification
	Components    *int     `json:"components,omitempty"` // leading PCA components kept
	Methods       []string `json:"methods,omitempty"`
	TrainFraction *float64 `json:"train_fraction,omitempty"`
	Seed          *int64   `json:"seed,omitempty"` // train/test split RNG seed
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }
func ptrString(v string) *string    { return &v }

// DefaultAnalysisConfig returns the canonical defaults: the tau grid
// 0.06..0.94 in steps of 0.02, cost-difference estimator with intercept,
// two principal components, every classifier, a 50/50 split.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		TauMin:        ptrFloat64(0.06),
		TauMax:        ptrFloat64(0.94),
		TauStep:       ptrFloat64(0.02),
		Estimator:     ptrString("cost_diff"),
		WithIntercept: ptrBool(true),
		Workers:       ptrInt(1),
		Components:    ptrInt(2),
		Methods:       []string{"lda", "qda", "linear_svm"},
		TrainFraction: ptrFloat64(0.5),
		Seed:          ptrInt64(1),
	}
}

// LoadAnalysisConfig loads a JSON config file. Fields omitted from the file
// keep their defaults, so partial configs are safe.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s too large (%d bytes)", cleanPath, info.Size())
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", cleanPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", cleanPath, err)
	}
	return cfg, nil
}

// Validate rejects grids and fractions that cannot drive a run.
func (c *AnalysisConfig) Validate() error {
	if c.TauMin == nil || c.TauMax == nil || c.TauStep == nil {
		return fmt.Errorf("tau grid incompletely specified")
	}
	if *c.TauMin <= 0 || *c.TauMax >= 1 || *c.TauMin > *c.TauMax {
		return fmt.Errorf("tau grid [%v, %v] must sit inside (0, 1)", *c.TauMin, *c.TauMax)
	}
	if *c.TauStep <= 0 {
		return fmt.Errorf("tau_step must be positive, got %v", *c.TauStep)
	}
	if c.Estimator != nil {
		switch *c.Estimator {
		case "cost_diff", "coef_norm":
		default:
			return fmt.Errorf("unknown estimator %q", *c.Estimator)
		}
	}
	if c.TrainFraction != nil && (*c.TrainFraction <= 0 || *c.TrainFraction >= 1) {
		return fmt.Errorf("train_fraction %v must sit inside (0, 1)", *c.TrainFraction)
	}
	if c.Components != nil && *c.Components < 1 {
		return fmt.Errorf("components must be at least 1, got %d", *c.Components)
	}
	return nil
}

// TauGrid expands the configured quantile grid.
func (c *AnalysisConfig) TauGrid() []float64 {
	var taus []float64
	// Index-based stepping avoids accumulating float error across the grid.
	for i := 0; ; i++ {
		tau := *c.TauMin + float64(i)*(*c.TauStep)
		if tau > *c.TauMax+1e-12 {
			break
		}
		taus = append(taus, tau)
	}
	return taus
}

// FrequencyGrid returns the standard Fourier grid for a series of length n:
// 1/n, 2/n, ... strictly below the Nyquist frequency 0.5.
func FrequencyGrid(n int) []float64 {
	var freqs []float64
	for k := 1; float64(k)/float64(n) < 0.5; k++ {
		freqs = append(freqs, float64(k)/float64(n))
	}
	return freqs
}
