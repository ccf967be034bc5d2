// Package specdb persists analysis runs and their classifier accuracies to
// SQLite so successive runs can be compared.
package specdb

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the results database at path and brings
// the schema up to date.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("specdb: open %s: %w", path, err)
	}
	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// RunRecord describes one end-to-end analysis run.
type RunRecord struct {
	SeriesLength  int
	NSeries       int
	NFreqs        int
	NTaus         int
	Estimator     string
	WithIntercept bool
	Workers       int
	Components    int
}

// InsertRun stores a run record and returns its generated ID.
func (db *DB) InsertRun(r RunRecord) (string, error) {
	runID := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO runs (run_id, series_length, n_series, n_freqs, n_taus,
			estimator, with_intercept, workers, components)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, r.SeriesLength, r.NSeries, r.NFreqs, r.NTaus,
		r.Estimator, r.WithIntercept, r.Workers, r.Components)
	if err != nil {
		return "", fmt.Errorf("specdb: insert run: %w", err)
	}
	return runID, nil
}

// RecordClassCounts stores the train/test split sizes for one class.
func (db *DB) RecordClassCounts(runID, class string, trainCount, testCount int) error {
	_, err := db.Exec(`
		INSERT INTO run_classes (run_id, class, train_count, test_count)
		VALUES (?, ?, ?, ?)
	`, runID, class, trainCount, testCount)
	if err != nil {
		return fmt.Errorf("specdb: record class counts: %w", err)
	}
	return nil
}

// RecordAccuracy stores one method's accuracy on one split. A nil accuracy
// with a fit error marks the method as unavailable for the run.
func (db *DB) RecordAccuracy(runID, method, split string, accuracy *float64, fitError string) error {
	_, err := db.Exec(`
		INSERT INTO run_accuracies (run_id, method, split, accuracy, fit_error)
		VALUES (?, ?, ?, ?, ?)
	`, runID, method, split, accuracy, fitError)
	if err != nil {
		return fmt.Errorf("specdb: record accuracy: %w", err)
	}
	return nil
}

// AccuracyRow is one stored accuracy entry.
type AccuracyRow struct {
	Method   string
	Split    string
	Accuracy sql.NullFloat64
	FitError string
}

// RunAccuracies returns every accuracy entry for a run, ordered by method
// then split.
func (db *DB) RunAccuracies(runID string) ([]AccuracyRow, error) {
	rows, err := db.Query(`
		SELECT method, split, accuracy, COALESCE(fit_error, '')
		FROM run_accuracies WHERE run_id = ?
		ORDER BY method, split
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("specdb: query accuracies: %w", err)
	}
	defer rows.Close()

	var out []AccuracyRow
	for rows.Next() {
		var r AccuracyRow
		if err := rows.Scan(&r.Method, &r.Split, &r.Accuracy, &r.FitError); err != nil {
			return nil, fmt.Errorf("specdb: scan accuracy row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
