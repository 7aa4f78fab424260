package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"uiflow/internal/domain"
)

// Save writes scenario results and failures to the configured JSON output file.
func (s *JSONStorage) Save(runID string, results []domain.TestResult, failures []domain.TestFailure, duration time.Duration, workers int) error {
	passed, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Success:
			passed++
		default:
			failed++
		}
	}

	output := domain.TestResultsOutput{
		Meta: domain.TestResultsMeta{
			RunID:            runID,
			BaseURL:          s.cfg.BaseURL,
			Driver:           s.cfg.Driver,
			TotalScenarios:   len(results),
			FailedScenarios:  failed,
			PassedScenarios:  passed,
			SkippedScenarios: skipped,
			Duration:         duration.String(),
			DurationSeconds:  duration.Seconds(),
			Workers:          workers,
			Timestamp:        time.Now().Format(time.RFC3339),
		},
		Details: failures,
	}
	return s.SaveOutput(&output)
}

// Load reads the last run results from the configured JSON output file.
func (s *JSONStorage) Load() (*domain.TestResultsOutput, error) {
	path := s.cfg.GetOutputPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results file: %w", err)
	}
	var output domain.TestResultsOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return &output, nil
}

// SaveOutput writes the full output to the configured JSON file.
func (s *JSONStorage) SaveOutput(output *domain.TestResultsOutput) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := writeFileAtomic(s.cfg.GetOutputPath(), data); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
