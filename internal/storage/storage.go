package storage

import (
	"time"

	"uiflow/internal/config"
	"uiflow/internal/domain"
)

// Storage persists and loads run results (e.g. for the faills viewer).
type Storage interface {
	Save(runID string, results []domain.TestResult, failures []domain.TestFailure, duration time.Duration, workers int) error
	Load() (*domain.TestResultsOutput, error)
	// SaveOutput writes the full output (e.g. after marking failures resolved).
	SaveOutput(output *domain.TestResultsOutput) error
}

// JSONStorage stores results in a JSON file under the configured output path.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}
