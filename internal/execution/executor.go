package execution

import (
	"context"
	"time"

	"uiflow/internal/domain"
)

// Executor executes scenarios and returns their results
type Executor interface {
	Execute(ctx context.Context, scenarios []domain.Scenario, fixture *domain.Fixture) ([]domain.TestResult, time.Duration, error)
}

// ScenarioRunner runs a single scenario in its own browser session
type ScenarioRunner interface {
	Run(ctx context.Context, scenario domain.Scenario, fixture *domain.Fixture, workerID int) domain.TestResult
}

// Progress receives completion counts while scenarios run
type Progress interface {
	Update(completed, passedSteps, failedSteps int)
	Finish()
}
