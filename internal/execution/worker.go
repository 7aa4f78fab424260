package execution

import (
	"context"
	"sync"
	"time"

	"github.com/phuslu/log"

	"uiflow/internal/config"
	"uiflow/internal/discovery"
	"uiflow/internal/domain"
	"uiflow/internal/logging"
	"uiflow/internal/parser"
)

// WorkerPool manages a pool of workers for parallel scenario execution
type WorkerPool struct {
	config    *config.Config
	runner    ScenarioRunner
	scheduler Scheduler
	progress  Progress
	parser    parser.Parser
	logger    *log.Logger

	mu          sync.Mutex
	completed   int
	passedSteps int
	failedSteps int
}

// NewWorkerPool creates a new WorkerPool
func NewWorkerPool(cfg *config.Config, runner ScenarioRunner, scheduler Scheduler, stepParser parser.Parser, logger *log.Logger) *WorkerPool {
	if logger == nil {
		logger = logging.Nop()
	}
	return &WorkerPool{
		config:    cfg,
		runner:    runner,
		scheduler: scheduler,
		parser:    stepParser,
		logger:    logger,
	}
}

// SetProgress sets the progress bar for the worker pool
func (wp *WorkerPool) SetProgress(progress Progress) {
	wp.progress = progress
}

// SetLogger replaces the pool's logger
func (wp *WorkerPool) SetLogger(logger *log.Logger) {
	wp.logger = logger
}

// ExecutePlan runs the identity providers one at a time, hands the identity
// they produce to the fixture, then runs the consumers on the pool.
// Without providers the fixture keeps the identity it already carries,
// or takes the plan's fallback.
func (wp *WorkerPool) ExecutePlan(ctx context.Context, plan discovery.Plan, fixture *domain.Fixture, failFast bool) ([]domain.TestResult, time.Duration, error) {
	startTime := time.Now()
	wp.reset()
	defer wp.finish()

	if fixture == nil {
		fixture = &domain.Fixture{}
	}
	if len(plan.Providers) == 0 && !fixture.HasIdentity() && !plan.Fallback.IsZero() {
		fixture.Identity = plan.Fallback
	}

	var results []domain.TestResult
	for _, s := range plan.Providers {
		if err := ctx.Err(); err != nil {
			return results, time.Since(startTime), err
		}
		result := wp.runner.Run(ctx, s, fixture, 1)
		results = append(results, result)
		wp.record(result)

		if result.Success && result.Identity != nil && !fixture.HasIdentity() {
			fixture.Identity = *result.Identity
			wp.logger.Info().Str("scenario", s.Name).Str("email", fixture.Identity.Email).Msg("identity provided")
		}
		if !result.Success && failFast {
			return results, time.Since(startTime), nil
		}
	}

	consumerResults, err := wp.execute(ctx, plan.Consumers, fixture, failFast)
	results = append(results, consumerResults...)
	return results, time.Since(startTime), err
}

// Execute executes scenarios in parallel using the worker pool (no fail-fast).
func (wp *WorkerPool) Execute(ctx context.Context, scenarios []domain.Scenario, fixture *domain.Fixture) ([]domain.TestResult, time.Duration, error) {
	return wp.ExecuteWithOptions(ctx, scenarios, fixture, false)
}

// ExecuteWithOptions executes scenarios with optional fail-fast (stop on first failure).
func (wp *WorkerPool) ExecuteWithOptions(ctx context.Context, scenarios []domain.Scenario, fixture *domain.Fixture, failFast bool) ([]domain.TestResult, time.Duration, error) {
	if len(scenarios) == 0 {
		return nil, 0, nil
	}
	startTime := time.Now()
	wp.reset()
	defer wp.finish()

	results, err := wp.execute(ctx, scenarios, fixture, failFast)
	return results, time.Since(startTime), err
}

// execute runs scenarios across the scheduled workers. Results come back in
// input order. With failFast the first failure cancels every worker and
// results finishing after it are dropped.
func (wp *WorkerPool) execute(ctx context.Context, scenarios []domain.Scenario, fixture *domain.Fixture, failFast bool) ([]domain.TestResult, error) {
	if len(scenarios) == 0 {
		return nil, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerCount := wp.config.Processors
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(scenarios) {
		workerCount = len(scenarios)
	}

	position := make(map[string]int, len(scenarios))
	for i, s := range scenarios {
		position[s.Name] = i
	}
	slots := make([]*domain.TestResult, len(scenarios))

	var mu sync.Mutex
	var stopped bool
	var wg sync.WaitGroup
	for i, batch := range wp.scheduler.Schedule(scenarios, workerCount) {
		wg.Add(1)
		go func(workerID int, batch []domain.Scenario) {
			defer wg.Done()
			for _, s := range batch {
				if runCtx.Err() != nil {
					return
				}
				result := wp.runner.Run(runCtx, s, fixture, workerID)

				mu.Lock()
				if stopped {
					mu.Unlock()
					return
				}
				slots[position[s.Name]] = &result
				wp.record(result)
				if failFast && !result.Success {
					stopped = true
					cancel()
				}
				mu.Unlock()
			}
		}(i+1, batch)
	}
	wg.Wait()

	var results []domain.TestResult
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, ctx.Err()
}

func (wp *WorkerPool) reset() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.completed, wp.passedSteps, wp.failedSteps = 0, 0, 0
}

func (wp *WorkerPool) record(result domain.TestResult) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	wp.completed++
	if wp.parser != nil {
		p, f := wp.parser.ParseStepCounts(result)
		wp.passedSteps += p
		wp.failedSteps += f
	} else if result.Success {
		wp.passedSteps++
	} else {
		wp.failedSteps++
	}
	if wp.progress != nil {
		wp.progress.Update(wp.completed, wp.passedSteps, wp.failedSteps)
	}
}

func (wp *WorkerPool) finish() {
	if wp.progress != nil {
		wp.progress.Finish()
	}
}
