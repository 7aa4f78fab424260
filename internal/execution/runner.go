package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"uiflow/internal/browser"
	"uiflow/internal/config"
	"uiflow/internal/discovery"
	"uiflow/internal/domain"
	"uiflow/internal/logging"
	"uiflow/internal/scenarios"
	"uiflow/internal/verifier"
)

// DriverFactory opens a browser session for one scenario
type DriverFactory func(ctx context.Context) (browser.Driver, error)

// Runner executes a single scenario against a fresh browser session
type Runner struct {
	config    *config.Config
	registry  *scenarios.Registry
	logger    *log.Logger
	newDriver DriverFactory
}

// NewRunner creates a new Runner using the configured browser backend
func NewRunner(cfg *config.Config, registry *scenarios.Registry, logger *log.Logger) *Runner {
	if logger == nil {
		logger = logging.Nop()
	}
	r := &Runner{config: cfg, registry: registry, logger: logger}
	r.newDriver = func(ctx context.Context) (browser.Driver, error) {
		ignore, err := cfg.ConsoleErrorFilter()
		if err != nil {
			return nil, fmt.Errorf("console ignore pattern: %w", err)
		}
		return browser.New(ctx, cfg.Driver, browser.Options{
			Headless:      cfg.Headless,
			ChromePath:    cfg.ChromePath,
			WindowWidth:   cfg.WindowWidth,
			WindowHeight:  cfg.WindowHeight,
			ConsoleIgnore: ignore,
		})
	}
	return r
}

// SetLogger replaces the step logger once the log file is open
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// WithDriverFactory replaces the browser backend, e.g. with a fake in tests
func (r *Runner) WithDriverFactory(f DriverFactory) *Runner {
	r.newDriver = f
	return r
}

// Run executes one scenario. The session is always torn down, and the
// result carries the verifier's progress whether or not it succeeded.
func (r *Runner) Run(ctx context.Context, s domain.Scenario, fixture *domain.Fixture, workerID int) domain.TestResult {
	start := time.Now()
	result := domain.TestResult{Scenario: s.Name}

	def, ok := r.registry.Get(s.Name)
	if !ok {
		result.Error = fmt.Errorf("unknown scenario %q", s.Name)
		result.Duration = time.Since(start)
		return result
	}
	if s.NeedsIdentity && !fixture.HasIdentity() {
		result.Skipped = true
		result.Error = discovery.ErrNoIdentity
		result.Duration = time.Since(start)
		r.logger.Warn().Str("scenario", s.Name).Int("worker", workerID).Msg("skipped: no identity available")
		return result
	}

	if r.config.ScenarioTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ScenarioTimeout)
		defer cancel()
	}

	driver, err := r.newDriver(ctx)
	if err != nil {
		result.Error = fmt.Errorf("failed to open browser: %w", err)
		result.Duration = time.Since(start)
		r.logger.Error().Str("scenario", s.Name).Int("worker", workerID).Err(err).Msg("browser launch failed")
		return result
	}

	runID := ""
	if fixture != nil {
		runID = fixture.RunID
	}
	v := verifier.New(driver, verifier.Options{
		Scenario:     s.Name,
		BaseURL:      r.config.BaseURL,
		StepTimeout:  r.config.StepTimeout,
		SettleDelay:  r.config.SettleDelay,
		DialogWait:   r.config.DialogWait,
		ArtifactsDir: r.config.GetArtifactsDir(runID),
		Logger:       r.logger,
	})
	env := r.env(fixture)

	r.logger.Info().Str("scenario", s.Name).Int("worker", workerID).Msg("scenario started")
	runErr := def.Run(ctx, v, env)

	// the scenario context may be spent; the final URL is still worth reading
	result.FinalURL = v.CurrentURL(context.WithoutCancel(ctx))
	if err := v.TearDown(); err != nil {
		r.logger.Warn().Str("scenario", s.Name).Err(err).Msg("teardown failed")
	}

	result.StepsPassed = v.Passed()
	result.Dialogs = v.Dialogs()
	result.Artifacts = v.Artifacts()
	result.Duration = time.Since(start)

	if runErr != nil {
		result.Error = runErr
		if f := v.Failure(); f != nil {
			result.FailedStep = f.Step
		}
		r.logger.Error().Str("scenario", s.Name).Dur("elapsed", result.Duration).Err(runErr).Msg("scenario failed")
		return result
	}

	result.Success = true
	if s.ProvidesIdentity && env.Provided != nil {
		id := *env.Provided
		result.Identity = &id
	}
	r.logger.Info().Str("scenario", s.Name).Dur("elapsed", result.Duration).Msg("scenario passed")
	return result
}

func (r *Runner) env(fixture *domain.Fixture) *scenarios.Env {
	cfg := r.config
	return &scenarios.Env{
		Fixture:          fixture,
		SessionID:        cfg.SessionID,
		Password:         cfg.Password,
		SecurityQuestion: cfg.SecurityQuestion,
		SecurityAnswer:   cfg.SecurityAnswer,
		Reset: scenarios.Reset{
			Email:       cfg.ResetEmail,
			Question:    cfg.ResetQuestion,
			Answer:      cfg.ResetAnswer,
			NewPassword: cfg.ResetNewPassword,
		},
		ProbeWait: cfg.DialogWait,
		NewEmail:  scenarios.UniqueEmail,
	}
}
