package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"uiflow/internal/config"
	"uiflow/internal/discovery"
	"uiflow/internal/domain"
	"uiflow/internal/execution"
	"uiflow/internal/logging"
	"uiflow/internal/parser"
	"uiflow/internal/scenarios"
	"uiflow/internal/storage"
	"uiflow/internal/ui"
)

// RunDeps are the collaborators of the run command
type RunDeps struct {
	Registry   *scenarios.Registry
	Filter     *discovery.Filter
	Planner    *discovery.Planner
	Runner     *execution.Runner
	Executor   *execution.WorkerPool
	Parser     parser.Parser
	Storage    storage.Storage
	Identities *storage.IdentityStore
	Formatter  *ui.Formatter
	Viewer     ui.Viewer
}

// RunCommand handles the run command
type RunCommand struct {
	config *config.Config
	RunDeps

	// progress builds the progress display; replaced in tests
	progress func(total int) execution.Progress
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(cfg *config.Config, deps RunDeps) *RunCommand {
	return &RunCommand{
		config:  cfg,
		RunDeps: deps,
		progress: func(total int) execution.Progress {
			return ui.NewProgressBar(total)
		},
	}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	logger, closer, err := logging.New(logging.Options{
		Path:    rc.config.GetLogPath(),
		Level:   rc.config.LogLevel,
		Console: rc.config.LogConsole,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	return rc.run(cmd.Context(), logger)
}

func (rc *RunCommand) run(ctx context.Context, logger *log.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rc.Runner.SetLogger(logger)
	rc.Executor.SetLogger(logger)

	selected, err := rc.selectScenarios()
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		color.Yellow("No scenarios to execute")
		return nil
	}

	plan, err := rc.Planner.Plan(selected)
	if err != nil {
		return err
	}
	if plan.NeedsIdentity() && len(plan.Providers) == 0 && plan.Fallback.IsZero() {
		color.Yellow("No identity available: scenarios that log in will be skipped (run registration, seed --save-identity, or set UIFLOW_EMAIL)")
	}

	fixture := &domain.Fixture{RunID: uuid.NewString()}
	logger.Info().Str("run_id", fixture.RunID).Str("base_url", rc.config.BaseURL).Int("scenarios", plan.Total()).Msg("run started")

	rc.Formatter.PrintBanner(plan.Total())
	rc.Executor.SetProgress(rc.progress(plan.Total()))

	results, duration, runErr := rc.Executor.ExecutePlan(ctx, plan, fixture, rc.config.Flags.FailFast)

	if rc.config.Flags.RerunFailures && runErr == nil {
		var rerunDuration time.Duration
		results, rerunDuration, runErr = rc.rerunFailures(ctx, results, fixture)
		duration += rerunDuration
	}

	var failures []domain.TestFailure
	failed := 0
	for _, result := range results {
		if !result.Success {
			failed++
			failures = append(failures, rc.Parser.ParseFailure(result)...)
		}
	}

	if err := rc.Storage.Save(fixture.RunID, results, failures, duration, rc.config.Processors); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	rc.saveIdentity(fixture, logger)

	output, err := rc.Storage.Load()
	if err != nil {
		return err
	}
	if err := rc.Formatter.PrintMetaStats(output); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	if failed > 0 && rc.config.Flags.OpenFaills && rc.Viewer != nil {
		if err := rc.Viewer.View(output); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenario(s) did not pass", failed, len(results))
	}
	return nil
}

// selectScenarios applies the name, tag and last-failed filters
func (rc *RunCommand) selectScenarios() ([]domain.Scenario, error) {
	flags := rc.config.Flags
	selected := rc.Registry.Scenarios()
	selected = rc.Filter.FilterByName(selected, flags.NameFilter)
	selected = rc.Filter.FilterByTag(selected, flags.Tag)

	if flags.OnlyFailed {
		last, err := rc.Storage.Load()
		if err != nil {
			return nil, fmt.Errorf("--failed needs a previous run: %w", err)
		}
		selected = rc.Filter.FilterByNames(selected, last.FailedScenarios())
	}
	return selected, nil
}

// rerunFailures runs every scenario that did not pass once more, with the
// identity the first pass settled on, and replaces its result.
func (rc *RunCommand) rerunFailures(ctx context.Context, results []domain.TestResult, fixture *domain.Fixture) ([]domain.TestResult, time.Duration, error) {
	var names []string
	for _, r := range results {
		if !r.Success {
			names = append(names, r.Scenario)
		}
	}
	if len(names) == 0 {
		return results, 0, nil
	}

	retry := rc.Filter.FilterByNames(rc.Registry.Scenarios(), names)
	plan, err := rc.Planner.Plan(retry)
	if err != nil {
		return results, 0, err
	}

	color.Yellow("\nRerunning %d failed scenario(s)", len(retry))
	rc.Executor.SetProgress(rc.progress(plan.Total()))
	rerun, duration, err := rc.Executor.ExecutePlan(ctx, plan, fixture, false)

	position := make(map[string]int, len(results))
	for i, r := range results {
		position[r.Scenario] = i
	}
	merged := append([]domain.TestResult(nil), results...)
	for _, r := range rerun {
		if i, ok := position[r.Scenario]; ok {
			merged[i] = r
		}
	}
	return merged, duration, err
}

// saveIdentity persists an identity produced during the run when asked to
func (rc *RunCommand) saveIdentity(fixture *domain.Fixture, logger *log.Logger) {
	if !rc.config.Flags.SaveIdentity || !fixture.HasIdentity() || fixture.Identity.Source != "registration" {
		return
	}
	if err := rc.Identities.SaveIdentity(fixture.Identity); err != nil {
		color.Red("Failed to store identity: %v", err)
		return
	}
	logger.Info().Str("email", fixture.Identity.Email).Str("path", rc.Identities.Path()).Msg("identity stored")
}
