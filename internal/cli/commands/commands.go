package commands

import (
	"github.com/spf13/cobra"

	"uiflow/internal/cli"
	"uiflow/internal/config"
	"uiflow/internal/discovery"
	"uiflow/internal/execution"
	"uiflow/internal/parser"
	"uiflow/internal/scenarios"
	"uiflow/internal/seed"
	"uiflow/internal/storage"
	"uiflow/internal/ui"
)

// Commands holds all CLI commands
type Commands struct {
	Run    *RunCommand
	List   *ListCommand
	Seed   *SeedCommand
	Faills *FaillsCommand
}

// NewCommands creates all commands with dependencies
func NewCommands(cfg *config.Config) *Commands {
	registry := scenarios.Default()
	filter := discovery.NewFilter()
	identities := storage.NewIdentityStore(cfg)
	planner := discovery.NewPlanner(cfg, identities)
	runner := execution.NewRunner(cfg, registry, nil)
	scheduler := execution.NewRoundRobinScheduler()
	stepParser := parser.NewStepParser()
	executor := execution.NewWorkerPool(cfg, runner, scheduler, stepParser, nil)
	jsonStorage := storage.NewJSONStorage(cfg)
	formatter := ui.NewFormatter(cfg)
	dbManager := seed.NewDatabaseManager(cfg)
	errorViewer := ui.NewErrorViewer(cfg, jsonStorage)

	return &Commands{
		Run: NewRunCommand(cfg, RunDeps{
			Registry:   registry,
			Filter:     filter,
			Planner:    planner,
			Runner:     runner,
			Executor:   executor,
			Parser:     stepParser,
			Storage:    jsonStorage,
			Identities: identities,
			Formatter:  formatter,
			Viewer:     errorViewer,
		}),
		List:   NewListCommand(cfg, registry, filter, formatter, jsonStorage),
		Seed:   NewSeedCommand(cfg, dbManager, identities, formatter),
		Faills: NewFaillsCommand(cfg, jsonStorage, errorViewer),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	rootCmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "Path to the TOML config file (default uiflow.toml)")
	rootCmd.PersistentFlags().StringVarP(&flags.BaseURL, "base-url", "u", "", "Base URL of the application under test")

	// Every command resolves config the same way once its flags are parsed
	prepare := func(cmd *cobra.Command, args []string) error {
		return config.Prepare(cfg, flags.ToConfigFlags())
	}

	// Run command
	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Run UI workflow scenarios",
		Long:    "Drive the application through its UI flows in a real browser and assert each outcome",
		RunE:    c.Run.Execute,
		PreRunE: prepare,
	}
	runCmd.Flags().IntVarP(&flags.Processors, "processors", "p", config.DefaultProcessors, "Number of browser sessions to run in parallel")
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter scenarios by name pattern (supports wildcards, e.g., 'survey-*' or '*profile*')")
	runCmd.Flags().StringVarP(&flags.Tag, "tag", "t", "", "Run only scenarios with this tag")
	runCmd.Flags().StringVarP(&flags.Driver, "driver", "d", "", "Browser backend: chromedp or rod")
	runCmd.Flags().BoolVar(&flags.Headful, "headful", false, "Show the browser window")
	runCmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false, "Stop on first scenario failure")
	runCmd.Flags().BoolVar(&flags.OnlyFailed, "failed", false, "Run only scenarios that failed in the last run (from storage/uiflow-results.json)")
	runCmd.Flags().BoolVar(&flags.RerunFailures, "rerun-failures", false, "After running all scenarios, rerun only failed ones once and save that result")
	runCmd.Flags().BoolVar(&flags.OpenFaills, "open-faills", false, "Open the faills viewer when the run finishes with failures")
	runCmd.Flags().BoolVar(&flags.SaveIdentity, "save-identity", false, "Store the identity a registration produced for later runs")
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List available scenarios",
		Long:    "List the built-in scenarios without opening a browser",
		RunE:    c.List.Execute,
		PreRunE: prepare,
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter scenarios by name pattern (supports wildcards, e.g., 'survey-*' or '*profile*')")
	listCmd.Flags().StringVarP(&flags.Tag, "tag", "t", "", "List only scenarios with this tag")
	listCmd.Flags().BoolVarP(&flags.Steps, "steps", "s", false, "List the steps of each scenario")
	rootCmd.AddCommand(listCmd)

	// Seed command
	seedCmd := &cobra.Command{
		Use:     "seed",
		Short:   "Seed fixture users into the application database",
		Long:    "Insert the configured identity and the password-reset account with bcrypt hashes, leaving existing users untouched",
		RunE:    c.Seed.Execute,
		PreRunE: prepare,
	}
	seedCmd.Flags().BoolVar(&flags.ClearSessions, "clear-sessions", false, "Delete the seeded users' applications for the configured session")
	seedCmd.Flags().BoolVar(&flags.SaveIdentity, "save-identity", false, "Store the configured identity so runs without registration can log in")
	seedCmd.Flags().BoolVar(&flags.WithPair, "with-pair", false, "Also seed a mentor and mentee with approved applications for the session, matched as a pair")
	rootCmd.AddCommand(seedCmd)

	// Faills command
	faillsCmd := &cobra.Command{
		Use:     "faills",
		Short:   "View scenario failures interactively",
		Long:    "Display scenario failures from the last run in an interactive viewer",
		RunE:    c.Faills.Execute,
		PreRunE: prepare,
	}
	rootCmd.AddCommand(faillsCmd)
}
