package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"uiflow/internal/config"
	"uiflow/internal/discovery"
	"uiflow/internal/scenarios"
	"uiflow/internal/storage"
	"uiflow/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config    *config.Config
	registry  *scenarios.Registry
	filter    *discovery.Filter
	formatter *ui.Formatter
	storage   storage.Storage
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	cfg *config.Config,
	registry *scenarios.Registry,
	filter *discovery.Filter,
	formatter *ui.Formatter,
	st storage.Storage,
) *ListCommand {
	return &ListCommand{
		config:    cfg,
		registry:  registry,
		filter:    filter,
		formatter: formatter,
		storage:   st,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	list := lc.registry.Scenarios()
	list = lc.filter.FilterByName(list, lc.config.Flags.NameFilter)
	list = lc.filter.FilterByTag(list, lc.config.Flags.Tag)

	if len(list) == 0 {
		color.Yellow("No scenarios found")
		return nil
	}

	// Mark failures from the last run when there is one
	failed := make(map[string]struct{})
	if last, err := lc.storage.Load(); err == nil {
		for _, name := range last.FailedScenarios() {
			failed[name] = struct{}{}
		}
	}

	lc.formatter.PrintScenarioList(list, lc.config.Flags.Steps, failed)
	return nil
}
