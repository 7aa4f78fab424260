package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"uiflow/internal/config"
	"uiflow/internal/domain"
)

// Formatter formats and displays output
type Formatter struct {
	config *config.Config
	out    io.Writer
}

// NewFormatter creates a new Formatter writing to the color-aware stdout
func NewFormatter(cfg *config.Config) *Formatter {
	return &Formatter{config: cfg, out: color.Output}
}

// SetOutput redirects everything the formatter prints
func (f *Formatter) SetOutput(w io.Writer) {
	f.out = w
}

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	white  = color.New(color.FgWhite)
	gray   = color.New(color.FgHiBlack)
)

// PrintBanner prints the run header
func (f *Formatter) PrintBanner(scenarioCount int) {
	cyan.Fprintln(f.out, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.out, "║                      UI Workflow Verifier                     ║")
	cyan.Fprintln(f.out, "╚═══════════════════════════════════════════════════════════════╝")
	white.Fprintf(f.out, "Target: %s | Driver: %s | Scenarios: %d | Workers: %d\n\n",
		f.config.BaseURL, f.config.Driver, scenarioCount, f.config.Processors)
}

// PrintMetaStats displays the statistics of a run followed by its failures
func (f *Formatter) PrintMetaStats(output *domain.TestResultsOutput) error {
	if output == nil {
		return fmt.Errorf("no results to print")
	}
	meta := output.Meta

	fmt.Fprint(f.out, "\n")
	cyan.Fprintln(f.out, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.out, "║                  Scenario Execution Statistics                ║")
	cyan.Fprintln(f.out, "╚═══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(f.out)

	rows := []struct {
		label string
		value string
		c     *color.Color
	}{
		{"Total Scenarios", fmt.Sprint(meta.TotalScenarios), white},
		{"Passed Scenarios", fmt.Sprint(meta.PassedScenarios), green},
		{"Failed Scenarios", fmt.Sprint(meta.FailedScenarios), red},
		{"Skipped Scenarios", fmt.Sprint(meta.SkippedScenarios), yellow},
		{"Duration", fmt.Sprintf("%.2fs", meta.DurationSeconds), white},
		{"Workers", fmt.Sprint(meta.Workers), white},
		{"Driver", meta.Driver, white},
		{"Run ID", meta.RunID, white},
		{"Timestamp", meta.Timestamp, white},
	}

	fmt.Fprintln(f.out, "┌─────────────────────────────────┬─────────────────────────────────────┐")
	for i, row := range rows {
		fmt.Fprintf(f.out, "│ %-31s │ ", row.label)
		row.c.Fprintf(f.out, "%-35s", row.value)
		fmt.Fprintln(f.out, " │")
		if i < len(rows)-1 {
			fmt.Fprintln(f.out, "├─────────────────────────────────┼─────────────────────────────────────┤")
		}
	}
	fmt.Fprintln(f.out, "└─────────────────────────────────┴─────────────────────────────────────┘")

	fmt.Fprintln(f.out)
	notRun := meta.FailedScenarios + meta.SkippedScenarios
	if notRun == 0 {
		green.Fprintln(f.out, "✓ All scenarios passed!")
		return nil
	}
	red.Fprintf(f.out, "✗ %d scenario(s) failed, %d skipped\n\n", meta.FailedScenarios, meta.SkippedScenarios)
	f.printFailureTree(output.Details)
	return nil
}

// printFailureTree prints failures grouped by scenario, one branch per failed step
func (f *Formatter) printFailureTree(failures []domain.TestFailure) {
	var order []string
	byScenario := make(map[string][]domain.TestFailure)
	for _, failure := range failures {
		if _, ok := byScenario[failure.Scenario]; !ok {
			order = append(order, failure.Scenario)
		}
		byScenario[failure.Scenario] = append(byScenario[failure.Scenario], failure)
	}

	for i, name := range order {
		lastScenario := i == len(order)-1
		branch, indent := "├── ", "│   "
		if lastScenario {
			branch, indent = "└── ", "    "
		}
		yellow.Fprintf(f.out, "%s%s\n", branch, name)

		items := byScenario[name]
		for j, failure := range items {
			stepBranch, stepIndent := "├── ", "│   "
			if j == len(items)-1 {
				stepBranch, stepIndent = "└── ", "    "
			}
			if failure.Resolved {
				gray.Fprintf(f.out, "%s%s✓ %s\n", indent, stepBranch, failure.Step)
				continue
			}
			red.Fprintf(f.out, "%s%s%s [%s]\n", indent, stepBranch, failure.Step, failure.Kind)
			if failure.Message != "" {
				fmt.Fprintf(f.out, "%s%s%s\n", indent, stepIndent, firstLine(failure.Message))
			}
			if failure.DialogText != "" {
				cyan.Fprintf(f.out, "%s%sdialog: %q\n", indent, stepIndent, failure.DialogText)
			}
		}
	}
}

// PrintScenarioList prints scenarios, optionally with their steps.
// failed is optional; scenarios in it are marked with [F] in red (from last run).
func (f *Formatter) PrintScenarioList(scenarios []domain.Scenario, showSteps bool, failed map[string]struct{}) {
	green.Fprintf(f.out, "Found %d scenario(s):\n\n", len(scenarios))

	for i, s := range scenarios {
		last := i == len(scenarios)-1
		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}

		marker := ""
		if _, ok := failed[s.Name]; ok {
			marker = " " + red.Sprint("[F]")
		}
		var notes []string
		if s.ProvidesIdentity {
			notes = append(notes, "provides identity")
		}
		if s.NeedsIdentity {
			notes = append(notes, "needs identity")
		}
		if len(s.Tags) > 0 {
			notes = append(notes, "tags: "+strings.Join(s.Tags, ","))
		}
		note := ""
		if len(notes) > 0 {
			note = " " + gray.Sprintf("(%s)", strings.Join(notes, "; "))
		}

		fmt.Fprintf(f.out, "%s%s%s%s\n", branch, cyan.Sprint(s.Name), marker, note)
		if s.Description != "" {
			fmt.Fprintf(f.out, "%s%s\n", indent, s.Description)
		}

		if showSteps {
			for j, step := range s.Steps {
				stepBranch := "├── "
				if j == len(s.Steps)-1 {
					stepBranch = "└── "
				}
				fmt.Fprintf(f.out, "%s%s%s\n", indent, stepBranch, yellow.Sprint(step))
			}
		}

		if !last {
			fmt.Fprintln(f.out)
		}
	}
}

// PrintSeedResults prints one line per seeded identity
func (f *Formatter) PrintSeedResults(results []domain.SeedResult) {
	for _, r := range results {
		switch {
		case r.Error != nil:
			red.Fprintf(f.out, "✗ %s: %v\n", r.Email, r.Error)
		case r.Inserted:
			green.Fprintf(f.out, "✓ %s inserted", r.Email)
		default:
			yellow.Fprintf(f.out, "• %s already present", r.Email)
		}
		if r.Error == nil {
			if r.ApplicationsCleared > 0 {
				fmt.Fprintf(f.out, ", %d application(s) cleared", r.ApplicationsCleared)
			}
			if r.Applied {
				fmt.Fprint(f.out, ", application approved")
			}
			if r.Paired {
				fmt.Fprint(f.out, ", paired")
			}
			fmt.Fprintln(f.out)
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
