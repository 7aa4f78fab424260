package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"uiflow/internal/config"
	"uiflow/internal/domain"
	"uiflow/internal/storage"
)

// ErrorViewer displays scenario failures in an interactive TUI
type ErrorViewer struct {
	config  *config.Config
	storage storage.Storage
}

// NewErrorViewer creates a new ErrorViewer
func NewErrorViewer(cfg *config.Config, st storage.Storage) *ErrorViewer {
	return &ErrorViewer{
		config:  cfg,
		storage: st,
	}
}

// ToggleResolved flips the resolved mark of one failure and persists the results
func (ev *ErrorViewer) ToggleResolved(results *domain.TestResultsOutput, index int) error {
	if index < 0 || index >= len(results.Details) {
		return fmt.Errorf("failure %d out of range", index)
	}
	results.Details[index].Resolved = !results.Details[index].Resolved
	return ev.storage.SaveOutput(results)
}

// View displays run failures in an interactive TUI
func (ev *ErrorViewer) View(results *domain.TestResultsOutput) error {
	if len(results.Details) == 0 {
		color.Green("✓ No scenario failures found!")
		return nil
	}

	app := tview.NewApplication()

	// Failed scenario steps (left side)
	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)

	for i, failure := range results.Details {
		list.AddItem(listItemText(failure, i), "", 0, nil)
	}

	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan).
		SetSecondaryTextColor(tview.Styles.SecondaryTextColor)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetWordWrap(false)

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)

	detailsContainer := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(detailsView, 0, 1, false).
		AddItem(tview.NewBox(), 2, 0, false)

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 3, 0, false).
		AddItem(detailsContainer, 0, 1, false)

	// list on the left (1/3), details on the right (2/3)
	flex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)

	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)
	footerView := tview.NewTextView().
		SetDynamicColors(true)

	updateHeader := func() {
		headerView.SetText(fmt.Sprintf(" Scenario Failures (%d total, %d unresolved) | Use ↑↓ to navigate, [yellow]R[white] to mark resolved, → to view details, ← to go back, Ctrl+C to exit ",
			len(results.Details), countUnresolved(results)))
	}
	updateHeader()

	updateDetails := func() {
		index := list.GetCurrentItem()
		if index >= 0 && index < len(results.Details) {
			failure := results.Details[index]
			statsView.SetText(formatFailureStats(failure, index+1))
			detailsView.SetText(formatFailureDetails(failure)).ScrollToBeginning()
		}
	}

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyUp, tcell.KeyDown:
			return event
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'r' || event.Rune() == 'R' {
				index := list.GetCurrentItem()
				if err := ev.ToggleResolved(results, index); err != nil {
					footerView.SetText("[red]" + tview.Escape(err.Error()))
				} else {
					footerView.SetText("")
				}
				list.SetItemText(index, listItemText(results.Details[index], index), "")
				updateHeader()
				updateDetails()
				return nil
			}
		}
		return event
	})

	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	list.SetChangedFunc(func(index int, mainText string, secondaryText string, shortcut rune) {
		updateDetails()
	})
	updateDetails()

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(flex, 0, 1, true).
		AddItem(footerView, 1, 0, false)

	if err := app.SetRoot(mainLayout, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}

func countUnresolved(results *domain.TestResultsOutput) int {
	count := 0
	for _, d := range results.Details {
		if !d.Resolved {
			count++
		}
	}
	return count
}

func listItemText(failure domain.TestFailure, index int) string {
	name := failure.Scenario
	if name == "" {
		name = fmt.Sprintf("Scenario %d", index+1)
	}
	name = tview.Escape(name)
	if failure.Resolved {
		return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s[white]", index+1, name)
	}
	return fmt.Sprintf("[yellow]%d.[white] %s", index+1, name)
}

// formatFailureDetails formats a failure for display using tview color tags ([red], [cyan], etc.)
func formatFailureDetails(failure domain.TestFailure) string {
	var builder strings.Builder
	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "[red]✗ Step: %s[white]\n\n", tview.Escape(failure.Step))
	fmt.Fprintf(w, "[cyan]Kind:[white]\t%s\n", failure.Kind)
	if failure.URL != "" {
		fmt.Fprintf(w, "[cyan]URL:[white]\t%s\n", tview.Escape(failure.URL))
	}
	fmt.Fprintf(w, "\n")

	if failure.Message != "" {
		fmt.Fprintf(w, "[yellow]Message:[white]\n%s\n\n", tview.Escape(failure.Message))
	}
	if failure.DialogText != "" {
		fmt.Fprintf(w, "[yellow]Dialog:[white]\n%s\n\n", tview.Escape(failure.DialogText))
	}
	if len(failure.Dialogs) > 0 {
		fmt.Fprintf(w, "[yellow]Dialogs seen:[white]\n")
		for i, d := range failure.Dialogs {
			fmt.Fprintf(w, "  %d. %s\n", i+1, tview.Escape(d))
		}
		fmt.Fprintf(w, "\n")
	}
	if len(failure.Artifacts) > 0 {
		fmt.Fprintf(w, "[yellow]Artifacts:[white]\n")
		for _, a := range failure.Artifacts {
			fmt.Fprintf(w, "  %s\n", tview.Escape(a))
		}
	}

	w.Flush()
	return builder.String()
}

// formatFailureStats formats the stats header for a failure
func formatFailureStats(failure domain.TestFailure, number int) string {
	scenario := failure.Scenario
	if scenario == "" {
		scenario = fmt.Sprintf("Scenario %d", number)
	}
	step := failure.Step
	if step == "" {
		step = "unknown step"
	}
	return fmt.Sprintf("[cyan]scenario:[white] [yellow]%s[white] » [yellow]%s[white]\n", tview.Escape(scenario), tview.Escape(step))
}
