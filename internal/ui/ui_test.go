package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"uiflow/internal/config"
	"uiflow/internal/domain"
	"uiflow/internal/storage"
)

func plainFormatter(t *testing.T) (*Formatter, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	f := NewFormatter(config.New())
	f.SetOutput(&buf)
	return f, &buf
}

func TestFormatter_PrintMetaStats_AllPassed(t *testing.T) {
	f, buf := plainFormatter(t)

	err := f.PrintMetaStats(&domain.TestResultsOutput{Meta: domain.TestResultsMeta{
		TotalScenarios: 3, PassedScenarios: 3, DurationSeconds: 4.5, Workers: 1, Driver: "chromedp",
	}})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Total Scenarios", "4.50s", "chromedp", "All scenarios passed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatter_PrintMetaStats_FailureTree(t *testing.T) {
	f, buf := plainFormatter(t)

	output := &domain.TestResultsOutput{
		Meta: domain.TestResultsMeta{TotalScenarios: 3, PassedScenarios: 1, FailedScenarios: 1, SkippedScenarios: 1},
		Details: []domain.TestFailure{
			{Scenario: "survey-no-role", Step: "assert dialog", Kind: "assertion_mismatch", Message: "got other\nsecond line", DialogText: "Oops"},
			{Scenario: "login", Step: "setup", Kind: "skipped", Message: "no identity available", Resolved: true},
		},
	}
	if err := f.PrintMetaStats(output); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{"1 scenario(s) failed, 1 skipped", "├── survey-no-role", "assert dialog [assertion_mismatch]", "got other", `dialog: "Oops"`, "└── login", "✓ setup"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "second line") {
		t.Errorf("only the first message line belongs in the tree")
	}
}

func TestFormatter_PrintMetaStats_Nil(t *testing.T) {
	f, _ := plainFormatter(t)
	if err := f.PrintMetaStats(nil); err == nil {
		t.Error("expected error for nil output")
	}
}

func TestFormatter_PrintScenarioList(t *testing.T) {
	f, buf := plainFormatter(t)
	scenarios := []domain.Scenario{
		{Name: "registration", Description: "Register", ProvidesIdentity: true, Tags: []string{"auth"}, Steps: []string{"navigate /register", "submit Next"}},
		{Name: "login", NeedsIdentity: true},
	}

	f.PrintScenarioList(scenarios, true, map[string]struct{}{"login": {}})
	out := buf.String()

	for _, want := range []string{"Found 2 scenario(s)", "├── registration (provides identity; tags: auth)", "│   ├── navigate /register", "│   └── submit Next", "└── login [F] (needs identity)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	f.PrintScenarioList(scenarios, false, nil)
	if strings.Contains(buf.String(), "navigate /register") {
		t.Error("steps printed without showSteps")
	}
}

func TestFormatter_PrintSeedResults(t *testing.T) {
	f, buf := plainFormatter(t)
	f.PrintSeedResults([]domain.SeedResult{
		{Email: "a@example.com", Inserted: true, ApplicationsCleared: 2},
		{Email: "b@example.com"},
		{Email: "mentee@example.com", Inserted: true, Applied: true, Paired: true},
	})
	out := buf.String()
	if !strings.Contains(out, "✓ mentee@example.com inserted, application approved, paired") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "✓ a@example.com inserted, 2 application(s) cleared") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "b@example.com already present") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestErrorViewer_ToggleResolvedPersists(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	st := storage.NewJSONStorage(cfg)
	if err := st.Save("run", nil, []domain.TestFailure{{Scenario: "login"}, {Scenario: "survey-no-role"}}, time.Second, 1); err != nil {
		t.Fatal(err)
	}
	results, err := st.Load()
	if err != nil {
		t.Fatal(err)
	}

	ev := NewErrorViewer(cfg, st)
	if err := ev.ToggleResolved(results, 1); err != nil {
		t.Fatal(err)
	}
	if countUnresolved(results) != 1 {
		t.Errorf("expected 1 unresolved, got %d", countUnresolved(results))
	}

	reloaded, err := st.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.Details[1].Resolved || reloaded.Details[0].Resolved {
		t.Errorf("resolved flags not persisted: %+v", reloaded.Details)
	}

	if err := ev.ToggleResolved(results, 5); err == nil {
		t.Error("expected out of range error")
	}
}

func TestFormatFailure(t *testing.T) {
	failure := domain.TestFailure{
		Scenario:   "survey-full-flow",
		Step:       "submit [Next]",
		Kind:       "unexpected_dialog",
		Message:    "dialog blocked",
		DialogText: "Please answer all questions",
		URL:        "http://localhost:3000/survey",
		Dialogs:    []string{"first", "second"},
		Artifacts:  []string{"storage/artifacts/run/survey-full-flow-03-submit.png"},
	}

	details := formatFailureDetails(failure)
	for _, want := range []string{"unexpected_dialog", "http://localhost:3000/survey", "Please answer all questions", "2. second", "survey-full-flow-03-submit.png"} {
		if !strings.Contains(details, want) {
			t.Errorf("details missing %q:\n%s", want, details)
		}
	}

	stats := formatFailureStats(failure, 1)
	if !strings.Contains(stats, "survey-full-flow") {
		t.Errorf("stats missing scenario: %s", stats)
	}
	if strings.Contains(stats, "[Next]") {
		t.Errorf("step brackets must be escaped for tview: %s", stats)
	}

	if got := listItemText(domain.TestFailure{}, 2); !strings.Contains(got, "Scenario 3") {
		t.Errorf("unexpected list text %q", got)
	}
	if got := listItemText(domain.TestFailure{Scenario: "login", Resolved: true}, 0); !strings.HasPrefix(got, "[gray]✓") {
		t.Errorf("resolved item not marked: %q", got)
	}
}
