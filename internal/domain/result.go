package domain

import "time"

// TestResult represents the result of executing one scenario
type TestResult struct {
	Scenario    string        // Name of the scenario that was executed
	Success     bool          // Whether every step and the final assertion passed
	Skipped     bool          // Scenario never started (e.g. no identity available)
	StepsPassed int           // Number of steps completed before the first failure
	FailedStep  string        // Step that failed, empty on success
	Dialogs     []string      // Text of every dialog observed, in order
	FinalURL    string        // Page URL when the scenario ended
	Artifacts   []string      // Screenshot and page dump paths captured on failure
	Error       error         // Error if execution failed
	Duration    time.Duration // Time taken to execute
	Identity    *Identity     // Identity produced by a provider scenario
}

// TestResultsMeta contains metadata about a run
type TestResultsMeta struct {
	RunID            string  `json:"run_id"`
	BaseURL          string  `json:"base_url"`
	Driver           string  `json:"driver"`
	TotalScenarios   int     `json:"total_scenarios"`
	FailedScenarios  int     `json:"failed_scenarios"`
	PassedScenarios  int     `json:"passed_scenarios"`
	SkippedScenarios int     `json:"skipped_scenarios"`
	Duration         string  `json:"duration"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Workers          int     `json:"workers"`
	Timestamp        string  `json:"timestamp"`
}

// TestResultsOutput is the complete output structure for run results
type TestResultsOutput struct {
	Meta    TestResultsMeta `json:"meta"`
	Details []TestFailure   `json:"details"`
}

// FailedScenarios returns the distinct scenario names that have failure records
func (o *TestResultsOutput) FailedScenarios() []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range o.Details {
		if d.Scenario == "" || seen[d.Scenario] {
			continue
		}
		seen[d.Scenario] = true
		names = append(names, d.Scenario)
	}
	return names
}
