package parser

import (
	"errors"
	"strings"

	"uiflow/internal/domain"
	"uiflow/internal/verifier"
)

// Failure kinds for errors raised outside a verifier step
const (
	KindSetup   = "setup"
	KindSkipped = "skipped"
)

// StepParser reads verifier step errors out of scenario results
type StepParser struct{}

// NewStepParser creates a new StepParser
func NewStepParser() *StepParser {
	return &StepParser{}
}

// ParseStepCounts returns the steps that passed and failed in a result.
// A failed scenario always counts one failed step, even when the failure
// happened before the first step (browser launch, missing identity).
func (p *StepParser) ParseStepCounts(result domain.TestResult) (passed, failed int) {
	passed = result.StepsPassed
	if !result.Success {
		failed = 1
	}
	return passed, failed
}

// ParseFailure converts a failed result into failure records. Successful
// results produce none.
func (p *StepParser) ParseFailure(result domain.TestResult) []domain.TestFailure {
	if result.Success {
		return nil
	}

	failure := domain.TestFailure{
		Scenario:  result.Scenario,
		Step:      result.FailedStep,
		URL:       result.FinalURL,
		Dialogs:   result.Dialogs,
		Artifacts: result.Artifacts,
	}

	var se *verifier.StepError
	switch {
	case result.Error == nil:
		failure.Kind = string(verifier.KindDriver)
		failure.Message = "scenario failed without an error"
	case errors.As(result.Error, &se):
		failure.Kind = string(se.Kind)
		failure.Message = se.Message
		if failure.Message == "" && se.Err != nil {
			failure.Message = se.Err.Error()
		}
		failure.DialogText = se.Dialog
		if se.Step != "" {
			failure.Step = se.Step
		}
		if se.URL != "" {
			failure.URL = se.URL
		}
	case result.Skipped:
		failure.Kind = KindSkipped
		failure.Message = result.Error.Error()
	default:
		failure.Kind = KindSetup
		failure.Message = result.Error.Error()
	}

	if failure.Step == "" {
		failure.Step = KindSetup
	}
	failure.Message = strings.TrimSpace(failure.Message)
	return []domain.TestFailure{failure}
}
