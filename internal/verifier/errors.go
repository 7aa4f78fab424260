package verifier

import (
	"context"
	"errors"
	"fmt"

	"uiflow/internal/browser"
)

// ErrAborted is returned by every operation after a step has failed
var ErrAborted = errors.New("verifier aborted after an earlier failure")

// Kind classifies a step failure
type Kind string

const (
	KindElementNotFound   Kind = "element_not_found"
	KindUnexpectedDialog  Kind = "unexpected_dialog"
	KindAssertionMismatch Kind = "assertion_mismatch"
	KindScriptError       Kind = "script_error"
	KindTimeout           Kind = "timeout"
	KindDriver            Kind = "driver"
)

// StepError is the failure of one verifier step
type StepError struct {
	Step    string
	Kind    Kind
	Message string
	Dialog  string
	URL     string
	Err     error
}

func (e *StepError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Dialog != "" {
		msg = fmt.Sprintf("%s (dialog: %q)", msg, e.Dialog)
	}
	if e.Step == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Step, e.Kind, msg)
}

func (e *StepError) Unwrap() error { return e.Err }

// classify turns any error returned inside a step into a StepError
func classify(step string, err error) *StepError {
	var se *StepError
	if errors.As(err, &se) {
		if se.Step == "" {
			se.Step = step
		}
		return se
	}

	kind := KindDriver
	switch {
	case errors.Is(err, browser.ErrNotFound):
		kind = KindElementNotFound
	case errors.Is(err, browser.ErrDialogOpen):
		kind = KindUnexpectedDialog
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	}
	return &StepError{Step: step, Kind: kind, Message: err.Error(), Err: err}
}

func mismatch(format string, args ...any) *StepError {
	return &StepError{Kind: KindAssertionMismatch, Message: fmt.Sprintf(format, args...)}
}
