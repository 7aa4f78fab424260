// Package verifier drives one browser session through a UI workflow and
// asserts its outcome. Every operation is a step: it either succeeds and
// advances the state machine or fails the scenario for good.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"

	"uiflow/internal/browser"
	"uiflow/internal/domain"
	"uiflow/internal/logging"
)

// DialogPolicy decides how SubmitAndReconcile treats a dialog after a click
type DialogPolicy int

const (
	// DialogForbidden fails the step when any dialog appears
	DialogForbidden DialogPolicy = iota
	// DialogTolerated accepts a dialog unless its text reads as a failure
	DialogTolerated
	// DialogExpected fails the step when no dialog appears
	DialogExpected
)

// failureMarkers flag tolerated dialogs that report an error. Matched
// against the lowercased dialog text.
var failureMarkers = []string{"❌", "error", "failed"}

var (
	loginEmail    = browser.XPath("//input[@type='email']")
	loginPassword = browser.XPath("//input[@type='password']")
	loginSubmit   = browser.ButtonText("Sign in")
)

// Options configures a Verifier
type Options struct {
	Scenario     string
	BaseURL      string
	StepTimeout  time.Duration
	SettleDelay  time.Duration
	DialogWait   time.Duration
	PollInterval time.Duration
	ArtifactsDir string
	Logger       *log.Logger
}

// StepRecord is one completed or failed step
type StepRecord struct {
	Name     string
	State    State
	Duration time.Duration
	Err      error
}

// Verifier sequences the steps of one scenario against one session
type Verifier struct {
	driver browser.Driver
	opts   Options

	state     State
	steps     []StepRecord
	dialogs   []string
	artifacts []string
	failure   *StepError
}

// New returns a verifier in the Init state
func New(driver browser.Driver, opts Options) *Verifier {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 10 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Verifier{driver: driver, opts: opts}
}

func (v *Verifier) logger() *log.Logger { return v.opts.Logger }

// State returns the current state
func (v *Verifier) State() State { return v.state }

// Steps returns every step run so far
func (v *Verifier) Steps() []StepRecord { return v.steps }

// Passed counts successful steps
func (v *Verifier) Passed() int {
	n := 0
	for _, s := range v.steps {
		if s.Err == nil {
			n++
		}
	}
	return n
}

// Failure returns the error that moved the verifier to Failed
func (v *Verifier) Failure() *StepError { return v.failure }

// Dialogs returns the text of every dialog handled, in order
func (v *Verifier) Dialogs() []string { return v.dialogs }

// LastDialog returns the most recently handled dialog text
func (v *Verifier) LastDialog() (string, bool) {
	if len(v.dialogs) == 0 {
		return "", false
	}
	return v.dialogs[len(v.dialogs)-1], true
}

// Artifacts returns the files captured on failure
func (v *Verifier) Artifacts() []string { return v.artifacts }

// URL resolves an application path against the base URL
func (v *Verifier) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return v.opts.BaseURL + path
}

// CurrentURL returns the page URL, or empty when it cannot be read
func (v *Verifier) CurrentURL(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, v.opts.StepTimeout)
	defer cancel()
	u, err := v.driver.URL(ctx)
	if err != nil {
		return ""
	}
	return u
}

// step runs fn as one named step that moves the verifier to next
func (v *Verifier) step(ctx context.Context, name string, next State, fn func(ctx context.Context) error) error {
	if v.state == Failed || v.state == TornDown {
		return ErrAborted
	}
	if next != v.state && !CanTransition(v.state, next) {
		return v.fail(ctx, name, 0, fmt.Errorf("invalid transition %s -> %s", v.state, next))
	}

	start := time.Now()
	stepCtx, cancel := context.WithTimeout(ctx, v.opts.StepTimeout+v.opts.SettleDelay+v.opts.DialogWait)
	err := fn(stepCtx)
	cancel()
	elapsed := time.Since(start)

	if err != nil {
		return v.fail(ctx, name, elapsed, err)
	}

	v.steps = append(v.steps, StepRecord{Name: name, State: next, Duration: elapsed})
	v.logger().Info().
		Str("scenario", v.opts.Scenario).
		Str("step", name).
		Str("state", next.String()).
		Dur("elapsed", elapsed).
		Msg("step passed")
	v.state = next
	return nil
}

func (v *Verifier) fail(ctx context.Context, name string, elapsed time.Duration, err error) error {
	se := classify(name, err)
	if se.URL == "" {
		se.URL = v.CurrentURL(ctx)
	}
	v.captureArtifacts(ctx, se)

	v.failure = se
	v.steps = append(v.steps, StepRecord{Name: name, State: Failed, Duration: elapsed, Err: se})
	v.state = Failed
	v.logger().Error().
		Str("scenario", v.opts.Scenario).
		Str("step", name).
		Str("kind", string(se.Kind)).
		Str("dialog", se.Dialog).
		Str("url", se.URL).
		Err(se).
		Msg("step failed")
	return se
}

// Authenticate signs in through the login form. A dialog during sign-in
// fails the step with the dialog text; so does staying on /login.
func (v *Verifier) Authenticate(ctx context.Context, id domain.Identity) error {
	return v.step(ctx, "authenticate", Authenticated, func(ctx context.Context) error {
		if id.IsZero() {
			return &StepError{Kind: KindAssertionMismatch, Message: "no identity available"}
		}
		if err := v.load(ctx, "/login"); err != nil {
			return err
		}
		if err := v.waitPresent(ctx, loginEmail); err != nil {
			return err
		}
		if err := v.driver.SendKeys(ctx, loginEmail, id.Email); err != nil {
			return err
		}
		if err := v.driver.SendKeys(ctx, loginPassword, id.Password); err != nil {
			return err
		}
		if err := v.clickWithFallback(ctx, loginSubmit); err != nil {
			return err
		}

		err := v.poll(ctx, func() (bool, error) {
			if _, open := v.driver.Dialog(); open {
				return true, nil
			}
			u, err := v.driver.URL(ctx)
			if err != nil {
				return false, nil
			}
			return !onPath(u, "/login"), nil
		})
		if text, handled, derr := v.takeDialog(ctx); derr != nil {
			return derr
		} else if handled {
			return &StepError{Kind: KindUnexpectedDialog, Message: "login rejected", Dialog: text}
		}
		if err != nil {
			return withURL(mismatch("still on /login after sign in"), v.CurrentURL(ctx))
		}
		return v.settle(ctx)
	})
}

// Navigate loads path and waits for the page to settle
func (v *Verifier) Navigate(ctx context.Context, path string) error {
	return v.step(ctx, "navigate "+path, NavigatedToTarget, func(ctx context.Context) error {
		return v.load(ctx, path)
	})
}

// Fill applies fields to the current page, one step per field
func (v *Verifier) Fill(ctx context.Context, fields ...Field) error {
	for _, f := range fields {
		f := f
		err := v.step(ctx, "fill "+f.Name, FormFilled, func(ctx context.Context) error {
			return v.apply(ctx, f)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// NavigateAndFill loads path, waits for it to render, then fills fields
func (v *Verifier) NavigateAndFill(ctx context.Context, path string, fields ...Field) error {
	if err := v.Navigate(ctx, path); err != nil {
		return err
	}
	return v.Fill(ctx, fields...)
}

// SubmitAndReconcile clicks button, then reconciles any dialog it raises
// according to policy. It returns the dialog text, if one was handled.
func (v *Verifier) SubmitAndReconcile(ctx context.Context, button browser.Locator, policy DialogPolicy) (string, error) {
	var text string
	var handled bool
	err := v.step(ctx, "submit "+button.String(), Submitted, func(ctx context.Context) error {
		if errs := v.driver.ScriptErrors(); len(errs) > 0 {
			return &StepError{Kind: KindScriptError, Message: strings.Join(errs, "; ")}
		}
		if err := v.waitPresent(ctx, button); err != nil {
			return err
		}
		if err := v.driver.WaitVisible(ctx, button); err != nil {
			if errors.Is(err, browser.ErrNotFound) {
				return &StepError{Kind: KindElementNotFound, Message: button.String() + " is not visible", Err: err}
			}
			return err
		}
		st, err := v.driver.State(ctx, button)
		if err != nil {
			return err
		}
		if !st.Enabled {
			return mismatch("%s is disabled", button)
		}
		if err := v.driver.ScrollIntoView(ctx, button); err != nil {
			return err
		}
		if err := v.clickWithFallback(ctx, button); err != nil {
			return err
		}

		text, handled, err = v.awaitDialog(ctx)
		if err != nil {
			return err
		}
		return reconcile(policy, text, handled)
	})
	if err != nil {
		return text, err
	}
	if handled {
		v.state = DialogHandled
	}
	return text, nil
}

func reconcile(policy DialogPolicy, text string, handled bool) error {
	switch policy {
	case DialogForbidden:
		if handled {
			return &StepError{Kind: KindUnexpectedDialog, Message: "unexpected dialog", Dialog: text}
		}
	case DialogTolerated:
		if handled && isFailureText(text) {
			return &StepError{Kind: KindUnexpectedDialog, Message: "dialog reports failure", Dialog: text}
		}
	case DialogExpected:
		if !handled {
			return mismatch("expected a dialog, none appeared")
		}
	}
	return nil
}

func isFailureText(text string) bool {
	text = strings.ToLower(text)
	for _, m := range failureMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// AcceptDialogs accepts up to max dialogs that appear on the current page
func (v *Verifier) AcceptDialogs(ctx context.Context, max int) ([]string, error) {
	var texts []string
	err := v.step(ctx, "accept dialogs", v.state, func(ctx context.Context) error {
		for i := 0; i < max; i++ {
			text, handled, err := v.awaitDialog(ctx)
			if err != nil {
				return err
			}
			if !handled {
				return nil
			}
			texts = append(texts, text)
		}
		return nil
	})
	return texts, err
}

// Probe reports whether loc appears within wait. It is not a step and
// never fails the scenario.
func (v *Verifier) Probe(ctx context.Context, loc browser.Locator, wait time.Duration) bool {
	if v.state == Failed || v.state == TornDown {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	err := v.poll(ctx, func() (bool, error) {
		n, err := v.driver.Count(ctx, loc)
		return n > loc.Index, err
	})
	return err == nil
}

// Back navigates one entry back in history
func (v *Verifier) Back(ctx context.Context) error {
	return v.step(ctx, "back", NavigatedToTarget, func(ctx context.Context) error {
		if err := v.driver.Back(ctx); err != nil {
			return err
		}
		if err := v.driver.WaitReady(ctx); err != nil {
			return err
		}
		return v.settle(ctx)
	})
}

// AssertOutcome checks each expectation, one step per expectation
func (v *Verifier) AssertOutcome(ctx context.Context, exps ...Expectation) error {
	for _, e := range exps {
		e := e
		err := v.step(ctx, "assert "+e.String(), OutcomeAsserted, func(ctx context.Context) error {
			if !e.settles() {
				return e.check(ctx, v)
			}
			var last error
			perr := v.poll(ctx, func() (bool, error) {
				last = e.check(ctx, v)
				return last == nil, nil
			})
			if perr != nil && last != nil {
				return last
			}
			return perr
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// TearDown closes the session. It is valid from every state.
func (v *Verifier) TearDown() error {
	if v.state == TornDown {
		return nil
	}
	v.state = TornDown
	return v.driver.Close()
}

func (v *Verifier) load(ctx context.Context, path string) error {
	if err := v.driver.Navigate(ctx, v.URL(path)); err != nil {
		return err
	}
	if err := v.driver.WaitReady(ctx); err != nil {
		return err
	}
	return v.settle(ctx)
}

func (v *Verifier) settle(ctx context.Context) error {
	if v.opts.SettleDelay <= 0 {
		return nil
	}
	t := time.NewTimer(v.opts.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (v *Verifier) waitPresent(ctx context.Context, loc browser.Locator) error {
	err := v.poll(ctx, func() (bool, error) {
		if _, open := v.driver.Dialog(); open {
			return false, browser.ErrDialogOpen
		}
		// lookup errors while the page re-renders are transient
		n, err := v.driver.Count(ctx, loc)
		if errors.Is(err, browser.ErrDialogOpen) {
			return false, err
		}
		return err == nil && n > loc.Index, nil
	})
	if errors.Is(err, browser.ErrDialogOpen) {
		d, _ := v.driver.Dialog()
		return &StepError{Kind: KindUnexpectedDialog, Message: "dialog blocked " + loc.String(), Dialog: d.Message}
	}
	if err != nil {
		return &StepError{Kind: KindElementNotFound, Message: loc.String(), Err: err}
	}
	return nil
}

// clickWithFallback clicks natively and falls back to a script click only
// when another element covers the target
func (v *Verifier) clickWithFallback(ctx context.Context, loc browser.Locator) error {
	err := v.driver.Click(ctx, loc)
	if !errors.Is(err, browser.ErrIntercepted) || ctx.Err() != nil {
		return err
	}
	v.logger().Warn().Str("scenario", v.opts.Scenario).Str("target", loc.String()).Err(err).Msg("click intercepted, using script click")
	return v.driver.ScriptClick(ctx, loc)
}

// awaitDialog waits up to DialogWait for a dialog, accepts it and records
// its text
func (v *Verifier) awaitDialog(ctx context.Context) (string, bool, error) {
	if v.opts.DialogWait > 0 {
		wctx, cancel := context.WithTimeout(ctx, v.opts.DialogWait)
		_ = v.poll(wctx, func() (bool, error) {
			_, open := v.driver.Dialog()
			return open, nil
		})
		cancel()
	}
	return v.takeDialog(ctx)
}

// takeDialog accepts the open dialog, if any
func (v *Verifier) takeDialog(ctx context.Context) (string, bool, error) {
	d, open := v.driver.Dialog()
	if !open {
		return "", false, nil
	}
	if err := v.driver.HandleDialog(ctx, true); err != nil {
		return d.Message, false, err
	}
	v.dialogs = append(v.dialogs, d.Message)
	v.logger().Info().Str("scenario", v.opts.Scenario).Str("dialog", d.Message).Msg("dialog accepted")
	return d.Message, true, nil
}

// poll evaluates cond until it holds, returns an error, or ctx expires
func (v *Verifier) poll(ctx context.Context, cond func() (bool, error)) error {
	ticker := time.NewTicker(v.opts.PollInterval)
	defer ticker.Stop()
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func onPath(rawURL, path string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.Contains(rawURL, path)
	}
	return strings.HasPrefix(u.Path, path)
}
