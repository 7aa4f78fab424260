package scenarios

import (
	"context"
	"fmt"

	"uiflow/internal/browser"
	"uiflow/internal/domain"
	"uiflow/internal/verifier"
)

var (
	menteeRadio       = browser.XPath("//input[@type='radio' and @value='mentee']")
	applyButton       = browser.XPath("//button[contains(text(), 'Apply') and not(contains(text(), 'Cancel'))]")
	cancelApplyButton = browser.ButtonText("Cancel Apply")
)

func sessionPath(id int) string {
	return fmt.Sprintf("/sessions/%d", id)
}

func applySession() Definition {
	return Definition{
		Scenario: domain.Scenario{
			Name:          "apply-session",
			Description:   "Apply to the configured session as a mentee and reach its survey",
			Tags:          []string{"session"},
			Steps:         []string{"authenticate", "navigate /sessions/{id}", "click mentee role", "submit Apply", "assert url contains /survey and sessionId={id}"},
			NeedsIdentity: true,
		},
		Run: func(ctx context.Context, v *verifier.Verifier, env *Env) error {
			if err := v.Authenticate(ctx, env.Identity()); err != nil {
				return err
			}
			if err := v.NavigateAndFill(ctx, sessionPath(env.SessionID), verifier.Click("role", menteeRadio)); err != nil {
				return err
			}
			if _, err := v.SubmitAndReconcile(ctx, applyButton, verifier.DialogTolerated); err != nil {
				return err
			}
			return v.AssertOutcome(ctx, verifier.URLContains("/survey", fmt.Sprintf("sessionId=%d", env.SessionID)))
		},
	}
}

// cancelPreviousApplication withdraws an earlier application so the survey
// starts unlocked. A session without one is left alone.
func cancelPreviousApplication(ctx context.Context, v *verifier.Verifier, env *Env) error {
	if err := v.Navigate(ctx, sessionPath(env.SessionID)); err != nil {
		return err
	}
	if !v.Probe(ctx, cancelApplyButton, env.ProbeWait) {
		return nil
	}
	_, err := v.SubmitAndReconcile(ctx, cancelApplyButton, verifier.DialogTolerated)
	return err
}
