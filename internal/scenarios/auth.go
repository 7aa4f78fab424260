package scenarios

import (
	"context"
	"time"

	"uiflow/internal/browser"
	"uiflow/internal/domain"
	"uiflow/internal/verifier"
)

var (
	emailInput      = browser.XPath("//input[@type='email']")
	passwordInput   = browser.XPath("//input[@type='password']")
	confirmInput    = passwordInput.Nth(1)
	questionSelect  = browser.Tag("select")
	answerInput     = browser.XPath("//label[text()='Your Answer']/following-sibling::input")
	resetAnswer     = browser.XPath("//input[@type='text']")
	nextButton      = browser.ButtonText("Next")
	resetButton     = browser.ButtonText("Reset Password")
	registerSuccess = "/register-success"
)

func registration() Definition {
	return Definition{
		Scenario: domain.Scenario{
			Name:             "registration",
			Description:      "Register a fresh account and hand its identity to later scenarios",
			Tags:             []string{"auth"},
			Steps:            []string{"navigate /register", "fill email, password, confirm, security question, answer", "submit Next", "assert url contains " + registerSuccess},
			ProvidesIdentity: true,
		},
		Run: func(ctx context.Context, v *verifier.Verifier, env *Env) error {
			newEmail := env.NewEmail
			if newEmail == nil {
				newEmail = UniqueEmail
			}
			id := domain.Identity{
				Email:            newEmail(),
				Password:         env.Password,
				SecurityQuestion: env.SecurityQuestion,
				SecurityAnswer:   env.SecurityAnswer,
				Source:           "registration",
			}

			err := v.NavigateAndFill(ctx, "/register",
				verifier.TextAt("email", emailInput, id.Email).MustFill(),
				verifier.TextAt("password", passwordInput, id.Password).MustFill(),
				verifier.TextAt("confirm_password", confirmInput, id.Password).MustFill(),
				verifier.SelectLabelAt("security_question", questionSelect, id.SecurityQuestion).MustFill(),
				verifier.TextAt("security_answer", answerInput, id.SecurityAnswer).MustFill(),
			)
			if err != nil {
				return err
			}
			if _, err := v.SubmitAndReconcile(ctx, nextButton, verifier.DialogTolerated); err != nil {
				return err
			}
			if err := v.AssertOutcome(ctx, verifier.URLContains(registerSuccess)); err != nil {
				return err
			}

			id.CreatedAt = time.Now()
			env.Provided = &id
			return nil
		},
	}
}

func login() Definition {
	return Definition{
		Scenario: domain.Scenario{
			Name:          "login",
			Description:   "Sign in with the fixture identity and leave the login page",
			Tags:          []string{"auth"},
			Steps:         []string{"authenticate", "assert url not contains /login"},
			NeedsIdentity: true,
		},
		Run: func(ctx context.Context, v *verifier.Verifier, env *Env) error {
			if err := v.Authenticate(ctx, env.Identity()); err != nil {
				return err
			}
			return v.AssertOutcome(ctx, verifier.URLNotContains("/login"))
		},
	}
}

func forgotPassword() Definition {
	return Definition{
		Scenario: domain.Scenario{
			Name:        "forgot-password",
			Description: "Reset the configured account's password through its security question",
			Tags:        []string{"auth"},
			Steps:       []string{"navigate /forgot-password", "fill email, question, answer, new password, confirm", "submit Reset Password", "assert dialog contains Password reset"},
		},
		Run: func(ctx context.Context, v *verifier.Verifier, env *Env) error {
			r := env.Reset
			err := v.NavigateAndFill(ctx, "/forgot-password",
				verifier.TextAt("email", emailInput, r.Email),
				verifier.SelectLabelAt("security_question", questionSelect, r.Question),
				verifier.TextAt("security_answer", resetAnswer, r.Answer),
				verifier.TextAt("new_password", passwordInput, r.NewPassword),
				verifier.TextAt("confirm_password", confirmInput, r.NewPassword),
			)
			if err != nil {
				return err
			}
			if _, err := v.SubmitAndReconcile(ctx, resetButton, verifier.DialogExpected); err != nil {
				return err
			}
			return v.AssertOutcome(ctx, verifier.DialogContains("Password reset"))
		},
	}
}
