package scenarios

import (
	"context"
	"strings"

	"uiflow/internal/browser"
	"uiflow/internal/domain"
	"uiflow/internal/verifier"
)

var (
	createAccountButton = browser.ButtonText("Create Account")
	editProfileButton   = browser.ButtonText("Edit Profile")
	securityButton      = browser.ButtonText("Password & Security")
	emailRow            = browser.XPath("//div[contains(@class, 'profile-info-row')][span[contains(text(), 'Email')]]")
)

func profileFields() []verifier.Field {
	return []verifier.Field{
		verifier.Text("first_name", "Selenium"),
		verifier.Text("last_name", "Bot"),
		verifier.ScriptValue("date_of_birth", "1999-05-01"),
		verifier.Text("address", "123 Test Street"),
		verifier.Text("city_suburb", "Testville"),
		verifier.Text("state", "Testonia"),
		verifier.Text("postal_code", "6000"),
		verifier.SelectLabel("gender", "Other"),
		verifier.SelectLabel("aboriginal_or_torres_strait_islander", "No"),
		verifier.Text("language_spoken_at_home", "English"),
		verifier.Text("living_situation", "With family"),
	}
}

func createProfile() Definition {
	return Definition{
		Scenario: domain.Scenario{
			Name:          "create-profile",
			Description:   "Fill the profile creation form and land on the profile page",
			Tags:          []string{"profile"},
			Steps:         []string{"authenticate", "navigate /profile-creation", "fill profile form", "submit Create Account", "navigate /profile", "assert url contains /profile"},
			NeedsIdentity: true,
		},
		Run: func(ctx context.Context, v *verifier.Verifier, env *Env) error {
			if err := v.Authenticate(ctx, env.Identity()); err != nil {
				return err
			}
			if err := v.NavigateAndFill(ctx, "/profile-creation", profileFields()...); err != nil {
				return err
			}
			if _, err := v.SubmitAndReconcile(ctx, createAccountButton, verifier.DialogTolerated); err != nil {
				return err
			}
			if err := v.Navigate(ctx, "/profile"); err != nil {
				return err
			}
			return v.AssertOutcome(ctx, verifier.URLContains("/profile"), verifier.URLNotContains("/login"))
		},
	}
}

func profilePage() Definition {
	return Definition{
		Scenario: domain.Scenario{
			Name:        "profile-page",
			Description: "Open the profile, completing it first when redirected, and follow its buttons",
			Tags:        []string{"profile"},
			Steps: []string{
				"authenticate", "navigate /profile", "accept dialogs",
				"complete profile when redirected to /profile-creation",
				"assert title My Profile and Email row",
				"submit Edit Profile", "assert url contains /profile-edit", "back",
				"submit Password & Security", "assert url contains /profile-security",
			},
			NeedsIdentity: true,
		},
		Run: func(ctx context.Context, v *verifier.Verifier, env *Env) error {
			if err := v.Authenticate(ctx, env.Identity()); err != nil {
				return err
			}
			if err := v.Navigate(ctx, "/profile"); err != nil {
				return err
			}
			if _, err := v.AcceptDialogs(ctx, 2); err != nil {
				return err
			}

			if strings.Contains(v.CurrentURL(ctx), "/profile-creation") {
				if err := v.Fill(ctx, profileFields()...); err != nil {
					return err
				}
				if _, err := v.SubmitAndReconcile(ctx, createAccountButton, verifier.DialogTolerated); err != nil {
					return err
				}
				if _, err := v.AcceptDialogs(ctx, 1); err != nil {
					return err
				}
				if err := v.AssertOutcome(ctx, verifier.URLNotContains("/profile-creation")); err != nil {
					return err
				}
				if err := v.Navigate(ctx, "/profile"); err != nil {
					return err
				}
			}

			err := v.AssertOutcome(ctx,
				verifier.SelectorText("h2", "My Profile"),
				verifier.ElementPresent(emailRow),
			)
			if err != nil {
				return err
			}
			if _, err := v.SubmitAndReconcile(ctx, editProfileButton, verifier.DialogForbidden); err != nil {
				return err
			}
			if err := v.AssertOutcome(ctx, verifier.URLContains("/profile-edit")); err != nil {
				return err
			}
			if err := v.Back(ctx); err != nil {
				return err
			}
			if _, err := v.SubmitAndReconcile(ctx, securityButton, verifier.DialogForbidden); err != nil {
				return err
			}
			return v.AssertOutcome(ctx, verifier.URLContains("/profile-security"))
		},
	}
}
