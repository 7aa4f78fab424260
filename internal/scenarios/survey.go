package scenarios

import (
	"context"
	"fmt"

	"uiflow/internal/browser"
	"uiflow/internal/domain"
	"uiflow/internal/verifier"
)

// NoRoleMessage is the dialog shown when the survey starts without a role
const NoRoleMessage = "Please select a role before proceeding."

var (
	peerSupport   = browser.XPath("//label[contains(text(), 'Peer Support')]/input")
	goalSetting   = browser.XPath("//label[contains(text(), 'Goal Setting')]/input")
	confirmBox    = browser.XPath("//input[@type='checkbox']")
	submitButton  = browser.ButtonText("Submit")
	formGender    = verifier.FormValue("gender", "male")
	roleSelect    = browser.Name("participantRole")
	submittedText = "Application Submitted Successfully"
)

func surveyPath(sessionID int, role string) string {
	if role == "" {
		return fmt.Sprintf("/survey?sessionId=%d", sessionID)
	}
	return fmt.Sprintf("/survey?sessionId=%d&role=%s", sessionID, role)
}

func surveyStartFields() []verifier.Field {
	return []verifier.Field{
		formGender,
		verifier.FormValue("aboriginalTorresStraitIslander", "no"),
		verifier.FormValue("languageOtherThanEnglish", "no"),
		verifier.FormValue("livingSituation", "livingWithFamily"),
	}
}

func preferenceFields() []verifier.Field {
	return []verifier.Field{
		verifier.SelectLabelAt("participantRole", roleSelect, "Recipient"),
		verifier.Buttons("transplantType", "Kidney", "Liver"),
		verifier.SelectLabel("transplantYear", "2010"),
		verifier.SelectLabel("meetingPreference", "Online"),
		verifier.Buttons("sportsInterests", "Running", "Cycling"),
		verifier.Click("peer_support", peerSupport),
		verifier.Click("goal_setting", goalSetting),
	}
}

func lifestyleFields() []verifier.Field {
	return []verifier.Field{
		verifier.SelectLabel("physicalExerciseFrequency", "Often (2+×/week)"),
		verifier.SelectLabel("likeAnimals", "Like"),
		verifier.SelectLabel("likeCooking", "Neutral"),
		verifier.SelectLabel("travelImportance", "Very Important"),
		verifier.SelectLabel("freeTimePreference", "Neutral"),
		verifier.RangeAll("4"),
	}
}

// startSurvey authenticates, clears any earlier application and opens the
// survey start step
func startSurvey(ctx context.Context, v *verifier.Verifier, env *Env, role string) error {
	if err := v.Authenticate(ctx, env.Identity()); err != nil {
		return err
	}
	if err := cancelPreviousApplication(ctx, v, env); err != nil {
		return err
	}
	return v.Navigate(ctx, surveyPath(env.SessionID, role))
}

func next(ctx context.Context, v *verifier.Verifier, policy verifier.DialogPolicy) error {
	_, err := v.SubmitAndReconcile(ctx, nextButton, policy)
	return err
}

func surveyFullFlow() Definition {
	return Definition{
		Scenario: domain.Scenario{
			Name:        "survey-full-flow",
			Description: "Complete every survey step as a mentee and submit the application",
			Tags:        []string{"survey"},
			Steps: []string{
				"authenticate", "cancel previous application", "navigate /survey?role=mentee",
				"fill start step", "submit Next", "fill matching preferences", "submit Next",
				"fill lifestyle", "submit Next", "fill enneagram sliders", "submit Next",
				"tick confirmation", "submit Submit", "assert /submitform and success message",
			},
			NeedsIdentity: true,
		},
		Run: func(ctx context.Context, v *verifier.Verifier, env *Env) error {
			if err := startSurvey(ctx, v, env, "mentee"); err != nil {
				return err
			}
			pages := [][]verifier.Field{
				surveyStartFields(),
				preferenceFields(),
				lifestyleFields(),
				{verifier.RangeAll("3")},
			}
			for _, fields := range pages {
				if err := v.Fill(ctx, fields...); err != nil {
					return err
				}
				if err := next(ctx, v, verifier.DialogForbidden); err != nil {
					return err
				}
			}
			if err := v.Fill(ctx, verifier.Click("confirm", confirmBox)); err != nil {
				return err
			}
			if _, err := v.SubmitAndReconcile(ctx, submitButton, verifier.DialogTolerated); err != nil {
				return err
			}
			return v.AssertOutcome(ctx, verifier.URLContains("/submitform"), verifier.PageText(submittedText))
		},
	}
}

func surveyNoRole() Definition {
	return Definition{
		Scenario: domain.Scenario{
			Name:          "survey-no-role",
			Description:   "Advancing the survey start step without a role raises the role dialog",
			Tags:          []string{"survey"},
			Steps:         []string{"authenticate", "cancel previous application", "navigate /survey without role", "fill start step", "submit Next", "assert dialog equals " + NoRoleMessage},
			NeedsIdentity: true,
		},
		Run: func(ctx context.Context, v *verifier.Verifier, env *Env) error {
			if err := startSurvey(ctx, v, env, ""); err != nil {
				return err
			}
			if err := v.Fill(ctx, surveyStartFields()...); err != nil {
				return err
			}
			if err := next(ctx, v, verifier.DialogExpected); err != nil {
				return err
			}
			return v.AssertOutcome(ctx, verifier.DialogEquals(NoRoleMessage))
		},
	}
}

func surveyLockedForm() Definition {
	return Definition{
		Scenario: domain.Scenario{
			Name:          "survey-locked-form",
			Description:   "The survey start form is locked with its gender field disabled",
			Tags:          []string{"survey"},
			Steps:         []string{"authenticate", "cancel previous application", "navigate /survey?role=mentee", "assert gender disabled"},
			NeedsIdentity: true,
		},
		Run: func(ctx context.Context, v *verifier.Verifier, env *Env) error {
			if err := startSurvey(ctx, v, env, "mentee"); err != nil {
				return err
			}
			return v.AssertOutcome(ctx, verifier.ElementDisabled(formGender.Locator))
		},
	}
}

func surveyPreferencesValidation() Definition {
	return Definition{
		Scenario: domain.Scenario{
			Name:          "survey-preferences-validation",
			Description:   "Advancing empty matching preferences is blocked by a dialog",
			Tags:          []string{"survey"},
			Steps:         []string{"authenticate", "cancel previous application", "navigate /survey?role=mentee", "fill start step", "submit Next", "submit Next on empty preferences", "assert still on preferences"},
			NeedsIdentity: true,
		},
		Run: func(ctx context.Context, v *verifier.Verifier, env *Env) error {
			if err := startSurvey(ctx, v, env, "mentee"); err != nil {
				return err
			}
			if err := v.Fill(ctx, surveyStartFields()...); err != nil {
				return err
			}
			if err := next(ctx, v, verifier.DialogForbidden); err != nil {
				return err
			}
			if err := next(ctx, v, verifier.DialogExpected); err != nil {
				return err
			}
			return v.AssertOutcome(ctx, verifier.ElementPresent(roleSelect))
		},
	}
}
