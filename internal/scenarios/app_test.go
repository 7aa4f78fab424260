package scenarios

import (
	"strings"

	"uiflow/internal/browser"
	"uiflow/internal/browser/browsertest"
	"uiflow/internal/verifier"
)

const base = "http://app.test"

// fakeApp models the application's pages on a fake driver
type fakeApp struct {
	d *browsertest.Driver

	applied        bool
	profileDone    bool
	lockedSurvey   bool
	rejectLogin    bool
	resetMessage   string
	registerFailed bool

	sessionsPage *browsertest.Page
	startGender  *browsertest.Element
	roleSel      *browsertest.Element
	confirm      *browsertest.Element
}

func newFakeApp() *fakeApp {
	a := &fakeApp{d: browsertest.New(), resetMessage: "Password reset successful"}
	a.loginPage()
	a.registerPage()
	a.forgotPage()
	a.profilePages()
	a.sessionPage()
	a.surveyPages()
	return a
}

func input() *browsertest.Element { return browsertest.NewElement("input") }

func (a *fakeApp) loginPage() {
	p := a.d.AddPage(base + "/login")
	p.Set(emailInput, input())
	p.Set(passwordInput, input())
	p.Set(browser.ButtonText("Sign in"), browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		if a.rejectLogin {
			d.OpenDialog("Invalid email or password")
			return
		}
		d.Goto(base + "/")
	})
}

func (a *fakeApp) registerPage() {
	p := a.d.AddPage(base + "/register")
	p.Set(emailInput, input())
	p.Set(passwordInput, input())
	p.Set(confirmInput, input())
	p.Set(questionSelect, browsertest.NewElement("select").WithOptions(
		"What was the name of your first pet?", "pet",
		"What city were you born in?", "city",
	))
	p.Set(answerInput, input())
	p.Set(nextButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		if a.registerFailed {
			d.OpenDialog("❌ Registration failed")
			return
		}
		d.Goto(base + "/register-success")
	})
}

func (a *fakeApp) forgotPage() {
	p := a.d.AddPage(base + "/forgot-password")
	p.Set(emailInput, input())
	p.Set(questionSelect, browsertest.NewElement("select").WithOptions("What is your childhood pet's name?", "pet"))
	p.Set(resetAnswer, input())
	p.Set(passwordInput, input())
	p.Set(confirmInput, input())
	p.Set(resetButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		if a.resetMessage != "" {
			d.OpenDialog(a.resetMessage)
		}
	})
}

func (a *fakeApp) profilePages() {
	creation := a.d.AddPage(base + "/profile-creation")
	for _, f := range profileFields() {
		el := input()
		if f.Kind == verifier.FieldSelectLabel {
			el = browsertest.NewElement("select").WithOptions("Other", "other", "No", "no")
		}
		creation.Set(f.Locator, el)
	}
	creation.Set(createAccountButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		a.profileDone = true
		d.OpenDialog("Profile created successfully")
		d.Goto(base + "/profile")
	})

	profile := a.d.AddPage(base + "/profile")
	profile.HTML = `<html><body><h2>My Profile</h2><div class="profile-info-row"><span>Email</span></div></body></html>`
	profile.Set(emailRow, browsertest.NewElement("div"))
	profile.Set(editProfileButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		d.Goto(base + "/profile-edit")
	})
	profile.Set(securityButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		d.Goto(base + "/profile-security")
	})
	profile.OnLoad = func(d *browsertest.Driver) {
		if !a.profileDone {
			d.OpenDialog("Please complete your profile first")
			d.Goto(base + "/profile-creation")
		}
	}
}

func (a *fakeApp) sessionPage() {
	p := a.d.AddPage(base + "/sessions/1")
	a.sessionsPage = p
	p.Set(menteeRadio, input())
	p.Set(applyButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		a.applied = true
		d.OpenDialog("Application started")
		d.Goto(base + "/survey?sessionId=1&role=mentee")
	})
	p.OnLoad = func(d *browsertest.Driver) {
		if !a.applied {
			p.Remove(cancelApplyButton)
			return
		}
		p.Set(cancelApplyButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
			a.applied = false
			d.OpenDialog("Application cancelled")
		})
	}
}

func (a *fakeApp) surveyPages() {
	start := a.d.AddPage(base + "/survey")
	for _, f := range surveyStartFields() {
		el := browsertest.NewElement("select").WithOptions("Male", "male", "No", "no")
		if f.Name == "livingSituation" {
			el = input()
		}
		start.Set(f.Locator, el)
	}
	a.startGender = start.Set(formGender.Locator, browsertest.NewElement("select").WithOptions("Male", "male"))
	start.OnLoad = func(d *browsertest.Driver) {
		a.startGender.Enabled = !a.lockedSurvey
	}
	start.Set(nextButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		if !strings.Contains(d.Location(), "role=") {
			d.OpenDialog(NoRoleMessage)
			return
		}
		d.Goto(base + "/survey#preferences")
	})

	prefs := a.d.AddPage(base + "/survey#preferences")
	a.roleSel = prefs.Set(roleSelect, browsertest.NewElement("select").WithOptions("Recipient", "recipient", "Donor", "donor"))
	prefs.Set(browser.Name("transplantYear"), browsertest.NewElement("select").WithOptions("2010", "2010"))
	prefs.Set(browser.Name("meetingPreference"), browsertest.NewElement("select").WithOptions("Online", "online"))
	for _, label := range []string{"Kidney", "Liver", "Running", "Cycling"} {
		prefs.Set(browser.XPath("//button[@type='button' and normalize-space(.)='"+label+"']"), browsertest.NewElement("button"))
	}
	prefs.Set(peerSupport, input())
	prefs.Set(goalSetting, input())
	prefs.Set(nextButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		if a.roleSel.Value == "" {
			d.OpenDialog("Please complete all required fields.")
			return
		}
		d.Goto(base + "/survey#lifestyle")
	})

	lifestyle := a.d.AddPage(base + "/survey#lifestyle")
	for _, f := range lifestyleFields() {
		if f.Kind == verifier.FieldRangeAll {
			lifestyle.Set(f.Locator, input())
			lifestyle.Set(f.Locator.Nth(1), input())
			continue
		}
		lifestyle.Set(f.Locator, browsertest.NewElement("select").WithOptions(f.Value, strings.ToLower(f.Value)))
	}
	lifestyle.Set(nextButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		d.Goto(base + "/survey#enneagram")
	})

	enneagram := a.d.AddPage(base + "/survey#enneagram")
	enneagram.Set(verifier.RangeAll("3").Locator, input())
	enneagram.Set(nextButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		d.Goto(base + "/survey#confirm")
	})

	confirm := a.d.AddPage(base + "/survey#confirm")
	a.confirm = confirm.Set(confirmBox, input())
	confirm.Set(submitButton, browsertest.NewElement("button")).OnClick(func(d *browsertest.Driver) {
		if a.confirm.Checked {
			d.Goto(base + "/submitform?sessionId=1")
		}
	})

	a.d.AddPage(base + "/submitform").HTML = "<html><body><h1>Application Submitted Successfully</h1></body></html>"
}
