package scenarios

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"uiflow/internal/domain"
	"uiflow/internal/verifier"
)

var user = domain.Identity{Email: "selenium@example.com", Password: "Password@123", Source: "config"}

func testEnv() *Env {
	return &Env{
		Fixture:          &domain.Fixture{RunID: "run-1", Identity: user},
		SessionID:        1,
		Password:         "Password@123",
		SecurityQuestion: "What was the name of your first pet?",
		SecurityAnswer:   "Sparky",
		Reset: Reset{
			Email:       "seleniumuser@example.com",
			Question:    "What is your childhood pet's name?",
			Answer:      "Sparky",
			NewPassword: "NewPass@123",
		},
		ProbeWait: 10 * time.Millisecond,
		NewEmail:  func() string { return "fresh@example.com" },
	}
}

func run(t require.TestingT, a *fakeApp, name string, env *Env) (*verifier.Verifier, error) {
	def, ok := Default().Get(name)
	require.True(t, ok, name)
	v := verifier.New(a.d, verifier.Options{
		Scenario:     name,
		BaseURL:      base,
		StepTimeout:  200 * time.Millisecond,
		DialogWait:   10 * time.Millisecond,
		PollInterval: 2 * time.Millisecond,
	})
	return v, def.Run(context.Background(), v, env)
}

func requireKind(t *testing.T, err error, kind verifier.Kind) *verifier.StepError {
	t.Helper()
	var se *verifier.StepError
	require.True(t, errors.As(err, &se), "expected StepError, got %v", err)
	assert.Equal(t, kind, se.Kind)
	return se
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	all := r.Scenarios()
	require.Len(t, all, 10)

	seen := make(map[string]bool)
	for _, s := range all {
		assert.False(t, seen[s.Name], "duplicate %s", s.Name)
		seen[s.Name] = true
		assert.NotEmpty(t, s.Steps, s.Name)
		assert.NotEmpty(t, s.Description, s.Name)

		switch s.Name {
		case "registration":
			assert.True(t, s.ProvidesIdentity)
			assert.False(t, s.NeedsIdentity)
		case "forgot-password":
			assert.False(t, s.NeedsIdentity)
		default:
			assert.True(t, s.NeedsIdentity, s.Name)
		}
	}
	assert.Equal(t, "registration", all[0].Name)
	assert.Equal(t, []string{"auth", "profile", "session", "survey"}, r.Tags())
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, *verifier.Verifier, *Env) error { return nil }

	require.NoError(t, r.Register(Definition{Scenario: domain.Scenario{Name: "a"}, Run: noop}))
	assert.Error(t, r.Register(Definition{Scenario: domain.Scenario{Name: "a"}, Run: noop}))
	assert.Error(t, r.Register(Definition{Scenario: domain.Scenario{Name: "b"}}))

	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestRegistration_ProvidesIdentity(t *testing.T) {
	env := testEnv()
	v, err := run(t, newFakeApp(), "registration", env)

	require.NoError(t, err)
	require.NotNil(t, env.Provided)
	assert.Equal(t, "fresh@example.com", env.Provided.Email)
	assert.Equal(t, "Password@123", env.Provided.Password)
	assert.Equal(t, "registration", env.Provided.Source)
	assert.False(t, env.Provided.CreatedAt.IsZero())
	assert.Equal(t, verifier.OutcomeAsserted, v.State())
}

// Registration with any fresh email lands on /register-success
func TestRegistration_AnyUniqueEmailSucceeds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		email := rapid.StringMatching(`selenium[0-9]{1,10}@example\.com`).Draw(rt, "email")
		env := testEnv()
		env.NewEmail = func() string { return email }

		a := newFakeApp()
		_, err := run(rt, a, "registration", env)
		if err != nil {
			rt.Fatalf("registration failed: %v", err)
		}
		if env.Provided == nil || env.Provided.Email != email {
			rt.Fatalf("provided identity %+v, want email %s", env.Provided, email)
		}
		if !strings.Contains(a.d.Location(), "/register-success") {
			rt.Fatalf("ended on %s", a.d.Location())
		}
	})
}

func TestRegistration_FailureDialog(t *testing.T) {
	a := newFakeApp()
	a.registerFailed = true
	env := testEnv()

	_, err := run(t, a, "registration", env)

	se := requireKind(t, err, verifier.KindUnexpectedDialog)
	assert.Equal(t, "❌ Registration failed", se.Dialog)
	assert.Nil(t, env.Provided)
}

func TestLogin(t *testing.T) {
	v, err := run(t, newFakeApp(), "login", testEnv())
	require.NoError(t, err)
	assert.NotContains(t, v.CurrentURL(context.Background()), "/login")
}

func TestLogin_RejectedDialog(t *testing.T) {
	a := newFakeApp()
	a.rejectLogin = true

	v, err := run(t, a, "login", testEnv())

	se := requireKind(t, err, verifier.KindUnexpectedDialog)
	assert.Equal(t, "Invalid email or password", se.Dialog)
	assert.Equal(t, "authenticate", se.Step)
	assert.Equal(t, verifier.Failed, v.State())
}

func TestLogin_NoIdentity(t *testing.T) {
	env := testEnv()
	env.Fixture = nil

	_, err := run(t, newFakeApp(), "login", env)

	se := requireKind(t, err, verifier.KindAssertionMismatch)
	assert.Contains(t, se.Message, "no identity")
}

func TestCreateProfile(t *testing.T) {
	a := newFakeApp()
	v, err := run(t, a, "create-profile", testEnv())

	require.NoError(t, err)
	assert.True(t, a.profileDone)
	assert.Equal(t, []string{"Profile created successfully"}, v.Dialogs())
}

func TestProfilePage_CompletesProfileWhenRedirected(t *testing.T) {
	a := newFakeApp()

	v, err := run(t, a, "profile-page", testEnv())

	require.NoError(t, err)
	assert.Equal(t, []string{"Please complete your profile first", "Profile created successfully"}, v.Dialogs())
	assert.Contains(t, a.d.Location(), "/profile-security")
}

func TestProfilePage_ExistingProfile(t *testing.T) {
	a := newFakeApp()
	a.profileDone = true

	v, err := run(t, a, "profile-page", testEnv())

	require.NoError(t, err)
	assert.Empty(t, v.Dialogs())
}

func TestApplySession(t *testing.T) {
	a := newFakeApp()

	v, err := run(t, a, "apply-session", testEnv())

	require.NoError(t, err)
	url := v.CurrentURL(context.Background())
	assert.Contains(t, url, "/survey")
	assert.Contains(t, url, "sessionId=1")
	assert.True(t, a.applied)
}

func TestForgotPassword(t *testing.T) {
	v, err := run(t, newFakeApp(), "forgot-password", testEnv())
	require.NoError(t, err)
	last, _ := v.LastDialog()
	assert.Equal(t, "Password reset successful", last)
}

func TestForgotPassword_NoDialog(t *testing.T) {
	a := newFakeApp()
	a.resetMessage = ""

	_, err := run(t, a, "forgot-password", testEnv())

	requireKind(t, err, verifier.KindAssertionMismatch)
}

func TestSurveyFullFlow(t *testing.T) {
	tests := []struct {
		name        string
		applied     bool
		wantDialogs []string
	}{
		{name: "fresh session"},
		{name: "cancels previous application", applied: true, wantDialogs: []string{"Application cancelled"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newFakeApp()
			a.applied = tt.applied

			v, err := run(t, a, "survey-full-flow", testEnv())

			require.NoError(t, err)
			assert.Contains(t, a.d.Location(), "/submitform")
			assert.Equal(t, tt.wantDialogs, v.Dialogs())
			assert.False(t, a.applied)
			assert.Equal(t, "recipient", a.roleSel.Value)
			assert.True(t, a.confirm.Checked)
		})
	}
}

func TestSurveyNoRole(t *testing.T) {
	v, err := run(t, newFakeApp(), "survey-no-role", testEnv())

	require.NoError(t, err)
	last, ok := v.LastDialog()
	require.True(t, ok)
	assert.Equal(t, NoRoleMessage, last)
}

func TestSurveyLockedForm(t *testing.T) {
	a := newFakeApp()
	a.lockedSurvey = true
	_, err := run(t, a, "survey-locked-form", testEnv())
	require.NoError(t, err)

	_, err = run(t, newFakeApp(), "survey-locked-form", testEnv())
	requireKind(t, err, verifier.KindAssertionMismatch)
}

func TestSurveyPreferencesValidation(t *testing.T) {
	a := newFakeApp()

	v, err := run(t, a, "survey-preferences-validation", testEnv())

	require.NoError(t, err)
	assert.Equal(t, []string{"Please complete all required fields."}, v.Dialogs())
	assert.Contains(t, a.d.Location(), "#preferences")
}

func TestUniqueEmail(t *testing.T) {
	a, b := UniqueEmail(), UniqueEmail()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "selenium"))
	assert.True(t, strings.HasSuffix(a, "@example.com"))
}
