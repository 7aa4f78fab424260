// Package scenarios holds the UI workflows run against the application.
// Each scenario drives one verifier through its steps and leaves the
// outcome on the verifier.
package scenarios

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"uiflow/internal/domain"
	"uiflow/internal/verifier"
)

// Reset is the account the forgot-password flow resets
type Reset struct {
	Email       string
	Question    string
	Answer      string
	NewPassword string
}

// Env is what a scenario receives besides its verifier
type Env struct {
	Fixture   *domain.Fixture
	SessionID int

	// Registration inputs
	Password         string
	SecurityQuestion string
	SecurityAnswer   string

	Reset Reset

	// ProbeWait bounds lookups for optional controls such as Cancel Apply
	ProbeWait time.Duration

	// NewEmail generates the address a registration signs up with
	NewEmail func() string

	// Provided is set by scenarios that create an identity
	Provided *domain.Identity
}

// Identity returns the fixture identity consumers authenticate with
func (e *Env) Identity() domain.Identity {
	if e.Fixture == nil {
		return domain.Identity{}
	}
	return e.Fixture.Identity
}

// UniqueEmail returns a fresh address for registration
func UniqueEmail() string {
	return fmt.Sprintf("selenium%d-%s@example.com", time.Now().Unix(), uuid.NewString()[:8])
}

// Func runs a scenario
type Func func(ctx context.Context, v *verifier.Verifier, env *Env) error

// Definition binds scenario metadata to its implementation
type Definition struct {
	domain.Scenario
	Run Func
}

// Registry holds scenario definitions in registration order
type Registry struct {
	defs   []Definition
	byName map[string]int
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Default returns a registry with every built-in scenario
func Default() *Registry {
	r := NewRegistry()
	for _, def := range builtin() {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a definition; names must be unique
func (r *Registry) Register(def Definition) error {
	if def.Name == "" || def.Run == nil {
		return fmt.Errorf("scenario needs a name and a run function")
	}
	if _, ok := r.byName[def.Name]; ok {
		return fmt.Errorf("scenario %q already registered", def.Name)
	}
	r.byName[def.Name] = len(r.defs)
	r.defs = append(r.defs, def)
	return nil
}

// Get looks up a definition by name
func (r *Registry) Get(name string) (Definition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Scenarios returns scenario metadata in registration order
func (r *Registry) Scenarios() []domain.Scenario {
	out := make([]domain.Scenario, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.Scenario
	}
	return out
}

// Tags returns every tag in use, sorted
func (r *Registry) Tags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, d := range r.defs {
		for _, t := range d.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

func builtin() []Definition {
	return []Definition{
		registration(),
		login(),
		createProfile(),
		profilePage(),
		applySession(),
		forgotPassword(),
		surveyFullFlow(),
		surveyNoRole(),
		surveyLockedForm(),
		surveyPreferencesValidation(),
	}
}
