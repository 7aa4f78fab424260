package discovery

import (
	"errors"
	"fmt"

	"uiflow/internal/config"
	"uiflow/internal/domain"
)

// ErrNoIdentity is reported for scenarios that need to log in when no
// identity could be produced or found.
var ErrNoIdentity = errors.New("no identity available")

// IdentitySource loads a previously persisted identity. A missing store
// yields a zero identity and no error.
type IdentitySource interface {
	LoadIdentity() (domain.Identity, error)
}

// Plan is the execution order for a run
type Plan struct {
	// Providers create the identity and run first, one at a time
	Providers []domain.Scenario
	// Consumers run once every provider has finished
	Consumers []domain.Scenario
	// Fallback is the identity consumers use when no provider is selected.
	// Zero when a provider is selected or nothing could be found.
	Fallback domain.Identity
}

// Total returns the number of scenarios in the plan
func (p Plan) Total() int {
	return len(p.Providers) + len(p.Consumers)
}

// Scenarios returns providers followed by consumers
func (p Plan) Scenarios() []domain.Scenario {
	out := make([]domain.Scenario, 0, p.Total())
	out = append(out, p.Providers...)
	return append(out, p.Consumers...)
}

// NeedsIdentity reports whether any consumer logs in
func (p Plan) NeedsIdentity() bool {
	for _, s := range p.Consumers {
		if s.NeedsIdentity {
			return true
		}
	}
	return false
}

// Planner orders scenarios by their identity dependency
type Planner struct {
	config *config.Config
	source IdentitySource
}

// NewPlanner creates a new Planner. source may be nil.
func NewPlanner(cfg *config.Config, source IdentitySource) *Planner {
	return &Planner{config: cfg, source: source}
}

// Plan splits the selection into providers and consumers, keeping the
// relative order of each, and resolves the fallback identity when no
// provider is part of the run.
func (p *Planner) Plan(selected []domain.Scenario) (Plan, error) {
	var plan Plan
	for _, s := range selected {
		if s.ProvidesIdentity {
			plan.Providers = append(plan.Providers, s)
		} else {
			plan.Consumers = append(plan.Consumers, s)
		}
	}

	if len(plan.Providers) > 0 || !plan.NeedsIdentity() {
		return plan, nil
	}

	id, err := p.Fallback()
	if err != nil {
		return plan, err
	}
	plan.Fallback = id
	return plan, nil
}

// Fallback resolves an identity without running a provider: the identity
// store first, then the configured credentials.
func (p *Planner) Fallback() (domain.Identity, error) {
	if p.source != nil {
		id, err := p.source.LoadIdentity()
		if err != nil {
			return domain.Identity{}, fmt.Errorf("failed to load identity store: %w", err)
		}
		if !id.IsZero() {
			if id.Source == "" {
				id.Source = "store"
			}
			return id, nil
		}
	}

	id := domain.Identity{
		Email:            p.config.Email,
		Password:         p.config.Password,
		SecurityQuestion: p.config.SecurityQuestion,
		SecurityAnswer:   p.config.SecurityAnswer,
		Source:           "config",
	}
	if id.IsZero() {
		return domain.Identity{}, nil
	}
	return id, nil
}
