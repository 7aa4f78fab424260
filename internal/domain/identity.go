package domain

import "time"

// Identity is the credential fixture a registered user logs in with
type Identity struct {
	Email            string    `json:"email"`
	Password         string    `json:"password"`
	SecurityQuestion string    `json:"security_question,omitempty"`
	SecurityAnswer   string    `json:"security_answer,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	Source           string    `json:"source,omitempty"` // registration, store, config, seed
}

// IsZero reports whether the identity carries no usable credentials
func (i Identity) IsZero() bool {
	return i.Email == "" || i.Password == ""
}

// Fixture is the run-scoped context handed explicitly to every scenario.
// It replaces the shared email file: the identity produced by a provider
// scenario is set once before any consumer starts and is read-only afterwards.
type Fixture struct {
	RunID    string
	Identity Identity
}

// HasIdentity reports whether a usable identity is available
func (f *Fixture) HasIdentity() bool {
	return f != nil && !f.Identity.IsZero()
}
