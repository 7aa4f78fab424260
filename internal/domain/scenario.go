package domain

// Scenario describes a UI workflow that can be executed against the target application
type Scenario struct {
	Name        string   // Unique scenario name, e.g. "survey-full-flow"
	Description string   // One-line description shown by `list`
	Tags        []string // Free-form grouping tags (auth, profile, survey)
	Steps       []string // Ordered step names, shown by `list --steps`

	// ProvidesIdentity marks scenarios that create the identity other scenarios log in with
	ProvidesIdentity bool
	// NeedsIdentity marks scenarios that authenticate before running
	NeedsIdentity bool
}

// HasTag reports whether the scenario carries the given tag
func (s Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
