package discovery

import (
	"path/filepath"
	"strings"

	"uiflow/internal/domain"
)

// Filter narrows the scenario list by name pattern and tag
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterByName filters scenarios by name pattern using wildcard matching.
// Supports patterns like "survey-*" or "*profile*"; a pattern without
// wildcards matches any name containing it.
func (f *Filter) FilterByName(scenarios []domain.Scenario, pattern string) []domain.Scenario {
	if pattern == "" {
		return scenarios
	}

	var filtered []domain.Scenario
	for _, s := range scenarios {
		if matchName(pattern, s.Name) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// FilterByTag keeps scenarios carrying the tag. An empty tag keeps everything.
func (f *Filter) FilterByTag(scenarios []domain.Scenario, tag string) []domain.Scenario {
	if tag == "" {
		return scenarios
	}

	var filtered []domain.Scenario
	for _, s := range scenarios {
		if s.HasTag(tag) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// FilterByNames keeps scenarios whose name is in the list, preserving
// the order of scenarios. Used to rerun the failures of the last run.
func (f *Filter) FilterByNames(scenarios []domain.Scenario, names []string) []domain.Scenario {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var filtered []domain.Scenario
	for _, s := range scenarios {
		if want[s.Name] {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func matchName(pattern, name string) bool {
	// filepath.Match supports * and ? wildcards
	if matched, err := filepath.Match(pattern, name); err == nil && matched {
		return true
	}

	if !strings.ContainsAny(pattern, "*?") {
		return strings.Contains(name, pattern)
	}

	// Looser match for patterns like "*survey*": every literal part must appear, in order
	if strings.Contains(pattern, "*") {
		rest := name
		nonEmpty := false
		for _, part := range strings.Split(pattern, "*") {
			if part == "" {
				continue
			}
			nonEmpty = true
			i := strings.Index(rest, part)
			if i < 0 {
				return false
			}
			rest = rest[i+len(part):]
		}
		return nonEmpty
	}
	return false
}
