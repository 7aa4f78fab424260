package cli

import "uiflow/internal/config"

// Flags holds command-line flags
type Flags struct {
	Processors    int
	NameFilter    string
	Tag           string
	Steps         bool
	FailFast      bool
	OnlyFailed    bool
	RerunFailures bool
	OpenFaills    bool
	SaveIdentity  bool
	ClearSessions bool
	WithPair      bool
	ConfigFile    string
	BaseURL       string
	Driver        string
	Headful       bool
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		Processors:    f.Processors,
		NameFilter:    f.NameFilter,
		Tag:           f.Tag,
		Steps:         f.Steps,
		FailFast:      f.FailFast,
		OnlyFailed:    f.OnlyFailed,
		RerunFailures: f.RerunFailures,
		OpenFaills:    f.OpenFaills,
		SaveIdentity:  f.SaveIdentity,
		ClearSessions: f.ClearSessions,
		WithPair:      f.WithPair,
		ConfigFile:    f.ConfigFile,
		BaseURL:       f.BaseURL,
		Driver:        f.Driver,
		Headful:       f.Headful,
	}
}
