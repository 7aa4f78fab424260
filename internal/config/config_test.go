package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_URL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		path     string
		expected string
	}{
		{
			name:     "plain join",
			baseURL:  "http://localhost:3000",
			path:     "/login",
			expected: "http://localhost:3000/login",
		},
		{
			name:     "trailing slash on base",
			baseURL:  "http://localhost:3000/",
			path:     "/survey?sessionId=1",
			expected: "http://localhost:3000/survey?sessionId=1",
		},
		{
			name:     "path without leading slash",
			baseURL:  "https://app.example.com",
			path:     "sessions/1",
			expected: "https://app.example.com/sessions/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.BaseURL = tt.baseURL
			if got := cfg.URL(tt.path); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestConfig_GetOutputPath(t *testing.T) {
	cfg := New()
	cfg.ProjectPath = "/project"

	if got := cfg.GetOutputPath(); got != "/project/storage/uiflow-results.json" {
		t.Errorf("unexpected output path %s", got)
	}
	if got := cfg.GetIdentityPath(); got != "/project/storage/identity.json" {
		t.Errorf("unexpected identity path %s", got)
	}
	if got := cfg.GetArtifactsDir("run-1"); got != "/project/storage/artifacts/run-1" {
		t.Errorf("unexpected artifacts dir %s", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		if err := New().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects base url without scheme", func(t *testing.T) {
		cfg := New()
		cfg.BaseURL = "localhost:3000"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for base url without scheme")
		}
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		cfg := New()
		cfg.Driver = "selenium"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown driver")
		}
	})

	t.Run("rejects invalid console ignore pattern", func(t *testing.T) {
		cfg := New()
		cfg.ConsoleIgnore = "("
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for invalid console ignore pattern")
		}
	})

	t.Run("rejects non-positive session id", func(t *testing.T) {
		cfg := New()
		cfg.SessionID = 0
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for session id 0")
		}
	})
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	toml := `
base_url = "http://127.0.0.1:4000"
session_id = 7
processors = 2

[browser]
driver = "rod"
headless = false

[timing]
step_timeout = "15s"
settle_delay = "250ms"

[identity]
email = "file@example.com"

[database]
driver = "mysql"
name = "mentor"
`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(toml), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("UIFLOW_EMAIL", "env@example.com")
	t.Setenv("UIFLOW_SETTLE_DELAY", "")

	cfg := New()
	cfg.ProjectPath = dir
	if err := Load(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BaseURL != "http://127.0.0.1:4000" {
		t.Errorf("expected base url from file, got %s", cfg.BaseURL)
	}
	if cfg.SessionID != 7 {
		t.Errorf("expected session id 7, got %d", cfg.SessionID)
	}
	if cfg.Driver != "rod" || cfg.Headless {
		t.Errorf("expected rod headful, got %s headless=%v", cfg.Driver, cfg.Headless)
	}
	if cfg.StepTimeout != 15*time.Second || cfg.SettleDelay != 250*time.Millisecond {
		t.Errorf("unexpected timings %s %s", cfg.StepTimeout, cfg.SettleDelay)
	}
	if cfg.Email != "env@example.com" {
		t.Errorf("expected env to override file email, got %s", cfg.Email)
	}
	if cfg.Processors != 2 {
		t.Errorf("expected 2 processors, got %d", cfg.Processors)
	}
	if cfg.Database.Driver != "mysql" || cfg.Database.Name != "mentor" {
		t.Errorf("unexpected database settings %+v", cfg.Database)
	}
}

func TestConfig_ConsoleErrorFilter(t *testing.T) {
	cfg := New()
	re, err := cfg.ConsoleErrorFilter()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !re.MatchString("Warning: Each child in a list should have a unique key prop.") {
		t.Error("expected default filter to match react warnings")
	}
	if re.MatchString("❌ Error during submission:") {
		t.Error("default filter must not match application errors")
	}

	cfg.ConsoleIgnore = ""
	if re, err := cfg.ConsoleErrorFilter(); err != nil || re != nil {
		t.Errorf("expected no filter, got %v %v", re, err)
	}
}

func TestLoad_ConsoleIgnore(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("[browser]\nconsole_ignore = \"\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg := New()
	cfg.ProjectPath = dir
	if err := Load(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ConsoleIgnore != "" {
		t.Errorf("expected file to clear the filter, got %q", cfg.ConsoleIgnore)
	}

	t.Setenv("UIFLOW_CONSOLE_IGNORE", "^DevTools")
	cfg = New()
	cfg.ProjectPath = dir
	if err := Load(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ConsoleIgnore != "^DevTools" {
		t.Errorf("expected env filter, got %q", cfg.ConsoleIgnore)
	}
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	cfg := New()
	cfg.ProjectPath = t.TempDir()
	if err := Load(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base url, got %s", cfg.BaseURL)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("[timing]\nstep_timeout = \"soon\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg := New()
	cfg.ProjectPath = dir
	if err := Load(cfg); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestPrepare_FlagsWin(t *testing.T) {
	t.Setenv("UIFLOW_BASE_URL", "http://env:3000")

	cfg := New()
	cfg.ProjectPath = t.TempDir()
	err := Prepare(cfg, Flags{BaseURL: "http://flag:3000", Processors: 3, Headful: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://flag:3000" {
		t.Errorf("expected flag base url, got %s", cfg.BaseURL)
	}
	if cfg.Processors != 3 {
		t.Errorf("expected 3 processors, got %d", cfg.Processors)
	}
	if cfg.Headless {
		t.Error("expected headful browser")
	}
}
