package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors the uiflow.toml layout. Durations are Go duration strings.
type fileConfig struct {
	BaseURL   string `toml:"base_url"`
	SessionID int    `toml:"session_id"`

	Browser struct {
		Driver     string `toml:"driver"`
		Headless   *bool  `toml:"headless"`
		ChromePath string `toml:"chrome_path"`
		// ConsoleIgnore is a pointer so an empty string can disable the default filter
		ConsoleIgnore *string `toml:"console_ignore"`
		WindowWidth   int     `toml:"window_width"`
		WindowHeight  int     `toml:"window_height"`
	} `toml:"browser"`

	Timing struct {
		StepTimeout     string `toml:"step_timeout"`
		SettleDelay     string `toml:"settle_delay"`
		DialogWait      string `toml:"dialog_wait"`
		ScenarioTimeout string `toml:"scenario_timeout"`
	} `toml:"timing"`

	Identity struct {
		Email            string `toml:"email"`
		Password         string `toml:"password"`
		SecurityQuestion string `toml:"security_question"`
		SecurityAnswer   string `toml:"security_answer"`
	} `toml:"identity"`

	Reset struct {
		Email       string `toml:"email"`
		Question    string `toml:"question"`
		Answer      string `toml:"answer"`
		NewPassword string `toml:"new_password"`
	} `toml:"reset"`

	Output struct {
		Dir        string `toml:"dir"`
		Results    string `toml:"results"`
		Identity   string `toml:"identity"`
		Artifacts  string `toml:"artifacts"`
		LogFile    string `toml:"log_file"`
		LogLevel   string `toml:"log_level"`
		LogConsole bool   `toml:"log_console"`
	} `toml:"output"`

	Processors int `toml:"processors"`

	Database struct {
		Driver   string `toml:"driver"`
		Path     string `toml:"path"`
		Host     string `toml:"host"`
		Port     string `toml:"port"`
		Username string `toml:"username"`
		Password string `toml:"password"`
		Name     string `toml:"name"`
	} `toml:"database"`
}

// Load resolves configuration with priority: defaults -> uiflow.toml -> .env/environment.
// Flags are applied afterwards by the command layer.
func Load(cfg *Config) error {
	// .env file might not exist, that's okay - use environment variables
	_ = godotenv.Load(filepath.Join(cfg.ProjectPath, ".env"))

	if err := cfg.loadFile(cfg.GetConfigFilePath()); err != nil {
		return err
	}
	return cfg.applyEnv()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return c.merge(fc)
}

func (c *Config) merge(fc fileConfig) error {
	setString(&c.BaseURL, fc.BaseURL)
	if fc.SessionID > 0 {
		c.SessionID = fc.SessionID
	}

	setString(&c.Driver, fc.Browser.Driver)
	if fc.Browser.Headless != nil {
		c.Headless = *fc.Browser.Headless
	}
	setString(&c.ChromePath, fc.Browser.ChromePath)
	if fc.Browser.ConsoleIgnore != nil {
		c.ConsoleIgnore = *fc.Browser.ConsoleIgnore
	}
	if fc.Browser.WindowWidth > 0 {
		c.WindowWidth = fc.Browser.WindowWidth
	}
	if fc.Browser.WindowHeight > 0 {
		c.WindowHeight = fc.Browser.WindowHeight
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timing.step_timeout", fc.Timing.StepTimeout, &c.StepTimeout},
		{"timing.settle_delay", fc.Timing.SettleDelay, &c.SettleDelay},
		{"timing.dialog_wait", fc.Timing.DialogWait, &c.DialogWait},
		{"timing.scenario_timeout", fc.Timing.ScenarioTimeout, &c.ScenarioTimeout},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.raw); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}

	setString(&c.Email, fc.Identity.Email)
	setString(&c.Password, fc.Identity.Password)
	setString(&c.SecurityQuestion, fc.Identity.SecurityQuestion)
	setString(&c.SecurityAnswer, fc.Identity.SecurityAnswer)

	setString(&c.ResetEmail, fc.Reset.Email)
	setString(&c.ResetQuestion, fc.Reset.Question)
	setString(&c.ResetAnswer, fc.Reset.Answer)
	setString(&c.ResetNewPassword, fc.Reset.NewPassword)

	setString(&c.OutputJSONDir, fc.Output.Dir)
	setString(&c.OutputJSONFile, fc.Output.Results)
	setString(&c.IdentityFile, fc.Output.Identity)
	setString(&c.ArtifactsDir, fc.Output.Artifacts)
	setString(&c.LogFile, fc.Output.LogFile)
	setString(&c.LogLevel, fc.Output.LogLevel)
	if fc.Output.LogConsole {
		c.LogConsole = true
	}

	if fc.Processors > 0 {
		c.Processors = fc.Processors
	}

	setString(&c.Database.Driver, fc.Database.Driver)
	setString(&c.Database.Path, fc.Database.Path)
	setString(&c.Database.Host, fc.Database.Host)
	setString(&c.Database.Port, fc.Database.Port)
	setString(&c.Database.Username, fc.Database.Username)
	setString(&c.Database.Password, fc.Database.Password)
	setString(&c.Database.Name, fc.Database.Name)
	return nil
}

// applyEnv applies UIFLOW_* overrides plus the DB_* variables a Laravel-style
// .env already carries.
func (c *Config) applyEnv() error {
	setString(&c.BaseURL, os.Getenv("UIFLOW_BASE_URL"))
	setString(&c.Driver, os.Getenv("UIFLOW_DRIVER"))
	setString(&c.ChromePath, os.Getenv("UIFLOW_CHROME_PATH"))
	if v, ok := os.LookupEnv("UIFLOW_CONSOLE_IGNORE"); ok {
		c.ConsoleIgnore = v
	}
	setString(&c.Email, os.Getenv("UIFLOW_EMAIL"))
	setString(&c.Password, os.Getenv("UIFLOW_PASSWORD"))
	setString(&c.LogLevel, os.Getenv("UIFLOW_LOG_LEVEL"))

	if v := os.Getenv("UIFLOW_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("UIFLOW_HEADLESS: %w", err)
		}
		c.Headless = b
	}
	if v := os.Getenv("UIFLOW_SESSION_ID"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UIFLOW_SESSION_ID: %w", err)
		}
		c.SessionID = n
	}
	if err := setDuration(&c.StepTimeout, os.Getenv("UIFLOW_STEP_TIMEOUT")); err != nil {
		return fmt.Errorf("UIFLOW_STEP_TIMEOUT: %w", err)
	}
	if err := setDuration(&c.SettleDelay, os.Getenv("UIFLOW_SETTLE_DELAY")); err != nil {
		return fmt.Errorf("UIFLOW_SETTLE_DELAY: %w", err)
	}

	setString(&c.Database.Driver, os.Getenv("DB_CONNECTION"))
	setString(&c.Database.Host, os.Getenv("DB_HOST"))
	setString(&c.Database.Port, os.Getenv("DB_PORT"))
	setString(&c.Database.Username, os.Getenv("DB_USERNAME"))
	setString(&c.Database.Password, os.Getenv("DB_PASSWORD"))
	setString(&c.Database.Name, os.Getenv("DB_DATABASE"))
	setString(&c.Database.Path, os.Getenv("UIFLOW_DB_PATH"))
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// Prepare resolves the full configuration for a command: file and
// environment first, then flags, then validation.
func Prepare(cfg *Config, flags Flags) error {
	cfg.Flags = flags
	if err := Load(cfg); err != nil {
		return err
	}
	cfg.ApplyFlags(flags)
	return cfg.Validate()
}
