package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath string
	ConfigFile  string

	// Target application
	BaseURL   string `validate:"required,http_url"`
	SessionID int    `validate:"gt=0"`

	// Browser settings
	Driver     string `validate:"oneof=chromedp rod"`
	Headless   bool
	ChromePath string
	// ConsoleIgnore is a regexp; matching console.error messages are not treated as failures
	ConsoleIgnore string `validate:"omitempty,regexp"`
	WindowWidth   int    `validate:"gt=0"`
	WindowHeight  int    `validate:"gt=0"`

	// Timing
	StepTimeout     time.Duration `validate:"gt=0"`
	SettleDelay     time.Duration `validate:"gte=0"`
	DialogWait      time.Duration `validate:"gte=0"`
	ScenarioTimeout time.Duration `validate:"gte=0"`

	// Credentials
	Email            string // Pre-existing identity; used when no registration runs
	Password         string
	SecurityQuestion string
	SecurityAnswer   string

	// Forgot-password flow
	ResetEmail       string
	ResetQuestion    string
	ResetAnswer      string
	ResetNewPassword string

	// Output settings
	OutputJSONFile string
	OutputJSONDir  string
	IdentityFile   string
	ArtifactsDir   string
	LogFile        string
	LogLevel       string
	LogConsole     bool

	// Execution settings
	Processors int `validate:"gte=1"`

	// Seed database
	Database Database

	// Command flags
	Flags Flags `validate:"-"`
}

// Database holds the connection settings used by the seed command
type Database struct {
	Driver   string `validate:"oneof=sqlite3 mysql"`
	Path     string // SQLite file
	Host     string
	Port     string
	Username string
	Password string
	Name     string
}

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

// New creates a new Config with defaults
func New() *Config {
	return &Config{
		ProjectPath:      DefaultProjectPath,
		ConfigFile:       DefaultConfigFile,
		BaseURL:          DefaultBaseURL,
		SessionID:        DefaultSessionID,
		Driver:           DefaultDriver,
		Headless:         true,
		ConsoleIgnore:    DefaultConsoleIgnore,
		WindowWidth:      DefaultWindowWidth,
		WindowHeight:     DefaultWindowHeight,
		StepTimeout:      DefaultStepTimeout,
		SettleDelay:      DefaultSettleDelay,
		DialogWait:       DefaultDialogWait,
		ScenarioTimeout:  DefaultScenarioTimeout,
		Password:         DefaultPassword,
		SecurityQuestion: DefaultSecurityQuestion,
		SecurityAnswer:   DefaultSecurityAnswer,
		ResetEmail:       DefaultResetEmail,
		ResetQuestion:    DefaultResetQuestion,
		ResetAnswer:      DefaultSecurityAnswer,
		ResetNewPassword: DefaultResetNewPassword,
		OutputJSONFile:   DefaultOutputJSONFile,
		OutputJSONDir:    DefaultOutputJSONDir,
		IdentityFile:     DefaultIdentityFile,
		ArtifactsDir:     DefaultArtifactsDir,
		LogFile:          DefaultLogFile,
		LogLevel:         DefaultLogLevel,
		Processors:       DefaultProcessors,
		Database: Database{
			Driver: DefaultDatabaseDriver,
			Path:   DefaultDatabasePath,
			Host:   "127.0.0.1",
			Port:   "3306",
		},
		Flags: Flags{Processors: DefaultProcessors},
	}
}

// ApplyFlags copies command-line overrides onto the config. Flags win over
// every other source.
func (c *Config) ApplyFlags(flags Flags) {
	c.Flags = flags
	if flags.Processors > 0 {
		c.Processors = flags.Processors
	}
	if flags.BaseURL != "" {
		c.BaseURL = flags.BaseURL
	}
	if flags.Driver != "" {
		c.Driver = flags.Driver
	}
	if flags.Headful {
		c.Headless = false
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})
	return v
}

// ConsoleErrorFilter compiles ConsoleIgnore; nil when it is empty
func (c *Config) ConsoleErrorFilter() (*regexp.Regexp, error) {
	if c.ConsoleIgnore == "" {
		return nil, nil
	}
	return regexp.Compile(c.ConsoleIgnore)
}

// Validate checks the settings every command depends on
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s must satisfy %s (got %v)", fe.StructNamespace(), rule, fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// URL joins a path onto the base URL
func (c *Config) URL(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// GetOutputPath returns the full path to the output JSON file (under project so run and faills use the same file).
// Resolves to an absolute path so run and faills always read/write the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	return c.absUnderOutput(c.OutputJSONFile)
}

// GetIdentityPath returns the full path to the identity store
func (c *Config) GetIdentityPath() string {
	return c.absUnderOutput(c.IdentityFile)
}

// GetLogPath returns the full path to the step log
func (c *Config) GetLogPath() string {
	return c.absUnderOutput(c.LogFile)
}

// GetArtifactsDir returns the directory screenshots and page dumps for a run are written to
func (c *Config) GetArtifactsDir(runID string) string {
	p := filepath.Join(c.ProjectPath, c.OutputJSONDir, c.ArtifactsDir, runID)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetConfigFilePath returns the TOML config file path, flag first
func (c *Config) GetConfigFilePath() string {
	name := c.ConfigFile
	if c.Flags.ConfigFile != "" {
		name = c.Flags.ConfigFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ProjectPath, name)
}

// GetDatabasePath returns the SQLite file path, relative to the project path unless absolute
func (c *Config) GetDatabasePath() string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(c.ProjectPath, c.Database.Path)
}

func (c *Config) absUnderOutput(name string) string {
	p := filepath.Join(c.ProjectPath, c.OutputJSONDir, name)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
