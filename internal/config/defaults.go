package config

import "time"

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultConfigFile is the optional TOML config file looked up under the project path
	DefaultConfigFile = "uiflow.toml"
	// DefaultOutputJSONFile is the default output JSON file name
	DefaultOutputJSONFile = "uiflow-results.json"
	// DefaultIdentityFile is the default identity store file name
	DefaultIdentityFile = "identity.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = "storage"
	// DefaultArtifactsDir holds screenshots and page dumps, one subdirectory per run
	DefaultArtifactsDir = "artifacts"
	// DefaultLogFile is the step log written under the output directory
	DefaultLogFile = "uiflow.log"
	// DefaultLogLevel is the step log level
	DefaultLogLevel = "info"
	// DefaultProcessors is the default number of workers. Survey scenarios share
	// server-side application state, so runs are sequential unless asked otherwise.
	DefaultProcessors = 1

	// DefaultBaseURL is where the application under test is served
	DefaultBaseURL = "http://localhost:3000"
	// DefaultDriver is the browser automation backend
	DefaultDriver = "chromedp"
	// DefaultConsoleIgnore skips React development warnings logged through console.error
	DefaultConsoleIgnore = `^Warning: `
	// DefaultSessionID is the mentorship session the session and survey flows target
	DefaultSessionID = 1

	// DefaultPassword is used for registered identities
	DefaultPassword = "Password@123"
	// DefaultSecurityQuestion is picked on the registration form
	DefaultSecurityQuestion = "What was the name of your first pet?"
	// DefaultSecurityAnswer answers the security question
	DefaultSecurityAnswer = "Sparky"

	// DefaultResetEmail is the account the forgot-password flow resets
	DefaultResetEmail = "seleniumuser@example.com"
	// DefaultResetQuestion is picked on the forgot-password form
	DefaultResetQuestion = "What is your childhood pet's name?"
	// DefaultResetNewPassword is the new password typed twice on the forgot-password form
	DefaultResetNewPassword = "NewPass@123"

	// DefaultDatabaseDriver is the seed backend, matching the application's SQLite store
	DefaultDatabaseDriver = "sqlite3"
	// DefaultDatabasePath is the application's SQLite file relative to the project path
	DefaultDatabasePath = "server/data/survey.db"
)

const (
	// DefaultStepTimeout bounds every element lookup and driver call
	DefaultStepTimeout = 10 * time.Second
	// DefaultSettleDelay is waited after readiness so client-side rendering can finish
	DefaultSettleDelay = 1 * time.Second
	// DefaultDialogWait is how long a submit polls for an optional dialog
	DefaultDialogWait = 2 * time.Second
	// DefaultScenarioTimeout bounds a whole scenario including browser startup
	DefaultScenarioTimeout = 2 * time.Minute
	// DefaultWindowWidth and DefaultWindowHeight size the browser viewport
	DefaultWindowWidth  = 1920
	DefaultWindowHeight = 1080
)
