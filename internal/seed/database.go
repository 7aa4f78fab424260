package seed

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"uiflow/internal/config"
)

// DatabaseManager opens the application database the seed command writes to
type DatabaseManager struct {
	config *config.Config
}

// NewDatabaseManager creates a new DatabaseManager
func NewDatabaseManager(cfg *config.Config) *DatabaseManager {
	return &DatabaseManager{config: cfg}
}

// Dialect returns the configured SQL dialect
func (dm *DatabaseManager) Dialect() string {
	return dm.config.Database.Driver
}

// DSN builds the connection string for the configured driver
func (dm *DatabaseManager) DSN() (string, error) {
	db := dm.config.Database
	switch db.Driver {
	case "sqlite3":
		return dm.config.GetDatabasePath(), nil
	case "mysql":
		if db.Name == "" {
			return "", fmt.Errorf("mysql seeding needs a database name (DB_DATABASE)")
		}
		user := db.Username
		if user == "" {
			user = "root"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, db.Password, db.Host, db.Port, db.Name), nil
	}
	return "", fmt.Errorf("unsupported database driver %q (want sqlite3 or mysql)", db.Driver)
}

// Open connects and pings the application database. The SQLite file must
// already exist; the application owns its schema.
func (dm *DatabaseManager) Open(ctx context.Context) (*sql.DB, error) {
	dsn, err := dm.DSN()
	if err != nil {
		return nil, err
	}
	if dm.Dialect() == "sqlite3" {
		if _, err := os.Stat(dsn); err != nil {
			return nil, fmt.Errorf("application database %s: %w", filepath.Clean(dsn), err)
		}
	}

	db, err := sql.Open(dm.Dialect(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
