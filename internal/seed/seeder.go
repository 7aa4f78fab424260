package seed

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"uiflow/internal/domain"
)

// HashCost matches the application's bcrypt salt rounds
const HashCost = 10

// Seeder writes identities straight into the application database
type Seeder interface {
	Seed(ctx context.Context, identities ...domain.Identity) ([]domain.SeedResult, error)
}

// Options controls what a seed run touches besides the users table
type Options struct {
	// ClearSessionApplications deletes the identity's applications for SessionID
	ClearSessionApplications bool
	SessionID                int
}

// UserSeeder inserts users with bcrypt hashed password and security answer.
// Existing users are left untouched.
type UserSeeder struct {
	db      *sql.DB
	dialect string
	opts    Options
}

// NewUserSeeder creates a seeder over an open database
func NewUserSeeder(db *sql.DB, dialect string, opts Options) *UserSeeder {
	return &UserSeeder{db: db, dialect: dialect, opts: opts}
}

func (s *UserSeeder) insertUserSQL() string {
	if s.dialect == "mysql" {
		return `INSERT IGNORE INTO users (email, password_hash, security_question, security_answer_hash, account_type)
			VALUES (?, ?, ?, ?, 0)`
	}
	return `INSERT INTO users (email, password_hash, security_question, security_answer_hash, account_type)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(email) DO NOTHING`
}

const clearApplicationsSQL = `DELETE FROM applications
	WHERE session_id = ? AND user_id IN (SELECT id FROM users WHERE email = ?)`

// Seed inserts every identity. A failure on one identity is recorded on its
// result and does not stop the others; the returned error covers only
// problems that affect the whole run.
func (s *UserSeeder) Seed(ctx context.Context, identities ...domain.Identity) ([]domain.SeedResult, error) {
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identity to seed")
	}

	results := make([]domain.SeedResult, 0, len(identities))
	for _, id := range identities {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.seedOne(ctx, id))
	}
	return results, nil
}

func (s *UserSeeder) seedOne(ctx context.Context, id domain.Identity) domain.SeedResult {
	result := domain.SeedResult{Email: id.Email}
	if id.IsZero() {
		result.Error = fmt.Errorf("identity needs an email and a password")
		return result
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(id.Password), HashCost)
	if err != nil {
		result.Error = fmt.Errorf("hash password: %w", err)
		return result
	}
	answerHash := ""
	if id.SecurityAnswer != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(id.SecurityAnswer), HashCost)
		if err != nil {
			result.Error = fmt.Errorf("hash security answer: %w", err)
			return result
		}
		answerHash = string(h)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		result.Error = fmt.Errorf("begin: %w", err)
		return result
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.insertUserSQL(), id.Email, string(passwordHash), id.SecurityQuestion, answerHash)
	if err != nil {
		result.Error = fmt.Errorf("insert user %s: %w", id.Email, err)
		return result
	}
	if n, err := res.RowsAffected(); err == nil {
		result.Inserted = n > 0
	}

	if s.opts.ClearSessionApplications {
		res, err := tx.ExecContext(ctx, clearApplicationsSQL, s.opts.SessionID, id.Email)
		if err != nil {
			result.Error = fmt.Errorf("clear applications for %s: %w", id.Email, err)
			return result
		}
		result.ApplicationsCleared, _ = res.RowsAffected()
	}

	if err := tx.Commit(); err != nil {
		result.Error = fmt.Errorf("commit: %w", err)
	}
	return result
}
