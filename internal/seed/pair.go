package seed

import (
	"context"
	"fmt"
	"time"

	"uiflow/internal/domain"
)

// Pair is a mentor and a mentee matched on one session
type Pair struct {
	Mentor domain.Identity
	Mentee domain.Identity
}

// DefaultPair holds the accounts the application's own test data uses
var DefaultPair = Pair{
	Mentor: domain.Identity{Email: "mentor@example.com", Password: "MentorPass1!", Source: "seed"},
	Mentee: domain.Identity{Email: "mentee@example.com", Password: "MenteePass1!", Source: "seed"},
}

func (s *UserSeeder) insertApplicationSQL() string {
	if s.dialect == "mysql" {
		return `INSERT IGNORE INTO applications (session_id, user_id, role, status, application_date)
			SELECT ?, id, ?, 'approved', ? FROM users WHERE email = ?`
	}
	return `INSERT INTO applications (session_id, user_id, role, status, application_date)
		SELECT ?, id, ?, 'approved', ? FROM users WHERE email = ?
		ON CONFLICT(session_id, user_id) DO NOTHING`
}

func (s *UserSeeder) insertPairSQL() string {
	if s.dialect == "mysql" {
		return `INSERT IGNORE INTO matching_pairs (session_id, mentor_id, mentee_id)
			SELECT ?, mentor.id, mentee.id FROM users mentor, users mentee
			WHERE mentor.email = ? AND mentee.email = ?`
	}
	return `INSERT INTO matching_pairs (session_id, mentor_id, mentee_id)
		SELECT ?, mentor.id, mentee.id FROM users mentor, users mentee
		WHERE mentor.email = ? AND mentee.email = ?
		ON CONFLICT(session_id, mentor_id, mentee_id) DO NOTHING`
}

// SeedPair inserts both users, approves their applications for the
// configured session and records them as a matching pair. Rows that already
// exist are left as they are.
func (s *UserSeeder) SeedPair(ctx context.Context, pair Pair) ([]domain.SeedResult, error) {
	if s.opts.SessionID <= 0 {
		return nil, fmt.Errorf("seeding a pair needs a session id")
	}
	results, err := s.Seed(ctx, pair.Mentor, pair.Mentee)
	if err != nil {
		return results, err
	}
	for _, r := range results {
		if r.Error != nil {
			return results, nil
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return results, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	roles := []string{"mentor", "mentee"}
	for i, id := range []domain.Identity{pair.Mentor, pair.Mentee} {
		res, err := tx.ExecContext(ctx, s.insertApplicationSQL(), s.opts.SessionID, roles[i], now, id.Email)
		if err != nil {
			return results, fmt.Errorf("apply %s to session %d: %w", id.Email, s.opts.SessionID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			results[i].Applied = n > 0
		}
	}

	res, err := tx.ExecContext(ctx, s.insertPairSQL(), s.opts.SessionID, pair.Mentor.Email, pair.Mentee.Email)
	if err != nil {
		return results, fmt.Errorf("match %s with %s: %w", pair.Mentor.Email, pair.Mentee.Email, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		results[0].Paired = true
		results[1].Paired = true
	}

	if err := tx.Commit(); err != nil {
		return results, fmt.Errorf("commit: %w", err)
	}
	return results, nil
}
