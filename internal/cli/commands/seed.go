package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"uiflow/internal/config"
	"uiflow/internal/domain"
	"uiflow/internal/seed"
	"uiflow/internal/storage"
	"uiflow/internal/ui"
)

// SeedCommand handles the seed command
type SeedCommand struct {
	config     *config.Config
	database   *seed.DatabaseManager
	identities *storage.IdentityStore
	formatter  *ui.Formatter
}

// NewSeedCommand creates a new SeedCommand
func NewSeedCommand(cfg *config.Config, db *seed.DatabaseManager, identities *storage.IdentityStore, formatter *ui.Formatter) *SeedCommand {
	return &SeedCommand{
		config:     cfg,
		database:   db,
		identities: identities,
		formatter:  formatter,
	}
}

// Identities returns what a seed run inserts: the configured identity, when
// set, and the account the forgot-password scenario resets.
func (sc *SeedCommand) Identities() []domain.Identity {
	cfg := sc.config
	var ids []domain.Identity
	if cfg.Email != "" {
		ids = append(ids, domain.Identity{
			Email:            cfg.Email,
			Password:         cfg.Password,
			SecurityQuestion: cfg.SecurityQuestion,
			SecurityAnswer:   cfg.SecurityAnswer,
			Source:           "seed",
		})
	}
	if cfg.ResetEmail != "" && cfg.ResetEmail != cfg.Email {
		ids = append(ids, domain.Identity{
			Email:            cfg.ResetEmail,
			Password:         cfg.Password,
			SecurityQuestion: cfg.ResetQuestion,
			SecurityAnswer:   cfg.ResetAnswer,
			Source:           "seed",
		})
	}
	return ids
}

// Execute runs the command
func (sc *SeedCommand) Execute(cmd *cobra.Command, args []string) error {
	color.Cyan("\n╔════════════════════════════════════════════════════════════╗")
	color.Cyan("║                   Seeding Fixture Users                    ║")
	color.Cyan("╚════════════════════════════════════════════════════════════╝\n")

	ctx := cmd.Context()
	db, err := sc.database.Open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	seeder := seed.NewUserSeeder(db, sc.database.Dialect(), seed.Options{
		ClearSessionApplications: sc.config.Flags.ClearSessions,
		SessionID:                sc.config.SessionID,
	})
	results, err := seeder.Seed(ctx, sc.Identities()...)
	if err == nil && sc.config.Flags.WithPair {
		var pair []domain.SeedResult
		pair, err = seeder.SeedPair(ctx, seed.DefaultPair)
		results = append(results, pair...)
	}
	sc.formatter.PrintSeedResults(results)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d identity(ies) could not be seeded", failed)
	}

	if sc.config.Flags.SaveIdentity {
		ids := sc.Identities()
		if sc.config.Email == "" {
			return fmt.Errorf("--save-identity needs a configured identity (UIFLOW_EMAIL)")
		}
		if err := sc.identities.SaveIdentity(ids[0]); err != nil {
			return err
		}
		color.Green("Identity %s stored in %s", ids[0].Email, sc.identities.Path())
	}
	return nil
}
