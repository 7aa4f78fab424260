package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"uiflow/internal/config"
	"uiflow/internal/domain"
)

// IdentityStore persists the identity a registration produced so later runs
// can log in without registering again.
type IdentityStore struct {
	cfg *config.Config
}

// NewIdentityStore returns a store at the config's identity path
func NewIdentityStore(cfg *config.Config) *IdentityStore {
	return &IdentityStore{cfg: cfg}
}

// Path returns the file the store reads and writes
func (s *IdentityStore) Path() string {
	return s.cfg.GetIdentityPath()
}

// LoadIdentity returns the stored identity, or a zero identity when none was saved.
func (s *IdentityStore) LoadIdentity() (domain.Identity, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Identity{}, nil
		}
		return domain.Identity{}, fmt.Errorf("read identity file: %w", err)
	}

	var id domain.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return domain.Identity{}, fmt.Errorf("parse identity file: %w", err)
	}
	return id, nil
}

// SaveIdentity replaces the stored identity atomically
func (s *IdentityStore) SaveIdentity(id domain.Identity) error {
	if id.IsZero() {
		return fmt.Errorf("refusing to store identity without email and password")
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := writeFileAtomic(s.Path(), data); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}
