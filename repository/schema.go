package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/lurewatch/models"
	"gorm.io/gorm"
)

// EnsureSchema creates missing tables and adds missing columns
// It never drops or rewrites existing data, so it is safe to run on every start
func EnsureSchema(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Target{},
		&models.Click{},
		&models.Credential{},
		&models.Result{},
	); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Store bundles the repositories the tracking pipeline and the views share
type Store struct {
	Targets     TargetRepository
	Clicks      ClickRepository
	Credentials CredentialRepository
	Results     ResultRepository
}

// NewStore wires every repository onto one pooled handle
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Targets:     NewTargetRepository(db),
		Clicks:      NewClickRepository(db),
		Credentials: NewCredentialRepository(db),
		Results:     NewResultRepository(db),
	}
}
