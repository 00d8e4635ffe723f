// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/lurewatch/models"
)

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// TargetRepository defines operations for targets
type TargetRepository interface {
	Repository[models.Target, models.TargetFilter]
	// Latest returns the most recently created target, or nil on an empty table
	Latest(ctx context.Context) (*models.Target, error)
}

// ClickRepository defines operations for recorded visits
type ClickRepository interface {
	Repository[models.Click, models.ClickFilter]
	ByToken(ctx context.Context, token string) (*models.Click, error)
	Recent(ctx context.Context, limit int) ([]*models.Click, error)
}

// CredentialRepository defines operations for recorded submissions
type CredentialRepository interface {
	Repository[models.Credential, models.CredentialFilter]
	Recent(ctx context.Context, limit int) ([]*models.Credential, error)
	// Locations returns the geolocation of every stored submission in insertion order
	Locations(ctx context.Context) ([]models.LocationInfo, error)
}

// ResultRepository defines operations for probe results
type ResultRepository interface {
	Repository[models.Result, models.ResultFilter]
}
