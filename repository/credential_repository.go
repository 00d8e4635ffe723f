package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/lurewatch/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CredentialRepositoryImpl implements CredentialRepository
type CredentialRepositoryImpl struct {
	*BaseRepository[models.Credential, models.CredentialFilter]
}

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &CredentialRepositoryImpl{BaseRepository: NewBaseRepository[models.Credential, models.CredentialFilter](db)}
}

func (r *CredentialRepositoryImpl) Recent(ctx context.Context, limit int) ([]*models.Credential, error) {
	return r.ByFilter(ctx, models.CredentialFilter{}, "created_at DESC, id DESC", limit, 0)
}

func (r *CredentialRepositoryImpl) Locations(ctx context.Context) ([]models.LocationInfo, error) {
	var raw []datatypes.JSONType[models.LocationInfo]
	err := r.getDB(ctx).
		Model(&models.Credential{}).
		Where("geolocation IS NOT NULL").
		Order("id ASC").
		Pluck("geolocation", &raw).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load credential locations: %w", err)
	}
	out := make([]models.LocationInfo, 0, len(raw))
	for _, g := range raw {
		out = append(out, g.Data())
	}
	return out, nil
}

func (r *CredentialRepositoryImpl) ByFilter(ctx context.Context, filter models.CredentialFilter, orderBy string, limit, offset int) ([]*models.Credential, error) {
	query := paginate(r.applyFilter(r.getDB(ctx).Model(&models.Credential{}), filter), orderBy, limit, offset)
	var rows []*models.Credential
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CredentialRepositoryImpl) Count(ctx context.Context, filter models.CredentialFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.Credential{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CredentialRepositoryImpl) Exists(ctx context.Context, filter models.CredentialFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *CredentialRepositoryImpl) applyFilter(query *gorm.DB, filter models.CredentialFilter) *gorm.DB {
	if filter.TargetID != nil {
		query = query.Where("target_id = ?", *filter.TargetID)
	}
	if filter.Token != nil {
		query = query.Where("token = ?", *filter.Token)
	}
	return query
}
