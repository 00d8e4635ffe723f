package repository

import (
	"context"

	"github.com/amirphl/lurewatch/models"
	"gorm.io/gorm"
)

// ClickRepositoryImpl implements ClickRepository
type ClickRepositoryImpl struct {
	*BaseRepository[models.Click, models.ClickFilter]
}

func NewClickRepository(db *gorm.DB) ClickRepository {
	return &ClickRepositoryImpl{BaseRepository: NewBaseRepository[models.Click, models.ClickFilter](db)}
}

// ByToken returns the click that issued token, or nil when none did
func (r *ClickRepositoryImpl) ByToken(ctx context.Context, token string) (*models.Click, error) {
	if token == "" {
		return nil, nil
	}
	rows, err := r.ByFilter(ctx, models.ClickFilter{Token: &token}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *ClickRepositoryImpl) Recent(ctx context.Context, limit int) ([]*models.Click, error) {
	return r.ByFilter(ctx, models.ClickFilter{}, "created_at DESC, id DESC", limit, 0)
}

func (r *ClickRepositoryImpl) ByFilter(ctx context.Context, filter models.ClickFilter, orderBy string, limit, offset int) ([]*models.Click, error) {
	query := paginate(r.applyFilter(r.getDB(ctx).Model(&models.Click{}), filter), orderBy, limit, offset)
	var rows []*models.Click
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ClickRepositoryImpl) Count(ctx context.Context, filter models.ClickFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.Click{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ClickRepositoryImpl) Exists(ctx context.Context, filter models.ClickFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *ClickRepositoryImpl) applyFilter(query *gorm.DB, filter models.ClickFilter) *gorm.DB {
	if filter.TargetID != nil {
		query = query.Where("target_id = ?", *filter.TargetID)
	}
	if filter.Token != nil {
		query = query.Where("token = ?", *filter.Token)
	}
	return query
}
