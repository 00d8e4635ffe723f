package repository

import (
	"context"

	"github.com/amirphl/lurewatch/models"
	"gorm.io/gorm"
)

// TargetRepositoryImpl implements TargetRepository
type TargetRepositoryImpl struct {
	*BaseRepository[models.Target, models.TargetFilter]
}

func NewTargetRepository(db *gorm.DB) TargetRepository {
	return &TargetRepositoryImpl{BaseRepository: NewBaseRepository[models.Target, models.TargetFilter](db)}
}

func (r *TargetRepositoryImpl) Latest(ctx context.Context) (*models.Target, error) {
	rows, err := r.ByFilter(ctx, models.TargetFilter{}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *TargetRepositoryImpl) ByFilter(ctx context.Context, filter models.TargetFilter, orderBy string, limit, offset int) ([]*models.Target, error) {
	query := paginate(r.applyFilter(r.getDB(ctx).Model(&models.Target{}), filter), orderBy, limit, offset)
	var rows []*models.Target
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TargetRepositoryImpl) Count(ctx context.Context, filter models.TargetFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.Target{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *TargetRepositoryImpl) Exists(ctx context.Context, filter models.TargetFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *TargetRepositoryImpl) applyFilter(query *gorm.DB, filter models.TargetFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Email != nil {
		query = query.Where("email = ?", *filter.Email)
	}
	return query
}
