package repository

import (
	"context"

	"github.com/amirphl/lurewatch/models"
	"gorm.io/gorm"
)

// ResultRepositoryImpl implements ResultRepository
type ResultRepositoryImpl struct {
	*BaseRepository[models.Result, models.ResultFilter]
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &ResultRepositoryImpl{BaseRepository: NewBaseRepository[models.Result, models.ResultFilter](db)}
}

func (r *ResultRepositoryImpl) ByFilter(ctx context.Context, filter models.ResultFilter, orderBy string, limit, offset int) ([]*models.Result, error) {
	query := paginate(r.applyFilter(r.getDB(ctx).Model(&models.Result{}), filter), orderBy, limit, offset)
	var rows []*models.Result
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ResultRepositoryImpl) Count(ctx context.Context, filter models.ResultFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.Result{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ResultRepositoryImpl) Exists(ctx context.Context, filter models.ResultFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *ResultRepositoryImpl) applyFilter(query *gorm.DB, filter models.ResultFilter) *gorm.DB {
	if filter.TargetID != nil {
		query = query.Where("target_id = ?", *filter.TargetID)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}
	return query
}
