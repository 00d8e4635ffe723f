package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/amirphl/lurewatch/logger"
	"github.com/amirphl/lurewatch/models"
	"github.com/amirphl/lurewatch/repository"
)

type addTargetInput struct {
	Email string `validate:"required,email"`
	URL   string `validate:"required,url"`
}

// TargetFlow registers and lists simulation recipients
type TargetFlow interface {
	AddTarget(ctx context.Context, email, url string) (*models.Target, error)
	ListTargets(ctx context.Context) ([]*models.Target, error)
}

type TargetFlowImpl struct {
	repo      repository.TargetRepository
	validator *validator.Validate
}

func NewTargetFlow(repo repository.TargetRepository) TargetFlow {
	return &TargetFlowImpl{repo: repo, validator: validator.New()}
}

func (f *TargetFlowImpl) AddTarget(ctx context.Context, email, url string) (*models.Target, error) {
	in := addTargetInput{Email: strings.TrimSpace(email), URL: strings.TrimSpace(url)}
	if err := f.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	target := &models.Target{Email: in.Email, URL: in.URL}
	if err := f.repo.Save(ctx, target); err != nil {
		return nil, NewBusinessError("TARGET_SAVE_FAILED", "Failed to save target", err)
	}

	logger.FromContext(ctx).Info("target added", zap.Uint("target_id", target.ID), zap.String("url", target.URL))
	return target, nil
}

func (f *TargetFlowImpl) ListTargets(ctx context.Context) ([]*models.Target, error) {
	rows, err := f.repo.ByFilter(ctx, models.TargetFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("TARGET_LIST_FAILED", "Failed to list targets", err)
	}
	return rows, nil
}
