package businessflow

import (
	"context"

	"github.com/amirphl/lurewatch/models"
	"github.com/amirphl/lurewatch/repository"
)

// CredentialFlow lists recorded submissions, newest first
type CredentialFlow interface {
	List(ctx context.Context, limit int) ([]*models.Credential, error)
}

type CredentialFlowImpl struct {
	repo repository.CredentialRepository
}

func NewCredentialFlow(repo repository.CredentialRepository) CredentialFlow {
	return &CredentialFlowImpl{repo: repo}
}

// List returns up to limit submissions; limit <= 0 returns all of them
func (f *CredentialFlowImpl) List(ctx context.Context, limit int) ([]*models.Credential, error) {
	rows, err := f.repo.Recent(ctx, limit)
	if err != nil {
		return nil, NewBusinessError("CREDENTIAL_LIST_FAILED", "Failed to list submissions", err)
	}
	return rows, nil
}
