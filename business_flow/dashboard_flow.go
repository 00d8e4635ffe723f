package businessflow

import (
	"context"

	"github.com/amirphl/lurewatch/models"
	"github.com/amirphl/lurewatch/repository"
	"github.com/amirphl/lurewatch/utils"
)

// DashboardRecentLimit is how many recent clicks and submissions the dashboard lists
const DashboardRecentLimit = 5

// DashboardFlow computes the live dashboard read model
// Nothing is cached; each call reads the store again
type DashboardFlow interface {
	Snapshot(ctx context.Context) (*models.DashboardSnapshot, error)
}

type DashboardFlowImpl struct {
	store *repository.Store
}

func NewDashboardFlow(store *repository.Store) DashboardFlow {
	return &DashboardFlowImpl{store: store}
}

func (f *DashboardFlowImpl) Snapshot(ctx context.Context) (*models.DashboardSnapshot, error) {
	snap := &models.DashboardSnapshot{GeneratedAt: utils.UTCNow()}
	var err error

	if snap.TargetsCount, err = f.store.Targets.Count(ctx, models.TargetFilter{}); err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to count targets", err)
	}
	if snap.ClicksCount, err = f.store.Clicks.Count(ctx, models.ClickFilter{}); err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to count clicks", err)
	}
	if snap.CredentialsCount, err = f.store.Credentials.Count(ctx, models.CredentialFilter{}); err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to count submissions", err)
	}
	if snap.RecentClicks, err = f.store.Clicks.Recent(ctx, DashboardRecentLimit); err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to load recent clicks", err)
	}
	if snap.RecentCredentials, err = f.store.Credentials.Recent(ctx, DashboardRecentLimit); err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to load recent submissions", err)
	}
	if snap.Targets, err = f.store.Targets.ByFilter(ctx, models.TargetFilter{}, "id ASC", 0, 0); err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to load targets", err)
	}
	return snap, nil
}
