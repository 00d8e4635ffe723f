package businessflow

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/amirphl/lurewatch/app/services"
	"github.com/amirphl/lurewatch/config"
	"github.com/amirphl/lurewatch/logger"
	"github.com/amirphl/lurewatch/models"
	"github.com/amirphl/lurewatch/repository"
)

// VisitInput carries what the capture server knows about a page load
type VisitInput struct {
	IP        string
	UserAgent string
}

// SubmissionInput carries a posted form
// Token is empty when the browser did not send a tracking cookie
// The password value never reaches this layer; only whether one was sent
type SubmissionInput struct {
	IP                string
	UserAgent         string
	Token             string
	Email             string
	PasswordSubmitted bool
}

// TrackingFlow issues per-visit tokens and records submissions against them
// Public flow, no authentication required
type TrackingFlow interface {
	IssueToken(ctx context.Context, in VisitInput) (*models.Click, error)
	Submit(ctx context.Context, in SubmissionInput) (*models.Credential, error)
}

type TrackingFlowImpl struct {
	store       *repository.Store
	resolver    services.Resolver
	attribution string
	newToken    func() string
}

// NewTrackingFlow builds the correlator; an unrecognized attribution falls back to latest
func NewTrackingFlow(store *repository.Store, resolver services.Resolver, attribution string) TrackingFlow {
	if attribution != config.AttributionVisit {
		attribution = config.AttributionLatest
	}
	return &TrackingFlowImpl{
		store:       store,
		resolver:    resolver,
		attribution: attribution,
		newToken:    uuid.NewString,
	}
}

func (f *TrackingFlowImpl) IssueToken(ctx context.Context, in VisitInput) (*models.Click, error) {
	targetID, err := f.latestTargetID(ctx)
	if err != nil {
		return nil, err
	}

	click := &models.Click{
		TargetID:    targetID,
		IP:          in.IP,
		UserAgent:   in.UserAgent,
		Token:       f.newToken(),
		Geolocation: datatypes.NewJSONType(f.resolver.Resolve(ctx, in.IP)),
	}
	if err := f.store.Clicks.Save(ctx, click); err != nil {
		return nil, NewBusinessError("CLICK_SAVE_FAILED", "Failed to record visit", err)
	}
	clicksRecorded.Inc()

	logger.FromContext(ctx).Info("visit recorded",
		zap.Uint("click_id", click.ID),
		zap.String("token", click.Token),
		zap.String("ip", click.IP),
		zap.Uintp("target_id", click.TargetID),
	)
	return click, nil
}

func (f *TrackingFlowImpl) Submit(ctx context.Context, in SubmissionInput) (*models.Credential, error) {
	var token *string
	if in.Token != "" {
		token = &in.Token
	}

	location := f.resolver.Resolve(ctx, in.IP)

	targetID, err := f.submissionTargetID(ctx, in.Token)
	if err != nil {
		return nil, err
	}

	cred := &models.Credential{
		TargetID:          targetID,
		Email:             in.Email,
		PasswordSubmitted: in.PasswordSubmitted,
		IP:                in.IP,
		UserAgent:         in.UserAgent,
		Token:             token,
		Geolocation:       datatypes.NewJSONType(location),
	}
	if err := f.store.Credentials.Save(ctx, cred); err != nil {
		return nil, NewBusinessError("CREDENTIAL_SAVE_FAILED", "Failed to record submission", err)
	}
	submissionsRecorded.Inc()

	logger.FromContext(ctx).Info("submission recorded",
		zap.Uint("credential_id", cred.ID),
		zap.String("token", in.Token),
		zap.String("ip", cred.IP),
		zap.Uintp("target_id", cred.TargetID),
		zap.Bool("password_submitted", cred.PasswordSubmitted),
	)
	return cred, nil
}

func (f *TrackingFlowImpl) latestTargetID(ctx context.Context) (*uint, error) {
	target, err := f.store.Targets.Latest(ctx)
	if err != nil {
		return nil, NewBusinessError("TARGET_LOOKUP_FAILED", "Failed to lookup latest target", err)
	}
	if target == nil {
		return nil, nil
	}
	id := target.ID
	return &id, nil
}

// submissionTargetID applies the attribution policy to a submission
func (f *TrackingFlowImpl) submissionTargetID(ctx context.Context, token string) (*uint, error) {
	if f.attribution == config.AttributionVisit && token != "" {
		click, err := f.store.Clicks.ByToken(ctx, token)
		if err != nil {
			return nil, NewBusinessError("TARGET_LOOKUP_FAILED", "Failed to lookup visit for token", err)
		}
		if click != nil {
			return click.TargetID, nil
		}
	}
	return f.latestTargetID(ctx)
}
