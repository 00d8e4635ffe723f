package businessflow

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/amirphl/lurewatch/logger"
	"github.com/amirphl/lurewatch/models"
	"github.com/amirphl/lurewatch/repository"
)

// ProbeFlow checks that every target URL answers, storing one Result per target
type ProbeFlow interface {
	Run(ctx context.Context) ([]*models.Result, error)
}

type ProbeFlowImpl struct {
	targets    repository.TargetRepository
	results    repository.ResultRepository
	httpClient *http.Client
	workers    int
	// extra pool options; the default pool blocks until a worker is free
	poolOptions []ants.Option
}

func NewProbeFlow(targets repository.TargetRepository, results repository.ResultRepository, workers int, timeout time.Duration) ProbeFlow {
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProbeFlowImpl{
		targets:    targets,
		results:    results,
		httpClient: &http.Client{Timeout: timeout},
		workers:    workers,
	}
}

// Run probes every target concurrently and returns the results in target order
func (f *ProbeFlowImpl) Run(ctx context.Context) ([]*models.Result, error) {
	targets, err := f.targets.ByFilter(ctx, models.TargetFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("TARGET_LIST_FAILED", "Failed to list targets", err)
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	log := logger.FromContext(ctx)
	opts := append([]ants.Option{ants.WithPanicHandler(func(p any) {
		log.Error("panic recovered in probe worker", zap.Any("panic_error", p), zap.Stack("stack"))
	})}, f.poolOptions...)
	pool, err := ants.NewPool(f.workers, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]*models.Result, len(targets))
	saveErrs := make([]error, len(targets))
	var submitErr error
	var submitTarget uint
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			res := f.probe(ctx, target)
			if err := f.results.Save(ctx, res); err != nil {
				saveErrs[i] = err
				return
			}
			results[i] = res
		})
		if err != nil {
			wg.Done()
			submitErr, submitTarget = err, target.ID
			break
		}
	}
	wg.Wait()

	if submitErr != nil {
		return nil, NewBusinessErrorf("PROBE_SUBMIT_FAILED", "Failed to schedule probe for target %d", submitErr, submitTarget)
	}

	for i, err := range saveErrs {
		if err != nil {
			return nil, NewBusinessErrorf("RESULT_SAVE_FAILED", "Failed to record probe result for target %d", err, targets[i].ID)
		}
	}

	log.Info("probe batch finished", zap.Int("targets", len(targets)))
	return results, nil
}

func (f *ProbeFlowImpl) probe(ctx context.Context, target *models.Target) *models.Result {
	res := &models.Result{TargetID: target.ID}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		res.Data = "Error: " + err.Error()
		return res
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		res.Data = "Error: " + err.Error()
		return res
	}
	defer resp.Body.Close()

	res.Data = fmt.Sprintf("Status: %d", resp.StatusCode)
	res.Success = resp.StatusCode == http.StatusOK
	return res
}
