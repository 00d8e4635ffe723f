package testing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/lurewatch/models"
	"github.com/amirphl/lurewatch/repository"
)

// MemoryStore is an in-process stand-in for the relational store
// Set Err to make every call fail the way an unavailable database would
type MemoryStore struct {
	mu          sync.Mutex
	Err         error
	targets     []*models.Target
	clicks      []*models.Click
	credentials []*models.Credential
	results     []*models.Result
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Store exposes the memory tables through the repository interfaces
func (m *MemoryStore) Store() *repository.Store {
	return &repository.Store{
		Targets:     &memTargets{m},
		Clicks:      &memClicks{m},
		Credentials: &memCredentials{m},
		Results:     &memResults{m},
	}
}

// Clicks returns a copy of the stored clicks in insertion order
func (m *MemoryStore) Clicks() []*models.Click {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Click(nil), m.clicks...)
}

// Credentials returns a copy of the stored credentials in insertion order
func (m *MemoryStore) Credentials() []*models.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Credential(nil), m.credentials...)
}

// Results returns a copy of the stored results in insertion order
func (m *MemoryStore) Results() []*models.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Result(nil), m.results...)
}

func stamp(id *uint, createdAt *time.Time, n int) {
	*id = uint(n)
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}

func window[T any](rows []*T, orderBy string, limit, offset int) []*T {
	out := append([]*T(nil), rows...)
	if strings.Contains(strings.ToUpper(orderBy), "DESC") {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func byID[T any](rows []*T, id uint, idOf func(*T) uint) *T {
	for _, r := range rows {
		if idOf(r) == id {
			return r
		}
	}
	return nil
}

type memTargets struct{ m *MemoryStore }

func (r *memTargets) ByID(_ context.Context, id uint) (*models.Target, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	return byID(r.m.targets, id, func(t *models.Target) uint { return t.ID }), nil
}

func (r *memTargets) filter(f models.TargetFilter) []*models.Target {
	var out []*models.Target
	for _, t := range r.m.targets {
		if f.ID != nil && t.ID != *f.ID {
			continue
		}
		if f.Email != nil && t.Email != *f.Email {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (r *memTargets) ByFilter(_ context.Context, f models.TargetFilter, orderBy string, limit, offset int) ([]*models.Target, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	return window(r.filter(f), orderBy, limit, offset), nil
}

func (r *memTargets) Save(_ context.Context, t *models.Target) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	stamp(&t.ID, &t.CreatedAt, len(r.m.targets)+1)
	r.m.targets = append(r.m.targets, t)
	return nil
}

func (r *memTargets) SaveBatch(ctx context.Context, ts []*models.Target) error {
	for _, t := range ts {
		if err := r.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *memTargets) Count(_ context.Context, f models.TargetFilter) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return 0, r.m.Err
	}
	return int64(len(r.filter(f))), nil
}

func (r *memTargets) Exists(ctx context.Context, f models.TargetFilter) (bool, error) {
	c, err := r.Count(ctx, f)
	return c > 0, err
}

func (r *memTargets) Latest(ctx context.Context) (*models.Target, error) {
	rows, err := r.ByFilter(ctx, models.TargetFilter{}, "id DESC", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

type memClicks struct{ m *MemoryStore }

func (r *memClicks) ByID(_ context.Context, id uint) (*models.Click, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	return byID(r.m.clicks, id, func(c *models.Click) uint { return c.ID }), nil
}

func (r *memClicks) filter(f models.ClickFilter) []*models.Click {
	var out []*models.Click
	for _, c := range r.m.clicks {
		if f.TargetID != nil && (c.TargetID == nil || *c.TargetID != *f.TargetID) {
			continue
		}
		if f.Token != nil && c.Token != *f.Token {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *memClicks) ByFilter(_ context.Context, f models.ClickFilter, orderBy string, limit, offset int) ([]*models.Click, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	return window(r.filter(f), orderBy, limit, offset), nil
}

func (r *memClicks) Save(_ context.Context, c *models.Click) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	stamp(&c.ID, &c.CreatedAt, len(r.m.clicks)+1)
	r.m.clicks = append(r.m.clicks, c)
	return nil
}

func (r *memClicks) SaveBatch(ctx context.Context, cs []*models.Click) error {
	for _, c := range cs {
		if err := r.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *memClicks) Count(_ context.Context, f models.ClickFilter) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return 0, r.m.Err
	}
	return int64(len(r.filter(f))), nil
}

func (r *memClicks) Exists(ctx context.Context, f models.ClickFilter) (bool, error) {
	c, err := r.Count(ctx, f)
	return c > 0, err
}

func (r *memClicks) ByToken(ctx context.Context, token string) (*models.Click, error) {
	if token == "" {
		return nil, nil
	}
	rows, err := r.ByFilter(ctx, models.ClickFilter{Token: &token}, "id DESC", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *memClicks) Recent(ctx context.Context, limit int) ([]*models.Click, error) {
	return r.ByFilter(ctx, models.ClickFilter{}, "created_at DESC, id DESC", limit, 0)
}

type memCredentials struct{ m *MemoryStore }

func (r *memCredentials) ByID(_ context.Context, id uint) (*models.Credential, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	return byID(r.m.credentials, id, func(c *models.Credential) uint { return c.ID }), nil
}

func (r *memCredentials) filter(f models.CredentialFilter) []*models.Credential {
	var out []*models.Credential
	for _, c := range r.m.credentials {
		if f.TargetID != nil && (c.TargetID == nil || *c.TargetID != *f.TargetID) {
			continue
		}
		if f.Token != nil && c.TokenValue() != *f.Token {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *memCredentials) ByFilter(_ context.Context, f models.CredentialFilter, orderBy string, limit, offset int) ([]*models.Credential, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	return window(r.filter(f), orderBy, limit, offset), nil
}

func (r *memCredentials) Save(_ context.Context, c *models.Credential) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	stamp(&c.ID, &c.CreatedAt, len(r.m.credentials)+1)
	r.m.credentials = append(r.m.credentials, c)
	return nil
}

func (r *memCredentials) SaveBatch(ctx context.Context, cs []*models.Credential) error {
	for _, c := range cs {
		if err := r.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *memCredentials) Count(_ context.Context, f models.CredentialFilter) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return 0, r.m.Err
	}
	return int64(len(r.filter(f))), nil
}

func (r *memCredentials) Exists(ctx context.Context, f models.CredentialFilter) (bool, error) {
	c, err := r.Count(ctx, f)
	return c > 0, err
}

func (r *memCredentials) Recent(ctx context.Context, limit int) ([]*models.Credential, error) {
	return r.ByFilter(ctx, models.CredentialFilter{}, "created_at DESC, id DESC", limit, 0)
}

func (r *memCredentials) Locations(_ context.Context) ([]models.LocationInfo, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	out := make([]models.LocationInfo, 0, len(r.m.credentials))
	for _, c := range r.m.credentials {
		out = append(out, c.Location())
	}
	return out, nil
}

type memResults struct{ m *MemoryStore }

func (r *memResults) ByID(_ context.Context, id uint) (*models.Result, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	return byID(r.m.results, id, func(x *models.Result) uint { return x.ID }), nil
}

func (r *memResults) filter(f models.ResultFilter) []*models.Result {
	var out []*models.Result
	for _, x := range r.m.results {
		if f.TargetID != nil && x.TargetID != *f.TargetID {
			continue
		}
		if f.Success != nil && x.Success != *f.Success {
			continue
		}
		out = append(out, x)
	}
	return out
}

func (r *memResults) ByFilter(_ context.Context, f models.ResultFilter, orderBy string, limit, offset int) ([]*models.Result, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	return window(r.filter(f), orderBy, limit, offset), nil
}

func (r *memResults) Save(_ context.Context, x *models.Result) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	stamp(&x.ID, &x.CreatedAt, len(r.m.results)+1)
	r.m.results = append(r.m.results, x)
	return nil
}

func (r *memResults) SaveBatch(ctx context.Context, xs []*models.Result) error {
	for _, x := range xs {
		if err := r.Save(ctx, x); err != nil {
			return err
		}
	}
	return nil
}

func (r *memResults) Count(_ context.Context, f models.ResultFilter) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return 0, r.m.Err
	}
	return int64(len(r.filter(f))), nil
}

func (r *memResults) Exists(ctx context.Context, f models.ResultFilter) (bool, error) {
	c, err := r.Count(ctx, f)
	return c > 0, err
}
