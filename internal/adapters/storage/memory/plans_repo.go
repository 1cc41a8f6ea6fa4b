package memory

import (
	"context"
	"errors"
	"sync"

	"breeder-exchange/internal/domain/plans"
)

type plansRepo struct {
	mu   sync.RWMutex
	byID map[string]plans.Plan
}

func NewPlansRepo() plans.Repository {
	return &plansRepo{byID: make(map[string]plans.Plan)}
}

func (r *plansRepo) Create(ctx context.Context, p plans.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		return errors.New("plan id required")
	}
	if _, exists := r.byID[p.ID]; exists {
		return errors.New("plan already exists")
	}
	r.byID[p.ID] = p
	return nil
}

func (r *plansRepo) GetByID(ctx context.Context, id string) (plans.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return plans.Plan{}, ErrNotFound
	}
	return p, nil
}

func (r *plansRepo) ListByTenant(ctx context.Context, tenantID string) ([]plans.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]plans.Plan, 0)
	for _, p := range r.byID {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}
