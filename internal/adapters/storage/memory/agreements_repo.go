package memory

import (
	"context"
	"errors"
	"sync"

	"breeder-exchange/internal/domain/agreements"
)

type agreementsRepo struct {
	mu    sync.RWMutex
	byID  map[string]agreements.Agreement
	byKey map[string]string // plan|access -> id (fila única)
}

func NewAgreementsRepo() agreements.Repository {
	return &agreementsRepo{
		byID:  make(map[string]agreements.Agreement),
		byKey: make(map[string]string),
	}
}

func agreementKey(planID, accessID string) string {
	return planID + "|" + accessID
}

func (r *agreementsRepo) Create(ctx context.Context, a agreements.Agreement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		return errors.New("agreement id required")
	}
	key := agreementKey(a.PlanID, a.AccessID)
	if _, exists := r.byKey[key]; exists {
		return errors.New("agreement already exists for plan/access")
	}
	r.byID[a.ID] = a
	r.byKey[key] = a.ID
	return nil
}

func (r *agreementsRepo) Update(ctx context.Context, a agreements.Agreement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID]; !exists {
		return ErrNotFound
	}
	r.byID[a.ID] = a
	return nil
}

func (r *agreementsRepo) GetByID(ctx context.Context, id string) (agreements.Agreement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return agreements.Agreement{}, ErrNotFound
	}
	return a, nil
}

func (r *agreementsRepo) GetByPlanAccess(ctx context.Context, planID, accessID string) (agreements.Agreement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[agreementKey(planID, accessID)]
	if !ok {
		return agreements.Agreement{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *agreementsRepo) ListByPlan(ctx context.Context, planID string) ([]agreements.Agreement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]agreements.Agreement, 0)
	for _, a := range r.byID {
		if a.PlanID == planID {
			out = append(out, a)
		}
	}
	return out, nil
}
