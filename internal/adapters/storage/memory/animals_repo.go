package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"breeder-exchange/internal/domain/animals"
)

var ErrNotFound = errors.New("not found")

type animalsRepo struct {
	mu      sync.RWMutex
	byID    map[string]animals.Animal
	ecByKey map[string]animals.ExchangeCode // code -> ec
}

func NewAnimalsRepo() animals.Repository {
	return &animalsRepo{
		byID:    make(map[string]animals.Animal),
		ecByKey: make(map[string]animals.ExchangeCode),
	}
}

func (r *animalsRepo) Create(ctx context.Context, a animals.Animal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		return errors.New("animal id required")
	}
	if _, exists := r.byID[a.ID]; exists {
		return errors.New("animal already exists")
	}
	r.byID[a.ID] = a
	return nil
}

func (r *animalsRepo) Update(ctx context.Context, a animals.Animal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID]; !exists {
		return ErrNotFound
	}
	r.byID[a.ID] = a
	return nil
}

func (r *animalsRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *animalsRepo) GetByID(ctx context.Context, id string) (animals.Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return animals.Animal{}, ErrNotFound
	}
	return a, nil
}

func (r *animalsRepo) ListByTenant(ctx context.Context, tenantID string) ([]animals.Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]animals.Animal, 0)
	for _, a := range r.byID {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *animalsRepo) ListByRegistry(ctx context.Context, org, number string) ([]animals.Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]animals.Animal, 0)
	for _, a := range r.byID {
		if strings.EqualFold(a.RegistryOrg, org) && strings.EqualFold(a.RegistryNumber, number) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *animalsRepo) ListByMicrochip(ctx context.Context, microchip string) ([]animals.Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]animals.Animal, 0)
	for _, a := range r.byID {
		if a.Microchip != "" && strings.EqualFold(a.Microchip, microchip) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *animalsRepo) SaveExchangeCode(ctx context.Context, ec animals.ExchangeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ec.Code == "" || ec.AnimalID == "" {
		return errors.New("exchange code and animal required")
	}

	// Un código vigente por animal: emitir de nuevo pisa el anterior.
	for code, old := range r.ecByKey {
		if old.AnimalID == ec.AnimalID {
			delete(r.ecByKey, code)
		}
	}
	r.ecByKey[ec.Code] = ec
	return nil
}

func (r *animalsRepo) GetExchangeCode(ctx context.Context, code string) (animals.ExchangeCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ec, ok := r.ecByKey[code]
	if !ok {
		return animals.ExchangeCode{}, ErrNotFound
	}
	return ec, nil
}
