package memory

import (
	"context"
	"errors"
	"sync"

	"breeder-exchange/internal/domain/identitylinks"
)

type identityLinksRepo struct {
	mu       sync.RWMutex
	byID     map[string]identitylinks.Link
	byAnimal map[string]string // animal id -> link id (slot único)
}

func NewIdentityLinksRepo() identitylinks.Repository {
	return &identityLinksRepo{
		byID:     make(map[string]identitylinks.Link),
		byAnimal: make(map[string]string),
	}
}

func (r *identityLinksRepo) Create(ctx context.Context, l identitylinks.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l.ID == "" || l.AnimalID == "" {
		return errors.New("link incomplete")
	}
	if _, exists := r.byAnimal[l.AnimalID]; exists {
		return errors.New("animal already linked")
	}
	r.byID[l.ID] = l
	r.byAnimal[l.AnimalID] = l.ID
	return nil
}

func (r *identityLinksRepo) Update(ctx context.Context, l identitylinks.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[l.ID]; !exists {
		return ErrNotFound
	}
	r.byID[l.ID] = l
	return nil
}

func (r *identityLinksRepo) GetByID(ctx context.Context, id string) (identitylinks.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byID[id]
	if !ok {
		return identitylinks.Link{}, ErrNotFound
	}
	return l, nil
}

func (r *identityLinksRepo) GetByAnimal(ctx context.Context, animalID string) (identitylinks.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAnimal[animalID]
	if !ok {
		return identitylinks.Link{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *identityLinksRepo) ListByIdentity(ctx context.Context, identityID string) ([]identitylinks.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]identitylinks.Link, 0)
	for _, l := range r.byID {
		if l.IdentityID == identityID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *identityLinksRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byAnimal, l.AnimalID)
	return nil
}
