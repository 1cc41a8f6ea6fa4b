package memory

import (
	"context"
	"errors"
	"sync"

	"breeder-exchange/internal/domain/identity"
)

type identityRepo struct {
	mu       sync.RWMutex
	byID     map[string]identity.GlobalIdentity
	byGAID   map[string]string              // gaid -> identity id
	idByID   map[string]identity.Identifier // identifier id -> identifier
	idByNorm map[string]string              // type|normalized -> identifier id
}

func NewIdentityRepo() identity.Repository {
	return &identityRepo{
		byID:     make(map[string]identity.GlobalIdentity),
		byGAID:   make(map[string]string),
		idByID:   make(map[string]identity.Identifier),
		idByNorm: make(map[string]string),
	}
}

func normKey(t identity.IdentifierType, normalized string) string {
	return string(t) + "|" + normalized
}

func (r *identityRepo) CreateIdentity(ctx context.Context, gi identity.GlobalIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gi.ID == "" || gi.GAID == "" {
		return errors.New("identity id and gaid required")
	}
	if _, exists := r.byID[gi.ID]; exists {
		return errors.New("identity already exists")
	}
	if _, exists := r.byGAID[gi.GAID]; exists {
		return errors.New("gaid already exists")
	}
	r.byID[gi.ID] = gi
	r.byGAID[gi.GAID] = gi.ID
	return nil
}

func (r *identityRepo) UpdateIdentity(ctx context.Context, gi identity.GlobalIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.byID[gi.ID]
	if !exists {
		return ErrNotFound
	}
	// GAID es inmutable.
	gi.GAID = old.GAID
	r.byID[gi.ID] = gi
	return nil
}

func (r *identityRepo) GetIdentity(ctx context.Context, id string) (identity.GlobalIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gi, ok := r.byID[id]
	if !ok {
		return identity.GlobalIdentity{}, ErrNotFound
	}
	return gi, nil
}

func (r *identityRepo) GetIdentityByGAID(ctx context.Context, gaid string) (identity.GlobalIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byGAID[gaid]
	if !ok {
		return identity.GlobalIdentity{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *identityRepo) CreateIdentifier(ctx context.Context, id identity.Identifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id.ID == "" || id.IdentityID == "" || id.NormalizedValue == "" {
		return errors.New("identifier incomplete")
	}

	key := normKey(id.Type, id.NormalizedValue)
	// (type, normalizedValue) es único global.
	if _, exists := r.idByNorm[key]; exists {
		return errors.New("identifier value already taken")
	}

	r.idByID[id.ID] = id
	r.idByNorm[key] = id.ID
	return nil
}

func (r *identityRepo) UpdateIdentifier(ctx context.Context, id identity.Identifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.idByID[id.ID]; !exists {
		return ErrNotFound
	}
	r.idByID[id.ID] = id
	return nil
}

func (r *identityRepo) GetIdentifier(ctx context.Context, id string) (identity.Identifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.idByID[id]
	if !ok {
		return identity.Identifier{}, ErrNotFound
	}
	return v, nil
}

func (r *identityRepo) GetIdentifierByValue(ctx context.Context, t identity.IdentifierType, normalized string) (identity.Identifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idByNorm[normKey(t, normalized)]
	if !ok {
		return identity.Identifier{}, ErrNotFound
	}
	return r.idByID[id], nil
}

func (r *identityRepo) ListIdentifiersByIdentity(ctx context.Context, identityID string) ([]identity.Identifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]identity.Identifier, 0)
	for _, v := range r.idByID {
		if v.IdentityID == identityID {
			out = append(out, v)
		}
	}
	return out, nil
}
