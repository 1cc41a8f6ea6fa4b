package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"breeder-exchange/internal/domain/access"
)

type accessRepo struct {
	mu     sync.Mutex
	grants map[string]access.Grant
	byPair map[string]string // animal|accessor -> grant id (fila única)
	codes  map[string]access.ShareCode
	byCode map[string]string // code -> id
}

func NewAccessRepo() access.Repository {
	return &accessRepo{
		grants: make(map[string]access.Grant),
		byPair: make(map[string]string),
		codes:  make(map[string]access.ShareCode),
		byCode: make(map[string]string),
	}
}

func pairKey(animalID, accessorTenantID string) string {
	return animalID + "|" + accessorTenantID
}

func (r *accessRepo) CreateGrant(ctx context.Context, g access.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.ID == "" {
		return errors.New("grant id required")
	}
	key := pairKey(g.AnimalID, g.AccessorTenantID)
	if _, exists := r.byPair[key]; exists {
		return access.ErrDuplicateGrant
	}
	r.grants[g.ID] = g
	r.byPair[key] = g.ID
	return nil
}

func (r *accessRepo) UpdateGrant(ctx context.Context, g access.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.grants[g.ID]; !exists {
		return ErrNotFound
	}
	r.grants[g.ID] = g
	return nil
}

func (r *accessRepo) GetGrant(ctx context.Context, id string) (access.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grants[id]
	if !ok {
		return access.Grant{}, ErrNotFound
	}
	return g, nil
}

func (r *accessRepo) GetGrantByAnimalAccessor(ctx context.Context, animalID, accessorTenantID string) (access.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPair[pairKey(animalID, accessorTenantID)]
	if !ok {
		return access.Grant{}, ErrNotFound
	}
	return r.grants[id], nil
}

func (r *accessRepo) ListGrantsByAnimal(ctx context.Context, animalID string) ([]access.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]access.Grant, 0)
	for _, g := range r.grants {
		if g.AnimalID == animalID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *accessRepo) ListGrantsByAccessor(ctx context.Context, accessorTenantID string) ([]access.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]access.Grant, 0)
	for _, g := range r.grants {
		if g.AccessorTenantID == accessorTenantID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *accessRepo) CreateShareCode(ctx context.Context, c access.ShareCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" || c.Code == "" {
		return errors.New("share code incomplete")
	}
	if _, exists := r.byCode[c.Code]; exists {
		return errors.New("code already taken")
	}
	r.codes[c.ID] = c
	r.byCode[c.Code] = c.ID
	return nil
}

func (r *accessRepo) UpdateShareCode(ctx context.Context, c access.ShareCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codes[c.ID]; !exists {
		return ErrNotFound
	}
	r.codes[c.ID] = c
	return nil
}

func (r *accessRepo) GetShareCode(ctx context.Context, id string) (access.ShareCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[id]
	if !ok {
		return access.ShareCode{}, ErrNotFound
	}
	return c, nil
}

func (r *accessRepo) GetShareCodeByCode(ctx context.Context, code string) (access.ShareCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byCode[code]
	if !ok {
		return access.ShareCode{}, ErrNotFound
	}
	return r.codes[id], nil
}

func (r *accessRepo) ListShareCodesByOwner(ctx context.Context, ownerTenantID string) ([]access.ShareCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]access.ShareCode, 0)
	for _, c := range r.codes {
		if c.OwnerTenantID == ownerTenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ConsumeAndApplyGrants: todo bajo el mismo lock. O se incrementa el
// contador y quedan todos los grants del paquete, o no pasa nada. Sin
// lost updates entre redeemers concurrentes.
func (r *accessRepo) ConsumeAndApplyGrants(ctx context.Context, id string, now time.Time, grants []access.Grant) (access.ShareCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[id]
	if !ok {
		return access.ShareCode{}, ErrNotFound
	}
	if c.Status == access.CodeMaxUsesReached {
		return access.ShareCode{}, access.ErrCodeExhausted
	}
	if c.MaxUses > 0 && c.UsesCount >= c.MaxUses {
		return access.ShareCode{}, access.ErrCodeExhausted
	}

	for _, g := range grants {
		if g.ID == "" {
			return access.ShareCode{}, errors.New("grant id required")
		}
		key := pairKey(g.AnimalID, g.AccessorTenantID)
		// Upsert por clave natural: si otro writer insertó el par entre
		// la lectura y este apply, su fila se pisa con la computada.
		if prev, exists := r.byPair[key]; exists && prev != g.ID {
			delete(r.grants, prev)
		}
		r.grants[g.ID] = g
		r.byPair[key] = g.ID
	}

	c.UsesCount++
	if c.MaxUses > 0 && c.UsesCount >= c.MaxUses {
		c.Status = access.CodeMaxUsesReached
	}
	c.UpdatedAt = now
	r.codes[id] = c
	return c, nil
}

func (r *accessRepo) ExpireGrantsBefore(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, g := range r.grants {
		if g.Status != access.StatusActive || g.ExpiresAt == nil || now.Before(*g.ExpiresAt) {
			continue
		}
		g.Status = access.StatusExpired
		g.UpdatedAt = now
		r.grants[id] = g
		n++
	}
	return n, nil
}

func (r *accessRepo) ExpireShareCodesBefore(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, c := range r.codes {
		if c.Status != access.CodeActive || c.ExpiresAt == nil || now.Before(*c.ExpiresAt) {
			continue
		}
		c.Status = access.CodeExpired
		c.UpdatedAt = now
		r.codes[id] = c
		n++
	}
	return n, nil
}
