package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"breeder-exchange/internal/domain/linkrequests"
)

type linkRequestsRepo struct {
	mu       sync.Mutex
	requests map[string]linkrequests.Request
	links    map[string]linkrequests.CrossTenantLink
}

func NewLinkRequestsRepo() linkrequests.Repository {
	return &linkRequestsRepo{
		requests: make(map[string]linkrequests.Request),
		links:    make(map[string]linkrequests.CrossTenantLink),
	}
}

func (r *linkRequestsRepo) CreateRequest(ctx context.Context, req linkrequests.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == "" {
		return errors.New("request id required")
	}
	if _, exists := r.requests[req.ID]; exists {
		return errors.New("request already exists")
	}
	r.requests[req.ID] = req
	return nil
}

func (r *linkRequestsRepo) UpdateRequest(ctx context.Context, req linkrequests.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[req.ID]; !exists {
		return ErrNotFound
	}
	r.requests[req.ID] = req
	return nil
}

func (r *linkRequestsRepo) GetRequest(ctx context.Context, id string) (linkrequests.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return linkrequests.Request{}, ErrNotFound
	}
	return req, nil
}

func (r *linkRequestsRepo) ListByRequester(ctx context.Context, tenantID string) ([]linkrequests.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]linkrequests.Request, 0)
	for _, req := range r.requests {
		if req.RequesterTenantID == tenantID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *linkRequestsRepo) ListByTargetTenant(ctx context.Context, tenantID string) ([]linkrequests.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]linkrequests.Request, 0)
	for _, req := range r.requests {
		if req.TargetTenantID == tenantID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *linkRequestsRepo) CreateLink(ctx context.Context, l linkrequests.CrossTenantLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLinkLocked(l)
}

// createLinkLocked asume r.mu tomado.
func (r *linkRequestsRepo) createLinkLocked(l linkrequests.CrossTenantLink) error {
	if l.ID == "" {
		return errors.New("link id required")
	}
	for _, existing := range r.links {
		if existing.Active && existing.ChildAnimalID == l.ChildAnimalID && existing.Role == l.Role {
			return linkrequests.ErrDuplicateActiveLink
		}
	}
	r.links[l.ID] = l
	return nil
}

func (r *linkRequestsRepo) UpdateLink(ctx context.Context, l linkrequests.CrossTenantLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links[l.ID]; !exists {
		return ErrNotFound
	}
	r.links[l.ID] = l
	return nil
}

func (r *linkRequestsRepo) GetLink(ctx context.Context, id string) (linkrequests.CrossTenantLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.links[id]
	if !ok {
		return linkrequests.CrossTenantLink{}, ErrNotFound
	}
	return l, nil
}

func (r *linkRequestsRepo) GetActiveLink(ctx context.Context, childAnimalID string, role linkrequests.ParentRole) (linkrequests.CrossTenantLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.links {
		if l.Active && l.ChildAnimalID == childAnimalID && l.Role == role {
			return l, nil
		}
	}
	return linkrequests.CrossTenantLink{}, ErrNotFound
}

func (r *linkRequestsRepo) ListLinksByAnimal(ctx context.Context, animalID string) ([]linkrequests.CrossTenantLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]linkrequests.CrossTenantLink, 0)
	for _, l := range r.links {
		if l.ChildAnimalID == animalID || l.ParentAnimalID == animalID {
			out = append(out, l)
		}
	}
	return out, nil
}

// ApproveAndLink: todo-o-nada bajo el mismo lock. Si el link choca,
// el pedido no se toca.
func (r *linkRequestsRepo) ApproveAndLink(ctx context.Context, req linkrequests.Request, l linkrequests.CrossTenantLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[req.ID]; !exists {
		return ErrNotFound
	}
	if err := r.createLinkLocked(l); err != nil {
		return err
	}
	r.requests[req.ID] = req
	return nil
}

func (r *linkRequestsRepo) ExpireRequestsBefore(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, req := range r.requests {
		if req.Status != linkrequests.StatusPending {
			continue
		}
		if req.ExpiresAt.IsZero() || now.Before(req.ExpiresAt) {
			continue
		}
		req.Status = linkrequests.StatusExpired
		req.UpdatedAt = now
		r.requests[id] = req
		n++
	}
	return n, nil
}
