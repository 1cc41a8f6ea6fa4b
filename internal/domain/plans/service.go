package plans

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Name   string
	SireID string
	DamID  string
}

func (s *Service) Create(ctx context.Context, tenantID string, in CreateInput) (Plan, error) {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(in.Name) == "" {
		return Plan{}, ErrInvalidInput
	}

	now := s.now()
	p := Plan{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      strings.TrimSpace(in.Name),
		SireID:    strings.TrimSpace(in.SireID),
		DamID:     strings.TrimSpace(in.DamID),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Plan, error) {
	if strings.TrimSpace(id) == "" {
		return Plan{}, ErrInvalidInput
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Plan{}, ErrNotFound
	}
	return p, nil
}

func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]Plan, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByTenant(ctx, tenantID)
}
