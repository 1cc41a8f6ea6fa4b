package identitylinks

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
	// ErrAlreadyLinked: un match automático intentó pisar un link
	// confirmado por un humano. Solo una acción explícita puede.
	ErrAlreadyLinked = errors.New("animal already linked")
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

type LinkInput struct {
	AnimalID    string
	IdentityID  string
	Confidence  float64
	MatchedOn   []string
	AutoMatched bool
}

// Link hace upsert del único slot de link por animal.
// Un match automático nunca reemplaza en silencio un link confirmado.
func (s *Service) Link(ctx context.Context, in LinkInput) (Link, error) {
	animalID := strings.TrimSpace(in.AnimalID)
	identityID := strings.TrimSpace(in.IdentityID)
	if animalID == "" || identityID == "" {
		return Link{}, ErrInvalidInput
	}

	now := s.now()

	existing, err := s.repo.GetByAnimal(ctx, animalID)
	if err == nil {
		if existing.IdentityID == identityID {
			// Mismo destino: refrescar evidencia sin tocar la confirmación.
			existing.Confidence = in.Confidence
			existing.MatchedOn = dedupe(in.MatchedOn)
			existing.UpdatedAt = now
			if err := s.repo.Update(ctx, existing); err != nil {
				return Link{}, err
			}
			return existing, nil
		}

		if in.AutoMatched && existing.Confirmed() {
			return Link{}, ErrAlreadyLinked
		}

		// Re-link explícito (o pisar un automático): el slot se reusa,
		// la confirmación anterior ya no aplica a la identidad nueva.
		existing.IdentityID = identityID
		existing.Confidence = in.Confidence
		existing.MatchedOn = dedupe(in.MatchedOn)
		existing.AutoMatched = in.AutoMatched
		existing.ConfirmedBy = ""
		existing.ConfirmedAt = nil
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, existing); err != nil {
			return Link{}, err
		}
		return existing, nil
	}

	l := Link{
		ID:          uuid.NewString(),
		AnimalID:    animalID,
		IdentityID:  identityID,
		Confidence:  in.Confidence,
		MatchedOn:   dedupe(in.MatchedOn),
		AutoMatched: in.AutoMatched,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return Link{}, err
	}
	return l, nil
}

// Confirm sube la confianza humana sin alterar el matching.
// Un link confirmado sirve de base para relaciones cross-tenant
// sin verificación adicional.
func (s *Service) Confirm(ctx context.Context, linkID, userID string) (Link, error) {
	linkID = strings.TrimSpace(linkID)
	userID = strings.TrimSpace(userID)
	if linkID == "" || userID == "" {
		return Link{}, ErrInvalidInput
	}

	l, err := s.repo.GetByID(ctx, linkID)
	if err != nil {
		return Link{}, ErrNotFound
	}

	// Idempotente
	if l.Confirmed() {
		return l, nil
	}

	now := s.now()
	l.ConfirmedBy = userID
	l.ConfirmedAt = &now
	l.UpdatedAt = now

	if err := s.repo.Update(ctx, l); err != nil {
		return Link{}, err
	}
	return l, nil
}

func (s *Service) GetByAnimal(ctx context.Context, animalID string) (Link, error) {
	animalID = strings.TrimSpace(animalID)
	if animalID == "" {
		return Link{}, ErrInvalidInput
	}
	l, err := s.repo.GetByAnimal(ctx, animalID)
	if err != nil {
		return Link{}, ErrNotFound
	}
	return l, nil
}

func (s *Service) ListByIdentity(ctx context.Context, identityID string) ([]Link, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByIdentity(ctx, identityID)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
