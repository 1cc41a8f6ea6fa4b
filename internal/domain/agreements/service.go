package agreements

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"breeder-exchange/internal/domain/access"
	"breeder-exchange/internal/domain/plans"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")

	// ErrAccessNotEstablished: el AnimalAccess referenciado no está
	// ACTIVO o no corresponde al par owner/accessor del plan.
	ErrAccessNotEstablished = errors.New("access not established")
	// ErrAgreementClosed: APPROVED/REJECTED son terminales.
	ErrAgreementClosed = errors.New("agreement already closed")
)

// Vigencia por defecto de un agreement pendiente.
const DefaultAgreementTTL = 30 * 24 * time.Hour

type GrantLookup interface {
	GetGrant(ctx context.Context, grantID, tenantID string) (access.Grant, error)
}

type PlanLookup interface {
	GetByID(ctx context.Context, id string) (plans.Plan, error)
}

type Service struct {
	repo   Repository
	grants GrantLookup
	plans  PlanLookup
	now    func() time.Time
}

func NewService(repo Repository, grants GrantLookup, pl PlanLookup) *Service {
	return &Service{
		repo:   repo,
		grants: grants,
		plans:  pl,
		now:    time.Now,
	}
}

type RequestInput struct {
	TenantID string // tenant del plan (quien pide el consentimiento)
	UserID   string

	PlanID   string
	AccessID string
	Role     Role
	Message  string
}

// Request pide consentimiento para compartir el detalle sensible de UN
// plan de cría, apoyado en un grant ACTIVO del par correcto. Solo un
// agreement por (plan, access): repetir el pedido actualiza la fila.
func (s *Service) Request(ctx context.Context, in RequestInput) (Agreement, error) {
	tenantID := strings.TrimSpace(in.TenantID)
	planID := strings.TrimSpace(in.PlanID)
	accessID := strings.TrimSpace(in.AccessID)
	if tenantID == "" || planID == "" || accessID == "" {
		return Agreement{}, ErrInvalidInput
	}
	if in.Role != RoleSire && in.Role != RoleDam {
		return Agreement{}, ErrInvalidInput
	}

	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return Agreement{}, ErrNotFound
	}
	if p.TenantID != tenantID {
		return Agreement{}, ErrForbidden
	}

	// El grant tiene que estar ACTIVO (lazy incluido) y ser del par
	// correcto: el tenant del plan es el accessor del animal ajeno.
	g, err := s.grants.GetGrant(ctx, accessID, tenantID)
	if err != nil {
		return Agreement{}, ErrAccessNotEstablished
	}
	if g.Status != access.StatusActive || g.AccessorTenantID != p.TenantID {
		return Agreement{}, ErrAccessNotEstablished
	}

	now := s.now()

	existing, err := s.repo.GetByPlanAccess(ctx, planID, accessID)
	if err == nil {
		// Ya aprobado: no hay nada que re-pedir.
		if existing.Status == StatusApproved {
			return existing, nil
		}
		existing.Status = StatusPending
		existing.Role = in.Role
		existing.Message = strings.TrimSpace(in.Message)
		existing.RequestedBy = strings.TrimSpace(in.UserID)
		existing.RespondedBy = ""
		existing.RespondedAt = nil
		existing.ExpiresAt = now.Add(DefaultAgreementTTL)
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, existing); err != nil {
			return Agreement{}, err
		}
		return existing, nil
	}

	a := Agreement{
		ID:          uuid.NewString(),
		PlanID:      planID,
		AccessID:    accessID,
		Role:        in.Role,
		Message:     strings.TrimSpace(in.Message),
		Status:      StatusPending,
		RequestedBy: strings.TrimSpace(in.UserID),
		ExpiresAt:   now.Add(DefaultAgreementTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return Agreement{}, err
	}
	return a, nil
}

// Respond: responde el tenant dueño del animal (owner del grant).
// APPROVED/REJECTED son terminales.
func (s *Service) Respond(ctx context.Context, agreementID, tenantID, userID string, approve bool) (Agreement, error) {
	agreementID = strings.TrimSpace(agreementID)
	tenantID = strings.TrimSpace(tenantID)
	userID = strings.TrimSpace(userID)
	if agreementID == "" || tenantID == "" || userID == "" {
		return Agreement{}, ErrInvalidInput
	}

	a, err := s.repo.GetByID(ctx, agreementID)
	if err != nil {
		return Agreement{}, ErrNotFound
	}

	g, err := s.grants.GetGrant(ctx, a.AccessID, tenantID)
	if err != nil {
		return Agreement{}, ErrNotFound
	}
	if g.OwnerTenantID != tenantID {
		return Agreement{}, ErrForbidden
	}

	now := s.now()

	// Idempotente sobre la misma decisión.
	if a.Status == StatusApproved && approve {
		return a, nil
	}
	if a.Status == StatusRejected && !approve {
		return a, nil
	}
	if EffectiveStatus(a, now) != StatusPending {
		return Agreement{}, ErrAgreementClosed
	}

	if approve {
		a.Status = StatusApproved
	} else {
		a.Status = StatusRejected
	}
	a.RespondedBy = userID
	a.RespondedAt = &now
	a.UpdatedAt = now

	if err := s.repo.Update(ctx, a); err != nil {
		return Agreement{}, err
	}
	return a, nil
}

// Get solo para las dos puntas del grant subyacente.
func (s *Service) Get(ctx context.Context, agreementID, tenantID string) (Agreement, error) {
	agreementID = strings.TrimSpace(agreementID)
	tenantID = strings.TrimSpace(tenantID)
	if agreementID == "" || tenantID == "" {
		return Agreement{}, ErrInvalidInput
	}

	a, err := s.repo.GetByID(ctx, agreementID)
	if err != nil {
		return Agreement{}, ErrNotFound
	}
	if _, err := s.grants.GetGrant(ctx, a.AccessID, tenantID); err != nil {
		// Un tercer tenant no ve ni que existe.
		return Agreement{}, ErrNotFound
	}

	a.Status = EffectiveStatus(a, s.now())
	return a, nil
}

// ListByPlan lista los agreements de un plan propio.
func (s *Service) ListByPlan(ctx context.Context, planID, tenantID string) ([]Agreement, error) {
	planID = strings.TrimSpace(planID)
	tenantID = strings.TrimSpace(tenantID)
	if planID == "" || tenantID == "" {
		return nil, ErrInvalidInput
	}

	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, ErrNotFound
	}
	if p.TenantID != tenantID {
		return nil, ErrForbidden
	}

	items, err := s.repo.ListByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range items {
		items[i].Status = EffectiveStatus(items[i], now)
	}
	return items, nil
}
