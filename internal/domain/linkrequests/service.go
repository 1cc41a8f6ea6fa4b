package linkrequests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"breeder-exchange/internal/domain/animals"
	"breeder-exchange/internal/domain/identity"
	"breeder-exchange/internal/domain/identitylinks"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")

	ErrTargetNotFound = errors.New("target not found")
	// ErrSelfLink: el target resuelve al mismo animal del requester.
	ErrSelfLink = errors.New("self link rejected")
	// ErrRoleSexMismatch: p.ej. pedir SIRE apuntando a una hembra.
	ErrRoleSexMismatch = errors.New("role/sex mismatch")
	// ErrDuplicateActiveLink: ya hay un link activo para (hijo, rol).
	ErrDuplicateActiveLink = errors.New("duplicate active link")
	// ErrRequestClosed: el pedido ya no está PENDING (incluye expirado).
	ErrRequestClosed = errors.New("request already closed")
)

// AmbiguousTargetError: el direccionamiento resuelve a más de un
// candidato. Lleva los ids para que la UI ofrezca desambiguación.
type AmbiguousTargetError struct {
	CandidateAnimalIDs []string
}

func (e *AmbiguousTargetError) Error() string {
	return fmt.Sprintf("ambiguous target: %d candidates", len(e.CandidateAnimalIDs))
}

// Vigencia por defecto de un pedido pendiente.
const DefaultRequestTTL = 14 * 24 * time.Hour

// AnimalLookup / IdentityLookup / LinkDirectory: puertos chicos sobre
// los otros módulos, para poder testear el broker con fakes.
type AnimalLookup interface {
	GetByID(ctx context.Context, id string) (animals.Animal, error)
	FindByRegistry(ctx context.Context, org, number string) ([]animals.Animal, error)
	ResolveExchangeCode(ctx context.Context, code string) (animals.Animal, error)
}

type IdentityLookup interface {
	GetByGAID(ctx context.Context, gaid string) (identity.GlobalIdentity, error)
}

type LinkDirectory interface {
	ListByIdentity(ctx context.Context, identityID string) ([]identitylinks.Link, error)
}

type Service struct {
	repo       Repository
	animals    AnimalLookup
	identities IdentityLookup
	idLinks    LinkDirectory
	now        func() time.Time
}

func NewService(repo Repository, an AnimalLookup, ids IdentityLookup, links LinkDirectory) *Service {
	return &Service{
		repo:       repo,
		animals:    an,
		identities: ids,
		idLinks:    links,
		now:        time.Now,
	}
}

type SubmitInput struct {
	RequesterTenantID string
	RequesterUserID   string
	AnimalID          string
	Role              ParentRole
	Target            TargetRef
	Message           string
	TTL               time.Duration
}

// Submit valida el direccionamiento, lo resuelve a exactamente un
// (tenant, animal) candidato y recién ahí escribe el pedido PENDING.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Request, error) {
	tenantID := strings.TrimSpace(in.RequesterTenantID)
	animalID := strings.TrimSpace(in.AnimalID)
	if tenantID == "" || animalID == "" {
		return Request{}, ErrInvalidInput
	}
	if in.Role != RoleSire && in.Role != RoleDam {
		return Request{}, ErrInvalidInput
	}
	if err := validateTarget(in.Target); err != nil {
		return Request{}, err
	}

	child, err := s.animals.GetByID(ctx, animalID)
	if err != nil {
		return Request{}, ErrNotFound
	}
	if child.TenantID != tenantID {
		return Request{}, ErrForbidden
	}

	candidate, err := s.resolveTarget(ctx, in.Target)
	if err != nil {
		return Request{}, err
	}
	if candidate.ID == child.ID {
		return Request{}, ErrSelfLink
	}
	if sexConflicts(in.Role, candidate.Sex) {
		return Request{}, ErrRoleSexMismatch
	}

	// El slot (hijo, rol) tiene que estar libre antes de molestar al
	// otro criadero.
	if _, err := s.repo.GetActiveLink(ctx, child.ID, in.Role); err == nil {
		return Request{}, ErrDuplicateActiveLink
	}

	ttl := in.TTL
	if ttl <= 0 {
		ttl = DefaultRequestTTL
	}

	now := s.now()
	r := Request{
		ID:                uuid.NewString(),
		RequesterTenantID: tenantID,
		RequesterUserID:   strings.TrimSpace(in.RequesterUserID),
		AnimalID:          child.ID,
		Role:              in.Role,
		Target:            in.Target,
		Message:           strings.TrimSpace(in.Message),
		Status:            StatusPending,
		TargetTenantID:    candidate.TenantID,
		TargetAnimalID:    candidate.ID,
		ExpiresAt:         now.Add(ttl),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.CreateRequest(ctx, r); err != nil {
		return Request{}, err
	}
	return r, nil
}

// Respond procesa la decisión del tenant target. Aprobar estampa el
// target confirmado y crea exactamente un CrossTenantLink, atómico:
// si el link choca (carrera), el pedido queda PENDING.
func (s *Service) Respond(ctx context.Context, requestID, tenantID, userID string, approve bool, reason string) (Request, error) {
	requestID = strings.TrimSpace(requestID)
	tenantID = strings.TrimSpace(tenantID)
	userID = strings.TrimSpace(userID)
	if requestID == "" || tenantID == "" || userID == "" {
		return Request{}, ErrInvalidInput
	}

	r, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, ErrNotFound
	}
	if r.TargetTenantID != tenantID {
		return Request{}, ErrForbidden
	}

	now := s.now()

	// Idempotente: re-aprobar un APPROVED no crea un segundo link.
	if r.Status == StatusApproved && approve {
		return r, nil
	}
	if EffectiveStatus(r, now) != StatusPending {
		return Request{}, ErrRequestClosed
	}

	if !approve {
		r.Status = StatusDenied
		r.DenyReason = strings.TrimSpace(reason)
		r.RespondedBy = userID
		r.RespondedAt = &now
		r.UpdatedAt = now
		if err := s.repo.UpdateRequest(ctx, r); err != nil {
			return Request{}, err
		}
		return r, nil
	}

	r.Status = StatusApproved
	r.ConfirmedAnimalID = r.TargetAnimalID
	r.RespondedBy = userID
	r.RespondedAt = &now
	r.UpdatedAt = now

	l := CrossTenantLink{
		ID:             uuid.NewString(),
		ChildAnimalID:  r.AnimalID,
		ChildTenantID:  r.RequesterTenantID,
		ParentAnimalID: r.TargetAnimalID,
		ParentTenantID: r.TargetTenantID,
		Role:           r.Role,
		Method:         methodForMode(r.Target.Mode),
		RequestID:      r.ID,
		Active:         true,
		CreatedAt:      now,
	}

	if err := s.repo.ApproveAndLink(ctx, r, l); err != nil {
		return Request{}, err
	}
	return r, nil
}

type RecordLinkInput struct {
	TenantID string
	UserID   string

	ChildAnimalID  string
	ParentAnimalID string
	Role           ParentRole
	Method         LinkMethod
}

// RecordLink registra un edge derivado sin workflow de aprobación
// (match por chip, offspring derivado de un plan de cría). El tenant
// que lo registra tiene que ser dueño del hijo.
func (s *Service) RecordLink(ctx context.Context, in RecordLinkInput) (CrossTenantLink, error) {
	tenantID := strings.TrimSpace(in.TenantID)
	if tenantID == "" || strings.TrimSpace(in.ChildAnimalID) == "" || strings.TrimSpace(in.ParentAnimalID) == "" {
		return CrossTenantLink{}, ErrInvalidInput
	}
	if in.Role != RoleSire && in.Role != RoleDam {
		return CrossTenantLink{}, ErrInvalidInput
	}
	if in.Method != MethodMicrochipMatch && in.Method != MethodOffspringDerived {
		return CrossTenantLink{}, ErrInvalidInput
	}
	if in.ChildAnimalID == in.ParentAnimalID {
		return CrossTenantLink{}, ErrSelfLink
	}

	child, err := s.animals.GetByID(ctx, in.ChildAnimalID)
	if err != nil {
		return CrossTenantLink{}, ErrNotFound
	}
	if child.TenantID != tenantID {
		return CrossTenantLink{}, ErrForbidden
	}
	parent, err := s.animals.GetByID(ctx, in.ParentAnimalID)
	if err != nil {
		return CrossTenantLink{}, ErrTargetNotFound
	}
	if sexConflicts(in.Role, parent.Sex) {
		return CrossTenantLink{}, ErrRoleSexMismatch
	}

	l := CrossTenantLink{
		ID:             uuid.NewString(),
		ChildAnimalID:  child.ID,
		ChildTenantID:  child.TenantID,
		ParentAnimalID: parent.ID,
		ParentTenantID: parent.TenantID,
		Role:           in.Role,
		Method:         in.Method,
		Active:         true,
		CreatedAt:      s.now(),
	}

	if err := s.repo.CreateLink(ctx, l); err != nil {
		return CrossTenantLink{}, err
	}
	return l, nil
}

// RevokeLink desactiva el edge sin borrar historia: libera el slot
// (hijo, rol) para un pedido futuro. Idempotente.
func (s *Service) RevokeLink(ctx context.Context, linkID, tenantID, userID string) (CrossTenantLink, error) {
	linkID = strings.TrimSpace(linkID)
	tenantID = strings.TrimSpace(tenantID)
	if linkID == "" || tenantID == "" {
		return CrossTenantLink{}, ErrInvalidInput
	}

	l, err := s.repo.GetLink(ctx, linkID)
	if err != nil {
		return CrossTenantLink{}, ErrNotFound
	}
	if l.ChildTenantID != tenantID && l.ParentTenantID != tenantID {
		return CrossTenantLink{}, ErrForbidden
	}

	if !l.Active {
		return l, nil
	}

	now := s.now()
	l.Active = false
	l.RevokedBy = strings.TrimSpace(userID)
	l.RevokedAt = &now

	if err := s.repo.UpdateLink(ctx, l); err != nil {
		return CrossTenantLink{}, err
	}

	// El pedido que lo originó queda REVOKED (historia auditable).
	if l.RequestID != "" {
		if r, err := s.repo.GetRequest(ctx, l.RequestID); err == nil && r.Status == StatusApproved {
			r.Status = StatusRevoked
			r.UpdatedAt = now
			_ = s.repo.UpdateRequest(ctx, r)
		}
	}

	return l, nil
}

// Get devuelve el pedido solo a los dos tenants involucrados.
func (s *Service) Get(ctx context.Context, requestID, tenantID string) (Request, error) {
	requestID = strings.TrimSpace(requestID)
	tenantID = strings.TrimSpace(tenantID)
	if requestID == "" || tenantID == "" {
		return Request{}, ErrInvalidInput
	}

	r, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, ErrNotFound
	}
	if r.RequesterTenantID != tenantID && r.TargetTenantID != tenantID {
		// Un tercer tenant no ve ni que existe.
		return Request{}, ErrNotFound
	}

	r.Status = EffectiveStatus(r, s.now())
	return r, nil
}

func (s *Service) ListOutgoing(ctx context.Context, tenantID string) ([]Request, error) {
	return s.listScoped(ctx, tenantID, s.repo.ListByRequester)
}

func (s *Service) ListIncoming(ctx context.Context, tenantID string) ([]Request, error) {
	return s.listScoped(ctx, tenantID, s.repo.ListByTargetTenant)
}

func (s *Service) listScoped(ctx context.Context, tenantID string, fetch func(context.Context, string) ([]Request, error)) ([]Request, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidInput
	}
	items, err := fetch(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range items {
		items[i].Status = EffectiveStatus(items[i], now)
	}
	return items, nil
}

// ListLinks devuelve los edges donde el animal participa; solo para
// tenants de alguno de los dos lados.
func (s *Service) ListLinks(ctx context.Context, animalID, tenantID string) ([]CrossTenantLink, error) {
	animalID = strings.TrimSpace(animalID)
	tenantID = strings.TrimSpace(tenantID)
	if animalID == "" || tenantID == "" {
		return nil, ErrInvalidInput
	}

	all, err := s.repo.ListLinksByAnimal(ctx, animalID)
	if err != nil {
		return nil, err
	}
	out := make([]CrossTenantLink, 0, len(all))
	for _, l := range all {
		if l.ChildTenantID != tenantID && l.ParentTenantID != tenantID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// ReconcileExpired materializa la expiración computada, para que los
// listados masivos no dependan del cómputo lazy. Idempotente.
func (s *Service) ReconcileExpired(ctx context.Context) (int, error) {
	return s.repo.ExpireRequestsBefore(ctx, s.now())
}

// resolveTarget es exhaustivo sobre TargetRef.Mode.
func (s *Service) resolveTarget(ctx context.Context, t TargetRef) (animals.Animal, error) {
	switch t.Mode {
	case ModeTargetAnimal:
		a, err := s.animals.GetByID(ctx, t.AnimalID)
		if err != nil {
			return animals.Animal{}, ErrTargetNotFound
		}
		return a, nil

	case ModeGAID:
		gi, err := s.identities.GetByGAID(ctx, t.GAID)
		if err != nil {
			return animals.Animal{}, ErrTargetNotFound
		}
		links, err := s.idLinks.ListByIdentity(ctx, gi.ID)
		if err != nil {
			return animals.Animal{}, err
		}
		candidates := make([]animals.Animal, 0, len(links))
		ids := make([]string, 0, len(links))
		for _, l := range links {
			a, err := s.animals.GetByID(ctx, l.AnimalID)
			if err != nil {
				continue
			}
			candidates = append(candidates, a)
			ids = append(ids, a.ID)
		}
		switch len(candidates) {
		case 0:
			return animals.Animal{}, ErrTargetNotFound
		case 1:
			return candidates[0], nil
		default:
			return animals.Animal{}, &AmbiguousTargetError{CandidateAnimalIDs: ids}
		}

	case ModeExchangeCode:
		a, err := s.animals.ResolveExchangeCode(ctx, t.ExchangeCode)
		if err != nil {
			// Un código vencido ya no direcciona nada.
			return animals.Animal{}, ErrTargetNotFound
		}
		return a, nil

	case ModeRegistry:
		candidates, err := s.animals.FindByRegistry(ctx, t.RegistryOrg, t.RegistryNumber)
		if err != nil {
			return animals.Animal{}, ErrTargetNotFound
		}
		switch len(candidates) {
		case 0:
			return animals.Animal{}, ErrTargetNotFound
		case 1:
			return candidates[0], nil
		default:
			ids := make([]string, 0, len(candidates))
			for _, a := range candidates {
				ids = append(ids, a.ID)
			}
			return animals.Animal{}, &AmbiguousTargetError{CandidateAnimalIDs: ids}
		}

	default:
		return animals.Animal{}, ErrInvalidInput
	}
}

// validateTarget exige exactamente un modo con sus campos, y nada más.
func validateTarget(t TargetRef) error {
	hasAnimal := strings.TrimSpace(t.AnimalID) != ""
	hasGAID := strings.TrimSpace(t.GAID) != ""
	hasCode := strings.TrimSpace(t.ExchangeCode) != ""
	hasRegistry := strings.TrimSpace(t.RegistryOrg) != "" || strings.TrimSpace(t.RegistryNumber) != ""

	count := 0
	for _, b := range []bool{hasAnimal, hasGAID, hasCode, hasRegistry} {
		if b {
			count++
		}
	}
	if count != 1 {
		return ErrInvalidInput
	}

	switch t.Mode {
	case ModeTargetAnimal:
		if !hasAnimal {
			return ErrInvalidInput
		}
	case ModeGAID:
		if !hasGAID {
			return ErrInvalidInput
		}
	case ModeExchangeCode:
		if !hasCode {
			return ErrInvalidInput
		}
	case ModeRegistry:
		if strings.TrimSpace(t.RegistryOrg) == "" || strings.TrimSpace(t.RegistryNumber) == "" {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	return nil
}

func methodForMode(m TargetMode) LinkMethod {
	switch m {
	case ModeGAID:
		return MethodGAID
	case ModeExchangeCode:
		return MethodExchangeCode
	case ModeRegistry:
		return MethodRegistryMatch
	default:
		return MethodBreederRequest
	}
}

// sexConflicts: un SIRE no puede ser hembra ni una DAM macho.
// Sexo desconocido pasa (lo resuelve la confirmación humana).
func sexConflicts(role ParentRole, sex string) bool {
	switch role {
	case RoleSire:
		return sex == string(animals.SexFemale)
	case RoleDam:
		return sex == string(animals.SexMale)
	}
	return false
}
