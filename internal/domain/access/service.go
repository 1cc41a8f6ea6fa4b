package access

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"breeder-exchange/internal/domain/animals"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")

	ErrCodeExpired   = errors.New("share code expired")
	ErrCodeRevoked   = errors.New("share code revoked")
	ErrCodeExhausted = errors.New("share code exhausted")
	// ErrUnknownAnimalInBundle: el código referencia un animal que ya
	// no existe; el canje completo se rechaza (todo-o-nada).
	ErrUnknownAnimalInBundle = errors.New("unknown animal in bundle")
)

const shareCodeLen = 12

type AnimalLookup interface {
	GetByID(ctx context.Context, id string) (animals.Animal, error)
}

type Service struct {
	repo    Repository
	animals AnimalLookup
	now     func() time.Time
}

func NewService(repo Repository, an AnimalLookup) *Service {
	return &Service{
		repo:    repo,
		animals: an,
		now:     time.Now,
	}
}

type GrantInput struct {
	OwnerTenantID    string
	AccessorTenantID string
	AnimalID         string
	Tier             Tier
	Source           Source
	ExpiresAt        *time.Time
}

// GrantAccess hace upsert sobre (animal, accessor):
// - grant ACTIVE existente: el tier sube a CombineTiers(viejo, nuevo)
//   — nunca se degrada en silencio;
// - REVOKED/EXPIRED: se reactiva en el mismo row con tier y timestamp
//   frescos, preservando el CreatedAt original;
// - violación de unicidad al insertar = otro writer ganó la carrera:
//   se reintenta como update, no se propaga.
func (s *Service) GrantAccess(ctx context.Context, in GrantInput) (Grant, error) {
	owner := strings.TrimSpace(in.OwnerTenantID)
	accessor := strings.TrimSpace(in.AccessorTenantID)
	animalID := strings.TrimSpace(in.AnimalID)
	if owner == "" || accessor == "" || animalID == "" {
		return Grant{}, ErrInvalidInput
	}
	if owner == accessor {
		return Grant{}, ErrInvalidInput
	}
	if !ValidTier(in.Tier) || !ValidSource(in.Source) {
		return Grant{}, ErrInvalidInput
	}

	a, err := s.animals.GetByID(ctx, animalID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	if a.TenantID != owner {
		return Grant{}, ErrForbidden
	}

	clean := GrantInput{
		OwnerTenantID:    owner,
		AccessorTenantID: accessor,
		AnimalID:         animalID,
		Tier:             in.Tier,
		Source:           in.Source,
		ExpiresAt:        in.ExpiresAt,
	}

	// Dos intentos: si el insert pierde la carrera contra otro writer,
	// la segunda vuelta cae en el camino de update.
	for attempt := 0; attempt < 2; attempt++ {
		g, isNew := s.resolveGrant(ctx, a, clean, s.now())
		if !isNew {
			if err := s.repo.UpdateGrant(ctx, g); err != nil {
				return Grant{}, err
			}
			return g, nil
		}

		err = s.repo.CreateGrant(ctx, g)
		if err == nil {
			return g, nil
		}
		if !errors.Is(err, ErrDuplicateGrant) {
			return Grant{}, err
		}
	}
	return Grant{}, ErrDuplicateGrant
}

// resolveGrant computa la fila final para (animal, accessor) sin
// escribir nada: combina tiers si hay un grant ACTIVE, reactiva in
// place si está REVOKED/EXPIRED, o arma una fila nueva. Devuelve
// isNew=true cuando la fila todavía no existe en el repo.
func (s *Service) resolveGrant(ctx context.Context, a animals.Animal, in GrantInput, now time.Time) (Grant, bool) {
	existing, err := s.repo.GetGrantByAnimalAccessor(ctx, in.AnimalID, in.AccessorTenantID)
	if err == nil {
		if EffectiveStatus(existing, now) == StatusActive {
			existing.Tier = CombineTiers(existing.Tier, in.Tier)
			existing.ExpiresAt = laterExpiry(existing.ExpiresAt, in.ExpiresAt)
		} else {
			// Reactivación in place: fila única, historia preservada.
			existing.Status = StatusActive
			existing.Tier = in.Tier
			existing.Source = in.Source
			existing.ExpiresAt = in.ExpiresAt
			existing.RevokedBy = ""
			existing.RevokedAt = nil
			existing.AnimalName = a.Name
			existing.AnimalSpecies = a.Species
			existing.AnimalSex = a.Sex
		}
		existing.UpdatedAt = now
		return existing, false
	}

	return Grant{
		ID:               uuid.NewString(),
		AnimalID:         in.AnimalID,
		OwnerTenantID:    in.OwnerTenantID,
		AccessorTenantID: in.AccessorTenantID,
		Tier:             in.Tier,
		Source:           in.Source,
		Status:           StatusActive,
		ExpiresAt:        in.ExpiresAt,
		AnimalName:       a.Name,
		AnimalSpecies:    a.Species,
		AnimalSex:        a.Sex,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, true
}

// RevokeAccess solo lo hace el tenant dueño. Idempotente.
func (s *Service) RevokeAccess(ctx context.Context, grantID, tenantID, userID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	tenantID = strings.TrimSpace(tenantID)
	if grantID == "" || tenantID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.GetGrant(ctx, grantID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	if g.OwnerTenantID != tenantID {
		return Grant{}, ErrForbidden
	}

	if g.Status == StatusRevoked {
		return g, nil
	}

	now := s.now()
	g.Status = StatusRevoked
	g.RevokedBy = strings.TrimSpace(userID)
	g.RevokedAt = &now
	g.UpdatedAt = now

	if err := s.repo.UpdateGrant(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// MarkOwnerDeleted deja los grants del animal en OWNER_DELETED cuando
// el dueño borra su registro: el accessor conserva la referencia
// legible (snapshot) pero ya no hay nada detrás.
func (s *Service) MarkOwnerDeleted(ctx context.Context, animalID, ownerTenantID string) (int, error) {
	animalID = strings.TrimSpace(animalID)
	if animalID == "" || strings.TrimSpace(ownerTenantID) == "" {
		return 0, ErrInvalidInput
	}

	items, err := s.repo.ListGrantsByAnimal(ctx, animalID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	n := 0
	for _, g := range items {
		if g.OwnerTenantID != ownerTenantID {
			continue
		}
		if g.Status == StatusOwnerDeleted {
			continue
		}
		g.Status = StatusOwnerDeleted
		g.UpdatedAt = now
		if err := s.repo.UpdateGrant(ctx, g); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// GetGrant solo para el par owner/accessor involucrado.
func (s *Service) GetGrant(ctx context.Context, grantID, tenantID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	tenantID = strings.TrimSpace(tenantID)
	if grantID == "" || tenantID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.GetGrant(ctx, grantID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	if g.OwnerTenantID != tenantID && g.AccessorTenantID != tenantID {
		// Un tercer tenant no ve ni que existe.
		return Grant{}, ErrNotFound
	}

	g.Status = EffectiveStatus(g, s.now())
	return g, nil
}

func (s *Service) ListByAnimal(ctx context.Context, animalID, ownerTenantID string) ([]Grant, error) {
	animalID = strings.TrimSpace(animalID)
	if animalID == "" || strings.TrimSpace(ownerTenantID) == "" {
		return nil, ErrInvalidInput
	}

	tenant, err := s.animals.GetByID(ctx, animalID)
	if err != nil {
		return nil, ErrNotFound
	}
	if tenant.TenantID != ownerTenantID {
		return nil, ErrForbidden
	}

	items, err := s.repo.ListGrantsByAnimal(ctx, animalID)
	if err != nil {
		return nil, err
	}
	return s.applyEffective(items), nil
}

func (s *Service) ListByAccessor(ctx context.Context, accessorTenantID string) ([]Grant, error) {
	if strings.TrimSpace(accessorTenantID) == "" {
		return nil, ErrInvalidInput
	}
	items, err := s.repo.ListGrantsByAccessor(ctx, accessorTenantID)
	if err != nil {
		return nil, err
	}
	return s.applyEffective(items), nil
}

type CreateShareCodeInput struct {
	OwnerTenantID string
	DefaultTier   Tier
	AnimalIDs     []string
	TierOverrides map[string]Tier
	ExpiresAt     *time.Time
	MaxUses       int
}

func (s *Service) CreateShareCode(ctx context.Context, in CreateShareCodeInput) (ShareCode, error) {
	owner := strings.TrimSpace(in.OwnerTenantID)
	if owner == "" || len(in.AnimalIDs) == 0 {
		return ShareCode{}, ErrInvalidInput
	}
	if !ValidTier(in.DefaultTier) {
		return ShareCode{}, ErrInvalidInput
	}
	for _, t := range in.TierOverrides {
		if !ValidTier(t) {
			return ShareCode{}, ErrInvalidInput
		}
	}
	if in.MaxUses < 0 {
		return ShareCode{}, ErrInvalidInput
	}

	// Todos los animales del bundle tienen que ser del emisor.
	seen := map[string]struct{}{}
	ids := make([]string, 0, len(in.AnimalIDs))
	for _, id := range in.AnimalIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return ShareCode{}, ErrInvalidInput
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		a, err := s.animals.GetByID(ctx, id)
		if err != nil {
			return ShareCode{}, ErrUnknownAnimalInBundle
		}
		if a.TenantID != owner {
			return ShareCode{}, ErrForbidden
		}
		ids = append(ids, id)
	}

	now := s.now()
	c := ShareCode{
		ID:            uuid.NewString(),
		Code:          randomShareCode(),
		OwnerTenantID: owner,
		DefaultTier:   in.DefaultTier,
		AnimalIDs:     ids,
		TierOverrides: in.TierOverrides,
		ExpiresAt:     in.ExpiresAt,
		MaxUses:       in.MaxUses,
		Status:        CodeActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.CreateShareCode(ctx, c); err != nil {
		return ShareCode{}, err
	}
	return c, nil
}

// RedeemShareCode canjea el código para el tenant accessor: valida
// vigencia y usos restantes, computa el grant final por animal
// (override por animal o tier default) y consume el uso junto con
// todos los grants en una sola unidad atómica. Un fallo a mitad del
// paquete no quema el uso ni deja grants parciales.
func (s *Service) RedeemShareCode(ctx context.Context, code, accessorTenantID string) ([]Grant, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	accessor := strings.TrimSpace(accessorTenantID)
	if code == "" || accessor == "" {
		return nil, ErrInvalidInput
	}

	c, err := s.repo.GetShareCodeByCode(ctx, code)
	if err != nil {
		return nil, ErrNotFound
	}
	if c.OwnerTenantID == accessor {
		return nil, ErrInvalidInput
	}

	switch EffectiveCodeStatus(c, s.now()) {
	case CodeActive:
		// sigue
	case CodeExpired:
		return nil, ErrCodeExpired
	case CodeRevoked:
		return nil, ErrCodeRevoked
	case CodeMaxUsesReached:
		return nil, ErrCodeExhausted
	default:
		return nil, ErrNotFound
	}

	// Fase de lectura: validar el bundle completo y computar la fila
	// final de cada grant ANTES de tocar el contador. El canje es
	// todo-o-nada.
	now := s.now()
	grants := make([]Grant, 0, len(c.AnimalIDs))
	for _, animalID := range c.AnimalIDs {
		a, err := s.animals.GetByID(ctx, animalID)
		if err != nil {
			return nil, ErrUnknownAnimalInBundle
		}
		tier := c.DefaultTier
		if t, ok := c.TierOverrides[animalID]; ok {
			tier = t
		}
		g, _ := s.resolveGrant(ctx, a, GrantInput{
			OwnerTenantID:    c.OwnerTenantID,
			AccessorTenantID: accessor,
			AnimalID:         animalID,
			Tier:             tier,
			Source:           SourceShareCode,
			ExpiresAt:        c.ExpiresAt,
		}, now)
		grants = append(grants, g)
	}

	if _, err := s.repo.ConsumeAndApplyGrants(ctx, c.ID, now, grants); err != nil {
		return nil, err
	}
	return grants, nil
}

func (s *Service) RevokeShareCode(ctx context.Context, codeID, tenantID, userID string) (ShareCode, error) {
	codeID = strings.TrimSpace(codeID)
	tenantID = strings.TrimSpace(tenantID)
	if codeID == "" || tenantID == "" {
		return ShareCode{}, ErrInvalidInput
	}

	c, err := s.repo.GetShareCode(ctx, codeID)
	if err != nil {
		return ShareCode{}, ErrNotFound
	}
	if c.OwnerTenantID != tenantID {
		return ShareCode{}, ErrForbidden
	}

	if c.Status == CodeRevoked {
		return c, nil
	}

	now := s.now()
	c.Status = CodeRevoked
	c.RevokedBy = strings.TrimSpace(userID)
	c.RevokedAt = &now
	c.UpdatedAt = now

	if err := s.repo.UpdateShareCode(ctx, c); err != nil {
		return ShareCode{}, err
	}
	return c, nil
}

func (s *Service) ListShareCodes(ctx context.Context, ownerTenantID string) ([]ShareCode, error) {
	if strings.TrimSpace(ownerTenantID) == "" {
		return nil, ErrInvalidInput
	}
	items, err := s.repo.ListShareCodesByOwner(ctx, ownerTenantID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range items {
		items[i].Status = EffectiveCodeStatus(items[i], now)
	}
	return items, nil
}

// ReconcileExpired materializa el status computado de grants y códigos
// para que los listados masivos queden exactos. Idempotente; pensado
// para un job programado.
func (s *Service) ReconcileExpired(ctx context.Context) (int, error) {
	now := s.now()
	a, err := s.repo.ExpireGrantsBefore(ctx, now)
	if err != nil {
		return a, err
	}
	b, err := s.repo.ExpireShareCodesBefore(ctx, now)
	return a + b, err
}

func (s *Service) applyEffective(items []Grant) []Grant {
	now := s.now()
	for i := range items {
		items[i].Status = EffectiveStatus(items[i], now)
	}
	return items
}

func laterExpiry(a, b *time.Time) *time.Time {
	// nil = sin expiración: gana siempre.
	if a == nil || b == nil {
		return nil
	}
	if b.After(*a) {
		return b
	}
	return a
}

// Alfabeto sin caracteres ambiguos (I, L, O, U) para códigos que se
// dictan por teléfono.
const codeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ0123456789"

func randomShareCode() string {
	b := make([]byte, shareCodeLen)
	_, _ = rand.Read(b)
	out := make([]byte, shareCodeLen)
	for i, v := range b {
		out[i] = codeAlphabet[int(v)%len(codeAlphabet)]
	}
	return string(out)
}
