package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrLineageCycle = errors.New("lineage cycle")
)

// IdentifierConflictError: los identificadores entrantes resuelven a
// identidades distintas según el tipo. Nunca se auto-fusiona — fusionar
// dos animales físicos distintos es irrecuperable sin unwind manual.
// Lleva las identidades por tipo para que la UI pueda desambiguar.
type IdentifierConflictError struct {
	IdentityByType map[IdentifierType]string
}

func (e *IdentifierConflictError) Error() string {
	types := make([]string, 0, len(e.IdentityByType))
	for t := range e.IdentityByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return fmt.Sprintf("identifier conflict across types: %s", strings.Join(types, ", "))
}

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

// CandidateIdentifier es un identificador entrante, todavía sin normalizar.
type CandidateIdentifier struct {
	Type  IdentifierType
	Value string

	// SelfReported: el dueño lo declaró directamente (confianza 1.0).
	// Inferido (scrape de registro, OCR de papeles) arranca más bajo.
	SelfReported bool
}

type DeclaredAttributes struct {
	Species   string
	Sex       string
	Name      string
	BirthDate *time.Time
}

type Resolution struct {
	Identity   GlobalIdentity
	Created    bool
	Confidence float64
	MatchedOn  []IdentifierType
	// AutoMatch: la confianza combinada alcanza para vincular sin
	// confirmación humana.
	AutoMatch bool
}

const inferredConfidence = 0.75

// ResolveOrCreate busca una identidad existente por los identificadores
// candidatos o crea una nueva. Todos los hits deben caer en la misma
// identidad; hits en identidades distintas => IdentifierConflictError.
func (s *Service) ResolveOrCreate(ctx context.Context, tenantID string, candidates []CandidateIdentifier, attrs DeclaredAttributes) (Resolution, error) {
	if strings.TrimSpace(tenantID) == "" || len(candidates) == 0 {
		return Resolution{}, ErrInvalidInput
	}

	type hit struct {
		candidate  CandidateIdentifier
		normalized string
		identifier Identifier
		found      bool
	}

	hits := make([]hit, 0, len(candidates))
	byType := map[IdentifierType]string{}

	for _, c := range candidates {
		norm := Normalize(c.Type, c.Value)
		if norm == "" {
			return Resolution{}, ErrInvalidInput
		}

		h := hit{candidate: c, normalized: norm}
		if existing, err := s.repo.GetIdentifierByValue(ctx, c.Type, norm); err == nil {
			h.identifier = existing
			h.found = true
			byType[c.Type] = existing.IdentityID
		}
		hits = append(hits, h)
	}

	// ¿Conflicto? Más de una identidad distinta entre los hits.
	var matchedID string
	for _, id := range byType {
		if matchedID == "" {
			matchedID = id
			continue
		}
		if id != matchedID {
			return Resolution{}, &IdentifierConflictError{IdentityByType: byType}
		}
	}

	now := s.now()

	if matchedID != "" {
		gi, err := s.repo.GetIdentity(ctx, matchedID)
		if err != nil {
			return Resolution{}, err
		}

		matchedOn := make([]IdentifierType, 0, len(hits))
		matched := make([]Identifier, 0, len(hits))
		for _, h := range hits {
			if !h.found {
				continue
			}
			matchedOn = append(matchedOn, h.candidate.Type)
			matched = append(matched, h.identifier)
		}

		// Los candidatos sin hit se agregan como identificadores nuevos
		// de la identidad resuelta (conservando provenance del tenant).
		for _, h := range hits {
			if h.found {
				continue
			}
			if err := s.repo.CreateIdentifier(ctx, newIdentifier(gi.ID, tenantID, h.candidate, h.normalized, now)); err != nil {
				return Resolution{}, err
			}
		}

		conf := CombinedConfidence(matched)
		return Resolution{
			Identity:   gi,
			Confidence: conf,
			MatchedOn:  matchedOn,
			AutoMatch:  conf >= AutoMatchThreshold,
		}, nil
	}

	// Cero matches: identidad nueva.
	gi := GlobalIdentity{
		ID:        uuid.NewString(),
		GAID:      newGAID(),
		Species:   strings.TrimSpace(attrs.Species),
		Sex:       strings.TrimSpace(attrs.Sex),
		Name:      strings.TrimSpace(attrs.Name),
		BirthDate: attrs.BirthDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateIdentity(ctx, gi); err != nil {
		return Resolution{}, err
	}

	created := make([]Identifier, 0, len(hits))
	for _, h := range hits {
		id := newIdentifier(gi.ID, tenantID, h.candidate, h.normalized, now)
		if err := s.repo.CreateIdentifier(ctx, id); err != nil {
			return Resolution{}, err
		}
		created = append(created, id)
	}

	conf := CombinedConfidence(created)
	return Resolution{
		Identity:   gi,
		Created:    true,
		Confidence: conf,
		MatchedOn:  nil,
		AutoMatch:  conf >= AutoMatchThreshold,
	}, nil
}

// AddIdentifier agrega un identificador a una identidad existente.
// Si el valor ya existe apuntando a otra identidad => conflicto.
func (s *Service) AddIdentifier(ctx context.Context, identityID, tenantID string, c CandidateIdentifier) (Identifier, error) {
	if strings.TrimSpace(identityID) == "" || strings.TrimSpace(tenantID) == "" {
		return Identifier{}, ErrInvalidInput
	}
	norm := Normalize(c.Type, c.Value)
	if norm == "" {
		return Identifier{}, ErrInvalidInput
	}

	if existing, err := s.repo.GetIdentifierByValue(ctx, c.Type, norm); err == nil {
		if existing.IdentityID == identityID {
			// Idempotente: ya está.
			return existing, nil
		}
		return Identifier{}, &IdentifierConflictError{
			IdentityByType: map[IdentifierType]string{c.Type: existing.IdentityID},
		}
	}

	if _, err := s.repo.GetIdentity(ctx, identityID); err != nil {
		return Identifier{}, ErrNotFound
	}

	id := newIdentifier(identityID, tenantID, c, norm, s.now())
	if err := s.repo.CreateIdentifier(ctx, id); err != nil {
		return Identifier{}, err
	}
	return id, nil
}

// VerifyIdentifier marca un identificador como verificado por un humano
// y sube su confianza a 1.0.
func (s *Service) VerifyIdentifier(ctx context.Context, identifierID, userID string) (Identifier, error) {
	if strings.TrimSpace(identifierID) == "" || strings.TrimSpace(userID) == "" {
		return Identifier{}, ErrInvalidInput
	}

	id, err := s.repo.GetIdentifier(ctx, identifierID)
	if err != nil {
		return Identifier{}, ErrNotFound
	}

	now := s.now()
	id.VerifiedBy = userID
	id.VerifiedAt = &now
	id.Confidence = 1.0

	if err := s.repo.UpdateIdentifier(ctx, id); err != nil {
		return Identifier{}, err
	}
	return id, nil
}

// SetParent fija dam o sire de una identidad. Rechaza cualquier edge
// que introduzca un ciclo en el grafo de pedigrí (walk de ancestros
// al momento de escribir).
func (s *Service) SetParent(ctx context.Context, identityID string, role ParentRole, parentID string) (GlobalIdentity, error) {
	if strings.TrimSpace(identityID) == "" || strings.TrimSpace(parentID) == "" {
		return GlobalIdentity{}, ErrInvalidInput
	}
	if role != RoleSire && role != RoleDam {
		return GlobalIdentity{}, ErrInvalidInput
	}
	if identityID == parentID {
		return GlobalIdentity{}, ErrLineageCycle
	}

	gi, err := s.repo.GetIdentity(ctx, identityID)
	if err != nil {
		return GlobalIdentity{}, ErrNotFound
	}
	if _, err := s.repo.GetIdentity(ctx, parentID); err != nil {
		return GlobalIdentity{}, ErrNotFound
	}

	cyclic, err := s.isAncestor(ctx, identityID, parentID)
	if err != nil {
		return GlobalIdentity{}, err
	}
	if cyclic {
		return GlobalIdentity{}, ErrLineageCycle
	}

	switch role {
	case RoleDam:
		gi.DamID = parentID
	case RoleSire:
		gi.SireID = parentID
	}
	gi.UpdatedAt = s.now()

	if err := s.repo.UpdateIdentity(ctx, gi); err != nil {
		return GlobalIdentity{}, err
	}
	return gi, nil
}

// isAncestor: ¿target aparece entre los ancestros de from (incluido from)?
func (s *Service) isAncestor(ctx context.Context, target, from string) (bool, error) {
	visited := map[string]bool{}
	stack := []string{from}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur == target {
			return true, nil
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true

		gi, err := s.repo.GetIdentity(ctx, cur)
		if err != nil {
			// Un padre colgante no forma ciclo.
			continue
		}
		if gi.DamID != "" {
			stack = append(stack, gi.DamID)
		}
		if gi.SireID != "" {
			stack = append(stack, gi.SireID)
		}
	}
	return false, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (GlobalIdentity, error) {
	if strings.TrimSpace(id) == "" {
		return GlobalIdentity{}, ErrInvalidInput
	}
	gi, err := s.repo.GetIdentity(ctx, id)
	if err != nil {
		return GlobalIdentity{}, ErrNotFound
	}
	return gi, nil
}

func (s *Service) GetByGAID(ctx context.Context, gaid string) (GlobalIdentity, error) {
	gaid = strings.ToUpper(strings.TrimSpace(gaid))
	if gaid == "" {
		return GlobalIdentity{}, ErrInvalidInput
	}
	gi, err := s.repo.GetIdentityByGAID(ctx, gaid)
	if err != nil {
		return GlobalIdentity{}, ErrNotFound
	}
	return gi, nil
}

func (s *Service) ListIdentifiers(ctx context.Context, identityID string) ([]Identifier, error) {
	if strings.TrimSpace(identityID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListIdentifiersByIdentity(ctx, identityID)
}

func newIdentifier(identityID, tenantID string, c CandidateIdentifier, normalized string, now time.Time) Identifier {
	conf := inferredConfidence
	if c.SelfReported {
		conf = 1.0
	}
	return Identifier{
		ID:              uuid.NewString(),
		IdentityID:      identityID,
		Type:            c.Type,
		RawValue:        strings.TrimSpace(c.Value),
		NormalizedValue: normalized,
		Confidence:      conf,
		SourceTenantID:  tenantID,
		CreatedAt:       now,
	}
}

// Alfabeto sin caracteres ambiguos (I, L, O, U) para códigos públicos.
const gaidAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ0123456789"

func newGAID() string {
	b := make([]byte, 10)
	_, _ = rand.Read(b)
	out := make([]byte, 0, 13)
	out = append(out, 'G', 'A', '-')
	for _, v := range b {
		out = append(out, gaidAlphabet[int(v)%len(gaidAlphabet)])
	}
	return string(out)
}
