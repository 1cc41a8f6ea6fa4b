package animals

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrExchangeCodeExpired = errors.New("exchange code expired")
)

const (
	// Vigencia por defecto de un exchange code (corta a propósito).
	DefaultExchangeCodeTTL = 72 * time.Hour

	exchangeCodeLen = 8
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
	Name           string
	Species        string
	Breed          string
	Sex            string
	BirthDate      *time.Time
	Microchip      string
	RegistryOrg    string
	RegistryNumber string
	Notes          string
}

func (s *Service) Create(ctx context.Context, tenantID string, in CreateInput) (Animal, error) {
	if strings.TrimSpace(tenantID) == "" {
		return Animal{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Species) == "" {
		return Animal{}, ErrInvalidInput
	}

	sex := strings.TrimSpace(in.Sex)
	if sex == "" {
		sex = string(SexUnknown)
	}

	now := s.now()
	a := Animal{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		Name:           strings.TrimSpace(in.Name),
		Species:        strings.TrimSpace(in.Species),
		Breed:          strings.TrimSpace(in.Breed),
		Sex:            sex,
		BirthDate:      in.BirthDate,
		Microchip:      strings.TrimSpace(in.Microchip),
		RegistryOrg:    strings.ToUpper(strings.TrimSpace(in.RegistryOrg)),
		RegistryNumber: strings.TrimSpace(in.RegistryNumber),
		Notes:          strings.TrimSpace(in.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return Animal{}, err
	}
	return a, nil
}

// UpdateInput: campos puntero = "vino en el PATCH"; nil = no tocar.
type UpdateInput struct {
	Name           *string
	Breed          *string
	Sex            *string
	BirthDate      *time.Time
	ClearBirthDate bool
	Microchip      *string
	RegistryOrg    *string
	RegistryNumber *string
	Notes          *string
}

// Update edita el registro privado; solo el tenant dueño.
func (s *Service) Update(ctx context.Context, animalID, tenantID string, in UpdateInput) (Animal, error) {
	a, err := s.GetByID(ctx, animalID)
	if err != nil {
		return Animal{}, err
	}
	if a.TenantID != tenantID {
		return Animal{}, ErrForbidden
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Animal{}, ErrInvalidInput
		}
		a.Name = name
	}
	if in.Breed != nil {
		a.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.Sex != nil {
		sex := strings.TrimSpace(*in.Sex)
		if sex == "" {
			sex = string(SexUnknown)
		}
		a.Sex = sex
	}
	if in.ClearBirthDate {
		a.BirthDate = nil
	} else if in.BirthDate != nil {
		a.BirthDate = in.BirthDate
	}
	if in.Microchip != nil {
		a.Microchip = strings.TrimSpace(*in.Microchip)
	}
	if in.RegistryOrg != nil {
		a.RegistryOrg = strings.ToUpper(strings.TrimSpace(*in.RegistryOrg))
	}
	if in.RegistryNumber != nil {
		a.RegistryNumber = strings.TrimSpace(*in.RegistryNumber)
	}
	if in.Notes != nil {
		a.Notes = strings.TrimSpace(*in.Notes)
	}

	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		return Animal{}, err
	}
	return a, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Animal, error) {
	if strings.TrimSpace(id) == "" {
		return Animal{}, ErrInvalidInput
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Animal{}, ErrNotFound
	}
	return a, nil
}

func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]Animal, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByTenant(ctx, tenantID)
}

func (s *Service) FindByRegistry(ctx context.Context, org, number string) ([]Animal, error) {
	org = strings.ToUpper(strings.TrimSpace(org))
	number = strings.TrimSpace(number)
	if org == "" || number == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByRegistry(ctx, org, number)
}

func (s *Service) FindByMicrochip(ctx context.Context, microchip string) ([]Animal, error) {
	microchip = strings.TrimSpace(microchip)
	if microchip == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByMicrochip(ctx, microchip)
}

// Delete borra el registro privado del tenant. Los grants emitidos
// sobre el animal los marca el caller vía access.MarkOwnerDeleted.
func (s *Service) Delete(ctx context.Context, animalID, tenantID string) error {
	a, err := s.GetByID(ctx, animalID)
	if err != nil {
		return err
	}
	if a.TenantID != tenantID {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, a.ID)
}

// TenantOf expone el tenant dueño de un animal.
// Se usa para evitar ciclos de imports entre módulos.
func (s *Service) TenantOf(ctx context.Context, animalID string) (string, error) {
	a, err := s.GetByID(ctx, animalID)
	if err != nil {
		return "", err
	}
	return a.TenantID, nil
}

// IssueExchangeCode emite un código corto nuevo para el animal.
// Emitir de nuevo reemplaza el código anterior del mismo animal.
func (s *Service) IssueExchangeCode(ctx context.Context, animalID, tenantID string, ttl time.Duration) (ExchangeCode, error) {
	a, err := s.GetByID(ctx, animalID)
	if err != nil {
		return ExchangeCode{}, err
	}
	if a.TenantID != tenantID {
		return ExchangeCode{}, ErrForbidden
	}
	if ttl <= 0 {
		ttl = DefaultExchangeCodeTTL
	}

	now := s.now()
	ec := ExchangeCode{
		Code:      randomCode(exchangeCodeLen),
		AnimalID:  a.ID,
		TenantID:  a.TenantID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := s.repo.SaveExchangeCode(ctx, ec); err != nil {
		return ExchangeCode{}, err
	}
	return ec, nil
}

// ResolveExchangeCode devuelve el animal detrás de un código vigente.
// La expiración se evalúa al leer (lazy), no hay sweep.
func (s *Service) ResolveExchangeCode(ctx context.Context, code string) (Animal, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Animal{}, ErrInvalidInput
	}

	ec, err := s.repo.GetExchangeCode(ctx, code)
	if err != nil {
		return Animal{}, ErrNotFound
	}
	if !s.now().Before(ec.ExpiresAt) {
		return Animal{}, ErrExchangeCodeExpired
	}

	return s.GetByID(ctx, ec.AnimalID)
}

// Alfabeto sin caracteres ambiguos (I, L, O, U) para códigos impresos.
const codeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ0123456789"

func randomCode(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	out := make([]byte, n)
	for i, v := range b {
		out[i] = codeAlphabet[int(v)%len(codeAlphabet)]
	}
	return string(out)
}
