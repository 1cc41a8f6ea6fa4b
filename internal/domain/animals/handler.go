package animals

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"breeder-exchange/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// GrantReaper evita importar el paquete access (rompe ciclos): al
// borrar un animal, los grants vivos pasan a OWNER_DELETED.
type GrantReaper interface {
	MarkOwnerDeleted(ctx context.Context, animalID, ownerTenantID string) (int, error)
}

func RegisterRoutes(r chi.Router, svc *Service, reaper GrantReaper) {
	r.Route("/animals", func(ar chi.Router) {
		ar.Post("/", createAnimalHandler(svc))
		ar.Get("/", listAnimalsHandler(svc))
		ar.Get("/{animalID}", getAnimalHandler(svc))
		ar.Patch("/{animalID}", updateAnimalHandler(svc))
		ar.Delete("/{animalID}", deleteAnimalHandler(svc, reaper))

		// Código corto fuera de banda para vincular identidad.
		ar.Post("/{animalID}/exchange-code", issueExchangeCodeHandler(svc))
	})
}

type createAnimalRequest struct {
	Name           string `json:"name"`
	Species        string `json:"species"`
	Breed          string `json:"breed"`
	Sex            string `json:"sex"`
	BirthDate      string `json:"birth_date"` // YYYY-MM-DD opcional
	Microchip      string `json:"microchip"`
	RegistryOrg    string `json:"registry_org"`
	RegistryNumber string `json:"registry_number"`
	Notes          string `json:"notes"`
}

type animalResponse struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	Name           string     `json:"name"`
	Species        string     `json:"species"`
	Breed          string     `json:"breed"`
	Sex            string     `json:"sex"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	Microchip      string     `json:"microchip,omitempty"`
	RegistryOrg    string     `json:"registry_org,omitempty"`
	RegistryNumber string     `json:"registry_number,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type exchangeCodeResponse struct {
	Code      string    `json:"code"`
	AnimalID  string    `json:"animal_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func createAnimalHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createAnimalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var birthDate *time.Time
		if strings.TrimSpace(req.BirthDate) != "" {
			t, err := time.Parse("2006-01-02", req.BirthDate)
			if err != nil {
				http.Error(w, "birth_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			birthDate = &t
		}

		a, err := svc.Create(r.Context(), claims.TenantID, CreateInput{
			Name:           req.Name,
			Species:        req.Species,
			Breed:          req.Breed,
			Sex:            req.Sex,
			BirthDate:      birthDate,
			Microchip:      req.Microchip,
			RegistryOrg:    req.RegistryOrg,
			RegistryNumber: req.RegistryNumber,
			Notes:          req.Notes,
		})
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toAnimalResponse(a))
	}
}

func listAnimalsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByTenant(r.Context(), claims.TenantID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]animalResponse, 0, len(items))
		for _, a := range items {
			out = append(out, toAnimalResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getAnimalHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		a, err := svc.GetByID(r.Context(), chi.URLParam(r, "animalID"))
		// Desde afuera del tenant el registro no existe.
		if err != nil || a.TenantID != claims.TenantID {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toAnimalResponse(a))
	}
}

type updateAnimalRequest struct {
	Name           *string `json:"name"`
	Breed          *string `json:"breed"`
	Sex            *string `json:"sex"`
	BirthDate      *string `json:"birth_date"` // YYYY-MM-DD; "" limpia
	Microchip      *string `json:"microchip"`
	RegistryOrg    *string `json:"registry_org"`
	RegistryNumber *string `json:"registry_number"`
	Notes          *string `json:"notes"`
}

func updateAnimalHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateAnimalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			Name:           req.Name,
			Breed:          req.Breed,
			Sex:            req.Sex,
			Microchip:      req.Microchip,
			RegistryOrg:    req.RegistryOrg,
			RegistryNumber: req.RegistryNumber,
			Notes:          req.Notes,
		}
		if req.BirthDate != nil {
			if strings.TrimSpace(*req.BirthDate) == "" {
				in.ClearBirthDate = true
			} else {
				t, err := time.Parse("2006-01-02", *req.BirthDate)
				if err != nil {
					http.Error(w, "birth_date must be YYYY-MM-DD", http.StatusBadRequest)
					return
				}
				in.BirthDate = &t
			}
		}

		a, err := svc.Update(r.Context(), chi.URLParam(r, "animalID"), claims.TenantID, in)
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound, ErrForbidden:
				// Afuera del tenant no se distingue "no existe" de "no es tuyo".
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toAnimalResponse(a))
	}
}

func deleteAnimalHandler(svc *Service, reaper GrantReaper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		animalID := chi.URLParam(r, "animalID")
		if err := svc.Delete(r.Context(), animalID, claims.TenantID); err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound, ErrForbidden:
				// Afuera del tenant no se distingue "no existe" de "no es tuyo".
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		// Los accessors ven OWNER_DELETED, no un grant que desaparece.
		if _, err := reaper.MarkOwnerDeleted(r.Context(), animalID, claims.TenantID); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type issueExchangeCodeRequest struct {
	TTLHours int `json:"ttl_hours"` // 0 = default
}

func issueExchangeCodeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req issueExchangeCodeRequest
		if r.Body != nil {
			// Body opcional.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		ttl := time.Duration(req.TTLHours) * time.Hour

		ec, err := svc.IssueExchangeCode(r.Context(), chi.URLParam(r, "animalID"), claims.TenantID, ttl)
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound, ErrForbidden:
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, exchangeCodeResponse{
			Code:      ec.Code,
			AnimalID:  ec.AnimalID,
			ExpiresAt: ec.ExpiresAt,
		})
	}
}

func toAnimalResponse(a Animal) animalResponse {
	return animalResponse{
		ID:             a.ID,
		TenantID:       a.TenantID,
		Name:           a.Name,
		Species:        a.Species,
		Breed:          a.Breed,
		Sex:            a.Sex,
		BirthDate:      a.BirthDate,
		Microchip:      a.Microchip,
		RegistryOrg:    a.RegistryOrg,
		RegistryNumber: a.RegistryNumber,
		Notes:          a.Notes,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
