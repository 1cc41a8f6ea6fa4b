package identitylinks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"breeder-exchange/internal/domain/animals"
	"breeder-exchange/internal/domain/identity"
	"breeder-exchange/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// AnimalDirectory / IdentityDirectory: puertos chicos sobre los otros
// módulos para los chequeos de ownership, la traducción GAID -> id y
// el flujo resolve-and-link (matcher sobre los identificadores del
// animal).
type AnimalDirectory interface {
	TenantOf(ctx context.Context, animalID string) (string, error)
	GetByID(ctx context.Context, animalID string) (animals.Animal, error)
}

type IdentityDirectory interface {
	GetByGAID(ctx context.Context, gaid string) (identity.GlobalIdentity, error)
	ResolveOrCreate(ctx context.Context, tenantID string, candidates []identity.CandidateIdentifier, attrs identity.DeclaredAttributes) (identity.Resolution, error)
}

func RegisterRoutes(r chi.Router, svc *Service, an AnimalDirectory, ids IdentityDirectory) {
	r.Route("/animals/{animalID}/identity-link", func(lr chi.Router) {
		lr.Put("/", putLinkHandler(svc, an, ids))
		lr.Get("/", getLinkHandler(svc, an))
		lr.Post("/confirm", confirmLinkHandler(svc, an))
		lr.Post("/resolve", resolveLinkHandler(svc, an, ids))
	})
}

type putLinkRequest struct {
	GAID string `json:"gaid"`
}

type linkResponse struct {
	ID          string     `json:"id"`
	AnimalID    string     `json:"animal_id"`
	GAID        string     `json:"gaid"`
	Confidence  float64    `json:"confidence"`
	MatchedOn   []string   `json:"matched_on,omitempty"`
	AutoMatched bool       `json:"auto_matched"`
	ConfirmedBy string     `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func putLinkHandler(svc *Service, an AnimalDirectory, ids IdentityDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		animalID := chi.URLParam(r, "animalID")
		if !ownsAnimal(r.Context(), an, animalID, claims.TenantID) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var req putLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		gi, err := ids.GetByGAID(r.Context(), req.GAID)
		if err != nil {
			http.Error(w, "identity not found", http.StatusNotFound)
			return
		}

		// Link explícito del dueño: confianza plena, sin matcher.
		l, err := svc.Link(r.Context(), LinkInput{
			AnimalID:    animalID,
			IdentityID:  gi.ID,
			Confidence:  1.0,
			AutoMatched: false,
		})
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrAlreadyLinked:
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toLinkResponse(l, gi.GAID))
	}
}

func getLinkHandler(svc *Service, an AnimalDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		animalID := chi.URLParam(r, "animalID")
		if !ownsAnimal(r.Context(), an, animalID, claims.TenantID) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		l, err := svc.GetByAnimal(r.Context(), animalID)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		// El GAID lo completa el caller si lo necesita; acá se devuelve
		// el id interno de la identidad como referencia opaca.
		writeJSON(w, http.StatusOK, toLinkResponse(l, ""))
	}
}

func confirmLinkHandler(svc *Service, an AnimalDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		animalID := chi.URLParam(r, "animalID")
		if !ownsAnimal(r.Context(), an, animalID, claims.TenantID) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		l, err := svc.GetByAnimal(r.Context(), animalID)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		confirmed, err := svc.Confirm(r.Context(), l.ID, claims.UserID)
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound:
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toLinkResponse(confirmed, ""))
	}
}

// resolveLinkHandler pasa los identificadores del animal por el
// matcher global y vincula con la resolución resultante: confianza y
// matched_on reales, auto_matched según el umbral del matcher.
func resolveLinkHandler(svc *Service, an AnimalDirectory, ids IdentityDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		animalID := chi.URLParam(r, "animalID")
		a, err := an.GetByID(r.Context(), animalID)
		if err != nil || a.TenantID != claims.TenantID {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		candidates := candidatesFor(a)
		if len(candidates) == 0 {
			http.Error(w, "animal has no identifiers to resolve", http.StatusBadRequest)
			return
		}

		res, err := ids.ResolveOrCreate(r.Context(), claims.TenantID, candidates, identity.DeclaredAttributes{
			Species:   a.Species,
			Sex:       a.Sex,
			Name:      a.Name,
			BirthDate: a.BirthDate,
		})
		if err != nil {
			var conflict *identity.IdentifierConflictError
			switch {
			case errors.As(err, &conflict):
				http.Error(w, conflict.Error(), http.StatusConflict)
			case errors.Is(err, identity.ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		matchedOn := make([]string, 0, len(res.MatchedOn))
		for _, mt := range res.MatchedOn {
			matchedOn = append(matchedOn, string(mt))
		}

		l, err := svc.Link(r.Context(), LinkInput{
			AnimalID:    animalID,
			IdentityID:  res.Identity.ID,
			Confidence:  res.Confidence,
			MatchedOn:   matchedOn,
			AutoMatched: res.AutoMatch,
		})
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrAlreadyLinked:
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toLinkResponse(l, res.Identity.GAID))
	}
}

// candidatesFor arma los identificadores declarados del animal;
// todos auto-reportados por el dueño.
func candidatesFor(a animals.Animal) []identity.CandidateIdentifier {
	out := make([]identity.CandidateIdentifier, 0, 2)
	if strings.TrimSpace(a.Microchip) != "" {
		out = append(out, identity.CandidateIdentifier{
			Type:         identity.TypeMicrochip,
			Value:        a.Microchip,
			SelfReported: true,
		})
	}
	if strings.TrimSpace(a.RegistryOrg) != "" && strings.TrimSpace(a.RegistryNumber) != "" {
		out = append(out, identity.CandidateIdentifier{
			Type:         identity.TypeRegistry,
			Value:        a.RegistryOrg + " " + a.RegistryNumber,
			SelfReported: true,
		})
	}
	return out
}

func ownsAnimal(ctx context.Context, an AnimalDirectory, animalID, tenantID string) bool {
	owner, err := an.TenantOf(ctx, animalID)
	return err == nil && owner == tenantID
}

func toLinkResponse(l Link, gaid string) linkResponse {
	if gaid == "" {
		gaid = l.IdentityID
	}
	return linkResponse{
		ID:          l.ID,
		AnimalID:    l.AnimalID,
		GAID:        gaid,
		Confidence:  l.Confidence,
		MatchedOn:   l.MatchedOn,
		AutoMatched: l.AutoMatched,
		ConfirmedBy: l.ConfirmedBy,
		ConfirmedAt: l.ConfirmedAt,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
