package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"breeder-exchange/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/identities", func(ir chi.Router) {
		ir.Post("/resolve", resolveIdentityHandler(svc))

		// El GAID es la referencia pública; los IDs internos no se exponen.
		ir.Route("/{gaid}", func(gr chi.Router) {
			gr.Get("/", getIdentityHandler(svc))
			gr.Get("/identifiers", listIdentifiersHandler(svc))
			gr.Post("/identifiers", addIdentifierHandler(svc))
			gr.Put("/parents/{role}", setParentHandler(svc))
		})
	})

	r.Post("/identifiers/{identifierID}/verify", verifyIdentifierHandler(svc))
}

type candidateIdentifierRequest struct {
	Type         string `json:"type"`
	Value        string `json:"value"`
	SelfReported bool   `json:"self_reported"`
}

type resolveIdentityRequest struct {
	Identifiers []candidateIdentifierRequest `json:"identifiers"`
	Species     string                       `json:"species"`
	Sex         string                       `json:"sex"`
	Name        string                       `json:"name"`
	BirthDate   string                       `json:"birth_date"` // YYYY-MM-DD opcional
}

type identityResponse struct {
	GAID      string     `json:"gaid"`
	Species   string     `json:"species,omitempty"`
	Sex       string     `json:"sex,omitempty"`
	Name      string     `json:"name,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	DamGAID   string     `json:"dam_gaid,omitempty"`
	SireGAID  string     `json:"sire_gaid,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type resolutionResponse struct {
	Identity   identityResponse `json:"identity"`
	Created    bool             `json:"created"`
	Confidence float64          `json:"confidence"`
	MatchedOn  []IdentifierType `json:"matched_on,omitempty"`
	AutoMatch  bool             `json:"auto_match"`
}

type identifierResponse struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	RawValue        string     `json:"raw_value"`
	NormalizedValue string     `json:"normalized_value"`
	Confidence      float64    `json:"confidence"`
	VerifiedBy      string     `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type conflictResponse struct {
	Error          string                    `json:"error"`
	IdentityByType map[IdentifierType]string `json:"identity_by_type"`
}

func resolveIdentityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req resolveIdentityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		candidates := make([]CandidateIdentifier, 0, len(req.Identifiers))
		for _, c := range req.Identifiers {
			candidates = append(candidates, CandidateIdentifier{
				Type:         IdentifierType(strings.ToUpper(strings.TrimSpace(c.Type))),
				Value:        c.Value,
				SelfReported: c.SelfReported,
			})
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

		res, err := svc.ResolveOrCreate(r.Context(), claims.TenantID, candidates, DeclaredAttributes{
			Species:   req.Species,
			Sex:       req.Sex,
			Name:      req.Name,
			BirthDate: birthDate,
		})
		if err != nil {
			var conflict *IdentifierConflictError
			switch {
			case errors.As(err, &conflict):
				writeJSON(w, http.StatusConflict, conflictResponse{
					Error:          conflict.Error(),
					IdentityByType: conflict.IdentityByType,
				})
			case err == ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, resolutionResponse{
			Identity:   toIdentityResponse(res.Identity),
			Created:    res.Created,
			Confidence: res.Confidence,
			MatchedOn:  res.MatchedOn,
			AutoMatch:  res.AutoMatch,
		})
	}
}

func getIdentityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		gi, err := svc.GetByGAID(r.Context(), chi.URLParam(r, "gaid"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		resp := toIdentityResponse(gi)
		fillParentGAIDs(r, svc, gi, &resp)
		writeJSON(w, http.StatusOK, resp)
	}
}

func listIdentifiersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		gi, err := svc.GetByGAID(r.Context(), chi.URLParam(r, "gaid"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		items, err := svc.ListIdentifiers(r.Context(), gi.ID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]identifierResponse, 0, len(items))
		for _, id := range items {
			out = append(out, toIdentifierResponse(id))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func addIdentifierHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		gi, err := svc.GetByGAID(r.Context(), chi.URLParam(r, "gaid"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var req candidateIdentifierRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		id, err := svc.AddIdentifier(r.Context(), gi.ID, claims.TenantID, CandidateIdentifier{
			Type:         IdentifierType(strings.ToUpper(strings.TrimSpace(req.Type))),
			Value:        req.Value,
			SelfReported: req.SelfReported,
		})
		if err != nil {
			var conflict *IdentifierConflictError
			switch {
			case errors.As(err, &conflict):
				writeJSON(w, http.StatusConflict, conflictResponse{
					Error:          conflict.Error(),
					IdentityByType: conflict.IdentityByType,
				})
			case err == ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case err == ErrNotFound:
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toIdentifierResponse(id))
	}
}

func verifyIdentifierHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := svc.VerifyIdentifier(r.Context(), chi.URLParam(r, "identifierID"), claims.UserID)
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

		writeJSON(w, http.StatusOK, toIdentifierResponse(id))
	}
}

type setParentRequest struct {
	ParentGAID string `json:"parent_gaid"`
}

func setParentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		role := ParentRole(strings.ToUpper(chi.URLParam(r, "role")))
		if role != RoleSire && role != RoleDam {
			http.Error(w, "role must be SIRE or DAM", http.StatusBadRequest)
			return
		}

		gi, err := svc.GetByGAID(r.Context(), chi.URLParam(r, "gaid"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var req setParentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		parent, err := svc.GetByGAID(r.Context(), req.ParentGAID)
		if err != nil {
			http.Error(w, "parent not found", http.StatusNotFound)
			return
		}

		updated, err := svc.SetParent(r.Context(), gi.ID, role, parent.ID)
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound:
				http.Error(w, "not found", http.StatusNotFound)
			case ErrLineageCycle:
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		resp := toIdentityResponse(updated)
		fillParentGAIDs(r, svc, updated, &resp)
		writeJSON(w, http.StatusOK, resp)
	}
}

func toIdentityResponse(gi GlobalIdentity) identityResponse {
	return identityResponse{
		GAID:      gi.GAID,
		Species:   gi.Species,
		Sex:       gi.Sex,
		Name:      gi.Name,
		BirthDate: gi.BirthDate,
		CreatedAt: gi.CreatedAt,
	}
}

// fillParentGAIDs traduce las referencias internas dam/sire a GAIDs.
// Un parent que no resuelve se omite, no rompe la respuesta.
func fillParentGAIDs(r *http.Request, svc *Service, gi GlobalIdentity, resp *identityResponse) {
	if gi.DamID != "" {
		if dam, err := svc.GetByID(r.Context(), gi.DamID); err == nil {
			resp.DamGAID = dam.GAID
		}
	}
	if gi.SireID != "" {
		if sire, err := svc.GetByID(r.Context(), gi.SireID); err == nil {
			resp.SireGAID = sire.GAID
		}
	}
}

func toIdentifierResponse(id Identifier) identifierResponse {
	return identifierResponse{
		ID:              id.ID,
		Type:            string(id.Type),
		RawValue:        id.RawValue,
		NormalizedValue: id.NormalizedValue,
		Confidence:      id.Confidence,
		VerifiedBy:      id.VerifiedBy,
		VerifiedAt:      id.VerifiedAt,
		CreatedAt:       id.CreatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
