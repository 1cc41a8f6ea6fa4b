package access

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"breeder-exchange/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/access/grants", func(gr chi.Router) {
		gr.Post("/", grantAccessHandler(svc))
		gr.Get("/{grantID}", getGrantHandler(svc))
		gr.Post("/{grantID}/revoke", revokeGrantHandler(svc))
	})

	// Grants sobre un animal propio.
	r.Get("/animals/{animalID}/access", listGrantsByAnimalHandler(svc))

	// Lo que otros criaderos me compartieron.
	r.Get("/me/access", listMyAccessHandler(svc))

	r.Route("/share-codes", func(sr chi.Router) {
		sr.Post("/", createShareCodeHandler(svc))
		sr.Get("/", listShareCodesHandler(svc))
		sr.Post("/redeem", redeemShareCodeHandler(svc))
		sr.Post("/{codeID}/revoke", revokeShareCodeHandler(svc))
	})
}

type grantAccessRequest struct {
	AnimalID         string `json:"animal_id"`
	AccessorTenantID string `json:"accessor_tenant_id"`
	Tier             string `json:"tier"`
	Source           string `json:"source"`
	ExpiresAt        string `json:"expires_at"` // RFC3339 opcional
}

type grantResponse struct {
	ID               string     `json:"id"`
	AnimalID         string     `json:"animal_id"`
	OwnerTenantID    string     `json:"owner_tenant_id"`
	AccessorTenantID string     `json:"accessor_tenant_id"`
	Tier             Tier       `json:"tier"`
	Source           Source     `json:"source"`
	Status           Status     `json:"status"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	AnimalName       string     `json:"animal_name,omitempty"`
	AnimalSpecies    string     `json:"animal_species,omitempty"`
	AnimalSex        string     `json:"animal_sex,omitempty"`
	RevokedBy        string     `json:"revoked_by,omitempty"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type shareCodeResponse struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	DefaultTier   Tier            `json:"default_tier"`
	AnimalIDs     []string        `json:"animal_ids"`
	TierOverrides map[string]Tier `json:"tier_overrides,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	MaxUses       int             `json:"max_uses"`
	UsesCount     int             `json:"uses_count"`
	Status        ShareCodeStatus `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

func grantAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req grantAccessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var expiresAt *time.Time
		if strings.TrimSpace(req.ExpiresAt) != "" {
			t, err := time.Parse(time.RFC3339, req.ExpiresAt)
			if err != nil {
				http.Error(w, "expires_at must be RFC3339", http.StatusBadRequest)
				return
			}
			expiresAt = &t
		}

		g, err := svc.GrantAccess(r.Context(), GrantInput{
			OwnerTenantID:    claims.TenantID,
			AccessorTenantID: req.AccessorTenantID,
			AnimalID:         req.AnimalID,
			Tier:             Tier(strings.ToUpper(strings.TrimSpace(req.Tier))),
			Source:           Source(strings.ToUpper(strings.TrimSpace(req.Source))),
			ExpiresAt:        expiresAt,
		})
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

		writeJSON(w, http.StatusCreated, toGrantResponse(g))
	}
}

func getGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		g, err := svc.GetGrant(r.Context(), chi.URLParam(r, "grantID"), claims.TenantID)
		if err != nil {
			// Terceros tenants reciben not found, nunca forbidden.
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

func revokeGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		g, err := svc.RevokeAccess(r.Context(), chi.URLParam(r, "grantID"), claims.TenantID, claims.UserID)
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

		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

func listGrantsByAnimalHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByAnimal(r.Context(), chi.URLParam(r, "animalID"), claims.TenantID)
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

		out := make([]grantResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toGrantResponse(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listMyAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByAccessor(r.Context(), claims.TenantID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		// status=ACTIVE,EXPIRED (CSV opcional)
		allowed := parseStatusFilter(r.URL.Query().Get("status"))
		if len(allowed) > 0 {
			filtered := make([]Grant, 0, len(items))
			for _, g := range items {
				if _, ok := allowed[g.Status]; ok {
					filtered = append(filtered, g)
				}
			}
			items = filtered
		}

		out := make([]grantResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toGrantResponse(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type createShareCodeRequest struct {
	DefaultTier   string            `json:"default_tier"`
	AnimalIDs     []string          `json:"animal_ids"`
	TierOverrides map[string]string `json:"tier_overrides"`
	ExpiresAt     string            `json:"expires_at"` // RFC3339 opcional
	MaxUses       int               `json:"max_uses"`
}

func createShareCodeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createShareCodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var expiresAt *time.Time
		if strings.TrimSpace(req.ExpiresAt) != "" {
			t, err := time.Parse(time.RFC3339, req.ExpiresAt)
			if err != nil {
				http.Error(w, "expires_at must be RFC3339", http.StatusBadRequest)
				return
			}
			expiresAt = &t
		}

		var overrides map[string]Tier
		if len(req.TierOverrides) > 0 {
			overrides = make(map[string]Tier, len(req.TierOverrides))
			for animalID, tier := range req.TierOverrides {
				overrides[animalID] = Tier(strings.ToUpper(strings.TrimSpace(tier)))
			}
		}

		c, err := svc.CreateShareCode(r.Context(), CreateShareCodeInput{
			OwnerTenantID: claims.TenantID,
			DefaultTier:   Tier(strings.ToUpper(strings.TrimSpace(req.DefaultTier))),
			AnimalIDs:     req.AnimalIDs,
			TierOverrides: overrides,
			ExpiresAt:     expiresAt,
			MaxUses:       req.MaxUses,
		})
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

		writeJSON(w, http.StatusCreated, toShareCodeResponse(c))
	}
}

func listShareCodesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListShareCodes(r.Context(), claims.TenantID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]shareCodeResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toShareCodeResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type redeemShareCodeRequest struct {
	Code string `json:"code"`
}

func redeemShareCodeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req redeemShareCodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		grants, err := svc.RedeemShareCode(r.Context(), req.Code, claims.TenantID)
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound:
				http.Error(w, "not found", http.StatusNotFound)
			case ErrCodeExpired, ErrCodeRevoked, ErrCodeExhausted, ErrUnknownAnimalInBundle:
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		out := make([]grantResponse, 0, len(grants))
		for _, g := range grants {
			out = append(out, toGrantResponse(g))
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func revokeShareCodeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		c, err := svc.RevokeShareCode(r.Context(), chi.URLParam(r, "codeID"), claims.TenantID, claims.UserID)
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

		writeJSON(w, http.StatusOK, toShareCodeResponse(c))
	}
}

func toGrantResponse(g Grant) grantResponse {
	return grantResponse{
		ID:               g.ID,
		AnimalID:         g.AnimalID,
		OwnerTenantID:    g.OwnerTenantID,
		AccessorTenantID: g.AccessorTenantID,
		Tier:             g.Tier,
		Source:           g.Source,
		Status:           g.Status,
		ExpiresAt:        g.ExpiresAt,
		AnimalName:       g.AnimalName,
		AnimalSpecies:    g.AnimalSpecies,
		AnimalSex:        g.AnimalSex,
		RevokedBy:        g.RevokedBy,
		RevokedAt:        g.RevokedAt,
		CreatedAt:        g.CreatedAt,
		UpdatedAt:        g.UpdatedAt,
	}
}

func toShareCodeResponse(c ShareCode) shareCodeResponse {
	return shareCodeResponse{
		ID:            c.ID,
		Code:          c.Code,
		DefaultTier:   c.DefaultTier,
		AnimalIDs:     c.AnimalIDs,
		TierOverrides: c.TierOverrides,
		ExpiresAt:     c.ExpiresAt,
		MaxUses:       c.MaxUses,
		UsesCount:     c.UsesCount,
		Status:        c.Status,
		CreatedAt:     c.CreatedAt,
	}
}

func parseStatusFilter(raw string) map[Status]struct{} {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[Status]struct{}{}
	for _, p := range strings.Split(raw, ",") {
		s := Status(strings.ToUpper(strings.TrimSpace(p)))
		if s == "" {
			continue
		}
		out[s] = struct{}{}
	}
	return out
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
