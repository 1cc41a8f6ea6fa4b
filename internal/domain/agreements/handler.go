package agreements

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"breeder-exchange/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/agreements", func(ar chi.Router) {
		ar.Post("/", requestAgreementHandler(svc))
		ar.Get("/{agreementID}", getAgreementHandler(svc))
		ar.Post("/{agreementID}/respond", respondAgreementHandler(svc))
	})

	r.Get("/plans/{planID}/agreements", listByPlanHandler(svc))
}

type requestAgreementRequest struct {
	PlanID   string `json:"plan_id"`
	AccessID string `json:"access_id"`
	Role     string `json:"role"`
	Message  string `json:"message"`
}

type agreementResponse struct {
	ID          string     `json:"id"`
	PlanID      string     `json:"plan_id"`
	AccessID    string     `json:"access_id"`
	Role        Role       `json:"role"`
	Message     string     `json:"message,omitempty"`
	Status      Status     `json:"status"`
	RequestedBy string     `json:"requested_by,omitempty"`
	RespondedBy string     `json:"responded_by,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func requestAgreementHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req requestAgreementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		a, err := svc.Request(r.Context(), RequestInput{
			TenantID: claims.TenantID,
			UserID:   claims.UserID,
			PlanID:   req.PlanID,
			AccessID: req.AccessID,
			Role:     Role(strings.ToUpper(strings.TrimSpace(req.Role))),
			Message:  req.Message,
		})
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound, ErrForbidden:
				http.Error(w, "not found", http.StatusNotFound)
			case ErrAccessNotEstablished:
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toAgreementResponse(a))
	}
}

func getAgreementHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		a, err := svc.Get(r.Context(), chi.URLParam(r, "agreementID"), claims.TenantID)
		if err != nil {
			// Terceros tenants reciben not found, nunca forbidden.
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toAgreementResponse(a))
	}
}

type respondAgreementRequest struct {
	Approve bool `json:"approve"`
}

func respondAgreementHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req respondAgreementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		a, err := svc.Respond(r.Context(), chi.URLParam(r, "agreementID"), claims.TenantID, claims.UserID, req.Approve)
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound, ErrForbidden:
				http.Error(w, "not found", http.StatusNotFound)
			case ErrAgreementClosed:
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toAgreementResponse(a))
	}
}

func listByPlanHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByPlan(r.Context(), chi.URLParam(r, "planID"), claims.TenantID)
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

		out := make([]agreementResponse, 0, len(items))
		for _, a := range items {
			out = append(out, toAgreementResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toAgreementResponse(a Agreement) agreementResponse {
	return agreementResponse{
		ID:          a.ID,
		PlanID:      a.PlanID,
		AccessID:    a.AccessID,
		Role:        a.Role,
		Message:     a.Message,
		Status:      a.Status,
		RequestedBy: a.RequestedBy,
		RespondedBy: a.RespondedBy,
		RespondedAt: a.RespondedAt,
		ExpiresAt:   a.ExpiresAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
