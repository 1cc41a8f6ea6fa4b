package linkrequests

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"breeder-exchange/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/link-requests", func(lr chi.Router) {
		lr.Post("/", submitRequestHandler(svc))
		lr.Get("/incoming", listIncomingHandler(svc))
		lr.Get("/outgoing", listOutgoingHandler(svc))
		lr.Get("/{requestID}", getRequestHandler(svc))
		lr.Post("/{requestID}/respond", respondRequestHandler(svc))
	})

	r.Route("/links", func(kr chi.Router) {
		kr.Post("/", recordLinkHandler(svc))
		kr.Post("/{linkID}/revoke", revokeLinkHandler(svc))
	})

	r.Get("/animals/{animalID}/links", listLinksHandler(svc))
}

type targetRefRequest struct {
	Mode           string `json:"mode"`
	AnimalID       string `json:"animal_id,omitempty"`
	GAID           string `json:"gaid,omitempty"`
	ExchangeCode   string `json:"exchange_code,omitempty"`
	RegistryOrg    string `json:"registry_org,omitempty"`
	RegistryNumber string `json:"registry_number,omitempty"`
}

type submitRequestRequest struct {
	AnimalID string           `json:"animal_id"`
	Role     string           `json:"role"`
	Target   targetRefRequest `json:"target"`
	Message  string           `json:"message"`
	TTLHours int              `json:"ttl_hours"` // 0 = default
}

type requestResponse struct {
	ID                string        `json:"id"`
	RequesterTenantID string        `json:"requester_tenant_id"`
	AnimalID          string        `json:"animal_id"`
	Role              ParentRole    `json:"role"`
	TargetMode        TargetMode    `json:"target_mode"`
	Message           string        `json:"message,omitempty"`
	Status            RequestStatus `json:"status"`
	TargetTenantID    string        `json:"target_tenant_id"`
	TargetAnimalID    string        `json:"target_animal_id"`
	ConfirmedAnimalID string        `json:"confirmed_animal_id,omitempty"`
	RespondedBy       string        `json:"responded_by,omitempty"`
	RespondedAt       *time.Time    `json:"responded_at,omitempty"`
	DenyReason        string        `json:"deny_reason,omitempty"`
	ExpiresAt         time.Time     `json:"expires_at"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type crossLinkResponse struct {
	ID             string     `json:"id"`
	ChildAnimalID  string     `json:"child_animal_id"`
	ChildTenantID  string     `json:"child_tenant_id"`
	ParentAnimalID string     `json:"parent_animal_id"`
	ParentTenantID string     `json:"parent_tenant_id"`
	Role           ParentRole `json:"role"`
	Method         LinkMethod `json:"method"`
	RequestID      string     `json:"request_id,omitempty"`
	Active         bool       `json:"active"`
	RevokedBy      string     `json:"revoked_by,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ambiguousResponse struct {
	Error              string   `json:"error"`
	CandidateAnimalIDs []string `json:"candidate_animal_ids"`
}

// submitRequestHandler godoc
// @Summary Proponer una relación de pedigrí cross-tenant
// @Description Propone que el animal propio tiene un padre/madre registrado en otro criadero. El target se direcciona por exactamente uno de: animal_id, gaid, exchange_code o (registry_org, registry_number). El pedido queda PENDING hasta que el criadero destino responda. Autenticación: `X-Debug-Tenant-ID` (dev) o `Authorization: Bearer <token>` (prod).
// @Tags link-requests
// @Accept json
// @Produce json
// @Param X-Debug-Tenant-ID header string false "Solo en modo dev, tenant para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body submitRequestRequest true "Pedido; role SIRE o DAM"
// @Success 201 {object} requestResponse
// @Failure 400 {string} string "invalid json / direccionamiento inválido / role-sex mismatch"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "target not found"
// @Failure 409 {object} ambiguousResponse "target ambiguo o slot ya ocupado"
// @Router /link-requests [post]
func submitRequestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req submitRequestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		out, err := svc.Submit(r.Context(), SubmitInput{
			RequesterTenantID: claims.TenantID,
			RequesterUserID:   claims.UserID,
			AnimalID:          req.AnimalID,
			Role:              ParentRole(strings.ToUpper(strings.TrimSpace(req.Role))),
			Target: TargetRef{
				Mode:           TargetMode(strings.ToUpper(strings.TrimSpace(req.Target.Mode))),
				AnimalID:       req.Target.AnimalID,
				GAID:           req.Target.GAID,
				ExchangeCode:   req.Target.ExchangeCode,
				RegistryOrg:    req.Target.RegistryOrg,
				RegistryNumber: req.Target.RegistryNumber,
			},
			Message: req.Message,
			TTL:     time.Duration(req.TTLHours) * time.Hour,
		})
		if err != nil {
			writeSubmitError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRequestResponse(out))
	}
}

func writeSubmitError(w http.ResponseWriter, err error) {
	var ambiguous *AmbiguousTargetError
	switch {
	case errors.As(err, &ambiguous):
		writeJSON(w, http.StatusConflict, ambiguousResponse{
			Error:              ambiguous.Error(),
			CandidateAnimalIDs: ambiguous.CandidateAnimalIDs,
		})
	case err == ErrInvalidInput, err == ErrSelfLink, err == ErrRoleSexMismatch:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err == ErrTargetNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	case err == ErrDuplicateActiveLink:
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// listIncomingHandler godoc
// @Summary Listar pedidos entrantes
// @Description Pedidos donde este tenant es el destino. Los PENDING vencidos se reportan EXPIRED.
// @Tags link-requests
// @Produce json
// @Success 200 {array} requestResponse
// @Failure 401 {string} string "unauthorized"
// @Router /link-requests/incoming [get]
func listIncomingHandler(svc *Service) http.HandlerFunc {
	return listScopedHandler(svc.ListIncoming)
}

// listOutgoingHandler godoc
// @Summary Listar pedidos salientes
// @Description Pedidos enviados por este tenant.
// @Tags link-requests
// @Produce json
// @Success 200 {array} requestResponse
// @Failure 401 {string} string "unauthorized"
// @Router /link-requests/outgoing [get]
func listOutgoingHandler(svc *Service) http.HandlerFunc {
	return listScopedHandler(svc.ListOutgoing)
}

func listScopedHandler(fetch func(ctx context.Context, tenantID string) ([]Request, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := fetch(r.Context(), claims.TenantID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]requestResponse, 0, len(items))
		for _, req := range items {
			out = append(out, toRequestResponse(req))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getRequestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		req, err := svc.Get(r.Context(), chi.URLParam(r, "requestID"), claims.TenantID)
		if err != nil {
			// Terceros tenants reciben not found, nunca forbidden.
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toRequestResponse(req))
	}
}

type respondRequestRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// respondRequestHandler godoc
// @Summary Responder un pedido de vinculación
// @Description Aprueba o deniega un pedido PENDING dirigido a este tenant. Aprobar crea el link cross-tenant en la misma operación; si el slot (hijo, rol) ya está ocupado, el pedido queda PENDING. Re-aprobar un pedido ya aprobado es idempotente.
// @Tags link-requests
// @Accept json
// @Produce json
// @Param requestID path string true "ID del pedido"
// @Param payload body respondRequestRequest true "approve true/false; reason opcional al denegar"
// @Success 200 {object} requestResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "pedido cerrado o slot ocupado"
// @Router /link-requests/{requestID}/respond [post]
func respondRequestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req respondRequestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		out, err := svc.Respond(r.Context(), chi.URLParam(r, "requestID"), claims.TenantID, claims.UserID, req.Approve, req.Reason)
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound, ErrForbidden:
				http.Error(w, "not found", http.StatusNotFound)
			case ErrRequestClosed, ErrDuplicateActiveLink:
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toRequestResponse(out))
	}
}

type recordLinkRequest struct {
	ChildAnimalID  string `json:"child_animal_id"`
	ParentAnimalID string `json:"parent_animal_id"`
	Role           string `json:"role"`
	Method         string `json:"method"`
}

func recordLinkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req recordLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		l, err := svc.RecordLink(r.Context(), RecordLinkInput{
			TenantID:       claims.TenantID,
			UserID:         claims.UserID,
			ChildAnimalID:  req.ChildAnimalID,
			ParentAnimalID: req.ParentAnimalID,
			Role:           ParentRole(strings.ToUpper(strings.TrimSpace(req.Role))),
			Method:         LinkMethod(strings.ToUpper(strings.TrimSpace(req.Method))),
		})
		if err != nil {
			switch err {
			case ErrInvalidInput, ErrSelfLink, ErrRoleSexMismatch:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound, ErrForbidden, ErrTargetNotFound:
				http.Error(w, "not found", http.StatusNotFound)
			case ErrDuplicateActiveLink:
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toCrossLinkResponse(l))
	}
}

func revokeLinkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		l, err := svc.RevokeLink(r.Context(), chi.URLParam(r, "linkID"), claims.TenantID, claims.UserID)
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

		writeJSON(w, http.StatusOK, toCrossLinkResponse(l))
	}
}

func listLinksHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.TenantID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListLinks(r.Context(), chi.URLParam(r, "animalID"), claims.TenantID)
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

		out := make([]crossLinkResponse, 0, len(items))
		for _, l := range items {
			out = append(out, toCrossLinkResponse(l))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toRequestResponse(r Request) requestResponse {
	return requestResponse{
		ID:                r.ID,
		RequesterTenantID: r.RequesterTenantID,
		AnimalID:          r.AnimalID,
		Role:              r.Role,
		TargetMode:        r.Target.Mode,
		Message:           r.Message,
		Status:            r.Status,
		TargetTenantID:    r.TargetTenantID,
		TargetAnimalID:    r.TargetAnimalID,
		ConfirmedAnimalID: r.ConfirmedAnimalID,
		RespondedBy:       r.RespondedBy,
		RespondedAt:       r.RespondedAt,
		DenyReason:        r.DenyReason,
		ExpiresAt:         r.ExpiresAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func toCrossLinkResponse(l CrossTenantLink) crossLinkResponse {
	return crossLinkResponse{
		ID:             l.ID,
		ChildAnimalID:  l.ChildAnimalID,
		ChildTenantID:  l.ChildTenantID,
		ParentAnimalID: l.ParentAnimalID,
		ParentTenantID: l.ParentTenantID,
		Role:           l.Role,
		Method:         l.Method,
		RequestID:      l.RequestID,
		Active:         l.Active,
		RevokedBy:      l.RevokedBy,
		RevokedAt:      l.RevokedAt,
		CreatedAt:      l.CreatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
