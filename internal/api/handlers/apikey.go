package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nexcrm/nexus/internal/api/middleware"
	"github.com/nexcrm/nexus/internal/domain"
	"github.com/nexcrm/nexus/internal/service"
	"go.uber.org/zap"
)

type APIKeyHandler struct {
	svc    *service.APIKeyService
	audit  domain.AuditStore
	logger *zap.Logger
}

func NewAPIKeyHandler(svc *service.APIKeyService, audit domain.AuditStore, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{svc: svc, audit: audit, logger: logger}
}

type createAPIKeyRequest struct {
	Description string `json:"description,omitempty"`
}

type createAPIKeyResponse struct {
	domain.APIKey
	// APIKey is the raw secret, returned exactly once.
	RawKey string `json:"api_key"`
}

func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	var req createAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	issued, err := h.svc.Issue(r.Context(), tctx, req.Description)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.recordAudit(r, tctx, "apikey.create", issued.Key.ID.String(), map[string]any{"prefix": issued.Key.Prefix})
	writeJSON(w, http.StatusCreated, createAPIKeyResponse{
		APIKey: issued.Key,
		RawKey: issued.RawKey,
	})
}

// List exposes prefix, status and timestamps only; digests never leave
// the store.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	keys, err := h.svc.List(r.Context(), tctx)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if keys == nil {
		keys = []domain.APIKey{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"api_keys": keys, "count": len(keys)})
}

func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid key id")
		return
	}

	if err := h.svc.Revoke(r.Context(), tctx, id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.recordAudit(r, tctx, "apikey.revoke", id.String(), nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *APIKeyHandler) recordAudit(r *http.Request, tctx domain.TenantContext, action, entityID string, details map[string]any) {
	entry := &domain.AuditEntry{
		TenantID:   tctx.TenantID,
		UserID:     tctx.UserID,
		Action:     action,
		EntityType: "api_key",
		EntityID:   entityID,
		Details:    details,
	}
	if err := h.audit.Append(r.Context(), entry); err != nil {
		h.logger.Warn("audit append failed", zap.String("action", action), zap.Error(err))
	}
}
