package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nexcrm/nexus/internal/api/middleware"
	"github.com/nexcrm/nexus/internal/domain"
	"go.uber.org/zap"
)

// RBACHandler exposes the role/permission admin surface. Every mutation
// is appended to the audit log.
type RBACHandler struct {
	store  domain.RBACStore
	audit  domain.AuditStore
	logger *zap.Logger
}

func NewRBACHandler(store domain.RBACStore, audit domain.AuditStore, logger *zap.Logger) *RBACHandler {
	return &RBACHandler{store: store, audit: audit, logger: logger}
}

type createRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (h *RBACHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeDomainError(w, h.logger, domain.MissingField("name"))
		return
	}

	role := &domain.Role{
		TenantID:    tctx.TenantID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.store.CreateRole(r.Context(), role); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.recordAudit(r, tctx, "role.create", "role", role.ID.String(), map[string]any{"name": role.Name})
	writeJSON(w, http.StatusCreated, role)
}

func (h *RBACHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	roles, err := h.store.ListRoles(r.Context(), tctx.TenantID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if roles == nil {
		roles = []domain.Role{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles, "count": len(roles)})
}

type createPermissionRequest struct {
	ActionKey   string `json:"action_key"`
	Description string `json:"description,omitempty"`
}

func (h *RBACHandler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	var req createPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ActionKey == "" {
		writeDomainError(w, h.logger, domain.MissingField("action_key"))
		return
	}

	perm := &domain.Permission{
		ActionKey:   req.ActionKey,
		Description: req.Description,
	}
	if err := h.store.CreatePermission(r.Context(), perm); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.recordAudit(r, tctx, "permission.create", "permission", perm.ID.String(), map[string]any{"action_key": perm.ActionKey})
	writeJSON(w, http.StatusCreated, perm)
}

func (h *RBACHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.store.ListPermissions(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if perms == nil {
		perms = []domain.Permission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": perms, "count": len(perms)})
}

type grantRequest struct {
	PermissionID string `json:"permission_id"`
}

func (h *RBACHandler) Grant(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	roleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid role id")
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	permID, err := uuid.Parse(req.PermissionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid permission_id")
		return
	}

	if err := h.store.Grant(r.Context(), roleID, permID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.recordAudit(r, tctx, "permission.grant", "role", roleID.String(), map[string]any{"permission_id": permID.String()})
	writeJSON(w, http.StatusCreated, map[string]string{"status": "granted"})
}

func (h *RBACHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	roleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid role id")
		return
	}
	permID, err := uuid.Parse(chi.URLParam(r, "permID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid permission id")
		return
	}

	if err := h.store.Revoke(r.Context(), roleID, permID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.recordAudit(r, tctx, "permission.revoke", "role", roleID.String(), map[string]any{"permission_id": permID.String()})
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// recordAudit appends best-effort: a failed audit write is logged, not
// surfaced to the caller.
func (h *RBACHandler) recordAudit(r *http.Request, tctx domain.TenantContext, action, entityType, entityID string, details map[string]any) {
	entry := &domain.AuditEntry{
		TenantID:   tctx.TenantID,
		UserID:     tctx.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
	if err := h.audit.Append(r.Context(), entry); err != nil {
		h.logger.Warn("audit append failed", zap.String("action", action), zap.Error(err))
	}
}
