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

// CustomSchemaHandler manages user-defined table and field definitions.
// Definition changes are admin mutations and land in the audit log.
type CustomSchemaHandler struct {
	svc    *service.RecordService
	audit  domain.AuditStore
	logger *zap.Logger
}

func NewCustomSchemaHandler(svc *service.RecordService, audit domain.AuditStore, logger *zap.Logger) *CustomSchemaHandler {
	return &CustomSchemaHandler{svc: svc, audit: audit, logger: logger}
}

type createTableRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (h *CustomSchemaHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	table, err := h.svc.CreateTable(r.Context(), tctx, req.Name, req.Description)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.recordAudit(r, tctx, "customtable.create", "custom_table", table.ID.String(), map[string]any{"name": table.Name})
	writeJSON(w, http.StatusCreated, table)
}

func (h *CustomSchemaHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	tables, err := h.svc.ListTables(r.Context(), tctx)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if tables == nil {
		tables = []domain.CustomTable{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables, "count": len(tables)})
}

type createFieldRequest struct {
	FieldName  string `json:"field_name"`
	FieldType  string `json:"field_type"`
	IsRequired bool   `json:"is_required"`
}

func (h *CustomSchemaHandler) CreateField(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table id")
		return
	}

	var req createFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	field, err := h.svc.CreateField(r.Context(), tctx, tableID, req.FieldName, domain.FieldType(req.FieldType), req.IsRequired)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.recordAudit(r, tctx, "customfield.create", "custom_field", field.ID.String(), map[string]any{
		"table_id":   tableID.String(),
		"field_name": field.Name,
	})
	writeJSON(w, http.StatusCreated, field)
}

func (h *CustomSchemaHandler) ListFields(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table id")
		return
	}

	fields, err := h.svc.ListFields(r.Context(), tctx, tableID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if fields == nil {
		fields = []domain.CustomField{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": fields, "count": len(fields)})
}

// recordAudit appends best-effort: a failed audit write is logged, not
// surfaced to the caller.
func (h *CustomSchemaHandler) recordAudit(r *http.Request, tctx domain.TenantContext, action, entityType, entityID string, details map[string]any) {
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
