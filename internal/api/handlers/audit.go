package handlers

import (
	"net/http"
	"strconv"

	"github.com/nexcrm/nexus/internal/api/middleware"
	"github.com/nexcrm/nexus/internal/domain"
	"go.uber.org/zap"
)

const auditPageSize = 100

type AuditHandler struct {
	store  domain.AuditStore
	logger *zap.Logger
}

func NewAuditHandler(store domain.AuditStore, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{store: store, logger: logger}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > auditPageSize {
		limit = auditPageSize
	}

	entries, err := h.store.List(r.Context(), tctx.TenantID, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}
