package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nexcrm/nexus/internal/api/middleware"
	"github.com/nexcrm/nexus/internal/service"
	"go.uber.org/zap"
)

// QueryHandler is the SQL Studio surface: ad-hoc read queries through the
// sandboxed session, plus the schema browser listing.
type QueryHandler struct {
	svc    *service.QueryService
	logger *zap.Logger
}

func NewQueryHandler(svc *service.QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{svc: svc, logger: logger}
}

type executeQueryRequest struct {
	Query string `json:"query"`
}

func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	var req executeQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Execute(r.Context(), tctx, req.Query)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if result.Rows == nil {
		result.Rows = [][]any{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *QueryHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	schemas, err := h.svc.ListVisibleTables(r.Context(), tctx)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": schemas})
}
