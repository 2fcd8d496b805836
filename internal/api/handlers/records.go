package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nexcrm/nexus/internal/api/middleware"
	"github.com/nexcrm/nexus/internal/domain"
	"github.com/nexcrm/nexus/internal/service"
	"go.uber.org/zap"
)

// RecordHandler exposes generic record CRUD keyed by custom table name.
type RecordHandler struct {
	svc    *service.RecordService
	logger *zap.Logger
}

func NewRecordHandler(svc *service.RecordService, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{svc: svc, logger: logger}
}

// Create stores a record. The body is the record data itself: an open
// JSON object validated against the table's field definitions.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	tableName := chi.URLParam(r, "table")

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.svc.CreateRecord(r.Context(), tctx, tableName, data)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	tableName := chi.URLParam(r, "table")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.svc.ListRecords(r.Context(), tctx, tableName, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if records == nil {
		records = []domain.CustomRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records, "count": len(records)})
}

func (h *RecordHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	tctx, ok := middleware.TenantContextFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
		return
	}

	tableName := chi.URLParam(r, "table")
	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	record, err := h.svc.GetRecord(r.Context(), tctx, tableName, recordID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
