package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nexcrm/nexus/internal/domain"
	"github.com/nexcrm/nexus/internal/tenantdb"
	"go.uber.org/zap"
)

type TenantHandler struct {
	store  domain.TenantStore
	logger *zap.Logger
}

func NewTenantHandler(store domain.TenantStore, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{store: store, logger: logger}
}

type createTenantRequest struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	SchemaName string `json:"schema_name"`
}

// Create registers a tenant and the schema its sessions will bind to.
// Creating the schema itself (DDL) belongs to the provisioning tooling.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		writeDomainError(w, h.logger, domain.MissingField("name"))
		return
	}
	if !tenantdb.ValidIdentifier(req.SchemaName) {
		writeDomainError(w, h.logger, &domain.ValidationError{
			Field:   "schema_name",
			Message: "must be a lowercase identifier",
		})
		return
	}

	tenant := &domain.Tenant{
		Name:       req.Name,
		Slug:       req.Slug,
		SchemaName: req.SchemaName,
	}
	if err := h.store.Create(r.Context(), tenant); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("tenant registered",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("schema", tenant.SchemaName),
	)
	writeJSON(w, http.StatusCreated, tenant)
}
