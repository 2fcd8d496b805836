package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nexcrm/nexus/internal/domain"
	"github.com/nexcrm/nexus/internal/service"
	"github.com/nexcrm/nexus/internal/store"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Anything
// outside the taxonomy becomes a generic 500 without internal detail.
func writeDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "missing tenant or user context")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "permission denied")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		logger.Error("tenant session unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, service.ErrQueryTimeout):
		writeError(w, http.StatusBadRequest, service.ErrQueryTimeout.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
