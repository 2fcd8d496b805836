package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nexcrm/nexus/internal/domain"
	"go.uber.org/zap"
)

// Authorizer decides whether a resolved identity may perform an action.
type Authorizer interface {
	Authorize(ctx context.Context, tctx domain.TenantContext, actionKey string) error
}

// RequirePermission guards a route subtree with a single action key. The
// verdict is evaluated exactly once per request and never cached: grants
// can change between requests.
func RequirePermission(authz Authorizer, actionKey string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tctx, ok := TenantContextFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing tenant or user context")
				return
			}

			if err := authz.Authorize(r.Context(), tctx, actionKey); err != nil {
				if errors.Is(err, domain.ErrForbidden) {
					writeError(w, http.StatusForbidden, "permission denied")
					return
				}
				// Ambiguity resolving a permission fails closed.
				logger.Error("authorization check failed",
					zap.String("action_key", actionKey),
					zap.String("tenant_id", tctx.TenantID),
					zap.Error(err),
				)
				writeError(w, http.StatusInternalServerError, "authorization unavailable")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
