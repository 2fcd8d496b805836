package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nexcrm/nexus/internal/domain"
)

type contextKey string

const (
	verifiedClaimsKey contextKey = "verified_claims"
	tenantContextKey  contextKey = "tenant_context"
)

// Request headers for the development identity fallback.
const (
	HeaderTenantID  = "X-Tenant-ID"
	HeaderUserID    = "X-User-ID"
	HeaderUserRoles = "X-User-Roles"
)

// Claims is a verified identity assertion attached to the request by an
// upstream authentication collaborator (typically a JWT verifier).
type Claims struct {
	TenantID string
	UserID   string
	Roles    []string
}

// WithVerifiedClaims attaches a verified assertion to the context. Only
// code that has actually verified the caller's token may call this.
func WithVerifiedClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, verifiedClaimsKey, c)
}

func verifiedClaimsFrom(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(verifiedClaimsKey).(Claims)
	return c, ok
}

// TenantContextFrom returns the resolved identity for the request.
func TenantContextFrom(ctx context.Context) (domain.TenantContext, bool) {
	tctx, ok := ctx.Value(tenantContextKey).(domain.TenantContext)
	return tctx, ok
}

// IdentityConfig carries the development fallbacks applied when neither
// verified claims nor headers provide a value. All empty in production.
type IdentityConfig struct {
	DefaultTenantID  string
	DefaultUserID    string
	DefaultUserRoles string
}

// Identity resolves the caller's TenantContext. A verified claims object
// with both tenant and user ids is the source of truth; otherwise the
// X-Tenant-ID / X-User-ID / X-User-Roles headers apply, with configured
// defaults (a development convenience, not a production auth path).
// Requests without a resolvable tenant and user fail with 401.
func Identity(cfg IdentityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tctx domain.TenantContext

			if claims, ok := verifiedClaimsFrom(r.Context()); ok && claims.TenantID != "" && claims.UserID != "" {
				tctx = domain.TenantContext{
					TenantID: claims.TenantID,
					UserID:   claims.UserID,
					Roles:    normalizeRoles(claims.Roles),
				}
			} else {
				tenantID := headerOr(r, HeaderTenantID, cfg.DefaultTenantID)
				userID := headerOr(r, HeaderUserID, cfg.DefaultUserID)
				rolesHeader := headerOr(r, HeaderUserRoles, cfg.DefaultUserRoles)
				tctx = domain.TenantContext{
					TenantID: tenantID,
					UserID:   userID,
					Roles:    normalizeRoles(strings.Split(rolesHeader, ",")),
				}
			}

			if tctx.TenantID == "" || tctx.UserID == "" {
				writeError(w, http.StatusUnauthorized, "missing tenant or user context")
				return
			}

			ctx := context.WithValue(r.Context(), tenantContextKey, tctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func headerOr(r *http.Request, header, fallback string) string {
	if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
		return v
	}
	return fallback
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			out = append(out, role)
		}
	}
	return out
}
