package middleware

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/nexcrm/nexus/internal/domain"
)

// capture runs the middleware and records the resolved context, if any.
func capture(cfg IdentityConfig, r *http.Request) (domain.TenantContext, bool, *httptest.ResponseRecorder) {
	var tctx domain.TenantContext
	var resolved bool

	handler := Identity(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tctx, resolved = TenantContextFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return tctx, resolved, rec
}

func TestIdentity_FromHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderTenantID, "tenant-1")
	req.Header.Set(HeaderUserID, "user-1")
	req.Header.Set(HeaderUserRoles, "Vendedor, ADMIN , ")

	tctx, resolved, rec := capture(IdentityConfig{}, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !resolved {
		t.Fatal("expected a resolved tenant context")
	}
	if tctx.TenantID != "tenant-1" || tctx.UserID != "user-1" {
		t.Fatalf("unexpected identity: %+v", tctx)
	}
	if !reflect.DeepEqual(tctx.Roles, []string{"vendedor", "admin"}) {
		t.Fatalf("expected normalized roles, got %v", tctx.Roles)
	}
}

func TestIdentity_DefaultsApply(t *testing.T) {
	cfg := IdentityConfig{
		DefaultTenantID:  "dev-tenant",
		DefaultUserID:    "dev-user",
		DefaultUserRoles: "admin",
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	tctx, _, rec := capture(cfg, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if tctx.TenantID != "dev-tenant" || tctx.UserID != "dev-user" {
		t.Fatalf("expected defaults, got %+v", tctx)
	}
	if !tctx.HasRole("admin") {
		t.Fatalf("expected default role, got %v", tctx.Roles)
	}
}

func TestIdentity_HeadersOverrideDefaults(t *testing.T) {
	cfg := IdentityConfig{DefaultTenantID: "dev-tenant", DefaultUserID: "dev-user"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderTenantID, "tenant-9")
	req.Header.Set(HeaderUserID, "user-9")

	tctx, _, _ := capture(cfg, req)
	if tctx.TenantID != "tenant-9" || tctx.UserID != "user-9" {
		t.Fatalf("expected headers to win over defaults, got %+v", tctx)
	}
}

func TestIdentity_VerifiedClaimsWin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderTenantID, "spoofed-tenant")
	req.Header.Set(HeaderUserID, "spoofed-user")
	req.Header.Set(HeaderUserRoles, "admin")

	claims := Claims{TenantID: "real-tenant", UserID: "real-user", Roles: []string{"Vendedor"}}
	req = req.WithContext(WithVerifiedClaims(req.Context(), claims))

	tctx, _, rec := capture(IdentityConfig{}, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if tctx.TenantID != "real-tenant" || tctx.UserID != "real-user" {
		t.Fatalf("expected claims to win over headers, got %+v", tctx)
	}
	if tctx.HasRole("admin") {
		t.Fatal("expected header roles to be ignored when claims are present")
	}
	if !tctx.HasRole("vendedor") {
		t.Fatalf("expected claim roles normalized, got %v", tctx.Roles)
	}
}

func TestIdentity_IncompleteClaimsFallBack(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderTenantID, "tenant-1")
	req.Header.Set(HeaderUserID, "user-1")

	// Claims without a user id are not a usable assertion.
	req = req.WithContext(WithVerifiedClaims(req.Context(), Claims{TenantID: "other"}))

	tctx, _, rec := capture(IdentityConfig{}, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if tctx.TenantID != "tenant-1" || tctx.UserID != "user-1" {
		t.Fatalf("expected header fallback, got %+v", tctx)
	}
}

func TestIdentity_UnresolvableRejected(t *testing.T) {
	cases := map[string]func(*http.Request){
		"nothing":     func(r *http.Request) {},
		"tenant only": func(r *http.Request) { r.Header.Set(HeaderTenantID, "tenant-1") },
		"user only":   func(r *http.Request) { r.Header.Set(HeaderUserID, "user-1") },
	}

	for name, apply := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		apply(req)

		_, resolved, rec := capture(IdentityConfig{}, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
		if resolved {
			t.Errorf("%s: handler must not run without identity", name)
		}
	}
}

func TestNormalizeRoles(t *testing.T) {
	got := normalizeRoles([]string{" Admin ", "", "DATA_ADMIN", "vendedor"})
	want := []string{"admin", "data_admin", "vendedor"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
