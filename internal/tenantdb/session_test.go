package tenantdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nexcrm/nexus/internal/domain"
	"github.com/nexcrm/nexus/internal/store"
	"go.uber.org/zap"
)

type mockTenantStore struct {
	tenants map[string]*domain.Tenant
	err     error
}

func newMockTenantStore() *mockTenantStore {
	return &mockTenantStore{tenants: make(map[string]*domain.Tenant)}
}

func (m *mockTenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	t.ID = uuid.New()
	m.tenants[t.ID.String()] = t
	return nil
}

func (m *mockTenantStore) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func TestValidIdentifier(t *testing.T) {
	valid := []string{"tenant_demo", "t1", "_private", "a", "tenant_admin"}
	for _, name := range valid {
		if !ValidIdentifier(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}

	invalid := []string{
		"",
		"Tenant",
		"1tenant",
		"tenant-demo",
		"tenant demo",
		`tenant"; DROP SCHEMA public`,
		"tenant.admin",
		"abcdefghijabcdefghijabcdefghijabcdefghijabcdefghijabcdefghijabcd", // 64 chars
	}
	for _, name := range invalid {
		if ValidIdentifier(name) {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

func TestSearchPathFor(t *testing.T) {
	if got := searchPathFor("tenant_demo", "tenant_admin", false); got != "tenant_demo, tenant_admin" {
		t.Fatalf("standard path wrong: %q", got)
	}
	if got := searchPathFor("tenant_demo", "tenant_admin", true); got != "tenant_demo" {
		t.Fatalf("sandbox path must exclude the admin schema: %q", got)
	}
}

func TestNew_InvalidAdminSchema(t *testing.T) {
	_, err := New(nil, newMockTenantStore(), Config{AdminSchema: "Bad-Schema"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected an error for an invalid admin schema name")
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	f, err := New(nil, newMockTenantStore(), Config{AdminSchema: "tenant_admin"}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.cfg.SandboxStatementTimeout != 3*time.Second {
		t.Fatalf("expected 3s default timeout, got %v", f.cfg.SandboxStatementTimeout)
	}
}

func TestSchemaFor_ResolvesFromRegistry(t *testing.T) {
	tenants := newMockTenantStore()
	tenant := &domain.Tenant{Name: "Demo", Slug: "demo", SchemaName: "tenant_demo"}
	_ = tenants.Create(context.Background(), tenant)

	f, err := New(nil, tenants, Config{AdminSchema: "tenant_admin"}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	schema, err := f.schemaFor(context.Background(), domain.TenantContext{TenantID: tenant.ID.String()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if schema != "tenant_demo" {
		t.Fatalf("expected tenant_demo, got %q", schema)
	}
}

func TestSchemaFor_UnknownTenantFailsClosed(t *testing.T) {
	f, err := New(nil, newMockTenantStore(), Config{AdminSchema: "tenant_admin"}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err = f.schemaFor(context.Background(), domain.TenantContext{TenantID: "no-such-tenant"})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestSchemaFor_RegistryErrorFailsClosed(t *testing.T) {
	tenants := newMockTenantStore()
	tenants.err = errors.New("connection refused")

	f, err := New(nil, tenants, Config{AdminSchema: "tenant_admin"}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err = f.schemaFor(context.Background(), domain.TenantContext{TenantID: "tenant-1"})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestSchemaFor_BadRegisteredSchemaFailsClosed(t *testing.T) {
	tenants := newMockTenantStore()
	tenant := &domain.Tenant{Name: "Demo", Slug: "demo", SchemaName: "Bad Schema"}
	_ = tenants.Create(context.Background(), tenant)

	f, err := New(nil, tenants, Config{AdminSchema: "tenant_admin"}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err = f.schemaFor(context.Background(), domain.TenantContext{TenantID: tenant.ID.String()})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
