package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/nexcrm/nexus/internal/domain"
	"github.com/nexcrm/nexus/internal/store"
)

type mockAPIKeyStore struct {
	keys map[uuid.UUID]*domain.APIKey
}

func newMockAPIKeyStore() *mockAPIKeyStore {
	return &mockAPIKeyStore{keys: make(map[uuid.UUID]*domain.APIKey)}
}

func (m *mockAPIKeyStore) Create(ctx context.Context, k *domain.APIKey) error {
	k.ID = uuid.New()
	k.Status = domain.APIKeyActive
	stored := *k
	m.keys[k.ID] = &stored
	return nil
}

func (m *mockAPIKeyStore) List(ctx context.Context, tenantID string) ([]domain.APIKey, error) {
	var out []domain.APIKey
	for _, k := range m.keys {
		if k.TenantID != tenantID {
			continue
		}
		listed := *k
		listed.KeyHash = ""
		out = append(out, listed)
	}
	return out, nil
}

func (m *mockAPIKeyStore) Revoke(ctx context.Context, tenantID string, id uuid.UUID) error {
	k, ok := m.keys[id]
	if !ok || k.TenantID != tenantID {
		return store.ErrNotFound
	}
	k.Status = domain.APIKeyRevoked
	return nil
}

func TestGenerateAPIKey_Format(t *testing.T) {
	raw, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.HasPrefix(raw, "nex_") {
		t.Fatalf("expected nex_ prefix, got %q", raw)
	}
	if len(raw) != len("nex_")+48 {
		t.Fatalf("expected 48 hex characters after the prefix, got %d total", len(raw))
	}
}

func TestDigestAPIKey(t *testing.T) {
	raw := "nex_0123456789abcdef0123456789abcdef0123456789abcdef"
	hash, prefix := DigestAPIKey(raw)

	if len(hash) != 64 {
		t.Fatalf("expected sha256 hex digest, got %d chars", len(hash))
	}
	if hash == raw {
		t.Fatal("digest must not equal the raw key")
	}
	if prefix != raw[:8] {
		t.Fatalf("expected 8-char prefix %q, got %q", raw[:8], prefix)
	}

	again, _ := DigestAPIKey(raw)
	if again != hash {
		t.Fatal("digest must be deterministic")
	}
}

func TestAPIKeyService_Issue(t *testing.T) {
	mock := newMockAPIKeyStore()
	svc := NewAPIKeyService(mock)
	tctx := domain.TenantContext{TenantID: "tenant-1", UserID: "user-1"}

	issued, err := svc.Issue(context.Background(), tctx, "ci key")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if issued.RawKey == "" {
		t.Fatal("expected the raw key to be returned at creation")
	}
	if issued.Key.KeyHash != "" {
		t.Fatal("expected the digest to stay out of the response")
	}
	if issued.Key.Prefix != issued.RawKey[:8] {
		t.Fatalf("expected prefix %q, got %q", issued.RawKey[:8], issued.Key.Prefix)
	}

	stored := mock.keys[issued.Key.ID]
	wantHash, _ := DigestAPIKey(issued.RawKey)
	if stored.KeyHash != wantHash {
		t.Fatal("expected the store to hold the sha256 digest of the raw key")
	}
	if stored.KeyHash == issued.RawKey {
		t.Fatal("raw key must never be persisted")
	}
}

func TestAPIKeyService_ListOmitsSecrets(t *testing.T) {
	mock := newMockAPIKeyStore()
	svc := NewAPIKeyService(mock)
	tctx := domain.TenantContext{TenantID: "tenant-1", UserID: "user-1"}

	if _, err := svc.Issue(context.Background(), tctx, "k1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	keys, err := svc.List(context.Background(), tctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	if keys[0].KeyHash != "" {
		t.Fatal("expected listings to omit the digest")
	}
	if len(keys[0].Prefix) != 8 {
		t.Fatalf("expected an 8-char prefix, got %q", keys[0].Prefix)
	}
}

func TestAPIKeyService_Revoke(t *testing.T) {
	mock := newMockAPIKeyStore()
	svc := NewAPIKeyService(mock)
	tctx := domain.TenantContext{TenantID: "tenant-1", UserID: "user-1"}

	issued, err := svc.Issue(context.Background(), tctx, "k1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := svc.Revoke(context.Background(), tctx, issued.Key.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mock.keys[issued.Key.ID].Status != domain.APIKeyRevoked {
		t.Fatal("expected key to be revoked")
	}

	other := domain.TenantContext{TenantID: "tenant-2", UserID: "user-2"}
	if err := svc.Revoke(context.Background(), other, issued.Key.ID); err == nil {
		t.Fatal("expected cross-tenant revoke to fail")
	}
}
