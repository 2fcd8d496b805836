package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/nexcrm/nexus/internal/domain"
)

const apiKeyPrefixLen = 8

// IssuedKey carries the raw secret alongside the stored key metadata.
// The raw value exists only in this struct, only at creation time.
type IssuedKey struct {
	Key    domain.APIKey
	RawKey string
}

type APIKeyService struct {
	store domain.APIKeyStore
}

func NewAPIKeyService(store domain.APIKeyStore) *APIKeyService {
	return &APIKeyService{store: store}
}

// Issue generates a new API key, stores its digest and display prefix,
// and returns the raw value exactly once. No read path can reconstruct it.
func (s *APIKeyService) Issue(ctx context.Context, tctx domain.TenantContext, description string) (*IssuedKey, error) {
	raw, err := GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	hash, prefix := DigestAPIKey(raw)

	key := &domain.APIKey{
		TenantID:    tctx.TenantID,
		UserID:      tctx.UserID,
		KeyHash:     hash,
		Prefix:      prefix,
		Description: description,
	}
	if err := s.store.Create(ctx, key); err != nil {
		return nil, err
	}

	// The digest never leaves the store layer again.
	key.KeyHash = ""
	return &IssuedKey{Key: *key, RawKey: raw}, nil
}

func (s *APIKeyService) List(ctx context.Context, tctx domain.TenantContext) ([]domain.APIKey, error) {
	return s.store.List(ctx, tctx.TenantID)
}

func (s *APIKeyService) Revoke(ctx context.Context, tctx domain.TenantContext, id uuid.UUID) error {
	return s.store.Revoke(ctx, tctx.TenantID, id)
}

// GenerateAPIKey returns a new raw secret: "nex_" plus 48 hex characters.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "nex_" + hex.EncodeToString(b), nil
}

// DigestAPIKey returns the one-way digest stored for a raw key and the
// display prefix (the first bytes of the raw value).
func DigestAPIKey(raw string) (hash, prefix string) {
	sum := sha256.Sum256([]byte(raw))
	if len(raw) > apiKeyPrefixLen {
		prefix = raw[:apiKeyPrefixLen]
	} else {
		prefix = raw
	}
	return hex.EncodeToString(sum[:]), prefix
}
