package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	APIKeyActive  = "ACTIVE"
	APIKeyRevoked = "REVOKED"
)

// APIKey holds only the one-way digest of the raw secret. The raw value
// exists transiently at creation time and is never stored; the prefix is
// kept for display and lookup.
type APIKey struct {
	ID          uuid.UUID  `json:"key_id"`
	TenantID    string     `json:"tenant_id"`
	UserID      string     `json:"user_id,omitempty"`
	KeyHash     string     `json:"-"`
	Prefix      string     `json:"prefix"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	// LastUsedAt is written by the collaborator that verifies raw keys on
	// inbound requests; this service only reads it.
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
