package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tenant is a registry row in the admin schema mapping a tenant id to the
// Postgres schema holding that tenant's business data.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	SchemaName string    `json:"schema_name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// TenantContext is the caller's identity for a single request: who they
// are, which tenant they belong to, and which roles they hold. It is
// derived once per request and never persisted or cached across requests.
type TenantContext struct {
	TenantID string   `json:"tenant_id"`
	UserID   string   `json:"user_id"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the context holds the given role. Roles are
// normalized to lowercase at construction, so comparison is exact here.
func (c TenantContext) HasRole(role string) bool {
	role = strings.ToLower(role)
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
