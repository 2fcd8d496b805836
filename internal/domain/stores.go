package domain

import (
	"context"

	"github.com/google/uuid"
)

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
}

type RBACStore interface {
	CreateRole(ctx context.Context, r *Role) error
	ListRoles(ctx context.Context, tenantID string) ([]Role, error)
	CreatePermission(ctx context.Context, p *Permission) error
	ListPermissions(ctx context.Context) ([]Permission, error)
	Grant(ctx context.Context, roleID, permissionID uuid.UUID) error
	Revoke(ctx context.Context, roleID, permissionID uuid.UUID) error

	// HasGrant reports whether any of the given roles is joined through
	// the role-permission graph to the action key, within the tenant.
	// Role names are compared case-insensitively.
	HasGrant(ctx context.Context, tenantID string, roles []string, actionKey string) (bool, error)
}

type CustomSchemaStore interface {
	CreateTable(ctx context.Context, t *CustomTable) error
	GetTableByID(ctx context.Context, tenantID string, id uuid.UUID) (*CustomTable, error)
	GetTableByName(ctx context.Context, tenantID, name string) (*CustomTable, error)
	ListTables(ctx context.Context, tenantID string) ([]CustomTable, error)
	CreateField(ctx context.Context, f *CustomField) error
	ListFields(ctx context.Context, tableID uuid.UUID) ([]CustomField, error)
	CreateRecord(ctx context.Context, r *CustomRecord) error
	GetRecord(ctx context.Context, tableID, recordID uuid.UUID) (*CustomRecord, error)
	ListRecords(ctx context.Context, tableID uuid.UUID, limit int) ([]CustomRecord, error)
}

type APIKeyStore interface {
	Create(ctx context.Context, k *APIKey) error
	// List returns keys without their digests.
	List(ctx context.Context, tenantID string) ([]APIKey, error)
	Revoke(ctx context.Context, tenantID string, id uuid.UUID) error
}

type AuditStore interface {
	Append(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, tenantID string, limit int) ([]AuditEntry, error)
}
