package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexcrm/nexus/internal/domain"
)

// TenantStore is the tenant registry: the only source the session factory
// resolves schema names from. Client-supplied schema names never reach it.
type TenantStore struct {
	db      *pgxpool.Pool
	tenants string
}

func NewTenantStore(db *pgxpool.Pool, adminSchema string) *TenantStore {
	return &TenantStore{
		db:      db,
		tenants: pgx.Identifier{adminSchema, "tenants"}.Sanitize(),
	}
}

func (s *TenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (name, slug, schema_name) VALUES ($1, $2, $3)
		 RETURNING id, status, created_at`, s.tenants),
		t.Name, t.Slug, t.SchemaName,
	).Scan(&t.ID, &t.Status, &t.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

// GetByID looks a tenant up by the opaque id string carried in the
// request context. Non-UUID ids simply find no row.
func (s *TenantStore) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, name, slug, schema_name, status, created_at
		 FROM %s WHERE id::text = $1`, s.tenants),
		id,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.SchemaName, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}
