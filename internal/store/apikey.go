package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexcrm/nexus/internal/domain"
)

type APIKeyStore struct {
	db   *pgxpool.Pool
	keys string
}

func NewAPIKeyStore(db *pgxpool.Pool, adminSchema string) *APIKeyStore {
	return &APIKeyStore{
		db:   db,
		keys: pgx.Identifier{adminSchema, "api_keys"}.Sanitize(),
	}
}

func (s *APIKeyStore) Create(ctx context.Context, k *domain.APIKey) error {
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (tenant_id, user_id, key_hash, prefix, description)
		 VALUES ($1, $2, $3, $4, $5) RETURNING key_id, status, created_at`, s.keys),
		k.TenantID, k.UserID, k.KeyHash, k.Prefix, k.Description,
	).Scan(&k.ID, &k.Status, &k.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

// List never selects key_hash: the digest stays inside the store after
// creation and is not exposed through any read path.
func (s *APIKeyStore) List(ctx context.Context, tenantID string) ([]domain.APIKey, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT key_id, tenant_id, COALESCE(user_id, ''), prefix, COALESCE(description, ''), status, last_used_at, created_at
		 FROM %s WHERE tenant_id = $1 ORDER BY created_at DESC`, s.keys),
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		var k domain.APIKey
		if err := rows.Scan(&k.ID, &k.TenantID, &k.UserID, &k.Prefix, &k.Description, &k.Status, &k.LastUsedAt, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *APIKeyStore) Revoke(ctx context.Context, tenantID string, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET status = $1 WHERE key_id = $2 AND tenant_id = $3`, s.keys),
		domain.APIKeyRevoked, id, tenantID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
