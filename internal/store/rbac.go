package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexcrm/nexus/internal/domain"
)

// RBACStore owns the role/permission graph in the admin schema. The schema
// name is a server-side constant validated at startup; it is quoted once
// here and never taken from a request.
type RBACStore struct {
	db     *pgxpool.Pool
	roles  string
	perms  string
	grants string
}

func NewRBACStore(db *pgxpool.Pool, adminSchema string) *RBACStore {
	return &RBACStore{
		db:     db,
		roles:  pgx.Identifier{adminSchema, "roles"}.Sanitize(),
		perms:  pgx.Identifier{adminSchema, "permissions"}.Sanitize(),
		grants: pgx.Identifier{adminSchema, "role_permissions"}.Sanitize(),
	}
}

func (s *RBACStore) CreateRole(ctx context.Context, r *domain.Role) error {
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (tenant_id, name, description) VALUES ($1, $2, $3)
		 RETURNING role_id`, s.roles),
		r.TenantID, r.Name, r.Description,
	).Scan(&r.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *RBACStore) ListRoles(ctx context.Context, tenantID string) ([]domain.Role, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT role_id, tenant_id, name, COALESCE(description, '')
		 FROM %s WHERE tenant_id = $1 ORDER BY name`, s.roles),
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var r domain.Role
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Name, &r.Description); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *RBACStore) CreatePermission(ctx context.Context, p *domain.Permission) error {
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (action_key, description) VALUES ($1, $2)
		 RETURNING permission_id`, s.perms),
		p.ActionKey, p.Description,
	).Scan(&p.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *RBACStore) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT permission_id, action_key, COALESCE(description, '')
		 FROM %s ORDER BY action_key`, s.perms),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.ID, &p.ActionKey, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (s *RBACStore) Grant(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (role_id, permission_id) VALUES ($1, $2)`, s.grants),
		roleID, permissionID,
	)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *RBACStore) Revoke(ctx context.Context, roleID, permissionID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE role_id = $1 AND permission_id = $2`, s.grants),
		roleID, permissionID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RBACStore) HasGrant(ctx context.Context, tenantID string, roles []string, actionKey string) (bool, error) {
	lowered := make([]string, 0, len(roles))
	for _, r := range roles {
		lowered = append(lowered, strings.ToLower(r))
	}

	var one int
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT 1
		 FROM %s r
		 JOIN %s rp ON rp.role_id = r.role_id
		 JOIN %s p ON p.permission_id = rp.permission_id
		 WHERE r.tenant_id = $1 AND lower(r.name) = ANY($2) AND p.action_key = $3
		 LIMIT 1`, s.roles, s.grants, s.perms),
		tenantID, lowered, actionKey,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
