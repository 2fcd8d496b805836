package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminSchema creates the admin schema and its tables if they do not
// exist. Statements are idempotent and safe to run on every start. The
// schema name is validated by the caller before it reaches this function.
func EnsureAdminSchema(ctx context.Context, db *pgxpool.Pool, adminSchema string) error {
	schema := pgx.Identifier{adminSchema}.Sanitize()
	tenants := pgx.Identifier{adminSchema, "tenants"}.Sanitize()
	roles := pgx.Identifier{adminSchema, "roles"}.Sanitize()
	perms := pgx.Identifier{adminSchema, "permissions"}.Sanitize()
	grants := pgx.Identifier{adminSchema, "role_permissions"}.Sanitize()
	keys := pgx.Identifier{adminSchema, "api_keys"}.Sanitize()
	tables := pgx.Identifier{adminSchema, "custom_tables"}.Sanitize()
	fields := pgx.Identifier{adminSchema, "custom_fields"}.Sanitize()
	records := pgx.Identifier{adminSchema, "custom_data_store"}.Sanitize()
	audit := pgx.Identifier{adminSchema, "audit_log"}.Sanitize()

	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema),
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			slug TEXT UNIQUE,
			schema_name TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, tenants),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			role_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id TEXT NOT NULL,
			name VARCHAR(100) NOT NULL,
			description TEXT,
			UNIQUE (tenant_id, name)
		)`, roles),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			permission_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			action_key VARCHAR(100) UNIQUE NOT NULL,
			description TEXT
		)`, perms),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			role_permission_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			role_id UUID NOT NULL REFERENCES %s(role_id) ON DELETE CASCADE,
			permission_id UUID NOT NULL REFERENCES %s(permission_id) ON DELETE CASCADE,
			UNIQUE (role_id, permission_id)
		)`, grants, roles, perms),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id TEXT NOT NULL,
			user_id TEXT,
			key_hash VARCHAR(255) NOT NULL,
			prefix VARCHAR(10) NOT NULL,
			description TEXT,
			status VARCHAR(50) NOT NULL DEFAULT 'ACTIVE',
			last_used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, keys),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			table_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id TEXT NOT NULL,
			name VARCHAR(100) NOT NULL,
			description TEXT,
			UNIQUE (tenant_id, name)
		)`, tables),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			field_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			table_id UUID NOT NULL REFERENCES %s(table_id) ON DELETE CASCADE,
			field_name VARCHAR(100) NOT NULL,
			field_type VARCHAR(50) NOT NULL,
			is_required BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE (table_id, field_name)
		)`, fields, tables),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			record_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			table_id UUID NOT NULL REFERENCES %s(table_id) ON DELETE CASCADE,
			record_data JSONB NOT NULL,
			created_by TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, records, tables),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			log_id BIGSERIAL PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			user_id TEXT,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			action VARCHAR(100) NOT NULL,
			entity_type VARCHAR(100),
			entity_id VARCHAR(255),
			details JSONB
		)`, audit),
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap admin schema: %w", err)
		}
	}
	return nil
}
