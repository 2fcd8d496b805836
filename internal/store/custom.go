package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexcrm/nexus/internal/domain"
)

// CustomSchemaStore persists user-defined table/field definitions and the
// generic records stored against them. Records live as JSONB rows in a
// single shared table; deleting a table cascades to fields and records.
type CustomSchemaStore struct {
	db      *pgxpool.Pool
	tables  string
	fields  string
	records string
}

func NewCustomSchemaStore(db *pgxpool.Pool, adminSchema string) *CustomSchemaStore {
	return &CustomSchemaStore{
		db:      db,
		tables:  pgx.Identifier{adminSchema, "custom_tables"}.Sanitize(),
		fields:  pgx.Identifier{adminSchema, "custom_fields"}.Sanitize(),
		records: pgx.Identifier{adminSchema, "custom_data_store"}.Sanitize(),
	}
}

func (s *CustomSchemaStore) CreateTable(ctx context.Context, t *domain.CustomTable) error {
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (tenant_id, name, description) VALUES ($1, $2, $3)
		 RETURNING table_id`, s.tables),
		t.TenantID, t.Name, t.Description,
	).Scan(&t.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *CustomSchemaStore) GetTableByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.CustomTable, error) {
	t := &domain.CustomTable{}
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT table_id, tenant_id, name, COALESCE(description, '')
		 FROM %s WHERE table_id = $1 AND tenant_id = $2`, s.tables),
		id, tenantID,
	).Scan(&t.ID, &t.TenantID, &t.Name, &t.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *CustomSchemaStore) GetTableByName(ctx context.Context, tenantID, name string) (*domain.CustomTable, error) {
	t := &domain.CustomTable{}
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT table_id, tenant_id, name, COALESCE(description, '')
		 FROM %s WHERE tenant_id = $1 AND lower(name) = lower($2)`, s.tables),
		tenantID, name,
	).Scan(&t.ID, &t.TenantID, &t.Name, &t.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *CustomSchemaStore) ListTables(ctx context.Context, tenantID string) ([]domain.CustomTable, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT table_id, tenant_id, name, COALESCE(description, '')
		 FROM %s WHERE tenant_id = $1 ORDER BY name`, s.tables),
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []domain.CustomTable
	for rows.Next() {
		var t domain.CustomTable
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.Description); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *CustomSchemaStore) CreateField(ctx context.Context, f *domain.CustomField) error {
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (table_id, field_name, field_type, is_required)
		 VALUES ($1, $2, $3, $4) RETURNING field_id`, s.fields),
		f.TableID, f.Name, f.Type, f.Required,
	).Scan(&f.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *CustomSchemaStore) ListFields(ctx context.Context, tableID uuid.UUID) ([]domain.CustomField, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT field_id, table_id, field_name, field_type, is_required
		 FROM %s WHERE table_id = $1 ORDER BY field_name`, s.fields),
		tableID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []domain.CustomField
	for rows.Next() {
		var f domain.CustomField
		if err := rows.Scan(&f.ID, &f.TableID, &f.Name, &f.Type, &f.Required); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (s *CustomSchemaStore) CreateRecord(ctx context.Context, r *domain.CustomRecord) error {
	dataJSON, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("marshal record data: %w", err)
	}

	err = s.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (table_id, record_data, created_by)
		 VALUES ($1, $2, $3) RETURNING record_id, created_at, updated_at`, s.records),
		r.TableID, dataJSON, r.CreatedBy,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *CustomSchemaStore) GetRecord(ctx context.Context, tableID, recordID uuid.UUID) (*domain.CustomRecord, error) {
	r := &domain.CustomRecord{}
	var dataJSON []byte

	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT record_id, table_id, record_data, COALESCE(created_by, ''), created_at, updated_at
		 FROM %s WHERE record_id = $1 AND table_id = $2`, s.records),
		recordID, tableID,
	).Scan(&r.ID, &r.TableID, &dataJSON, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(dataJSON, &r.Data); err != nil {
		return nil, fmt.Errorf("unmarshal record data: %w", err)
	}
	return r, nil
}

func (s *CustomSchemaStore) ListRecords(ctx context.Context, tableID uuid.UUID, limit int) ([]domain.CustomRecord, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT record_id, table_id, record_data, COALESCE(created_by, ''), created_at, updated_at
		 FROM %s WHERE table_id = $1
		 ORDER BY created_at DESC, record_id DESC
		 LIMIT $2`, s.records),
		tableID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.CustomRecord
	for rows.Next() {
		var r domain.CustomRecord
		var dataJSON []byte
		if err := rows.Scan(&r.ID, &r.TableID, &dataJSON, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(dataJSON, &r.Data); err != nil {
			return nil, fmt.Errorf("unmarshal record data: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
