package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nexcrm/nexus/internal/domain"
	"go.uber.org/zap"
)

// recordPageSize bounds every record listing.
const recordPageSize = 100

// RecordService is the dynamic schema engine: it manages user-defined
// table and field definitions and validates generic records against them
// before storage.
type RecordService struct {
	store  domain.CustomSchemaStore
	logger *zap.Logger
}

func NewRecordService(store domain.CustomSchemaStore, logger *zap.Logger) *RecordService {
	return &RecordService{store: store, logger: logger}
}

func (s *RecordService) CreateTable(ctx context.Context, tctx domain.TenantContext, name, description string) (*domain.CustomTable, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.MissingField("name")
	}

	table := &domain.CustomTable{
		TenantID:    tctx.TenantID,
		Name:        name,
		Description: description,
	}
	if err := s.store.CreateTable(ctx, table); err != nil {
		return nil, err
	}

	s.logger.Info("custom table created",
		zap.String("tenant_id", tctx.TenantID),
		zap.String("table", table.Name),
	)
	return table, nil
}

func (s *RecordService) ListTables(ctx context.Context, tctx domain.TenantContext) ([]domain.CustomTable, error) {
	return s.store.ListTables(ctx, tctx.TenantID)
}

// CreateField adds a field definition to an existing table. Table
// existence is checked up front so a dangling table id surfaces as
// NotFound rather than a constraint violation.
func (s *RecordService) CreateField(ctx context.Context, tctx domain.TenantContext, tableID uuid.UUID, name string, fieldType domain.FieldType, required bool) (*domain.CustomField, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.MissingField("field_name")
	}
	if !fieldType.Known() {
		return nil, &domain.ValidationError{
			Field:   "field_type",
			Message: fmt.Sprintf("unknown type %q", string(fieldType)),
		}
	}

	if _, err := s.store.GetTableByID(ctx, tctx.TenantID, tableID); err != nil {
		return nil, err
	}

	field := &domain.CustomField{
		TableID:  tableID,
		Name:     name,
		Type:     fieldType,
		Required: required,
	}
	if err := s.store.CreateField(ctx, field); err != nil {
		return nil, err
	}
	return field, nil
}

func (s *RecordService) ListFields(ctx context.Context, tctx domain.TenantContext, tableID uuid.UUID) ([]domain.CustomField, error) {
	if _, err := s.store.GetTableByID(ctx, tctx.TenantID, tableID); err != nil {
		return nil, err
	}
	return s.store.ListFields(ctx, tableID)
}

// CreateRecord validates data against the table's field definitions and
// persists it with the acting user's identity. Keys without a matching
// field definition are stored as-is.
func (s *RecordService) CreateRecord(ctx context.Context, tctx domain.TenantContext, tableName string, data map[string]any) (*domain.CustomRecord, error) {
	table, err := s.store.GetTableByName(ctx, tctx.TenantID, tableName)
	if err != nil {
		return nil, err
	}

	fields, err := s.store.ListFields(ctx, table.ID)
	if err != nil {
		return nil, err
	}

	if err := validateRecord(fields, data); err != nil {
		return nil, err
	}

	if data == nil {
		data = map[string]any{}
	}

	record := &domain.CustomRecord{
		TableID:   table.ID,
		Data:      data,
		CreatedBy: tctx.UserID,
	}
	if err := s.store.CreateRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *RecordService) GetRecord(ctx context.Context, tctx domain.TenantContext, tableName string, recordID uuid.UUID) (*domain.CustomRecord, error) {
	table, err := s.store.GetTableByName(ctx, tctx.TenantID, tableName)
	if err != nil {
		return nil, err
	}
	return s.store.GetRecord(ctx, table.ID, recordID)
}

// ListRecords returns the newest records first, capped at recordPageSize.
func (s *RecordService) ListRecords(ctx context.Context, tctx domain.TenantContext, tableName string, limit int) ([]domain.CustomRecord, error) {
	table, err := s.store.GetTableByName(ctx, tctx.TenantID, tableName)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > recordPageSize {
		limit = recordPageSize
	}
	return s.store.ListRecords(ctx, table.ID, limit)
}

// validateRecord enforces required fields first, then type-checks every
// key whose name matches a declared field.
func validateRecord(fields []domain.CustomField, data map[string]any) error {
	for _, f := range fields {
		v, present := data[f.Name]
		if f.Required && (!present || v == nil) {
			return domain.MissingField(f.Name)
		}
	}
	for _, f := range fields {
		v, present := data[f.Name]
		if !present || v == nil {
			continue
		}
		if !f.Type.Accepts(v) {
			return domain.WrongType(f.Name, f.Type)
		}
	}
	return nil
}
