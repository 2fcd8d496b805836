package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldType is the declared type of a user-defined field. Values arriving
// as decoded JSON are checked against it on write.
type FieldType string

const (
	FieldText         FieldType = "TEXT"
	FieldNumber       FieldType = "NUMBER"
	FieldBoolean      FieldType = "BOOLEAN"
	FieldDate         FieldType = "DATE"
	FieldRelationship FieldType = "RELATIONSHIP"
)

// Known reports whether t is one of the declared field types.
func (t FieldType) Known() bool {
	switch t {
	case FieldText, FieldNumber, FieldBoolean, FieldDate, FieldRelationship:
		return true
	}
	return false
}

// Accepts reports whether a decoded JSON value satisfies the field type.
// DATE accepts any string: callers own ISO-8601 formatting and the engine
// does not validate calendar correctness. RELATIONSHIP accepts any string
// as an opaque foreign identifier without checking referential existence.
// Unknown field types pass unchecked.
func (t FieldType) Accepts(v any) bool {
	switch t {
	case FieldText, FieldDate, FieldRelationship:
		_, ok := v.(string)
		return ok
	case FieldNumber:
		switch v.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case FieldBoolean:
		_, ok := v.(bool)
		return ok
	default:
		return true
	}
}

// CustomTable is a user-defined entity type. Names are unique per tenant.
type CustomTable struct {
	ID          uuid.UUID `json:"table_id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
}

type CustomField struct {
	ID       uuid.UUID `json:"field_id"`
	TableID  uuid.UUID `json:"table_id"`
	Name     string    `json:"field_name"`
	Type     FieldType `json:"field_type"`
	Required bool      `json:"is_required"`
}

// CustomRecord is a generic row stored against a CustomTable. Data keys
// with no matching field definition are stored as-is (schema-on-write).
type CustomRecord struct {
	ID        uuid.UUID      `json:"record_id"`
	TableID   uuid.UUID      `json:"table_id"`
	Data      map[string]any `json:"data"`
	CreatedBy string         `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
