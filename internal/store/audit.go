package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexcrm/nexus/internal/domain"
)

type AuditStore struct {
	db  *pgxpool.Pool
	log string
}

func NewAuditStore(db *pgxpool.Pool, adminSchema string) *AuditStore {
	return &AuditStore{
		db:  db,
		log: pgx.Identifier{adminSchema, "audit_log"}.Sanitize(),
	}
}

func (s *AuditStore) Append(ctx context.Context, e *domain.AuditEntry) error {
	var detailsJSON []byte
	if e.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	return s.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (tenant_id, user_id, action, entity_type, entity_id, details)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING log_id, timestamp`, s.log),
		e.TenantID, e.UserID, e.Action, e.EntityType, e.EntityID, detailsJSON,
	).Scan(&e.ID, &e.Timestamp)
}

func (s *AuditStore) List(ctx context.Context, tenantID string, limit int) ([]domain.AuditEntry, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT log_id, tenant_id, COALESCE(user_id, ''), action,
			COALESCE(entity_type, ''), COALESCE(entity_id, ''), details, timestamp
		 FROM %s WHERE tenant_id = $1 ORDER BY log_id DESC LIMIT $2`, s.log),
		tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detailsJSON []byte
		if err := rows.Scan(&e.ID, &e.TenantID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &detailsJSON, &e.Timestamp); err != nil {
			return nil, err
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
