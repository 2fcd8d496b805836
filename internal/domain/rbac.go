package domain

import "github.com/google/uuid"

// Action keys gate the protected operations exposed by this service.
// External collaborators register their own keys through the permissions
// endpoint; these are the ones this core checks itself.
const (
	ActionAdminConfigManage = "admin.config.manage"
	ActionRecordsRead       = "data.records.read"
	ActionRecordsWrite      = "data.records.write"
	ActionSQLStudioExecute  = "data.sqlstudio.execute"
)

type Role struct {
	ID          uuid.UUID `json:"role_id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
}

type Permission struct {
	ID          uuid.UUID `json:"permission_id"`
	ActionKey   string    `json:"action_key"`
	Description string    `json:"description,omitempty"`
}
