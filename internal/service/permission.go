package service

import (
	"context"
	"fmt"

	"github.com/nexcrm/nexus/internal/domain"
)

// AdminOverrideRoles is the fixed set of roles that bypass the permission
// graph entirely. The bypass is a deliberate policy rule, evaluated first
// and in one place; holders of these roles are allowed every action key
// without a database lookup.
var AdminOverrideRoles = map[string]struct{}{
	"admin":      {},
	"data_admin": {},
}

// PermissionService decides allow/deny for a (context, action key) pair.
// Verdicts are computed fresh on every call: grants can change between
// requests, so nothing is cached.
type PermissionService struct {
	store domain.RBACStore
}

func NewPermissionService(store domain.RBACStore) *PermissionService {
	return &PermissionService{store: store}
}

// Authorize returns nil when the context may perform the action, and
// domain.ErrForbidden otherwise. Decision order:
//
//  1. administrative override roles allow unconditionally;
//  2. an empty role set denies;
//  3. otherwise the role-permission graph in the tenant's admin schema
//     must join one of the context's roles to the action key.
func (s *PermissionService) Authorize(ctx context.Context, tctx domain.TenantContext, actionKey string) error {
	for _, role := range tctx.Roles {
		if _, ok := AdminOverrideRoles[role]; ok {
			return nil
		}
	}

	if len(tctx.Roles) == 0 {
		return domain.ErrForbidden
	}

	granted, err := s.store.HasGrant(ctx, tctx.TenantID, tctx.Roles, actionKey)
	if err != nil {
		return fmt.Errorf("permission lookup for %q: %w", actionKey, err)
	}
	if !granted {
		return domain.ErrForbidden
	}
	return nil
}
