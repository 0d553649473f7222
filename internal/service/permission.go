package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/metrics"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
)

const PermManageUsers = "manage_users"

type PermissionEvaluator struct {
	Roles RoleReader
}

// HasPermission reports whether the user's role grants permission.
// Matching is exact and case-sensitive. A user pointing at a missing
// role yields ErrRoleNotFound.
func (p *PermissionEvaluator) HasPermission(ctx context.Context, user *models.User, permission string) (bool, error) {
	role, err := p.Roles.GetRole(ctx, user.RoleID)
	if err != nil {
		if repo.IsNotFound(err) {
			metrics.IntegrityFaultsTotal.Inc()
			logging.FromContext(ctx).Error("role_missing",
				"severity", "critical",
				"user_id", user.ID,
				"role_id", user.RoleID,
			)
			return false, fmt.Errorf("%w: user %d role %d", ErrRoleNotFound, user.ID, user.RoleID)
		}
		return false, err
	}
	return role.Has(permission), nil
}

func (p *PermissionEvaluator) Authorize(ctx context.Context, user *models.User, permission string) error {
	ok, err := p.HasPermission(ctx, user, permission)
	if err != nil {
		metrics.PermissionChecksTotal.WithLabelValues(permission, "error").Inc()
		return err
	}
	if !ok {
		metrics.PermissionChecksTotal.WithLabelValues(permission, "denied").Inc()
		logging.FromContext(ctx).Warn("permission_denied", "user_id", user.ID, "permission", permission)
		return fmt.Errorf("%w: %s", ErrPermissionDenied, permission)
	}
	metrics.PermissionChecksTotal.WithLabelValues(permission, "granted").Inc()
	return nil
}
