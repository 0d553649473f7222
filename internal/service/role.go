package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
)

type RoleService struct {
	Roles  RoleStore
	Events events.Publisher
	Now    func() time.Time
}

type RoleInput struct {
	Name        string
	Permissions []string
}

// List returns every role, or one page of them when page is non-nil.
func (s *RoleService) List(ctx context.Context, page *Page) ([]models.Role, error) {
	if page == nil {
		return s.Roles.ListRoles(ctx, 0, 0)
	}
	from, limit := page.Bounds()
	return s.Roles.ListRoles(ctx, from, limit)
}

func (s *RoleService) Get(ctx context.Context, id uint) (*models.Role, error) {
	role, err := s.Roles.GetRole(ctx, id)
	return role, mapRoleErr(err)
}

func (s *RoleService) Create(ctx context.Context, in RoleInput) (*models.Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validation("role name is required")
	}
	role := models.Role{Name: name, Permissions: in.Permissions}
	if err := s.Roles.CreateRole(ctx, &role); err != nil {
		return nil, mapRoleErr(err)
	}
	logging.FromContext(ctx).Info("role_created", "role_id", role.ID, "name", role.Name)
	return &role, nil
}

func (s *RoleService) Update(ctx context.Context, id uint, upd repo.RoleUpdate) (*models.Role, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, validation("role name must not be empty")
		}
		upd.Name = &name
	}
	role, err := s.Roles.UpdateRole(ctx, id, upd)
	if err != nil {
		return nil, mapRoleErr(err)
	}
	logging.FromContext(ctx).Info("role_updated", "role_id", role.ID)
	return role, nil
}

func (s *RoleService) Delete(ctx context.Context, id uint) (*models.Role, error) {
	role, err := s.Roles.DeleteRole(ctx, id)
	if err != nil {
		return nil, mapRoleErr(err)
	}
	logging.FromContext(ctx).Info("role_deleted", "role_id", role.ID)
	return role, nil
}

func (s *RoleService) AddPermission(ctx context.Context, id uint, permission string) (*models.Role, error) {
	if permission == "" {
		return nil, validation("permission is required")
	}
	role, err := s.Roles.AddPermission(ctx, id, permission)
	return role, mapRoleErr(err)
}

func (s *RoleService) RemovePermission(ctx context.Context, id uint, permission string) (*models.Role, error) {
	if permission == "" {
		return nil, validation("permission is required")
	}
	role, err := s.Roles.RemovePermission(ctx, id, permission)
	return role, mapRoleErr(err)
}

func (s *RoleService) AssignRole(ctx context.Context, userID, roleID uint) (*models.User, error) {
	user, err := s.Roles.AssignRole(ctx, userID, roleID)
	if err != nil {
		return nil, mapRoleErr(err)
	}

	l := logging.FromContext(ctx)
	l.Info("role_assigned", "user_id", user.ID, "role_id", roleID)
	if s.Events != nil {
		now := time.Now().UTC()
		if s.Now != nil {
			now = s.Now().UTC()
		}
		ev := events.Event{Type: events.RoleAssigned, UserID: user.ID, Username: user.Username, RoleID: roleID, At: now}
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.Events.Publish(pubCtx, fmt.Sprint(user.ID), ev); err != nil {
			l.Error("event_publish_failed", "type", ev.Type, "error", err)
		}
	}
	return user, nil
}

func mapRoleErr(err error) error {
	switch {
	case err == nil:
		return nil
	case repo.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repo.ErrRoleNameTaken):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, repo.ErrRoleInUse):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
