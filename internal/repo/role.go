package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/models"
)

type RoleUpdate struct {
	Name        *string
	Permissions *[]string
}

func (r *GormRepo) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// ListRoles returns roles ordered by id. A limit of zero means no limit.
func (r *GormRepo) ListRoles(ctx context.Context, offset, limit int) ([]models.Role, error) {
	var roles []models.Role
	q := r.DB.WithContext(ctx).Order("id ASC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *GormRepo) CreateRole(ctx context.Context, role *models.Role) error {
	role.Permissions = normalize(role.Permissions)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkRoleName(tx, role.Name, 0); err != nil {
			return err
		}
		return tx.Create(role).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrRoleNameTaken
	}
	return err
}

func (r *GormRepo) UpdateRole(ctx context.Context, id uint, upd RoleUpdate) (*models.Role, error) {
	var role models.Role
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, id).Error; err != nil {
			return err
		}
		if upd.Name != nil {
			if err := checkRoleName(tx, *upd.Name, id); err != nil {
				return err
			}
			role.Name = *upd.Name
		}
		if upd.Permissions != nil {
			role.Permissions = normalize(*upd.Permissions)
		}
		return tx.Model(&role).Select("name", "permissions").Updates(&role).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrRoleNameTaken
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// DeleteRole refuses to remove the default role or a role users still reference.
func (r *GormRepo) DeleteRole(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, id).Error; err != nil {
			return err
		}
		if role.ID == models.DefaultRoleID {
			return ErrRoleInUse
		}
		var users int64
		if err := tx.Model(&models.User{}).Where("role_id = ?", id).Count(&users).Error; err != nil {
			return err
		}
		if users > 0 {
			return ErrRoleInUse
		}
		return tx.Delete(&role).Error
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GormRepo) AddPermission(ctx context.Context, id uint, permission string) (*models.Role, error) {
	return r.mutatePermissions(ctx, id, func(p models.Permissions) models.Permissions {
		return normalize(append(p, permission))
	})
}

func (r *GormRepo) RemovePermission(ctx context.Context, id uint, permission string) (*models.Role, error) {
	return r.mutatePermissions(ctx, id, func(p models.Permissions) models.Permissions {
		out := make(models.Permissions, 0, len(p))
		for _, existing := range p {
			if existing != permission {
				out = append(out, existing)
			}
		}
		return out
	})
}

func (r *GormRepo) mutatePermissions(ctx context.Context, id uint, fn func(models.Permissions) models.Permissions) (*models.Role, error) {
	var role models.Role
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, id).Error; err != nil {
			return err
		}
		role.Permissions = fn(role.Permissions)
		return tx.Model(&role).Update("permissions", role.Permissions).Error
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func checkRoleName(tx *gorm.DB, name string, exceptID uint) error {
	var count int64
	if err := tx.Model(&models.Role{}).
		Where("name = ? AND id <> ?", name, exceptID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrRoleNameTaken
	}
	return nil
}

// normalize drops empty and duplicate entries, keeping first-seen order.
func normalize(perms []string) models.Permissions {
	seen := make(map[string]struct{}, len(perms))
	out := make(models.Permissions, 0, len(perms))
	for _, p := range perms {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
