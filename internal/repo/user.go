package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/models"
)

func (r *GormRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser checks username and email uniqueness and inserts in one transaction.
// The unique indexes still catch a concurrent insert that slips past the checks.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, u); err != nil {
			return err
		}
		return tx.Create(u).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.duplicateUser(ctx, u)
	}
	return err
}

// UpdateUser saves profile fields; username and email must stay unique across other users.
func (r *GormRepo) UpdateUser(ctx context.Context, u *models.User) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, u); err != nil {
			return err
		}
		return tx.Model(u).Select("username", "email", "password_hash", "additional_info").Updates(u).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.duplicateUser(ctx, u)
	}
	return err
}

// duplicateUser names the unique index a racing insert or update hit. The
// winning row is committed by now, so the same checks see it.
func (r *GormRepo) duplicateUser(ctx context.Context, u *models.User) error {
	err := checkUnique(r.DB.WithContext(ctx), u)
	if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
		return err
	}
	return ErrUserExists
}

func checkUnique(tx *gorm.DB, u *models.User) error {
	var count int64
	if err := tx.Model(&models.User{}).
		Where("username = ? AND id <> ?", u.Username, u.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}

	if err := tx.Model(&models.User{}).
		Where("email = ? AND id <> ?", u.Email, u.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return nil
}

// AssignRole returns gorm.ErrRecordNotFound when either side is missing.
func (r *GormRepo) AssignRole(ctx context.Context, userID, roleID uint) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Select("id").First(&role, roleID).Error; err != nil {
			return err
		}
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		user.RoleID = roleID
		return tx.Model(&user).Update("role_id", roleID).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
