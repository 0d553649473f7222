package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/models"
)

// ReplaceSession deletes every refresh token of the user and inserts the new one
// in a single transaction, so a user holds at most one live refresh token.
func (r *GormRepo) ReplaceSession(ctx context.Context, userID uint, token string, expiresAt time.Time) (*models.RefreshToken, error) {
	row := models.RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// RotateSession consumes oldToken and installs newToken in one transaction.
// If oldToken is already gone (a concurrent rotation won) it returns
// ErrRefreshNotFound and nothing changes.
func (r *GormRepo) RotateSession(ctx context.Context, userID uint, oldToken, newToken string, expiresAt time.Time) (*models.RefreshToken, error) {
	row := models.RefreshToken{
		UserID:    userID,
		Token:     newToken,
		ExpiresAt: expiresAt.UTC(),
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("token = ? AND user_id = ?", oldToken, userID).Delete(&models.RefreshToken{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRefreshNotFound
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// VerifyRefreshToken is a mutating read: an expired row is deleted before
// ErrRefreshExpired is returned.
func (r *GormRepo) VerifyRefreshToken(ctx context.Context, token string, now time.Time) (*models.RefreshToken, error) {
	var row models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshNotFound
		}
		return nil, err
	}

	if row.Expired(now) {
		if err := r.DB.WithContext(ctx).Delete(&row).Error; err != nil {
			return nil, err
		}
		return nil, ErrRefreshExpired
	}
	return &row, nil
}

func (r *GormRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	return r.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.RefreshToken{}).Error
}

func (r *GormRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at < ?", now.UTC()).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) CountSessions(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
