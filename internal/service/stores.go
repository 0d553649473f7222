package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
)

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
}

type SessionStore interface {
	ReplaceSession(ctx context.Context, userID uint, token string, expiresAt time.Time) (*models.RefreshToken, error)
	RotateSession(ctx context.Context, userID uint, oldToken, newToken string, expiresAt time.Time) (*models.RefreshToken, error)
	VerifyRefreshToken(ctx context.Context, token string, now time.Time) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type RoleReader interface {
	GetRole(ctx context.Context, id uint) (*models.Role, error)
}

type RoleStore interface {
	RoleReader
	ListRoles(ctx context.Context, offset, limit int) ([]models.Role, error)
	CreateRole(ctx context.Context, role *models.Role) error
	UpdateRole(ctx context.Context, id uint, upd repo.RoleUpdate) (*models.Role, error)
	DeleteRole(ctx context.Context, id uint) (*models.Role, error)
	AddPermission(ctx context.Context, id uint, permission string) (*models.Role, error)
	RemovePermission(ctx context.Context, id uint, permission string) (*models.Role, error)
	AssignRole(ctx context.Context, userID, roleID uint) (*models.User, error)
}

var (
	_ UserStore    = (*repo.GormRepo)(nil)
	_ SessionStore = (*repo.GormRepo)(nil)
	_ RoleStore    = (*repo.GormRepo)(nil)
)
