package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const DefaultRoleID uint = 1

type User struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Username       string    `gorm:"uniqueIndex;not null"      json:"username"`
	Email          string    `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash   string    `gorm:"size:1024;not null"        json:"-"`
	RoleID         uint      `gorm:"not null;default:1;index"  json:"role_id"`
	Role           *Role     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	RegisteredAt   time.Time `gorm:"not null"                  json:"registered_at"`
	IsActive       bool      `gorm:"not null;default:true"     json:"is_active"`
	IsSuperuser    bool      `gorm:"not null;default:false"    json:"is_superuser"`
	IsVerified     bool      `gorm:"not null;default:false"    json:"is_verified"`
	AdditionalInfo *string   `                                 json:"additional_info"`
}

type Role struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string      `gorm:"uniqueIndex;not null"     json:"name"`
	Permissions Permissions `gorm:"not null"                 json:"permissions"`
}

// Permissions is a text[] column on postgres and an array literal in text
// columns elsewhere.
type Permissions []string

func (p Permissions) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	return pq.StringArray(p).Value()
}

func (p *Permissions) Scan(src any) error {
	return (*pq.StringArray)(p).Scan(src)
}

func (Permissions) GormDataType() string {
	return "text"
}

func (Permissions) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"            json:"id"`
	UserID    uint      `gorm:"index;not null"        json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Token     string    `gorm:"uniqueIndex;not null"  json:"-"`
	ExpiresAt time.Time `gorm:"not null;index"        json:"expires_at"`
}

func (r RefreshToken) Expired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

func (r Role) Has(permission string) bool {
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
