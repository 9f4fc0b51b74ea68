package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmcampos/minimart-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string     `gorm:"column:username;not null"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Address      *string    `gorm:"column:address"`
	Contact      *string    `gorm:"column:contact"`
	Role         enums.Role `gorm:"column:role;type:text;not null;default:'user'"`
	TwoFAEnabled bool       `gorm:"column:twofa_enabled;not null;default:false"`
	TwoFASecret  *string    `gorm:"column:twofa_secret"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
