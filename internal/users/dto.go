package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmcampos/minimart-backend/pkg/db/models"
	"github.com/jmcampos/minimart-backend/pkg/enums"
)

// UserDTO is the admin-facing view of an account. Password hashes and
// TOTP secrets never leave the service layer.
type UserDTO struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Address      *string    `json:"address,omitempty"`
	Contact      *string    `json:"contact,omitempty"`
	Role         enums.Role `json:"role"`
	TwoFAEnabled bool       `json:"twofa_enabled"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type CreateUserInput struct {
	Username string  `json:"username" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	Address  *string `json:"address"`
	Contact  *string `json:"contact"`
	Role     string  `json:"role"`
}

type UpdateUserInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password"`
	Address  *string `json:"address"`
	Contact  *string `json:"contact"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func FromModel(u *models.User) *UserDTO {
	return &UserDTO{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Address:      u.Address,
		Contact:      u.Contact,
		Role:         u.Role,
		TwoFAEnabled: u.TwoFAEnabled,
		IsActive:     u.IsActive,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}
