package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmcampos/minimart-backend/pkg/config"
	pkgdb "github.com/jmcampos/minimart-backend/pkg/db"
	"github.com/jmcampos/minimart-backend/pkg/db/models"
	"github.com/jmcampos/minimart-backend/pkg/enums"
	pkgerrors "github.com/jmcampos/minimart-backend/pkg/errors"
	"github.com/jmcampos/minimart-backend/pkg/logger"
	"github.com/jmcampos/minimart-backend/pkg/security"
)

type orderChecker interface {
	ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Service is the admin-only account management surface.
type Service interface {
	ListUsers(ctx context.Context) ([]UserDTO, error)
	AddUser(ctx context.Context, input CreateUserInput) (*UserDTO, error)
	UpdateUser(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*UserDTO, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	orders   orderChecker
	password config.PasswordConfig
	logg     *logger.Logger
}

func NewService(repo *Repository, orders orderChecker, password config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order checker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, orders: orders, password: password, logg: logg}, nil
}

func (s *service) ListUsers(ctx context.Context) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) AddUser(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and email are required")
	}
	if err := security.ValidateLength(input.Password, s.password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password too short")
	}

	role := enums.RoleUser
	if input.Role != "" {
		parsed, err := enums.ParseRole(input.Role)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
		}
		role = parsed
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user, err := s.repo.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Address:      input.Address,
		Contact:      input.Contact,
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		if pkgdb.IsUniqueViolation(err, "idx_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "creating user")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user created by admin")
	return FromModel(user), nil
}

func (s *service) UpdateUser(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	if _, err := s.loadUser(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Username != nil {
		if strings.TrimSpace(*input.Username) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username cannot be empty")
		}
		updates["username"] = strings.TrimSpace(*input.Username)
	}
	if input.Email != nil {
		if strings.TrimSpace(*input.Email) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
		}
		updates["email"] = strings.TrimSpace(*input.Email)
	}
	if input.Password != nil && *input.Password != "" {
		if err := security.ValidateLength(*input.Password, s.password); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password too short")
		}
		hash, err := security.HashPassword(*input.Password, s.password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
		}
		updates["password_hash"] = hash
	}
	if input.Address != nil {
		updates["address"] = *input.Address
	}
	if input.Contact != nil {
		updates["contact"] = *input.Contact
	}
	if input.Role != nil {
		role, err := enums.ParseRole(*input.Role)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
		}
		updates["role"] = role
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			if pkgdb.IsUniqueViolation(err, "idx_users_email") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating user")
		}
	}
	return s.loadUser(ctx, id)
}

// DeleteUser refuses admin accounts and accounts with order history; the
// order rows reference the user and have no anonymization path.
func (s *service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin accounts cannot be deleted")
	}
	hasOrders, err := s.orders.ExistsForUser(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "checking order history")
	}
	if hasOrders {
		return pkgerrors.New(pkgerrors.CodeConflict, "user has order history and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deleting user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, id.String()), "user deleted by admin")
	return nil
}

func (s *service) loadUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading user")
	}
	return FromModel(user), nil
}
