package users

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jmcampos/minimart-backend/pkg/config"
	pkgerrors "github.com/jmcampos/minimart-backend/pkg/errors"
	"github.com/jmcampos/minimart-backend/pkg/logger"
	"github.com/jmcampos/minimart-backend/pkg/security"
)

type stubOrderChecker struct {
	exists map[uuid.UUID]bool
}

func (s *stubOrderChecker) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.exists[userID], nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  address TEXT,
  contact TEXT,
  role TEXT NOT NULL DEFAULT 'user',
  twofa_enabled INTEGER NOT NULL DEFAULT 0,
  twofa_secret TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

type fixture struct {
	svc    Service
	repo   *Repository
	orders *stubOrderChecker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := NewRepository(newTestDB(t))
	orders := &stubOrderChecker{exists: map[uuid.UUID]bool{}}
	logg := logger.New(logger.Options{ServiceName: "users-test", Output: io.Discard})
	svc, err := NewService(repo, orders, config.PasswordConfig{MinLength: 6}, logg)
	require.NoError(t, err)
	return &fixture{svc: svc, repo: repo, orders: orders}
}

func TestAddUser_HashesPasswordAndNormalizesEmail(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	dto, err := fx.svc.AddUser(ctx, CreateUserInput{
		Username: "alice",
		Email:    "  Alice@Example.COM ",
		Password: "hunter22",
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", dto.Email)
	require.True(t, dto.IsActive)

	stored, err := fx.repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotEqual(t, "hunter22", stored.PasswordHash)
	ok, err := security.VerifyPassword("hunter22", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAddUser_Validation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.AddUser(ctx, CreateUserInput{Username: "a", Email: "a@b.c", Password: "short"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = fx.svc.AddUser(ctx, CreateUserInput{Username: "a", Email: "a@b.c", Password: "longenough", Role: "superuser"})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestAddUser_DuplicateEmail(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.AddUser(ctx, CreateUserInput{Username: "alice", Email: "dup@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = fx.svc.AddUser(ctx, CreateUserInput{Username: "bob", Email: "DUP@example.com", Password: "hunter22"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestUpdateUser_PasswordOnlyWhenProvided(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.svc.AddUser(ctx, CreateUserInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)
	before, err := fx.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)

	name := "alicia"
	updated, err := fx.svc.UpdateUser(ctx, created.ID, UpdateUserInput{Username: &name})
	require.NoError(t, err)
	require.Equal(t, "alicia", updated.Username)

	after, err := fx.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, before.PasswordHash, after.PasswordHash)

	newPass := "newsecret"
	_, err = fx.svc.UpdateUser(ctx, created.ID, UpdateUserInput{Password: &newPass})
	require.NoError(t, err)
	after, err = fx.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotEqual(t, before.PasswordHash, after.PasswordHash)
}

func TestDeleteUser_Guards(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	admin, err := fx.svc.AddUser(ctx, CreateUserInput{Username: "root", Email: "root@example.com", Password: "hunter22", Role: "admin"})
	require.NoError(t, err)
	err = fx.svc.DeleteUser(ctx, admin.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	buyer, err := fx.svc.AddUser(ctx, CreateUserInput{Username: "buyer", Email: "buyer@example.com", Password: "hunter22"})
	require.NoError(t, err)
	fx.orders.exists[buyer.ID] = true
	err = fx.svc.DeleteUser(ctx, buyer.ID)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())

	idle, err := fx.svc.AddUser(ctx, CreateUserInput{Username: "idle", Email: "idle@example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.NoError(t, fx.svc.DeleteUser(ctx, idle.ID))

	err = fx.svc.DeleteUser(ctx, idle.ID)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	users, err := fx.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
}
