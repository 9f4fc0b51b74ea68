package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jmcampos/minimart-backend/internal/users"
	pkgauth "github.com/jmcampos/minimart-backend/pkg/auth"
	"github.com/jmcampos/minimart-backend/pkg/config"
	pkgdb "github.com/jmcampos/minimart-backend/pkg/db"
	"github.com/jmcampos/minimart-backend/pkg/db/models"
	"github.com/jmcampos/minimart-backend/pkg/enums"
	pkgerrors "github.com/jmcampos/minimart-backend/pkg/errors"
	"github.com/jmcampos/minimart-backend/pkg/logger"
	"github.com/jmcampos/minimart-backend/pkg/security"
	"github.com/jmcampos/minimart-backend/pkg/session"
	"github.com/jmcampos/minimart-backend/pkg/twofa"
)

type sessionManager interface {
	Create(ctx context.Context, sess *session.Session) error
	Save(ctx context.Context, sess *session.Session) error
	Revoke(ctx context.Context, sessionID string) error
}

type cartRehydrator interface {
	Rehydrate(ctx context.Context, sess *session.Session) error
}

// Service implements registration, password login, the TOTP second factor,
// and session teardown.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Verify2FA(ctx context.Context, sess *session.Session, code string) (*users.UserDTO, error)
	BeginTwoFASetup(ctx context.Context, sess *session.Session) (*SetupResult, error)
	ConfirmTwoFASetup(ctx context.Context, sess *session.Session, code string) error
	DisableTwoFA(ctx context.Context, sess *session.Session) error
	Logout(ctx context.Context, sessionID string) error
}

type service struct {
	repo     *users.Repository
	sessions sessionManager
	cart     cartRehydrator
	jwt      config.JWTConfig
	password config.PasswordConfig
	twofa    config.TwoFAConfig
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(
	repo *users.Repository,
	sessions sessionManager,
	cart cartRehydrator,
	cfg *config.Config,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if cart == nil {
		return nil, fmt.Errorf("cart rehydrator required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		sessions: sessions,
		cart:     cart,
		jwt:      cfg.JWT,
		password: cfg.Password,
		twofa:    cfg.TwoFA,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and email are required")
	}
	if err := security.ValidateLength(input.Password, s.password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password too short")
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
		Role:         enums.RoleUser,
		IsActive:     true,
	})
	if err != nil {
		if pkgdb.IsUniqueViolation(err, "idx_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "creating user")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return users.FromModel(user), nil
}

// Login verifies the password and opens a server-side session. Accounts
// with TOTP enabled get a pending session that only the code verification
// endpoint accepts. Lookup failures and bad passwords share one message.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidCredentials()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "looking up user")
	}
	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, invalidCredentials()
	}
	if !user.IsActive {
		return nil, invalidCredentials()
	}

	state := enums.SessionStateAuthenticated
	if user.TwoFAEnabled {
		state = enums.SessionStatePending2FA
	}
	sess := &session.Session{
		ID:     pkgauth.NewSessionID(),
		UserID: user.ID,
		Role:   user.Role,
		State:  state,
	}
	if sess.Authenticated() {
		if err := s.cart.Rehydrate(ctx, sess); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "creating session")
	}

	token, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    sess.ID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token")
	}

	result := &LoginResult{Token: token, TwoFARequired: user.TwoFAEnabled}
	if sess.Authenticated() {
		if err := s.repo.RecordLogin(ctx, user.ID); err != nil {
			s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "recording login time", err)
		}
		result.User = users.FromModel(user)
	}
	s.logg.Info(s.logg.WithSessionID(s.logg.WithUserID(ctx, user.ID.String()), sess.ID), "login accepted")
	return result, nil
}

// Verify2FA completes a pending login with a TOTP code.
func (s *service) Verify2FA(ctx context.Context, sess *session.Session, code string) (*users.UserDTO, error) {
	if sess.State != enums.SessionStatePending2FA {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no pending verification for this session")
	}
	user, err := s.loadSessionUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	if user.TwoFASecret == nil || !twofa.Verify(code, *user.TwoFASecret, s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid verification code")
	}

	sess.State = enums.SessionStateAuthenticated
	if err := s.cart.Rehydrate(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving session")
	}
	if err := s.repo.RecordLogin(ctx, user.ID); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "recording login time", err)
	}
	return users.FromModel(user), nil
}

// BeginTwoFASetup parks a fresh secret on the session and returns the
// enrollment material. Calling it again before confirmation returns the
// same secret, so a client can re-render the QR code without invalidating
// the one already scanned.
func (s *service) BeginTwoFASetup(ctx context.Context, sess *session.Session) (*SetupResult, error) {
	user, err := s.loadSessionUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	if user.TwoFAEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "two-factor authentication already enabled")
	}

	if sess.TwoFASetupSecret != "" {
		return &SetupResult{
			Secret:          sess.TwoFASetupSecret,
			ProvisioningURI: twofa.ProvisioningURI(s.twofa.Issuer, user.Email, sess.TwoFASetupSecret),
		}, nil
	}

	enrollment, err := twofa.GenerateSecret(s.twofa.Issuer, user.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating totp secret")
	}
	sess.TwoFASetupSecret = enrollment.Secret
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving session")
	}
	return &SetupResult{Secret: enrollment.Secret, ProvisioningURI: enrollment.ProvisioningURI}, nil
}

// ConfirmTwoFASetup persists the parked secret once the user proves their
// authenticator produces valid codes for it.
func (s *service) ConfirmTwoFASetup(ctx context.Context, sess *session.Session, code string) error {
	if sess.TwoFASetupSecret == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no setup in progress")
	}
	if !twofa.Verify(code, sess.TwoFASetupSecret, s.now()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid verification code")
	}

	secret := sess.TwoFASetupSecret
	if err := s.repo.SetTwoFA(ctx, sess.UserID, true, &secret); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "enabling two-factor authentication")
	}
	sess.TwoFASetupSecret = ""
	if err := s.sessions.Save(ctx, sess); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving session")
	}
	s.logg.Info(s.logg.WithUserID(ctx, sess.UserID.String()), "two-factor authentication enabled")
	return nil
}

// DisableTwoFA drops the secret and flag for the session's user. An
// authenticated session is the only requirement; no fresh code or password
// is demanded.
func (s *service) DisableTwoFA(ctx context.Context, sess *session.Session) error {
	user, err := s.loadSessionUser(ctx, sess)
	if err != nil {
		return err
	}
	if !user.TwoFAEnabled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "two-factor authentication is not enabled")
	}
	if err := s.repo.SetTwoFA(ctx, user.ID, false, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "disabling two-factor authentication")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "two-factor authentication disabled")
	return nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "revoking session")
	}
	return nil
}

func (s *service) loadSessionUser(ctx context.Context, sess *session.Session) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is disabled")
	}
	return user, nil
}

func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
}
