package auth

import (
	"github.com/jmcampos/minimart-backend/internal/users"
)

type RegisterInput struct {
	Username string  `json:"username" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	Address  *string `json:"address"`
	Contact  *string `json:"contact"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned from Login. When TwoFARequired is set the token
// only unlocks the code verification endpoint; everything else stays behind
// the pending session state.
type LoginResult struct {
	Token         string         `json:"token"`
	TwoFARequired bool           `json:"twofa_required"`
	User          *users.UserDTO `json:"user,omitempty"`
}

type Verify2FAInput struct {
	Code string `json:"code" validate:"required"`
}

// SetupResult carries the enrollment material for an authenticator app.
// The secret is not persisted until the first valid code confirms it.
type SetupResult struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}
