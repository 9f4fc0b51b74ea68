package twofa

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	codePeriod = 30
	codeDigits = otp.DigitsSix
)

// Enrollment carries what a client needs to add an account to an
// authenticator app.
type Enrollment struct {
	Secret          string
	ProvisioningURI string
}

// GenerateSecret creates a fresh base32 TOTP secret plus its otpauth URI.
func GenerateSecret(issuer, accountName string) (*Enrollment, error) {
	if issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if accountName == "" {
		return nil, fmt.Errorf("account name is required")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      codePeriod,
		Digits:      codeDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generating totp secret: %w", err)
	}
	return &Enrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// ProvisioningURI rebuilds the otpauth URI for an already generated secret,
// so a setup flow can hand out the same secret more than once.
func ProvisioningURI(issuer, accountName, secret string) string {
	values := url.Values{}
	values.Set("secret", secret)
	values.Set("issuer", issuer)
	values.Set("algorithm", "SHA1")
	values.Set("digits", "6")
	values.Set("period", fmt.Sprintf("%d", codePeriod))
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + accountName,
		RawQuery: values.Encode(),
	}
	return u.String()
}

// Verify checks a six-digit code against the secret, accepting one step of
// clock skew in either direction.
func Verify(code, secret string, at time.Time) bool {
	if code == "" || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, at.UTC(), totp.ValidateOpts{
		Period:    codePeriod,
		Skew:      1,
		Digits:    codeDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return ok
}
