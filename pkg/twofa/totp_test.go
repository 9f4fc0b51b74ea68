package twofa

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

func TestGenerateSecret(t *testing.T) {
	enrollment, err := GenerateSecret("MiniMart", "shopper@example.com")
	if err != nil {
		t.Fatalf("GenerateSecret returned error: %v", err)
	}
	if enrollment.Secret == "" {
		t.Fatal("expected non-empty secret")
	}
	if !strings.HasPrefix(enrollment.ProvisioningURI, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning uri %q", enrollment.ProvisioningURI)
	}
	if !strings.Contains(enrollment.ProvisioningURI, "MiniMart") {
		t.Fatalf("issuer missing from uri %q", enrollment.ProvisioningURI)
	}
}

func TestGenerateSecretRequiresIssuerAndAccount(t *testing.T) {
	if _, err := GenerateSecret("", "shopper@example.com"); err == nil {
		t.Fatal("expected error for missing issuer")
	}
	if _, err := GenerateSecret("MiniMart", ""); err == nil {
		t.Fatal("expected error for missing account name")
	}
}

func TestVerifyAcceptsAdjacentSteps(t *testing.T) {
	enrollment, err := GenerateSecret("MiniMart", "shopper@example.com")
	if err != nil {
		t.Fatalf("GenerateSecret returned error: %v", err)
	}

	now := time.Now().UTC()
	opts := totp.ValidateOpts{Period: codePeriod, Skew: 1, Digits: codeDigits, Algorithm: otp.AlgorithmSHA1}

	for _, offset := range []time.Duration{-codePeriod * time.Second, 0, codePeriod * time.Second} {
		code, err := totp.GenerateCodeCustom(enrollment.Secret, now.Add(offset), opts)
		if err != nil {
			t.Fatalf("generating code at offset %v: %v", offset, err)
		}
		if !Verify(code, enrollment.Secret, now) {
			t.Fatalf("expected code for offset %v to verify", offset)
		}
	}

	stale, err := totp.GenerateCodeCustom(enrollment.Secret, now.Add(-3*codePeriod*time.Second), opts)
	if err != nil {
		t.Fatalf("generating stale code: %v", err)
	}
	if Verify(stale, enrollment.Secret, now) {
		t.Fatal("expected code three steps back to be rejected")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	enrollment, err := GenerateSecret("MiniMart", "shopper@example.com")
	if err != nil {
		t.Fatalf("GenerateSecret returned error: %v", err)
	}
	if Verify("000000", enrollment.Secret, time.Now()) && Verify("999999", enrollment.Secret, time.Now()) {
		t.Fatal("both fixed codes verified, secret is not random")
	}
	if Verify("", enrollment.Secret, time.Now()) {
		t.Fatal("empty code must not verify")
	}
	if Verify("123456", "", time.Now()) {
		t.Fatal("empty secret must not verify")
	}
	if Verify("not-a-code", enrollment.Secret, time.Now()) {
		t.Fatal("non-numeric code must not verify")
	}
}
