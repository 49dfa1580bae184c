package crypto

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	first, err := h.Hash("Password123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, err := h.Hash("Password123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password are identical; expected per-hash salt")
	}
	if strings.Contains(first, "Password123") {
		t.Error("hash contains the cleartext password")
	}
	if !h.Match(first, "Password123") || !h.Match(second, "Password123") {
		t.Error("Match rejected the correct password")
	}
	if h.Match(first, "password123") {
		t.Error("Match accepted a wrong password")
	}
}

func TestPasswordHasherTooLong(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	if _, err := h.Hash(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Hash(73 bytes) = %v, want ErrPasswordTooLong", err)
	}
}

func TestNewPasswordHasherClampsCost(t *testing.T) {
	if h := NewPasswordHasher(99); h.cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", h.cost, bcrypt.DefaultCost)
	}
}

func TestTokenIssueVerify(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue("u1", "management")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != "management" {
		t.Errorf("claims = %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Errorf("lifetime = %v, want 1h", got)
	}
}

func TestTokenExpiry(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return issuedAt }

	token, err := issuer.Issue("u1", "normal")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	issuer.now = func() time.Time { return issuedAt.Add(59 * time.Minute) }
	if _, err := issuer.Verify(token); err != nil {
		t.Fatalf("Verify before expiry: %v", err)
	}

	issuer.now = func() time.Time { return issuedAt.Add(61 * time.Minute) }
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify after expiry = %v, want ErrInvalidToken", err)
	}
}

func TestTokenRejectsForeignSignature(t *testing.T) {
	token, err := NewTokenIssuer("other", time.Hour).Issue("u1", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := NewTokenIssuer("secret", time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify = %v, want ErrInvalidToken", err)
	}
	if _, err := NewTokenIssuer("secret", time.Hour).Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify garbage = %v, want ErrInvalidToken", err)
	}
}
