package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key"

func newTestManager(t *testing.T, opts ...TokenOption) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(TokenConfig{SecretKey: testSecret, TTL: time.Hour, Issuer: "test-issuer"}, opts...)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	return m
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Issue("account-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	accountID, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if accountID != "account-123" {
		t.Errorf("Verify() = %v, want %v", accountID, "account-123")
	}
}

func TestNewTokenManager_MissingSecret(t *testing.T) {
	_, err := NewTokenManager(TokenConfig{})
	if !errors.Is(err, ErrMissingSecret) {
		t.Errorf("NewTokenManager() error = %v, want %v", err, ErrMissingSecret)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := issuedAt
	m := newTestManager(t, WithClock(func() time.Time { return clock }))

	token, err := m.Issue("account-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock = issuedAt.Add(59 * time.Minute)
	if _, err := m.Verify(token); err != nil {
		t.Fatalf("Verify() before expiry error = %v", err)
	}

	clock = issuedAt.Add(2 * time.Hour)
	if _, err := m.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want %v", err, ErrExpiredToken)
	}
}

func TestTokenManager_Rejects(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()

	sign := func(method jwt.SigningMethod, key any, claims jwt.Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return s
	}

	valid := Claims{
		AccountID: "account-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "unsigned", token: sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid)},
		{name: "wrong secret", token: sign(jwt.SigningMethodHS256, []byte("other-secret"), valid)},
		{name: "wrong algorithm", token: sign(jwt.SigningMethodHS512, []byte(testSecret), valid)},
		{name: "no expiry", token: sign(jwt.SigningMethodHS256, []byte(testSecret), Claims{AccountID: "account-123"})},
		{name: "no account", token: sign(jwt.SigningMethodHS256, []byte(testSecret), Claims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accountID, err := m.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want %v", err, ErrInvalidToken)
			}
			if accountID != "" {
				t.Errorf("Verify() = %q, want empty", accountID)
			}
		})
	}
}

func TestTokenManager_AcceptsLegacyClaims(t *testing.T) {
	m := newTestManager(t)

	legacy := jwt.MapClaims{
		"_id": "legacy-account",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, legacy).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	accountID, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if accountID != "legacy-account" {
		t.Errorf("Verify() = %v, want %v", accountID, "legacy-account")
	}
}
