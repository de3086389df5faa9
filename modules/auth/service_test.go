package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/whiteboard-relay/modules/store"
	"golang.org/x/crypto/bcrypt"
)

func setupTestService(t *testing.T) *AuthService {
	t.Helper()

	db, err := store.Open(store.Config{Driver: store.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close(db) })

	repo := NewUserRepository(db)
	if err := repo.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewAuthService(repo, NewPasswordHasherWithCost(bcrypt.MinCost), newTestManager(t))
}

func TestAuthService_SignUpAndSignIn(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	user, err := s.SignUp(ctx, "  alice  ", "correct horse", "Alice")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("user.Username = %q, want %q", user.Username, "alice")
	}
	if user.PasswordHash == "correct horse" {
		t.Error("password stored in plain text")
	}

	signedIn, token, err := s.SignIn(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if signedIn.ID != user.ID {
		t.Errorf("SignIn() id = %v, want %v", signedIn.ID, user.ID)
	}

	accountID, err := s.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if accountID != user.ID {
		t.Errorf("VerifyToken() = %v, want %v", accountID, user.ID)
	}
	if s.TokenTTL() != time.Hour {
		t.Errorf("TokenTTL() = %v, want %v", s.TokenTTL(), time.Hour)
	}
}

func TestAuthService_SignUpValidation(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "short username", username: "al", password: "longenough", wantErr: ErrInvalidUsername},
		{name: "long username", username: strings.Repeat("a", 65), password: "longenough", wantErr: ErrInvalidUsername},
		{name: "short password", username: "bob", password: "short", wantErr: ErrWeakPassword},
		{name: "long password", username: "bob", password: strings.Repeat("p", 73), wantErr: ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SignUp(ctx, tt.username, tt.password, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SignUp() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_DuplicateUsername(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	if _, err := s.SignUp(ctx, "carol", "password1", ""); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if _, err := s.SignUp(ctx, "carol", "password2", ""); !errors.Is(err, ErrUserExists) {
		t.Errorf("SignUp() error = %v, want %v", err, ErrUserExists)
	}
}

func TestAuthService_SignInFailures(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	if _, err := s.SignUp(ctx, "dave", "password1", ""); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	if _, _, err := s.SignIn(ctx, "dave", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("SignIn() wrong password error = %v, want %v", err, ErrInvalidCredentials)
	}
	if _, _, err := s.SignIn(ctx, "nobody", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("SignIn() unknown user error = %v, want %v", err, ErrInvalidCredentials)
	}
}

func TestAuthService_IssueToken(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	user, err := s.SignUp(ctx, "erin", "password1", "")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if got, _ := s.VerifyToken(ctx, token); got != user.ID {
		t.Errorf("VerifyToken() = %v, want %v", got, user.ID)
	}

	if _, err := s.IssueToken(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("IssueToken() error = %v, want %v", err, ErrUserNotFound)
	}
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasherWithCost(0)
	hash, err := h.Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !h.Verify("s3cret-pass", hash) {
		t.Error("Verify() = false for matching password")
	}
	if h.Verify("other", hash) {
		t.Error("Verify() = true for wrong password")
	}
}
