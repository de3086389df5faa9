package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/whiteboard-relay/modules/store"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

// AuthModule provides account and token services.
type AuthModule struct {
	db      *gorm.DB
	tokens  *TokenManager
	hasher  *PasswordHasher
	service *AuthService
	logger  types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule on a shared database.
func NewModule(db *gorm.DB, tokens *TokenManager, hasher *PasswordHasher, logger types.Logger) *AuthModule {
	if hasher == nil {
		hasher = NewPasswordHasher()
	}
	return &AuthModule{
		db:     db,
		tokens: tokens,
		hasher: hasher,
		logger: logger.WithModule("auth"),
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start migrates the users table and builds the service.
func (m *AuthModule) Start(_ context.Context) error {
	if m.db == nil {
		return errors.New("auth: database not set")
	}
	if m.tokens == nil {
		return ErrMissingSecret
	}

	repo := NewUserRepository(m.db)
	if err := repo.Migrate(); err != nil {
		return err
	}
	m.service = NewAuthService(repo, m.hasher, m.tokens)

	m.logger.Info("Module started")
	return nil
}

// Stop shuts down the module. The shared database is closed by its owner.
func (m *AuthModule) Stop(_ context.Context) error {
	m.logger.Info("Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil || m.service == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "not started",
		}
	}
	if err := store.Ping(ctx, m.db); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "sign-up", json.Unmarshal, json.Marshal, m.handleSignUp,
	); err != nil {
		return fmt.Errorf("failed to register sign-up service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "sign-in", json.Unmarshal, json.Marshal, m.handleSignIn,
	); err != nil {
		return fmt.Errorf("failed to register sign-in service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "issue-token", json.Unmarshal, json.Marshal, m.handleIssueToken,
	); err != nil {
		return fmt.Errorf("failed to register issue-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "verify-token", json.Unmarshal, json.Marshal, m.handleVerifyToken,
	); err != nil {
		return fmt.Errorf("failed to register verify-token service: %w", err)
	}

	m.logger.Info("Registered services", "services", "sign-up, sign-in, issue-token, verify-token")
	return nil
}

func (m *AuthModule) handleSignUp(ctx context.Context, req SignUpRequest, _ *mono.Msg) (SignUpResponse, error) {
	user, err := m.service.SignUp(ctx, req.Username, req.Password, req.Name)
	if err != nil {
		return SignUpResponse{}, err
	}

	m.logger.Info("Account created", "accountID", user.ID)
	return SignUpResponse{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (m *AuthModule) handleSignIn(ctx context.Context, req SignInRequest, _ *mono.Msg) (SignInResponse, error) {
	user, token, err := m.service.SignIn(ctx, req.Username, req.Password)
	if err != nil {
		return SignInResponse{}, err
	}

	return SignInResponse{
		AccountID: user.ID,
		Token:     token,
		ExpiresIn: int64(m.service.TokenTTL().Seconds()),
	}, nil
}

func (m *AuthModule) handleIssueToken(ctx context.Context, req IssueTokenRequest, _ *mono.Msg) (IssueTokenResponse, error) {
	token, err := m.service.IssueToken(ctx, req.AccountID)
	if err != nil {
		return IssueTokenResponse{}, err
	}

	return IssueTokenResponse{
		Token:     token,
		ExpiresIn: int64(m.service.TokenTTL().Seconds()),
	}, nil
}

// handleVerifyToken reports validation failures in the response, not as errors.
func (m *AuthModule) handleVerifyToken(ctx context.Context, req VerifyTokenRequest, _ *mono.Msg) (VerifyTokenResponse, error) {
	accountID, err := m.service.VerifyToken(ctx, req.Token)
	if err != nil {
		errMsg := "invalid token"
		if errors.Is(err, ErrExpiredToken) {
			errMsg = "token expired"
		}
		return VerifyTokenResponse{Valid: false, Error: errMsg}, nil
	}

	return VerifyTokenResponse{Valid: true, AccountID: accountID}, nil
}
