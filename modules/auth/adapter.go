package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort is what other modules use to reach auth functionality.
type AuthPort interface {
	SignUp(ctx context.Context, req SignUpRequest) (*SignUpResponse, error)
	SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error)
	IssueToken(ctx context.Context, accountID string) (*IssueTokenResponse, error)
	VerifyToken(ctx context.Context, token string) (string, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{container: container}
}

func (a *AuthAdapter) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResponse, error) {
	var resp SignUpResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "sign-up", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("sign-up request failed: %w", err)
	}
	return &resp, nil
}

func (a *AuthAdapter) SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	var resp SignInResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "sign-in", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("sign-in request failed: %w", err)
	}
	return &resp, nil
}

func (a *AuthAdapter) IssueToken(ctx context.Context, accountID string) (*IssueTokenResponse, error) {
	req := IssueTokenRequest{AccountID: accountID}
	var resp IssueTokenResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "issue-token", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("issue-token request failed: %w", err)
	}
	return &resp, nil
}

// VerifyToken returns the account id the token was issued to.
func (a *AuthAdapter) VerifyToken(ctx context.Context, token string) (string, error) {
	req := VerifyTokenRequest{Token: token}
	var resp VerifyTokenResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "verify-token", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return "", fmt.Errorf("verify-token request failed: %w", err)
	}
	if !resp.Valid {
		return "", fmt.Errorf("%w: %s", ErrInvalidToken, resp.Error)
	}
	return resp.AccountID, nil
}
