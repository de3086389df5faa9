package auth

import "time"

// SignUpRequest represents an account registration request.
type SignUpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SignUpResponse represents an account registration response.
type SignUpResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SignInRequest represents a sign-in request.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignInResponse carries the issued token.
type SignInResponse struct {
	AccountID string `json:"account_id"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// IssueTokenRequest asks for a fresh token for an authenticated account.
type IssueTokenRequest struct {
	AccountID string `json:"account_id"`
}

// IssueTokenResponse carries the issued token.
type IssueTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// VerifyTokenRequest represents a token verification request.
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

// VerifyTokenResponse represents a token verification response.
type VerifyTokenResponse struct {
	Valid     bool   `json:"valid"`
	AccountID string `json:"account_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
