package api

import (
	"strings"

	"github.com/example/whiteboard-relay/modules/auth"
	"github.com/gofiber/fiber/v2"
)

const (
	// AccountContextKey is the key used to store the account id in the Fiber context.
	AccountContextKey = "accountID"
	// TokenCookie carries the token for browser clients.
	TokenCookie = "token"
)

// AuthMiddleware creates a middleware that validates JWT tokens from the
// Authorization header or, failing that, the token cookie.
func AuthMiddleware(authAdapter auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(TokenCookie)

		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
					Error:   "unauthorized",
					Message: "Invalid authorization header format. Use: Bearer <token>",
				})
			}
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Token is required",
			})
		}

		accountID, err := authAdapter.VerifyToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(AccountContextKey, accountID)
		return c.Next()
	}
}

func accountFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(AccountContextKey).(string)
	return id
}
