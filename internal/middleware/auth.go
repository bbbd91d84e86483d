// internal/middleware/auth.go
package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"taskdeck/pkg/auth"
	"taskdeck/pkg/response"
)

// Locals keys set by Protected.
const (
	LocalUserID    = "user_id"
	LocalUserEmail = "user_email"
	LocalUsername  = "username"
)

var ErrNoUser = errors.New("no authenticated user in request context")

// Protected validates the bearer token and stores the caller's identity in
// the request locals. Routes behind it can rely on GetOwnerID succeeding.
func Protected(tokenManager *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return response.Unauthorized(c, "missing or malformed authorization header")
		}

		claims, err := tokenManager.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				return response.Unauthorized(c, "token has expired")
			}
			return response.Unauthorized(c, "invalid token")
		}

		ownerID, err := claims.OwnerID()
		if err != nil {
			return response.Unauthorized(c, "invalid token")
		}

		c.Locals(LocalUserID, ownerID)
		c.Locals(LocalUserEmail, claims.Email)
		c.Locals(LocalUsername, claims.Username)

		return c.Next()
	}
}

// GetOwnerID returns the authenticated user's id from the request locals.
func GetOwnerID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := c.Locals(LocalUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrNoUser
	}
	return id, nil
}

// GetUserEmail returns the authenticated user's email, or "" when absent.
func GetUserEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(LocalUserEmail).(string)
	return email
}
