// internal/handlers/auth_handler.go
package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"taskdeck/internal/middleware"
	"taskdeck/internal/service"
	"taskdeck/pkg/auth"
	"taskdeck/pkg/response"
)

type AuthHandler struct {
	authService *service.AuthService
	log         *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With("component", "auth_handler"),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := ValidateStruct(&req); errs != nil {
		return response.ValidationFailed(c, errs)
	}

	user, pair, err := h.authService.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	}, c.IP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserExists):
			return response.Conflict(c, err.Error())
		case errors.Is(err, auth.ErrWeakPassword),
			errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrInvalidUsername):
			return response.BadRequest(c, err.Error())
		}
		h.log.Error("registration failed", "email", req.Email, "error", err)
		return response.Internal(c)
	}

	return response.Created(c, AuthResponse{
		User:         toUserResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := ValidateStruct(&req); errs != nil {
		return response.ValidationFailed(c, errs)
	}

	user, pair, err := h.authService.Login(c.UserContext(), req.Login, req.Password, c.IP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return response.Unauthorized(c, "Invalid credentials")
		case errors.Is(err, service.ErrAccountLocked):
			return response.Locked(c, err.Error())
		case errors.Is(err, service.ErrAccountInactive):
			return response.Forbidden(c, err.Error())
		}
		h.log.Error("login failed", "login", req.Login, "error", err)
		return response.Internal(c)
	}

	return response.Success(c, AuthResponse{
		User:         toUserResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := ValidateStruct(&req); errs != nil {
		return response.ValidationFailed(c, errs)
	}

	pair, err := h.authService.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			return response.Unauthorized(c, "Invalid refresh token")
		case errors.Is(err, service.ErrAccountInactive):
			return response.Forbidden(c, err.Error())
		}
		h.log.Error("token refresh failed", "error", err)
		return response.Internal(c)
	}

	return response.Success(c, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Logout always answers 204. Revoking an unknown token changes nothing.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	h.authService.Logout(c.UserContext(), req.RefreshToken)
	return response.NoContent(c)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	ownerID, err := middleware.GetOwnerID(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	user, err := h.authService.Me(c.UserContext(), ownerID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		h.log.Error("profile lookup failed", "user_id", ownerID, "error", err)
		return response.Internal(c)
	}

	return response.Success(c, toUserResponse(user))
}
