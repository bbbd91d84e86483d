// pkg/response/response.go
package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Body is the envelope every endpoint answers with.
type Body struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Machine-readable error codes.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeLocked        = "ACCOUNT_LOCKED"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeBadRequest    = "BAD_REQUEST"
)

func Success(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(Body{
		Success: true,
		Data:    data,
	})
}

func Created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Body{
		Success: true,
		Data:    data,
	})
}

func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func Error(c *fiber.Ctx, statusCode int, code, message string, details any) error {
	return c.Status(statusCode).JSON(Body{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func ValidationFailed(c *fiber.Ctx, details any) error {
	return Error(c, fiber.StatusBadRequest, ErrCodeValidation, "Validation failed", details)
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, ErrCodeBadRequest, message, nil)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Unauthorized"
	}
	return Error(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, message, nil)
}

func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Forbidden"
	}
	return Error(c, fiber.StatusForbidden, ErrCodeForbidden, message, nil)
}

func NotFound(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Resource not found"
	}
	return Error(c, fiber.StatusNotFound, ErrCodeNotFound, message, nil)
}

func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, ErrCodeConflict, message, nil)
}

func Locked(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, ErrCodeLocked, message, nil)
}

func Internal(c *fiber.Ctx) error {
	return Error(c, fiber.StatusInternalServerError, ErrCodeInternalError, "Internal server error", nil)
}

// ErrorHandler maps unhandled fiber errors into the envelope. Wired as the
// app-level error handler in cmd/server.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		errCode := ErrCodeInternalError
		message := "Internal server error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
			switch code {
			case fiber.StatusBadRequest:
				errCode = ErrCodeBadRequest
			case fiber.StatusUnauthorized:
				errCode = ErrCodeUnauthorized
			case fiber.StatusForbidden:
				errCode = ErrCodeForbidden
			case fiber.StatusNotFound:
				errCode = ErrCodeNotFound
			case fiber.StatusConflict:
				errCode = ErrCodeConflict
			}
		}

		return Error(c, code, errCode, message, nil)
	}
}
