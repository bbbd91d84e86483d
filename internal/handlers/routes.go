// internal/handlers/routes.go
package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"taskdeck/internal/middleware"
	"taskdeck/internal/service"
	"taskdeck/pkg/auth"
)

// Handlers bundles the HTTP handlers for route registration.
type Handlers struct {
	Auth  *AuthHandler
	Tasks *TaskHandler
}

func NewHandlers(authService *service.AuthService, taskService *service.TaskService, log *slog.Logger) *Handlers {
	return &Handlers{
		Auth:  NewAuthHandler(authService, log),
		Tasks: NewTaskHandler(taskService, log),
	}
}

// SetupRoutes registers every endpoint on the app.
func SetupRoutes(app *fiber.App, h *Handlers, tokenManager *auth.TokenManager) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/refresh", h.Auth.Refresh)
	authGroup.Post("/logout", h.Auth.Logout)
	authGroup.Get("/me", middleware.Protected(tokenManager), h.Auth.Me)

	tasks := api.Group("/tasks", middleware.Protected(tokenManager))
	tasks.Get("/", h.Tasks.List)
	tasks.Post("/", h.Tasks.Create)
	tasks.Patch("/", h.Tasks.BulkUpdate)
	tasks.Delete("/", h.Tasks.BulkDelete)
	tasks.Patch("/:id", h.Tasks.Update)
	tasks.Delete("/:id", h.Tasks.Delete)
}
