// internal/handlers/task_handler.go
package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"taskdeck/internal/middleware"
	"taskdeck/internal/service"
	"taskdeck/pkg/response"
)

type TaskHandler struct {
	taskService *service.TaskService
	log         *slog.Logger
}

func NewTaskHandler(taskService *service.TaskService, log *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		log:         log.With("component", "task_handler"),
	}
}

// List returns the caller's tasks. With ?title= it narrows to exact title
// matches, which clients use as the duplicate precheck before creating.
func (h *TaskHandler) List(c *fiber.Ctx) error {
	ownerID, err := middleware.GetOwnerID(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	if title := c.Query("title"); title != "" {
		tasks, err := h.taskService.ListByTitle(c.UserContext(), ownerID, title)
		if err != nil {
			h.log.Error("title lookup failed", "owner_id", ownerID, "error", err)
			return response.Internal(c)
		}
		return response.Success(c, tasks)
	}

	tasks, err := h.taskService.List(c.UserContext(), ownerID)
	if err != nil {
		h.log.Error("task list failed", "owner_id", ownerID, "error", err)
		return response.Internal(c)
	}
	return response.Success(c, tasks)
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	ownerID, err := middleware.GetOwnerID(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := ValidateStruct(&req); errs != nil {
		return response.ValidationFailed(c, errs)
	}
	if req.OwnerID != nil && *req.OwnerID != ownerID {
		return response.Forbidden(c, "Cannot create tasks for another user")
	}

	task, err := h.taskService.Create(c.UserContext(), ownerID, req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return response.BadRequest(c, err.Error())
		}
		h.log.Error("task create failed", "owner_id", ownerID, "error", err)
		return response.Internal(c)
	}

	return response.Created(c, task)
}

func (h *TaskHandler) Update(c *fiber.Ctx) error {
	ownerID, err := middleware.GetOwnerID(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}
	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid task id")
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := ValidateStruct(&req); errs != nil {
		return response.ValidationFailed(c, errs)
	}

	task, err := h.taskService.Update(c.UserContext(), ownerID, taskID, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			return response.NotFound(c, "Task not found")
		case errors.Is(err, service.ErrInvalidInput):
			return response.BadRequest(c, err.Error())
		}
		h.log.Error("task update failed", "task_id", taskID, "error", err)
		return response.Internal(c)
	}

	return response.Success(c, task)
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	ownerID, err := middleware.GetOwnerID(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}
	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid task id")
	}

	if err := h.taskService.Delete(c.UserContext(), ownerID, taskID); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			return response.NotFound(c, "Task not found")
		}
		h.log.Error("task delete failed", "task_id", taskID, "error", err)
		return response.Internal(c)
	}

	return response.NoContent(c)
}

// BulkUpdate applies one patch to many tasks, all or nothing.
func (h *TaskHandler) BulkUpdate(c *fiber.Ctx) error {
	ownerID, err := middleware.GetOwnerID(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	var req BulkUpdateTasksRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := ValidateStruct(&req); errs != nil {
		return response.ValidationFailed(c, errs)
	}

	if err := h.taskService.BulkUpdate(c.UserContext(), ownerID, req.IDs, req.Patch.toInput()); err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			return response.NotFound(c, "One or more tasks not found")
		case errors.Is(err, service.ErrInvalidInput):
			return response.BadRequest(c, err.Error())
		}
		h.log.Error("bulk update failed", "owner_id", ownerID, "count", len(req.IDs), "error", err)
		return response.Internal(c)
	}

	return response.NoContent(c)
}

// BulkDelete removes many tasks, all or nothing.
func (h *TaskHandler) BulkDelete(c *fiber.Ctx) error {
	ownerID, err := middleware.GetOwnerID(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	var req BulkDeleteTasksRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := ValidateStruct(&req); errs != nil {
		return response.ValidationFailed(c, errs)
	}

	if err := h.taskService.BulkDelete(c.UserContext(), ownerID, req.IDs); err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			return response.NotFound(c, "One or more tasks not found")
		case errors.Is(err, service.ErrInvalidInput):
			return response.BadRequest(c, err.Error())
		}
		h.log.Error("bulk delete failed", "owner_id", ownerID, "count", len(req.IDs), "error", err)
		return response.Internal(c)
	}

	return response.NoContent(c)
}
