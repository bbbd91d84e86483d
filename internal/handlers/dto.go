// internal/handlers/dto.go
package handlers

import (
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/models"
	"taskdeck/internal/service"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest accepts an email or a username in the login field.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// CreateTaskRequest may carry the owner the client believes it is writing
// for; when present it must match the token owner or the create is refused.
type CreateTaskRequest struct {
	OwnerID     *uuid.UUID `json:"owner_id"`
	Title       string     `json:"title" validate:"required,max=100"`
	Description string     `json:"description" validate:"max=1000"`
	Category    string     `json:"category" validate:"max=50"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      string     `json:"status" validate:"omitempty,oneof=todo in-progress done"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTaskRequest is a partial update. Absent fields stay untouched;
// clear_due_date removes the due date and conflicts with due_date.
type UpdateTaskRequest struct {
	Title        *string    `json:"title" validate:"omitempty,min=1,max=100"`
	Description  *string    `json:"description" validate:"omitempty,max=1000"`
	Category     *string    `json:"category" validate:"omitempty,max=50"`
	Priority     *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status       *string    `json:"status" validate:"omitempty,oneof=todo in-progress done"`
	Completed    *bool      `json:"completed"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

type BulkUpdateTasksRequest struct {
	IDs   []uuid.UUID       `json:"ids" validate:"required,min=1"`
	Patch UpdateTaskRequest `json:"patch"`
}

type BulkDeleteTasksRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

func (r CreateTaskRequest) toInput() service.CreateTaskInput {
	return service.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Priority:    models.Priority(r.Priority),
		Status:      models.Status(r.Status),
		DueDate:     r.DueDate,
	}
}

func (r UpdateTaskRequest) toInput() service.UpdateTaskInput {
	in := service.UpdateTaskInput{
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Completed:    r.Completed,
		DueDate:      r.DueDate,
		ClearDueDate: r.ClearDueDate,
	}
	if r.Priority != nil {
		p := models.Priority(*r.Priority)
		in.Priority = &p
	}
	if r.Status != nil {
		s := models.Status(*r.Status)
		in.Status = &s
	}
	return in
}
