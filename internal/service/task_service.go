// internal/service/task_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"taskdeck/internal/models"
	"taskdeck/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTaskNotFound = errors.New("task not found")
)

// TaskService owns task reads and writes for the HTTP API. It re-validates
// everything a client sends; the session layer's checks are a convenience,
// not a trust boundary.
//
// Title uniqueness is deliberately NOT enforced here. Clients precheck via
// ListByTitle before creating; the remaining race is accepted.
type TaskService struct {
	repo repository.TaskRepository
	log  *slog.Logger
	now  func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(repo repository.TaskRepository, log *slog.Logger) *TaskService {
	return &TaskService{
		repo: repo,
		log:  log.With("component", "task_service"),
		now:  time.Now,
	}
}

// CreateTaskInput carries the fields a task is created from.
type CreateTaskInput struct {
	Title       string
	Description string
	Category    string
	Priority    models.Priority
	Status      models.Status
	DueDate     *time.Time
}

// UpdateTaskInput carries a partial update. Nil fields are left untouched.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Category     *string
	Priority     *models.Priority
	Status       *models.Status
	Completed    *bool
	DueDate      *time.Time
	ClearDueDate bool
}

// List returns all tasks of the owner, newest first.
func (s *TaskService) List(ctx context.Context, owner uuid.UUID) ([]models.Task, error) {
	return s.repo.ListByOwner(ctx, owner)
}

// ListByTitle returns the owner's tasks with an exact title match. Serves
// the duplicate-title precheck clients run before creating.
func (s *TaskService) ListByTitle(ctx context.Context, owner uuid.UUID, title string) ([]models.Task, error) {
	return s.repo.ListByTitle(ctx, owner, title)
}

// Create validates and persists a new task for the owner.
func (s *TaskService) Create(ctx context.Context, owner uuid.UUID, input CreateTaskInput) (*models.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if input.Status == "" {
		input.Status = models.StatusTodo
	}

	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	task := &models.Task{
		OwnerID:     owner,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      input.Status,
	}
	if input.DueDate != nil {
		due := *input.DueDate
		task.DueDate = &due
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.log.Info("task created", "task_id", task.ID, "owner_id", owner)
	return task, nil
}

// Update applies a partial update to one task of the owner and returns the
// updated record.
func (s *TaskService) Update(ctx context.Context, owner, id uuid.UUID, input UpdateTaskInput) (*models.Task, error) {
	if err := s.validateUpdate(input); err != nil {
		return nil, err
	}

	task, err := s.repo.Update(ctx, owner, id, input.fields())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// Delete removes one task of the owner.
func (s *TaskService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	s.log.Info("task deleted", "task_id", id, "owner_id", owner)
	return nil
}

// BulkUpdate applies the same partial update to every id, atomically. Any
// missing id fails the whole batch.
func (s *TaskService) BulkUpdate(ctx context.Context, owner uuid.UUID, ids []uuid.UUID, input UpdateTaskInput) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return fmt.Errorf("%w: no task ids given", ErrInvalidInput)
	}
	if err := s.validateUpdate(input); err != nil {
		return err
	}
	fields := input.fields()
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}

	if err := s.repo.UpdateMany(ctx, owner, ids, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	s.log.Info("tasks bulk updated", "count", len(ids), "owner_id", owner)
	return nil
}

// BulkDelete removes every id, atomically. Any missing id fails the whole
// batch.
func (s *TaskService) BulkDelete(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return fmt.Errorf("%w: no task ids given", ErrInvalidInput)
	}

	if err := s.repo.DeleteMany(ctx, owner, ids); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	s.log.Info("tasks bulk deleted", "count", len(ids), "owner_id", owner)
	return nil
}

// dedupeIDs drops repeated ids so the repository's all-or-nothing row count
// check stays honest when a client repeats an id in one batch.
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *TaskService) validateCreate(input CreateTaskInput) error {
	if err := validateTitle(input.Title); err != nil {
		return err
	}
	if utf8.RuneCountInString(input.Description) > models.MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, models.MaxDescriptionLength)
	}
	if !input.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, input.Priority)
	}
	if !input.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Status)
	}
	return s.validateDueDate(input.DueDate)
}

func (s *TaskService) validateUpdate(input UpdateTaskInput) error {
	if input.Title != nil {
		if err := validateTitle(strings.TrimSpace(*input.Title)); err != nil {
			return err
		}
	}
	if input.Description != nil && utf8.RuneCountInString(*input.Description) > models.MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, models.MaxDescriptionLength)
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *input.Priority)
	}
	if input.Status != nil && !input.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *input.Status)
	}
	if input.ClearDueDate && input.DueDate != nil {
		return fmt.Errorf("%w: cannot set and clear the due date at once", ErrInvalidInput)
	}
	return s.validateDueDate(input.DueDate)
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, models.MaxTitleLength)
	}
	if !models.TitleHasContent(title) {
		return fmt.Errorf("%w: title needs at least one letter or digit", ErrInvalidInput)
	}
	return nil
}

// validateDueDate rejects new due dates before the server's local midnight.
// Rows that are already overdue stay valid; only incoming values are gated.
func (s *TaskService) validateDueDate(due *time.Time) error {
	if due == nil {
		return nil
	}
	now := s.now()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	dueLocal := due.In(now.Location())
	dy, dm, dd := dueLocal.Date()
	dueDay := time.Date(dy, dm, dd, 0, 0, 0, 0, now.Location())
	if dueDay.Before(today) {
		return fmt.Errorf("%w: due date cannot be in the past", ErrInvalidInput)
	}
	return nil
}

// fields lowers the input into a gorm column map. Title fields are trimmed
// here so the stored value matches what validation saw.
func (in UpdateTaskInput) fields() map[string]interface{} {
	f := make(map[string]interface{})
	if in.Title != nil {
		f["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		f["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		f["category"] = strings.TrimSpace(*in.Category)
	}
	if in.Priority != nil {
		f["priority"] = *in.Priority
	}
	if in.Status != nil {
		f["status"] = *in.Status
	}
	if in.Completed != nil {
		f["completed"] = *in.Completed
	}
	if in.DueDate != nil {
		f["due_date"] = *in.DueDate
	}
	if in.ClearDueDate {
		f["due_date"] = nil
	}
	return f
}
