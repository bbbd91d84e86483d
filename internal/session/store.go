// internal/session/store.go
package session

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"taskdeck/internal/feed"
	"taskdeck/internal/models"
)

// Store is the remote persistence port a session reconciles against. Every
// method is scoped to the authenticated owner by the implementation; ids of
// other users' tasks behave as if they did not exist.
type Store interface {
	// FetchTasks returns all of the owner's tasks.
	FetchTasks(ctx context.Context) ([]models.Task, error)

	// TitleExists reports whether the owner already has a task whose title
	// matches exactly (case-sensitive).
	TitleExists(ctx context.Context, title string) (bool, error)

	// InsertTask persists a draft and returns the authoritative record,
	// with server-assigned id and timestamps.
	InsertTask(ctx context.Context, draft TaskDraft) (models.Task, error)

	// UpdateTask applies a partial update and returns the updated record.
	UpdateTask(ctx context.Context, id uuid.UUID, patch TaskPatch) (models.Task, error)

	// DeleteTask removes a single task.
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// UpdateTasks applies the same partial update to every id, atomically.
	UpdateTasks(ctx context.Context, ids []uuid.UUID, patch TaskPatch) error

	// DeleteTasks removes every id, atomically.
	DeleteTasks(ctx context.Context, ids []uuid.UUID) error
}

// Feed delivers the owner's change events to a session.
type Feed interface {
	Subscribe(ctx context.Context, handler func(feed.Event)) (Subscription, error)
}

// Subscription is a live feed attachment.
type Subscription interface {
	Unsubscribe() error
}

// TaskDraft carries the fields a new task is created from. OwnerID is
// stamped by the session, never by the caller; the server still rejects a
// draft whose owner does not match the token.
type TaskDraft struct {
	OwnerID     uuid.UUID       `json:"owner_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Priority    models.Priority `json:"priority"`
	Status      models.Status   `json:"status"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
}

func (d *TaskDraft) normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	if d.Priority == "" {
		d.Priority = models.PriorityMedium
	}
	if d.Status == "" {
		d.Status = models.StatusTodo
	}
}

func (d TaskDraft) validate(now time.Time) error {
	if err := validateTitle(d.Title); err != nil {
		return err
	}
	if utf8.RuneCountInString(d.Description) > models.MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, models.MaxDescriptionLength)
	}
	if !d.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, d.Priority)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, d.Status)
	}
	if err := validateDueDate(d.DueDate, now); err != nil {
		return err
	}
	return nil
}

// EditPatch carries the fields a full edit may change. Nil fields keep the
// current value. Completion is deliberately absent; it only moves through
// ToggleComplete and BulkComplete.
type EditPatch struct {
	Title        *string
	Description  *string
	Category     *string
	Priority     *models.Priority
	Status       *models.Status
	DueDate      *time.Time
	ClearDueDate bool
}

func (p *EditPatch) normalize() {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		p.Description = &d
	}
	if p.Category != nil {
		c := strings.TrimSpace(*p.Category)
		p.Category = &c
	}
}

func (p EditPatch) validate(now time.Time) error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil && utf8.RuneCountInString(*p.Description) > models.MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, models.MaxDescriptionLength)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, *p.Priority)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, *p.Status)
	}
	if p.ClearDueDate && p.DueDate != nil {
		return fmt.Errorf("%w: cannot set and clear the due date at once", ErrValidation)
	}
	if err := validateDueDate(p.DueDate, now); err != nil {
		return err
	}
	return nil
}

// applyTo merges the patch into a copy of t, exactly the fields the edit
// carries and nothing else. Timestamps are left alone; the server's echo is
// authoritative for those.
func (p EditPatch) applyTo(t models.Task) models.Task {
	merged := t.Clone()
	if p.Title != nil {
		merged.Title = *p.Title
	}
	if p.Description != nil {
		merged.Description = *p.Description
	}
	if p.Category != nil {
		merged.Category = *p.Category
	}
	if p.Priority != nil {
		merged.Priority = *p.Priority
	}
	if p.Status != nil {
		merged.Status = *p.Status
	}
	if p.DueDate != nil {
		due := *p.DueDate
		merged.DueDate = &due
	}
	if p.ClearDueDate {
		merged.DueDate = nil
	}
	return merged
}

func (p EditPatch) wire() TaskPatch {
	return TaskPatch{
		Title:        p.Title,
		Description:  p.Description,
		Category:     p.Category,
		Priority:     p.Priority,
		Status:       p.Status,
		DueDate:      p.DueDate,
		ClearDueDate: p.ClearDueDate,
	}
}

// TaskPatch is the wire-level partial update sent to the store. Restricted
// mutations (toggle, cycle, bulk-complete) construct it with only their own
// fields set, so nothing else can be overwritten by accident.
type TaskPatch struct {
	Title        *string          `json:"title,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Category     *string          `json:"category,omitempty"`
	Priority     *models.Priority `json:"priority,omitempty"`
	Status       *models.Status   `json:"status,omitempty"`
	Completed    *bool            `json:"completed,omitempty"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	ClearDueDate bool             `json:"clear_due_date,omitempty"`
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, models.MaxTitleLength)
	}
	if !models.TitleHasContent(title) {
		return fmt.Errorf("%w: title needs at least one letter or digit", ErrValidation)
	}
	return nil
}

// validateDueDate rejects due dates before the viewer's local midnight.
// Already-overdue records are untouched by this rule; it only gates new
// values entering through a draft or patch.
func validateDueDate(due *time.Time, now time.Time) error {
	if due == nil {
		return nil
	}
	today := startOfDay(now)
	if startOfDay(due.In(now.Location())).Before(today) {
		return fmt.Errorf("%w: due date cannot be in the past", ErrValidation)
	}
	return nil
}
