// internal/repository/task_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskdeck/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist for the owner.
	ErrNotFound = errors.New("record not found")
)

// TaskRepository handles task persistence. Every method is scoped by owner;
// an id belonging to another user behaves exactly like a missing record.
type TaskRepository interface {
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.Task, error)
	ListByTitle(ctx context.Context, owner uuid.UUID, title string) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, owner, id uuid.UUID, fields map[string]interface{}) (*models.Task, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	UpdateMany(ctx context.Context, owner uuid.UUID, ids []uuid.UUID, fields map[string]interface{}) error
	DeleteMany(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) error
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a gorm-backed task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("created_at DESC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListByTitle returns the owner's tasks whose title matches exactly
// (case-sensitive). Titles are only unique best-effort, so this can return
// more than one record.
func (r *taskRepository) ListByTitle(ctx context.Context, owner uuid.UUID, title string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND title = ?", owner, title).
		Order("created_at DESC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks by title: %w", err)
	}
	return tasks, nil
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update applies a partial column update and returns the resulting record.
func (r *taskRepository) Update(ctx context.Context, owner, id uuid.UUID, fields map[string]interface{}) (*models.Task, error) {
	if len(fields) > 0 {
		res := r.db.WithContext(ctx).
			Model(&models.Task{}).
			Where("id = ? AND owner_id = ?", id, owner).
			Updates(fields)
		if res.Error != nil {
			return nil, fmt.Errorf("update task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}

	var task models.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reload task: %w", err)
	}
	return &task, nil
}

func (r *taskRepository) Delete(ctx context.Context, owner, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		Delete(&models.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMany updates every id in one transaction. If any id is missing for
// the owner the whole batch rolls back, so a stale client snapshot cannot
// half-apply.
func (r *taskRepository) UpdateMany(ctx context.Context, owner uuid.UUID, ids []uuid.UUID, fields map[string]interface{}) error {
	if len(ids) == 0 || len(fields) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("owner_id = ? AND id IN ?", owner, ids).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("bulk update tasks: %w", err)
	}
	return nil
}

// DeleteMany removes every id in one transaction, all-or-nothing like
// UpdateMany.
func (r *taskRepository) DeleteMany(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("owner_id = ? AND id IN ?", owner, ids).
			Delete(&models.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("bulk delete tasks: %w", err)
	}
	return nil
}
