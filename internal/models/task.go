// internal/models/task.go
package models

import (
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Priority levels for tasks
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities high → medium → low for sorting. Lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Status values for the task workflow.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the known workflow states.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Next returns the state that follows s in the fixed cycle
// todo → in-progress → done → todo.
func (s Status) Next() Status {
	switch s {
	case StatusTodo:
		return StatusInProgress
	case StatusInProgress:
		return StatusDone
	default:
		return StatusTodo
	}
}

// Limits applied to task fields at creation and edit time.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
)

// DefaultCategories seed every category picker. The set is open ended: any
// value observed on a stored task is just as valid.
var DefaultCategories = []string{"Work", "Personal", "Shopping", "Health", "Other"}

// TitleHasContent reports whether the title carries at least one letter or
// digit. Whitespace or punctuation alone does not make a title.
func TitleHasContent(title string) bool {
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Task is the canonical task record. The same shape is stored in Postgres,
// sent over the HTTP API and carried in change-feed payloads.
//
// Completed and Status are intentionally independent fields: a task may be
// marked completed while its workflow status still reads "in-progress".
// Only the bulk-complete operation forces the two into agreement.
type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	Title       string     `json:"title" gorm:"size:100;not null"`
	Description string     `json:"description" gorm:"size:1000"`
	Category    string     `json:"category" gorm:"size:50"`
	Priority    Priority   `json:"priority" gorm:"size:10;default:'medium'"`
	Status      Status     `json:"status" gorm:"size:20;default:'todo'"`
	Completed   bool       `json:"completed" gorm:"default:false"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName keeps the table name stable regardless of gorm's pluralization rules.
func (Task) TableName() string {
	return "tasks"
}

// BeforeCreate assigns the record id application-side so inserts do not
// depend on a database extension.
func (t *Task) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Clone returns a deep copy of the task. The session layer keeps clones as
// rollback snapshots, so the copy must not share the DueDate pointer.
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return c
}
