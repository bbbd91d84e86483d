// internal/session/projector.go
package session

import (
	"sort"
	"time"

	"taskdeck/internal/models"
)

// DueFilter selects a due-date bucket relative to the viewer's local
// midnight.
type DueFilter string

const (
	DueAny     DueFilter = ""
	DueOverdue DueFilter = "overdue"
	DueToday   DueFilter = "today"
	DueWeek    DueFilter = "week"
	DueMonth   DueFilter = "month"
)

// SortOption orders the visible task list.
type SortOption string

const (
	SortNewest   SortOption = "newest"
	SortOldest   SortOption = "oldest"
	SortDueDate  SortOption = "due_date"
	SortPriority SortOption = "priority"
)

// Filters narrow the visible view. All set fields must match at once; zero
// values match everything.
type Filters struct {
	Category string
	Priority models.Priority
	Status   models.Status
	Due      DueFilter
}

// Match reports whether t passes every set filter, with due buckets computed
// against now's calendar day.
func (f Filters) Match(t models.Task, now time.Time) bool {
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return matchDue(t, f.Due, now)
}

func matchDue(t models.Task, f DueFilter, now time.Time) bool {
	if f == DueAny {
		return true
	}
	if t.DueDate == nil {
		return false
	}

	today := startOfDay(now)
	due := startOfDay(t.DueDate.In(now.Location()))

	switch f {
	case DueOverdue:
		// A completed task is never overdue.
		return due.Before(today) && !t.Completed
	case DueToday:
		return due.Equal(today)
	case DueWeek:
		return !due.Before(today) && !due.After(today.AddDate(0, 0, 7))
	case DueMonth:
		return !due.Before(today) && !due.After(today.AddDate(0, 1, 0))
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Project filters and orders tasks for display. Pure: the input slice is not
// modified and the result is freshly allocated. Completed tasks always sort
// after incomplete ones, whatever the sort option; equal keys fall back to
// creation time and then id, so identical inputs always project to identical
// output.
func Project(tasks []models.Task, f Filters, opt SortOption, now time.Time) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t, now) {
			out = append(out, t.Clone())
		}
	}
	sortTasks(out, opt)
	return out
}

func sortTasks(tasks []models.Task, opt SortOption) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]

		if a.Completed != b.Completed {
			return !a.Completed
		}

		switch opt {
		case SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}

		case SortDueDate:
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				// fall through to the tie-break
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			case !a.DueDate.Equal(*b.DueDate):
				return a.DueDate.Before(*b.DueDate)
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}

		case SortPriority:
			if a.Priority.Rank() != b.Priority.Rank() {
				return a.Priority.Rank() < b.Priority.Rank()
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}

		default: // SortNewest
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}

		return a.ID.String() < b.ID.String()
	})
}
