// internal/session/cache_test.go
package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/models"
)

func cachedTask(title string, created time.Time) models.Task {
	return models.Task{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Title:     title,
		Priority:  models.PriorityMedium,
		Status:    models.StatusTodo,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestCacheUpsertReplacesWholeRecord(t *testing.T) {
	// Setup
	c := NewCache()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	task := cachedTask("first", base)
	due := base.AddDate(0, 0, 3)
	task.DueDate = &due
	c.Upsert(task)

	// Execute: replace with a record that has no due date
	replacement := task.Clone()
	replacement.Title = "second"
	replacement.DueDate = nil
	c.Upsert(replacement)

	// Assert: full replacement, not a field merge
	got, ok := c.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, "second", got.Title)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, 1, c.Len())
}

func TestCacheReplaceAll(t *testing.T) {
	c := NewCache()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	c.Upsert(cachedTask("stale", base))

	fresh := []models.Task{
		cachedTask("a", base),
		cachedTask("b", base.Add(time.Hour)),
	}
	c.ReplaceAll(fresh)

	assert.Equal(t, 2, c.Len())
	for _, task := range fresh {
		assert.True(t, c.Has(task.ID))
	}
}

func TestCacheReplaceAllKeepsLastDuplicate(t *testing.T) {
	c := NewCache()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	task := cachedTask("v1", base)
	dup := task.Clone()
	dup.Title = "v2"

	c.ReplaceAll([]models.Task{task, dup})

	assert.Equal(t, 1, c.Len())
	got, _ := c.Get(task.ID)
	assert.Equal(t, "v2", got.Title)
}

func TestCacheRemove(t *testing.T) {
	c := NewCache()
	task := cachedTask("x", time.Now())
	c.Upsert(task)

	assert.True(t, c.Remove(task.ID))
	assert.False(t, c.Remove(task.ID))
	assert.Equal(t, 0, c.Len())
}

func TestCacheGetReturnsDetachedCopy(t *testing.T) {
	c := NewCache()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	task := cachedTask("shared", base)
	due := base.AddDate(0, 0, 1)
	task.DueDate = &due
	c.Upsert(task)

	got, ok := c.Get(task.ID)
	require.True(t, ok)

	// Mutating the copy must not reach the cached record.
	got.Title = "mutated"
	*got.DueDate = got.DueDate.AddDate(0, 0, 30)

	fresh, _ := c.Get(task.ID)
	assert.Equal(t, "shared", fresh.Title)
	assert.True(t, fresh.DueDate.Equal(due))
}

func TestCacheTasksOrderIsDeterministic(t *testing.T) {
	// Setup: three tasks, two sharing a creation instant
	c := NewCache()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	older := cachedTask("older", base.Add(-time.Hour))
	twinA := cachedTask("twinA", base)
	twinB := cachedTask("twinB", base)

	for _, task := range []models.Task{twinB, older, twinA} {
		c.Upsert(task)
	}

	// Execute twice
	first := c.Tasks()
	second := c.Tasks()

	// Assert: newest first, id breaking the tie, and stable across calls
	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, "older", first[2].Title)
	if twinA.ID.String() < twinB.ID.String() {
		assert.Equal(t, twinA.ID, first[0].ID)
	} else {
		assert.Equal(t, twinB.ID, first[0].ID)
	}
}
