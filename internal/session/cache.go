// internal/session/cache.go
package session

import (
	"sort"

	"github.com/google/uuid"

	"taskdeck/internal/models"
)

// Cache is the local task table a session works against. At most one record
// per id, always the owner's tasks only. It is not safe for concurrent use;
// the session serializes access.
type Cache struct {
	byID map[uuid.UUID]models.Task
}

func NewCache() *Cache {
	return &Cache{byID: make(map[uuid.UUID]models.Task)}
}

// ReplaceAll swaps the entire contents for a freshly loaded task list. Later
// duplicates of an id win, which keeps a malformed load from breaking the
// one-record-per-id rule.
func (c *Cache) ReplaceAll(tasks []models.Task) {
	c.byID = make(map[uuid.UUID]models.Task, len(tasks))
	for _, t := range tasks {
		c.byID[t.ID] = t.Clone()
	}
}

// Upsert inserts or fully replaces the record with the same id.
func (c *Cache) Upsert(t models.Task) {
	c.byID[t.ID] = t.Clone()
}

// Remove deletes the record if present and reports whether it was there.
func (c *Cache) Remove(id uuid.UUID) bool {
	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	return true
}

// Get returns a copy of the record, safe to hold as a rollback snapshot.
func (c *Cache) Get(id uuid.UUID) (models.Task, bool) {
	t, ok := c.byID[id]
	if !ok {
		return models.Task{}, false
	}
	return t.Clone(), true
}

func (c *Cache) Has(id uuid.UUID) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Cache) Len() int {
	return len(c.byID)
}

// Tasks returns copies of all records, newest first, ids breaking timestamp
// ties so iteration order is stable for identical contents.
func (c *Cache) Tasks() []models.Task {
	out := make([]models.Task, 0, len(c.byID))
	for _, t := range c.byID {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
