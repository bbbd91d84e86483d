// internal/session/selection.go
package session

import (
	"sort"

	"github.com/google/uuid"
)

// Selection is the set of task ids staged for a bulk operation. The session
// keeps it a subset of the cache at all times: ids are pruned the moment
// their record leaves the cache and restored if a rollback brings the record
// back. Not safe for concurrent use on its own.
type Selection struct {
	ids map[uuid.UUID]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[uuid.UUID]struct{})}
}

// Toggle flips membership for id and reports whether it is now selected.
func (s *Selection) Toggle(id uuid.UUID) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Selection) Add(id uuid.UUID) {
	s.ids[id] = struct{}{}
}

func (s *Selection) Remove(id uuid.UUID) {
	delete(s.ids, id)
}

func (s *Selection) Has(id uuid.UUID) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

func (s *Selection) Clear() {
	s.ids = make(map[uuid.UUID]struct{})
}

// IDs returns the members in a stable order.
func (s *Selection) IDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// Replace swaps the membership for exactly the given ids.
func (s *Selection) Replace(ids []uuid.UUID) {
	s.ids = make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Prune drops every id the keep predicate rejects.
func (s *Selection) Prune(keep func(uuid.UUID) bool) {
	for id := range s.ids {
		if !keep(id) {
			delete(s.ids, id)
		}
	}
}

// ContainsAll reports whether every given id is selected. An empty input
// reports false so select-all on an empty view stays a selection, not a
// clear.
func (s *Selection) ContainsAll(ids []uuid.UUID) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if _, ok := s.ids[id]; !ok {
			return false
		}
	}
	return true
}
