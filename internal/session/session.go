// internal/session/session.go

// Package session implements the client-side task state kept by one signed-in
// user: a local cache reconciled optimistically against a remote store, a
// selection set for bulk operations and a pure projector for filtered,
// sorted views.
//
// Mutations apply to the cache first and are rolled back from snapshots when
// the remote call fails, so the visible state either reflects the requested
// change or the exact state before it. Create is the one exception: nothing
// enters the cache until the store has acknowledged the insert.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/feed"
	"taskdeck/internal/models"
)

// Session is the reconciliation controller for one user's task state.
//
// The mutex guards the cache and selection. It is never held across a store
// call: mutate, release, await, re-acquire for the ack or rollback. Feed
// events may interleave with an in-flight mutation; merge-by-id keeps every
// interleaving convergent.
type Session struct {
	owner uuid.UUID
	store Store
	log   *slog.Logger
	now   func() time.Time

	mu        sync.RWMutex
	cache     *Cache
	selection *Selection
	sub       Subscription
}

// New creates a session for the given owner backed by the store. The session
// is empty until Load is called.
func New(owner uuid.UUID, store Store, log *slog.Logger) *Session {
	return &Session{
		owner:     owner,
		store:     store,
		log:       log.With("component", "session", "owner_id", owner.String()),
		now:       time.Now,
		cache:     NewCache(),
		selection: NewSelection(),
	}
}

// Owner returns the user this session belongs to.
func (s *Session) Owner() uuid.UUID {
	return s.owner
}

// Load replaces the cache with the owner's full task list from the store.
// Selected ids whose records did not survive the reload are dropped.
func (s *Session) Load(ctx context.Context) error {
	tasks, err := s.store.FetchTasks(ctx)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.ReplaceAll(tasks)
	s.selection.Prune(s.cache.Has)

	s.log.Info("session loaded", "tasks", s.cache.Len())
	return nil
}

// Task returns a copy of one cached record.
func (s *Session) Task(id uuid.UUID) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Get(id)
}

// Tasks returns copies of all cached records, newest first.
func (s *Session) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Tasks()
}

// Len returns the number of cached records.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Len()
}

// Visible projects the cache through filters and sort for display.
func (s *Session) Visible(f Filters, opt SortOption) []models.Task {
	return s.VisibleAt(f, opt, s.now())
}

// VisibleAt is Visible against an explicit clock, for callers that render
// relative to a fixed instant.
func (s *Session) VisibleAt(f Filters, opt SortOption, now time.Time) []models.Task {
	s.mu.RLock()
	tasks := s.cache.Tasks()
	s.mu.RUnlock()
	return Project(tasks, f, opt, now)
}

// Categories returns the values a category picker offers: the defaults
// first, then every other category observed in the cache, sorted. The set
// is open ended; an unlisted value on an incoming record is still valid.
func (s *Session) Categories() []string {
	s.mu.RLock()
	tasks := s.cache.Tasks()
	s.mu.RUnlock()

	known := make(map[string]bool, len(models.DefaultCategories))
	for _, c := range models.DefaultCategories {
		known[c] = true
	}

	var extra []string
	for _, t := range tasks {
		if t.Category == "" || known[t.Category] {
			continue
		}
		known[t.Category] = true
		extra = append(extra, t.Category)
	}
	sort.Strings(extra)

	out := make([]string, 0, len(models.DefaultCategories)+len(extra))
	out = append(out, models.DefaultCategories...)
	return append(out, extra...)
}

// Create validates the draft, checks the title against the store and inserts
// remotely. The cache changes only when the store acknowledges: the returned
// record (or its feed echo, whichever lands first) is the sole way a new
// task appears.
func (s *Session) Create(ctx context.Context, draft TaskDraft) (models.Task, error) {
	draft.normalize()
	if err := draft.validate(s.now()); err != nil {
		return models.Task{}, err
	}
	draft.OwnerID = s.owner

	exists, err := s.store.TitleExists(ctx, draft.Title)
	if err != nil {
		return models.Task{}, fmt.Errorf("check title: %w", err)
	}
	if exists {
		return models.Task{}, ErrDuplicateTitle
	}

	created, err := s.store.InsertTask(ctx, draft)
	if err != nil {
		return models.Task{}, fmt.Errorf("create task: %w", err)
	}

	s.mu.Lock()
	s.cache.Upsert(created)
	s.mu.Unlock()

	s.log.Info("task created", "task_id", created.ID, "title", created.Title)
	return created.Clone(), nil
}

// Update applies a full edit optimistically and reconciles with the store.
// A title change runs the duplicate precheck first and, like Create, fails
// before any cache change. On store failure the record is restored
// bit-for-bit from its snapshot.
func (s *Session) Update(ctx context.Context, id uuid.UUID, patch EditPatch) error {
	patch.normalize()
	if err := patch.validate(s.now()); err != nil {
		return err
	}

	s.mu.Lock()
	current, ok := s.cache.Get(id)
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	// The task's own current title never trips the check.
	titleChanging := patch.Title != nil && *patch.Title != current.Title
	s.mu.Unlock()

	if titleChanging {
		exists, err := s.store.TitleExists(ctx, *patch.Title)
		if err != nil {
			return fmt.Errorf("check title: %w", err)
		}
		if exists {
			return ErrDuplicateTitle
		}
	}

	// The record may have moved while the precheck ran; re-read before
	// snapshotting.
	s.mu.Lock()
	current, ok = s.cache.Get(id)
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	snapshot := current.Clone()
	s.cache.Upsert(patch.applyTo(current))
	s.mu.Unlock()

	updated, err := s.store.UpdateTask(ctx, id, patch.wire())
	if err != nil {
		s.rollbackUpsert(snapshot)
		return fmt.Errorf("update task: %w", err)
	}

	s.mu.Lock()
	s.cache.Upsert(updated)
	s.mu.Unlock()
	return nil
}

// ToggleComplete flips the completion flag, leaving workflow status alone.
func (s *Session) ToggleComplete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	current, ok := s.cache.Get(id)
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	snapshot := current.Clone()
	current.Completed = !current.Completed
	s.cache.Upsert(current)
	s.mu.Unlock()

	completed := current.Completed
	_, err := s.store.UpdateTask(ctx, id, TaskPatch{Completed: &completed})
	if err != nil {
		s.rollbackUpsert(snapshot)
		return fmt.Errorf("toggle complete: %w", err)
	}
	return nil
}

// CycleStatus advances the workflow status one step, leaving the completion
// flag alone.
func (s *Session) CycleStatus(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	current, ok := s.cache.Get(id)
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	snapshot := current.Clone()
	current.Status = current.Status.Next()
	s.cache.Upsert(current)
	s.mu.Unlock()

	status := current.Status
	_, err := s.store.UpdateTask(ctx, id, TaskPatch{Status: &status})
	if err != nil {
		s.rollbackUpsert(snapshot)
		return fmt.Errorf("cycle status: %w", err)
	}
	return nil
}

// Delete removes the record optimistically. On failure the snapshot is
// reinserted and, if the id was selected before, its selection membership
// comes back with it.
func (s *Session) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	current, ok := s.cache.Get(id)
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	snapshot := current.Clone()
	wasSelected := s.selection.Has(id)
	s.cache.Remove(id)
	s.selection.Remove(id)
	s.mu.Unlock()

	if err := s.store.DeleteTask(ctx, id); err != nil {
		s.mu.Lock()
		s.cache.Upsert(snapshot)
		if wasSelected {
			s.selection.Add(id)
		}
		s.mu.Unlock()
		s.log.Warn("delete rolled back", "task_id", id, "error", err)
		return fmt.Errorf("delete task: %w", err)
	}

	s.log.Info("task deleted", "task_id", id)
	return nil
}

// BulkComplete marks every selected task completed and done, as one store
// call. All-or-nothing: on failure every record returns to its snapshot and
// the selection stays as it was; on success the selection clears.
//
// This is the only mutation that writes Completed and Status together.
func (s *Session) BulkComplete(ctx context.Context) error {
	s.mu.Lock()
	ids := s.selection.IDs()
	if len(ids) == 0 {
		s.mu.Unlock()
		return nil
	}
	snapshots := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		current, ok := s.cache.Get(id)
		if !ok {
			continue
		}
		snapshots = append(snapshots, current.Clone())
		current.Completed = true
		current.Status = models.StatusDone
		s.cache.Upsert(current)
	}
	s.mu.Unlock()

	completed := true
	status := models.StatusDone
	err := s.store.UpdateTasks(ctx, ids, TaskPatch{Completed: &completed, Status: &status})
	if err != nil {
		s.rollbackUpsert(snapshots...)
		s.log.Warn("bulk complete rolled back", "count", len(ids), "error", err)
		return fmt.Errorf("bulk complete: %w", err)
	}

	s.mu.Lock()
	s.selection.Clear()
	s.mu.Unlock()

	s.log.Info("bulk complete", "count", len(ids))
	return nil
}

// BulkDelete removes every selected task, as one store call. All-or-nothing:
// on failure every record is reinserted and the selection restored; on
// success the selection is gone along with the records.
func (s *Session) BulkDelete(ctx context.Context) error {
	s.mu.Lock()
	ids := s.selection.IDs()
	if len(ids) == 0 {
		s.mu.Unlock()
		return nil
	}
	snapshots := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		current, ok := s.cache.Get(id)
		if !ok {
			continue
		}
		snapshots = append(snapshots, current.Clone())
		s.cache.Remove(id)
	}
	s.selection.Clear()
	s.mu.Unlock()

	if err := s.store.DeleteTasks(ctx, ids); err != nil {
		s.mu.Lock()
		for _, snap := range snapshots {
			s.cache.Upsert(snap)
		}
		for _, id := range ids {
			if s.cache.Has(id) {
				s.selection.Add(id)
			}
		}
		s.mu.Unlock()
		s.log.Warn("bulk delete rolled back", "count", len(ids), "error", err)
		return fmt.Errorf("bulk delete: %w", err)
	}

	s.log.Info("bulk delete", "count", len(ids))
	return nil
}

// ToggleSelect flips selection membership for a cached id. Unknown ids are
// ignored, keeping the selection a subset of the cache.
func (s *Session) ToggleSelect(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cache.Has(id) {
		return
	}
	s.selection.Toggle(id)
}

// SelectAllVisible selects every task in the filtered view, or clears the
// selection entirely if all of them were already selected.
func (s *Session) SelectAllVisible(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := Project(s.cache.Tasks(), f, SortNewest, s.now())
	ids := make([]uuid.UUID, len(visible))
	for i, t := range visible {
		ids[i] = t.ID
	}

	if s.selection.ContainsAll(ids) {
		s.selection.Clear()
		return
	}
	s.selection.Replace(ids)
}

// ClearSelection empties the selection set.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Clear()
}

// Selected returns the selected ids in a stable order.
func (s *Session) Selected() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.IDs()
}

// IsSelected reports selection membership for one id.
func (s *Session) IsSelected(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Has(id)
}

// ApplyEvent merges one change-feed event into the cache. Events for other
// owners are discarded. Merging is by id and idempotent, so replays and
// echoes of the session's own writes are harmless:
//
//   - insert adds the record unless the id is already present
//   - update always replaces (last writer wins)
//   - delete removes whatever is there and prunes the selection
func (s *Session) ApplyEvent(ev feed.Event) {
	if !ev.Owned(s.owner) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Action {
	case feed.ActionInsert:
		if !s.cache.Has(ev.Task.ID) {
			s.cache.Upsert(ev.Task)
		}
	case feed.ActionUpdate:
		s.cache.Upsert(ev.Task)
	case feed.ActionDelete:
		s.cache.Remove(ev.Task.ID)
		s.selection.Remove(ev.Task.ID)
	}

	s.log.Debug("feed event applied", "action", string(ev.Action), "task_id", ev.Task.ID)
}

// AttachFeed subscribes the session to a change feed. A previous attachment
// is replaced.
func (s *Session) AttachFeed(ctx context.Context, f Feed) error {
	sub, err := f.Subscribe(ctx, s.ApplyEvent)
	if err != nil {
		return fmt.Errorf("attach feed: %w", err)
	}

	s.mu.Lock()
	prev := s.sub
	s.sub = sub
	s.mu.Unlock()

	if prev != nil {
		if err := prev.Unsubscribe(); err != nil {
			s.log.Warn("detach previous feed", "error", err)
		}
	}
	return nil
}

// Close detaches the feed subscription, if any.
func (s *Session) Close() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}

// rollbackUpsert restores snapshots after a failed store call.
func (s *Session) rollbackUpsert(snapshots ...models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snapshots {
		s.cache.Upsert(snap)
	}
}
