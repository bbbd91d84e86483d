// internal/session/session_test.go
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/feed"
	"taskdeck/internal/models"
)

var errRemote = errors.New("remote store unavailable")

// fakeStore is an in-memory Store with per-operation failure switches and a
// call trace, so tests can assert which remote calls a mutation made.
type fakeStore struct {
	mu    sync.Mutex
	owner uuid.UUID
	tasks map[uuid.UUID]models.Task

	clock time.Time
	seq   int

	calls  []string
	before func(op string)

	failFetch      bool
	failExists     bool
	failInsert     bool
	failUpdate     bool
	failDelete     bool
	failBulkUpdate bool
	failBulkDelete bool
}

func newFakeStore(owner uuid.UUID) *fakeStore {
	return &fakeStore{
		owner: owner,
		tasks: make(map[uuid.UUID]models.Task),
		clock: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) enter(op string) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	before := f.before
	f.mu.Unlock()
	if before != nil {
		before(op)
	}
}

func (f *fakeStore) tick() time.Time {
	f.seq++
	return f.clock.Add(time.Duration(f.seq) * time.Second)
}

func (f *fakeStore) seed(t models.Task) models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.OwnerID == uuid.Nil {
		t.OwnerID = f.owner
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = f.tick()
		t.UpdatedAt = t.CreatedAt
	}
	f.tasks[t.ID] = t.Clone()
	return t.Clone()
}

func (f *fakeStore) task(id uuid.UUID) (models.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return t.Clone(), true
}

func (f *fakeStore) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeStore) FetchTasks(_ context.Context) ([]models.Task, error) {
	f.enter("fetch")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetch {
		return nil, errRemote
	}
	out := make([]models.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (f *fakeStore) TitleExists(_ context.Context, title string) (bool, error) {
	f.enter("exists")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExists {
		return false, errRemote
	}
	for _, t := range f.tasks {
		if t.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertTask(_ context.Context, draft TaskDraft) (models.Task, error) {
	f.enter("insert")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return models.Task{}, errRemote
	}
	now := f.tick()
	t := models.Task{
		ID:          uuid.New(),
		OwnerID:     draft.OwnerID,
		Title:       draft.Title,
		Description: draft.Description,
		Category:    draft.Category,
		Priority:    draft.Priority,
		Status:      draft.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if draft.DueDate != nil {
		due := *draft.DueDate
		t.DueDate = &due
	}
	f.tasks[t.ID] = t.Clone()
	return t.Clone(), nil
}

func applyStorePatch(t models.Task, patch TaskPatch, now time.Time) models.Task {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		t.DueDate = &due
	}
	if patch.ClearDueDate {
		t.DueDate = nil
	}
	t.UpdatedAt = now
	return t
}

func (f *fakeStore) UpdateTask(_ context.Context, id uuid.UUID, patch TaskPatch) (models.Task, error) {
	f.enter("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate {
		return models.Task{}, errRemote
	}
	t, ok := f.tasks[id]
	if !ok {
		return models.Task{}, errRemote
	}
	t = applyStorePatch(t.Clone(), patch, f.tick())
	f.tasks[id] = t.Clone()
	return t.Clone(), nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id uuid.UUID) error {
	f.enter("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errRemote
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) UpdateTasks(_ context.Context, ids []uuid.UUID, patch TaskPatch) error {
	f.enter("bulk_update")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBulkUpdate {
		return errRemote
	}
	now := f.tick()
	for _, id := range ids {
		if t, ok := f.tasks[id]; ok {
			f.tasks[id] = applyStorePatch(t.Clone(), patch, now)
		}
	}
	return nil
}

func (f *fakeStore) DeleteTasks(_ context.Context, ids []uuid.UUID) error {
	f.enter("bulk_delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBulkDelete {
		return errRemote
	}
	for _, id := range ids {
		delete(f.tasks, id)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T) (*Session, *fakeStore) {
	t.Helper()
	owner := uuid.New()
	store := newFakeStore(owner)
	s := New(owner, store, discardLogger())
	s.now = func() time.Time {
		return time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)
	}
	return s, store
}

func strPtr(v string) *string { return &v }

func priPtr(v models.Priority) *models.Priority { return &v }

func TestLoadReplacesCache(t *testing.T) {
	// Setup
	s, store := newTestSession(t)
	a := store.seed(models.Task{Title: "alpha"})
	store.seed(models.Task{Title: "beta"})

	// Execute
	err := s.Load(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	// A reload after remote changes replaces everything and drops stale
	// selection entries.
	s.ToggleSelect(a.ID)
	store.mu.Lock()
	delete(store.tasks, a.ID)
	store.mu.Unlock()

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Selected())
}

func TestLoadFailureLeavesCacheAlone(t *testing.T) {
	s, store := newTestSession(t)
	store.seed(models.Task{Title: "alpha"})
	require.NoError(t, s.Load(context.Background()))

	store.failFetch = true
	err := s.Load(context.Background())

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, 1, s.Len())
}

func TestCreateInsertsAcknowledgedRecord(t *testing.T) {
	// Setup
	s, store := newTestSession(t)

	// Execute
	created, err := s.Create(context.Background(), TaskDraft{
		Title:    "  Buy milk  ",
		Category: "Shopping",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, models.PriorityMedium, created.Priority)
	assert.Equal(t, models.StatusTodo, created.Status)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, s.Owner(), created.OwnerID)

	cached, ok := s.Task(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, cached)

	_, ok = store.task(created.ID)
	assert.True(t, ok)
}

func TestCreateDuplicateTitleRejectedBeforeInsert(t *testing.T) {
	// Setup
	s, store := newTestSession(t)
	_, err := s.Create(context.Background(), TaskDraft{Title: "Buy milk"})
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	// Execute: second create with the identical title
	_, err = s.Create(context.Background(), TaskDraft{Title: "Buy milk"})

	// Assert: rejected by the precheck, nothing inserted anywhere
	assert.ErrorIs(t, err, ErrDuplicateTitle)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, store.callCount("insert"))

	// Titles are compared exactly; a different case is a different title.
	_, err = s.Create(context.Background(), TaskDraft{Title: "buy milk"})
	assert.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestCreateValidationRejectsLocally(t *testing.T) {
	s, store := newTestSession(t)
	past := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)

	longTitle := make([]rune, models.MaxTitleLength+1)
	longDesc := make([]rune, models.MaxDescriptionLength+1)
	for i := range longTitle {
		longTitle[i] = 'x'
	}
	for i := range longDesc {
		longDesc[i] = 'x'
	}

	tests := []struct {
		name  string
		draft TaskDraft
	}{
		{name: "empty title", draft: TaskDraft{Title: ""}},
		{name: "whitespace only title", draft: TaskDraft{Title: "   \t "}},
		{name: "punctuation only title", draft: TaskDraft{Title: "?!... --"}},
		{name: "title too long", draft: TaskDraft{Title: string(longTitle)}},
		{name: "description too long", draft: TaskDraft{Title: "ok", Description: string(longDesc)}},
		{name: "unknown priority", draft: TaskDraft{Title: "ok", Priority: "urgent"}},
		{name: "unknown status", draft: TaskDraft{Title: "ok", Status: "paused"}},
		{name: "due date in the past", draft: TaskDraft{Title: "ok", DueDate: &past}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tt.draft)

			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, 0, s.Len())
			assert.Empty(t, store.calls, "no remote call may happen on local rejection")
		})
	}
}

func TestCreateDueTodayAccepted(t *testing.T) {
	s, _ := newTestSession(t)

	// Local midnight is the boundary: today at 00:00 is fine.
	today := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	_, err := s.Create(context.Background(), TaskDraft{Title: "due today", DueDate: &today})

	assert.NoError(t, err)
}

func TestCreateRemoteFailureLeavesCacheAlone(t *testing.T) {
	s, store := newTestSession(t)
	store.failInsert = true

	_, err := s.Create(context.Background(), TaskDraft{Title: "doomed"})

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, 0, s.Len())
}

func TestUpdateAppliesOptimisticallyBeforeRemoteCall(t *testing.T) {
	// Setup
	s, store := newTestSession(t)
	seeded := store.seed(models.Task{Title: "draft report", Priority: models.PriorityLow, Status: models.StatusTodo})
	require.NoError(t, s.Load(context.Background()))

	var seenDuringCall string
	store.before = func(op string) {
		if op == "update" {
			cached, ok := s.Task(seeded.ID)
			require.True(t, ok)
			seenDuringCall = cached.Title
		}
	}

	// Execute
	err := s.Update(context.Background(), seeded.ID, EditPatch{Title: strPtr("final report")})

	// Assert: the cache already showed the new title while the store call
	// was still in flight.
	require.NoError(t, err)
	assert.Equal(t, "final report", seenDuringCall)
}

func TestUpdateMergesOnlyCarriedFields(t *testing.T) {
	// Setup
	s, store := newTestSession(t)
	due := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	seeded := store.seed(models.Task{
		Title:       "write slides",
		Description: "for friday",
		Category:    "Work",
		Priority:    models.PriorityLow,
		Status:      models.StatusInProgress,
		DueDate:     &due,
	})
	require.NoError(t, s.Load(context.Background()))

	// Execute: only the priority changes
	err := s.Update(context.Background(), seeded.ID, EditPatch{Priority: priPtr(models.PriorityHigh)})

	// Assert
	require.NoError(t, err)
	got, ok := s.Task(seeded.ID)
	require.True(t, ok)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, "write slides", got.Title)
	assert.Equal(t, "for friday", got.Description)
	assert.Equal(t, "Work", got.Category)
	assert.Equal(t, models.StatusInProgress, got.Status)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
}

func TestUpdateClearsDueDate(t *testing.T) {
	s, store := newTestSession(t)
	due := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	seeded := store.seed(models.Task{Title: "with due", DueDate: &due})
	require.NoError(t, s.Load(context.Background()))

	err := s.Update(context.Background(), seeded.ID, EditPatch{ClearDueDate: true})

	require.NoError(t, err)
	got, _ := s.Task(seeded.ID)
	assert.Nil(t, got.DueDate)
	stored, _ := store.task(seeded.ID)
	assert.Nil(t, stored.DueDate)
}

func TestUpdateRollbackRestoresSnapshotExactly(t *testing.T) {
	// Setup
	s, store := newTestSession(t)
	due := time.Date(2026, time.April, 2, 0, 0, 0, 0, time.UTC)
	seeded := store.seed(models.Task{
		Title:       "pay rent",
		Description: "before the 5th",
		Category:    "Personal",
		Priority:    models.PriorityHigh,
		Status:      models.StatusTodo,
		DueDate:     &due,
	})
	require.NoError(t, s.Load(context.Background()))

	before, ok := s.Task(seeded.ID)
	require.True(t, ok)

	store.failUpdate = true

	// Execute
	err := s.Update(context.Background(), seeded.ID, EditPatch{
		Title:        strPtr("pay rent late"),
		Priority:     priPtr(models.PriorityLow),
		ClearDueDate: true,
	})

	// Assert: error surfaced, record bit-for-bit as before
	assert.ErrorIs(t, err, errRemote)
	after, ok := s.Task(seeded.ID)
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestUpdateUnknownIDRejectedLocally(t *testing.T) {
	s, store := newTestSession(t)

	err := s.Update(context.Background(), uuid.New(), EditPatch{Title: strPtr("ghost")})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.calls)
}

func TestUpdateDuplicateTitleRejectedBeforeOptimisticApply(t *testing.T) {
	// Setup
	s, store := newTestSession(t)
	store.seed(models.Task{Title: "Buy milk"})
	target := store.seed(models.Task{Title: "Buy bread"})
	require.NoError(t, s.Load(context.Background()))

	// Execute: rename onto a title another task already holds
	err := s.Update(context.Background(), target.ID, EditPatch{Title: strPtr("Buy milk")})

	// Assert: rejected by the precheck, cache untouched, no update call
	assert.ErrorIs(t, err, ErrDuplicateTitle)
	got, ok := s.Task(target.ID)
	require.True(t, ok)
	assert.Equal(t, "Buy bread", got.Title)
	assert.Equal(t, 0, store.callCount("update"))

	// Carrying the task's own unchanged title is not a collision and makes
	// no precheck call at all.
	err = s.Update(context.Background(), target.ID, EditPatch{
		Title:    strPtr("Buy bread"),
		Priority: priPtr(models.PriorityHigh),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.callCount("exists"))
}

func TestToggleComplete(t *testing.T) {
	// Setup
	s, store := newTestSession(t)
	seeded := store.seed(models.Task{Title: "stretch", Status: models.StatusInProgress})
	require.NoError(t, s.Load(context.Background()))

	// Execute + Assert: completion flips, workflow status never moves
	require.NoError(t, s.ToggleComplete(context.Background(), seeded.ID))
	got, _ := s.Task(seeded.ID)
	assert.True(t, got.Completed)
	assert.Equal(t, models.StatusInProgress, got.Status)

	require.NoError(t, s.ToggleComplete(context.Background(), seeded.ID))
	got, _ = s.Task(seeded.ID)
	assert.False(t, got.Completed)
	assert.Equal(t, models.StatusInProgress, got.Status)
}

func TestToggleCompleteRollback(t *testing.T) {
	s, store := newTestSession(t)
	seeded := store.seed(models.Task{Title: "stretch"})
	require.NoError(t, s.Load(context.Background()))
	before, _ := s.Task(seeded.ID)

	store.failUpdate = true
	err := s.ToggleComplete(context.Background(), seeded.ID)

	assert.ErrorIs(t, err, errRemote)
	after, _ := s.Task(seeded.ID)
	assert.Equal(t, before, after)
}

func TestCycleStatusWalksTheCycle(t *testing.T) {
	s, store := newTestSession(t)
	seeded := store.seed(models.Task{Title: "triage", Status: models.StatusTodo, Completed: true})
	require.NoError(t, s.Load(context.Background()))

	want := []models.Status{models.StatusInProgress, models.StatusDone, models.StatusTodo}
	for _, expect := range want {
		require.NoError(t, s.CycleStatus(context.Background(), seeded.ID))
		got, _ := s.Task(seeded.ID)
		assert.Equal(t, expect, got.Status)
		// The completion flag is not part of the cycle.
		assert.True(t, got.Completed)
	}
}

func TestDeleteOptimisticAndAcknowledged(t *testing.T) {
	s, store := newTestSession(t)
	seeded := store.seed(models.Task{Title: "old note"})
	require.NoError(t, s.Load(context.Background()))

	var cachedDuringCall bool
	store.before = func(op string) {
		if op == "delete" {
			_, cachedDuringCall = s.Task(seeded.ID)
		}
	}

	require.NoError(t, s.Delete(context.Background(), seeded.ID))

	assert.False(t, cachedDuringCall, "record must leave the cache before the store call")
	assert.Equal(t, 0, s.Len())
	_, ok := store.task(seeded.ID)
	assert.False(t, ok)
}

func TestDeleteRollbackRestoresRecordAndSelection(t *testing.T) {
	// Setup
	s, store := newTestSession(t)
	seeded := store.seed(models.Task{Title: "keep me"})
	require.NoError(t, s.Load(context.Background()))
	s.ToggleSelect(seeded.ID)
	before, _ := s.Task(seeded.ID)

	store.failDelete = true

	// Execute
	err := s.Delete(context.Background(), seeded.ID)

	// Assert
	assert.ErrorIs(t, err, errRemote)
	after, ok := s.Task(seeded.ID)
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.True(t, s.IsSelected(seeded.ID), "selection membership survives the rollback")
}

func TestBulkComplete(t *testing.T) {
	// Setup
	s, store := newTestSession(t)
	one := store.seed(models.Task{Title: "one", Status: models.StatusTodo})
	two := store.seed(models.Task{Title: "two", Status: models.StatusInProgress})
	three := store.seed(models.Task{Title: "three", Status: models.StatusTodo})
	require.NoError(t, s.Load(context.Background()))

	s.ToggleSelect(one.ID)
	s.ToggleSelect(two.ID)

	// Execute
	require.NoError(t, s.BulkComplete(context.Background()))

	// Assert: both selected tasks completed and done, in cache and store
	for _, id := range []uuid.UUID{one.ID, two.ID} {
		got, _ := s.Task(id)
		assert.True(t, got.Completed)
		assert.Equal(t, models.StatusDone, got.Status)
		stored, _ := store.task(id)
		assert.True(t, stored.Completed)
		assert.Equal(t, models.StatusDone, stored.Status)
	}

	untouched, _ := s.Task(three.ID)
	assert.False(t, untouched.Completed)
	assert.Equal(t, models.StatusTodo, untouched.Status)

	assert.Empty(t, s.Selected(), "selection clears after a successful bulk op")
}

func TestBulkCompleteFailureRestoresValuesAndSelection(t *testing.T) {
	// Setup: two tasks selected, remote bulk update will fail
	s, store := newTestSession(t)
	one := store.seed(models.Task{Title: "one", Status: models.StatusTodo})
	two := store.seed(models.Task{Title: "two", Status: models.StatusInProgress})
	require.NoError(t, s.Load(context.Background()))

	s.ToggleSelect(one.ID)
	s.ToggleSelect(two.ID)

	beforeOne, _ := s.Task(one.ID)
	beforeTwo, _ := s.Task(two.ID)

	store.failBulkUpdate = true

	// Execute
	err := s.BulkComplete(context.Background())

	// Assert: both records back to their pre-op values, selection intact
	assert.ErrorIs(t, err, errRemote)

	afterOne, _ := s.Task(one.ID)
	afterTwo, _ := s.Task(two.ID)
	assert.Equal(t, beforeOne, afterOne)
	assert.Equal(t, beforeTwo, afterTwo)

	assert.ElementsMatch(t, []uuid.UUID{one.ID, two.ID}, s.Selected())
}

func TestBulkDelete(t *testing.T) {
	s, store := newTestSession(t)
	one := store.seed(models.Task{Title: "one"})
	two := store.seed(models.Task{Title: "two"})
	keep := store.seed(models.Task{Title: "keep"})
	require.NoError(t, s.Load(context.Background()))

	s.ToggleSelect(one.ID)
	s.ToggleSelect(two.ID)

	require.NoError(t, s.BulkDelete(context.Background()))

	assert.Equal(t, 1, s.Len())
	_, ok := s.Task(keep.ID)
	assert.True(t, ok)
	assert.Empty(t, s.Selected())

	_, ok = store.task(one.ID)
	assert.False(t, ok)
	_, ok = store.task(two.ID)
	assert.False(t, ok)
}

func TestBulkDeleteFailureRestoresRecordsAndSelection(t *testing.T) {
	s, store := newTestSession(t)
	one := store.seed(models.Task{Title: "one"})
	two := store.seed(models.Task{Title: "two"})
	require.NoError(t, s.Load(context.Background()))

	s.ToggleSelect(one.ID)
	s.ToggleSelect(two.ID)
	beforeOne, _ := s.Task(one.ID)
	beforeTwo, _ := s.Task(two.ID)

	store.failBulkDelete = true
	err := s.BulkDelete(context.Background())

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, 2, s.Len())

	afterOne, _ := s.Task(one.ID)
	afterTwo, _ := s.Task(two.ID)
	assert.Equal(t, beforeOne, afterOne)
	assert.Equal(t, beforeTwo, afterTwo)
	assert.ElementsMatch(t, []uuid.UUID{one.ID, two.ID}, s.Selected())
}

func TestBulkOpsWithEmptySelectionMakeNoRemoteCall(t *testing.T) {
	s, store := newTestSession(t)
	store.seed(models.Task{Title: "unselected"})
	require.NoError(t, s.Load(context.Background()))
	store.calls = nil

	assert.NoError(t, s.BulkComplete(context.Background()))
	assert.NoError(t, s.BulkDelete(context.Background()))
	assert.Empty(t, store.calls)
}

func insertEvent(t models.Task) feed.Event {
	return feed.Event{Action: feed.ActionInsert, Task: t}
}

func updateEvent(t models.Task) feed.Event {
	return feed.Event{Action: feed.ActionUpdate, Task: t}
}

func deleteEvent(t models.Task) feed.Event {
	return feed.Event{Action: feed.ActionDelete, Task: t}
}

func TestApplyEventInsertAddsUnlessPresent(t *testing.T) {
	// Setup
	s, store := newTestSession(t)
	created, err := s.Create(context.Background(), TaskDraft{Title: "Buy milk"})
	require.NoError(t, err)

	// Execute: the echo of our own create arrives with the same id. A stale
	// body proves the suppression: the cached record must not change.
	echo := created.Clone()
	echo.Description = "echo body"
	s.ApplyEvent(insertEvent(echo))

	// Assert
	got, _ := s.Task(created.ID)
	assert.Equal(t, "", got.Description)
	assert.Equal(t, 1, s.Len())

	// An insert for an unknown id (created in another window) does land.
	other := store.seed(models.Task{Title: "from elsewhere"})
	s.ApplyEvent(insertEvent(other))
	assert.Equal(t, 2, s.Len())
}

func TestApplyEventUpdateAlwaysReplaces(t *testing.T) {
	s, store := newTestSession(t)
	seeded := store.seed(models.Task{Title: "v1", Priority: models.PriorityLow})
	require.NoError(t, s.Load(context.Background()))

	newer := seeded.Clone()
	newer.Title = "v2"
	newer.Priority = models.PriorityHigh
	s.ApplyEvent(updateEvent(newer))

	got, _ := s.Task(seeded.ID)
	assert.Equal(t, "v2", got.Title)
	assert.Equal(t, models.PriorityHigh, got.Priority)

	// An update for an id not in the cache inserts it.
	stranger := store.seed(models.Task{Title: "missed insert"})
	s.ApplyEvent(updateEvent(stranger))
	_, ok := s.Task(stranger.ID)
	assert.True(t, ok)
}

func TestApplyEventDeleteRemovesAndPrunesSelection(t *testing.T) {
	s, store := newTestSession(t)
	seeded := store.seed(models.Task{Title: "goner"})
	require.NoError(t, s.Load(context.Background()))
	s.ToggleSelect(seeded.ID)

	s.ApplyEvent(deleteEvent(seeded))

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Selected())

	// Deleting again is a no-op.
	s.ApplyEvent(deleteEvent(seeded))
	assert.Equal(t, 0, s.Len())
}

func TestApplyEventIsIdempotent(t *testing.T) {
	// Setup: two sessions fed the same events, one with duplicates
	owner := uuid.New()
	storeA := newFakeStore(owner)
	storeB := newFakeStore(owner)
	a := New(owner, storeA, discardLogger())
	b := New(owner, storeB, discardLogger())

	created := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	task := models.Task{
		ID:        uuid.New(),
		OwnerID:   owner,
		Title:     "x",
		Priority:  models.PriorityMedium,
		Status:    models.StatusTodo,
		CreatedAt: created,
		UpdatedAt: created,
	}
	updated := task.Clone()
	updated.Title = "y"

	events := []feed.Event{insertEvent(task), updateEvent(updated)}

	// Execute: a sees each event once, b sees each twice
	for _, ev := range events {
		a.ApplyEvent(ev)
		b.ApplyEvent(ev)
		b.ApplyEvent(ev)
	}

	// Assert
	assert.Equal(t, a.Tasks(), b.Tasks())
}

func TestApplyEventIgnoresOtherOwners(t *testing.T) {
	s, _ := newTestSession(t)

	foreign := models.Task{ID: uuid.New(), OwnerID: uuid.New(), Title: "not yours"}
	s.ApplyEvent(insertEvent(foreign))
	assert.Equal(t, 0, s.Len())

	// A delete whose old owner matches the session still applies.
	mine := models.Task{ID: uuid.New(), OwnerID: s.Owner(), Title: "mine"}
	s.ApplyEvent(insertEvent(mine))
	require.Equal(t, 1, s.Len())

	ownedBefore := s.Owner()
	moved := mine.Clone()
	moved.OwnerID = uuid.New()
	ev := deleteEvent(moved)
	ev.OldOwnerID = &ownedBefore
	s.ApplyEvent(ev)
	assert.Equal(t, 0, s.Len())
}

func TestToggleSelectUnknownIDIgnored(t *testing.T) {
	s, _ := newTestSession(t)

	s.ToggleSelect(uuid.New())

	assert.Empty(t, s.Selected())
}

func TestSelectAllVisible(t *testing.T) {
	// Setup: two work tasks, one personal
	s, store := newTestSession(t)
	w1 := store.seed(models.Task{Title: "w1", Category: "Work"})
	w2 := store.seed(models.Task{Title: "w2", Category: "Work"})
	p1 := store.seed(models.Task{Title: "p1", Category: "Personal"})
	require.NoError(t, s.Load(context.Background()))

	workOnly := Filters{Category: "Work"}

	// Execute: select-all scoped to the filtered view
	s.SelectAllVisible(workOnly)

	// Assert
	assert.ElementsMatch(t, []uuid.UUID{w1.ID, w2.ID}, s.Selected())
	assert.False(t, s.IsSelected(p1.ID))

	// All visible already selected → the whole selection clears.
	s.SelectAllVisible(workOnly)
	assert.Empty(t, s.Selected())

	// A partial selection is replaced, not extended.
	s.ToggleSelect(p1.ID)
	s.SelectAllVisible(workOnly)
	assert.ElementsMatch(t, []uuid.UUID{w1.ID, w2.ID}, s.Selected())
}

func TestCategoriesExtendDefaultsWithObservedValues(t *testing.T) {
	// Setup
	s, store := newTestSession(t)
	store.seed(models.Task{Title: "a", Category: "Work"})
	store.seed(models.Task{Title: "b", Category: "gym"})
	store.seed(models.Task{Title: "c", Category: "gym"})
	store.seed(models.Task{Title: "d", Category: "auto"})
	store.seed(models.Task{Title: "e"})
	require.NoError(t, s.Load(context.Background()))

	// Execute
	got := s.Categories()

	// Assert: defaults first, observed extras deduplicated and sorted after,
	// the empty category never offered.
	want := append(append([]string{}, models.DefaultCategories...), "auto", "gym")
	assert.Equal(t, want, got)
}

type fakeFeed struct {
	mu      sync.Mutex
	handler func(feed.Event)
	subs    int
	unsubs  int
}

type fakeSubscription struct {
	f *fakeFeed
}

func (s *fakeSubscription) Unsubscribe() error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.unsubs++
	s.f.handler = nil
	return nil
}

func (f *fakeFeed) Subscribe(_ context.Context, handler func(feed.Event)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs++
	f.handler = handler
	return &fakeSubscription{f: f}, nil
}

func (f *fakeFeed) emit(ev feed.Event) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

func TestAttachFeedRoutesEventsIntoSession(t *testing.T) {
	// Setup
	s, _ := newTestSession(t)
	ff := &fakeFeed{}
	require.NoError(t, s.AttachFeed(context.Background(), ff))

	// Execute
	task := models.Task{ID: uuid.New(), OwnerID: s.Owner(), Title: "pushed"}
	ff.emit(insertEvent(task))

	// Assert
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Close())
	assert.Equal(t, 1, ff.unsubs)

	// Events after Close are not delivered.
	ff.emit(insertEvent(models.Task{ID: uuid.New(), OwnerID: s.Owner(), Title: "late"}))
	assert.Equal(t, 1, s.Len())
}

func TestCacheNeverHoldsDuplicateIDs(t *testing.T) {
	// Setup: a mixed sequence of loads, mutations and feed events
	s, store := newTestSession(t)
	seeded := store.seed(models.Task{Title: "seeded"})
	require.NoError(t, s.Load(context.Background()))

	created, err := s.Create(context.Background(), TaskDraft{Title: "created"})
	require.NoError(t, err)

	s.ApplyEvent(insertEvent(created))
	s.ApplyEvent(updateEvent(created))
	require.NoError(t, s.ToggleComplete(context.Background(), seeded.ID))
	s.ApplyEvent(insertEvent(seeded))
	require.NoError(t, s.Load(context.Background()))

	// Assert: every id appears exactly once
	seen := make(map[uuid.UUID]bool)
	for _, task := range s.Tasks() {
		assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
	}
	assert.Equal(t, 2, s.Len())
}
