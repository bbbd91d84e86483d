// internal/feed/event.go
package feed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"taskdeck/internal/models"
)

// Action identifies the kind of row change an event describes.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

var ErrBadPayload = errors.New("malformed feed payload")

// Event is one change-feed entry. Task carries the new row for inserts and
// updates, and the old row for deletes. OldOwnerID is set on updates so an
// event stays routable to its owner even if ownership ever changed mid-update.
type Event struct {
	Action     Action      `json:"action"`
	Task       models.Task `json:"task"`
	OldOwnerID *uuid.UUID  `json:"old_owner_id,omitempty"`
}

// DecodeEvent parses a trigger payload into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	switch ev.Action {
	case ActionInsert, ActionUpdate, ActionDelete:
	default:
		return Event{}, fmt.Errorf("%w: unknown action %q", ErrBadPayload, ev.Action)
	}
	if ev.Task.ID == uuid.Nil {
		return Event{}, fmt.Errorf("%w: missing task id", ErrBadPayload)
	}
	return ev, nil
}

// Owned reports whether the event belongs to the given owner. Either side of
// an update counts, so no event can slip past its owner's subscription.
func (e Event) Owned(owner uuid.UUID) bool {
	if e.Task.OwnerID == owner {
		return true
	}
	return e.OldOwnerID != nil && *e.OldOwnerID == owner
}

// Subject returns the per-owner broker subject for the event.
func (e Event) Subject(prefix string) string {
	return SubjectFor(prefix, e.Task.OwnerID)
}

// SubjectFor builds the broker subject carrying all events of one owner.
func SubjectFor(prefix string, owner uuid.UUID) string {
	return prefix + "." + owner.String()
}
