// internal/feed/bridge.go
package feed

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Bridge republishes feed events to the broker on per-owner subjects so each
// client session only receives its own changes.
type Bridge struct {
	events <-chan Event
	nc     *nats.Conn
	prefix string
	log    *slog.Logger
}

// NewBridge creates a bridge from a listener event stream to NATS.
func NewBridge(events <-chan Event, nc *nats.Conn, prefix string, log *slog.Logger) *Bridge {
	return &Bridge{
		events: events,
		nc:     nc,
		prefix: prefix,
		log:    log.With("component", "feed_bridge"),
	}
}

// Run forwards events until ctx is cancelled or the event stream closes.
// Publish failures are logged and skipped; a missed echo only delays a
// client until its next reload, it never corrupts state.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-b.events:
			if !ok {
				return nil
			}

			data, err := json.Marshal(ev)
			if err != nil {
				b.log.Error("marshal event", "error", err, "task_id", ev.Task.ID)
				continue
			}

			b.publish(ev.Subject(b.prefix), data, ev)
			// Owners are immutable, but if a row ever did move, the previous
			// owner's subscription still hears about it.
			if ev.OldOwnerID != nil && *ev.OldOwnerID != ev.Task.OwnerID {
				b.publish(SubjectFor(b.prefix, *ev.OldOwnerID), data, ev)
			}
		}
	}
}

func (b *Bridge) publish(subject string, data []byte, ev Event) {
	if err := b.nc.Publish(subject, data); err != nil {
		b.log.Error("publish event", "error", err, "subject", subject)
		return
	}
	b.log.Debug("event published",
		"subject", subject,
		"action", string(ev.Action),
		"task_id", ev.Task.ID,
	)
}
