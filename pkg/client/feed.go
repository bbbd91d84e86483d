// pkg/client/feed.go
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"taskdeck/internal/feed"
	"taskdeck/internal/session"
)

// FeedSubscriber delivers one owner's change events from the broker to a
// session. Malformed messages are logged and dropped; a later full reload
// resynchronizes anything missed.
type FeedSubscriber struct {
	nc     *nats.Conn
	prefix string
	owner  uuid.UUID
	log    *slog.Logger
}

var _ session.Feed = (*FeedSubscriber)(nil)

func NewFeedSubscriber(nc *nats.Conn, prefix string, owner uuid.UUID, log *slog.Logger) *FeedSubscriber {
	return &FeedSubscriber{
		nc:     nc,
		prefix: prefix,
		owner:  owner,
		log:    log.With("component", "feed_subscriber", "owner_id", owner),
	}
}

// Subscribe attaches the handler to the owner's subject. The returned
// subscription stops delivery when unsubscribed.
func (f *FeedSubscriber) Subscribe(_ context.Context, handler func(feed.Event)) (session.Subscription, error) {
	subject := feed.SubjectFor(f.prefix, f.owner)
	sub, err := f.nc.Subscribe(subject, func(msg *nats.Msg) {
		ev, err := feed.DecodeEvent(msg.Data)
		if err != nil {
			f.log.Warn("dropping malformed feed message", "subject", msg.Subject, "error", err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}
