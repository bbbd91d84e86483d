// internal/feed/listener.go
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"taskdeck/internal/config"
)

// pingInterval bounds how long a dead connection can go unnoticed when no
// notifications arrive.
const pingInterval = 90 * time.Second

// Listener turns Postgres NOTIFY payloads from the task trigger into typed
// events. pq handles reconnection; after a reconnect the server re-delivers
// nothing, which is acceptable because clients reconcile through full loads.
type Listener struct {
	pq      *pq.Listener
	channel string
	events  chan Event
	log     *slog.Logger
}

// NewListener connects to the database and starts listening on the feed
// channel.
func NewListener(dsn string, cfg config.FeedConfig, log *slog.Logger) (*Listener, error) {
	l := &Listener{
		channel: cfg.Channel,
		events:  make(chan Event, 64),
		log:     log.With("component", "feed_listener"),
	}

	l.pq = pq.NewListener(dsn, cfg.MinReconnect, cfg.MaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.log.Error("listener connection event", "event", int(ev), "error", err)
		}
	})

	if err := l.pq.Listen(cfg.Channel); err != nil {
		l.pq.Close()
		return nil, fmt.Errorf("listen on channel %s: %w", cfg.Channel, err)
	}

	return l, nil
}

// Events returns the stream of decoded feed events. The channel closes when
// Run returns.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Run pumps notifications until ctx is cancelled or the connection is lost
// for good.
func (l *Listener) Run(ctx context.Context) error {
	defer close(l.events)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case n, ok := <-l.pq.Notify:
			if !ok {
				return errors.New("notification channel closed")
			}
			// pq delivers a nil notification after a reconnect.
			if n == nil {
				l.log.Warn("listener reconnected, notifications may have been missed")
				continue
			}

			ev, err := DecodeEvent([]byte(n.Extra))
			if err != nil {
				l.log.Warn("dropping feed payload", "error", err)
				continue
			}

			select {
			case l.events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}

		case <-time.After(pingInterval):
			if err := l.pq.Ping(); err != nil {
				return fmt.Errorf("feed connection ping: %w", err)
			}
		}
	}
}

// Close tears down the underlying connection.
func (l *Listener) Close() error {
	return l.pq.Close()
}
