// Package notification delivers relationship and engagement notifications.
//
// Delivery is best effort: a committed transition is never rolled back
// because a notification could not be sent.
package notification

import (
	"context"
	"log"

	"konnekt/internal/metrics"
	"konnekt/internal/model"
)

// Sink delivers one notification.
type Sink interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Named sinks label their failures in logs and metrics.
type Named interface {
	Name() string
}

// Fanout delivers to every sink and swallows failures.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Notify never returns an error. Self-notifications are dropped.
func (f *Fanout) Notify(ctx context.Context, n model.Notification) error {
	if n.UserID == n.ActorID {
		return nil
	}
	for _, s := range f.sinks {
		if err := s.Notify(ctx, n); err != nil {
			name := "unknown"
			if named, ok := s.(Named); ok {
				name = named.Name()
			}
			metrics.NotificationsDropped.WithLabelValues(name).Inc()
			log.Printf("[Notification] Notify FAILED: sink=%s type=%s user=%d actor=%d err=%v",
				name, n.Type, n.UserID, n.ActorID, err)
		}
	}
	return nil
}
