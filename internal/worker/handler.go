package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"konnekt/internal/mirror"
	"konnekt/internal/queue"
)

// Replayer applies a deferred mirror op once.
// This abstracts the dispatcher so workers don't depend on Neo4j directly.
type Replayer interface {
	Replay(ctx context.Context, op mirror.Op) error
}

// Handler processes mirror events from the outbox stream.
type Handler struct {
	replayer Replayer
}

// NewHandler creates a new event handler.
func NewHandler(replayer Replayer) *Handler {
	return &Handler{replayer: replayer}
}

// HandleEvent replays the op carried by event. Ops are idempotent, so an event
// delivered twice leaves the graph unchanged.
func (h *Handler) HandleEvent(ctx context.Context, event queue.MirrorEvent) error {
	startTime := time.Now()

	if err := h.replayer.Replay(ctx, event.Op); err != nil {
		log.Printf("[Worker] HandleEvent FAILED: event=%s op=%s attempts=%d duration=%v err=%v",
			event.ID, event.Op, event.Attempts, time.Since(startTime), err)
		return fmt.Errorf("replay %s: %w", event.Op, err)
	}

	lag := time.Since(time.Unix(event.Timestamp, 0))
	log.Printf("[Worker] HandleEvent OK: event=%s op=%s attempts=%d lag=%v duration=%v",
		event.ID, event.Op, event.Attempts, lag.Round(time.Second), time.Since(startTime))
	return nil
}
