package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"konnekt/internal/mirror"
)

// Stream names
const (
	StreamMirror = "stream:mirror"

	// StreamMirrorDead holds ops that exhausted their replay attempts.
	StreamMirrorDead = "stream:mirror:dead"
)

// Consumer group name for mirror replay workers
const (
	ConsumerGroupMirror = "mirror_workers"
)

// MirrorEvent is a graph mirror op that could not be applied inline.
type MirrorEvent struct {
	ID        string    `json:"id"`        // uuid, used to correlate logs across retries
	Timestamp int64     `json:"timestamp"` // Unix timestamp when the op was deferred
	Attempts  int       `json:"attempts"`  // failed replays so far
	Op        mirror.Op `json:"op"`
}

// Retry returns a copy of e for the next replay attempt.
func (e MirrorEvent) Retry() MirrorEvent {
	e.Attempts++
	return e
}

// NewMirrorEvent wraps op with a fresh event id.
func NewMirrorEvent(op mirror.Op) MirrorEvent {
	return MirrorEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().Unix(),
		Op:        op,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e MirrorEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"kind": string(e.Op.Kind),
		"data": string(data),
	}, nil
}

// ParseMirrorEvent parses a MirrorEvent from Redis stream message values.
func ParseMirrorEvent(values map[string]interface{}) (MirrorEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return MirrorEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event MirrorEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return MirrorEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Op.Kind == "" {
		return MirrorEvent{}, fmt.Errorf("event %s has no op kind", event.ID)
	}
	return event, nil
}
