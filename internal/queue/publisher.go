package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"konnekt/internal/mirror"
)

// Publisher defines the interface for publishing events to a stream.
type Publisher interface {
	// Publish adds an event to the specified stream.
	// Returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, event MirrorEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
// It is also the mirror outbox.
type RedisPublisher struct {
	client *redis.Client
}

// NewPublisher creates a new Publisher backed by Redis Streams.
func NewPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish adds an event to the stream using XADD.
// Uses "*" for auto-generated message ID (timestamp-sequence).
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event MirrorEvent) (string, error) {
	startTime := time.Now()

	values, err := event.ToMap()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s op=%s err=%v", stream, event.Op, err)
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()

	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s op=%s err=%v", stream, event.Op, err)
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	log.Printf("[Publisher] Publish OK: stream=%s event=%s op=%s msgID=%s duration=%v",
		stream, event.ID, event.Op, messageID, time.Since(startTime))

	return messageID, nil
}

// Enqueue implements mirror.Outbox.
func (p *RedisPublisher) Enqueue(ctx context.Context, op mirror.Op) error {
	_, err := p.Publish(ctx, StreamMirror, NewMirrorEvent(op))
	return err
}
