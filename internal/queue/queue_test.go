package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"konnekt/internal/mirror"
	"konnekt/internal/model"
)

func TestMirrorEvent_MapRoundTrip(t *testing.T) {
	op := mirror.ReactionOp(7, model.SubjectComment, 9, model.ReactionDislike)
	event := NewMirrorEvent(op).Retry()

	values, err := event.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if values["kind"] != string(mirror.KindReaction) {
		t.Errorf("kind field = %v", values["kind"])
	}

	parsed, err := ParseMirrorEvent(values)
	if err != nil {
		t.Fatalf("ParseMirrorEvent: %v", err)
	}
	if parsed != event {
		t.Errorf("parsed = %+v, want %+v", parsed, event)
	}
	if parsed.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", parsed.Attempts)
	}
}

func TestParseMirrorEvent_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]interface{}
	}{
		{"missing data", map[string]interface{}{"kind": "follow"}},
		{"invalid json", map[string]interface{}{"data": "{"}},
		{"no op kind", map[string]interface{}{"data": `{"id":"x","op":{}}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMirrorEvent(tt.values); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestConsumer_DropsMalformedEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	consumer := NewConsumer(client)
	if err := consumer.EnsureGroup(ctx, StreamMirror, ConsumerGroupMirror); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}
	// Creating the group twice is not an error.
	if err := consumer.EnsureGroup(ctx, StreamMirror, ConsumerGroupMirror); err != nil {
		t.Fatalf("EnsureGroup again: %v", err)
	}

	client.XAdd(ctx, &redis.XAddArgs{Stream: StreamMirror, Values: map[string]interface{}{"data": "garbage"}})
	if err := NewPublisher(client).Enqueue(ctx, mirror.FollowOp(1, 2)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	msgs, err := consumer.Read(ctx, StreamMirror, ConsumerGroupMirror, "c1", 10, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Event.Op != mirror.FollowOp(1, 2) {
		t.Fatalf("msgs = %+v, want the follow op only", msgs)
	}

	// The malformed entry was acknowledged; only the valid one is pending.
	pending, err := consumer.Pending(ctx, StreamMirror, ConsumerGroupMirror)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending = %d, want 1", pending)
	}

	again, err := consumer.ReadPending(ctx, StreamMirror, ConsumerGroupMirror, "c1", 10)
	if err != nil || len(again) != 1 {
		t.Fatalf("ReadPending = %d msgs, err %v", len(again), err)
	}
	if err := consumer.Ack(ctx, StreamMirror, ConsumerGroupMirror, again[0].ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if pending, _ := consumer.Pending(ctx, StreamMirror, ConsumerGroupMirror); pending != 0 {
		t.Errorf("pending after ack = %d", pending)
	}
}
