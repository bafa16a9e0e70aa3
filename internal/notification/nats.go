package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"konnekt/internal/model"
)

const (
	StreamName     = "NOTIFICATIONS"
	SubjectPattern = "notify.>"
)

// Publisher is the part of jetstream.JetStream the sink needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSSink publishes notifications to JetStream for push delivery services.
type NATSSink struct {
	js Publisher
	nc *nats.Conn
}

// NewNATSSink connects and makes sure the stream exists (idempotent).
func NewNATSSink(url string) (*NATSSink, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPattern},
		Storage:  jetstream.FileStorage,
		Replicas: 1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return &NATSSink{js: js, nc: nc}, nil
}

// NewNATSSinkWithPublisher wraps an existing publisher.
func NewNATSSinkWithPublisher(js Publisher) *NATSSink {
	return &NATSSink{js: js}
}

func (s *NATSSink) Name() string { return "nats" }

// Subject returns the subject a notification is published on, e.g. "notify.friend_request".
func Subject(n model.Notification) string {
	return "notify." + n.Type
}

// event is the published payload. model.Notification hides the recipient from API
// responses, so it is added back here.
type event struct {
	model.Notification
	RecipientID int64 `json:"recipient_id"`
}

func (s *NATSSink) Notify(ctx context.Context, n model.Notification) error {
	data, err := json.Marshal(event{Notification: n, RecipientID: n.UserID})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if _, err := s.js.Publish(ctx, Subject(n), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close drains the connection when the sink owns it.
func (s *NATSSink) Close() error {
	if s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}
