package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"konnekt/internal/cache"
	"konnekt/internal/model"
)

// =============================================================================
// Mocks
// =============================================================================

type recordingSink struct {
	name string
	got  []model.Notification
	err  error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Notify(ctx context.Context, n model.Notification) error {
	s.got = append(s.got, n)
	return s.err
}

type mockNotificationRepo struct {
	rows      []model.Notification
	createErr error
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = int64(len(m.rows) + 1)
	n.CreatedAt = time.Now()
	m.rows = append(m.rows, *n)
	return nil
}

func (m *mockNotificationRepo) List(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.Notification, *time.Time, error) {
	return m.rows, nil, nil
}

func (m *mockNotificationRepo) Count(ctx context.Context, userID int64) (int64, error) {
	var n int64
	for _, r := range m.rows {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	for _, r := range m.rows {
		if r.UserID == userID && !r.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

type mockPublisher struct {
	subject string
	data    []byte
	err     error
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.subject = subject
	m.data = data
	return &jetstream.PubAck{Stream: StreamName, Sequence: 1}, nil
}

// =============================================================================
// Fanout
// =============================================================================

func TestFanout_DeliversToEverySinkDespiteFailures(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("down")}
	ok := &recordingSink{name: "ok"}
	f := NewFanout(failing, ok)

	n := model.Notification{UserID: 2, ActorID: 1, Type: model.NotificationFollow}
	if err := f.Notify(context.Background(), n); err != nil {
		t.Fatalf("Fanout must not return errors, got %v", err)
	}
	if len(failing.got) != 1 || len(ok.got) != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", len(failing.got), len(ok.got))
	}
}

func TestFanout_DropsSelfNotifications(t *testing.T) {
	sink := &recordingSink{name: "s"}
	f := NewFanout(sink)

	f.Notify(context.Background(), model.Notification{UserID: 1, ActorID: 1, Type: model.NotificationLike})

	if len(sink.got) != 0 {
		t.Error("self-notification should be dropped")
	}
}

// =============================================================================
// StoreSink
// =============================================================================

func TestStoreSink_PersistsAndCounts(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	counter := cache.NewCounter(client, time.Hour)
	repo := &mockNotificationRepo{}
	sink := NewStoreSink(repo, counter)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := sink.Notify(ctx, model.Notification{UserID: 5, ActorID: int64(10 + i), Type: model.NotificationFollow}); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}

	if len(repo.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(repo.rows))
	}

	// The first adjust reseeds from the store (1), the second increments (2).
	total, _ := mr.Get(cache.UserCounterKey(5, model.CounterNotifications))
	unread, _ := mr.Get(cache.UserCounterKey(5, model.CounterUnread))
	if total != "2" || unread != "2" {
		t.Errorf("counters total=%s unread=%s, want 2/2", total, unread)
	}
}

func TestStoreSink_PropagatesStoreFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	sink := NewStoreSink(&mockNotificationRepo{createErr: errors.New("db down")}, cache.NewCounter(client, time.Hour))

	if err := sink.Notify(context.Background(), model.Notification{UserID: 1, ActorID: 2}); err == nil {
		t.Error("expected error")
	}
	if mr.Exists(cache.UserCounterKey(1, model.CounterNotifications)) {
		t.Error("counter must not move when the row was not stored")
	}
}

// =============================================================================
// NATSSink
// =============================================================================

func TestNATSSink_PublishesOnKindSubject(t *testing.T) {
	pub := &mockPublisher{}
	sink := NewNATSSinkWithPublisher(pub)
	postID := int64(77)

	n := model.Notification{
		UserID:      3,
		ActorID:     4,
		Type:        model.NotificationLike,
		SubjectType: model.SubjectPost,
		SubjectID:   &postID,
	}
	if err := sink.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if pub.subject != "notify.like" {
		t.Errorf("subject = %s, want notify.like", pub.subject)
	}
	var payload struct {
		RecipientID int64  `json:"recipient_id"`
		ActorID     int64  `json:"actor_id"`
		Type        string `json:"type"`
		SubjectID   int64  `json:"subject_id"`
	}
	if err := json.Unmarshal(pub.data, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.RecipientID != 3 || payload.ActorID != 4 || payload.SubjectID != 77 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestNATSSink_PublishError(t *testing.T) {
	sink := NewNATSSinkWithPublisher(&mockPublisher{err: errors.New("no responders")})
	if err := sink.Notify(context.Background(), model.Notification{UserID: 1, ActorID: 2, Type: "follow"}); err == nil {
		t.Error("expected error")
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close without connection: %v", err)
	}
}
