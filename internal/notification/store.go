package notification

import (
	"context"
	"fmt"
	"log"

	"konnekt/internal/cache"
	"konnekt/internal/model"
	"konnekt/internal/repository"
)

// StoreSink persists notifications so the notification counters have an authoritative source.
type StoreSink struct {
	repo    repository.NotificationRepository
	counter cache.Counter
}

func NewStoreSink(repo repository.NotificationRepository, counter cache.Counter) *StoreSink {
	return &StoreSink{repo: repo, counter: counter}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Notify(ctx context.Context, n model.Notification) error {
	if err := s.repo.Create(ctx, &n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	userID := n.UserID
	if _, err := s.counter.Adjust(ctx, cache.UserCounterKey(userID, model.CounterNotifications), 1, func(ctx context.Context) (int64, error) {
		return s.repo.Count(ctx, userID)
	}); err != nil {
		log.Printf("[Notification] Counter FAILED: user=%d kind=%s err=%v", userID, model.CounterNotifications, err)
	}
	if _, err := s.counter.Adjust(ctx, cache.UserCounterKey(userID, model.CounterUnread), 1, func(ctx context.Context) (int64, error) {
		return s.repo.CountUnread(ctx, userID)
	}); err != nil {
		log.Printf("[Notification] Counter FAILED: user=%d kind=%s err=%v", userID, model.CounterUnread, err)
	}

	log.Printf("[Notification] Store OK: id=%d type=%s user=%d actor=%d", n.ID, n.Type, n.UserID, n.ActorID)
	return nil
}
