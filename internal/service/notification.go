package service

import (
	"context"
	"log"
	"time"

	"konnekt/internal/cache"
	"konnekt/internal/model"
	"konnekt/internal/repository"
)

type NotificationService struct {
	notifRepo repository.NotificationRepository
	counter   cache.Counter
}

func NewNotificationService(notifRepo repository.NotificationRepository, counter cache.Counter) *NotificationService {
	return &NotificationService{notifRepo: notifRepo, counter: counter}
}

// Counts returns the total and unread badge counters.
func (s *NotificationService) Counts(ctx context.Context, userID int64) (model.NotificationCounts, error) {
	if !model.ValidID(userID) {
		return model.NotificationCounts{}, model.ErrInvalidID
	}
	total, err := s.counter.Get(ctx, cache.UserCounterKey(userID, model.CounterNotifications), func(ctx context.Context) (int64, error) {
		return s.notifRepo.Count(ctx, userID)
	})
	if err != nil {
		return model.NotificationCounts{}, err
	}
	unread, err := s.counter.Get(ctx, cache.UserCounterKey(userID, model.CounterUnread), func(ctx context.Context) (int64, error) {
		return s.notifRepo.CountUnread(ctx, userID)
	})
	if err != nil {
		return model.NotificationCounts{}, err
	}
	return model.NotificationCounts{Total: total, Unread: unread}, nil
}

func (s *NotificationService) List(ctx context.Context, userID int64, cursor *time.Time, limit int) (*model.NotificationListResponse, error) {
	if !model.ValidID(userID) {
		return nil, model.ErrInvalidID
	}
	items, nextCursor, err := s.notifRepo.List(ctx, userID, cursor, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Notification{}
	}
	return &model.NotificationListResponse{
		Notifications: items,
		NextCursor:    formatCursor(nextCursor),
		HasMore:       nextCursor != nil,
	}, nil
}

// MarkAllRead marks every notification read and drops the cached unread counter.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	if !model.ValidID(userID) {
		return 0, model.ErrInvalidID
	}
	n, err := s.notifRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}

	key := cache.UserCounterKey(userID, model.CounterUnread)
	if err := s.counter.Delete(context.WithoutCancel(ctx), key); err != nil {
		log.Printf("[NotificationService] Invalidate FAILED: key=%s err=%v", key, err)
	}
	log.Printf("[NotificationService] MarkAllRead OK: user=%d updated=%d", userID, n)
	return n, nil
}
