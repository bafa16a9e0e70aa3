package service

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"konnekt/internal/cache"
	"konnekt/internal/metrics"
	"konnekt/internal/mirror"
	"konnekt/internal/model"
	"konnekt/internal/notification"
	"konnekt/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	friendRepo repository.FriendshipRepository
	userRepo   repository.UserRepository
	tx         repository.Transactor
	counter    cache.Counter
	mirror     MirrorApplier
	notifier   notification.Sink
}

func NewFollowService(
	followRepo repository.FollowRepository,
	friendRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
	tx repository.Transactor,
	counter cache.Counter,
	mirror MirrorApplier,
	notifier notification.Sink,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		friendRepo: friendRepo,
		userRepo:   userRepo,
		tx:         tx,
		counter:    counter,
		mirror:     mirror,
		notifier:   notifier,
	}
}

func (s *FollowService) Follow(ctx context.Context, followerID, followeeID int64) (*model.FollowResult, error) {
	if err := requirePair(followerID, followeeID); err != nil {
		return nil, err
	}

	_, err := s.userRepo.GetByID(ctx, followeeID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		// Same lock as friendship transitions, so a concurrent block cannot miss this edge.
		if err := s.friendRepo.LockPair(ctx, tx, followerID, followeeID); err != nil {
			return err
		}
		blocked, err := s.friendRepo.IsBlocked(ctx, tx, followerID, followeeID)
		if err != nil {
			return err
		}
		if blocked {
			return model.ErrFollowBlocked
		}

		inserted, err := s.followRepo.Create(ctx, tx, followerID, followeeID)
		if err != nil {
			return err
		}
		if !inserted {
			return model.ErrAlreadyFollowing
		}
		return nil
	})
	if err != nil {
		metrics.Transition("follow", string(model.KindOf(err)))
		return nil, err
	}
	metrics.Transition("follow", "ok")
	log.Printf("[FollowService] Follow OK: follower=%d followee=%d", followerID, followeeID)

	ctx = context.WithoutCancel(ctx)
	var w warnings
	count := s.adjustCounts(ctx, &w, followerID, followeeID, 1)
	mirrorAll(ctx, s.mirror, &w, mirror.FollowOp(followerID, followeeID))
	w.add(s.notifier.Notify(ctx, model.Notification{
		UserID:  followeeID,
		ActorID: followerID,
		Type:    model.NotificationFollow,
	}))

	return &model.FollowResult{FollowerCount: count, Warnings: w.list()}, nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) (*model.FollowResult, error) {
	if err := requirePair(followerID, followeeID); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		return s.followRepo.Delete(ctx, tx, followerID, followeeID)
	})
	if err != nil {
		metrics.Transition("unfollow", string(model.KindOf(err)))
		return nil, err
	}
	metrics.Transition("unfollow", "ok")
	log.Printf("[FollowService] Unfollow OK: follower=%d followee=%d", followerID, followeeID)

	ctx = context.WithoutCancel(ctx)
	var w warnings
	count := s.adjustCounts(ctx, &w, followerID, followeeID, -1)
	mirrorAll(ctx, s.mirror, &w, mirror.UnfollowOp(followerID, followeeID))

	return &model.FollowResult{FollowerCount: count, Warnings: w.list()}, nil
}

// adjustCounts moves the followee's follower counter and the follower's following
// counter, returning the former.
func (s *FollowService) adjustCounts(ctx context.Context, w *warnings, followerID, followeeID, delta int64) int64 {
	count := adjust(ctx, s.counter, w, cache.UserCounterKey(followeeID, model.CounterFollowers), delta, func(ctx context.Context) (int64, error) {
		return s.followRepo.CountFollowers(ctx, followeeID)
	})
	adjust(ctx, s.counter, w, cache.UserCounterKey(followerID, model.CounterFollowing), delta, func(ctx context.Context) (int64, error) {
		return s.followRepo.CountFollowing(ctx, followerID)
	})
	return count
}

func (s *FollowService) FollowerCount(ctx context.Context, userID int64) (int64, error) {
	if !model.ValidID(userID) {
		return 0, model.ErrInvalidID
	}
	return s.counter.Get(ctx, cache.UserCounterKey(userID, model.CounterFollowers), func(ctx context.Context) (int64, error) {
		return s.followRepo.CountFollowers(ctx, userID)
	})
}

func (s *FollowService) FollowingCount(ctx context.Context, userID int64) (int64, error) {
	if !model.ValidID(userID) {
		return 0, model.ErrInvalidID
	}
	return s.counter.Get(ctx, cache.UserCounterKey(userID, model.CounterFollowing), func(ctx context.Context) (int64, error) {
		return s.followRepo.CountFollowing(ctx, userID)
	})
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if err := requirePair(followerID, followeeID); err != nil {
		return false, err
	}
	return s.followRepo.Exists(ctx, followerID, followeeID)
}

// GetFollowers retrieves users who follow the specified user, newest first.
// When viewerID is set each entry is marked with whether the viewer follows it.
func (s *FollowService) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	return s.list(ctx, s.followRepo.GetFollowers, userID, cursor, limit, viewerID)
}

// GetFollowing retrieves users that the specified user follows. See GetFollowers.
func (s *FollowService) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	return s.list(ctx, s.followRepo.GetFollowing, userID, cursor, limit, viewerID)
}

func (s *FollowService) list(ctx context.Context, fetch listFunc, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	if !model.ValidID(userID) {
		return nil, model.ErrInvalidID
	}
	users, nextCursor, err := fetch(ctx, userID, cursor, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}

	entries := make([]model.FollowEntry, len(users))
	for i, u := range users {
		entries[i] = model.FollowEntry{UserSummary: u}
	}
	if viewerID != nil {
		entries = s.enrichWithFollowStatus(ctx, *viewerID, entries)
	}

	return &model.FollowListResponse{
		Users:      entries,
		NextCursor: formatCursor(nextCursor),
		HasMore:    nextCursor != nil,
	}, nil
}

// enrichWithFollowStatus checks the whole page in one query. If the check fails
// the entries are returned with is_following=false.
func (s *FollowService) enrichWithFollowStatus(ctx context.Context, viewerID int64, entries []model.FollowEntry) []model.FollowEntry {
	if len(entries) == 0 {
		return entries
	}

	userIDs := make([]int64, len(entries))
	for i, e := range entries {
		userIDs[i] = e.ID
	}

	followMap, err := s.followRepo.CheckFollows(ctx, viewerID, userIDs)
	if err != nil {
		log.Printf("[FollowService] CheckFollows FAILED: viewer=%d err=%v", viewerID, err)
		return entries
	}

	for i := range entries {
		entries[i].IsFollowing = followMap[entries[i].ID]
	}
	return entries
}
