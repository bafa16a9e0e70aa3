package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"konnekt/internal/cache"
	"konnekt/internal/friendship"
	"konnekt/internal/metrics"
	"konnekt/internal/mirror"
	"konnekt/internal/model"
	"konnekt/internal/notification"
	"konnekt/internal/repository"
)

type FriendshipService struct {
	friendRepo repository.FriendshipRepository
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	tx         repository.Transactor
	counter    cache.Counter
	mirror     MirrorApplier
	notifier   notification.Sink
	now        func() time.Time
}

func NewFriendshipService(
	friendRepo repository.FriendshipRepository,
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	tx repository.Transactor,
	counter cache.Counter,
	mirror MirrorApplier,
	notifier notification.Sink,
) *FriendshipService {
	return &FriendshipService{
		friendRepo: friendRepo,
		followRepo: followRepo,
		userRepo:   userRepo,
		tx:         tx,
		counter:    counter,
		mirror:     mirror,
		notifier:   notifier,
		now:        time.Now,
	}
}

// Request sends a friend request from actor to target.
func (s *FriendshipService) Request(ctx context.Context, actorID, targetID int64) (*model.FriendshipResult, error) {
	return s.transition(ctx, friendship.ActionRequest, actorID, targetID)
}

// Accept accepts the pending request target sent to actor.
func (s *FriendshipService) Accept(ctx context.Context, actorID, requesterID int64) (*model.FriendshipResult, error) {
	return s.transition(ctx, friendship.ActionAccept, actorID, requesterID)
}

// Reject rejects the pending request target sent to actor.
func (s *FriendshipService) Reject(ctx context.Context, actorID, requesterID int64) (*model.FriendshipResult, error) {
	return s.transition(ctx, friendship.ActionReject, actorID, requesterID)
}

// Block replaces any friendship row with a block and drops follow edges both ways.
func (s *FriendshipService) Block(ctx context.Context, actorID, targetID int64) (*model.FriendshipResult, error) {
	return s.transition(ctx, friendship.ActionBlock, actorID, targetID)
}

func (s *FriendshipService) Unblock(ctx context.Context, actorID, targetID int64) (*model.FriendshipResult, error) {
	return s.transition(ctx, friendship.ActionUnblock, actorID, targetID)
}

// Remove ends an accepted friendship regardless of who sent the request.
func (s *FriendshipService) Remove(ctx context.Context, actorID, friendID int64) (*model.FriendshipResult, error) {
	return s.transition(ctx, friendship.ActionRemove, actorID, friendID)
}

func (s *FriendshipService) transition(ctx context.Context, action friendship.Action, actorID, targetID int64) (*model.FriendshipResult, error) {
	if err := requirePair(actorID, targetID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	var t friendship.Transition
	var removedFollows []model.Follow

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.friendRepo.LockPair(ctx, tx, actorID, targetID); err != nil {
			return err
		}
		forward, reverse, err := s.friendRepo.GetPair(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}

		t, err = friendship.Decide(action, actorID, targetID, forward, reverse, s.now())
		if err != nil {
			return err
		}

		for _, k := range t.Delete {
			if err := s.friendRepo.Delete(ctx, tx, k.SenderID, k.ReceiverID); err != nil {
				return err
			}
		}
		if t.Insert != nil {
			if err := s.friendRepo.Insert(ctx, tx, t.Insert); err != nil {
				return err
			}
		}

		if action == friendship.ActionBlock {
			removedFollows, err = s.followRepo.DeleteBetween(ctx, tx, actorID, targetID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.Transition(string(action), string(model.KindOf(err)))
		var typed *model.Error
		if !errors.As(err, &typed) {
			log.Printf("[FriendshipService] %s FAILED: actor=%d target=%d err=%v", action, actorID, targetID, err)
		}
		return nil, err
	}
	metrics.Transition(string(action), "ok")
	log.Printf("[FriendshipService] %s OK: actor=%d target=%d", action, actorID, targetID)

	// The transition is committed; the caller going away must not skip the rest.
	ctx = context.WithoutCancel(ctx)
	var w warnings
	s.applyEffects(ctx, t.Effects, &w)
	s.dropFollowCounters(ctx, removedFollows, &w)

	return &model.FriendshipResult{Friendship: t.Insert, Warnings: w.list()}, nil
}

// applyEffects runs effects in store order: counters, then mirror, then notifications.
func (s *FriendshipService) applyEffects(ctx context.Context, effects []friendship.Effect, w *warnings) {
	for _, e := range effects {
		if d, ok := e.(friendship.FriendCountDelta); ok {
			for _, id := range d.UserIDs {
				s.adjustFriends(ctx, w, id, d.Delta)
			}
		}
	}
	for _, e := range effects {
		if m, ok := e.(friendship.MirrorEdge); ok {
			mirrorAll(ctx, s.mirror, w, mirrorOpFor(m))
		}
	}
	for _, e := range effects {
		if n, ok := e.(friendship.Notify); ok {
			w.add(s.notifier.Notify(ctx, model.Notification{
				UserID:  n.RecipientID,
				ActorID: n.ActorID,
				Type:    n.Kind,
			}))
		}
	}
}

func (s *FriendshipService) adjustFriends(ctx context.Context, w *warnings, userID, delta int64) {
	adjust(ctx, s.counter, w, cache.UserCounterKey(userID, model.CounterFriends), delta, func(ctx context.Context) (int64, error) {
		return s.friendRepo.CountAccepted(ctx, userID)
	})
}

// dropFollowCounters decrements counters for follow edges removed by a block.
// The mirror block op already removed the FOLLOWS edges.
func (s *FriendshipService) dropFollowCounters(ctx context.Context, removed []model.Follow, w *warnings) {
	for _, f := range removed {
		followeeID, followerID := f.FolloweeID, f.FollowerID
		adjust(ctx, s.counter, w, cache.UserCounterKey(followeeID, model.CounterFollowers), -1, func(ctx context.Context) (int64, error) {
			return s.followRepo.CountFollowers(ctx, followeeID)
		})
		adjust(ctx, s.counter, w, cache.UserCounterKey(followerID, model.CounterFollowing), -1, func(ctx context.Context) (int64, error) {
			return s.followRepo.CountFollowing(ctx, followerID)
		})
	}
}

func mirrorOpFor(e friendship.MirrorEdge) mirror.Op {
	switch e.Action {
	case friendship.ActionRequest:
		return mirror.FriendRequestOp(e.ActorID, e.TargetID)
	case friendship.ActionAccept:
		return mirror.AcceptOp(e.ActorID, e.TargetID)
	case friendship.ActionReject:
		return mirror.RejectOp(e.ActorID, e.TargetID)
	case friendship.ActionBlock:
		return mirror.BlockOp(e.ActorID, e.TargetID)
	case friendship.ActionUnblock:
		return mirror.UnblockOp(e.ActorID, e.TargetID)
	default:
		return mirror.UnfriendOp(e.ActorID, e.TargetID)
	}
}

// Status reports the friendship between viewer and other from the viewer's side.
func (s *FriendshipService) Status(ctx context.Context, viewerID, otherID int64) (model.FriendshipState, error) {
	if err := requirePair(viewerID, otherID); err != nil {
		return model.FriendshipState{}, err
	}
	row, err := s.friendRepo.Get(ctx, viewerID, otherID)
	if err != nil {
		return model.FriendshipState{}, err
	}
	return friendship.StateFor(viewerID, row), nil
}

func (s *FriendshipService) FriendCount(ctx context.Context, userID int64) (int64, error) {
	if !model.ValidID(userID) {
		return 0, model.ErrInvalidID
	}
	return s.counter.Get(ctx, cache.UserCounterKey(userID, model.CounterFriends), func(ctx context.Context) (int64, error) {
		return s.friendRepo.CountAccepted(ctx, userID)
	})
}

type listFunc func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)

func (s *FriendshipService) ListFriends(ctx context.Context, userID int64, cursor *time.Time, limit int) (*model.UserListResponse, error) {
	return listUsers(ctx, s.friendRepo.ListFriends, userID, cursor, limit)
}

// ListIncoming lists users with a pending request to userID.
func (s *FriendshipService) ListIncoming(ctx context.Context, userID int64, cursor *time.Time, limit int) (*model.UserListResponse, error) {
	return listUsers(ctx, s.friendRepo.ListIncoming, userID, cursor, limit)
}

// ListOutgoing lists users userID has a pending request to.
func (s *FriendshipService) ListOutgoing(ctx context.Context, userID int64, cursor *time.Time, limit int) (*model.UserListResponse, error) {
	return listUsers(ctx, s.friendRepo.ListOutgoing, userID, cursor, limit)
}

func listUsers(ctx context.Context, list listFunc, userID int64, cursor *time.Time, limit int) (*model.UserListResponse, error) {
	if !model.ValidID(userID) {
		return nil, model.ErrInvalidID
	}
	users, nextCursor, err := list(ctx, userID, cursor, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.UserSummary{}
	}
	return &model.UserListResponse{
		Users:      users,
		NextCursor: formatCursor(nextCursor),
		HasMore:    nextCursor != nil,
	}, nil
}
