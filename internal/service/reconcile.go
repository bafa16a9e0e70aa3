package service

import (
	"context"

	"konnekt/internal/mirror"
	"konnekt/internal/model"
	"konnekt/internal/repository"
)

// MirrorSource implements mirror.Source from the relational store. For a queued
// op it returns the writes that reproduce the current rows of the same pair or
// subject, whatever the op originally said.
type MirrorSource struct {
	friendRepo   repository.FriendshipRepository
	followRepo   repository.FollowRepository
	reactionRepo repository.ReactionRepository
}

func NewMirrorSource(
	friendRepo repository.FriendshipRepository,
	followRepo repository.FollowRepository,
	reactionRepo repository.ReactionRepository,
) *MirrorSource {
	return &MirrorSource{
		friendRepo:   friendRepo,
		followRepo:   followRepo,
		reactionRepo: reactionRepo,
	}
}

func (s *MirrorSource) Reconcile(ctx context.Context, op mirror.Op) ([]mirror.Op, error) {
	switch op.Kind {
	case mirror.KindFollow, mirror.KindUnfollow:
		following, err := s.followRepo.Exists(ctx, op.ActorID, op.TargetID)
		if err != nil {
			return nil, err
		}
		if following {
			return []mirror.Op{mirror.FollowOp(op.ActorID, op.TargetID)}, nil
		}
		return []mirror.Op{mirror.UnfollowOp(op.ActorID, op.TargetID)}, nil

	case mirror.KindFriendRequest, mirror.KindAccept, mirror.KindReject,
		mirror.KindBlock, mirror.KindUnblock, mirror.KindUnfriend, mirror.KindClearPair:
		f, err := s.friendRepo.Get(ctx, op.ActorID, op.TargetID)
		if err != nil {
			return nil, err
		}
		return friendshipOps(op.ActorID, op.TargetID, f), nil

	case mirror.KindReaction, mirror.KindUnreact:
		r, err := s.reactionRepo.Get(ctx, op.SubjectType, op.TargetID, op.ActorID)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return []mirror.Op{mirror.ReactionOp(op.ActorID, op.SubjectType, op.TargetID, r.Type)}, nil
		}
		return []mirror.Op{
			mirror.UnreactOp(op.ActorID, op.SubjectType, op.TargetID, model.ReactionLike),
			mirror.UnreactOp(op.ActorID, op.SubjectType, op.TargetID, model.ReactionDislike),
		}, nil
	}

	// Views, tags, interests and user nodes are only ever added.
	return []mirror.Op{op}, nil
}

// friendshipOps clears the pair and redraws the edge of its current row, if any.
// Row senders are the last actor, which matches each op's actor argument.
func friendshipOps(a, b int64, f *model.Friendship) []mirror.Op {
	ops := []mirror.Op{mirror.ClearPairOp(a, b)}
	if f == nil {
		return ops
	}
	switch f.Status {
	case model.FriendshipPending:
		ops = append(ops, mirror.FriendRequestOp(f.SenderID, f.ReceiverID))
	case model.FriendshipAccepted:
		ops = append(ops, mirror.AcceptOp(f.SenderID, f.ReceiverID))
	case model.FriendshipRejected:
		ops = append(ops, mirror.RejectOp(f.SenderID, f.ReceiverID))
	case model.FriendshipBlocked:
		ops = append(ops, mirror.BlockOp(f.SenderID, f.ReceiverID))
	}
	return ops
}
