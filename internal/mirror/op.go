// Package mirror keeps the Neo4j graph in step with the relational store.
//
// Every change is described by an Op. Ops are idempotent (MERGE/DELETE keyed
// by ids) so the same op can be applied inline, retried and replayed later from
// the outbox without changing the result.
package mirror

import (
	"fmt"

	"konnekt/internal/model"
)

// Kind names a mirror operation.
type Kind string

const (
	KindUpsertUser    Kind = "upsert_user"
	KindFollow        Kind = "follow"
	KindUnfollow      Kind = "unfollow"
	KindFriendRequest Kind = "friend_request"
	KindAccept        Kind = "accept"
	KindReject        Kind = "reject"
	KindBlock         Kind = "block"
	KindUnblock       Kind = "unblock"
	KindUnfriend      Kind = "unfriend"
	KindClearPair     Kind = "clear_pair"
	KindReaction      Kind = "reaction"
	KindUnreact       Kind = "unreact"
	KindView          Kind = "view"
	KindTag           Kind = "tag"
	KindInterest      Kind = "interest"
)

// Op is a single idempotent graph change. It is JSON encoded in the outbox.
type Op struct {
	Kind Kind `json:"kind"`

	// ActorID is the user performing the action, or the post for KindTag.
	ActorID int64 `json:"actor_id"`

	// TargetID is the other user, or the subject of a reaction or view.
	TargetID int64 `json:"target_id,omitempty"`

	SubjectType model.SubjectType  `json:"subject_type,omitempty"`
	Reaction    model.ReactionType `json:"reaction,omitempty"`

	// Name is the tag or interest name.
	Name string `json:"name,omitempty"`
}

func (o Op) String() string {
	switch o.Kind {
	case KindReaction, KindUnreact:
		return fmt.Sprintf("%s(user=%d %s=%d type=%s)", o.Kind, o.ActorID, o.SubjectType, o.TargetID, o.Reaction)
	case KindTag, KindInterest:
		return fmt.Sprintf("%s(id=%d name=%s)", o.Kind, o.ActorID, o.Name)
	case KindUpsertUser:
		return fmt.Sprintf("%s(user=%d)", o.Kind, o.ActorID)
	default:
		return fmt.Sprintf("%s(%d->%d)", o.Kind, o.ActorID, o.TargetID)
	}
}

func UpsertUserOp(userID int64) Op {
	return Op{Kind: KindUpsertUser, ActorID: userID}
}

func FollowOp(followerID, followeeID int64) Op {
	return Op{Kind: KindFollow, ActorID: followerID, TargetID: followeeID}
}

func UnfollowOp(followerID, followeeID int64) Op {
	return Op{Kind: KindUnfollow, ActorID: followerID, TargetID: followeeID}
}

func FriendRequestOp(senderID, receiverID int64) Op {
	return Op{Kind: KindFriendRequest, ActorID: senderID, TargetID: receiverID}
}

// AcceptOp: acceptorID accepts the request previously sent by requesterID.
func AcceptOp(acceptorID, requesterID int64) Op {
	return Op{Kind: KindAccept, ActorID: acceptorID, TargetID: requesterID}
}

func RejectOp(rejecterID, requesterID int64) Op {
	return Op{Kind: KindReject, ActorID: rejecterID, TargetID: requesterID}
}

func BlockOp(blockerID, blockedID int64) Op {
	return Op{Kind: KindBlock, ActorID: blockerID, TargetID: blockedID}
}

func UnblockOp(blockerID, blockedID int64) Op {
	return Op{Kind: KindUnblock, ActorID: blockerID, TargetID: blockedID}
}

func UnfriendOp(userID, friendID int64) Op {
	return Op{Kind: KindUnfriend, ActorID: userID, TargetID: friendID}
}

// ClearPairOp removes every friendship edge between a and b in either direction.
// FOLLOWS edges are left alone.
func ClearPairOp(a, b int64) Op {
	return Op{Kind: KindClearPair, ActorID: a, TargetID: b}
}

func ReactionOp(userID int64, subject model.SubjectType, subjectID int64, t model.ReactionType) Op {
	return Op{Kind: KindReaction, ActorID: userID, TargetID: subjectID, SubjectType: subject, Reaction: t}
}

func UnreactOp(userID int64, subject model.SubjectType, subjectID int64, t model.ReactionType) Op {
	return Op{Kind: KindUnreact, ActorID: userID, TargetID: subjectID, SubjectType: subject, Reaction: t}
}

func ViewOp(userID, postID int64) Op {
	return Op{Kind: KindView, ActorID: userID, TargetID: postID, SubjectType: model.SubjectPost}
}

func TagOp(postID int64, tag string) Op {
	return Op{Kind: KindTag, ActorID: postID, Name: tag}
}

func InterestOp(userID int64, interest string) Op {
	return Op{Kind: KindInterest, ActorID: userID, Name: interest}
}
