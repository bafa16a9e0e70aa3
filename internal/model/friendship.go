package model

import (
	"time"
)

// FriendshipStatus is the state of a friendship row.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
	FriendshipBlocked  FriendshipStatus = "blocked"
)

// Friendship is a directional record. SenderID is the user who performed the most
// recent state-changing action, not necessarily who sent the original request.
// At most one row exists per unordered pair.
type Friendship struct {
	SenderID   int64            `db:"sender_id" json:"sender_id"`
	ReceiverID int64            `db:"receiver_id" json:"receiver_id"`
	Status     FriendshipStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

// Direction of a friendship row relative to a viewer.
type Direction string

const (
	DirectionNone     Direction = "none"
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// FriendshipState is the friendship between a viewer and another user.
type FriendshipState struct {
	Status    FriendshipStatus `json:"status,omitempty"`
	Direction Direction        `json:"direction"`
}

// FriendshipResult is returned by every friendship transition.
type FriendshipResult struct {
	Friendship *Friendship `json:"friendship,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
}

var (
	ErrRequestPending    = NewError(KindConflict, "friend request already pending")
	ErrReceiverPending   = NewError(KindConflict, "receiver already sent you a friend request")
	ErrAlreadyFriends    = NewError(KindConflict, "already friends")
	ErrBlockedByReceiver = NewError(KindConflict, "blocked by receiver")
	ErrYouBlocked        = NewError(KindConflict, "you blocked this user")
	ErrAlreadyAccepted   = NewError(KindConflict, "friend request already accepted")
	ErrAlreadyRejected   = NewError(KindConflict, "friend request already rejected")
	ErrRelationBlocked   = NewError(KindConflict, "relationship is blocked")
	ErrAlreadyBlocked    = NewError(KindConflict, "already blocked")
	ErrNotBlocked        = NewError(KindConflict, "user is not blocked")
	ErrBlockNotFound     = NewError(KindNotFound, "user is not blocked")
	ErrRequestNotFound   = NewError(KindNotFound, "friend request not found")
	ErrNotFriends        = NewError(KindNotFound, "not friends")
	ErrConcurrentChange  = NewError(KindConflict, "relationship changed concurrently, retry")
)
