// Package friendship holds the friendship state machine as a pure function.
//
// A transition never mutates a row in place: it names the rows to delete and the
// single row to insert, plus the side effects the caller applies after the
// authoritative commit. Keeping it free of I/O lets every rule of the table be
// tested without a database.
package friendship

import (
	"time"

	"konnekt/internal/model"
)

// Action is a user action against the friendship state machine.
type Action string

const (
	ActionRequest Action = "request"
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionBlock   Action = "block"
	ActionUnblock Action = "unblock"
	ActionRemove  Action = "remove"
)

// Key identifies a directional friendship row.
type Key struct {
	SenderID   int64
	ReceiverID int64
}

// Effect is a side effect of a committed transition.
// Concrete types: FriendCountDelta, MirrorEdge, Notify.
type Effect interface {
	isEffect()
}

// FriendCountDelta adjusts the friend counter of every listed user.
type FriendCountDelta struct {
	UserIDs []int64
	Delta   int64
}

// MirrorEdge asks the graph mirror to replay Action between the two users.
type MirrorEdge struct {
	Action   Action
	ActorID  int64
	TargetID int64
}

// Notify asks the notification sink to tell RecipientID about the action.
type Notify struct {
	Kind        string
	RecipientID int64
	ActorID     int64
}

func (FriendCountDelta) isEffect() {}
func (MirrorEdge) isEffect()       {}
func (Notify) isEffect()           {}

// Transition is the outcome of Decide.
type Transition struct {
	Action  Action
	Delete  []Key
	Insert  *model.Friendship
	Effects []Effect
}

// Decide computes the transition for actor performing action on target.
// forward is the current row (actor -> target), reverse the row (target -> actor);
// either may be nil. Rule violations are returned as typed model errors.
func Decide(action Action, actorID, targetID int64, forward, reverse *model.Friendship, now time.Time) (Transition, error) {
	if !model.ValidID(actorID) || !model.ValidID(targetID) {
		return Transition{}, model.ErrInvalidID
	}
	if actorID == targetID {
		return Transition{}, model.ErrSelfTarget
	}

	t := Transition{Action: action}
	forwardKey := Key{SenderID: actorID, ReceiverID: targetID}
	reverseKey := Key{SenderID: targetID, ReceiverID: actorID}
	mirrorEdge := MirrorEdge{Action: action, ActorID: actorID, TargetID: targetID}

	switch action {
	case ActionRequest:
		if reverse != nil {
			switch reverse.Status {
			case model.FriendshipPending:
				return Transition{}, model.ErrReceiverPending
			case model.FriendshipAccepted:
				return Transition{}, model.ErrAlreadyFriends
			case model.FriendshipBlocked:
				return Transition{}, model.ErrBlockedByReceiver
			default:
				t.Delete = append(t.Delete, reverseKey)
			}
		}
		if forward != nil {
			switch forward.Status {
			case model.FriendshipPending:
				return Transition{}, model.ErrRequestPending
			case model.FriendshipAccepted:
				return Transition{}, model.ErrAlreadyFriends
			case model.FriendshipBlocked:
				return Transition{}, model.ErrYouBlocked
			default:
				t.Delete = append(t.Delete, forwardKey)
			}
		}
		t.Insert = newRow(actorID, targetID, model.FriendshipPending, now)
		t.Effects = []Effect{
			mirrorEdge,
			Notify{Kind: model.NotificationFriendRequest, RecipientID: targetID, ActorID: actorID},
		}

	case ActionAccept, ActionReject:
		// The pending row was written by the original requester (target).
		if reverse == nil {
			return Transition{}, model.ErrRequestNotFound
		}
		switch reverse.Status {
		case model.FriendshipAccepted:
			return Transition{}, model.ErrAlreadyAccepted
		case model.FriendshipBlocked:
			return Transition{}, model.ErrRelationBlocked
		case model.FriendshipRejected:
			return Transition{}, model.ErrAlreadyRejected
		}
		t.Delete = []Key{reverseKey}
		if action == ActionAccept {
			t.Insert = newRow(actorID, targetID, model.FriendshipAccepted, now)
			t.Effects = []Effect{
				FriendCountDelta{UserIDs: []int64{actorID, targetID}, Delta: 1},
				mirrorEdge,
				Notify{Kind: model.NotificationFriendAccept, RecipientID: targetID, ActorID: actorID},
			}
		} else {
			t.Insert = newRow(actorID, targetID, model.FriendshipRejected, now)
			t.Effects = []Effect{mirrorEdge}
		}

	case ActionBlock:
		if forward != nil && forward.Status == model.FriendshipBlocked {
			return Transition{}, model.ErrAlreadyBlocked
		}
		if reverse != nil && reverse.Status == model.FriendshipBlocked {
			return Transition{}, model.ErrBlockedByReceiver
		}
		wasFriends := false
		if forward != nil {
			t.Delete = append(t.Delete, forwardKey)
			wasFriends = forward.Status == model.FriendshipAccepted
		}
		if reverse != nil {
			t.Delete = append(t.Delete, reverseKey)
			wasFriends = wasFriends || reverse.Status == model.FriendshipAccepted
		}
		t.Insert = newRow(actorID, targetID, model.FriendshipBlocked, now)
		if wasFriends {
			t.Effects = append(t.Effects, FriendCountDelta{UserIDs: []int64{actorID, targetID}, Delta: -1})
		}
		t.Effects = append(t.Effects, mirrorEdge)

	case ActionUnblock:
		if forward == nil {
			return Transition{}, model.ErrBlockNotFound
		}
		if forward.Status != model.FriendshipBlocked {
			return Transition{}, model.ErrNotBlocked
		}
		t.Delete = []Key{forwardKey}
		t.Effects = []Effect{mirrorEdge}

	case ActionRemove:
		switch {
		case forward != nil && forward.Status == model.FriendshipAccepted:
			t.Delete = []Key{forwardKey}
		case reverse != nil && reverse.Status == model.FriendshipAccepted:
			t.Delete = []Key{reverseKey}
		default:
			return Transition{}, model.ErrNotFriends
		}
		t.Effects = []Effect{
			FriendCountDelta{UserIDs: []int64{actorID, targetID}, Delta: -1},
			mirrorEdge,
		}

	default:
		return Transition{}, model.NewError(model.KindBadRequest, "unknown friendship action: "+string(action))
	}

	return t, nil
}

// StateFor reports the friendship between viewer and other given the single row for the pair.
func StateFor(viewerID int64, row *model.Friendship) model.FriendshipState {
	if row == nil {
		return model.FriendshipState{Direction: model.DirectionNone}
	}
	dir := model.DirectionIncoming
	if row.SenderID == viewerID {
		dir = model.DirectionOutgoing
	}
	return model.FriendshipState{Status: row.Status, Direction: dir}
}

func newRow(senderID, receiverID int64, status model.FriendshipStatus, now time.Time) *model.Friendship {
	return &model.Friendship{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     status,
		CreatedAt:  now,
	}
}
