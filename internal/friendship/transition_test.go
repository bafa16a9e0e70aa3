package friendship

import (
	"errors"
	"testing"
	"time"

	"konnekt/internal/model"
)

const (
	alice int64 = 1
	bob   int64 = 2
)

var now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func row(sender, receiver int64, status model.FriendshipStatus) *model.Friendship {
	return &model.Friendship{SenderID: sender, ReceiverID: receiver, Status: status, CreatedAt: now}
}

func TestDecide_Request(t *testing.T) {
	tests := []struct {
		name       string
		forward    *model.Friendship
		reverse    *model.Friendship
		wantErr    error
		wantDelete []Key
	}{
		{name: "no rows", wantDelete: nil},
		{name: "reverse pending", reverse: row(bob, alice, model.FriendshipPending), wantErr: model.ErrReceiverPending},
		{name: "reverse accepted", reverse: row(bob, alice, model.FriendshipAccepted), wantErr: model.ErrAlreadyFriends},
		{name: "reverse blocked", reverse: row(bob, alice, model.FriendshipBlocked), wantErr: model.ErrBlockedByReceiver},
		{name: "reverse rejected is cleared", reverse: row(bob, alice, model.FriendshipRejected), wantDelete: []Key{{bob, alice}}},
		{name: "forward pending", forward: row(alice, bob, model.FriendshipPending), wantErr: model.ErrRequestPending},
		{name: "forward accepted", forward: row(alice, bob, model.FriendshipAccepted), wantErr: model.ErrAlreadyFriends},
		{name: "forward blocked", forward: row(alice, bob, model.FriendshipBlocked), wantErr: model.ErrYouBlocked},
		{name: "forward rejected is cleared", forward: row(alice, bob, model.FriendshipRejected), wantDelete: []Key{{alice, bob}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Decide(ActionRequest, alice, bob, tt.forward, tt.reverse, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if model.KindOf(err) != model.KindConflict {
					t.Errorf("kind = %s, want CONFLICT", model.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !sameKeys(tr.Delete, tt.wantDelete) {
				t.Errorf("delete = %v, want %v", tr.Delete, tt.wantDelete)
			}
			if tr.Insert == nil || tr.Insert.SenderID != alice || tr.Insert.ReceiverID != bob || tr.Insert.Status != model.FriendshipPending {
				t.Errorf("insert = %+v, want (alice, bob, pending)", tr.Insert)
			}
			if n := countNotify(tr.Effects, model.NotificationFriendRequest); n != 1 {
				t.Errorf("friend_request notifications = %d, want 1", n)
			}
		})
	}
}

func TestDecide_AcceptReplacesRowAndCountsBothUsers(t *testing.T) {
	// Bob sent the request, Alice accepts.
	tr, err := Decide(ActionAccept, alice, bob, nil, row(bob, alice, model.FriendshipPending), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sameKeys(tr.Delete, []Key{{bob, alice}}) {
		t.Errorf("delete = %v, want [(bob, alice)]", tr.Delete)
	}
	if tr.Insert.SenderID != alice || tr.Insert.Status != model.FriendshipAccepted {
		t.Errorf("insert = %+v, want (alice, bob, accepted)", tr.Insert)
	}

	var delta *FriendCountDelta
	for _, e := range tr.Effects {
		if d, ok := e.(FriendCountDelta); ok {
			delta = &d
		}
	}
	if delta == nil {
		t.Fatal("expected a FriendCountDelta effect")
	}
	if delta.Delta != 1 || len(delta.UserIDs) != 2 {
		t.Errorf("delta = %+v, want +1 for both users", delta)
	}
	if n := countNotify(tr.Effects, model.NotificationFriendAccept); n != 1 {
		t.Errorf("friend_accept notifications = %d, want 1", n)
	}
}

func TestDecide_AcceptRejectPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		reverse *model.Friendship
		wantErr error
		kind    model.Kind
	}{
		{"absent", nil, model.ErrRequestNotFound, model.KindNotFound},
		{"accepted", row(bob, alice, model.FriendshipAccepted), model.ErrAlreadyAccepted, model.KindConflict},
		{"blocked", row(bob, alice, model.FriendshipBlocked), model.ErrRelationBlocked, model.KindConflict},
		{"rejected", row(bob, alice, model.FriendshipRejected), model.ErrAlreadyRejected, model.KindConflict},
	}

	for _, action := range []Action{ActionAccept, ActionReject} {
		for _, tt := range tests {
			t.Run(string(action)+"/"+tt.name, func(t *testing.T) {
				_, err := Decide(action, alice, bob, nil, tt.reverse, now)
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if model.KindOf(err) != tt.kind {
					t.Errorf("kind = %s, want %s", model.KindOf(err), tt.kind)
				}
			})
		}
	}
}

func TestDecide_Reject(t *testing.T) {
	tr, err := Decide(ActionReject, alice, bob, nil, row(bob, alice, model.FriendshipPending), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Insert.Status != model.FriendshipRejected || tr.Insert.SenderID != alice {
		t.Errorf("insert = %+v, want (alice, bob, rejected)", tr.Insert)
	}
	for _, e := range tr.Effects {
		if _, ok := e.(FriendCountDelta); ok {
			t.Error("reject must not change friend counts")
		}
		if _, ok := e.(Notify); ok {
			t.Error("reject must not notify")
		}
	}
}

func TestDecide_Block(t *testing.T) {
	t.Run("blocking a friend removes the friendship", func(t *testing.T) {
		tr, err := Decide(ActionBlock, alice, bob, nil, row(bob, alice, model.FriendshipAccepted), now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !sameKeys(tr.Delete, []Key{{bob, alice}}) {
			t.Errorf("delete = %v", tr.Delete)
		}
		if tr.Insert.Status != model.FriendshipBlocked || tr.Insert.SenderID != alice {
			t.Errorf("insert = %+v", tr.Insert)
		}
		found := false
		for _, e := range tr.Effects {
			if d, ok := e.(FriendCountDelta); ok && d.Delta == -1 {
				found = true
			}
		}
		if !found {
			t.Error("expected friend count decrement")
		}
	})

	t.Run("blocking a stranger", func(t *testing.T) {
		tr, err := Decide(ActionBlock, alice, bob, nil, nil, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tr.Delete) != 0 {
			t.Errorf("delete = %v, want none", tr.Delete)
		}
		for _, e := range tr.Effects {
			if _, ok := e.(FriendCountDelta); ok {
				t.Error("no friend count change expected")
			}
		}
	})

	t.Run("already blocked", func(t *testing.T) {
		_, err := Decide(ActionBlock, alice, bob, row(alice, bob, model.FriendshipBlocked), nil, now)
		if !errors.Is(err, model.ErrAlreadyBlocked) {
			t.Fatalf("err = %v, want ErrAlreadyBlocked", err)
		}
	})

	t.Run("blocked by target", func(t *testing.T) {
		_, err := Decide(ActionBlock, alice, bob, nil, row(bob, alice, model.FriendshipBlocked), now)
		if !errors.Is(err, model.ErrBlockedByReceiver) {
			t.Fatalf("err = %v, want ErrBlockedByReceiver", err)
		}
	})
}

func TestDecide_Unblock(t *testing.T) {
	tr, err := Decide(ActionUnblock, alice, bob, row(alice, bob, model.FriendshipBlocked), nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Insert != nil {
		t.Errorf("unblock must not insert, got %+v", tr.Insert)
	}
	if !sameKeys(tr.Delete, []Key{{alice, bob}}) {
		t.Errorf("delete = %v", tr.Delete)
	}

	if _, err := Decide(ActionUnblock, alice, bob, nil, nil, now); model.KindOf(err) != model.KindNotFound {
		t.Errorf("absent row: kind = %s, want NOT_FOUND", model.KindOf(err))
	}
	if _, err := Decide(ActionUnblock, alice, bob, row(alice, bob, model.FriendshipPending), nil, now); !errors.Is(err, model.ErrNotBlocked) {
		t.Errorf("pending row: err = %v, want ErrNotBlocked", err)
	}
	// Only the blocker can lift a block.
	if _, err := Decide(ActionUnblock, alice, bob, nil, row(bob, alice, model.FriendshipBlocked), now); !errors.Is(err, model.ErrBlockNotFound) {
		t.Errorf("reverse block: err = %v, want ErrBlockNotFound", err)
	}
}

func TestDecide_Remove(t *testing.T) {
	for _, r := range []struct {
		name    string
		forward *model.Friendship
		reverse *model.Friendship
		want    Key
	}{
		{"forward", row(alice, bob, model.FriendshipAccepted), nil, Key{alice, bob}},
		{"reverse", nil, row(bob, alice, model.FriendshipAccepted), Key{bob, alice}},
	} {
		t.Run(r.name, func(t *testing.T) {
			tr, err := Decide(ActionRemove, alice, bob, r.forward, r.reverse, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !sameKeys(tr.Delete, []Key{r.want}) {
				t.Errorf("delete = %v, want %v", tr.Delete, r.want)
			}
		})
	}

	_, err := Decide(ActionRemove, alice, bob, row(alice, bob, model.FriendshipPending), nil, now)
	if !errors.Is(err, model.ErrNotFriends) {
		t.Errorf("err = %v, want ErrNotFriends", err)
	}
}

func TestDecide_RejectsSelfAndInvalidIDs(t *testing.T) {
	for _, action := range []Action{ActionRequest, ActionAccept, ActionReject, ActionBlock, ActionUnblock, ActionRemove} {
		if _, err := Decide(action, alice, alice, nil, nil, now); model.KindOf(err) != model.KindBadRequest {
			t.Errorf("%s self: kind = %s, want BAD_REQUEST", action, model.KindOf(err))
		}
		if _, err := Decide(action, 0, bob, nil, nil, now); !errors.Is(err, model.ErrInvalidID) {
			t.Errorf("%s zero id: err = %v, want ErrInvalidID", action, err)
		}
	}
}

func TestStateFor(t *testing.T) {
	if s := StateFor(alice, nil); s.Direction != model.DirectionNone || s.Status != "" {
		t.Errorf("nil row: %+v", s)
	}
	r := row(bob, alice, model.FriendshipAccepted)
	if s := StateFor(alice, r); s.Status != model.FriendshipAccepted || s.Direction != model.DirectionIncoming {
		t.Errorf("alice view: %+v", s)
	}
	if s := StateFor(bob, r); s.Status != model.FriendshipAccepted || s.Direction != model.DirectionOutgoing {
		t.Errorf("bob view: %+v", s)
	}
}

func sameKeys(got, want []Key) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func countNotify(effects []Effect, kind string) int {
	n := 0
	for _, e := range effects {
		if nt, ok := e.(Notify); ok && nt.Kind == kind {
			n++
		}
	}
	return n
}
