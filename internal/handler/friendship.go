package handler

import (
	"context"
	"net/http"
	"time"

	"konnekt/internal/httputil"
	"konnekt/internal/model"
	"konnekt/internal/service"
)

type FriendshipHandler struct {
	friendService *service.FriendshipService
}

func NewFriendshipHandler(friendService *service.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{
		friendService: friendService,
	}
}

type transitionFunc func(ctx context.Context, actorID, targetID int64) (*model.FriendshipResult, error)

// transition runs one state machine action of the current user against {id}.
func (h *FriendshipHandler) transition(op string, fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := requireUser(w, r)
		if !ok {
			return
		}
		targetID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		result, err := fn(r.Context(), actorID, targetID)
		if err != nil {
			httputil.WriteServiceError(w, op, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, result)
	}
}

// Request handles POST /users/{id}/friend-request
func (h *FriendshipHandler) Request(w http.ResponseWriter, r *http.Request) {
	h.transition("FriendRequest", h.friendService.Request)(w, r)
}

// Accept handles POST /users/{id}/friend-request/accept, {id} being the requester
func (h *FriendshipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition("AcceptFriend", h.friendService.Accept)(w, r)
}

// Reject handles POST /users/{id}/friend-request/reject
func (h *FriendshipHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition("RejectFriend", h.friendService.Reject)(w, r)
}

// Remove handles DELETE /users/{id}/friend
func (h *FriendshipHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.transition("RemoveFriend", h.friendService.Remove)(w, r)
}

// Block handles POST /users/{id}/block
func (h *FriendshipHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.transition("Block", h.friendService.Block)(w, r)
}

// Unblock handles DELETE /users/{id}/block
func (h *FriendshipHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.transition("Unblock", h.friendService.Unblock)(w, r)
}

// Status handles GET /users/{id}/friendship
func (h *FriendshipHandler) Status(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	otherID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	state, err := h.friendService.Status(r.Context(), viewerID, otherID)
	if err != nil {
		httputil.WriteServiceError(w, "FriendshipStatus", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

// Count handles GET /users/{id}/friends/count
func (h *FriendshipHandler) Count(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	n, err := h.friendService.FriendCount(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "FriendCount", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// ListFriends handles GET /users/{id}/friends
func (h *FriendshipHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.list(w, r, "ListFriends", userID, h.friendService.ListFriends)
}

// ListIncoming handles GET /me/friend-requests/incoming
func (h *FriendshipHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.list(w, r, "ListIncoming", userID, h.friendService.ListIncoming)
}

// ListOutgoing handles GET /me/friend-requests/outgoing
func (h *FriendshipHandler) ListOutgoing(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.list(w, r, "ListOutgoing", userID, h.friendService.ListOutgoing)
}

type userListFunc func(ctx context.Context, userID int64, cursor *time.Time, limit int) (*model.UserListResponse, error)

func (h *FriendshipHandler) list(w http.ResponseWriter, r *http.Request, op string, userID int64, fn userListFunc) {
	cursor, limit, ok := cursorParams(w, r)
	if !ok {
		return
	}
	result, err := fn(r.Context(), userID, cursor, limit)
	if err != nil {
		httputil.WriteServiceError(w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
