package handler

import (
	"net/http"

	"konnekt/internal/httputil"
	"konnekt/internal/service"
)

type FollowHandler struct {
	followService *service.FollowService
}

func NewFollowHandler(followService *service.FollowService) *FollowHandler {
	return &FollowHandler{
		followService: followService,
	}
}

// Follow handles POST /users/{id}/follow
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	followeeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.followService.Follow(r.Context(), followerID, followeeID)
	if err != nil {
		httputil.WriteServiceError(w, "Follow", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Unfollow handles DELETE /users/{id}/follow
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	followeeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.followService.Unfollow(r.Context(), followerID, followeeID)
	if err != nil {
		httputil.WriteServiceError(w, "Unfollow", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Counts handles GET /users/{id}/follow-counts
func (h *FollowHandler) Counts(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	followers, err := h.followService.FollowerCount(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "FollowerCount", err)
		return
	}
	following, err := h.followService.FollowingCount(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "FollowingCount", err)
		return
	}

	resp := map[string]interface{}{
		"followers": followers,
		"following": following,
	}
	if viewerID := viewer(r); viewerID != nil && *viewerID != userID {
		isFollowing, err := h.followService.IsFollowing(r.Context(), *viewerID, userID)
		if err != nil {
			httputil.WriteServiceError(w, "IsFollowing", err)
			return
		}
		resp["is_following"] = isFollowing
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetFollowers handles GET /users/{id}/followers
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cursor, limit, ok := cursorParams(w, r)
	if !ok {
		return
	}

	result, err := h.followService.GetFollowers(r.Context(), userID, cursor, limit, viewer(r))
	if err != nil {
		httputil.WriteServiceError(w, "GetFollowers", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetFollowing handles GET /users/{id}/following
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cursor, limit, ok := cursorParams(w, r)
	if !ok {
		return
	}

	result, err := h.followService.GetFollowing(r.Context(), userID, cursor, limit, viewer(r))
	if err != nil {
		httputil.WriteServiceError(w, "GetFollowing", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
