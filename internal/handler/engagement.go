package handler

import (
	"net/http"

	"konnekt/internal/httputil"
	"konnekt/internal/service"
)

type EngagementHandler struct {
	engagementService *service.EngagementService
}

func NewEngagementHandler(engagementService *service.EngagementService) *EngagementHandler {
	return &EngagementHandler{
		engagementService: engagementService,
	}
}

// RecordView handles POST /posts/{id}/views
func (h *EngagementHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.engagementService.RecordView(r.Context(), userID, postID)
	if err != nil {
		httputil.WriteServiceError(w, "RecordView", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Stats handles GET /posts/{id}/stats
func (h *EngagementHandler) Stats(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	views, err := h.engagementService.ViewCount(r.Context(), postID)
	if err != nil {
		httputil.WriteServiceError(w, "ViewCount", err)
		return
	}
	comments, err := h.engagementService.CommentCount(r.Context(), postID)
	if err != nil {
		httputil.WriteServiceError(w, "CommentCount", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{
		"views":    views,
		"comments": comments,
	})
}

// TagRequest is the body of POST /posts/{id}/tags.
type TagRequest struct {
	Tag string `json:"tag"`
}

// TagPost handles POST /posts/{id}/tags
func (h *EngagementHandler) TagPost(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req TagRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.engagementService.TagPost(r.Context(), postID, req.Tag)
	if err != nil {
		httputil.WriteServiceError(w, "TagPost", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// CommentAddedRequest is sent by the comment owner after a comment row is stored.
type CommentAddedRequest struct {
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
}

// CommentAdded handles POST /posts/{id}/comments/{commentID}
func (h *EngagementHandler) CommentAdded(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}
	var req CommentAddedRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	result, err := h.engagementService.CommentAdded(r.Context(), postID, commentID, userID, req.ParentCommentID)
	if err != nil {
		httputil.WriteServiceError(w, "CommentAdded", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// CommentDeleted handles DELETE /posts/{id}/comments/{commentID}
func (h *EngagementHandler) CommentDeleted(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}

	result, err := h.engagementService.CommentDeleted(r.Context(), postID, commentID)
	if err != nil {
		httputil.WriteServiceError(w, "CommentDeleted", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
