package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"konnekt/internal/httputil"
	"konnekt/internal/model"
	"konnekt/internal/service"
)

type ReactionHandler struct {
	reactionService *service.ReactionService
}

func NewReactionHandler(reactionService *service.ReactionService) *ReactionHandler {
	return &ReactionHandler{
		reactionService: reactionService,
	}
}

// ReactRequest is the body of PUT /reactions/{subject}/{id}.
type ReactRequest struct {
	Type model.ReactionType `json:"type"`
}

func subjectParam(r *http.Request) model.SubjectType {
	return model.SubjectType(chi.URLParam(r, "subject"))
}

// React handles PUT /reactions/{subject}/{id}
func (h *ReactionHandler) React(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	subjectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ReactRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.reactionService.React(r.Context(), userID, subjectParam(r), subjectID, req.Type)
	if err != nil {
		httputil.WriteServiceError(w, "React", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Unreact handles DELETE /reactions/{subject}/{id}?type=like|dislike
func (h *ReactionHandler) Unreact(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	subjectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.reactionService.Unreact(r.Context(), userID, subjectParam(r), subjectID, model.ReactionType(r.URL.Query().Get("type")))
	if err != nil {
		httputil.WriteServiceError(w, "Unreact", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Get handles GET /reactions/{subject}/{id}. The viewer's own reaction is
// included when the request is authenticated.
func (h *ReactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	subject := subjectParam(r)

	counts, err := h.reactionService.ReactionCounts(r.Context(), subject, subjectID)
	if err != nil {
		httputil.WriteServiceError(w, "ReactionCounts", err)
		return
	}

	resp := map[string]interface{}{
		"likes":    counts.Likes,
		"dislikes": counts.Dislikes,
	}
	if viewerID := viewer(r); viewerID != nil {
		status, err := h.reactionService.ReactionStatus(r.Context(), *viewerID, subject, subjectID)
		if err != nil {
			httputil.WriteServiceError(w, "ReactionStatus", err)
			return
		}
		resp["my_reaction"] = status
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
