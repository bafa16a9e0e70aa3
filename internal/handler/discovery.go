package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"konnekt/internal/httputil"
	"konnekt/internal/model"
	"konnekt/internal/service"
)

type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
}

func NewDiscoveryHandler(discoveryService *service.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
	}
}

// Mutual handles GET /users/{id}/mutual/{kind}: users related to both the
// current user and {id}.
func (h *DiscoveryHandler) Mutual(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	otherID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	page, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	kind := model.MutualKind(chi.URLParam(r, "kind"))
	result, err := h.discoveryService.Mutual(r.Context(), kind, userID, otherID, page, limit)
	if err != nil {
		httputil.WriteServiceError(w, "Mutual", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Suggestions handles GET /suggestions
func (h *DiscoveryHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	result, err := h.discoveryService.Suggestions(r.Context(), userID, page, limit)
	if err != nil {
		httputil.WriteServiceError(w, "Suggestions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// InterestRequest is the body of POST /me/interests.
type InterestRequest struct {
	Interest string `json:"interest"`
}

// AddInterest handles POST /me/interests
func (h *DiscoveryHandler) AddInterest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req InterestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.discoveryService.AddInterest(r.Context(), userID, req.Interest)
	if err != nil {
		httputil.WriteServiceError(w, "AddInterest", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Sync handles POST /me/sync
func (h *DiscoveryHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.discoveryService.SyncUser(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "SyncUser", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
