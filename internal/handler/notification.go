package handler

import (
	"net/http"

	"konnekt/internal/httputil"
	"konnekt/internal/service"
)

type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(notifService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
	}
}

// List handles GET /notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cursor, limit, ok := cursorParams(w, r)
	if !ok {
		return
	}

	result, err := h.notifService.List(r.Context(), userID, cursor, limit)
	if err != nil {
		httputil.WriteServiceError(w, "ListNotifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Counts handles GET /notifications/counts
func (h *NotificationHandler) Counts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	counts, err := h.notifService.Counts(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "NotificationCounts", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, counts)
}

// MarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	n, err := h.notifService.MarkAllRead(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "MarkAllRead", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
