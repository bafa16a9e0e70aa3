package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"konnekt/internal/httputil"
	"konnekt/internal/model"
	"konnekt/internal/service"
	"konnekt/internal/transport/http/middleware"
)

// requireUser returns the authenticated user or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
	}
	return userID, ok
}

// pathID parses a positive int64 URL parameter or writes 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || !model.ValidID(id) {
		httputil.WriteBadRequest(w, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// cursorParams parses ?cursor=&limit= for created_at pagination.
func cursorParams(w http.ResponseWriter, r *http.Request) (*time.Time, int, bool) {
	cursor, err := service.ParseCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid cursor format")
		return nil, 0, false
	}
	limit, ok := intParam(w, r, "limit", model.DefaultPageLimit)
	if !ok {
		return nil, 0, false
	}
	if limit < 1 || limit > model.MaxPageLimit {
		httputil.WriteBadRequest(w, "Limit must be between 1 and 100")
		return nil, 0, false
	}
	return cursor, limit, true
}

// pageParams parses ?page=&limit= for 1-based pagination.
func pageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	page, ok := intParam(w, r, "page", 1)
	if !ok {
		return 0, 0, false
	}
	limit, ok := intParam(w, r, "limit", model.DefaultPageLimit)
	if !ok {
		return 0, 0, false
	}
	page, limit = model.NormalizePage(page, limit)
	return page, limit, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// viewer returns the optional authenticated user.
func viewer(r *http.Request) *int64 {
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return &id
	}
	return nil
}
