package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"konnekt/internal/model"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "conflict",
			err:        model.ErrAlreadyFollowing,
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
			wantMsg:    model.ErrAlreadyFollowing.Error(),
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("lookup: %w", model.ErrUserNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantMsg:    "lookup: " + model.ErrUserNotFound.Error(),
		},
		{
			name:       "bad request",
			err:        model.ErrSelfTarget,
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
			wantMsg:    model.ErrSelfTarget.Error(),
		},
		{
			name:       "unauthorized",
			err:        model.NewError(model.KindUnauthorized, "token expired"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
			wantMsg:    "token expired",
		},
		{
			name:       "internal hides details",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternal,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, "Test", tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Error.Message, tt.wantMsg)
			}
		})
	}
}

func TestWriteJSON_SetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"status": "ok"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}
