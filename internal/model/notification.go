package model

import (
	"time"
)

// Notification kinds emitted by the engine
const (
	NotificationFriendRequest = "friend_request"
	NotificationFriendAccept  = "friend_accept"
	NotificationFollow        = "follow"
	NotificationLike          = "like"
	NotificationDislike       = "dislike"
	NotificationComment       = "comment"
	NotificationReply         = "reply"
)

// Notification is a single notification record in the database.
type Notification struct {
	ID          int64       `db:"id" json:"id"`
	UserID      int64       `db:"user_id" json:"-"`         // Recipient
	ActorID     int64       `db:"actor_id" json:"actor_id"` // Who triggered it
	Type        string      `db:"type" json:"type"`
	SubjectType SubjectType `db:"subject_type" json:"subject_type,omitempty"`
	SubjectID   *int64      `db:"subject_id" json:"subject_id,omitempty"`
	IsRead      bool        `db:"is_read" json:"is_read"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// NotificationCounts is the badge payload.
type NotificationCounts struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
}

// NotificationListResponse is a cursor-paginated list of notifications.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	NextCursor    *string        `json:"next_cursor,omitempty"`
	HasMore       bool           `json:"has_more"`
}
