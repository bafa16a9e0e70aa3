package model

import (
	"time"
)

// User is the identity record the engine references by id only.
// Profile data and credentials are owned by the identity subsystem.
type User struct {
	ID         int64     `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	IsVerified bool      `db:"is_verified" json:"is_verified"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// UserSummary is the compact form used in relationship lists.
type UserSummary struct {
	ID         int64  `db:"id" json:"id"`
	Username   string `db:"username" json:"username"`
	IsVerified bool   `db:"is_verified" json:"is_verified"`
}

// UserListResponse is a cursor-paginated list of users.
type UserListResponse struct {
	Users      []UserSummary `json:"users"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

var (
	// ErrUserNotFound is returned when a referenced user does not exist
	ErrUserNotFound = NewError(KindNotFound, "user not found")
)

// ValidID reports whether id can reference a stored row.
func ValidID(id int64) bool {
	return id > 0
}
