package model

import (
	"time"
)

type Follow struct {
	FollowerID int64     `db:"follower_id" json:"follower_id"`
	FolloweeID int64     `db:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// FollowResult is returned by follow/unfollow.
type FollowResult struct {
	FollowerCount int64    `json:"follower_count"`
	Warnings      []string `json:"warnings,omitempty"`
}

var (
	ErrAlreadyFollowing = NewError(KindConflict, "already following this user")
	ErrNotFollowing     = NewError(KindNotFound, "not following this user")
	ErrFollowBlocked    = NewError(KindConflict, "cannot follow a blocked user")
)

// FollowEntry is a user in a follower/following list.
type FollowEntry struct {
	UserSummary
	IsFollowing bool `json:"is_following"`
}

// FollowListResponse is a cursor-paginated follower/following list.
type FollowListResponse struct {
	Users      []FollowEntry `json:"users"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}
