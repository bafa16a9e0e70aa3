package model

import (
	"time"
)

// View records that a user viewed a post. Insert is idempotent.
type View struct {
	PostID    int64     `db:"post_id" json:"post_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ViewResult is returned by RecordView.
type ViewResult struct {
	Recorded bool     `json:"recorded"`
	Count    int64    `json:"count"`
	Warnings []string `json:"warnings,omitempty"`
}

// CounterKind names a denormalized counter.
type CounterKind string

const (
	CounterFriends       CounterKind = "friends"
	CounterFollowers     CounterKind = "followers"
	CounterFollowing     CounterKind = "following"
	CounterLikes         CounterKind = "likes"
	CounterDislikes      CounterKind = "dislikes"
	CounterViews         CounterKind = "views"
	CounterComments      CounterKind = "comments"
	CounterNotifications CounterKind = "notifications"
	CounterUnread        CounterKind = "unread_notifications"
)

// ReactionCounter maps a reaction type to its counter.
func ReactionCounter(t ReactionType) CounterKind {
	if t == ReactionDislike {
		return CounterDislikes
	}
	return CounterLikes
}

// Page is a page of user ids from the graph mirror.
type Page struct {
	UserIDs    []int64 `json:"user_ids"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	Total      int64   `json:"total"`
	TotalPages int64   `json:"total_pages"`
}

// NewPage computes TotalPages from total and limit.
func NewPage(ids []int64, page, limit int, total int64) Page {
	var pages int64
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	if ids == nil {
		ids = []int64{}
	}
	return Page{UserIDs: ids, Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// Suggestion is a ranked "people you may know" entry.
type Suggestion struct {
	UserID  int64   `json:"user_id"`
	Score   float64 `json:"score"`
	Reasons Signals `json:"reasons"`
}

// Signals counts how many paths reach a candidate per suggestion source.
type Signals struct {
	FriendOfFriend   int64 `json:"friend_of_friend"`
	FollowOfFollow   int64 `json:"follow_of_follow"`
	SharedInterest   int64 `json:"shared_interest"`
	SharedEngagement int64 `json:"shared_engagement"`
}

// SuggestionPage is a paginated list of suggestions.
type SuggestionPage struct {
	Suggestions []Suggestion `json:"suggestions"`
	Page        int          `json:"page"`
	Limit       int          `json:"limit"`
	Total       int64        `json:"total"`
	TotalPages  int64        `json:"total_pages"`
}

// MutualKind selects the traversal used by mutual queries.
type MutualKind string

const (
	MutualFriends   MutualKind = "friends"
	MutualFollowers MutualKind = "followers"
	MutualFollowing MutualKind = "following"
)

// Valid reports whether k is a known mutual traversal.
func (k MutualKind) Valid() bool {
	switch k {
	case MutualFriends, MutualFollowers, MutualFollowing:
		return true
	}
	return false
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// NormalizePage clamps page to >= 1 and limit to [1, MaxPageLimit].
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// CountResult is returned by operations that move a single counter.
type CountResult struct {
	Count    int64    `json:"count"`
	Warnings []string `json:"warnings,omitempty"`
}
