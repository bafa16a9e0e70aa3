package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"konnekt/internal/model"
)

// Transactor runs fn inside one SQL transaction, committing when fn returns nil.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error)
	AddInterest(ctx context.Context, userID int64, interest string) (bool, error)
}

type FriendshipRepository interface {
	// LockPair serializes transitions of one unordered pair until tx ends.
	LockPair(ctx context.Context, tx *sqlx.Tx, a, b int64) error
	// GetPair returns the rows (a -> b) and (b -> a), locked FOR UPDATE. Either may be nil.
	GetPair(ctx context.Context, tx *sqlx.Tx, a, b int64) (forward, reverse *model.Friendship, err error)
	// Get returns the row for the unordered pair, or nil.
	Get(ctx context.Context, a, b int64) (*model.Friendship, error)
	Insert(ctx context.Context, tx *sqlx.Tx, f *model.Friendship) error
	Delete(ctx context.Context, tx *sqlx.Tx, senderID, receiverID int64) error
	// IsBlocked reports a blocked row in either direction.
	IsBlocked(ctx context.Context, tx *sqlx.Tx, a, b int64) (bool, error)
	CountAccepted(ctx context.Context, userID int64) (int64, error)
	ListFriends(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	ListIncoming(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	ListOutgoing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
}

type FollowRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error
	// DeleteBetween removes follow edges in both directions and returns the removed edges.
	DeleteBetween(ctx context.Context, tx *sqlx.Tx, a, b int64) ([]model.Follow, error)
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	CountFollowers(ctx context.Context, userID int64) (int64, error)
	CountFollowing(ctx context.Context, userID int64) (int64, error)
	GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
}

type ReactionRepository interface {
	// GetForUpdate returns the user's reaction locked FOR UPDATE, or nil.
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, subject model.SubjectType, subjectID, userID int64) (*model.Reaction, error)
	Get(ctx context.Context, subject model.SubjectType, subjectID, userID int64) (*model.Reaction, error)
	Insert(ctx context.Context, tx *sqlx.Tx, r *model.Reaction) error
	Delete(ctx context.Context, tx *sqlx.Tx, subject model.SubjectType, subjectID, userID int64) error
	Count(ctx context.Context, subject model.SubjectType, subjectID int64, t model.ReactionType) (int64, error)
}

// ContentRepository answers the few questions the engine asks about posts and comments.
type ContentRepository interface {
	// AuthorOf returns the author of a live post or comment, or ErrSubjectNotFound.
	AuthorOf(ctx context.Context, subject model.SubjectType, subjectID int64) (int64, error)
	CountComments(ctx context.Context, postID int64) (int64, error)
	AddTag(ctx context.Context, postID int64, tag string) (bool, error)
}

type ViewRepository interface {
	// Insert records a view once per (post, user). Returns false when it already existed.
	Insert(ctx context.Context, postID, userID int64) (bool, error)
	Count(ctx context.Context, postID int64) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	List(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.Notification, *time.Time, error)
	Count(ctx context.Context, userID int64) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}
