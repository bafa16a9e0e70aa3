package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"konnekt/internal/model"
)

type friendshipRepository struct {
	db *sqlx.DB
}

func NewFriendshipRepository(db *sqlx.DB) FriendshipRepository {
	return &friendshipRepository{db: db}
}

// pairLockKey packs an unordered pair into the 64-bit advisory lock key space.
// Collisions only cause extra serialization.
func pairLockKey(a, b int64) int64 {
	if a > b {
		a, b = b, a
	}
	return a<<32 ^ b
}

func (r *friendshipRepository) LockPair(ctx context.Context, tx *sqlx.Tx, a, b int64) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, pairLockKey(a, b)); err != nil {
		return fmt.Errorf("failed to lock friendship pair: %w", err)
	}
	return nil
}

func (r *friendshipRepository) GetPair(ctx context.Context, tx *sqlx.Tx, a, b int64) (*model.Friendship, *model.Friendship, error) {
	query := `
		SELECT sender_id, receiver_id, status, created_at
		FROM friendships
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		FOR UPDATE
	`
	var rows []model.Friendship
	if err := tx.SelectContext(ctx, &rows, query, a, b); err != nil {
		return nil, nil, fmt.Errorf("failed to get friendship pair: %w", err)
	}

	var forward, reverse *model.Friendship
	for i := range rows {
		if rows[i].SenderID == a {
			forward = &rows[i]
		} else {
			reverse = &rows[i]
		}
	}
	return forward, reverse, nil
}

func (r *friendshipRepository) Get(ctx context.Context, a, b int64) (*model.Friendship, error) {
	query := `
		SELECT sender_id, receiver_id, status, created_at
		FROM friendships
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
	`
	var f model.Friendship
	err := r.db.GetContext(ctx, &f, query, a, b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get friendship: %w", err)
	}
	return &f, nil
}

// Insert adds a row. A unique violation means another transition won the pair.
func (r *friendshipRepository) Insert(ctx context.Context, tx *sqlx.Tx, f *model.Friendship) error {
	query := `
		INSERT INTO friendships (sender_id, receiver_id, status, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.ExecContext(ctx, query, f.SenderID, f.ReceiverID, f.Status, f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrConcurrentChange
		}
		return fmt.Errorf("failed to insert friendship: %w", err)
	}
	return nil
}

func (r *friendshipRepository) Delete(ctx context.Context, tx *sqlx.Tx, senderID, receiverID int64) error {
	query := `DELETE FROM friendships WHERE sender_id = $1 AND receiver_id = $2`
	result, err := tx.ExecContext(ctx, query, senderID, receiverID)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrConcurrentChange
	}
	return nil
}

func (r *friendshipRepository) IsBlocked(ctx context.Context, tx *sqlx.Tx, a, b int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE status = 'blocked'
			  AND ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		)
	`
	var blocked bool
	var err error
	if tx != nil {
		err = tx.GetContext(ctx, &blocked, query, a, b)
	} else {
		err = r.db.GetContext(ctx, &blocked, query, a, b)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return blocked, nil
}

func (r *friendshipRepository) CountAccepted(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COUNT(*) FROM friendships
		WHERE status = 'accepted' AND (sender_id = $1 OR receiver_id = $1)
	`
	var n int64
	if err := r.db.GetContext(ctx, &n, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count friends: %w", err)
	}
	return n, nil
}

// ListFriends pages accepted friendships newest first. The friend is whichever side is not userID.
func (r *friendshipRepository) ListFriends(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	query := `
		SELECT u.id, u.username, u.is_verified, f.created_at
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.sender_id = $1 THEN f.receiver_id ELSE f.sender_id END
		WHERE (f.sender_id = $1 OR f.receiver_id = $1)
		  AND f.status = 'accepted'
		  AND ($2::timestamptz IS NULL OR f.created_at < $2)
		ORDER BY f.created_at DESC
		LIMIT $3
	`
	return r.page(ctx, query, userID, cursor, limit)
}

// ListIncoming pages pending requests received by userID.
func (r *friendshipRepository) ListIncoming(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	query := `
		SELECT u.id, u.username, u.is_verified, f.created_at
		FROM friendships f
		JOIN users u ON u.id = f.sender_id
		WHERE f.receiver_id = $1
		  AND f.status = 'pending'
		  AND ($2::timestamptz IS NULL OR f.created_at < $2)
		ORDER BY f.created_at DESC
		LIMIT $3
	`
	return r.page(ctx, query, userID, cursor, limit)
}

// ListOutgoing pages pending requests sent by userID.
func (r *friendshipRepository) ListOutgoing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	query := `
		SELECT u.id, u.username, u.is_verified, f.created_at
		FROM friendships f
		JOIN users u ON u.id = f.receiver_id
		WHERE f.sender_id = $1
		  AND f.status = 'pending'
		  AND ($2::timestamptz IS NULL OR f.created_at < $2)
		ORDER BY f.created_at DESC
		LIMIT $3
	`
	return r.page(ctx, query, userID, cursor, limit)
}

// page runs a created_at cursor query. It fetches limit+1 rows: an extra row means
// there is a next page, and the last kept row's timestamp becomes the cursor.
func (r *friendshipRepository) page(ctx context.Context, query string, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	type userWithTime struct {
		model.UserSummary
		CreatedAt time.Time `db:"created_at"`
	}

	var results []userWithTime
	if err := r.db.SelectContext(ctx, &results, query, userID, cursor, limit+1); err != nil {
		return nil, nil, fmt.Errorf("failed to list friendships: %w", err)
	}

	var nextCursor *time.Time
	if len(results) > limit {
		results = results[:limit]
		nextCursor = &results[len(results)-1].CreatedAt
	}

	users := make([]model.UserSummary, 0, len(results))
	for _, result := range results {
		users = append(users, result.UserSummary)
	}
	return users, nextCursor, nil
}
