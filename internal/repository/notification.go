package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"konnekt/internal/model"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create inserts a new notification and fills ID and CreatedAt.
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (user_id, actor_id, type, subject_type, subject_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, n.UserID, n.ActorID, n.Type, n.SubjectType, n.SubjectID).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns a user's notifications newest first with created_at cursor pagination.
func (r *notificationRepository) List(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.Notification, *time.Time, error) {
	query := `
		SELECT id, user_id, actor_id, type, subject_type, subject_id, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	var rows []model.Notification
	if err := r.db.SelectContext(ctx, &rows, query, userID, cursor, limit+1); err != nil {
		return nil, nil, fmt.Errorf("list notifications: %w", err)
	}

	var nextCursor *time.Time
	if len(rows) > limit {
		rows = rows[:limit]
		nextCursor = &rows[len(rows)-1].CreatedAt
	}
	return rows, nextCursor, nil
}

func (r *notificationRepository) Count(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`
	var n int64
	if err := r.db.GetContext(ctx, &n, query, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// MarkAllRead marks all notifications for a user as read and returns how many changed.
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return result.RowsAffected()
}
