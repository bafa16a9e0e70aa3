package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"konnekt/internal/model"
)

type contentRepository struct {
	db *sqlx.DB
}

func NewContentRepository(db *sqlx.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) AuthorOf(ctx context.Context, subject model.SubjectType, subjectID int64) (int64, error) {
	var query string
	switch subject {
	case model.SubjectPost:
		query = `SELECT user_id FROM posts WHERE id = $1 AND deleted_at IS NULL`
	case model.SubjectComment:
		query = `SELECT user_id FROM comments WHERE id = $1 AND deleted_at IS NULL`
	default:
		return 0, model.ErrInvalidSubject
	}

	var authorID int64
	err := r.db.GetContext(ctx, &authorID, query, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrSubjectNotFound
		}
		return 0, fmt.Errorf("failed to get %s author: %w", subject, err)
	}
	return authorID, nil
}

func (r *contentRepository) CountComments(ctx context.Context, postID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM comments WHERE post_id = $1 AND deleted_at IS NULL`
	var n int64
	if err := r.db.GetContext(ctx, &n, query, postID); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

func (r *contentRepository) AddTag(ctx context.Context, postID int64, tag string) (bool, error) {
	query := `
		INSERT INTO post_tags (post_id, tag)
		VALUES ($1, $2)
		ON CONFLICT (post_id, tag) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, postID, tag)
	if err != nil {
		return false, fmt.Errorf("failed to add tag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

type viewRepository struct {
	db *sqlx.DB
}

func NewViewRepository(db *sqlx.DB) ViewRepository {
	return &viewRepository{db: db}
}

func (r *viewRepository) Insert(ctx context.Context, postID, userID int64) (bool, error) {
	query := `
		INSERT INTO post_views (post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to record view: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *viewRepository) Count(ctx context.Context, postID int64) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(DISTINCT user_id) FROM post_views WHERE post_id = $1`, postID); err != nil {
		return 0, fmt.Errorf("failed to count views: %w", err)
	}
	return n, nil
}
