package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"konnekt/internal/model"
)

type reactionRepository struct {
	db *sqlx.DB
}

func NewReactionRepository(db *sqlx.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

const selectReaction = `
	SELECT subject_type, subject_id, user_id, type, created_at
	FROM reactions
	WHERE subject_type = $1 AND subject_id = $2 AND user_id = $3
`

func (r *reactionRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, subject model.SubjectType, subjectID, userID int64) (*model.Reaction, error) {
	var reaction model.Reaction
	err := tx.GetContext(ctx, &reaction, selectReaction+` FOR UPDATE`, subject, subjectID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reaction: %w", err)
	}
	return &reaction, nil
}

func (r *reactionRepository) Get(ctx context.Context, subject model.SubjectType, subjectID, userID int64) (*model.Reaction, error) {
	var reaction model.Reaction
	err := r.db.GetContext(ctx, &reaction, selectReaction, subject, subjectID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reaction: %w", err)
	}
	return &reaction, nil
}

// Insert adds a reaction. Two first reactions racing on the same key surface as ErrAlreadyReacted.
func (r *reactionRepository) Insert(ctx context.Context, tx *sqlx.Tx, reaction *model.Reaction) error {
	query := `
		INSERT INTO reactions (subject_type, subject_id, user_id, type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := tx.QueryRowxContext(ctx, query, reaction.SubjectType, reaction.SubjectID, reaction.UserID, reaction.Type).
		Scan(&reaction.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyReacted
		}
		return fmt.Errorf("failed to insert reaction: %w", err)
	}
	return nil
}

func (r *reactionRepository) Delete(ctx context.Context, tx *sqlx.Tx, subject model.SubjectType, subjectID, userID int64) error {
	query := `DELETE FROM reactions WHERE subject_type = $1 AND subject_id = $2 AND user_id = $3`
	result, err := tx.ExecContext(ctx, query, subject, subjectID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete reaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotReacted
	}
	return nil
}

func (r *reactionRepository) Count(ctx context.Context, subject model.SubjectType, subjectID int64, t model.ReactionType) (int64, error) {
	query := `SELECT COUNT(*) FROM reactions WHERE subject_type = $1 AND subject_id = $2 AND type = $3`
	var n int64
	if err := r.db.GetContext(ctx, &n, query, subject, subjectID, t); err != nil {
		return 0, fmt.Errorf("failed to count reactions: %w", err)
	}
	return n, nil
}
