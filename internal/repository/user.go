package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"konnekt/internal/model"
)

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, username, is_verified, created_at FROM users WHERE id = $1`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// GetSummaries loads the users in ids. Missing ids are absent from the map.
func (r *userRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	result := make(map[int64]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT id, username, is_verified FROM users WHERE id = ANY($1)`
	var users []model.UserSummary
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get user summaries: %w", err)
	}

	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (r *userRepository) AddInterest(ctx context.Context, userID int64, interest string) (bool, error) {
	query := `
		INSERT INTO user_interests (user_id, interest)
		VALUES ($1, $2)
		ON CONFLICT (user_id, interest) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, userID, interest)
	if err != nil {
		return false, fmt.Errorf("failed to add interest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
