package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/pairup/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// LikeCounter keeps the derived likes_count and like_history data. Its
// mutators are only called by the match engine, inside the submit transaction.
type LikeCounter struct {
	db DB
}

func NewLikeCounter(db DB) *LikeCounter {
	return &LikeCounter{db: db}
}

func (c *LikeCounter) Increment(ctx context.Context, q Querier, userID uuid.UUID) error {
	result, err := q.Exec(ctx,
		"UPDATE users SET likes_count = likes_count + 1 WHERE id = $1",
		userID,
	)
	if err != nil {
		return fmt.Errorf("incrementing likes count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (c *LikeCounter) Record(ctx context.Context, q Querier, userID, likedByID uuid.UUID) error {
	_, err := q.Exec(ctx,
		"INSERT INTO like_history (user_id, liked_by_id) VALUES ($1, $2)",
		userID, likedByID,
	)
	if err != nil {
		return fmt.Errorf("recording like history: %w", err)
	}
	return nil
}

func (c *LikeCounter) LikesCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := c.db.QueryRow(ctx, "SELECT likes_count FROM users WHERE id = $1", userID).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("getting likes count: %w", err)
	}
	return count, nil
}

// History lists likes received by userID, newest first.
func (c *LikeCounter) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.LikeHistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := c.db.Query(ctx,
		`SELECT id, user_id, liked_by_id, created_at
		 FROM like_history
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing like history: %w", err)
	}
	defer rows.Close()

	var entries []models.LikeHistoryEntry
	for rows.Next() {
		var e models.LikeHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.LikedByID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning like history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating like history: %w", err)
	}

	if entries == nil {
		entries = []models.LikeHistoryEntry{}
	}
	return entries, nil
}
