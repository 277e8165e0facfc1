package models

import (
	"time"

	"github.com/google/uuid"
)

type LikeHistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	LikedByID uuid.UUID `json:"liked_by_id"`
	CreatedAt time.Time `json:"created_at"`
}
