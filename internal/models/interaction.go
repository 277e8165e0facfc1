package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type InteractionKind string

const (
	InteractionLike    InteractionKind = "like"
	InteractionDislike InteractionKind = "dislike"
)

// ParseInteractionKind normalises raw request input into a known kind.
func ParseInteractionKind(raw string) (InteractionKind, error) {
	switch kind := InteractionKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case InteractionLike, InteractionDislike:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown interaction kind %q", raw)
	}
}

// Interaction is a one-way like or dislike. At most one exists per ordered
// (from, to) pair and it is never modified after creation.
type Interaction struct {
	ID         uuid.UUID       `json:"id"`
	FromUserID uuid.UUID       `json:"from_user_id"`
	ToUserID   uuid.UUID       `json:"to_user_id"`
	Kind       InteractionKind `json:"kind"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (i *Interaction) IsLike() bool {
	return i.Kind == InteractionLike
}
