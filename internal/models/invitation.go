package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationStatusPending   InvitationStatus = "pending"
	InvitationStatusAccepted  InvitationStatus = "accepted"
	InvitationStatusRejected  InvitationStatus = "rejected"
	InvitationStatusCancelled InvitationStatus = "cancelled"
)

func ParseInvitationStatus(raw string) (InvitationStatus, error) {
	switch status := InvitationStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case InvitationStatusPending, InvitationStatusAccepted, InvitationStatusRejected, InvitationStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown invitation status %q", raw)
	}
}

// IsTerminal reports whether no transitions leave this status.
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationStatusAccepted || s == InvitationStatusRejected || s == InvitationStatusCancelled
}

type Invitation struct {
	ID           uuid.UUID        `json:"id"`
	MatchID      uuid.UUID        `json:"match_id"`
	FromUserID   uuid.UUID        `json:"from_user_id"`
	ToUserID     uuid.UUID        `json:"to_user_id"`
	Message      string           `json:"message"`
	ProposedDate *time.Time       `json:"proposed_date,omitempty"`
	Status       InvitationStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (i *Invitation) HasUser(userID uuid.UUID) bool {
	return i.FromUserID == userID || i.ToUserID == userID
}

type CreateInvitationParams struct {
	MatchID      uuid.UUID
	ActorID      uuid.UUID
	Message      string
	ProposedDate *time.Time
}
