package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairup/internal/models"
)

// UserLookup is the identity check the core consumes; it needs existence only.
type UserLookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// UserServiceInterface defines the contract for user lookups.
type UserServiceInterface interface {
	UserLookup
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionServiceInterface defines the contract for session validation.
type SessionServiceInterface interface {
	ValidateSession(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// InteractionServiceInterface defines the contract for like/dislike submissions.
type InteractionServiceInterface interface {
	Submit(ctx context.Context, params SubmitInteractionParams) (*SubmitResult, error)
	ListSent(ctx context.Context, userID uuid.UUID) ([]models.Interaction, error)
}

// MatchServiceInterface defines the contract for match queries and lifecycle.
type MatchServiceInterface interface {
	GetByID(ctx context.Context, matchID uuid.UUID) (*models.Match, error)
	ListActive(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*models.MatchPage, error)
	Deactivate(ctx context.Context, matchID, actorID uuid.UUID) error
}

// InvitationServiceInterface defines the contract for date invitations.
type InvitationServiceInterface interface {
	Create(ctx context.Context, params models.CreateInvitationParams) (*models.Invitation, error)
	Transition(ctx context.Context, invitationID, actorID uuid.UUID, newStatus models.InvitationStatus) (*models.Invitation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error)
	GetByID(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error)
}

// LikeHistoryInterface defines the read side of the likes counter.
type LikeHistoryInterface interface {
	LikesCount(ctx context.Context, userID uuid.UUID) (int, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.LikeHistoryEntry, error)
}
