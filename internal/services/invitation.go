package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/pairup/internal/models"
)

const MaxInvitationMessageLength = 1000

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvalidTransition  = errors.New("invalid invitation status transition")
	ErrMessageTooLong     = fmt.Errorf("message must be at most %d characters", MaxInvitationMessageLength)

	// ErrWrongParticipant is returned when a participant attempts a transition
	// reserved for the other side. It matches ErrNotAParticipant.
	ErrWrongParticipant = fmt.Errorf("%w: transition reserved for the other participant", ErrNotAParticipant)
)

// InvitationService manages date invitations inside a match.
//
//	pending -> accepted   (recipient)
//	pending -> rejected   (recipient)
//	pending -> cancelled  (sender)
type InvitationService struct {
	db      DB
	matches *MatchService
}

func NewInvitationService(db DB, matches *MatchService) *InvitationService {
	return &InvitationService{db: db, matches: matches}
}

func (s *InvitationService) Create(ctx context.Context, params models.CreateInvitationParams) (*models.Invitation, error) {
	message := strings.TrimSpace(params.Message)
	if utf8.RuneCountInString(message) > MaxInvitationMessageLength {
		return nil, ErrMessageTooLong
	}

	var invitation *models.Invitation
	err := withTx(ctx, s.db, func(tx Tx) error {
		match, err := s.matches.getForShare(ctx, tx, params.MatchID)
		if err != nil {
			return err
		}

		toUserID, ok := match.OtherUserID(params.ActorID)
		if !ok {
			return ErrNotAParticipant
		}
		if !match.IsActive {
			return ErrMatchInactive
		}

		invitation, err = insertInvitation(ctx, tx, match.ID, params.ActorID, toUserID, message, params.ProposedDate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return invitation, nil
}

func insertInvitation(ctx context.Context, q Querier, matchID, fromUserID, toUserID uuid.UUID, message string, proposedDate *time.Time) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := q.QueryRow(ctx,
		`INSERT INTO date_invitations (match_id, from_user_id, to_user_id, message, proposed_date, status)
		 VALUES ($1, $2, $3, $4, $5, 'pending')
		 RETURNING id, match_id, from_user_id, to_user_id, message, proposed_date, status, created_at, updated_at`,
		matchID, fromUserID, toUserID, message, proposedDate,
	).Scan(&inv.ID, &inv.MatchID, &inv.FromUserID, &inv.ToUserID,
		&inv.Message, &inv.ProposedDate, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating invitation: %w", err)
	}
	return inv, nil
}

func (s *InvitationService) Transition(ctx context.Context, invitationID, actorID uuid.UUID, newStatus models.InvitationStatus) (*models.Invitation, error) {
	if !newStatus.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	invitation, err := s.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	if !invitation.HasUser(actorID) {
		return nil, ErrNotAParticipant
	}
	if invitation.Status != models.InvitationStatusPending {
		return nil, ErrInvalidTransition
	}
	if !mayTransition(invitation, actorID, newStatus) {
		return nil, ErrWrongParticipant
	}

	// Compare-and-set on the pending status; a concurrent transition that got
	// there first leaves zero rows.
	err = s.db.QueryRow(ctx,
		`UPDATE date_invitations
		 SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = 'pending'
		 RETURNING updated_at`,
		newStatus, invitationID,
	).Scan(&invitation.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("updating invitation status: %w", err)
	}

	invitation.Status = newStatus
	return invitation, nil
}

func mayTransition(invitation *models.Invitation, actorID uuid.UUID, newStatus models.InvitationStatus) bool {
	switch newStatus {
	case models.InvitationStatusAccepted, models.InvitationStatusRejected:
		return actorID == invitation.ToUserID
	case models.InvitationStatusCancelled:
		return actorID == invitation.FromUserID
	default:
		return false
	}
}

// ListForUser returns invitations the user sent or received, newest first.
func (s *InvitationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, match_id, from_user_id, to_user_id, message, proposed_date, status, created_at, updated_at
		 FROM date_invitations
		 WHERE from_user_id = $1 OR to_user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		var inv models.Invitation
		if err := rows.Scan(&inv.ID, &inv.MatchID, &inv.FromUserID, &inv.ToUserID,
			&inv.Message, &inv.ProposedDate, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invitations: %w", err)
	}

	if invitations == nil {
		invitations = []models.Invitation{}
	}
	return invitations, nil
}

// GetByID loads an invitation without checking who is asking; callers
// enforce participant visibility.
func (s *InvitationService) GetByID(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := s.db.QueryRow(ctx,
		`SELECT id, match_id, from_user_id, to_user_id, message, proposed_date, status, created_at, updated_at
		 FROM date_invitations WHERE id = $1`,
		invitationID,
	).Scan(&inv.ID, &inv.MatchID, &inv.FromUserID, &inv.ToUserID,
		&inv.Message, &inv.ProposedDate, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting invitation: %w", err)
	}
	return inv, nil
}
