package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairup/internal/models"
)

var (
	ErrInvalidInteractionKind = errors.New("interaction kind must be like or dislike")
	ErrInvalidUserID          = errors.New("invalid user id")
)

type SubmitInteractionParams struct {
	ActorID  uuid.UUID
	TargetID uuid.UUID
	Kind     models.InteractionKind
}

func (p SubmitInteractionParams) Validate() error {
	if p.ActorID == uuid.Nil || p.TargetID == uuid.Nil {
		return ErrInvalidUserID
	}
	if p.ActorID == p.TargetID {
		return ErrCannotInteractSelf
	}
	if p.Kind != models.InteractionLike && p.Kind != models.InteractionDislike {
		return ErrInvalidInteractionKind
	}
	return nil
}

type SubmitResult struct {
	Interaction *models.Interaction `json:"interaction"`
	// Match is set when this like completed a reciprocal pair.
	Match *models.Match `json:"match,omitempty"`
}

// InteractionService is the entry point for like/dislike submissions. Each
// submission runs in one transaction holding a lock on the unordered pair, so
// the ledger write, counters, history and match creation commit together.
type InteractionService struct {
	db      DB
	users   UserLookup
	ledger  *Ledger
	matches *MatchService
}

func NewInteractionService(db DB, users UserLookup, ledger *Ledger, matches *MatchService) *InteractionService {
	return &InteractionService{
		db:      db,
		users:   users,
		ledger:  ledger,
		matches: matches,
	}
}

func (s *InteractionService) Submit(ctx context.Context, params SubmitInteractionParams) (*SubmitResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, params.TargetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	result := &SubmitResult{}
	err = withTx(ctx, s.db, func(tx Tx) error {
		if err := lockPair(ctx, tx, models.NewPair(params.ActorID, params.TargetID)); err != nil {
			return err
		}

		interaction, err := s.ledger.Insert(ctx, tx, params.ActorID, params.TargetID, params.Kind)
		if err != nil {
			return err
		}
		result.Interaction = interaction

		if !interaction.IsLike() {
			return nil
		}

		match, err := s.matches.OnLike(ctx, tx, params.ActorID, params.TargetID)
		if err != nil {
			return err
		}
		result.Match = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *InteractionService) ListSent(ctx context.Context, userID uuid.UUID) ([]models.Interaction, error) {
	return s.ledger.ListSent(ctx, s.db, userID)
}

// lockPair serializes writers on the same unordered pair until the
// surrounding transaction ends.
func lockPair(ctx context.Context, q Querier, pair models.Pair) error {
	if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", pair.Key()); err != nil {
		return fmt.Errorf("locking pair: %w", err)
	}
	return nil
}
