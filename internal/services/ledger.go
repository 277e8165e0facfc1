package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/pairup/internal/models"
)

var (
	ErrDuplicateInteraction = errors.New("interaction with this user already exists")
	ErrCannotInteractSelf   = errors.New("cannot interact with yourself")
)

// Ledger is the append-only store of directional interactions. It enforces at
// most one interaction per ordered pair and has no other side effects.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Insert(ctx context.Context, q Querier, fromUserID, toUserID uuid.UUID, kind models.InteractionKind) (*models.Interaction, error) {
	if fromUserID == toUserID {
		return nil, ErrCannotInteractSelf
	}

	interaction := &models.Interaction{}
	err := q.QueryRow(ctx,
		`INSERT INTO interactions (from_user_id, to_user_id, kind)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (from_user_id, to_user_id) DO NOTHING
		 RETURNING id, from_user_id, to_user_id, kind, created_at`,
		fromUserID, toUserID, kind,
	).Scan(&interaction.ID, &interaction.FromUserID, &interaction.ToUserID, &interaction.Kind, &interaction.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDuplicateInteraction
	}
	if err != nil {
		return nil, fmt.Errorf("inserting interaction: %w", err)
	}

	return interaction, nil
}

// Has reports whether fromUserID has already sent an interaction of the given
// kind to toUserID.
func (l *Ledger) Has(ctx context.Context, q Querier, fromUserID, toUserID uuid.UUID, kind models.InteractionKind) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM interactions
			WHERE from_user_id = $1 AND to_user_id = $2 AND kind = $3
		)`,
		fromUserID, toUserID, kind,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking interaction: %w", err)
	}
	return exists, nil
}

func (l *Ledger) ListSent(ctx context.Context, q Querier, userID uuid.UUID) ([]models.Interaction, error) {
	rows, err := q.Query(ctx,
		`SELECT id, from_user_id, to_user_id, kind, created_at
		 FROM interactions
		 WHERE from_user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	defer rows.Close()

	var interactions []models.Interaction
	for rows.Next() {
		var i models.Interaction
		if err := rows.Scan(&i.ID, &i.FromUserID, &i.ToUserID, &i.Kind, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		interactions = append(interactions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating interactions: %w", err)
	}

	if interactions == nil {
		interactions = []models.Interaction{}
	}
	return interactions, nil
}
