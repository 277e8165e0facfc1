package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/pairup/internal/logging"
	"github.com/HammerMeetNail/pairup/internal/models"
)

const (
	defaultMatchPageSize = 20
	maxMatchPageSize     = 100
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchInactive      = errors.New("match is no longer active")
	ErrNotAParticipant    = errors.New("user is not a participant")
	errPairAlreadyMatched = errors.New("pair already matched")
)

// MatchService turns reciprocal likes into matches and owns the match
// lifecycle. OnLike must run inside the transaction that wrote the like.
type MatchService struct {
	db     DB
	ledger *Ledger
	likes  *LikeCounter
	logger *logging.Logger
}

func NewMatchService(db DB, ledger *Ledger, likes *LikeCounter) *MatchService {
	return &MatchService{
		db:     db,
		ledger: ledger,
		likes:  likes,
		logger: logging.Default,
	}
}

func (s *MatchService) SetLogger(logger *logging.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// OnLike applies the side effects of fromUserID liking toUserID: the target's
// counter and history, then the reciprocity check. It returns the match for
// the pair when the like is reciprocated, or nil.
func (s *MatchService) OnLike(ctx context.Context, tx Querier, fromUserID, toUserID uuid.UUID) (*models.Match, error) {
	if err := s.likes.Increment(ctx, tx, toUserID); err != nil {
		return nil, err
	}
	if err := s.likes.Record(ctx, tx, toUserID, fromUserID); err != nil {
		return nil, err
	}

	reciprocal, err := s.ledger.Has(ctx, tx, toUserID, fromUserID, models.InteractionLike)
	if err != nil {
		return nil, err
	}
	if !reciprocal {
		return nil, nil
	}

	pair := models.NewPair(fromUserID, toUserID)
	match, err := s.createMatch(ctx, tx, pair)
	if errors.Is(err, errPairAlreadyMatched) {
		// Lost a creation race; the pair is matched either way.
		match, err = s.getByPair(ctx, tx, pair)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("Match already existed for pair", map[string]interface{}{
			"match_id": match.ID.String(),
		})
		return match, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Match created", map[string]interface{}{
		"match_id":  match.ID.String(),
		"user_low":  pair.Low.String(),
		"user_high": pair.High.String(),
	})
	return match, nil
}

func (s *MatchService) createMatch(ctx context.Context, q Querier, pair models.Pair) (*models.Match, error) {
	match := &models.Match{}
	err := q.QueryRow(ctx,
		`INSERT INTO matches (user_low_id, user_high_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_low_id, user_high_id) DO NOTHING
		 RETURNING id, user_low_id, user_high_id, is_active, created_at`,
		pair.Low, pair.High,
	).Scan(&match.ID, &match.UserLowID, &match.UserHighID, &match.IsActive, &match.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errPairAlreadyMatched
	}
	if err != nil {
		return nil, fmt.Errorf("creating match: %w", err)
	}
	return match, nil
}

func (s *MatchService) getByPair(ctx context.Context, q Querier, pair models.Pair) (*models.Match, error) {
	match := &models.Match{}
	err := q.QueryRow(ctx,
		`SELECT id, user_low_id, user_high_id, is_active, created_at
		 FROM matches WHERE user_low_id = $1 AND user_high_id = $2`,
		pair.Low, pair.High,
	).Scan(&match.ID, &match.UserLowID, &match.UserHighID, &match.IsActive, &match.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting match by pair: %w", err)
	}
	return match, nil
}

func (s *MatchService) GetByID(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	return s.getByID(ctx, s.db, matchID)
}

func (s *MatchService) getByID(ctx context.Context, q Querier, matchID uuid.UUID) (*models.Match, error) {
	return s.selectByID(ctx, q, matchID, "")
}

// getForShare reads the match holding a share lock until tx ends. It waits
// out a concurrent Deactivate and returns the row as that left it.
func (s *MatchService) getForShare(ctx context.Context, tx Tx, matchID uuid.UUID) (*models.Match, error) {
	return s.selectByID(ctx, tx, matchID, " FOR SHARE")
}

func (s *MatchService) selectByID(ctx context.Context, q Querier, matchID uuid.UUID, lockClause string) (*models.Match, error) {
	match := &models.Match{}
	err := q.QueryRow(ctx,
		`SELECT id, user_low_id, user_high_id, is_active, created_at
		 FROM matches WHERE id = $1`+lockClause,
		matchID,
	).Scan(&match.ID, &match.UserLowID, &match.UserHighID, &match.IsActive, &match.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting match: %w", err)
	}
	return match, nil
}

// ListActive returns the user's active matches, newest first. Pass the
// previous page's NextCursor to continue; an empty cursor starts over.
func (s *MatchService) ListActive(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*models.MatchPage, error) {
	if limit <= 0 {
		limit = defaultMatchPageSize
	}
	if limit > maxMatchPageSize {
		limit = maxMatchPageSize
	}

	after, err := models.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	sql := `SELECT id, user_low_id, user_high_id, is_active, created_at
		 FROM matches
		 WHERE (user_low_id = $1 OR user_high_id = $1) AND is_active = true`
	args := []any{userID}
	if after != nil {
		sql += ` AND (created_at, id) < ($3::timestamptz, $4::uuid)`
		args = append(args, limit+1, after.CreatedAt, after.ID)
	} else {
		args = append(args, limit+1)
	}
	sql += ` ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	matches := []models.Match{}
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.UserLowID, &m.UserHighID, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}

	page := &models.MatchPage{Matches: matches}
	if len(matches) > limit {
		page.Matches = matches[:limit]
		last := page.Matches[limit-1]
		page.NextCursor = models.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// Deactivate ends a match (unmatch) and cancels its pending invitations.
// Deactivating an already inactive match is a no-op.
func (s *MatchService) Deactivate(ctx context.Context, matchID, actorID uuid.UUID) error {
	return withTx(ctx, s.db, func(tx Tx) error {
		match, err := s.getByID(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if !match.HasUser(actorID) {
			return ErrNotAParticipant
		}
		if !match.IsActive {
			return nil
		}

		if _, err := tx.Exec(ctx,
			"UPDATE matches SET is_active = false WHERE id = $1",
			matchID,
		); err != nil {
			return fmt.Errorf("deactivating match: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE date_invitations
			 SET status = 'cancelled', updated_at = NOW()
			 WHERE match_id = $1 AND status = 'pending'`,
			matchID,
		); err != nil {
			return fmt.Errorf("cancelling pending invitations: %w", err)
		}

		s.logger.Info("Match deactivated", map[string]interface{}{
			"match_id": match.ID.String(),
			"pair":     match.Pair().Key(),
			"actor_id": actorID.String(),
		})
		return nil
	})
}
