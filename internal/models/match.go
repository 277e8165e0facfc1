package models

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Pair is an unordered pair of users stored in canonical order (Low < High).
type Pair struct {
	Low  uuid.UUID
	High uuid.UUID
}

// NewPair canonicalises a and b so that {a, b} and {b, a} produce the same Pair.
func NewPair(a, b uuid.UUID) Pair {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return Pair{Low: a, High: b}
	}
	return Pair{Low: b, High: a}
}

// Key identifies the pair in lock and cache namespaces.
func (p Pair) Key() string {
	return p.Low.String() + ":" + p.High.String()
}

type Match struct {
	ID         uuid.UUID `json:"id"`
	UserLowID  uuid.UUID `json:"user_low_id"`
	UserHighID uuid.UUID `json:"user_high_id"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (m *Match) Pair() Pair {
	return Pair{Low: m.UserLowID, High: m.UserHighID}
}

func (m *Match) HasUser(userID uuid.UUID) bool {
	return m.UserLowID == userID || m.UserHighID == userID
}

// OtherUserID returns the participant that is not userID. ok is false when
// userID is not in the match.
func (m *Match) OtherUserID(userID uuid.UUID) (other uuid.UUID, ok bool) {
	switch userID {
	case m.UserLowID:
		return m.UserHighID, true
	case m.UserHighID:
		return m.UserLowID, true
	default:
		return uuid.Nil, false
	}
}

type MatchPage struct {
	Matches    []Match `json:"matches"`
	NextCursor string  `json:"next_cursor,omitempty"`
}
