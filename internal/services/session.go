package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairup/internal/models"
)

const (
	sessionDuration  = 30 * 24 * time.Hour
	sessionKeyPrefix = "session:"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionService resolves bearer tokens to users. Tokens are stored in Redis
// by their SHA-256 hash under the same key scheme the account service uses
// when it issues them.
type SessionService struct {
	redis RedisClient
	users UserServiceInterface
}

func NewSessionService(redis RedisClient, users UserServiceInterface) *SessionService {
	return &SessionService{redis: redis, users: users}
}

func (s *SessionService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	key := sessionKey(token)
	userIDStr, err := s.redis.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("parsing user id: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		_ = s.redis.Del(ctx, key)
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	// Sliding expiry; failure only shortens the session.
	_ = s.redis.Expire(ctx, key, sessionDuration)
	return user, nil
}

func (s *SessionService) DeleteSession(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	hash := sha256.Sum256([]byte(token))
	return sessionKeyPrefix + hex.EncodeToString(hash[:])
}
