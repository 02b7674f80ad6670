package stores

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrResetTokenNotFound covers both a missing record and a mismatching
// token; callers cannot distinguish the two.
var ErrResetTokenNotFound = errors.New("reset token not found")

// ResetTokenStore persists the single-use password reset token minted on a
// successful forgot-password OTP verification.
type ResetTokenStore struct {
	redis redis.UniversalClient
	key   func(email string) string
	ttl   time.Duration
}

// NewResetTokenStore creates a [ResetTokenStore] backed by the given Redis client.
func NewResetTokenStore(redisClient redis.UniversalClient, key func(string) string, ttl time.Duration) *ResetTokenStore {
	return &ResetTokenStore{
		redis: redisClient,
		key:   key,
		ttl:   ttl,
	}
}

// Save stores the token for the email, replacing any previous token.
func (s *ResetTokenStore) Save(ctx context.Context, email, token string) error {
	if err := s.redis.Set(ctx, s.key(email), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Verify checks the token without consuming it: a valid-but-unused token
// stays usable until it expires or a password update deletes it.
func (s *ResetTokenStore) Verify(ctx context.Context, email, token string) error {
	stored, err := s.redis.Get(ctx, s.key(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrResetTokenNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return ErrResetTokenNotFound
	}
	return nil
}

// Delete removes the token. Called only after a successful password update.
func (s *ResetTokenStore) Delete(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// TTL returns the configured token lifetime.
func (s *ResetTokenStore) TTL() time.Duration {
	return s.ttl
}
