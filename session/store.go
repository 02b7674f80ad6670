// Package session tracks live refresh-token sessions per user. Each session
// is a Redis record `refresh_token:{userID}:{sessionID}` holding the raw
// refresh token, indexed by the set `user_tokens:{userID}`. A set member is
// authoritative only while its backing record exists; a member whose record
// expired means the session is gone.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/am-IRh/youly-auth/internal"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable indicates the session backend is unreachable.
var ErrRedisUnavailable = errors.New("session backend unavailable")

// Store is the Redis-backed refresh-session manager.
type Store struct {
	redis      redis.UniversalClient
	defaultTTL time.Duration
}

// NewStore creates a session [Store]. defaultTTL applies when Create is
// called with a non-positive TTL.
func NewStore(redisClient redis.UniversalClient, defaultTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = 7 * 24 * time.Hour
	}
	return &Store{
		redis:      redisClient,
		defaultTTL: defaultTTL,
	}
}

func tokenKey(userID, sessionID string) string {
	return "refresh_token:" + userID + ":" + sessionID
}

func setKey(userID string) string {
	return "user_tokens:" + userID
}

// Create registers token as a live session for the user and returns the new
// session ID (16 random bytes, hex). The per-user index set's expiry is
// refreshed to ttl so it never outlives its longest-lived member by less
// than the member's own lifetime.
func (s *Store) Create(ctx context.Context, userID, token string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	sessionID, err := internal.NewTokenHex(internal.SessionIDBytes)
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, tokenKey(userID, sessionID), token, ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := s.redis.SAdd(ctx, setKey(userID), sessionID).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := s.redis.Expire(ctx, setKey(userID), ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sessionID, nil
}

// Validate reports whether token matches any live session for the user.
// Linear scan over the member set; per-user session counts are small.
func (s *Store) Validate(ctx context.Context, userID, token string) (bool, error) {
	sessionIDs, err := s.redis.SMembers(ctx, setKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	for _, sessionID := range sessionIDs {
		stored, err := s.redis.Get(ctx, tokenKey(userID, sessionID)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Record expired under its set member; treated as revoked.
				continue
			}
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if stored == token {
			return true, nil
		}
	}

	return false, nil
}

// Revoke deletes the session holding token and removes it from the index.
// Returns false when no live session matches.
func (s *Store) Revoke(ctx context.Context, userID, token string) (bool, error) {
	sessionIDs, err := s.redis.SMembers(ctx, setKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	for _, sessionID := range sessionIDs {
		stored, err := s.redis.Get(ctx, tokenKey(userID, sessionID)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if stored != token {
			continue
		}

		if err := s.redis.Del(ctx, tokenKey(userID, sessionID)).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if err := s.redis.SRem(ctx, setKey(userID), sessionID).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return true, nil
	}

	return false, nil
}

// RevokeAll deletes every session record for the user and the index set
// itself, and returns the number of sessions that were indexed. Used to
// force global logout on password reset.
func (s *Store) RevokeAll(ctx context.Context, userID string) (int, error) {
	sessionIDs, err := s.redis.SMembers(ctx, setKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if len(sessionIDs) > 0 {
		keys := make([]string, 0, len(sessionIDs))
		for _, sessionID := range sessionIDs {
			keys = append(keys, tokenKey(userID, sessionID))
		}
		if err := s.redis.Del(ctx, keys...).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if err := s.redis.Del(ctx, setKey(userID)).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return len(sessionIDs), nil
}
