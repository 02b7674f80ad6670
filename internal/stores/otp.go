// Package stores holds the Redis record types behind the OTP workflows:
// issued codes with their attempt counters and lockout escalation, staged
// registrations, and single-use password reset tokens. Every record carries
// a TTL; expiry is the only garbage collection.
package stores

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrOTPNotFound means no code is stored for the email (never issued,
	// expired, or already consumed).
	ErrOTPNotFound = errors.New("otp record not found")
	// ErrOTPAttemptsExceeded means the mismatch just recorded was the final
	// one and the lockout key has been set.
	ErrOTPAttemptsExceeded = errors.New("otp attempts exceeded")
	// ErrStoreUnavailable indicates the Redis backend is unreachable.
	ErrStoreUnavailable = errors.New("otp store backend unavailable")
)

// MismatchError reports a failed verification with attempts still remaining.
type MismatchError struct {
	Remaining int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("otp mismatch, %d attempts remaining", e.Remaining)
}

// OTPConfig wires an OTPStore to one flow's keyspace and windows.
type OTPConfig struct {
	OTPKey      func(email string) string
	AttemptsKey func(email string) string
	LockKey     func(email string) string

	CodeTTL       time.Duration
	AttemptWindow time.Duration
	MaxAttempts   int
	LockTTL       time.Duration
}

// OTPStore persists issued codes and drives the attempt/lockout state
// machine for one flow. States per email: no-attempt, failed-1, failed-2,
// locked; the lock key, once set, is only ever cleared by TTL expiry.
type OTPStore struct {
	redis  redis.UniversalClient
	config OTPConfig
}

// NewOTPStore creates an [OTPStore] backed by the given Redis client.
func NewOTPStore(redisClient redis.UniversalClient, cfg OTPConfig) *OTPStore {
	return &OTPStore{
		redis:  redisClient,
		config: cfg,
	}
}

// Save stores the code for the email with the flow's TTL, replacing any
// previous code. Attempt counters are not touched: they are scoped to the
// email, not to a particular code.
func (s *OTPStore) Save(ctx context.Context, email, code string) error {
	if err := s.redis.Set(ctx, s.config.OTPKey(email), code, s.config.CodeTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Verify checks the submitted code against the stored one.
//
// A missing record fails ErrOTPNotFound. A mismatch increments the attempt
// counter (window TTL on first increment); reaching the attempt budget sets
// the lockout key, deletes the OTP and attempt-counter keys, and fails
// ErrOTPAttemptsExceeded, otherwise the mismatch fails with a [MismatchError]
// carrying the remaining count. A match returns nil without deleting
// anything: consumption is the caller's step, after its own post-checks.
func (s *OTPStore) Verify(ctx context.Context, email, code string) error {
	stored, err := s.redis.Get(ctx, s.config.OTPKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrOTPNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1 {
		return nil
	}

	attemptsKey := s.config.AttemptsKey(email)
	attempts, err := s.redis.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if attempts == 1 {
		if err := s.redis.Expire(ctx, attemptsKey, s.config.AttemptWindow).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if attempts >= int64(s.config.MaxAttempts) {
		if err := s.redis.Set(ctx, s.config.LockKey(email), "1", s.config.LockTTL).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if err := s.redis.Del(ctx, s.config.OTPKey(email), attemptsKey).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return ErrOTPAttemptsExceeded
	}

	return &MismatchError{Remaining: s.config.MaxAttempts - int(attempts)}
}

// Cleanup deletes the OTP and attempt-counter keys for the email.
func (s *OTPStore) Cleanup(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.config.OTPKey(email), s.config.AttemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
