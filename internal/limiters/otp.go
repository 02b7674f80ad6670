// Package limiters implements the per-email anti-abuse gates in front of OTP
// issuance: the failed-attempt lockout, the issuance-count spam lock, and the
// 60-second cooldown, all as TTL-expiring Redis keys.
package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLocked means the failed-attempt lockout key is active for the email.
	ErrLocked = errors.New("otp requests temporarily locked")
	// ErrSpamLocked means the issuance spam lock is active for the email.
	ErrSpamLocked = errors.New("too many otp requests")
	// ErrCooldownActive means the issuance cooldown is active for the email.
	ErrCooldownActive = errors.New("otp cooldown active")
	// ErrLimiterUnavailable indicates the Redis backend is unreachable.
	ErrLimiterUnavailable = errors.New("otp limiter backend unavailable")
)

// Config wires an OTPLimiter to one flow's keyspace. Key funcs map an email
// to its full Redis key; the lock key itself is written by the verification
// store, not here, but the limiter owns reading it.
type Config struct {
	LockKey         func(email string) string
	SpamLockKey     func(email string) string
	CooldownKey     func(email string) string
	RequestCountKey func(email string) string

	CooldownTTL time.Duration

	// TrackRequests enables the fixed-window issuance counter; when false,
	// SpamLockKey and RequestCountKey may be nil.
	TrackRequests bool
	MaxRequests   int
	RequestWindow time.Duration
	SpamLockTTL   time.Duration
}

// OTPLimiter evaluates and records issuance restrictions for one OTP flow.
type OTPLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates an [OTPLimiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *OTPLimiter {
	return &OTPLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckRestriction reports the first active restriction for the email, in
// priority order: lockout, spam lock, cooldown. It has no side effects.
func (l *OTPLimiter) CheckRestriction(ctx context.Context, email string) error {
	locked, err := l.keyExists(ctx, l.config.LockKey(email))
	if err != nil {
		return err
	}
	if locked {
		return ErrLocked
	}

	if l.config.TrackRequests {
		spamLocked, err := l.keyExists(ctx, l.config.SpamLockKey(email))
		if err != nil {
			return err
		}
		if spamLocked {
			return ErrSpamLocked
		}
	}

	cooling, err := l.keyExists(ctx, l.config.CooldownKey(email))
	if err != nil {
		return err
	}
	if cooling {
		return ErrCooldownActive
	}

	return nil
}

// TrackRequest increments the fixed-window issuance counter and returns the
// updated count. When the count exceeds the budget it sets the spam lock and
// returns ErrSpamLocked. The window TTL is set only on the first increment.
func (l *OTPLimiter) TrackRequest(ctx context.Context, email string) (int64, error) {
	if !l.config.TrackRequests {
		return 0, nil
	}

	key := l.config.RequestCountKey(email)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.RequestWindow).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.MaxRequests) {
		if err := l.redis.Set(ctx, l.config.SpamLockKey(email), "1", l.config.SpamLockTTL).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
		return count, ErrSpamLocked
	}

	return count, nil
}

// SetCooldown records the issuance cooldown for the email.
func (l *OTPLimiter) SetCooldown(ctx context.Context, email string) error {
	if err := l.redis.Set(ctx, l.config.CooldownKey(email), "1", l.config.CooldownTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}

// Reset clears the cooldown and request-counter keys for the email. The spam
// lock and the attempt lockout are deliberately left to expire on their own.
func (l *OTPLimiter) Reset(ctx context.Context, email string) error {
	keys := []string{l.config.CooldownKey(email)}
	if l.config.TrackRequests {
		keys = append(keys, l.config.RequestCountKey(email))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}

func (l *OTPLimiter) keyExists(ctx context.Context, key string) (bool, error) {
	_, err := l.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return true, nil
}
