package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrPendingNotFound means no staged registration exists for the email.
var ErrPendingNotFound = errors.New("pending registration not found")

// PendingRecord is the staged, not-yet-committed account data awaiting OTP
// confirmation. The password is stored only in hashed form.
type PendingRecord struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	HashedPassword string `json:"hashedPassword"`
}

// PendingStore stages registration records keyed by email, with a TTL
// mirroring the registration OTP lifetime.
type PendingStore struct {
	redis redis.UniversalClient
	key   func(email string) string
	ttl   time.Duration
}

// NewPendingStore creates a [PendingStore] backed by the given Redis client.
func NewPendingStore(redisClient redis.UniversalClient, key func(string) string, ttl time.Duration) *PendingStore {
	return &PendingStore{
		redis: redisClient,
		key:   key,
		ttl:   ttl,
	}
}

// Stage writes the record, replacing any prior stage for the email.
func (s *PendingStore) Stage(ctx context.Context, record PendingRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(record.Email), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Fetch returns the staged record, or ErrPendingNotFound.
func (s *PendingStore) Fetch(ctx context.Context, email string) (PendingRecord, error) {
	data, err := s.redis.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return PendingRecord{}, ErrPendingNotFound
		}
		return PendingRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var record PendingRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return PendingRecord{}, fmt.Errorf("%w: corrupt pending record: %v", ErrStoreUnavailable, err)
	}
	return record, nil
}

// Discard deletes the staged record. Deleting a missing record is not an error.
func (s *PendingStore) Discard(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
