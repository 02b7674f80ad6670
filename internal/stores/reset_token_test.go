package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestResetStore(t *testing.T) (*ResetTokenStore, *miniredis.Miniredis) {
	t.Helper()

	mr, client := newTestRedis(t)
	s := NewResetTokenStore(client, func(email string) string { return "reset:" + email }, 15*time.Minute)
	return s, mr
}

func TestResetTokenSaveAndVerify(t *testing.T) {
	s, mr := newTestResetStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "a@b.c", "tok123"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if ttl := mr.TTL("reset:a@b.c"); ttl != 15*time.Minute {
		t.Fatalf("TTL = %v, want 15m", ttl)
	}

	if err := s.Verify(ctx, "a@b.c", "tok123"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	// Verify does not consume.
	if err := s.Verify(ctx, "a@b.c", "tok123"); err != nil {
		t.Fatalf("second Verify failed: %v", err)
	}
}

func TestResetTokenMismatch(t *testing.T) {
	s, _ := newTestResetStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "a@b.c", "tok123"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Missing and mismatching are indistinguishable to the caller.
	if err := s.Verify(ctx, "a@b.c", "other"); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("expected ErrResetTokenNotFound on mismatch, got %v", err)
	}
	if err := s.Verify(ctx, "x@y.z", "tok123"); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("expected ErrResetTokenNotFound on miss, got %v", err)
	}
}

func TestResetTokenDelete(t *testing.T) {
	s, mr := newTestResetStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "a@b.c", "tok123"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Delete(ctx, "a@b.c"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if mr.Exists("reset:a@b.c") {
		t.Fatal("token should be gone")
	}
	if err := s.Verify(ctx, "a@b.c", "tok123"); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("expected ErrResetTokenNotFound after delete, got %v", err)
	}
}

func TestResetTokenExpiry(t *testing.T) {
	s, mr := newTestResetStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "a@b.c", "tok123"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	mr.FastForward(16 * time.Minute)

	if err := s.Verify(ctx, "a@b.c", "tok123"); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("expected ErrResetTokenNotFound after expiry, got %v", err)
	}
}
