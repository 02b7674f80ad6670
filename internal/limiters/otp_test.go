package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, trackRequests bool) (*OTPLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l := New(client, Config{
		LockKey:         func(email string) string { return "lock:" + email },
		SpamLockKey:     func(email string) string { return "spam:" + email },
		CooldownKey:     func(email string) string { return "cool:" + email },
		RequestCountKey: func(email string) string { return "count:" + email },
		CooldownTTL:     60 * time.Second,
		TrackRequests:   trackRequests,
		MaxRequests:     5,
		RequestWindow:   10 * time.Minute,
		SpamLockTTL:     time.Hour,
	})
	return l, mr
}

func TestCheckRestrictionClean(t *testing.T) {
	l, _ := newTestLimiter(t, true)

	if err := l.CheckRestriction(context.Background(), "a@b.c"); err != nil {
		t.Fatalf("expected no restriction, got %v", err)
	}
}

func TestCheckRestrictionPriority(t *testing.T) {
	l, mr := newTestLimiter(t, true)
	ctx := context.Background()

	// All three active: the lockout wins.
	mr.Set("lock:a@b.c", "1")
	mr.Set("spam:a@b.c", "1")
	mr.Set("cool:a@b.c", "1")
	if err := l.CheckRestriction(ctx, "a@b.c"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	mr.Del("lock:a@b.c")
	if err := l.CheckRestriction(ctx, "a@b.c"); !errors.Is(err, ErrSpamLocked) {
		t.Fatalf("expected ErrSpamLocked, got %v", err)
	}

	mr.Del("spam:a@b.c")
	if err := l.CheckRestriction(ctx, "a@b.c"); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
}

func TestTrackRequestSpamLock(t *testing.T) {
	l, mr := newTestLimiter(t, true)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		count, err := l.TrackRequest(ctx, "a@b.c")
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if count != int64(i) {
			t.Fatalf("count = %d, want %d", count, i)
		}
	}

	count, err := l.TrackRequest(ctx, "a@b.c")
	if !errors.Is(err, ErrSpamLocked) {
		t.Fatalf("expected ErrSpamLocked on 6th request, got %v", err)
	}
	if count != 6 {
		t.Fatalf("count = %d, want 6", count)
	}
	if !mr.Exists("spam:a@b.c") {
		t.Fatal("spam lock key missing")
	}

	// The lock outlives the counting window.
	mr.FastForward(11 * time.Minute)
	if mr.Exists("count:a@b.c") {
		t.Fatal("counter should have expired")
	}
	if !mr.Exists("spam:a@b.c") {
		t.Fatal("spam lock should persist")
	}
}

func TestTrackRequestWindowExpiry(t *testing.T) {
	l, mr := newTestLimiter(t, true)
	ctx := context.Background()

	if _, err := l.TrackRequest(ctx, "a@b.c"); err != nil {
		t.Fatalf("TrackRequest failed: %v", err)
	}
	mr.FastForward(11 * time.Minute)

	count, err := l.TrackRequest(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("TrackRequest failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 after window expiry", count)
	}
}

func TestTrackRequestDisabled(t *testing.T) {
	l, mr := newTestLimiter(t, false)

	count, err := l.TrackRequest(context.Background(), "a@b.c")
	if err != nil || count != 0 {
		t.Fatalf("expected no-op, got count=%d err=%v", count, err)
	}
	if mr.Exists("count:a@b.c") {
		t.Fatal("counter should not be written when tracking is disabled")
	}
}

func TestSetCooldown(t *testing.T) {
	l, mr := newTestLimiter(t, true)
	ctx := context.Background()

	if err := l.SetCooldown(ctx, "a@b.c"); err != nil {
		t.Fatalf("SetCooldown failed: %v", err)
	}
	if err := l.CheckRestriction(ctx, "a@b.c"); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}

	mr.FastForward(61 * time.Second)
	if err := l.CheckRestriction(ctx, "a@b.c"); err != nil {
		t.Fatalf("expected cooldown to expire, got %v", err)
	}
}

func TestResetKeepsPenalties(t *testing.T) {
	l, mr := newTestLimiter(t, true)
	ctx := context.Background()

	mr.Set("spam:a@b.c", "1")
	mr.Set("lock:a@b.c", "1")
	if err := l.SetCooldown(ctx, "a@b.c"); err != nil {
		t.Fatalf("SetCooldown failed: %v", err)
	}
	if _, err := l.TrackRequest(ctx, "a@b.c"); err != nil {
		t.Fatalf("TrackRequest failed: %v", err)
	}

	if err := l.Reset(ctx, "a@b.c"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if mr.Exists("cool:a@b.c") || mr.Exists("count:a@b.c") {
		t.Fatal("cooldown and counter should be cleared")
	}
	if !mr.Exists("spam:a@b.c") || !mr.Exists("lock:a@b.c") {
		t.Fatal("spam lock and lockout must be left to expire")
	}
}
