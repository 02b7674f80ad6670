package youlyauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func loginTokens(t *testing.T, e *Engine, email, pass string) SessionTokens {
	t.Helper()

	_, tokens, err := e.Login(context.Background(), email, pass)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return tokens
}

func TestRefresh(t *testing.T) {
	engine, mr, _, notifier := newTestEngine(t)
	ctx := context.Background()

	user := registerUser(t, engine, mr, notifier, "Ava", "ava@example.com", "password123")
	tokens := loginTokens(t, engine, "ava@example.com", "password123")

	access, err := engine.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if access == "" {
		t.Fatal("empty access token")
	}

	// The refresh token is not rotated: it keeps working.
	if _, err := engine.Refresh(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}

	userID, err := engine.ValidateSession(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("ValidateSession user = %q, want %q", userID, user.ID)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	if _, err := engine.Refresh(context.Background(), "not.a.jwt"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	engine, mr, _, notifier := newTestEngine(t)

	registerUser(t, engine, mr, notifier, "Ava", "ava@example.com", "password123")
	tokens := loginTokens(t, engine, "ava@example.com", "password123")

	// The two token families are signed with different secrets.
	if _, err := engine.Refresh(context.Background(), tokens.AccessToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid for access token, got %v", err)
	}
}

func TestRefreshAfterSessionExpiry(t *testing.T) {
	engine, mr, _, notifier := newTestEngine(t)

	registerUser(t, engine, mr, notifier, "Ava", "ava@example.com", "password123")
	tokens := loginTokens(t, engine, "ava@example.com", "password123")

	mr.FastForward(8 * 24 * time.Hour)

	if _, err := engine.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid after expiry, got %v", err)
	}
}

func TestRefreshAfterUserDeleted(t *testing.T) {
	engine, mr, users, notifier := newTestEngine(t)

	user := registerUser(t, engine, mr, notifier, "Ava", "ava@example.com", "password123")
	tokens := loginTokens(t, engine, "ava@example.com", "password123")

	users.delete(user.ID)

	if _, err := engine.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid for deleted user, got %v", err)
	}
	// The orphaned sessions are purged.
	if mr.Exists("user_tokens:" + user.ID) {
		t.Fatal("expected session index to be purged")
	}
}

func TestRevokeSession(t *testing.T) {
	engine, mr, _, notifier := newTestEngine(t)
	ctx := context.Background()

	registerUser(t, engine, mr, notifier, "Ava", "ava@example.com", "password123")
	tokens := loginTokens(t, engine, "ava@example.com", "password123")

	if err := engine.RevokeSession(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid after revocation, got %v", err)
	}
	if err := engine.RevokeSession(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid on double revoke, got %v", err)
	}
}

func TestRevokeAllSessions(t *testing.T) {
	engine, mr, _, notifier := newTestEngine(t)
	ctx := context.Background()

	user := registerUser(t, engine, mr, notifier, "Ava", "ava@example.com", "password123")

	first := loginTokens(t, engine, "ava@example.com", "password123")
	second := loginTokens(t, engine, "ava@example.com", "password123")
	third := loginTokens(t, engine, "ava@example.com", "password123")

	count, err := engine.RevokeAllSessions(ctx, user.ID)
	if err != nil {
		t.Fatalf("RevokeAllSessions failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("revoked %d sessions, want 3", count)
	}

	for _, tokens := range []SessionTokens{first, second, third} {
		if _, err := engine.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("expected ErrRefreshInvalid after revoke-all, got %v", err)
		}
	}

	// A fresh login works again.
	fresh := loginTokens(t, engine, "ava@example.com", "password123")
	if _, err := engine.Refresh(ctx, fresh.RefreshToken); err != nil {
		t.Fatalf("Refresh on fresh session failed: %v", err)
	}
}
