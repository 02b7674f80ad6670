package jwt

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		Issuer:        "youly",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero access ttl", Config{RefreshTTL: time.Hour, AccessSecret: []byte("a"), RefreshSecret: []byte("r")}},
		{"zero refresh ttl", Config{AccessTTL: time.Hour, AccessSecret: []byte("a"), RefreshSecret: []byte("r")}},
		{"missing access secret", Config{AccessTTL: time.Hour, RefreshTTL: time.Hour, RefreshSecret: []byte("r")}},
		{"missing refresh secret", Config{AccessTTL: time.Hour, RefreshTTL: time.Hour, AccessSecret: []byte("a")}},
		{"negative leeway", Config{AccessTTL: time.Hour, RefreshTTL: time.Hour, AccessSecret: []byte("a"), RefreshSecret: []byte("r"), Leeway: -time.Second}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSignAndParseRoundTrip(t *testing.T) {
	m := newTestManager(t)

	access, err := m.SignAccess("u1", "user")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}
	claims, err := m.ParseAccess(access)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != "user" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Issuer != "youly" {
		t.Fatalf("issuer = %q, want youly", claims.Issuer)
	}

	refresh, err := m.SignRefresh("u1", "user")
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}
	if _, err := m.ParseRefresh(refresh); err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
}

func TestTokenFamiliesAreDistinct(t *testing.T) {
	m := newTestManager(t)

	access, _ := m.SignAccess("u1", "user")
	refresh, _ := m.SignRefresh("u1", "user")

	if _, err := m.ParseRefresh(access); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("access token must not parse as refresh, got %v", err)
	}
	if _, err := m.ParseAccess(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh token must not parse as access, got %v", err)
	}
}

func TestParseRejectsTampered(t *testing.T) {
	m := newTestManager(t)

	token, _ := m.SignAccess("u1", "user")
	tampered := token[:len(token)-2] + "xx"

	if _, err := m.ParseAccess(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := newTestManager(t)

	for _, tok := range []string{"", "abc", "a.b.c"} {
		if _, err := m.ParseAccess(tok); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("ParseAccess(%q) = %v, want ErrTokenInvalid", tok, err)
		}
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m, err := NewManager(Config{
		AccessTTL:     time.Nanosecond,
		RefreshTTL:    time.Hour,
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := m.SignAccess("u1", "user")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	if _, err := m.ParseAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	signer, err := NewManager(Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Hour,
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		Issuer:        "someone-else",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	verifier := newTestManager(t)

	token, _ := signer.SignAccess("u1", "user")
	if _, err := verifier.ParseAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong issuer, got %v", err)
	}
}

func TestParseRejectsEmptySubject(t *testing.T) {
	m := newTestManager(t)

	token, err := m.SignAccess("", "user")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}
	if _, err := m.ParseAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for empty user id, got %v", err)
	}
}
