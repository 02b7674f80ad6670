package userstore

import (
	"context"
	"errors"
	"testing"

	youlyauth "github.com/am-IRh/youly-auth"
)

func TestMemoryInsertAndFind(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	user, err := store.Insert(ctx, "Ava", "ava@example.com", "hash-1")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated id")
	}
	if user.CreatedAt.IsZero() {
		t.Fatal("expected created timestamp")
	}

	byEmail, err := store.FindByEmail(ctx, "ava@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID || byEmail.PasswordHash != "hash-1" {
		t.Fatalf("unexpected user: %+v", byEmail)
	}

	byID, err := store.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID.Email != "ava@example.com" {
		t.Fatalf("unexpected user: %+v", byID)
	}
}

func TestMemoryDuplicateEmail(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if _, err := store.Insert(ctx, "Ava", "ava@example.com", "hash-1"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	_, err := store.Insert(ctx, "Other", "ava@example.com", "hash-2")
	if !errors.Is(err, youlyauth.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestMemoryMisses(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if _, err := store.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, youlyauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := store.FindByID(ctx, "missing"); !errors.Is(err, youlyauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := store.UpdatePassword(ctx, "missing", "hash"); !errors.Is(err, youlyauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryUpdatePassword(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	user, err := store.Insert(ctx, "Ava", "ava@example.com", "hash-1")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.UpdatePassword(ctx, user.ID, "hash-2"); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}

	updated, err := store.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if updated.PasswordHash != "hash-2" {
		t.Fatalf("password hash not updated: %q", updated.PasswordHash)
	}
}
