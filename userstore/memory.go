// Package userstore provides UserProvider implementations: an in-memory map
// for tests and development, and a Postgres store for production.
package userstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	youlyauth "github.com/am-IRh/youly-auth"
)

// Memory is a map-backed user store. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]youlyauth.User
	byEmail map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]youlyauth.User),
		byEmail: make(map[string]string),
	}
}

// FindByEmail looks up a user by email.
func (m *Memory) FindByEmail(_ context.Context, email string) (youlyauth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return youlyauth.User{}, youlyauth.ErrUserNotFound
	}
	return m.byID[id], nil
}

// FindByID looks up a user by id.
func (m *Memory) FindByID(_ context.Context, id string) (youlyauth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.byID[id]
	if !ok {
		return youlyauth.User{}, youlyauth.ErrUserNotFound
	}
	return user, nil
}

// Insert adds a user, enforcing email uniqueness.
func (m *Memory) Insert(_ context.Context, name, email, hashedPassword string) (youlyauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[email]; exists {
		return youlyauth.User{}, youlyauth.ErrAccountExists
	}

	user := youlyauth.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	m.byID[user.ID] = user
	m.byEmail[email] = user.ID
	return user, nil
}

// UpdatePassword replaces the stored password hash.
func (m *Memory) UpdatePassword(_ context.Context, id, hashedPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.byID[id]
	if !ok {
		return youlyauth.ErrUserNotFound
	}
	user.PasswordHash = hashedPassword
	m.byID[id] = user
	return nil
}
