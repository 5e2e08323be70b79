package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cinepass/pkg/storage"
	"github.com/google/uuid"
)

const keyPrefix = "auth:session:"

// ErrNoSession is returned by Active when the session has no live login.
var ErrNoSession = errors.New("no active login for session")

// Record is the login bound to a storefront session.
type Record struct {
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	LoggedInAt   time.Time `json:"logged_in_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Manager binds logins to storefront sessions and expires them after a
// period of inactivity.
type Manager struct {
	store storage.Store
	idle  time.Duration
	now   func() time.Time
}

// NewManager constructs a session manager over store. A non-positive idle
// timeout disables expiry.
func NewManager(store storage.Store, idle time.Duration) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	return &Manager{store: store, idle: idle, now: time.Now}, nil
}

// WithClock overrides the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Bind records a fresh login for sessionID, replacing any previous one.
func (m *Manager) Bind(ctx context.Context, sessionID string, rec Record) (*Record, error) {
	key, err := sessionKey(sessionID)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	rec.LoggedInAt = now
	rec.LastActivity = now
	if err := storage.SaveJSON(ctx, m.store, key, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Active returns the login bound to sessionID and refreshes its activity
// stamp. A login idle past the timeout is revoked and ErrNoSession returned.
func (m *Manager) Active(ctx context.Context, sessionID string) (*Record, error) {
	key, err := sessionKey(sessionID)
	if err != nil {
		return nil, err
	}

	var rec Record
	found, err := storage.LoadJSON(ctx, m.store, key, &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoSession
	}

	now := m.now().UTC()
	if m.idle > 0 && now.Sub(rec.LastActivity) > m.idle {
		if err := m.store.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}

	// The refresh only lands on a record that still exists, so a Revoke
	// racing this call is never undone.
	rec.LastActivity = now
	refreshed, err := storage.ReplaceJSON(ctx, m.store, key, rec)
	if err != nil {
		return nil, err
	}
	if !refreshed {
		return nil, ErrNoSession
	}
	return &rec, nil
}

// Rename updates the display name carried by a live login. It returns
// ErrNoSession when the login is gone, and never recreates a revoked one.
func (m *Manager) Rename(ctx context.Context, sessionID, name string) error {
	key, err := sessionKey(sessionID)
	if err != nil {
		return err
	}
	var rec Record
	found, err := storage.LoadJSON(ctx, m.store, key, &rec)
	if err != nil {
		return err
	}
	if !found {
		return ErrNoSession
	}
	rec.Name = name
	renamed, err := storage.ReplaceJSON(ctx, m.store, key, rec)
	if err != nil {
		return err
	}
	if !renamed {
		return ErrNoSession
	}
	return nil
}

// Revoke deletes the login bound to sessionID, if any.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	key, err := sessionKey(sessionID)
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, key)
}

func sessionKey(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	return keyPrefix + sessionID, nil
}
