// Package session owns the signed-in session lifecycle. A Session is an
// explicit context object handed to every view controller; invalidating it
// cancels all work tied to it.
package session

import (
	"context"
	"sync"
	"time"

	"gastos/internal/core"
)

// Session is one signed-in browser session.
type Session struct {
	ID           string
	Token        string
	RefreshToken string
	User         core.User
	ExpiresAt    time.Time

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New creates a live session. The session context is rooted at
// context.Background so that it outlives the request that created it.
func New(id, token string, user core.User, expiresAt time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:        id,
		Token:     token,
		User:      user,
		ExpiresAt: expiresAt,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Context is cancelled when the session is invalidated.
func (s *Session) Context() context.Context {
	if s == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.ctx
}

// Invalidate cancels the session context. Safe to call more than once.
func (s *Session) Invalidate() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Valid reports whether the session may still be used for requests.
func (s *Session) Valid() bool {
	return s.validAt(time.Now())
}

func (s *Session) validAt(now time.Time) bool {
	if s == nil || s.ctx.Err() != nil || s.Token == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// Ready returns core.ErrNotReady unless the session is usable.
func Ready(s *Session) error {
	if !s.Valid() {
		return core.ErrNotReady
	}
	return nil
}
