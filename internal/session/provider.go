package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gastos/internal/auth"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/storage"

	"github.com/google/uuid"
)

// Store persists sessions across restarts.
type Store interface {
	SaveSession(ctx context.Context, s storage.SessionRecord) error
	GetSession(ctx context.Context, id string) (storage.SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Provider creates, restores and tears down sessions.
type Provider struct {
	store  Store
	authn  auth.Provider
	logger *log.Logger
	now    func() time.Time

	mu           sync.Mutex
	live         map[string]*Session
	onInvalidate []func(*Session)
}

func NewProvider(store Store, authn auth.Provider, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.Discard()
	}
	return &Provider{
		store:  store,
		authn:  authn,
		logger: logger.WithComponent(log.ComponentSession),
		now:    time.Now,
		live:   make(map[string]*Session),
	}
}

// OnInvalidate registers fn to run whenever a session is torn down.
func (p *Provider) OnInvalidate(fn func(*Session)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onInvalidate = append(p.onInvalidate, fn)
}

// SignIn authenticates and opens a new session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &core.ValidationError{Field: "email", Message: "Email y contraseña son obligatorios"}
	}

	tok, err := p.authn.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s := New(uuid.NewString(), tok.AccessToken, tok.User, tok.ExpiresAt)
	s.RefreshToken = tok.RefreshToken

	err = p.store.SaveSession(ctx, storage.SessionRecord{
		ID:           s.ID,
		AccessToken:  s.Token,
		RefreshToken: s.RefreshToken,
		UserID:       s.User.ID,
		Email:        s.User.Email,
		FullName:     s.User.FullName,
		ExpiresAt:    s.ExpiresAt,
		CreatedAt:    p.now(),
	})
	if err != nil {
		s.Invalidate()
		return nil, fmt.Errorf("persist session: %w", err)
	}

	p.mu.Lock()
	p.live[s.ID] = s
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "Session opened", log.NewFields().WithSession(s.ID, s.User.ID).ToSlice()...)
	return s, nil
}

// SignUp forwards registration to the auth provider.
func (p *Provider) SignUp(ctx context.Context, email, password, fullName string) error {
	return p.authn.SignUp(ctx, email, password, fullName)
}

// Lookup returns the live session for id, restoring it from the store after
// a restart. Missing or expired sessions yield core.ErrNotReady.
func (p *Provider) Lookup(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, core.ErrNotReady
	}

	p.mu.Lock()
	s, ok := p.live[id]
	p.mu.Unlock()

	if !ok {
		rec, err := p.store.GetSession(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, core.ErrNotReady
		}
		if err != nil {
			return nil, fmt.Errorf("restore session: %w", err)
		}
		s = New(rec.ID, rec.AccessToken, core.User{ID: rec.UserID, Email: rec.Email, FullName: rec.FullName}, rec.ExpiresAt)
		s.RefreshToken = rec.RefreshToken

		p.mu.Lock()
		if existing, raced := p.live[id]; raced {
			s.Invalidate()
			s = existing
		} else {
			p.live[id] = s
		}
		p.mu.Unlock()
	}

	if !s.validAt(p.now()) {
		p.drop(ctx, s)
		return nil, core.ErrNotReady
	}
	return s, nil
}

// SignOut revokes the token upstream and tears the session down locally.
// Local teardown happens even when the provider call fails.
func (p *Provider) SignOut(ctx context.Context, id string) error {
	p.mu.Lock()
	s, ok := p.live[id]
	p.mu.Unlock()

	var token string
	if ok {
		token = s.Token
	} else if rec, err := p.store.GetSession(ctx, id); err == nil {
		token = rec.AccessToken
	}

	if token != "" {
		if err := p.authn.SignOut(ctx, token); err != nil {
			p.logger.WarnContext(ctx, "Provider sign-out failed",
				log.NewFields().WithSession(id, "").WithError(err).ToSlice()...)
		}
	}

	if ok {
		p.drop(ctx, s)
		return nil
	}
	if err := p.store.DeleteSession(ctx, id); err != nil {
		return err
	}
	return nil
}

// Sweep tears down expired sessions in memory and in the store.
func (p *Provider) Sweep(ctx context.Context) (int, error) {
	now := p.now()

	p.mu.Lock()
	var expired []*Session
	for _, s := range p.live {
		if !s.validAt(now) {
			expired = append(expired, s)
		}
	}
	p.mu.Unlock()

	for _, s := range expired {
		p.drop(ctx, s)
	}

	n, err := p.store.DeleteExpiredSessions(ctx, now)
	if err != nil {
		return len(expired), err
	}
	return len(expired) + int(n), nil
}

// Live returns the number of sessions held in memory.
func (p *Provider) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

func (p *Provider) drop(ctx context.Context, s *Session) {
	s.Invalidate()

	p.mu.Lock()
	if p.live[s.ID] == s {
		delete(p.live, s.ID)
	}
	hooks := append([]func(*Session){}, p.onInvalidate...)
	p.mu.Unlock()

	for _, fn := range hooks {
		fn(s)
	}

	if err := p.store.DeleteSession(context.WithoutCancel(ctx), s.ID); err != nil {
		p.logger.ErrorContext(ctx, "Failed to delete session",
			log.NewFields().WithSession(s.ID, s.User.ID).WithError(err).ToSlice()...)
		return
	}
	p.logger.InfoContext(ctx, "Session closed", log.NewFields().WithSession(s.ID, s.User.ID).ToSlice()...)
}
