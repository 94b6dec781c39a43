package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gastos/internal/auth"
	"gastos/internal/core"
	"gastos/internal/storage"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]storage.SessionRecord
}

func newMemStore() *memStore { return &memStore{rows: map[string]storage.SessionRecord{}} }

func (m *memStore) SaveSession(_ context.Context, s storage.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = s
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (storage.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return storage.SessionRecord{}, storage.ErrNotFound
	}
	return s, nil
}

func (m *memStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.rows {
		if !s.ExpiresAt.After(now) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

type fakeAuth struct {
	tokens     auth.Tokens
	signInErr  error
	signedOut  []string
	signOutErr error
}

func (f *fakeAuth) SignIn(context.Context, string, string) (auth.Tokens, error) {
	return f.tokens, f.signInErr
}

func (f *fakeAuth) SignUp(context.Context, string, string, string) error { return nil }

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return f.signOutErr
}

func newTestProvider(exp time.Time) (*Provider, *memStore, *fakeAuth) {
	store := newMemStore()
	fa := &fakeAuth{tokens: auth.Tokens{
		AccessToken: "tok",
		ExpiresAt:   exp,
		User:        core.User{ID: "u1", Email: "ana@example.com", FullName: "Ana"},
	}}
	return NewProvider(store, fa, nil), store, fa
}

func TestSessionInvalidateCancelsContext(t *testing.T) {
	s := New("s1", "tok", core.User{}, time.Now().Add(time.Hour))
	if !s.Valid() {
		t.Fatal("new session should be valid")
	}
	s.Invalidate()
	s.Invalidate()

	select {
	case <-s.Context().Done():
	default:
		t.Fatal("context not cancelled after Invalidate")
	}
	if s.Valid() {
		t.Fatal("invalidated session reported valid")
	}
	if !errors.Is(Ready(s), core.ErrNotReady) {
		t.Fatal("Ready should report ErrNotReady")
	}
}

func TestNilSessionIsNotReady(t *testing.T) {
	var s *Session
	if s.Valid() {
		t.Fatal("nil session valid")
	}
	if s.Context().Err() == nil {
		t.Fatal("nil session context should be done")
	}
	s.Invalidate()
}

func TestProviderSignInAndLookup(t *testing.T) {
	p, store, _ := newTestProvider(time.Now().Add(time.Hour))
	ctx := context.Background()

	s, err := p.SignIn(ctx, " ana@example.com ", "secret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if _, ok := store.rows[s.ID]; !ok {
		t.Fatal("session not persisted")
	}

	got, err := p.Lookup(ctx, s.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != s {
		t.Fatal("Lookup returned a different session object")
	}
}

func TestProviderSignInValidation(t *testing.T) {
	p, _, _ := newTestProvider(time.Now().Add(time.Hour))
	_, err := p.SignIn(context.Background(), "", "x")
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProviderRestoresFromStore(t *testing.T) {
	p, store, _ := newTestProvider(time.Now().Add(time.Hour))
	store.rows["s9"] = storage.SessionRecord{
		ID: "s9", AccessToken: "tok9", UserID: "u9", Email: "b@example.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	s, err := p.Lookup(context.Background(), "s9")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if s.Token != "tok9" || s.User.Email != "b@example.com" {
		t.Fatalf("unexpected restored session %+v", s)
	}
	if p.Live() != 1 {
		t.Fatalf("Live() = %d, want 1", p.Live())
	}
}

func TestProviderLookupMissingOrExpired(t *testing.T) {
	p, store, _ := newTestProvider(time.Now().Add(time.Hour))
	ctx := context.Background()

	if _, err := p.Lookup(ctx, "nope"); !errors.Is(err, core.ErrNotReady) {
		t.Fatalf("missing: expected ErrNotReady, got %v", err)
	}

	store.rows["old"] = storage.SessionRecord{ID: "old", AccessToken: "t", ExpiresAt: time.Now().Add(-time.Minute)}
	if _, err := p.Lookup(ctx, "old"); !errors.Is(err, core.ErrNotReady) {
		t.Fatalf("expired: expected ErrNotReady, got %v", err)
	}
	if _, ok := store.rows["old"]; ok {
		t.Fatal("expired session should be deleted from the store")
	}
}

func TestProviderSignOutInvalidates(t *testing.T) {
	p, store, fa := newTestProvider(time.Now().Add(time.Hour))
	ctx := context.Background()

	var hooked []string
	p.OnInvalidate(func(s *Session) { hooked = append(hooked, s.ID) })

	s, err := p.SignIn(ctx, "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	fa.signOutErr = errors.New("provider down")
	if err := p.SignOut(ctx, s.ID); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	if s.Context().Err() == nil {
		t.Fatal("session context should be cancelled")
	}
	if len(fa.signedOut) != 1 || fa.signedOut[0] != "tok" {
		t.Fatalf("provider sign-out calls = %v", fa.signedOut)
	}
	if _, ok := store.rows[s.ID]; ok {
		t.Fatal("session should be deleted from the store")
	}
	if len(hooked) != 1 || hooked[0] != s.ID {
		t.Fatalf("invalidate hooks = %v", hooked)
	}
	if _, err := p.Lookup(ctx, s.ID); !errors.Is(err, core.ErrNotReady) {
		t.Fatalf("lookup after sign-out: %v", err)
	}
}

func TestProviderSweep(t *testing.T) {
	p, store, _ := newTestProvider(time.Now().Add(time.Hour))
	ctx := context.Background()

	s, err := p.SignIn(ctx, "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	n, err := p.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if s.Context().Err() == nil {
		t.Fatal("swept session should be invalidated")
	}
	if len(store.rows) != 0 || p.Live() != 0 {
		t.Fatalf("leftovers: store=%d live=%d", len(store.rows), p.Live())
	}
}
