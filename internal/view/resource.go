package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/session"
)

// FetchFunc reads one snapshot for key.
type FetchFunc[K comparable, T any] func(ctx context.Context, sess *session.Session, key K) (T, error)

// State is a copy of a resource's snapshot and fetch status.
type State[T any] struct {
	Data      T
	Loaded    bool
	Loading   bool
	Stale     bool
	Err       error
	Seq       uint64
	FetchedAt time.Time
}

// Failed reports a fetch error with nothing to show.
func (s State[T]) Failed() bool { return !s.Loaded && s.Err != nil }

// Resource implements the fetch/refresh contract for one server resource.
// Every fetch gets a sequence number; only the latest may write the
// snapshot, and starting a fetch cancels the one before it.
type Resource[K comparable, T any] struct {
	name   string
	fetch  FetchFunc[K, T]
	logger *log.Logger
	now    func() time.Time

	mu     sync.Mutex
	seq    uint64
	bound  bool
	sessID string
	key    K
	cancel context.CancelFunc
	state  State[T]
}

func NewResource[K comparable, T any](name string, fetch FetchFunc[K, T], logger *log.Logger) *Resource[K, T] {
	if logger == nil {
		logger = log.Discard()
	}
	return &Resource[K, T]{
		name:   name,
		fetch:  fetch,
		logger: logger,
		now:    time.Now,
	}
}

// Bind registers interest in {sess, key}. A fetch is issued only when the
// pair differs from the last bound pair. The pair is claimed under the same
// lock as the comparison, so concurrent binds of one new pair fetch once.
func (r *Resource[K, T]) Bind(ctx context.Context, sess *session.Session, key K) (State[T], error) {
	if err := session.Ready(sess); err != nil {
		return r.State(), err
	}
	r.mu.Lock()
	if r.bound && r.sessID == sess.ID && r.key == key {
		st := r.state
		r.mu.Unlock()
		return st, nil
	}
	return r.runLocked(ctx, sess, key)
}

// Mount binds key and always fetches, as a view does when it is opened.
func (r *Resource[K, T]) Mount(ctx context.Context, sess *session.Session, key K) (State[T], error) {
	if err := session.Ready(sess); err != nil {
		return r.State(), err
	}
	return r.run(ctx, sess, key)
}

// Reload fetches again with the current key.
func (r *Resource[K, T]) Reload(ctx context.Context, sess *session.Session) (State[T], error) {
	if err := session.Ready(sess); err != nil {
		return r.State(), err
	}
	r.mu.Lock()
	key := r.key
	r.mu.Unlock()
	return r.run(ctx, sess, key)
}

func (r *Resource[K, T]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resource[K, T]) Key() K {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.key
}

// Cancel aborts the in-flight fetch, if any.
func (r *Resource[K, T]) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Resource[K, T]) run(ctx context.Context, sess *session.Session, key K) (State[T], error) {
	r.mu.Lock()
	return r.runLocked(ctx, sess, key)
}

// runLocked starts a fetch for key. r.mu must be held on entry; it is
// released while the fetch runs.
func (r *Resource[K, T]) runLocked(ctx context.Context, sess *session.Session, key K) (State[T], error) {
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sess.Context(), cancel)
	defer stop()

	if r.cancel != nil {
		r.cancel()
	}
	r.seq++
	seq := r.seq
	r.cancel = cancel
	r.bound = true
	r.sessID = sess.ID
	r.key = key
	r.state.Loading = true
	r.state.Seq = seq
	r.mu.Unlock()

	fields := log.NewFields().WithSession(sess.ID, sess.User.ID).WithFetch(r.name, seq)
	r.logger.DebugContext(ctx, "Fetch started", fields.ToSlice()...)

	data, err := r.fetch(fctx, sess, key)

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.seq {
		r.logger.DebugContext(ctx, "Discarding superseded fetch", fields.ToSlice()...)
		return r.state, ErrSuperseded
	}

	r.cancel = nil
	r.state.Loading = false

	if err != nil {
		if sess.Context().Err() != nil {
			return r.state, core.ErrNotReady
		}
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return r.state, err
		}
		r.state.Err = err
		r.state.Stale = r.state.Loaded
		r.logger.ErrorContext(ctx, "Fetch failed", fields.WithError(err).WithOperation(log.OpFetch).ToSlice()...)
		return r.state, err
	}

	r.state.Data = data
	r.state.Loaded = true
	r.state.Stale = false
	r.state.Err = nil
	r.state.FetchedAt = r.now()
	return r.state, nil
}
