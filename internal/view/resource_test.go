package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gastos/internal/core"
	"gastos/internal/session"
)

func TestResourceNotReady(t *testing.T) {
	var calls atomic.Int32
	r := NewResource("test", func(context.Context, *session.Session, string) (int, error) {
		calls.Add(1)
		return 1, nil
	}, nil)

	if _, err := r.Bind(context.Background(), nil, "a"); !errors.Is(err, core.ErrNotReady) {
		t.Fatalf("nil session: expected ErrNotReady, got %v", err)
	}

	sess := testSession()
	sess.Invalidate()
	if _, err := r.Reload(context.Background(), sess); !errors.Is(err, core.ErrNotReady) {
		t.Fatalf("invalidated session: expected ErrNotReady, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("fetch ran %d times without a session", calls.Load())
	}
}

func TestResourceBindFetchesOncePerPair(t *testing.T) {
	var calls atomic.Int32
	r := NewResource("test", func(_ context.Context, _ *session.Session, key string) (string, error) {
		calls.Add(1)
		return "data-" + key, nil
	}, nil)
	ctx := context.Background()
	sess := testSession()

	steps := []struct {
		key       string
		wantCalls int32
	}{
		{"a", 1},
		{"a", 1},
		{"b", 2},
		{"b", 2},
		{"a", 3},
	}
	for _, s := range steps {
		st, err := r.Bind(ctx, sess, s.key)
		if err != nil {
			t.Fatalf("Bind(%q): %v", s.key, err)
		}
		if st.Data != "data-"+s.key {
			t.Fatalf("Bind(%q) data = %q", s.key, st.Data)
		}
		if calls.Load() != s.wantCalls {
			t.Fatalf("after Bind(%q) calls = %d, want %d", s.key, calls.Load(), s.wantCalls)
		}
	}

	other := session.New("s2", "tok2", core.User{}, time.Now().Add(time.Hour))
	if _, err := r.Bind(ctx, other, "a"); err != nil {
		t.Fatalf("Bind new session: %v", err)
	}
	if calls.Load() != 4 {
		t.Fatalf("a new session should refetch, calls = %d", calls.Load())
	}

	if _, err := r.Reload(ctx, other); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if calls.Load() != 5 {
		t.Fatalf("Reload should always fetch, calls = %d", calls.Load())
	}
}

func TestResourceSupersededFetchDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	r := NewResource("test", func(ctx context.Context, _ *session.Session, key string) (string, error) {
		if key == "slow" {
			close(started)
			<-release
			// A late response that ignores cancellation must still lose.
			return "slow", nil
		}
		return key, nil
	}, nil)
	ctx := context.Background()
	sess := testSession()

	var (
		wg      sync.WaitGroup
		slowErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = r.Bind(ctx, sess, "slow")
	}()
	<-started

	st, err := r.Bind(ctx, sess, "fast")
	if err != nil {
		t.Fatalf("fast Bind: %v", err)
	}
	if st.Data != "fast" {
		t.Fatalf("fast data = %q", st.Data)
	}

	close(release)
	wg.Wait()

	if !errors.Is(slowErr, ErrSuperseded) {
		t.Fatalf("slow fetch: expected ErrSuperseded, got %v", slowErr)
	}
	final := r.State()
	if final.Data != "fast" || final.Loading {
		t.Fatalf("superseded fetch overwrote state: %+v", final)
	}
	if final.Seq != 2 {
		t.Fatalf("Seq = %d, want 2", final.Seq)
	}
}

func TestResourceConcurrentBindSamePairFetchesOnce(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	r := NewResource("test", func(_ context.Context, _ *session.Session, key string) (string, error) {
		calls.Add(1)
		close(started)
		<-release
		return key, nil
	}, nil)
	ctx := context.Background()
	sess := testSession()

	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Bind(ctx, sess, "couple")
		firstErr <- err
	}()
	<-started

	st, err := r.Bind(ctx, sess, "couple")
	if err != nil {
		t.Fatalf("second Bind: %v", err)
	}
	if !st.Loading {
		t.Fatalf("second Bind should see the pending fetch: %+v", st)
	}

	close(release)
	if err := <-firstErr; err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls.Load())
	}
	if got := r.State(); got.Data != "couple" || got.Loading {
		t.Fatalf("final state = %+v", got)
	}
}

func TestResourceNewFetchCancelsPrevious(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})

	r := NewResource("test", func(ctx context.Context, _ *session.Session, key string) (string, error) {
		if key == "first" {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return "", ctx.Err()
		}
		return key, nil
	}, nil)
	sess := testSession()

	go func() { _, _ = r.Bind(context.Background(), sess, "first") }()
	<-started

	if _, err := r.Bind(context.Background(), sess, "second"); err != nil {
		t.Fatalf("second Bind: %v", err)
	}
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("previous fetch was not cancelled")
	}
	if st := r.State(); st.Stale || st.Err != nil {
		t.Fatalf("cancelled fetch should not mark failure: %+v", st)
	}
}

func TestResourceInvalidationCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	r := NewResource("test", func(ctx context.Context, _ *session.Session, _ string) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}, nil)
	sess := testSession()

	done := make(chan error, 1)
	go func() {
		_, err := r.Bind(context.Background(), sess, "a")
		done <- err
	}()
	<-started
	sess.Invalidate()

	select {
	case err := <-done:
		if !errors.Is(err, core.ErrNotReady) {
			t.Fatalf("expected ErrNotReady after invalidation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("fetch not cancelled by session invalidation")
	}
	st := r.State()
	if st.Loading || st.Err != nil || st.Stale {
		t.Fatalf("invalidation should settle quietly: %+v", st)
	}
}

func TestResourceStalePolicy(t *testing.T) {
	boom := errors.New("boom")
	var fail atomic.Bool
	r := NewResource("test", func(context.Context, *session.Session, string) ([]string, error) {
		if fail.Load() {
			return nil, boom
		}
		return []string{"a", "b"}, nil
	}, nil)
	ctx := context.Background()
	sess := testSession()

	t.Run("first load failure leaves snapshot empty", func(t *testing.T) {
		fail.Store(true)
		st, err := r.Mount(ctx, sess, "k")
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if st.Loaded || st.Stale || st.Data != nil || !st.Failed() {
			t.Fatalf("unexpected state %+v", st)
		}
	})

	t.Run("success replaces snapshot", func(t *testing.T) {
		fail.Store(false)
		st, err := r.Reload(ctx, sess)
		if err != nil {
			t.Fatalf("Reload: %v", err)
		}
		if !st.Loaded || len(st.Data) != 2 || st.Err != nil || st.FetchedAt.IsZero() {
			t.Fatalf("unexpected state %+v", st)
		}
	})

	t.Run("later failure keeps last good data and marks stale", func(t *testing.T) {
		fail.Store(true)
		st, err := r.Reload(ctx, sess)
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if !st.Loaded || !st.Stale || len(st.Data) != 2 || st.Failed() {
			t.Fatalf("unexpected state %+v", st)
		}
	})

	t.Run("recovery clears stale", func(t *testing.T) {
		fail.Store(false)
		st, _ := r.Reload(ctx, sess)
		if st.Stale || st.Err != nil {
			t.Fatalf("stale not cleared: %+v", st)
		}
	})
}

func TestActionRejectsConcurrentRun(t *testing.T) {
	var a Action
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = a.Run(context.Background(), func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	if !a.InFlight() {
		t.Fatal("InFlight should be true during a run")
	}
	ran := false
	err := a.Run(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrBusy) || ran {
		t.Fatalf("second run: err=%v ran=%v", err, ran)
	}
	close(release)

	deadline := time.Now().Add(time.Second)
	for a.InFlight() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := a.Run(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("run after release: %v", err)
	}
}
