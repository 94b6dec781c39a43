package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gastos/internal/core"
	ports "gastos/internal/sheets"
)

var _ ports.ActivityWriter = (*Store)(nil)

// Store keeps mirrored activity in memory. Used in development and tests.
type Store struct {
	mu    sync.Mutex
	items []core.Activity
	seen  map[string]string
}

func New() *Store {
	return &Store{seen: map[string]string{}}
}

// Append stores the activity and returns a synthetic row reference.
// Appending the same id twice returns the original reference.
func (s *Store) Append(_ context.Context, a core.Activity) (string, error) {
	if a.ID == "" {
		return "", errors.New("activity id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.seen[a.ID]; ok {
		return ref, nil
	}
	s.items = append(s.items, a)
	ref := fmt.Sprintf("mem:%d", len(s.items))
	s.seen[a.ID] = ref
	return ref, nil
}

// Items returns a copy of everything appended so far.
func (s *Store) Items() []core.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Activity(nil), s.items...)
}
