package session

import (
	"sync"
	"time"
)

type scopedItem[T any] struct {
	v    *T
	seen time.Time
}

// Scoped holds one value per session id, created on first use and dropped
// when the session is cleared. It backs view state that outlives a single
// request, such as a notes list.
type Scoped[T any] struct {
	mu    sync.Mutex
	items map[string]*scopedItem[T]
	newFn func() *T
	now   func() time.Time
}

func NewScoped[T any](newFn func() *T) *Scoped[T] {
	return &Scoped[T]{
		items: make(map[string]*scopedItem[T]),
		newFn: newFn,
		now:   time.Now,
	}
}

// Get returns the value for id, creating it when absent.
func (s *Scoped[T]) Get(id string) *T {
	s.mu.Lock()
	defer s.mu.Unlock()

	if it, ok := s.items[id]; ok {
		it.seen = s.now()
		return it.v
	}
	it := &scopedItem[T]{v: s.newFn(), seen: s.now()}
	s.items[id] = it
	return it.v
}

// Drop forgets the value for id.
func (s *Scoped[T]) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Sweep drops every value not used since cutoff and returns their ids.
// Sessions that simply expire never reach Drop, so this is what bounds the
// map.
func (s *Scoped[T]) Sweep(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dropped []string
	for id, it := range s.items {
		if it.seen.Before(cutoff) {
			delete(s.items, id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

func (s *Scoped[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
