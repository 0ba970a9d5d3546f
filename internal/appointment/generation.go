package appointment

import (
	"context"
	"sync"
)

type generation struct {
	n      uint64
	cancel context.CancelFunc
}

// Generations hands out increasing tokens per key. Beginning a new
// generation cancels the context of the one before it, and only the latest
// token is current, so late results from superseded fetches can be dropped.
type Generations struct {
	mu      sync.Mutex
	next    uint64
	entries map[string]*generation
}

func NewGenerations() *Generations {
	return &Generations{entries: make(map[string]*generation)}
}

// Begin starts a new generation for key and returns its context and token.
func (g *Generations) Begin(parent context.Context, key string) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok {
		e = &generation{}
		g.entries[key] = e
	}
	if e.cancel != nil {
		e.cancel()
	}
	g.next++
	e.n = g.next
	e.cancel = cancel
	return ctx, e.n
}

// Current reports whether n is still the latest generation for key.
func (g *Generations) Current(key string, n uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	return ok && e.n == n
}

// End releases the context of generation n if it is still the latest.
func (g *Generations) End(key string, n uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.entries[key]; ok && e.n == n && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Forget cancels anything in flight for key and drops it.
func (g *Generations) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.entries[key]; ok {
		if e.cancel != nil {
			e.cancel()
		}
		delete(g.entries, key)
	}
}

func (g *Generations) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
