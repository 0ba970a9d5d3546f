package session

import (
	"context"
	"sync"
	"time"

	"github.com/samber/mo"
)

// Store persists sessions by id. Load returns None for unknown or expired ids.
type Store interface {
	Load(ctx context.Context, id string) (mo.Option[Session], error)
	Save(ctx context.Context, id string, s Session, ttl time.Duration) error
	Clear(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type memoryEntry struct {
	fields    map[string]string
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Sessions are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (mo.Option[Session], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return mo.None[Session](), nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, id)
		return mo.None[Session](), nil
	}

	s, err := FromFields(e.fields)
	if err != nil {
		return mo.None[Session](), err
	}
	return mo.Some(s), nil
}

func (m *MemoryStore) Save(_ context.Context, id string, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.entries[id] = memoryEntry{fields: s.Fields(), expiresAt: exp}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len reports how many sessions are held, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
