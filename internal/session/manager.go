package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/apiclient"
)

const CookieName = "clinic_session"

type contextKey string

const currentKey contextKey = "session"

// Current is the session attached to a request. ID is the cookie value and
// may be set even when Session is None (unknown or expired id).
type Current struct {
	ID      string
	Session mo.Option[Session]
}

func (c Current) LoggedIn() bool {
	return c.Session.IsPresent()
}

// FromContext returns the session the middleware attached, or an empty one.
func FromContext(ctx context.Context) Current {
	if cur, ok := ctx.Value(currentKey).(Current); ok {
		return cur
	}
	return Current{}
}

// WithCurrent attaches cur to ctx. The middleware does this for every
// request; tests use it directly.
func WithCurrent(ctx context.Context, cur Current) context.Context {
	if s, ok := cur.Session.Get(); ok {
		ctx = apiclient.WithToken(ctx, s.Token)
	}
	return context.WithValue(ctx, currentKey, cur)
}

// Manager is the single read/write boundary for sessions: it resolves the
// cookie on the way in and owns login and logout.
type Manager struct {
	store  Store
	ttl    time.Duration
	secure bool
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	onClear []func(id string)
}

func NewManager(store Store, ttl time.Duration, secure bool, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		ttl:    ttl,
		secure: secure,
		logger: logger,
		now:    time.Now,
	}
}

// OnClear registers fn to run with the session id whenever a session is
// cleared, so per-session view state goes with it.
func (m *Manager) OnClear(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClear = append(m.onClear, fn)
}

func (m *Manager) Store() Store {
	return m.store
}

// Middleware resolves the session cookie and attaches the result to the
// request context, along with the bearer token for API calls.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cur := Current{}

		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			cur.ID = c.Value
			loaded, err := m.store.Load(ctx, c.Value)
			switch {
			case err != nil:
				m.logger.Warn("session load failed", zap.Error(err))
			case loaded.IsPresent():
				s := loaded.MustGet()
				if TokenExpired(s.Token, m.now()) {
					m.logger.Info("session token expired", zap.Int64("user_id", s.UserID))
					m.clear(ctx, cur.ID)
				} else {
					cur.Session = loaded
				}
			}
		}

		next.ServeHTTP(w, r.WithContext(WithCurrent(ctx, cur)))
	})
}

// Login stores s under a fresh id and sets the cookie. Any session the
// request already carried is cleared first.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, s Session) (string, error) {
	ctx := r.Context()

	if prev := FromContext(ctx); prev.ID != "" {
		m.clear(ctx, prev.ID)
	}

	id := uuid.NewString()
	if err := m.store.Save(ctx, id, s, m.ttl); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	http.SetCookie(w, m.cookie(id, m.ttl))
	m.logger.Info("session started", zap.Int64("user_id", s.UserID), zap.String("role", string(s.Role)))
	return id, nil
}

// Logout clears every persisted field of the current session, drops its
// view state and expires the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	cur := FromContext(r.Context())
	http.SetCookie(w, m.cookie("", -1))

	if cur.ID == "" {
		return nil
	}
	// View state goes whether or not the store forgot the session.
	err := m.store.Clear(r.Context(), cur.ID)
	m.runOnClear(cur.ID)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (m *Manager) clear(ctx context.Context, id string) {
	if err := m.store.Clear(ctx, id); err != nil {
		m.logger.Warn("session clear failed", zap.Error(err))
	}
	m.runOnClear(id)
}

func (m *Manager) runOnClear(id string) {
	m.mu.Lock()
	hooks := append([]func(string){}, m.onClear...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(id)
	}
}

func (m *Manager) cookie(value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	switch {
	case ttl < 0:
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	case ttl > 0:
		c.MaxAge = int(ttl / time.Second)
	}
	return c
}
