// Package portal is the browser-facing side of the clinic: server-rendered
// pages backed by the clinic REST API, with sessions kept server side.
package portal

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/apiclient"
	"github.com/hackgods/clinic-portal/internal/appointment"
	"github.com/hackgods/clinic-portal/internal/guard"
	"github.com/hackgods/clinic-portal/internal/notes"
	"github.com/hackgods/clinic-portal/internal/session"
)

type RouterConfig struct {
	API      *apiclient.Client
	Sessions *session.Manager
	Schedule *appointment.Service
	Limiter  *RateLimiter
	Logger   *zap.Logger
	Env      string
	Version  string
}

// Server holds the handler dependencies and the per-session view state.
type Server struct {
	api      *apiclient.Client
	sessions *session.Manager
	schedule *appointment.Service
	panels   *session.Scoped[notes.Panel]
	flashes  *session.Scoped[flash]
	views    *Renderer
	logger   *zap.Logger
	now      func() time.Time
}

func NewServer(cfg RouterConfig) (*Server, error) {
	views, err := NewRenderer(cfg.Logger)
	if err != nil {
		return nil, err
	}

	loc := cfg.Schedule.Location()
	s := &Server{
		api:      cfg.API,
		sessions: cfg.Sessions,
		schedule: cfg.Schedule,
		panels: session.NewScoped(func() *notes.Panel {
			return notes.NewPanel(cfg.API, loc, cfg.Logger)
		}),
		flashes: session.NewScoped(func() *flash { return &flash{} }),
		views:   views,
		logger:  cfg.Logger,
		now:     time.Now,
	}

	// View state goes with the session.
	cfg.Sessions.OnClear(s.panels.Drop)
	cfg.Sessions.OnClear(s.flashes.Drop)
	cfg.Sessions.OnClear(cfg.Schedule.Forget)

	return s, nil
}

// SweepViewState drops view state of sessions idle for longer than idle,
// every interval, until ctx ends.
func (s *Server) SweepViewState(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		s.logger.Error("view state sweep disabled", zap.Duration("interval", interval), zap.Duration("idle", idle))
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(s.now().Add(-idle))
		}
	}
}

func (s *Server) sweep(cutoff time.Time) {
	dropped := s.flashes.Sweep(cutoff)
	dropped = append(dropped, s.panels.Sweep(cutoff)...)
	for _, id := range dropped {
		s.schedule.Forget(id)
	}
	if len(dropped) > 0 {
		s.logger.Debug("dropped idle view state", zap.Int("count", len(dropped)))
	}
}

func NewRouter(cfg RouterConfig) (http.Handler, error) {
	s, err := NewServer(cfg)
	if err != nil {
		return nil, err
	}
	return s.Routes(cfg), nil
}

// Routes builds the portal's handler tree around s.
func (s *Server) Routes(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.Sessions.Store(), cfg.API, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(cfg.Sessions.Middleware)

		r.Get("/", s.home)
		r.Get("/login", s.loginPage)
		r.Get("/register", s.registerPage)
		r.Get("/unauthorized", s.unauthorized)
		r.Post("/logout", s.logout)

		r.Group(func(r chi.Router) {
			if cfg.Limiter != nil {
				r.Use(cfg.Limiter.Middleware)
			}
			r.Post("/login", s.login)
			r.Post("/register", s.register)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Require(guard.AnyRole))
			r.Get("/dashboard", s.dashboard)
			r.Get("/profile", s.profile)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Require(guard.Patient))
			r.Get("/appointments", s.appointments)
			r.Get("/schedule/patient", s.patientSchedule)
			r.Post("/schedule/patient/book", s.book)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Require(guard.Psychologist))
			r.Get("/schedule/doctor", s.doctorSchedule)
			r.Get("/schedule/doctor/export.ics", s.exportSchedule)
			r.Get("/notes", s.notesPage)
			r.Post("/notes", s.addNote)
			r.Post("/notes/{id}/update", s.updateNote)
			r.Post("/notes/{id}/delete", s.deleteNote)
		})
	})

	return r
}
