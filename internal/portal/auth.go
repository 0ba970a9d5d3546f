package portal

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/apiclient"
	"github.com/hackgods/clinic-portal/internal/session"
)

const (
	msgLoginFailed    = "Login failed. Please try again."
	msgRegisterFailed = "Registration failed. Please try again."
	msgRegistered     = "Registration successful! You can now log in."
	msgMissingFields  = "Please fill in every field."
	msgBadRole        = "Please choose Patient or Psychologist."
)

type loginForm struct {
	Email   string
	Error   string
	Success string
}

type registerForm struct {
	FullName string
	Email    string
	Role     string
	Error    string
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).LoggedIn() {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.views.Render(w, http.StatusOK, "login", s.page(r, "Login", loginForm{}))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	form := loginForm{Email: strings.TrimSpace(r.PostForm.Get("email"))}
	password := r.PostForm.Get("password")
	if form.Email == "" || password == "" {
		form.Error = msgMissingFields
		s.views.Render(w, http.StatusUnprocessableEntity, "login", s.page(r, "Login", form))
		return
	}

	resp, err := s.api.Login(r.Context(), form.Email, password)
	if err != nil {
		if !errors.Is(err, apiclient.ErrUnauthorized) {
			s.logger.Warn("login failed", zap.Error(err), zap.String("request_id", GetRequestID(r)))
		}
		form.Error = detailOr(err, msgLoginFailed)
		s.views.Render(w, http.StatusOK, "login", s.page(r, "Login", form))
		return
	}

	sess := session.Session{
		Token:       resp.AccessToken,
		UserID:      resp.User.ID,
		Role:        session.Role(resp.User.Role),
		DisplayName: resp.User.FullName,
	}
	if _, err := s.sessions.Login(w, r, sess); err != nil {
		s.logger.Error("store session", zap.Error(err))
		form.Error = msgLoginFailed
		s.views.Render(w, http.StatusOK, "login", s.page(r, "Login", form))
		return
	}

	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	s.views.Render(w, http.StatusOK, "register", s.page(r, "Sign Up", registerForm{Role: string(session.RolePatient)}))
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	form := registerForm{
		FullName: strings.TrimSpace(r.PostForm.Get("full_name")),
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Role:     r.PostForm.Get("role"),
	}
	password := r.PostForm.Get("password")

	switch {
	case form.FullName == "" || form.Email == "" || password == "":
		form.Error = msgMissingFields
	case form.Role != string(session.RolePatient) && form.Role != string(session.RolePsychologist):
		form.Error = msgBadRole
	}
	if form.Error != "" {
		s.views.Render(w, http.StatusUnprocessableEntity, "register", s.page(r, "Sign Up", form))
		return
	}

	err := s.api.Register(r.Context(), apiclient.RegisterRequest{
		Email:    form.Email,
		Password: password,
		FullName: form.FullName,
		Role:     form.Role,
	})
	if err != nil {
		s.logger.Warn("register failed", zap.Error(err), zap.String("request_id", GetRequestID(r)))
		form.Error = detailOr(err, msgRegisterFailed)
		s.views.Render(w, http.StatusOK, "register", s.page(r, "Sign Up", form))
		return
	}

	s.views.Render(w, http.StatusOK, "login", s.page(r, "Login", loginForm{Success: msgRegistered}))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(w, r); err != nil {
		s.logger.Error("logout", zap.Error(err))
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	s.views.Render(w, http.StatusForbidden, "unauthorized", s.page(r, "Unauthorized", nil))
}

// detailOr is the API's own message for err, or fallback.
func detailOr(err error, fallback string) string {
	if d := apiclient.Detail(err); d != "" {
		return d
	}
	return fallback
}
