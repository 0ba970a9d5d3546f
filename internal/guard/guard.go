// Package guard gates portal routes on the signed-in session's role.
package guard

import (
	"net/http"

	"github.com/hackgods/clinic-portal/internal/session"
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// Predicate decides whether a signed-in session may see a route.
type Predicate func(s session.Session) bool

// AnyRole admits every signed-in user.
func AnyRole(session.Session) bool { return true }

func Patient(s session.Session) bool { return s.IsPatient() }

// Psychologist admits doctors and psychologists.
func Psychologist(s session.Session) bool { return s.IsPsychologist() }

type Decision int

const (
	Allow Decision = iota
	ToLogin
	ToUnauthorized
)

// Decide resolves cur against allow.
func Decide(cur session.Current, allow Predicate) Decision {
	s, ok := cur.Session.Get()
	if !ok {
		return ToLogin
	}
	if allow != nil && !allow(s) {
		return ToUnauthorized
	}
	return Allow
}

// Require is middleware that redirects to the login page without a
// session and to the unauthorized page when allow rejects the session.
func Require(allow Predicate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch Decide(session.FromContext(r.Context()), allow) {
			case ToLogin:
				http.Redirect(w, r, LoginPath, http.StatusFound)
			case ToUnauthorized:
				http.Redirect(w, r, UnauthorizedPath, http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
