package portal

import (
	"net/http"
	"sync"

	"github.com/hackgods/clinic-portal/internal/session"
)

// flash carries one alert and one notice across a redirect.
type flash struct {
	mu     sync.Mutex
	alert  string
	notice string
}

func (f *flash) setAlert(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alert = msg
}

func (f *flash) setNotice(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notice = msg
}

func (f *flash) take() (alert, notice string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, notice = f.alert, f.notice
	f.alert, f.notice = "", ""
	return alert, notice
}

// page starts the template data for a request, consuming its flash.
func (s *Server) page(r *http.Request, title string, data any) page {
	cur := session.FromContext(r.Context())
	p := page{Title: title, Data: data}
	if sess, ok := cur.Session.Get(); ok {
		p.LoggedIn = true
		p.Session = sess
		p.Alert, p.Notice = s.flashes.Get(cur.ID).take()
	}
	return p
}

func (s *Server) flashFor(r *http.Request) *flash {
	return s.flashes.Get(session.FromContext(r.Context()).ID)
}
