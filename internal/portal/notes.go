package portal

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/apiclient"
	"github.com/hackgods/clinic-portal/internal/appointment"
	"github.com/hackgods/clinic-portal/internal/notes"
	"github.com/hackgods/clinic-portal/internal/session"
)

type notesData struct {
	View     notes.View
	Patients []appointment.DirectoryEntry
	BackURL  string
}

type confirmDeleteData struct {
	Note    notes.Note
	BackURL string
}

// notesURL is the notes page for q. It always carries a query string so
// templates can append parameters.
func notesURL(q notes.Query) string {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.PatientID != 0 {
		v.Set("patient_id", strconv.FormatInt(q.PatientID, 10))
	}
	return "/notes?" + v.Encode()
}

// loadNotes loads the session's panel for the request's query and collects
// what the panel template needs. The only error returned is notes.ErrStale,
// when a newer load from the same session replaced this one.
func (s *Server) loadNotes(r *http.Request, sessionID string) (notesData, error) {
	q := r.URL.Query()
	query := notes.Query{Search: strings.TrimSpace(q.Get("search"))}
	if id, err := strconv.ParseInt(q.Get("patient_id"), 10, 64); err == nil {
		query.PatientID = id
	}

	panel := s.panels.Get(sessionID)
	if err := panel.Load(r.Context(), query); errors.Is(err, notes.ErrStale) {
		return notesData{}, err
	} else if err != nil {
		s.logger.Warn("load notes", zap.Error(err), zap.String("request_id", GetRequestID(r)))
	}

	editID, _ := strconv.ParseInt(q.Get("edit"), 10, 64)
	if err := panel.Edit(editID); err != nil {
		s.logger.Debug("edit target not listed", zap.Int64("note_id", editID))
	}

	users, err := s.api.Users(r.Context(), string(session.RolePatient))
	if err != nil && !errors.Is(err, apiclient.ErrNotFound) {
		s.logger.Warn("list patients", zap.Error(err))
	}
	patients := make([]appointment.DirectoryEntry, 0, len(users))
	for _, u := range users {
		patients = append(patients, appointment.DirectoryEntry{ID: u.ID, FullName: u.FullName})
	}

	view := panel.View()
	return notesData{View: view, Patients: patients, BackURL: notesURL(view.Query)}, nil
}

func (s *Server) notesPage(w http.ResponseWriter, r *http.Request) {
	cur := session.FromContext(r.Context())
	data, err := s.loadNotes(r, cur.ID)
	if err != nil {
		s.superseded(w, r)
		return
	}

	s.views.Render(w, http.StatusOK, "notes", withPanelMessages(s.page(r, "Clinical Notes", data), data.View))
}

// withPanelMessages shows the panel's alert and notice through the page's
// modal and banner.
func withPanelMessages(p page, v notes.View) page {
	if v.Alert != "" {
		p.Alert = v.Alert
	}
	if v.Notice != "" {
		p.Notice = v.Notice
	}
	return p
}

func noteID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) addNote(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	panel := s.panels.Get(session.FromContext(r.Context()).ID)

	// The patient comes with the form, never from whichever list loaded last.
	patientID, _ := strconv.ParseInt(r.PostForm.Get("patient_id"), 10, 64)
	if err := panel.Add(r.Context(), patientID, r.PostForm.Get("content")); err != nil {
		s.logger.Warn("add note", zap.Error(err), zap.String("request_id", GetRequestID(r)))
	}
	http.Redirect(w, r, notesURL(panel.Query()), http.StatusSeeOther)
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	panel := s.panels.Get(session.FromContext(r.Context()).ID)

	if err := panel.Update(r.Context(), id, r.PostForm.Get("content")); err != nil {
		s.logger.Warn("update note", zap.Int64("note_id", id), zap.Error(err))
	}
	http.Redirect(w, r, notesURL(panel.Query()), http.StatusSeeOther)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	panel := s.panels.Get(session.FromContext(r.Context()).ID)
	back := notesURL(panel.Query())

	err := panel.Delete(r.Context(), id, r.PostForm.Get("confirm") == "yes")
	switch {
	case errors.Is(err, notes.ErrNotConfirmed):
		n, found := panel.Find(id)
		if !found {
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		s.views.Render(w, http.StatusOK, "confirm_delete", s.page(r, "Delete note", confirmDeleteData{Note: n, BackURL: back}))
		return
	case err != nil:
		s.logger.Warn("delete note", zap.Int64("note_id", id), zap.Error(err))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}
