package portal

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/appointment"
	"github.com/hackgods/clinic-portal/internal/session"
)

const msgAppointmentsFailed = "Failed to load appointments."

type appointmentsData struct {
	Items []appointment.Appointment
	Error string
}

type profileData struct {
	Notes        *notesData
	Appointments appointmentsData
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	if raw, err := s.api.Hello(r.Context()); err != nil {
		s.logger.Warn("hello failed", zap.Error(err))
	} else {
		s.logger.Debug("hello", zap.ByteString("response", raw))
	}
	s.views.Render(w, http.StatusOK, "dashboard", s.page(r, "Dashboard", nil))
}

// profile is one view for both roles: psychologists get the notes panel,
// patients their appointment list, anyone else just the basics.
func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	cur := session.FromContext(r.Context())
	sess := cur.Session.MustGet()

	var data profileData
	switch {
	case sess.IsPsychologist():
		nd, err := s.loadNotes(r, cur.ID)
		if err != nil {
			s.superseded(w, r)
			return
		}
		data.Notes = &nd
		s.views.Render(w, http.StatusOK, "profile", withPanelMessages(s.page(r, "Profile", data), nd.View))
	case sess.IsPatient():
		data.Appointments = s.patientAppointments(r)
		s.views.Render(w, http.StatusOK, "profile", s.page(r, "Profile", data))
	default:
		s.views.Render(w, http.StatusOK, "profile", s.page(r, "Profile", nil))
	}
}

func (s *Server) appointments(w http.ResponseWriter, r *http.Request) {
	s.views.Render(w, http.StatusOK, "appointments", s.page(r, "My Appointments", s.patientAppointments(r)))
}

func (s *Server) patientAppointments(r *http.Request) appointmentsData {
	items, err := s.schedule.PatientAppointments(r.Context())
	if err != nil {
		s.logger.Warn("list patient appointments", zap.Error(err), zap.String("request_id", GetRequestID(r)))
		return appointmentsData{Error: msgAppointmentsFailed}
	}
	return appointmentsData{Items: items}
}
