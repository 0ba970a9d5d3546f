package portal

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/appointment"
	"github.com/hackgods/clinic-portal/internal/calendar"
	"github.com/hackgods/clinic-portal/internal/session"
)

const (
	msgBooked          = "Appointment set successfully!"
	msgBookFailed      = "Failed to set appointment. Please try again."
	msgMissingPatient  = "Patient ID not found. Please log in again."
	msgIncomplete      = "Please choose a doctor and an available timeslot."
	msgSlotTaken       = "That timeslot is no longer available."
	msgInFlight        = "Your booking is already being submitted."
	msgSlotsLoadFailed = "Could not load timeslots."
)

type calendarData struct {
	Base   string
	Picker calendar.Picker
}

type doctorScheduleData struct {
	Calendar calendarData
	HasDay   bool
	Day      time.Time
	Slots    []appointment.SlotState
}

type patientScheduleData struct {
	Calendar calendarData
	HasDay   bool
	Day      time.Time
	Banner   string
	Doctors  []appointment.DirectoryEntry
	DoctorID int64
	Slots    []appointment.SlotState
	Slot     string
}

func (s *Server) picker(r *http.Request) calendar.Picker {
	q := r.URL.Query()
	return calendar.FromQuery(q.Get("month"), q.Get("date"), s.now(), s.schedule.Location())
}

// superseded answers a request whose result a newer one from the same
// session replaced. 204 leaves the browser on whatever it shows.
func (s *Server) superseded(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("dropping superseded response", zap.String("path", r.URL.Path), zap.String("request_id", GetRequestID(r)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) doctorSchedule(w http.ResponseWriter, r *http.Request) {
	cur := session.FromContext(r.Context())
	p := s.picker(r)

	data := doctorScheduleData{
		Calendar: calendarData{Base: "/schedule/doctor", Picker: p},
	}

	if day, ok := p.Selected().Get(); ok {
		slots, err := s.schedule.DoctorDay(r.Context(), cur.ID, day)
		switch {
		case errors.Is(err, appointment.ErrStale):
			s.superseded(w, r)
			return
		case err != nil:
			s.logger.Error("resolve doctor day", zap.Error(err))
		}
		data.HasDay = true
		data.Day = day
		data.Slots = slots
	}

	s.views.Render(w, http.StatusOK, "doctor_schedule", s.page(r, "My Schedule", data))
}

func (s *Server) exportSchedule(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context()).Session.MustGet()
	month := s.picker(r).Month()

	appts, err := s.schedule.DoctorMonth(r.Context(), month)
	if err != nil {
		s.logger.Warn("export schedule", zap.Error(err), zap.String("request_id", GetRequestID(r)))
		http.Error(w, msgAppointmentsFailed, http.StatusBadGateway)
		return
	}

	name := fmt.Sprintf("%s appointments %s", sess.DisplayName, month.Format("January 2006"))
	body, err := appointment.ExportICS(appts, name, s.now())
	if errors.Is(err, appointment.ErrNothingToExport) {
		http.Error(w, "No appointments in "+month.Format("January 2006")+".", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("encode calendar", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="appointments-%s.ics"`, month.Format(calendar.MonthLayout)))
	_, _ = w.Write(body)
}

func (s *Server) patientSchedule(w http.ResponseWriter, r *http.Request) {
	cur := session.FromContext(r.Context())
	q := r.URL.Query()
	p := s.picker(r)

	data := patientScheduleData{
		Calendar: calendarData{Base: "/schedule/patient", Picker: p},
	}

	day, ok := p.Selected().Get()
	if !ok {
		s.views.Render(w, http.StatusOK, "patient_schedule", s.page(r, "Book", data))
		return
	}
	data.HasDay = true
	data.Day = day

	view, err := s.schedule.LoadBooking(r.Context(), cur.ID)
	switch {
	case errors.Is(err, appointment.ErrStale):
		s.superseded(w, r)
		return
	case err != nil:
		s.logger.Warn("load booking view", zap.Error(err), zap.String("request_id", GetRequestID(r)))
		data.Banner = msgSlotsLoadFailed
	}
	data.Doctors = view.Doctors

	if id, err := strconv.ParseInt(q.Get("doctor"), 10, 64); err == nil && id > 0 {
		data.DoctorID = id
		slots, err := appointment.Resolve(day, appointment.Slots, view.Appointments)
		if err != nil {
			s.logger.Error("resolve slots", zap.Error(err))
		}
		data.Slots = slots

		// A taken or unknown slot cannot stay selected.
		want := q.Get("slot")
		for _, st := range slots {
			if st.Label == want && !st.Taken {
				data.Slot = want
			}
		}
	}

	s.views.Render(w, http.StatusOK, "patient_schedule", s.page(r, "Book", data))
}

func (s *Server) book(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	cur := session.FromContext(r.Context())
	sess := cur.Session.MustGet()
	loc := s.schedule.Location()

	req := appointment.BookingRequest{
		PatientID: sess.UserID,
		Slot:      r.PostForm.Get("slot"),
	}
	if id, err := strconv.ParseInt(r.PostForm.Get("doctor"), 10, 64); err == nil {
		req.DoctorID = id
	}
	if d, err := calendar.ParseDate(r.PostForm.Get("date"), loc); err == nil {
		req.Day = d
	}

	back := url.Values{}
	if !req.Day.IsZero() {
		back.Set("month", req.Day.Format(calendar.MonthLayout))
		back.Set("date", req.Day.Format(calendar.DateLayout))
	}

	err := s.schedule.Book(r.Context(), cur.ID, req)
	if err != nil {
		s.logger.Warn("booking failed", zap.Error(err), zap.String("request_id", GetRequestID(r)))
		s.flashFor(r).setAlert(bookingAlert(err))

		// Keep the selection so the patient can retry.
		if req.DoctorID != 0 {
			back.Set("doctor", strconv.FormatInt(req.DoctorID, 10))
		}
		if req.Slot != "" {
			back.Set("slot", req.Slot)
		}
	} else {
		s.flashFor(r).setAlert(msgBooked)
	}

	http.Redirect(w, r, "/schedule/patient?"+back.Encode(), http.StatusSeeOther)
}

func bookingAlert(err error) string {
	switch {
	case errors.Is(err, appointment.ErrMissingPatient):
		return msgMissingPatient
	case errors.Is(err, appointment.ErrIncompleteSelection), errors.Is(err, appointment.ErrBadSlot):
		return msgIncomplete
	case errors.Is(err, appointment.ErrSlotTaken):
		return msgSlotTaken
	case errors.Is(err, appointment.ErrSubmissionInFlight):
		return msgInFlight
	default:
		return msgBookFailed
	}
}
