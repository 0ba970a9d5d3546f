package apiclient

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        User   `json:"user"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Appointment is one row of an appointment listing. Doctor listings fill
// PatientName, patient listings fill DoctorName.
type Appointment struct {
	ID              int64  `json:"id"`
	AppointmentTime string `json:"appointment_time"`
	PatientName     string `json:"patient_name,omitempty"`
	PatientEmail    string `json:"patient_email,omitempty"`
	DoctorName      string `json:"doctor_name,omitempty"`
}

type CreateAppointmentRequest struct {
	PatientID       int64  `json:"patient_id"`
	DoctorID        int64  `json:"doctor_id"`
	AppointmentTime string `json:"appointment_time"`
}

type Note struct {
	ID         int64  `json:"id"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
	AuthorName string `json:"author_name"`
	PatientID  int64  `json:"patient_id"`
}

// NoteQuery filters a notes listing. Zero values are left off the query.
type NoteQuery struct {
	PatientID int64
	Search    string
	Limit     int
}

type CreateNoteRequest struct {
	PatientID      int64  `json:"patient_id,omitempty"`
	Content        string `json:"content"`
	IsConfidential bool   `json:"is_confidential"`
}

type UpdateNoteRequest struct {
	Content string `json:"content"`
}

// timestamp layouts the API has been seen to emit, most specific first
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTime reads an API timestamp. Values with an offset are converted to
// loc; values without one are taken as wall time in loc.
func ParseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.Local
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timestampLayouts[1:] {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

// FormatTime renders t the way the API expects timestamps on create:
// UTC, millisecond precision, Z suffix.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
