package appointment

import (
	"time"
)

// Appointment is a booked slot as the portal sees it. At is already in the
// portal's slot location; Counterpart is the patient name in doctor
// listings and the doctor name in patient listings.
type Appointment struct {
	ID           int64
	At           time.Time
	Counterpart  string
	PatientEmail string
}

// DirectoryEntry is one selectable doctor or patient.
type DirectoryEntry struct {
	ID       int64
	FullName string
}

// BookingView is what the patient booking page renders from.
type BookingView struct {
	Doctors      []DirectoryEntry
	Appointments []Appointment
}
