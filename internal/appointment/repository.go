package appointment

import (
	"context"
	"time"
)

// Repository is everything the schedule views need from the clinic API.
type Repository interface {
	DoctorAppointments(ctx context.Context) ([]Appointment, error)
	PatientAppointments(ctx context.Context) ([]Appointment, error)
	Doctors(ctx context.Context) ([]DirectoryEntry, error)
	CreateAppointment(ctx context.Context, patientID, doctorID int64, at time.Time) error
}
