package appointment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/apiclient"
)

// Role the API lists bookable clinicians under.
const doctorRole = "psychologist"

type apiRepository struct {
	client *apiclient.Client
	loc    *time.Location
	logger *zap.Logger
}

// NewAPIRepository reads and writes appointments through the clinic API.
// Timestamps are interpreted in loc.
func NewAPIRepository(client *apiclient.Client, loc *time.Location, logger *zap.Logger) Repository {
	if loc == nil {
		loc = time.Local
	}
	return &apiRepository{client: client, loc: loc, logger: logger}
}

func (r *apiRepository) DoctorAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.client.DoctorAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return r.convert(rows, func(a apiclient.Appointment) string { return a.PatientName }), nil
}

func (r *apiRepository) PatientAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.client.PatientAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return r.convert(rows, func(a apiclient.Appointment) string { return a.DoctorName }), nil
}

func (r *apiRepository) Doctors(ctx context.Context) ([]DirectoryEntry, error) {
	users, err := r.client.Users(ctx, doctorRole)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}

	out := make([]DirectoryEntry, 0, len(users))
	for _, u := range users {
		out = append(out, DirectoryEntry{ID: u.ID, FullName: u.FullName})
	}
	return out, nil
}

func (r *apiRepository) CreateAppointment(ctx context.Context, patientID, doctorID int64, at time.Time) error {
	err := r.client.CreateAppointment(ctx, apiclient.CreateAppointmentRequest{
		PatientID:       patientID,
		DoctorID:        doctorID,
		AppointmentTime: apiclient.FormatTime(at),
	})
	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (r *apiRepository) convert(rows []apiclient.Appointment, counterpart func(apiclient.Appointment) string) []Appointment {
	out := make([]Appointment, 0, len(rows))
	for _, row := range rows {
		at, err := apiclient.ParseTime(row.AppointmentTime, r.loc)
		if err != nil {
			r.logger.Debug("skipping appointment with bad timestamp",
				zap.Int64("appointment_id", row.ID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, Appointment{
			ID:           row.ID,
			At:           at,
			Counterpart:  counterpart(row),
			PatientEmail: row.PatientEmail,
		})
	}
	return out
}
