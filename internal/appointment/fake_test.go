package appointment

import (
	"context"
	"sync"
	"time"
)

type created struct {
	PatientID int64
	DoctorID  int64
	At        time.Time
}

type fakeRepo struct {
	mu sync.Mutex

	doctorAppts  func(ctx context.Context) ([]Appointment, error)
	patientAppts func(ctx context.Context) ([]Appointment, error)
	doctors      func(ctx context.Context) ([]DirectoryEntry, error)
	createErr    error
	created      []created
}

func (f *fakeRepo) DoctorAppointments(ctx context.Context) ([]Appointment, error) {
	if f.doctorAppts == nil {
		return nil, nil
	}
	return f.doctorAppts(ctx)
}

func (f *fakeRepo) PatientAppointments(ctx context.Context) ([]Appointment, error) {
	if f.patientAppts == nil {
		return nil, nil
	}
	return f.patientAppts(ctx)
}

func (f *fakeRepo) Doctors(ctx context.Context) ([]DirectoryEntry, error) {
	if f.doctors == nil {
		return nil, nil
	}
	return f.doctors(ctx)
}

func (f *fakeRepo) CreateAppointment(_ context.Context, patientID, doctorID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, created{patientID, doctorID, at})
	return nil
}
