package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/apiclient"
	redisclient "github.com/hackgods/clinic-portal/internal/redis"
)

var utc1 = time.FixedZone("UTC+1", 3600)

func newTestService(repo Repository) *Service {
	return NewService(repo, redisclient.NewLocalLocker(time.Second), utc1, zap.NewNop())
}

func TestDoctorDay(t *testing.T) {
	repo := &fakeRepo{
		doctorAppts: func(context.Context) ([]Appointment, error) {
			return []Appointment{
				{ID: 1, At: time.Date(2026, 1, 15, 7, 0, 0, 0, utc1), Counterpart: "Jane"},
				{ID: 2, At: time.Date(2026, 1, 16, 9, 0, 0, 0, utc1), Counterpart: "John"},
			}, nil
		},
	}
	svc := newTestService(repo)

	states, err := svc.DoctorDay(context.Background(), "sid", time.Date(2026, 1, 15, 0, 0, 0, 0, utc1))
	require.NoError(t, err)
	assert.Equal(t, "Jane", states[0].Occupant)
	assert.Equal(t, NoOccupant, states[1].Occupant)
}

func TestDoctorDayFetchFailureIsEmptyGrid(t *testing.T) {
	repo := &fakeRepo{
		doctorAppts: func(context.Context) ([]Appointment, error) {
			return nil, errors.New("boom")
		},
	}
	svc := newTestService(repo)

	states, err := svc.DoctorDay(context.Background(), "sid", time.Now())
	require.NoError(t, err)
	require.Len(t, states, len(Slots))
	for _, st := range states {
		assert.False(t, st.Taken)
	}
}

func TestDoctorDayStaleResultDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	repo := &fakeRepo{
		doctorAppts: func(ctx context.Context) ([]Appointment, error) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()

			if first {
				close(started)
				<-release
				return []Appointment{{At: time.Date(2026, 1, 15, 7, 0, 0, 0, utc1), Counterpart: "Old"}}, ctx.Err()
			}
			return []Appointment{{At: time.Date(2026, 1, 16, 7, 0, 0, 0, utc1), Counterpart: "New"}}, nil
		},
	}
	svc := newTestService(repo)

	var staleErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, staleErr = svc.DoctorDay(context.Background(), "sid", time.Date(2026, 1, 15, 0, 0, 0, 0, utc1))
	}()

	<-started
	states, err := svc.DoctorDay(context.Background(), "sid", time.Date(2026, 1, 16, 0, 0, 0, 0, utc1))
	require.NoError(t, err)
	assert.Equal(t, "New", states[0].Occupant)

	close(release)
	<-done
	assert.ErrorIs(t, staleErr, ErrStale)
}

func TestDoctorMonth(t *testing.T) {
	repo := &fakeRepo{
		doctorAppts: func(context.Context) ([]Appointment, error) {
			return []Appointment{
				{ID: 3, At: time.Date(2026, 1, 20, 9, 0, 0, 0, utc1)},
				{ID: 1, At: time.Date(2026, 1, 15, 7, 0, 0, 0, utc1)},
				{ID: 2, At: time.Date(2026, 2, 1, 7, 0, 0, 0, utc1)},
			}, nil
		},
	}
	svc := newTestService(repo)

	got, err := svc.DoctorMonth(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, utc1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestLoadBooking(t *testing.T) {
	repo := &fakeRepo{
		doctors: func(context.Context) ([]DirectoryEntry, error) {
			return []DirectoryEntry{{ID: 5, FullName: "Dr. Grey"}}, nil
		},
		patientAppts: func(context.Context) ([]Appointment, error) {
			return []Appointment{{ID: 9, Counterpart: "Dr. Grey"}}, nil
		},
	}
	svc := newTestService(repo)

	view, err := svc.LoadBooking(context.Background(), "sid")
	require.NoError(t, err)
	assert.Equal(t, []DirectoryEntry{{ID: 5, FullName: "Dr. Grey"}}, view.Doctors)
	assert.Len(t, view.Appointments, 1)
}

func TestLoadBookingPartialFailure(t *testing.T) {
	boom := &apiclient.Error{StatusCode: 500}
	doctors := func(context.Context) ([]DirectoryEntry, error) {
		return []DirectoryEntry{{ID: 5, FullName: "Dr. Grey"}}, nil
	}
	appts := func(context.Context) ([]Appointment, error) {
		return []Appointment{{ID: 9, Counterpart: "Dr. Grey"}}, nil
	}

	t.Run("directory down keeps appointments", func(t *testing.T) {
		repo := &fakeRepo{
			doctors:      func(context.Context) ([]DirectoryEntry, error) { return nil, boom },
			patientAppts: appts,
		}
		view, err := newTestService(repo).LoadBooking(context.Background(), "sid")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrStale)
		assert.Empty(t, view.Doctors)
		assert.Len(t, view.Appointments, 1)
	})

	t.Run("appointments down keeps directory", func(t *testing.T) {
		repo := &fakeRepo{
			doctors:      doctors,
			patientAppts: func(context.Context) ([]Appointment, error) { return nil, boom },
		}
		view, err := newTestService(repo).LoadBooking(context.Background(), "sid")
		assert.ErrorIs(t, err, boom)
		assert.Len(t, view.Doctors, 1)
		assert.Empty(t, view.Appointments)
	})
}

func TestLoadBookingStaleResultDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	repo := &fakeRepo{
		doctors: func(context.Context) ([]DirectoryEntry, error) {
			return []DirectoryEntry{{ID: 5, FullName: "Dr. Grey"}}, nil
		},
		patientAppts: func(ctx context.Context) ([]Appointment, error) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()

			if first {
				close(started)
				<-release
				return []Appointment{{ID: 1, Counterpart: "Old"}}, nil
			}
			return []Appointment{{ID: 2, Counterpart: "New"}}, nil
		},
	}
	svc := newTestService(repo)

	var staleErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, staleErr = svc.LoadBooking(context.Background(), "sid")
	}()

	<-started
	view, err := svc.LoadBooking(context.Background(), "sid")
	require.NoError(t, err)
	require.Len(t, view.Appointments, 1)
	assert.Equal(t, "New", view.Appointments[0].Counterpart)

	close(release)
	<-done
	assert.ErrorIs(t, staleErr, ErrStale)
}

func TestBookValidation(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, utc1)

	tests := []struct {
		name string
		req  BookingRequest
		want error
	}{
		{"no patient", BookingRequest{DoctorID: 1, Day: day, Slot: Slots[0]}, ErrMissingPatient},
		{"no doctor", BookingRequest{PatientID: 1, Day: day, Slot: Slots[0]}, ErrIncompleteSelection},
		{"no day", BookingRequest{PatientID: 1, DoctorID: 1, Slot: Slots[0]}, ErrIncompleteSelection},
		{"no slot", BookingRequest{PatientID: 1, DoctorID: 1, Day: day}, ErrIncompleteSelection},
		{"unknown slot", BookingRequest{PatientID: 1, DoctorID: 1, Day: day, Slot: "08:00 - 10:00"}, ErrBadSlot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.Book(context.Background(), "sid", tt.req), tt.want)
		})
	}
}

func TestBook(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)

	err := svc.Book(context.Background(), "sid", BookingRequest{
		PatientID: 7,
		DoctorID:  3,
		Day:       time.Date(2026, 1, 15, 18, 30, 0, 0, utc1),
		Slot:      "09:00 - 11:00",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)

	c := repo.created[0]
	assert.Equal(t, int64(7), c.PatientID)
	assert.Equal(t, int64(3), c.DoctorID)
	assert.Equal(t, "2026-01-15T08:00:00.000Z", apiclient.FormatTime(c.At))
}

func TestBookTakenSlot(t *testing.T) {
	repo := &fakeRepo{
		patientAppts: func(context.Context) ([]Appointment, error) {
			return []Appointment{{At: time.Date(2026, 1, 15, 9, 0, 0, 0, utc1)}}, nil
		},
	}
	svc := newTestService(repo)

	err := svc.Book(context.Background(), "sid", BookingRequest{
		PatientID: 7, DoctorID: 3, Day: time.Date(2026, 1, 15, 0, 0, 0, 0, utc1), Slot: "09:00 - 11:00",
	})
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Empty(t, repo.created)
}

func TestBookUpstreamFailure(t *testing.T) {
	repo := &fakeRepo{createErr: &apiclient.Error{StatusCode: 409, Detail: "Slot already booked"}}
	svc := newTestService(repo)

	err := svc.Book(context.Background(), "sid", BookingRequest{
		PatientID: 7, DoctorID: 3, Day: time.Date(2026, 1, 15, 0, 0, 0, 0, utc1), Slot: Slots[2],
	})
	assert.ErrorIs(t, err, ErrBookingFailed)
	assert.ErrorIs(t, err, apiclient.ErrConflict)
	assert.Equal(t, "Slot already booked", apiclient.Detail(err))
}

func TestBookSubmissionInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	repo := &fakeRepo{
		patientAppts: func(context.Context) ([]Appointment, error) {
			once.Do(func() {
				close(entered)
				<-release
			})
			return nil, nil
		},
	}
	svc := newTestService(repo)
	req := BookingRequest{PatientID: 7, DoctorID: 3, Day: time.Date(2026, 1, 15, 0, 0, 0, 0, utc1), Slot: Slots[0]}

	done := make(chan error)
	go func() { done <- svc.Book(context.Background(), "sid", req) }()

	<-entered
	assert.ErrorIs(t, svc.Book(context.Background(), "sid", req), ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, repo.created, 1)
}
