package appointment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	redisclient "github.com/hackgods/clinic-portal/internal/redis"
)

var (
	ErrMissingPatient      = errors.New("patient id missing from session")
	ErrIncompleteSelection = errors.New("doctor, day and slot must be selected")
	ErrSlotTaken           = errors.New("slot is already booked")
	ErrBookingFailed       = errors.New("booking rejected")
	ErrSubmissionInFlight  = errors.New("a booking is already being submitted, please wait")
	ErrStale               = errors.New("superseded by a newer request")
)

// BookingRequest is the patient's selection when submitting a booking.
type BookingRequest struct {
	PatientID int64
	DoctorID  int64
	Day       time.Time
	Slot      string
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	loc    *time.Location
	logger *zap.Logger

	doctorGen  *Generations
	bookingGen *Generations
}

func NewService(repo Repository, locker redisclient.Locker, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:       repo,
		locker:     locker,
		loc:        loc,
		logger:     logger,
		doctorGen:  NewGenerations(),
		bookingGen: NewGenerations(),
	}
}

// Location is where slot matching happens.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Day is local midnight of t's calendar date in the slot location.
func (s *Service) Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// DoctorDay fetches the signed-in doctor's appointments and lays them onto
// the slot grid for day. A fetch failure is logged and yields an empty
// grid. If a newer DoctorDay for the same session started meanwhile, the
// result is dropped and ErrStale returned.
func (s *Service) DoctorDay(ctx context.Context, sessionID string, day time.Time) ([]SlotState, error) {
	ctx, n := s.doctorGen.Begin(ctx, sessionID)
	defer s.doctorGen.End(sessionID, n)

	appts, err := s.repo.DoctorAppointments(ctx)
	if !s.doctorGen.Current(sessionID, n) {
		return nil, ErrStale
	}
	if err != nil {
		s.logger.Warn("fetch doctor appointments failed", zap.Error(err))
		appts = nil
	}

	return Resolve(s.Day(day), Slots, appts)
}

// DoctorMonth returns the signed-in doctor's appointments that fall in the
// calendar month of month, in time order.
func (s *Service) DoctorMonth(ctx context.Context, month time.Time) ([]Appointment, error) {
	appts, err := s.repo.DoctorAppointments(ctx)
	if err != nil {
		return nil, err
	}

	y, m, _ := month.In(s.loc).Date()
	out := make([]Appointment, 0, len(appts))
	for _, a := range appts {
		ay, am, _ := a.At.In(s.loc).Date()
		if ay == y && am == m {
			out = append(out, a)
		}
	}
	sortByTime(out)
	return out, nil
}

// PatientAppointments lists the signed-in patient's bookings in time order.
func (s *Service) PatientAppointments(ctx context.Context) ([]Appointment, error) {
	appts, err := s.repo.PatientAppointments(ctx)
	if err != nil {
		return nil, err
	}
	sortByTime(appts)
	return appts, nil
}

// LoadBooking fetches the doctor directory and the patient's appointments
// concurrently for the booking view. Each half stands on its own: a failed
// fetch leaves only its own half empty and is reported in the error, with
// the other half still returned. Only the latest load per session is
// applied; earlier ones are cancelled and return ErrStale.
func (s *Service) LoadBooking(ctx context.Context, sessionID string) (BookingView, error) {
	ctx, n := s.bookingGen.Begin(ctx, sessionID)
	defer s.bookingGen.End(sessionID, n)

	var (
		view                 BookingView
		doctorsErr, apptsErr error
		g                    errgroup.Group
	)
	g.Go(func() error {
		view.Doctors, doctorsErr = s.repo.Doctors(ctx)
		return nil
	})
	g.Go(func() error {
		view.Appointments, apptsErr = s.repo.PatientAppointments(ctx)
		return nil
	})
	_ = g.Wait()

	if !s.bookingGen.Current(sessionID, n) {
		return BookingView{}, ErrStale
	}

	var errs []error
	if doctorsErr != nil {
		view.Doctors = nil
		errs = append(errs, fmt.Errorf("load doctors: %w", doctorsErr))
	}
	if apptsErr != nil {
		view.Appointments = nil
		errs = append(errs, fmt.Errorf("load appointments: %w", apptsErr))
	}
	if len(errs) > 0 {
		return view, fmt.Errorf("load booking view: %w", errors.Join(errs...))
	}
	return view, nil
}

// Book submits a booking for the selected day and slot. At most one
// submission per session runs at a time; a concurrent one gets
// ErrSubmissionInFlight. The slot is re-checked against the patient's
// appointments before posting, but the API has the final say.
func (s *Service) Book(ctx context.Context, sessionID string, req BookingRequest) error {
	if req.PatientID == 0 {
		return ErrMissingPatient
	}
	if req.DoctorID == 0 || req.Day.IsZero() || req.Slot == "" {
		return ErrIncompleteSelection
	}
	if !IsSlot(req.Slot) {
		return fmt.Errorf("%w: %q", ErrBadSlot, req.Slot)
	}

	day := s.Day(req.Day)
	at, err := BookingTime(day, req.Slot)
	if err != nil {
		return err
	}

	err = s.locker.WithLock(ctx, "booking:"+sessionID, func(lockCtx context.Context) error {
		appts, err := s.repo.PatientAppointments(lockCtx)
		if err != nil {
			s.logger.Warn("pre-booking slot check skipped", zap.Error(err))
		} else {
			states, err := Resolve(day, []string{req.Slot}, appts)
			if err != nil {
				return err
			}
			if states[0].Taken {
				return ErrSlotTaken
			}
		}

		if err := s.repo.CreateAppointment(lockCtx, req.PatientID, req.DoctorID, at); err != nil {
			return fmt.Errorf("%w: %w", ErrBookingFailed, err)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return ErrSubmissionInFlight
		}
		return err
	}

	s.logger.Info("appointment booked",
		zap.Int64("patient_id", req.PatientID),
		zap.Int64("doctor_id", req.DoctorID),
		zap.Time("appointment_time", at),
	)
	return nil
}

// Forget drops the in-flight state kept for a session.
func (s *Service) Forget(sessionID string) {
	s.doctorGen.Forget(sessionID)
	s.bookingGen.Forget(sessionID)
}

func sortByTime(appts []Appointment) {
	slices.SortStableFunc(appts, func(a, b Appointment) int {
		return a.At.Compare(b.At)
	})
}
