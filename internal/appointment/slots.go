package appointment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoOccupant is shown for a slot nobody has booked.
const NoOccupant = "-"

// Slots are the bookable two-hour windows of a day, in display order.
var Slots = []string{
	"07:00 - 09:00",
	"09:00 - 11:00",
	"11:00 - 13:00",
	"13:00 - 15:00",
	"15:00 - 17:00",
	"17:00 - 19:00",
	"19:00 - 21:00",
}

var ErrBadSlot = errors.New("unrecognised slot")

type SlotState struct {
	Label     string
	StartHour int
	Taken     bool
	Occupant  string
}

// StartHour parses the hour a slot label starts at.
func StartHour(label string) (int, error) {
	start, _, ok := strings.Cut(label, " - ")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadSlot, label)
	}
	hh, _, ok := strings.Cut(strings.TrimSpace(start), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadSlot, label)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrBadSlot, label)
	}
	return h, nil
}

// IsSlot reports whether label is one of Slots.
func IsSlot(label string) bool {
	for _, s := range Slots {
		if s == label {
			return true
		}
	}
	return false
}

// Resolve lays appts onto labels for the calendar day of day. A slot is
// taken when an appointment falls on the same year, month and day and its
// hour equals the slot's start hour, both read in day's location.
// Appointments off the slot grid are ignored.
func Resolve(day time.Time, labels []string, appts []Appointment) ([]SlotState, error) {
	loc := day.Location()
	y, m, d := day.Date()

	out := make([]SlotState, 0, len(labels))
	for _, label := range labels {
		h, err := StartHour(label)
		if err != nil {
			return nil, err
		}

		st := SlotState{Label: label, StartHour: h, Occupant: NoOccupant}
		for _, a := range appts {
			at := a.At.In(loc)
			ay, am, ad := at.Date()
			if ay == y && am == m && ad == d && at.Hour() == h {
				st.Taken = true
				st.Occupant = a.Counterpart
				break
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// BookingTime is the instant a booking for label on day is created at: the
// slot's start hour with minutes and seconds zeroed, in day's location.
func BookingTime(day time.Time, label string) (time.Time, error) {
	h, err := StartHour(label)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, h, 0, 0, 0, day.Location()), nil
}
