package appointment

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

// SlotLength is how long every booked slot runs.
const SlotLength = 2 * time.Hour

const icsProductID = "-//clinic-portal//Schedule Export//EN"

var ErrNothingToExport = errors.New("no appointments to export")

// ExportICS renders appts as an iCalendar document, one VEVENT per
// appointment, with times in UTC.
func ExportICS(appts []Appointment, name string, now time.Time) ([]byte, error) {
	if len(appts) == 0 {
		return nil, ErrNothingToExport
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, icsProductID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	if name != "" {
		cal.Props.SetText(ical.PropName, name)
	}

	stamp := now.UTC().Truncate(time.Second)
	for _, a := range appts {
		start := a.At.UTC()

		ev := ical.NewComponent(ical.CompEvent)
		ev.Props.SetText(ical.PropUID, fmt.Sprintf("appointment-%d@clinic-portal", a.ID))
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		ev.Props.SetDateTime(ical.PropDateTimeStart, start)
		ev.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(SlotLength))
		ev.Props.SetText(ical.PropSummary, "Appointment with "+a.Counterpart)
		if a.PatientEmail != "" {
			ev.Props.SetText(ical.PropDescription, a.PatientEmail)
		}
		cal.Children = append(cal.Children, ev)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
