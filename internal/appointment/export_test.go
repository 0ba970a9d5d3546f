package appointment

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportICS(t *testing.T) {
	appts := []Appointment{
		{ID: 1, At: time.Date(2026, 1, 15, 7, 0, 0, 0, utc1), Counterpart: "Jane", PatientEmail: "jane@example.com"},
		{ID: 2, At: time.Date(2026, 1, 16, 9, 0, 0, 0, utc1), Counterpart: "John"},
	}
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	raw, err := ExportICS(appts, "Dr. Grey", now)
	require.NoError(t, err)

	cal, err := ical.NewDecoder(bytes.NewReader(raw)).Decode()
	require.NoError(t, err)

	prodID, err := cal.Props.Text(ical.PropProductID)
	require.NoError(t, err)
	assert.Equal(t, icsProductID, prodID)

	events := cal.Events()
	require.Len(t, events, 2)

	uid, err := events[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "appointment-1@clinic-portal", uid)

	summary, err := events[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Appointment with Jane", summary)

	start, err := events[0].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)))

	end, err := events[0].DateTimeEnd(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, SlotLength, end.Sub(start))
}

func TestExportICSEmpty(t *testing.T) {
	_, err := ExportICS(nil, "", time.Now())
	assert.ErrorIs(t, err, ErrNothingToExport)
}
