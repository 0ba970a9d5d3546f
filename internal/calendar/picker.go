// Package calendar builds the month grid the schedule views use to pick a
// day. The displayed month and the selected day move independently.
package calendar

import (
	"fmt"
	"time"

	"github.com/samber/mo"
)

const (
	MonthLayout = "2006-01"
	DateLayout  = "2006-01-02"
)

type Picker struct {
	month    time.Time
	selected mo.Option[time.Time]
}

// Cell is one square of the grid. Blank cells pad the first week.
type Cell struct {
	Blank    bool
	Day      int
	Date     time.Time
	Selected bool
}

// NewPicker shows the month containing month, with an optional selection.
func NewPicker(month time.Time, selected mo.Option[time.Time]) Picker {
	return Picker{month: firstOfMonth(month), selected: selected}
}

func firstOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func (p Picker) Month() time.Time {
	return p.month
}

func (p Picker) Selected() mo.Option[time.Time] {
	return p.selected
}

func (p Picker) Prev() Picker {
	return Picker{month: p.month.AddDate(0, -1, 0), selected: p.selected}
}

func (p Picker) Next() Picker {
	return Picker{month: p.month.AddDate(0, 1, 0), selected: p.selected}
}

// Select picks day of the displayed month at local midnight. The displayed
// month stays where it is.
func (p Picker) Select(day int) (Picker, error) {
	if day < 1 || day > daysIn(p.month) {
		return p, fmt.Errorf("day %d out of range for %s", day, p.month.Format(MonthLayout))
	}
	d := time.Date(p.month.Year(), p.month.Month(), day, 0, 0, 0, 0, p.month.Location())
	return Picker{month: p.month, selected: mo.Some(d)}, nil
}

func daysIn(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, month.Location()).Day()
}

// Weeks lays the displayed month out Sunday first. The first week starts
// with one blank per weekday before the 1st; the last week is not padded.
func (p Picker) Weeks() [][]Cell {
	var weeks [][]Cell
	week := make([]Cell, 0, 7)
	for i := 0; i < int(p.month.Weekday()); i++ {
		week = append(week, Cell{Blank: true})
	}

	sel, hasSel := p.selected.Get()
	for day := 1; day <= daysIn(p.month); day++ {
		d := time.Date(p.month.Year(), p.month.Month(), day, 0, 0, 0, 0, p.month.Location())
		week = append(week, Cell{
			Day:      day,
			Date:     d,
			Selected: hasSel && sel.Day() == day && sel.Month() == d.Month(),
		})
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make([]Cell, 0, 7)
		}
	}
	if len(week) > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}

// Title is the month heading, e.g. "January 2026".
func (p Picker) Title() string {
	return p.month.Format("January 2006")
}

func (p Picker) MonthParam() string {
	return p.month.Format(MonthLayout)
}

// DateParam is the selected day as a query value, "" with no selection.
func (p Picker) DateParam() string {
	if d, ok := p.selected.Get(); ok {
		return d.Format(DateLayout)
	}
	return ""
}

// ParseMonth reads a "2006-01" value as the first of that month in loc.
func ParseMonth(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(MonthLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse month %q: %w", raw, err)
	}
	return t, nil
}

// ParseDate reads a "2006-01-02" value as local midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// FromQuery builds a picker from month and date query values. An empty or
// bad month falls back to the selected day's month, then to now's.
func FromQuery(monthRaw, dateRaw string, now time.Time, loc *time.Location) Picker {
	selected := mo.None[time.Time]()
	if d, err := ParseDate(dateRaw, loc); err == nil {
		selected = mo.Some(d)
	}

	month, err := ParseMonth(monthRaw, loc)
	if err != nil {
		month = selected.OrElse(now.In(loc))
	}
	return NewPicker(month, selected)
}
