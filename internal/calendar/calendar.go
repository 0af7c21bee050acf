// Package calendar answers business-hours questions for the dealership:
// whether a given instant is inside opening hours and, if not, when the
// showroom next opens.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// maxSearchDays bounds NextOpen. A table with at least one open day always
// resolves within a week, so hitting the bound means the table is broken.
const maxSearchDays = 14

var (
	// ErrNoOpenHours is returned when no day in the table has opening hours.
	ErrNoOpenHours = errors.New("calendar: no open hours configured")
	// ErrInvalidHours is returned for a day whose open/close pair is unusable.
	ErrInvalidHours = errors.New("calendar: invalid hours")
)

// Hours is the open/close pair for one weekday in local wall-clock hours.
// Open == Close == 0 marks the day closed.
type Hours struct {
	Open  int `json:"open" yaml:"open"`
	Close int `json:"close" yaml:"close"`
}

// Closed reports whether the day carries the closed marker.
func (h Hours) Closed() bool {
	return h.Open == 0 && h.Close == 0
}

func (h Hours) contains(hour int) bool {
	return !h.Closed() && hour >= h.Open && hour < h.Close
}

// Table holds opening hours indexed by time.Weekday.
type Table [7]Hours

// DefaultTable returns the showroom hours: weekdays 9-19, Saturday 9-18,
// Sunday closed.
func DefaultTable() Table {
	var t Table
	for d := time.Monday; d <= time.Friday; d++ {
		t[d] = Hours{Open: 9, Close: 19}
	}
	t[time.Saturday] = Hours{Open: 9, Close: 18}
	t[time.Sunday] = Hours{}
	return t
}

// Validate checks every day and that at least one day is open.
func (t Table) Validate() error {
	anyOpen := false
	for d, h := range t {
		if h.Closed() {
			continue
		}
		if h.Open < 0 || h.Close > 24 || h.Open >= h.Close {
			return fmt.Errorf("%w: %s %d-%d", ErrInvalidHours, time.Weekday(d), h.Open, h.Close)
		}
		anyOpen = true
	}
	if !anyOpen {
		return ErrNoOpenHours
	}
	return nil
}

// Calendar evaluates instants against a Table in a fixed location.
type Calendar struct {
	table Table
	loc   *time.Location
}

// New validates table and returns a Calendar evaluating wall-clock hours in
// loc (UTC when nil).
func New(table Table, loc *time.Location) (*Calendar, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{table: table, loc: loc}, nil
}

// Location returns the calendar's time zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Hours returns the configured hours for weekday.
func (c *Calendar) Hours(weekday time.Weekday) Hours {
	return c.table[weekday]
}

// IsOpen reports whether t falls inside [open, close) on its local weekday.
func (c *Calendar) IsOpen(t time.Time) bool {
	local := t.In(c.loc)
	return c.table[local.Weekday()].contains(local.Hour())
}

// NextOpen returns t unchanged when the showroom is open at t. Otherwise it
// returns the next opening instant, skipping closed days.
func (c *Calendar) NextOpen(t time.Time) (time.Time, error) {
	if c.IsOpen(t) {
		return t, nil
	}
	local := t.In(c.loc)
	for i := 0; i <= maxSearchDays; i++ {
		day := time.Date(local.Year(), local.Month(), local.Day()+i, 0, 0, 0, 0, c.loc)
		h := c.table[day.Weekday()]
		if h.Closed() {
			continue
		}
		opening := time.Date(day.Year(), day.Month(), day.Day(), h.Open, 0, 0, 0, c.loc)
		if i == 0 && !local.Before(opening) {
			// already past closing today
			continue
		}
		return opening, nil
	}
	return time.Time{}, fmt.Errorf("%w: nothing open within %d days of %s", ErrNoOpenHours, maxSearchDays, t.Format(time.RFC3339))
}

// Describe renders a weekday's hours for prompts and confirmations,
// e.g. "9:00 AM - 7:00 PM" or "Closed".
func (c *Calendar) Describe(weekday time.Weekday) string {
	h := c.table[weekday]
	if h.Closed() {
		return "Closed"
	}
	return formatHour(h.Open) + " - " + formatHour(h.Close)
}

// Summary lists every day's hours starting on Monday.
func (c *Calendar) Summary() string {
	var b strings.Builder
	for i := 1; i <= 7; i++ {
		d := time.Weekday(i % 7)
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(d.String())
		b.WriteString(": ")
		b.WriteString(c.Describe(d))
	}
	return b.String()
}

func formatHour(h int) string {
	if h == 24 {
		return "Midnight"
	}
	return time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("3:04 PM")
}
