package calendar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, time.UTC)
}

func newDefault(t *testing.T) *Calendar {
	t.Helper()
	cal, err := New(DefaultTable(), time.UTC)
	require.NoError(t, err)
	return cal
}

func TestIsOpen(t *testing.T) {
	cal := newDefault(t)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday mid morning", at(3, 10, 30), true},
		{"exactly at opening", at(3, 9, 0), true},
		{"minute before opening", at(3, 8, 59), false},
		{"exactly at closing", at(3, 19, 0), false},
		{"last open minute", at(3, 18, 59), true},
		{"saturday closes earlier", at(6, 18, 0), false},
		{"saturday afternoon", at(6, 17, 30), true},
		{"sunday closed", at(7, 12, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsOpen(tt.at))
		})
	}
}

func TestNextOpen(t *testing.T) {
	cal := newDefault(t)

	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"open instant unchanged", at(3, 14, 17), at(3, 14, 17)},
		{"before opening same day", at(3, 7, 45), at(3, 9, 0)},
		{"after closing rolls to next day", at(3, 20, 0), at(4, 9, 0)},
		{"saturday evening skips sunday", at(6, 20, 0), at(8, 9, 0)},
		{"saturday at closing", at(6, 18, 0), at(8, 9, 0)},
		{"sunday noon", at(7, 12, 0), at(8, 9, 0)},
		{"friday late goes to saturday", at(5, 23, 30), at(6, 9, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.NextOpen(tt.at)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestNextOpenIsIdempotentAndOpen(t *testing.T) {
	cal := newDefault(t)
	start := at(1, 0, 0)
	for i := 0; i < 14*24*4; i++ {
		ts := start.Add(time.Duration(i) * 15 * time.Minute)
		next, err := cal.NextOpen(ts)
		require.NoError(t, err)
		assert.True(t, cal.IsOpen(next), "not open at %s", next)
		again, err := cal.NextOpen(next)
		require.NoError(t, err)
		assert.True(t, next.Equal(again), "not idempotent at %s", ts)
		assert.False(t, next.Before(ts))
	}
}

func TestNextOpenSingleOpenDay(t *testing.T) {
	var table Table
	table[time.Tuesday] = Hours{Open: 10, Close: 12}
	cal, err := New(table, time.UTC)
	require.NoError(t, err)

	got, err := cal.NextOpen(at(2, 12, 0))
	require.NoError(t, err)
	assert.Equal(t, at(9, 10, 0), got)
}

func TestNextOpenUsesLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	cal, err := New(DefaultTable(), loc)
	require.NoError(t, err)

	// 13:00 UTC is 08:00 local, an hour before opening.
	got, err := cal.NextOpen(at(3, 13, 0))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 3, 9, 0, 0, 0, loc), got)
}

func TestNewRejectsBadTables(t *testing.T) {
	_, err := New(Table{}, time.UTC)
	assert.True(t, errors.Is(err, ErrNoOpenHours))

	var inverted Table
	inverted[time.Monday] = Hours{Open: 18, Close: 9}
	_, err = New(inverted, time.UTC)
	assert.True(t, errors.Is(err, ErrInvalidHours))

	var overflow Table
	overflow[time.Monday] = Hours{Open: 9, Close: 25}
	_, err = New(overflow, time.UTC)
	assert.True(t, errors.Is(err, ErrInvalidHours))
}

func TestDescribeAndSummary(t *testing.T) {
	cal := newDefault(t)
	assert.Equal(t, "9:00 AM - 7:00 PM", cal.Describe(time.Monday))
	assert.Equal(t, "Closed", cal.Describe(time.Sunday))
	assert.Contains(t, cal.Summary(), "Saturday: 9:00 AM - 6:00 PM")
	assert.Contains(t, cal.Summary(), "Sunday: Closed")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hours.yaml")
	content := []byte("timezone: UTC\nmonday: {open: 8, close: 17}\nsaturday: {open: 10, close: 14}\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cal, err := LoadFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, Hours{Open: 8, Close: 17}, cal.Hours(time.Monday))
	assert.True(t, cal.Hours(time.Tuesday).Closed())
	assert.True(t, cal.IsOpen(at(6, 13, 0)))
}

func TestParseFileValidation(t *testing.T) {
	_, err := ParseFile([]byte("monday: {open: 17, close: 9}\n"))
	assert.Error(t, err)

	_, err = ParseFile([]byte("monday: [not, a, map]\n"))
	assert.Error(t, err)
}
