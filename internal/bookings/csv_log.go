package bookings

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CSVLog appends one "timestamp,name,phone,service,datetime" line per
// appointment. Timestamps are RFC3339.
type CSVLog struct {
	mu   sync.Mutex
	path string
}

func NewCSVLog(path string) *CSVLog {
	if path == "" {
		panic("bookings: csv path required")
	}
	return &CSVLog{path: path}
}

func (l *CSVLog) Save(_ context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("bookings: create dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("bookings: open %s: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		rec.LoggedAt.UTC().Format(time.RFC3339),
		rec.Name,
		rec.Phone,
		rec.Service,
		formatScheduled(rec.DateTime),
	}); err != nil {
		return fmt.Errorf("bookings: write line: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("bookings: flush: %w", err)
	}
	return nil
}

// List reads the log oldest first. Lines that do not parse are skipped.
func (l *CSVLog) List(_ context.Context) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: open %s: %w", l.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	out := []Record{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bookings: read %s: %w", l.path, err)
		}
		rec, ok := parseLine(row)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseLine(row []string) (Record, bool) {
	if len(row) != 5 {
		return Record{}, false
	}
	logged, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return Record{}, false
	}
	var at time.Time
	if row[4] != "" {
		if at, err = time.Parse(time.RFC3339, row[4]); err != nil {
			return Record{}, false
		}
	}
	return Record{
		LoggedAt: logged,
		Name:     row[1],
		Phone:    row[2],
		Service:  row[3],
		DateTime: at,
	}, true
}

// formatScheduled leaves the column blank for appointments booked without a time.
func formatScheduled(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
