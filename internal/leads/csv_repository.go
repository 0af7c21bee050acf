package leads

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// CSVRepository stores leads in a CSV file with the CRM export header.
type CSVRepository struct {
	mu   sync.Mutex
	path string
}

// NewCSVRepository returns a repository backed by path. The file is created
// with a header on first append.
func NewCSVRepository(path string) *CSVRepository {
	if path == "" {
		panic("leads: csv path required")
	}
	return &CSVRepository{path: path}
}

// Path returns the backing file.
func (r *CSVRepository) Path() string {
	return r.path
}

func (r *CSVRepository) Append(_ context.Context, lead Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("leads: create dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("leads: open %s: %w", r.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("leads: stat %s: %w", r.path, err)
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("leads: write header: %w", err)
		}
	}
	if err := w.Write(lead.record()); err != nil {
		return fmt.Errorf("leads: write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("leads: flush: %w", err)
	}
	return nil
}

// List reads every lead. A missing file is an empty sheet.
func (r *CSVRepository) List(_ context.Context) ([]Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Lead{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leads: open %s: %w", r.path, err)
	}
	defer f.Close()
	return ParseCSV(f)
}

// Replace writes the sheet to a temp file and renames it into place so
// readers never see a partial upload.
func (r *CSVRepository) Replace(_ context.Context, leads []Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("leads: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".leads-*.csv")
	if err != nil {
		return fmt.Errorf("leads: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, leads); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("leads: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("leads: replace %s: %w", r.path, err)
	}
	return nil
}

// ParseCSV reads a leads sheet. The header must carry at least the Name
// column and one contact column; extra columns are ignored.
func ParseCSV(src io.Reader) ([]Lead, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[trimBOM(col)] = i
	}
	if _, ok := index["Name"]; !ok {
		return nil, fmt.Errorf("%w: missing Name column", ErrInvalidCSV)
	}
	_, hasEmail := index["Email"]
	_, hasPhone := index["Phone"]
	if !hasEmail && !hasPhone {
		return nil, fmt.Errorf("%w: missing Email or Phone column", ErrInvalidCSV)
	}

	leads := []Lead{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if blank(row) {
			continue
		}
		leads = append(leads, fromRecord(index, row))
	}
	return leads, nil
}

// WriteCSV writes leads with the standard header.
func WriteCSV(dst io.Writer, leads []Lead) error {
	w := csv.NewWriter(dst)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("leads: write header: %w", err)
	}
	for _, lead := range leads {
		if err := w.Write(lead.record()); err != nil {
			return fmt.Errorf("leads: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("leads: flush: %w", err)
	}
	return nil
}

func trimBOM(s string) string {
	const bom = "\ufeff"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}

func blank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
