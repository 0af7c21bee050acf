package calendar

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DayFile is one day's entry in an hours file. A missing day is closed.
type DayFile struct {
	Open  int `yaml:"open" validate:"min=0,max=23"`
	Close int `yaml:"close" validate:"gtfield=Open,max=24"`
}

// HoursFile is the YAML layout accepted by LoadFile:
//
//	timezone: America/New_York
//	monday: {open: 9, close: 19}
//	saturday: {open: 9, close: 18}
type HoursFile struct {
	Timezone  string   `yaml:"timezone"`
	Monday    *DayFile `yaml:"monday"`
	Tuesday   *DayFile `yaml:"tuesday"`
	Wednesday *DayFile `yaml:"wednesday"`
	Thursday  *DayFile `yaml:"thursday"`
	Friday    *DayFile `yaml:"friday"`
	Saturday  *DayFile `yaml:"saturday"`
	Sunday    *DayFile `yaml:"sunday"`
}

// Table converts the file into a Table.
func (f HoursFile) Table() Table {
	var t Table
	days := map[time.Weekday]*DayFile{
		time.Sunday:    f.Sunday,
		time.Monday:    f.Monday,
		time.Tuesday:   f.Tuesday,
		time.Wednesday: f.Wednesday,
		time.Thursday:  f.Thursday,
		time.Friday:    f.Friday,
		time.Saturday:  f.Saturday,
	}
	for d, day := range days {
		if day != nil {
			t[d] = Hours{Open: day.Open, Close: day.Close}
		}
	}
	return t
}

// ParseFile decodes and validates an hours file.
func ParseFile(data []byte) (HoursFile, error) {
	var f HoursFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return HoursFile{}, fmt.Errorf("calendar: parse hours file: %w", err)
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(f); err != nil {
		return HoursFile{}, fmt.Errorf("calendar: validate hours file: %w", err)
	}
	return f, nil
}

// LoadFile reads path and builds a Calendar from it. fallbackLoc is used when
// the file does not name a timezone.
func LoadFile(path string, fallbackLoc *time.Location) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("calendar: read hours file: %w", err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return nil, err
	}
	loc := fallbackLoc
	if f.Timezone != "" {
		loc, err = time.LoadLocation(f.Timezone)
		if err != nil {
			return nil, fmt.Errorf("calendar: load timezone %q: %w", f.Timezone, err)
		}
	}
	return New(f.Table(), loc)
}
