package appointment

import (
	"fmt"
	"strings"
	"time"
)

// Slot names one field of an appointment being filled from conversation.
type Slot string

const (
	SlotName     Slot = "name"
	SlotPhone    Slot = "phone"
	SlotEmail    Slot = "email"
	SlotDateTime Slot = "datetime"
	SlotService  Slot = "service"
	SlotVehicle  Slot = "vehicle"
)

// AllSlots lists every slot in prompt order.
var AllSlots = []Slot{SlotName, SlotPhone, SlotEmail, SlotDateTime, SlotService, SlotVehicle}

// DefaultRequiredSlots is the set used when a deployment configures none.
var DefaultRequiredSlots = []Slot{SlotName, SlotPhone, SlotDateTime}

// ParseSlots parses a comma separated slot list such as "name,phone,datetime".
func ParseSlots(raw string) ([]Slot, error) {
	var slots []Slot
	seen := make(map[Slot]bool)
	for _, part := range strings.Split(raw, ",") {
		name := Slot(strings.ToLower(strings.TrimSpace(part)))
		if name == "" {
			continue
		}
		if name == "date_time" || name == "date" {
			name = SlotDateTime
		}
		if !name.valid() {
			return nil, fmt.Errorf("appointment: unknown slot %q", part)
		}
		if !seen[name] {
			seen[name] = true
			slots = append(slots, name)
		}
	}
	return slots, nil
}

func (s Slot) valid() bool {
	for _, known := range AllSlots {
		if s == known {
			return true
		}
	}
	return false
}

// Label is the human readable name used when asking for a missing slot.
func (s Slot) Label() string {
	switch s {
	case SlotName:
		return "full name"
	case SlotPhone:
		return "phone number"
	case SlotEmail:
		return "email address"
	case SlotDateTime:
		return "preferred day and time"
	case SlotService:
		return "type of appointment"
	case SlotVehicle:
		return "vehicle of interest"
	default:
		return string(s)
	}
}

// SlotState is the in-progress capture for one user.
type SlotState struct {
	Name     string     `json:"name,omitempty"`
	Phone    string     `json:"phone,omitempty"`
	Email    string     `json:"email,omitempty"`
	DateTime *time.Time `json:"date_time,omitempty"`
	// Adjustment is kept when DateTime is not the time the customer asked for.
	Adjustment *Adjustment `json:"adjustment,omitempty"`
	Service    string      `json:"service,omitempty"`
	Vehicle    string      `json:"vehicle,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Has reports whether slot is filled.
func (s SlotState) Has(slot Slot) bool {
	switch slot {
	case SlotName:
		return s.Name != ""
	case SlotPhone:
		return s.Phone != ""
	case SlotEmail:
		return s.Email != ""
	case SlotDateTime:
		return s.DateTime != nil
	case SlotService:
		return s.Service != ""
	case SlotVehicle:
		return s.Vehicle != ""
	default:
		return false
	}
}

// Missing returns the required slots that are still empty, in order.
func (s SlotState) Missing(required []Slot) []Slot {
	var missing []Slot
	for _, slot := range required {
		if !s.Has(slot) {
			missing = append(missing, slot)
		}
	}
	return missing
}

// Empty reports whether no slot has been filled.
func (s SlotState) Empty() bool {
	for _, slot := range AllSlots {
		if s.Has(slot) {
			return false
		}
	}
	return true
}

// Reasons a requested time is moved.
const (
	ReasonClosed = "closed"
	ReasonPast   = "past"
)

// Adjustment records a requested time that was moved into business hours.
type Adjustment struct {
	Requested time.Time `json:"requested"`
	Scheduled time.Time `json:"scheduled"`
	Reason    string    `json:"reason"`
}

// Finalized is the immutable record produced when every required slot is
// filled.
type Finalized struct {
	UserID         string      `json:"user_id"`
	Name           string      `json:"name"`
	Phone          string      `json:"phone,omitempty"`
	Email          string      `json:"email,omitempty"`
	DateTime       time.Time   `json:"date_time"`
	Service        string      `json:"service,omitempty"`
	Vehicle        string      `json:"vehicle,omitempty"`
	Adjustment     *Adjustment `json:"adjustment,omitempty"`
	RescheduleNote string      `json:"reschedule_note,omitempty"`
	FinalizedAt    time.Time   `json:"finalized_at"`
}

// HasTime reports whether a date and time were captured. Deployments that
// do not require the datetime slot can finalize without one.
func (f Finalized) HasTime() bool {
	return !f.DateTime.IsZero()
}

// Rescheduled reports whether the customer's requested time was moved.
func (f Finalized) Rescheduled() bool {
	return f.Adjustment != nil
}

// ServiceOrDefault returns the service, or "appointment" when none was given.
func (f Finalized) ServiceOrDefault() string {
	if f.Service == "" {
		return "appointment"
	}
	return f.Service
}

// UpdateResult is returned from Session.Update.
type UpdateResult struct {
	// State is the merged capture. After finalization it holds the values
	// that went into Appointment; the stored copy is already gone.
	State SlotState
	// Appointment is set when this update filled the last required slot.
	Appointment *Finalized
	// Filled lists the slots this message filled or refreshed.
	Filled []Slot
	// Missing lists required slots still empty.
	Missing []Slot
	// Adjustment is set when this message's date/time had to be moved.
	Adjustment *Adjustment
}

// Complete reports whether the update finalized an appointment.
func (r UpdateResult) Complete() bool {
	return r.Appointment != nil
}

// Touched reports whether this message contributed anything.
func (r UpdateResult) Touched() bool {
	return len(r.Filled) > 0
}

// DisplayTime renders an appointment time the way confirmations show it.
func DisplayTime(t time.Time) string {
	return t.Format("Monday, January 2 at 3:04 PM")
}

// RescheduleNote explains why a requested time was moved.
func RescheduleNote(adj Adjustment) string {
	why := "is outside our business hours"
	if adj.Reason == ReasonPast {
		why = "has already passed"
	}
	return fmt.Sprintf("You asked for %s, which %s, so we booked the next available time: %s.",
		DisplayTime(adj.Requested), why, DisplayTime(adj.Scheduled))
}
