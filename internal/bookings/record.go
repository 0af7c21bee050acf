// Package bookings keeps the log of confirmed appointments.
package bookings

import (
	"context"
	"time"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/appointment"
)

// Record is one logged appointment.
type Record struct {
	LoggedAt       time.Time  `json:"timestamp"`
	UserID         string     `json:"user_id,omitempty"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email,omitempty"`
	Service        string     `json:"service"`
	Vehicle        string     `json:"vehicle,omitempty"`
	DateTime       time.Time  `json:"datetime"`
	RequestedFor   *time.Time `json:"requested_for,omitempty"`
	RescheduleNote string     `json:"reschedule_note,omitempty"`
}

// FromAppointment snapshots a finalized appointment for the log.
func FromAppointment(appt appointment.Finalized, loggedAt time.Time) Record {
	rec := Record{
		LoggedAt:       loggedAt.UTC(),
		UserID:         appt.UserID,
		Name:           appt.Name,
		Phone:          appt.Phone,
		Email:          appt.Email,
		Service:        appt.ServiceOrDefault(),
		Vehicle:        appt.Vehicle,
		DateTime:       appt.DateTime,
		RescheduleNote: appt.RescheduleNote,
	}
	if appt.Adjustment != nil {
		requested := appt.Adjustment.Requested
		rec.RequestedFor = &requested
	}
	return rec
}

// Repository stores appointment records.
type Repository interface {
	Save(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]Record, error)
}
