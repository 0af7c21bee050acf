// Package notify tells the sales team about booked appointments and new
// leads.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/appointment"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/extract"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/leads"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

// AppointmentRecorder persists finalized appointments.
type AppointmentRecorder interface {
	Record(ctx context.Context, appt appointment.Finalized) error
}

// LeadAppender persists captured leads.
type LeadAppender interface {
	Append(ctx context.Context, lead leads.Lead) error
}

// Config controls who gets notified.
type Config struct {
	// To receives appointment and lead emails. Empty disables email.
	To         []string
	DealerName string
}

// Service handles sending notifications to the sales team.
type Service struct {
	cfg      Config
	email    EmailSender
	bookings AppointmentRecorder
	leads    LeadAppender
	logger   *logging.Logger
}

// NewService creates a notification service. Any collaborator may be nil.
func NewService(cfg Config, email EmailSender, bookings AppointmentRecorder, leadsRepo LeadAppender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DealerName == "" {
		cfg.DealerName = "the dealership"
	}
	return &Service{
		cfg:      cfg,
		email:    email,
		bookings: bookings,
		leads:    leadsRepo,
		logger:   logger,
	}
}

// NotifyAppointment logs the appointment and emails the sales team. Both
// steps run even if one fails.
func (s *Service) NotifyAppointment(ctx context.Context, appt appointment.Finalized) error {
	var errs []error
	if s.bookings != nil {
		if err := s.bookings.Record(ctx, appt); err != nil {
			errs = append(errs, fmt.Errorf("notify: record appointment: %w", err))
		}
	}
	if s.email != nil && len(s.cfg.To) > 0 {
		subject := fmt.Sprintf("New %s booked: %s", appt.ServiceOrDefault(), appt.Name)
		body := appointmentBody(s.cfg.DealerName, appt)
		if err := s.email.Send(ctx, EmailMessage{
			To:      s.cfg.To,
			Subject: subject,
			Body:    body,
			HTML:    toHTML(body),
		}); err != nil {
			errs = append(errs, fmt.Errorf("notify: email appointment: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Info("appointment notification sent", "user_id", appt.UserID, "rescheduled", appt.Rescheduled())
	return nil
}

// NotifyLead appends the lead to the sheet and emails the sales team.
func (s *Service) NotifyLead(ctx context.Context, lead leads.Lead) error {
	var errs []error
	if s.leads != nil {
		if err := s.leads.Append(ctx, lead); err != nil {
			errs = append(errs, fmt.Errorf("notify: append lead: %w", err))
		}
	}
	if s.email != nil && len(s.cfg.To) > 0 {
		subject := fmt.Sprintf("New %s lead from %s", orDefault(lead.Labels, "chat"), orDefault(lead.Source, "chat"))
		body := leadBody(lead)
		if err := s.email.Send(ctx, EmailMessage{
			To:      s.cfg.To,
			Subject: subject,
			Body:    body,
			HTML:    toHTML(body),
		}); err != nil {
			errs = append(errs, fmt.Errorf("notify: email lead: %w", err))
		}
	}
	return errors.Join(errs...)
}

func appointmentBody(dealer string, appt appointment.Finalized) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A customer booked an appointment with %s through Messenger.\n\n", dealer)
	fmt.Fprintf(&b, "Name: %s\n", appt.Name)
	if appt.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", extract.FormatPhone(appt.Phone))
	}
	if appt.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", appt.Email)
	}
	fmt.Fprintf(&b, "Service: %s\n", appt.ServiceOrDefault())
	if appt.Vehicle != "" {
		fmt.Fprintf(&b, "Vehicle: %s\n", appt.Vehicle)
	}
	if appt.HasTime() {
		fmt.Fprintf(&b, "When: %s\n", appointment.DisplayTime(appt.DateTime))
	} else {
		b.WriteString("When: not given, please call to set a time\n")
	}
	if appt.Adjustment != nil {
		fmt.Fprintf(&b, "Originally requested: %s (%s)\n", appointment.DisplayTime(appt.Adjustment.Requested), appt.Adjustment.Reason)
	}
	fmt.Fprintf(&b, "Messenger user: %s\n", appt.UserID)
	return b.String()
}

func leadBody(lead leads.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new lead came in.\n\n")
	for _, row := range [][2]string{
		{"Name", lead.Name},
		{"Email", lead.Email},
		{"Phone", lead.Phone},
		{"Channel", lead.Channel},
		{"Interest", lead.Labels},
		{"Message", lead.Details},
		{"Received", lead.Created},
	} {
		if row[1] != "" {
			fmt.Fprintf(&b, "%s: %s\n", row[0], row[1])
		}
	}
	return b.String()
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
