package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/appointment"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

var bookingsTracer = otel.Tracer("dealerbot.internal.bookings")

// Service writes finalized appointments to every configured repository.
// The first repository is the one listed on the dashboard.
type Service struct {
	repos  []Repository
	now    func() time.Time
	logger *logging.Logger
}

// NewService constructs a bookings service.
func NewService(logger *logging.Logger, repos ...Repository) *Service {
	if len(repos) == 0 {
		panic("bookings: at least one repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repos: repos, now: time.Now, logger: logger}
}

// Record logs the appointment. Every repository is attempted; failures are
// joined.
func (s *Service) Record(ctx context.Context, appt appointment.Finalized) error {
	ctx, span := bookingsTracer.Start(ctx, "bookings.record")
	defer span.End()
	span.SetAttributes(
		attribute.String("dealerbot.user_id", appt.UserID),
		attribute.Bool("dealerbot.rescheduled", appt.Rescheduled()),
	)

	rec := FromAppointment(appt, s.now())
	var errs []error
	for i, repo := range s.repos {
		if err := repo.Save(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("repository %d: %w", i, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("appointment logged", "user_id", appt.UserID, "scheduled_for", rec.DateTime)
	return nil
}

// List returns the appointments from the primary repository.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.repos[0].List(ctx)
}
