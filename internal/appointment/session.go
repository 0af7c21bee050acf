// Package appointment accumulates appointment details across chat turns
// and hands off a finalized record once every required slot is filled.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/calendar"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/extract"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

// Session merges extracted details into per-user state.
type Session struct {
	store     StateStore
	extractor *extract.Extractor
	calendar  *calendar.Calendar
	required  []Slot
	refresh   map[Slot]bool
	now       func() time.Time
	logger    *logging.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithRequiredSlots sets the slots that must be filled before finalizing.
func WithRequiredSlots(slots ...Slot) Option {
	return func(s *Session) {
		s.required = append([]Slot(nil), slots...)
	}
}

// WithRefreshSlots names slots a later message may overwrite.
func WithRefreshSlots(slots ...Slot) Option {
	return func(s *Session) {
		for _, slot := range slots {
			s.refresh[slot] = true
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession wires a Session. It fails when the required slot set is empty
// or names an unknown slot.
func NewSession(store StateStore, extractor *extract.Extractor, cal *calendar.Calendar, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, errors.New("appointment: state store is required")
	}
	if extractor == nil {
		return nil, errors.New("appointment: extractor is required")
	}
	if cal == nil {
		return nil, errors.New("appointment: calendar is required")
	}

	s := &Session{
		store:     store,
		extractor: extractor,
		calendar:  cal,
		required:  DefaultRequiredSlots,
		refresh:   make(map[Slot]bool),
		now:       time.Now,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.required) == 0 {
		return nil, errors.New("appointment: at least one required slot must be configured")
	}
	for _, slot := range s.required {
		if !slot.valid() {
			return nil, fmt.Errorf("appointment: unknown required slot %q", slot)
		}
	}
	return s, nil
}

// RequiredSlots returns the configured required set.
func (s *Session) RequiredSlots() []Slot {
	return append([]Slot(nil), s.required...)
}

// Update extracts details from text and merges them into the user's state.
// Filled slots are never cleared. When the merge completes the required set
// the stored state is deleted and the finalized appointment is returned.
// Only store failures produce an error.
func (s *Session) Update(ctx context.Context, userID, text string) (UpdateResult, error) {
	now := s.now().In(s.calendar.Location())

	state, _, err := s.store.Load(ctx, userID)
	if err != nil {
		return UpdateResult{}, err
	}

	found := s.extractor.All(text, now)
	var result UpdateResult

	merge := func(slot Slot, value string, dst *string) {
		if value == "" || value == *dst {
			return
		}
		if *dst == "" || s.refresh[slot] {
			*dst = value
			result.Filled = append(result.Filled, slot)
		}
	}
	merge(SlotName, found.Name, &state.Name)
	merge(SlotPhone, found.Phone, &state.Phone)
	merge(SlotEmail, found.Email, &state.Email)

	if found.DateTime != nil && (state.DateTime == nil || s.refresh[SlotDateTime]) {
		scheduled, adj, err := s.schedule(*found.DateTime, now)
		if err != nil {
			// only reachable with a broken calendar; leave the slot empty
			s.logger.Error("appointment: could not place requested time", "user_id", userID, "error", err)
		} else {
			state.DateTime = &scheduled
			state.Adjustment = adj
			result.Adjustment = adj
			result.Filled = append(result.Filled, SlotDateTime)
		}
	}

	merge(SlotService, found.Service, &state.Service)
	merge(SlotVehicle, found.Vehicle, &state.Vehicle)

	result.State = state
	result.Missing = state.Missing(s.required)

	if len(result.Missing) == 0 {
		appt := s.finalize(userID, state, now)
		if err := s.store.Delete(ctx, userID); err != nil {
			return UpdateResult{}, err
		}
		result.Appointment = &appt
		s.logger.Info("appointment: capture complete", "user_id", userID, "rescheduled", appt.Rescheduled())
		return result, nil
	}

	if result.Touched() {
		state.UpdatedAt = now
		result.State = state
		if err := s.store.Save(ctx, userID, state); err != nil {
			return UpdateResult{}, err
		}
	}
	return result, nil
}

// Reset discards any capture in progress for userID.
func (s *Session) Reset(ctx context.Context, userID string) error {
	return s.store.Delete(ctx, userID)
}

// Current returns the stored capture for userID without modifying it.
func (s *Session) Current(ctx context.Context, userID string) (SlotState, error) {
	state, _, err := s.store.Load(ctx, userID)
	return state, err
}

// Revalidate moves a finalized appointment into business hours again. The
// stored time is already valid at capture, so this only changes something
// if the calendar was swapped or the time has since passed.
func (s *Session) Revalidate(appt Finalized) (Finalized, error) {
	if !appt.HasTime() {
		return appt, nil
	}
	now := s.now().In(s.calendar.Location())
	scheduled, adj, err := s.schedule(appt.DateTime, now)
	if err != nil {
		return appt, err
	}
	if adj == nil {
		return appt, nil
	}
	if appt.Adjustment != nil {
		adj.Requested = appt.Adjustment.Requested
	}
	appt.DateTime = scheduled
	appt.Adjustment = adj
	appt.RescheduleNote = RescheduleNote(*adj)
	return appt, nil
}

// schedule places requested into business hours. Requests in the past are
// moved to the next whole hour from now first.
func (s *Session) schedule(requested, now time.Time) (time.Time, *Adjustment, error) {
	candidate := requested
	reason := ReasonClosed
	if candidate.Before(now) {
		candidate = now.Truncate(time.Hour).Add(time.Hour)
		reason = ReasonPast
	}
	scheduled, err := s.calendar.NextOpen(candidate)
	if err != nil {
		return time.Time{}, nil, err
	}
	if scheduled.Equal(requested) {
		return requested, nil, nil
	}
	return scheduled, &Adjustment{Requested: requested, Scheduled: scheduled, Reason: reason}, nil
}

func (s *Session) finalize(userID string, state SlotState, now time.Time) Finalized {
	appt := Finalized{
		UserID:      userID,
		Name:        state.Name,
		Phone:       state.Phone,
		Email:       state.Email,
		Service:     state.Service,
		Vehicle:     state.Vehicle,
		Adjustment:  state.Adjustment,
		FinalizedAt: now,
	}
	if state.DateTime != nil {
		appt.DateTime = *state.DateTime
	}
	if appt.Adjustment != nil {
		appt.RescheduleNote = RescheduleNote(*appt.Adjustment)
	}
	return appt
}
