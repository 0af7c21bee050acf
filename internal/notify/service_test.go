package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/appointment"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/leads"
)

type recorderStub struct {
	got []appointment.Finalized
	err error
}

func (r *recorderStub) Record(_ context.Context, appt appointment.Finalized) error {
	r.got = append(r.got, appt)
	return r.err
}

type failingSender struct{}

func (failingSender) Send(context.Context, EmailMessage) error {
	return errors.New("smtp down")
}

func finalized() appointment.Finalized {
	requested := time.Date(2024, 1, 6, 20, 0, 0, 0, time.UTC)
	scheduled := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	return appointment.Finalized{
		UserID:   "psid-9",
		Name:     "Jane Doe",
		Phone:    "5551234567",
		Service:  "test drive",
		Vehicle:  "Nissan Rogue",
		DateTime: scheduled,
		Adjustment: &appointment.Adjustment{
			Requested: requested,
			Scheduled: scheduled,
			Reason:    appointment.ReasonClosed,
		},
	}
}

func TestNotifyAppointment(t *testing.T) {
	recorder := &recorderStub{}
	email := NewStubEmailSender(nil)
	svc := NewService(Config{To: []string{"sales@dealer.example"}, DealerName: "Johnson City Nissan"}, email, recorder, nil, nil)

	require.NoError(t, svc.NotifyAppointment(context.Background(), finalized()))
	require.Len(t, recorder.got, 1)

	sent := email.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"sales@dealer.example"}, sent[0].To)
	assert.Equal(t, "New test drive booked: Jane Doe", sent[0].Subject)
	assert.Contains(t, sent[0].Body, "Johnson City Nissan")
	assert.Contains(t, sent[0].Body, "Phone: (555) 123-4567")
	assert.Contains(t, sent[0].Body, "When: Monday, January 8 at 9:00 AM")
	assert.Contains(t, sent[0].Body, "Originally requested: Saturday, January 6 at 8:00 PM (closed)")
	assert.Contains(t, sent[0].HTML, "<br>")
}

func TestNotifyAppointmentWithoutTime(t *testing.T) {
	email := NewStubEmailSender(nil)
	svc := NewService(Config{To: []string{"sales@dealer.example"}}, email, nil, nil, nil)

	appt := appointment.Finalized{UserID: "psid-9", Name: "Jane Doe", Phone: "5551234567"}
	require.NoError(t, svc.NotifyAppointment(context.Background(), appt))

	sent := email.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "When: not given")
	assert.NotContains(t, sent[0].Body, "January 1")
}

func TestNotifyAppointmentJoinsFailures(t *testing.T) {
	recorder := &recorderStub{err: errors.New("disk full")}
	svc := NewService(Config{To: []string{"sales@dealer.example"}}, failingSender{}, recorder, nil, nil)

	err := svc.NotifyAppointment(context.Background(), finalized())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "smtp down")
}

func TestNotifyAppointmentWithoutEmailTarget(t *testing.T) {
	email := NewStubEmailSender(nil)
	svc := NewService(Config{}, email, nil, nil, nil)
	require.NoError(t, svc.NotifyAppointment(context.Background(), finalized()))
	assert.Empty(t, email.Sent())
}

func TestNotifyLead(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	email := NewStubEmailSender(nil)
	svc := NewService(Config{To: []string{"sales@dealer.example"}}, email, nil, repo, nil)

	lead := leads.NewMessengerLead("42", "voucher", "do you take <vouchers>?", time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC))
	require.NoError(t, svc.NotifyLead(context.Background(), lead))

	stored, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)

	sent := email.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "New voucher lead from Messenger", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "&lt;vouchers&gt;")
}

func TestNotifyLeadInvalid(t *testing.T) {
	svc := NewService(Config{}, nil, nil, leads.NewInMemoryRepository(), nil)
	err := svc.NotifyLead(context.Background(), leads.Lead{})
	assert.ErrorIs(t, err, leads.ErrMissingContact)
}
