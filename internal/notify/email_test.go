package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecipients(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{" , ;", nil},
		{"sales@dealer.example", []string{"sales@dealer.example"}},
		{"sales@dealer.example; bdc@dealer.example ,SALES@dealer.example", []string{"sales@dealer.example", "bdc@dealer.example"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRecipients(tt.raw), "raw=%q", tt.raw)
	}
}

func TestEmailMessageValidate(t *testing.T) {
	assert.ErrorIs(t, EmailMessage{Subject: "s"}.validate(), errNoRecipients)
	assert.ErrorIs(t, EmailMessage{To: []string{"a@b.c"}, Subject: " "}.validate(), errNoSubject)
	assert.NoError(t, EmailMessage{To: []string{"a@b.c"}, Subject: "s"}.validate())
}

func TestEmailMessageHTMLBodyFallsBackToEscapedText(t *testing.T) {
	msg := EmailMessage{Body: "Name: Jane\nAsked about <Rogue>\n"}
	assert.Equal(t, "<p>Name: Jane<br>Asked about &lt;Rogue&gt;</p>", msg.htmlBody())

	msg.HTML = "<b>custom</b>"
	assert.Equal(t, "<b>custom</b>", msg.htmlBody())
}

func TestStubEmailSenderRejectsInvalidMessage(t *testing.T) {
	stub := NewStubEmailSender(nil)
	assert.ErrorIs(t, stub.Send(context.Background(), EmailMessage{Subject: "s"}), errNoRecipients)
	assert.Empty(t, stub.Sent())
}

func TestNewSendGridSenderNilWithoutAPIKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "bot@dealer.example"}, nil))
}

func TestSendGridSenderSend(t *testing.T) {
	var payload struct {
		From struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"from"`
		Subject          string `json:"subject"`
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/v3/mail/send" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "sg-key",
		FromEmail: "bot@dealer.example",
		Host:      srv.URL,
	}, nil)
	require.NotNil(t, sender)

	err := sender.Send(context.Background(), EmailMessage{
		To:      []string{"sales@dealer.example", "bdc@dealer.example"},
		Subject: "New test drive booked",
		Body:    "Jane Doe, Monday at 9",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sg-key", auth)
	assert.Equal(t, "New test drive booked", payload.Subject)
	assert.Equal(t, defaultFromName, payload.From.Name)

	require.Len(t, payload.Personalizations, 1)
	require.Len(t, payload.Personalizations[0].To, 2)
	assert.Equal(t, "bdc@dealer.example", payload.Personalizations[0].To[1].Email)

	require.Len(t, payload.Content, 2)
	assert.Equal(t, "text/plain", payload.Content[0].Type)
	assert.Equal(t, "<p>Jane Doe, Monday at 9</p>", payload.Content[1].Value)
}

func TestSendGridSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "bad", FromEmail: "a@b.c", Host: srv.URL}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: []string{"x@y.z"}, Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSendGridSenderWithoutClient(t *testing.T) {
	err := (&SendGridSender{}).Send(context.Background(), EmailMessage{To: []string{"x@y.z"}, Subject: "s"})
	assert.Error(t, err)
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSenderSend(t *testing.T) {
	api := &fakeSES{}
	sender := newSESSender(api, SESConfig{FromEmail: "bot@dealer.example", FromName: "Johnson City Nissan"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      []string{"sales@dealer.example", "bdc@dealer.example"},
		Subject: "Lead",
		Body:    "plain",
		HTML:    "<p>plain</p>",
	})
	require.NoError(t, err)
	require.NotNil(t, api.input)
	assert.Equal(t, `"Johnson City Nissan" <bot@dealer.example>`, aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"sales@dealer.example", "bdc@dealer.example"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "plain", aws.ToString(api.input.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>plain</p>", aws.ToString(api.input.Content.Simple.Body.Html.Data))
}

func TestSESSenderError(t *testing.T) {
	sender := newSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "a@b.c"}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: []string{"x@y.z"}, Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestSESSenderSkipsAPIForInvalidMessage(t *testing.T) {
	api := &fakeSES{}
	sender := newSESSender(api, SESConfig{FromEmail: "a@b.c"}, nil)
	assert.ErrorIs(t, sender.Send(context.Background(), EmailMessage{To: []string{"x@y.z"}}), errNoSubject)
	assert.Nil(t, api.input)
}

func TestNewSESSenderNilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
}
