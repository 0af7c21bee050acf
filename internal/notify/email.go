package notify

import (
	"context"
	"errors"
	"html"
	"strings"
	"sync"

	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

const defaultFromName = "Dealership Assistant"

var (
	errNoRecipients = errors.New("notify: email has no recipients")
	errNoSubject    = errors.New("notify: email has no subject")
)

// EmailSender delivers one message. SendGrid, SES and the stub implement it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain text message with an optional HTML alternative.
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
	HTML    string
}

func (m EmailMessage) validate() error {
	if len(m.To) == 0 {
		return errNoRecipients
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errNoSubject
	}
	return nil
}

// htmlBody falls back to the escaped text body.
func (m EmailMessage) htmlBody() string {
	if m.HTML != "" {
		return m.HTML
	}
	return toHTML(m.Body)
}

// ParseRecipients splits a comma or semicolon separated address list,
// dropping blanks and case-insensitive duplicates.
func ParseRecipients(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		addr := strings.TrimSpace(f)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func toHTML(body string) string {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	for i, line := range lines {
		lines[i] = html.EscapeString(line)
	}
	return "<p>" + strings.Join(lines, "<br>") + "</p>"
}

// StubEmailSender logs instead of sending. Sent messages are kept so local
// runs and tests can inspect them.
type StubEmailSender struct {
	mu     sync.Mutex
	sent   []EmailMessage
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.logger.Info("email not sent (stub provider)", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Sent returns a copy of every recorded message.
func (s *StubEmailSender) Sent() []EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EmailMessage(nil), s.sent...)
}

var _ EmailSender = (*StubEmailSender)(nil)
