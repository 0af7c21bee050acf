package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type graphStub struct {
	mu       sync.Mutex
	requests []SendRequest
	tokens   []string
	respond  func(w http.ResponseWriter)
}

func (g *graphStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/me/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		g.mu.Lock()
		g.requests = append(g.requests, req)
		g.tokens = append(g.tokens, r.URL.Query().Get("access_token"))
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if g.respond != nil {
			g.respond(w)
			return
		}
		json.NewEncoder(w).Encode(SendResponse{RecipientID: req.Recipient.ID, MessageID: "mid_001"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSendTextMessage(t *testing.T) {
	stub := &graphStub{}
	srv := stub.server(t)
	client := NewClient("test_token", WithGraphAPIBase(srv.URL))

	resp, err := client.SendTextMessage(context.Background(), "user_1", "Hello from bot")
	if err != nil {
		t.Fatal(err)
	}
	if resp.RecipientID != "user_1" {
		t.Errorf("recipient = %s, want user_1", resp.RecipientID)
	}
	if len(stub.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(stub.requests))
	}
	got := stub.requests[0]
	if got.Message == nil || got.Message.Text != "Hello from bot" {
		t.Errorf("sent message = %+v", got.Message)
	}
	if got.MessagingType != "RESPONSE" {
		t.Errorf("messaging_type = %q", got.MessagingType)
	}
	if stub.tokens[0] != "test_token" {
		t.Errorf("access_token = %q", stub.tokens[0])
	}
}

func TestSendTextMessageSplitsLongText(t *testing.T) {
	stub := &graphStub{}
	srv := stub.server(t)
	client := NewClient("token", WithGraphAPIBase(srv.URL))

	line := strings.Repeat("a", 99) + "\n"
	text := strings.Repeat(line, 30) // 3000 runes

	if _, err := client.SendTextMessage(context.Background(), "user_1", text); err != nil {
		t.Fatal(err)
	}
	if len(stub.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(stub.requests))
	}
	for _, req := range stub.requests {
		if n := len([]rune(req.Message.Text)); n > maxTextRunes {
			t.Errorf("part has %d runes", n)
		}
	}
}

func TestSendSenderAction(t *testing.T) {
	stub := &graphStub{}
	srv := stub.server(t)
	client := NewClient("token", WithGraphAPIBase(srv.URL))

	if err := client.SendSenderAction(context.Background(), "user_1", ActionTypingOn); err != nil {
		t.Fatal(err)
	}
	got := stub.requests[0]
	if got.SenderAction != ActionTypingOn {
		t.Errorf("sender_action = %q", got.SenderAction)
	}
	if got.Message != nil {
		t.Errorf("expected no message, got %+v", got.Message)
	}
}

func TestSendTextMessageAPIError(t *testing.T) {
	stub := &graphStub{respond: func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(SendResponse{
			Error: &SendError{Code: 190, Message: "Invalid OAuth access token", Type: "OAuthException"},
		})
	}}
	srv := stub.server(t)
	client := NewClient("bad_token", WithGraphAPIBase(srv.URL))

	_, err := client.SendTextMessage(context.Background(), "user_1", "test")
	if err == nil {
		t.Fatal("expected error for API error response")
	}
	if strings.Contains(err.Error(), "bad_token") {
		t.Errorf("error leaks token: %v", err)
	}
}

func TestSplitText(t *testing.T) {
	if got := splitText("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("splitText(short) = %q", got)
	}
	got := splitText("one two three four five", 10)
	for _, part := range got {
		if len([]rune(part)) > 10 {
			t.Errorf("part %q too long", part)
		}
	}
	if strings.Join(got, " ") != "one two three four five" {
		t.Errorf("parts = %q", got)
	}
}
