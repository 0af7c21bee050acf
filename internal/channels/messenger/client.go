package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultGraphAPIBase = "https://graph.facebook.com/v18.0"
	defaultHTTPTimeout  = 10 * time.Second

	// maxTextRunes is Messenger's limit for a single text message.
	maxTextRunes = 2000
)

// Client sends messages and sender actions via the Graph API.
type Client struct {
	pageAccessToken string
	graphAPIBase    string
	httpClient      *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithGraphAPIBase overrides the Graph API base URL.
func WithGraphAPIBase(base string) ClientOption {
	return func(c *Client) {
		if base != "" {
			c.graphAPIBase = strings.TrimRight(base, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new Graph API client.
func NewClient(pageAccessToken string, opts ...ClientOption) *Client {
	c := &Client{
		pageAccessToken: pageAccessToken,
		graphAPIBase:    DefaultGraphAPIBase,
		httpClient:      &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendTextMessage sends text to recipientID. Text longer than Messenger
// allows is sent as several messages, split on line breaks where possible.
func (c *Client) SendTextMessage(ctx context.Context, recipientID, text string) (*SendResponse, error) {
	var last *SendResponse
	for _, part := range splitText(text, maxTextRunes) {
		resp, err := c.send(ctx, SendRequest{
			Recipient:     Participant{ID: recipientID},
			MessagingType: "RESPONSE",
			Message:       &SendMessage{Text: part},
		})
		if err != nil {
			return resp, err
		}
		last = resp
	}
	return last, nil
}

// SendSenderAction shows or hides the typing indicator, or marks the
// conversation seen.
func (c *Client) SendSenderAction(ctx context.Context, recipientID string, action SenderAction) error {
	_, err := c.send(ctx, SendRequest{
		Recipient:    Participant{ID: recipientID},
		SenderAction: action,
	})
	return err
}

func (c *Client) send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("messenger: marshal send request: %w", err)
	}

	endpoint := c.graphAPIBase + "/me/messages?access_token=" + url.QueryEscape(c.pageAccessToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("messenger: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// the URL carries the token; keep it out of logs
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("messenger: send: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("messenger: read response: %w", err)
	}

	var sendResp SendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return nil, fmt.Errorf("messenger: unexpected response (status %d): %w", resp.StatusCode, err)
	}

	if sendResp.Error != nil {
		return &sendResp, fmt.Errorf("messenger: API error %d: %s", sendResp.Error.Code, sendResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return &sendResp, fmt.Errorf("messenger: unexpected status %d", resp.StatusCode)
	}

	return &sendResp, nil
}

// splitText breaks text into parts of at most limit runes, preferring to
// cut after a newline, then after a space.
func splitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var parts []string
	for len(runes) > limit {
		cut := limit
		if i := lastIndex(runes[:limit], '\n'); i > limit/2 {
			cut = i + 1
		} else if i := lastIndex(runes[:limit], ' '); i > limit/2 {
			cut = i + 1
		}
		if part := strings.TrimSpace(string(runes[:cut])); part != "" {
			parts = append(parts, part)
		}
		runes = runes[cut:]
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
