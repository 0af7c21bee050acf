package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/channels/messenger"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/leads"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

const testSecret = "dealer-secret"

type recordingClearer struct {
	cleared []string
	err     error
}

func (c *recordingClearer) Clear(_ context.Context, userID string) error {
	c.cleared = append(c.cleared, userID)
	return c.err
}

func newTestRouter(t *testing.T, mutate func(*Config)) (http.Handler, *leads.InMemoryRepository, *recordingClearer) {
	t.Helper()

	logger := logging.Default()
	repo := leads.NewInMemoryRepository()
	clearer := &recordingClearer{}
	cfg := &Config{
		Logger:       logger,
		Webhook:      messenger.NewWebhookHandler("verify-me", "", nil, nil, logger),
		LeadsHandler: leads.NewHandler(repo, nil, testSecret, logger),
		Relay: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		Conversations:   clearer,
		AdminAuthSecret: testSecret,
	}
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg), repo, clearer
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/leads/login", bytes.NewBufferString(`{"password":"`+testSecret+`"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.NotEmpty(t, body["token"])
	return body["token"]
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterHealthDegraded(t *testing.T) {
	router, _, _ := newTestRouter(t, func(cfg *Config) {
		cfg.HealthChecks = map[string]HealthCheck{
			"redis":    func(context.Context) error { return errors.New("connection refused") },
			"postgres": func(context.Context) error { return nil },
		}
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, "connection refused", resp["redis"])
	assert.Equal(t, "ok", resp["postgres"])
}

func TestRouterWebhookVerification(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "42", rr.Body.String())
}

func TestRouterLeadsRequireAuth(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	for _, path := range []string{"/leads", "/leads/appointments"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestRouterLeadsWithToken(t *testing.T) {
	router, repo, _ := newTestRouter(t, nil)
	require.NoError(t, repo.Append(context.Background(), leads.Lead{Name: "Ana Lopez", Phone: "5551234567", Stage: leads.StageNew}))

	token := login(t, router)
	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp leads.ListLeadsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Ana Lopez", resp.Leads[0].Name)
}

func TestRouterLoginRejectsWrongPassword(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/leads/login", bytes.NewBufferString(`{"password":"nope"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouterClearConversation(t *testing.T) {
	router, _, clearer := newTestRouter(t, nil)
	token := login(t, router)

	req := httptest.NewRequest(http.MethodDelete, "/conversations/psid-42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"psid-42"}, clearer.cleared)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/conversations/psid-42", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouterClearConversationFailure(t *testing.T) {
	router, _, clearer := newTestRouter(t, nil)
	clearer.err = errors.New("redis down")
	token := login(t, router)

	req := httptest.NewRequest(http.MethodDelete, "/conversations/psid-42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRouterRateLimitsInbound(t *testing.T) {
	router, _, _ := newTestRouter(t, func(cfg *Config) {
		cfg.RateLimitRPS = 0.001
		cfg.RateLimitBurst = 1
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/sendMessage", bytes.NewBufferString(`{}`))
		req.RemoteAddr = "198.51.100.4:4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	// the dashboard is not limited
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterMetrics(t *testing.T) {
	router, _, _ := newTestRouter(t, func(cfg *Config) {
		cfg.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("dealerbot_chat_turns_total 1\n"))
		})
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "dealerbot_chat_turns_total")
}
