package router

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/channels/messenger"
	httpmiddleware "github.com/nahalewski/Facebook-Messenger-Openai/internal/http/middleware"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/leads"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

// ConversationClearer forgets a user's chat history and booking progress.
type ConversationClearer interface {
	Clear(ctx context.Context, userID string) error
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Webhook        *messenger.WebhookHandler
	Relay          http.Handler
	LeadsHandler   *leads.Handler
	Conversations  ConversationClearer
	MetricsHandler http.Handler

	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// RateLimitRPS and RateLimitBurst apply per client IP to the webhook
	// and relay endpoints. Zero RPS disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	HealthChecks map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(logger))

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Inbound message endpoints
	r.Group(func(inbound chi.Router) {
		if cfg.RateLimitRPS > 0 {
			inbound.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		}
		if cfg.Webhook != nil {
			inbound.Get("/webhook", cfg.Webhook.HandleVerification)
			inbound.Post("/webhook", cfg.Webhook.HandleInbound)
		}
		if cfg.Relay != nil {
			inbound.Post("/sendMessage", cfg.Relay.ServeHTTP)
		}
	})

	// Dashboard
	if cfg.LeadsHandler != nil {
		r.Route("/leads", func(lr chi.Router) {
			lr.Post("/login", cfg.LeadsHandler.Login)
			lr.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
				admin.Get("/", cfg.LeadsHandler.ListLeads)
				admin.Post("/upload", cfg.LeadsHandler.Upload)
				admin.Get("/appointments", cfg.LeadsHandler.ListAppointments)
			})
		})
	}

	if cfg.Conversations != nil {
		r.With(httpmiddleware.AdminJWT(cfg.AdminAuthSecret)).
			Delete("/conversations/{userID}", clearConversationHandler(cfg.Conversations, logger))
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		writeJSON(w, status, body)
	}
}

func clearConversationHandler(c ConversationClearer, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(chi.URLParam(r, "userID"))
		if userID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user id is required"})
			return
		}
		if err := c.Clear(r.Context(), userID); err != nil {
			logger.Error("failed to clear conversation", "user_id", userID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear conversation"})
			return
		}
		logger.Info("conversation cleared", "user_id", userID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
