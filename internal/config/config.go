package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/appointment"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Messenger
	VerifyToken     string
	PageAccessToken string
	AppSecret       string
	GraphAPIBase    string

	// LLM
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	PrimaryModel     string
	FallbackModel    string
	FallbackProvider string
	GeminiAPIKey     string
	LLMTimeout       time.Duration
	HistoryLimit     int

	// Session registries
	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	// Appointment capture
	RequiredSlots          string
	RefreshSlots           string
	DefaultAppointmentHour int

	// Dealership
	DealerName        string
	DealerPhone       string
	DealerTimezone    string
	BusinessHoursFile string
	InventoryBaseURL  string

	// Persistence
	LeadsFile        string
	AppointmentsFile string
	DatabaseURL      string
	AdminSecret      string

	// Notifications
	NotifyEmailTo     string
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Inbound processing
	UseMemoryQueue       bool
	ConversationQueueURL string
	WorkerCount          int

	// HTTP
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		VerifyToken:     getEnv("VERIFY_TOKEN", ""),
		PageAccessToken: getEnv("PAGE_ACCESS_TOKEN", ""),
		AppSecret:       getEnv("APP_SECRET", ""),
		GraphAPIBase:    getEnv("GRAPH_API_BASE", "https://graph.facebook.com/v18.0"),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		PrimaryModel:     getEnv("PRIMARY_MODEL", "gpt-4"),
		FallbackModel:    getEnv("FALLBACK_MODEL", "gpt-3.5-turbo"),
		FallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("FALLBACK_PROVIDER", "openai"))),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		LLMTimeout:       getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		HistoryLimit:     getEnvAsInt("HISTORY_LIMIT", 10),

		SessionStore:  strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "memory"))),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		RequiredSlots:          getEnv("REQUIRED_SLOTS", "name,phone,datetime"),
		RefreshSlots:           getEnv("REFRESH_SLOTS", ""),
		DefaultAppointmentHour: getEnvAsInt("DEFAULT_APPOINTMENT_HOUR", 10),

		DealerName:        getEnv("DEALER_NAME", "Johnson City Nissan"),
		DealerPhone:       getEnv("DEALER_PHONE", "(423) 282-2221"),
		DealerTimezone:    getEnv("DEALER_TIMEZONE", "America/New_York"),
		BusinessHoursFile: getEnv("BUSINESS_HOURS_FILE", ""),
		InventoryBaseURL:  getEnv("INVENTORY_BASE_URL", "https://www.johnsoncitynissan.com"),

		LeadsFile:        getEnv("LEADS_FILE", "leads.csv"),
		AppointmentsFile: getEnv("APPOINTMENTS_FILE", "appointments.csv"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		AdminSecret:      getEnv("ADMIN_SECRET", ""),

		NotifyEmailTo:     getEnv("NOTIFY_EMAIL_TO", ""),
		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Dealership Assistant"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		UseMemoryQueue:       getEnvAsBool("USE_MEMORY_QUEUE", true),
		ConversationQueueURL: getEnv("CONVERSATION_QUEUE_URL", ""),
		WorkerCount:          getEnvAsInt("WORKER_COUNT", 2),

		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

// Validate checks the choices Load cannot default its way out of.
func (c *Config) Validate() error {
	var errs []error
	if _, err := appointment.ParseSlots(c.RequiredSlots); err != nil {
		errs = append(errs, fmt.Errorf("REQUIRED_SLOTS: %w", err))
	}
	if _, err := appointment.ParseSlots(c.RefreshSlots); err != nil {
		errs = append(errs, fmt.Errorf("REFRESH_SLOTS: %w", err))
	}
	switch c.SessionStore {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when SESSION_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE must be memory or redis, got %q", c.SessionStore))
	}
	switch c.FallbackProvider {
	case "openai", "":
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when FALLBACK_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("FALLBACK_PROVIDER must be openai or gemini, got %q", c.FallbackProvider))
	}
	switch c.EmailProvider {
	case "stub":
	case "sendgrid":
		if c.SendGridAPIKey == "" || c.SendGridFromEmail == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY and SENDGRID_FROM_EMAIL are required when EMAIL_PROVIDER=sendgrid"))
		}
	case "ses":
		if c.SESFromEmail == "" {
			errs = append(errs, errors.New("SES_FROM_EMAIL is required when EMAIL_PROVIDER=ses"))
		}
	default:
		errs = append(errs, fmt.Errorf("EMAIL_PROVIDER must be sendgrid, ses or stub, got %q", c.EmailProvider))
	}
	if c.DefaultAppointmentHour < 0 || c.DefaultAppointmentHour > 23 {
		errs = append(errs, fmt.Errorf("DEFAULT_APPOINTMENT_HOUR out of range: %d", c.DefaultAppointmentHour))
	}
	if !c.UseMemoryQueue && c.ConversationQueueURL == "" {
		errs = append(errs, errors.New("CONVERSATION_QUEUE_URL is required when USE_MEMORY_QUEUE=false"))
	}
	if _, err := time.LoadLocation(c.DealerTimezone); err != nil {
		errs = append(errs, fmt.Errorf("DEALER_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
