package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/appointment"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/bookings"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/calendar"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/chat"
	appconfig "github.com/nahalewski/Facebook-Messenger-Openai/internal/config"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/conversation"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/extract"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/inventory"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/leads"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/notify"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/observability/metrics"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

// Deps are the process-level collaborators the chat runtime is built on.
// Redis, Postgres and AWS are optional; LLM overrides BuildLLMClient.
type Deps struct {
	Logger   *logging.Logger
	Metrics  *metrics.ChatMetrics
	Redis    *redis.Client
	Postgres *pgxpool.Pool
	AWS      *aws.Config
	LLM      conversation.LLMClient
}

// Runtime is the assembled reply pipeline plus the stores the HTTP surface
// exposes.
type Runtime struct {
	Orchestrator *chat.Orchestrator
	Session      *appointment.Session
	History      *conversation.Manager
	Calendar     *calendar.Calendar
	Leads        leads.Repository
	Bookings     *bookings.Service
	Notifier     *notify.Service

	closers []func() error
}

// Close waits for in-flight notifications and releases owned clients.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	if r.Orchestrator != nil {
		r.Orchestrator.Wait()
	}
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildRuntime wires the chat pipeline from config.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, deps Deps) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{}

	cal, err := BuildCalendar(cfg)
	if err != nil {
		return nil, err
	}
	rt.Calendar = cal

	required, err := appointment.ParseSlots(cfg.RequiredSlots)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	refresh, err := appointment.ParseSlots(cfg.RefreshSlots)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	stateStore, historyStore, err := buildStores(cfg, deps.Redis)
	if err != nil {
		return nil, err
	}

	session, err := appointment.NewSession(stateStore,
		extract.New(
			extract.WithDefaultHour(cfg.DefaultAppointmentHour),
			extract.WithExcludedPhrases(cfg.DealerName),
		),
		cal,
		appointment.WithRequiredSlots(required...),
		appointment.WithRefreshSlots(refresh...),
		appointment.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	rt.Session = session

	labels := make([]string, 0, len(session.RequiredSlots()))
	for _, slot := range session.RequiredSlots() {
		labels = append(labels, slot.Label())
	}
	rt.History = conversation.NewManager(historyStore,
		conversation.WithHistoryLimit(cfg.HistoryLimit),
		conversation.WithSystemPrompt(conversation.BuildSystemPrompt(conversation.PromptConfig{
			DealerName:  cfg.DealerName,
			DealerPhone: cfg.DealerPhone,
			Hours:       cal.Summary(),
			Required:    labels,
		})),
	)

	llm := deps.LLM
	if llm == nil {
		client, closer, err := BuildLLMClient(ctx, cfg, deps.Metrics, logger)
		if err != nil {
			return nil, err
		}
		llm = client
		rt.closers = append(rt.closers, closer)
	}

	rt.Leads = BuildLeadsRepository(cfg, deps.Postgres)
	rt.Bookings = BuildBookingsService(cfg, deps.Postgres, logger)

	email, err := BuildEmailSender(cfg, deps.AWS, logger)
	if err != nil {
		return nil, err
	}
	rt.Notifier = notify.NewService(notify.Config{
		To:         notify.ParseRecipients(cfg.NotifyEmailTo),
		DealerName: cfg.DealerName,
	}, email, rt.Bookings, rt.Leads, logger)

	opts := []chat.Option{
		chat.WithNotifier(rt.Notifier),
		chat.WithMetrics(deps.Metrics),
		chat.WithLogger(logger),
		chat.WithDealer(cfg.DealerName, cfg.DealerPhone),
		chat.WithTimeouts(cfg.LLMTimeout, 0, 0),
	}
	if cfg.InventoryBaseURL != "" {
		opts = append(opts, chat.WithInventory(inventory.NewScraper(cfg.InventoryBaseURL, inventory.WithLogger(logger))))
	}
	rt.Orchestrator = chat.NewOrchestrator(session, rt.History, llm, opts...)

	logger.Info("chat runtime ready",
		"session_store", cfg.SessionStore,
		"required_slots", cfg.RequiredSlots,
		"email_provider", cfg.EmailProvider,
		"postgres", deps.Postgres != nil,
		"inventory", cfg.InventoryBaseURL != "",
	)
	return rt, nil
}

// BuildCalendar loads BUSINESS_HOURS_FILE, or the built-in week when unset.
func BuildCalendar(cfg *appconfig.Config) (*calendar.Calendar, error) {
	loc, err := time.LoadLocation(cfg.DealerTimezone)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load timezone %q: %w", cfg.DealerTimezone, err)
	}
	if cfg.BusinessHoursFile != "" {
		cal, err := calendar.LoadFile(cfg.BusinessHoursFile, loc)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		return cal, nil
	}
	cal, err := calendar.New(calendar.DefaultTable(), loc)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return cal, nil
}

func buildStores(cfg *appconfig.Config, client *redis.Client) (appointment.StateStore, conversation.HistoryStore, error) {
	switch cfg.SessionStore {
	case "redis":
		if client == nil {
			return nil, nil, fmt.Errorf("bootstrap: SESSION_STORE=redis but no redis client")
		}
		return appointment.NewRedisStateStore(client, cfg.SessionTTL),
			conversation.NewRedisHistoryStore(client, cfg.SessionTTL), nil
	default:
		return appointment.NewMemoryStateStore(), conversation.NewMemoryHistoryStore(), nil
	}
}

// BuildLeadsRepository prefers Postgres and falls back to the CSV file.
func BuildLeadsRepository(cfg *appconfig.Config, pool *pgxpool.Pool) leads.Repository {
	if pool != nil {
		return leads.NewPostgresRepository(pool)
	}
	if cfg.LeadsFile != "" {
		return leads.NewCSVRepository(cfg.LeadsFile)
	}
	return leads.NewInMemoryRepository()
}

// BuildBookingsService always keeps the CSV log and adds Postgres when
// connected.
func BuildBookingsService(cfg *appconfig.Config, pool *pgxpool.Pool, logger *logging.Logger) *bookings.Service {
	var repos []bookings.Repository
	if cfg.AppointmentsFile != "" {
		repos = append(repos, bookings.NewCSVLog(cfg.AppointmentsFile))
	}
	if pool != nil {
		repos = append(repos, bookings.NewPostgresRepository(pool))
	}
	return bookings.NewService(logger, repos...)
}

// BuildEmailSender selects the notification transport.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, error) {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil, fmt.Errorf("bootstrap: sendgrid selected without SENDGRID_API_KEY")
		}
		return sender, nil
	case "ses":
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: ses selected without aws config")
		}
		return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger), nil
	default:
		return notify.NewStubEmailSender(logger), nil
	}
}
