package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nahalewski/Facebook-Messenger-Openai/cmd/mainconfig"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/api/router"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/app/bootstrap"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/channels/messenger"
	appconfig "github.com/nahalewski/Facebook-Messenger-Openai/internal/config"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/leads"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/observability/metrics"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/worker"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dealership messenger bot",
		"env", cfg.Env,
		"port", cfg.Port,
		"dealer", cfg.DealerName,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	metricsHandler, chatMetrics := setupMetrics()

	awsCfg, err := loadAWS(ctx, cfg)
	if err != nil {
		return err
	}

	redisClient, err := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	rt, err := bootstrap.BuildRuntime(ctx, cfg, bootstrap.Deps{
		Logger:   logger,
		Metrics:  chatMetrics,
		Redis:    redisClient,
		Postgres: pool,
		AWS:      awsCfg,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("runtime close failed", "error", err)
		}
	}()

	graph := messenger.NewClient(cfg.PageAccessToken, messenger.WithGraphAPIBase(cfg.GraphAPIBase))
	processor := messenger.NewProcessor(graph, rt.Orchestrator, logger)

	queue, err := bootstrap.BuildQueue(cfg, awsCfg)
	if err != nil {
		return err
	}
	publisher := worker.NewPublisher(queue, logger)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(&router.Config{
			Logger:             logger,
			Webhook:            messenger.NewWebhookHandler(cfg.VerifyToken, cfg.AppSecret, publisher.EnqueueMessenger, chatMetrics, logger),
			Relay:              messenger.NewRelayHandler(processor, logger),
			LeadsHandler:       leads.NewHandler(rt.Leads, rt.Bookings, cfg.AdminSecret, logger),
			Conversations:      rt.Orchestrator,
			MetricsHandler:     metricsHandler,
			AdminAuthSecret:    cfg.AdminSecret,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			RateLimitRPS:       cfg.RateLimitRPS,
			RateLimitBurst:     cfg.RateLimitBurst,
			HealthChecks:       healthChecks(redisClient, pool),
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.UseMemoryQueue {
		inline := worker.NewWorker(processor, queue, logger, worker.WithWorkerCount(cfg.WorkerCount))
		inline.Start(gctx)
		logger.Info("inline workers started", "count", cfg.WorkerCount)
		g.Go(func() error {
			inline.Wait()
			return nil
		})
	} else {
		logger.Info("publishing inbound messages to SQS", "queue", cfg.ConversationQueueURL)
	}

	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func setupMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewChatMetrics(reg)
}

func loadAWS(ctx context.Context, cfg *appconfig.Config) (*aws.Config, error) {
	if !mainconfig.NeedsAWS(cfg) {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &awsCfg, nil
}

func healthChecks(redisClient *redis.Client, pool *pgxpool.Pool) map[string]router.HealthCheck {
	checks := make(map[string]router.HealthCheck)
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	return checks
}
