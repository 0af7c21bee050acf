package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nahalewski/Facebook-Messenger-Openai/cmd/mainconfig"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/app/bootstrap"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/channels/messenger"
	appconfig "github.com/nahalewski/Facebook-Messenger-Openai/internal/config"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/observability/metrics"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/worker"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("conversation worker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	if cfg.UseMemoryQueue {
		return fmt.Errorf("conversation worker cannot run when USE_MEMORY_QUEUE=true; run inline workers via the API process instead")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
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
		Metrics:  metrics.NewChatMetrics(prometheus.NewRegistry()),
		Redis:    redisClient,
		Postgres: pool,
		AWS:      &awsConfig,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	queue, err := bootstrap.BuildQueue(cfg, &awsConfig)
	if err != nil {
		return err
	}
	graph := messenger.NewClient(cfg.PageAccessToken, messenger.WithGraphAPIBase(cfg.GraphAPIBase))
	w := worker.NewWorker(
		messenger.NewProcessor(graph, rt.Orchestrator, logger),
		queue,
		logger,
		worker.WithWorkerCount(cfg.WorkerCount),
	)
	w.Start(ctx)
	logger.Info("conversation worker started", "count", cfg.WorkerCount, "queue", cfg.ConversationQueueURL)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		w.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversation worker shutdown timed out", "error", doneCtx.Err())
	}
	return nil
}
