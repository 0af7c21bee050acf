package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/nahalewski/Facebook-Messenger-Openai/internal/config"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, m := setupMetrics()
	if handler == nil || m == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	m.ObserveWebhook("message", "ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "dealerbot_messenger_webhook_events_total") {
		t.Fatalf("expected webhook counter to be exported")
	}
}

func TestSetupMetricsUsesPrivateRegistry(t *testing.T) {
	// Registering twice would panic on a shared registry.
	setupMetrics()
	setupMetrics()
}

func TestLoadAWSSkippedWithoutAWSComponents(t *testing.T) {
	cfg := &appconfig.Config{UseMemoryQueue: true, EmailProvider: "stub"}
	awsCfg, err := loadAWS(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg != nil {
		t.Fatalf("expected no aws config")
	}
}

func TestLoadAWSForSQS(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		UseMemoryQueue:       false,
		AWSRegion:            "us-east-1",
		AWSAccessKeyID:       "test",
		AWSSecretAccessKey:   "test",
		AWSEndpointOverride:  "http://localhost:4566",
		ConversationQueueURL: "http://localhost:4566/000000000000/inbound",
	}
	awsCfg, err := loadAWS(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg == nil || awsCfg.Region != "us-east-1" {
		t.Fatalf("expected aws config for us-east-1, got %+v", awsCfg)
	}
}

func TestHealthChecks(t *testing.T) {
	if checks := healthChecks(nil, nil); len(checks) != 0 {
		t.Fatalf("expected no checks, got %d", len(checks))
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	checks := healthChecks(client, nil)
	check, ok := checks["redis"]
	if !ok {
		t.Fatalf("expected redis check")
	}
	if err := check(context.Background()); err != nil {
		t.Fatalf("expected healthy redis, got %v", err)
	}
	mr.Close()
	if err := check(context.Background()); err == nil {
		t.Fatalf("expected redis check to fail once closed")
	}
}
