package bootstrap

import (
	"context"
	"fmt"
	"strings"

	appconfig "github.com/nahalewski/Facebook-Messenger-Openai/internal/config"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/conversation"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/observability/metrics"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

// BuildLLMClient wires the primary OpenAI model behind a fallback client. The
// fallback tier is a second OpenAI model or Gemini, per FALLBACK_PROVIDER. The
// returned closer releases the Gemini client when one was opened.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, m *metrics.ChatMetrics, logger *logging.Logger) (conversation.LLMClient, func() error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() error { return nil }

	primary, err := conversation.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.PrimaryModel)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: primary llm: %w", err)
	}

	var fallback conversation.LLMClient
	closer := noop
	switch cfg.FallbackProvider {
	case "gemini":
		model := cfg.FallbackModel
		if strings.HasPrefix(model, "gpt-") {
			model = ""
		}
		gemini, err := conversation.NewGeminiClient(ctx, cfg.GeminiAPIKey, model)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: fallback llm: %w", err)
		}
		fallback = gemini
		closer = gemini.Close
	default:
		if strings.TrimSpace(cfg.FallbackModel) != "" && cfg.FallbackModel != cfg.PrimaryModel {
			fallback, err = conversation.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.FallbackModel)
			if err != nil {
				return nil, nil, fmt.Errorf("bootstrap: fallback llm: %w", err)
			}
		}
	}

	logger.Info("llm configured",
		"primary_model", primary.Model(),
		"fallback_provider", cfg.FallbackProvider,
		"fallback_model", cfg.FallbackModel,
		"fallback_enabled", fallback != nil,
	)
	client := conversation.NewFallbackLLMClient(primary, fallback, logger.Logger)
	if m != nil {
		client = client.WithObserver(m)
	}
	return client, closer, nil
}
