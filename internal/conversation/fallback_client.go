package conversation

import (
	"context"
	"log/slog"
)

// LLMObserver receives the outcome of each completion attempt.
type LLMObserver interface {
	ObserveLLM(tier, status string)
}

// FallbackLLMClient tries a primary model and, when it errors or answers with
// nothing, the fallback model exactly once with the same request.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *slog.Logger
	observer LLMObserver
}

// NewFallbackLLMClient wraps primary with an optional fallback.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *slog.Logger) *FallbackLLMClient {
	if primary == nil {
		panic("conversation: primary LLM client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackLLMClient{primary: primary, fallback: fallback, logger: logger}
}

// WithObserver attaches a metrics observer and returns the client.
func (c *FallbackLLMClient) WithObserver(o LLMObserver) *FallbackLLMClient {
	c.observer = o
	return c
}

// Complete sends req to the primary model, then to the fallback on failure.
func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, primaryErr := c.attempt(ctx, "primary", c.primary, req)
	if primaryErr == nil {
		return resp, nil
	}
	if c.fallback == nil {
		c.logger.Warn("primary LLM failed with no fallback configured", "error", primaryErr)
		return LLMResponse{}, primaryErr
	}
	// A cancelled caller will not see a fallback answer either.
	if ctx.Err() != nil {
		return LLMResponse{}, primaryErr
	}

	c.logger.Warn("primary LLM failed, attempting fallback", "error", primaryErr)
	resp, fallbackErr := c.attempt(ctx, "fallback", c.fallback, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", primaryErr,
			"fallback_error", fallbackErr,
		)
		return LLMResponse{}, fallbackErr
	}
	c.logger.Info("fallback LLM succeeded after primary failure", "model", resp.Model)
	return resp, nil
}

func (c *FallbackLLMClient) attempt(ctx context.Context, tier string, client LLMClient, req LLMRequest) (LLMResponse, error) {
	resp, err := client.Complete(ctx, req)
	switch {
	case err != nil:
		c.observe(tier, "error")
		return LLMResponse{}, err
	case resp.Answer() == "":
		c.observe(tier, "empty")
		return LLMResponse{}, ErrEmptyCompletion
	}
	c.observe(tier, "ok")
	return resp, nil
}

func (c *FallbackLLMClient) observe(tier, status string) {
	if c.observer != nil {
		c.observer.ObserveLLM(tier, status)
	}
}
