// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/precis/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/precis/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/precis/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/precis/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/precis/internal/adapters/driven/llm/ratelimit"
	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: run 'precis config llm' first", domain.ErrLLMUnavailable)
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
// An unconfigured provider is not an error.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	return ping(settings, pingTimeout)
}

// CreateLLMService creates the LLM service for settings, wrapped in a
// client-side rate limiter when one is configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider not configured", domain.ErrLLMUnavailable)
	}

	var (
		svc driven.LLMService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc, err = ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenAI:
		svc, err = openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		svc, err = anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGemini:
		svc, err = geminillm.NewLLMService(context.Background(), geminillm.Config{
			APIKey:   settings.APIKey,
			Model:    settings.Model,
			Endpoint: settings.BaseURL,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	// Retry-After pauses apply even without a configured rate.
	return ratelimit.New(svc, settings.RequestsPerSecond, settings.Burst), nil
}
