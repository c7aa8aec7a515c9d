// Package anthropic provides an LLM service adapter using the Anthropic API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/custodia-labs/precis/internal/adapters/driven/llm"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

const provider = "anthropic"

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using Anthropic API.
type LLMService struct {
	client sdk.Client
	model  string
	now    func() time.Time
}

// NewLLMService creates a new Anthropic LLM service.
// The SDK's own retries are disabled; callers decide what to retry.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := sdk.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	)

	return &LLMService{
		client: client,
		model:  cfg.Model,
		now:    time.Now,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	// Anthropic requires max_tokens to be set
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(s.model),
		MaxTokens: int64(maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if opts.Temperature > 0 {
		params.Temperature = sdk.Float(opts.Temperature)
	}

	msg, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", s.classify(err)
	}

	if msg.StopReason == "refusal" {
		return "", llm.ContentPolicy(provider, "model refused the request")
	}

	// Concatenate all text content blocks
	var result strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(sdk.TextBlock); ok {
			result.WriteString(tb.Text)
		}
	}
	if result.Len() == 0 {
		return "", fmt.Errorf("anthropic: no response content returned")
	}

	return result.String(), nil
}

// classify maps SDK errors onto the retry sentinels, keeping any
// Retry-After the server sent.
func (s *LLMService) classify(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		classified := llm.FromStatus(provider, apiErr.StatusCode, err)
		if apiErr.Response != nil {
			classified = llm.WithRetryAfter(classified, apiErr.Response.Header, s.now())
		}
		return classified
	}
	return llm.FromTransport(provider, err)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by listing one model.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.List(ctx, sdk.ModelListParams{Limit: sdk.Int(1)}); err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", s.classify(err))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
