// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/custodia-labs/precis/internal/adapters/driven/llm"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

const provider = "ollama"

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using Ollama.
type LLMService struct {
	client *api.Client
	model  string
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base URL %q: %w", cfg.BaseURL, err)
	}

	return &LLMService{
		client: api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		model:  cfg.Model,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  s.model,
		Prompt: prompt,
		Stream: &stream,
	}

	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		req.Options = map[string]any{}
		if opts.MaxTokens > 0 {
			req.Options["num_predict"] = opts.MaxTokens
		}
		if opts.Temperature > 0 {
			req.Options["temperature"] = opts.Temperature
		}
	}

	var out strings.Builder
	err := s.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", classify(err)
	}

	return out.String(), nil
}

// classify maps Ollama client errors onto the retry sentinels.
// A model that is still loading answers 503, which is worth retrying.
func classify(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return llm.FromStatus(provider, statusErr.StatusCode, err)
	}
	return llm.FromTransport(provider, err)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the server is reachable without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", classify(err))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
