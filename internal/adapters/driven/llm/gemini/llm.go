// Package gemini provides an LLM service adapter using the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/precis/internal/adapters/driven/llm"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

const provider = "gemini"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the LLM model to use (default: gemini-1.5-flash).
	Model string

	// Endpoint overrides the API endpoint. Empty uses Google's.
	Endpoint string
}

// LLMService provides LLM operations using the Gemini API.
type LLMService struct {
	client *genai.Client
	model  string
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &LLMService{client: client, model: cfg.Model}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	model := s.client.GenerativeModel(s.model)
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens)) //nolint:gosec // G115: token limits are small
	}
	if opts.Temperature > 0 {
		model.SetTemperature(float32(opts.Temperature))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: empty response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// classify maps Gemini errors onto the retry sentinels.
func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return llm.ContentPolicy(provider, blocked.Error())
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return llm.FromStatus(provider, apiErr.Code, err)
	}

	return llm.FromTransport(provider, err)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by fetching model metadata.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.GenerativeModel(s.model).Info(ctx); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", classify(err))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return s.client.Close()
}
