// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService provides text generation for chunk summaries and reductions.
//
// Implementations may include:
//   - OpenAI (GPT-4o family)
//   - Anthropic (Claude)
//   - Google Gemini
//   - Ollama (local models)
//
// Implementations classify provider failures with the domain sentinels
// (ErrRateLimited, ErrTimeout, ErrUnavailable, ErrContentPolicy) so the
// orchestrator can decide whether to retry.
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
