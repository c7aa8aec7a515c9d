package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an LLM service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// APIKeyEnv returns the environment variable consulted when no key is configured.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case AIProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string

	// RequestsPerSecond caps outgoing calls. Zero disables client-side limiting.
	RequestsPerSecond float64

	// Burst is the token bucket size for RequestsPerSecond.
	Burst int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ModelRef returns the provider/model pair used for tokenization and fingerprints.
func (l LLMSettings) ModelRef() ModelRef {
	return ModelRef{Provider: l.Provider, Model: l.Model}
}

// SummarizeSettings configures the map-reduce orchestrator.
type SummarizeSettings struct {
	// Strategy is the default execution strategy.
	Strategy ExecutionStrategy

	// Concurrency bounds in-flight chunk calls for parallel strategies.
	Concurrency int

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialBackoff and MaxBackoff bound the exponential retry delay.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// ChunkTimeout bounds one LLM call. PipelineTimeout bounds the whole run.
	ChunkTimeout    time.Duration
	PipelineTimeout time.Duration

	// DirectThreshold is the document size, in tokens, below which chunking is skipped.
	DirectThreshold int

	// ContextBudget is the largest reduce input, in tokens, sent in one call.
	ContextBudget int

	// MapMaxTokens and ReduceMaxTokens cap generated output per call.
	MapMaxTokens    int
	ReduceMaxTokens int
}

// CacheBackend selects durable cache storage.
type CacheBackend string

// Available cache backends.
const (
	CacheBackendSQLite CacheBackend = "sqlite"
	CacheBackendFile   CacheBackend = "file"
	CacheBackendMemory CacheBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheBackendSQLite, CacheBackendFile, CacheBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b CacheBackend) String() string {
	return string(b)
}

// CacheSettings configures the result cache.
type CacheSettings struct {
	// Enabled turns result caching on.
	Enabled bool

	// Backend selects durable storage.
	Backend CacheBackend

	// Dir holds the database or entry files. Empty means the data directory.
	Dir string

	// TTL is how long committed entries are served. Zero never expires.
	TTL time.Duration

	// MaxBytes bounds total entry size. Zero is unbounded.
	MaxBytes int64

	// EvictInterval is how often the janitor sweeps expired and excess entries.
	EvictInterval time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Chunking holds the default chunking policy.
	Chunking ChunkingPolicy

	// Summarize holds orchestrator settings.
	Summarize SummarizeSettings

	// Cache holds result cache settings.
	Cache CacheSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The LLM is left unconfigured; users must pick a provider.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM:      LLMSettings{},
		Chunking: DefaultChunkingPolicy(),
		Summarize: SummarizeSettings{
			Strategy:        ExecParallel,
			Concurrency:     5,
			MaxRetries:      3,
			InitialBackoff:  500 * time.Millisecond,
			MaxBackoff:      10 * time.Second,
			ChunkTimeout:    60 * time.Second,
			PipelineTimeout: 10 * time.Minute,
			DirectThreshold: DefaultMaxTokens,
			ContextBudget:   6000,
			MapMaxTokens:    512,
			ReduceMaxTokens: 1024,
		},
		Cache: CacheSettings{
			Enabled:       true,
			Backend:       CacheBackendSQLite,
			TTL:           7 * 24 * time.Hour,
			MaxBytes:      64 << 20,
			EvictInterval: 10 * time.Minute,
		},
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}
