package services

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider = "llm.provider"
	keyLLMModel    = "llm.model"
	keyLLMBaseURL  = "llm.base_url"
	keyLLMAPIKey   = "llm.api_key"
	keyLLMRate     = "llm.requests_per_second"
	keyLLMBurst    = "llm.burst"

	keyChunkStrategy = "chunking.strategy"
	keyChunkMax      = "chunking.max_tokens"
	keyChunkOverlap  = "chunking.overlap_tokens"
	keyChunkCeiling  = "chunking.atomic_overflow_ceiling"
	keyChunkFill     = "chunking.target_fill_ratio"
	keyChunkLookBack = "chunking.look_back_ratio"

	keySumStrategy        = "summarize.strategy"
	keySumConcurrency     = "summarize.concurrency"
	keySumMaxRetries      = "summarize.max_retries"
	keySumInitialBackoff  = "summarize.initial_backoff_ms"
	keySumMaxBackoff      = "summarize.max_backoff_ms"
	keySumChunkTimeout    = "summarize.chunk_timeout_seconds"
	keySumPipelineTimeout = "summarize.pipeline_timeout_seconds"
	keySumDirectThreshold = "summarize.direct_threshold_tokens"
	keySumContextBudget   = "summarize.context_budget_tokens"
	keySumMapMaxTokens    = "summarize.map_max_tokens"
	keySumReduceMaxTokens = "summarize.reduce_max_tokens"

	keyCacheEnabled  = "cache.enabled"
	keyCacheBackend  = "cache.backend"
	keyCacheDir      = "cache.dir"
	keyCacheTTL      = "cache.ttl_seconds"
	keyCacheMaxBytes = "cache.max_bytes"
	keyCacheEvict    = "cache.evict_interval_seconds"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
// Missing or unrecognised values fall back to the defaults. A cloud
// provider without a configured key reads it from the provider's
// environment variable.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	llm := domain.LLMSettings{
		Provider:          s.getProvider(keyLLMProvider, d.LLM.Provider),
		Model:             s.getString(keyLLMModel, d.LLM.Model),
		BaseURL:           s.configStore.GetString(keyLLMBaseURL), // Empty is valid for cloud providers
		APIKey:            s.configStore.GetString(keyLLMAPIKey),
		RequestsPerSecond: s.getFloat(keyLLMRate, d.LLM.RequestsPerSecond),
		Burst:             s.getInt(keyLLMBurst, d.LLM.Burst),
	}
	if llm.APIKey == "" {
		if env := llm.Provider.APIKeyEnv(); env != "" {
			llm.APIKey = s.getenv(env)
		}
	}
	if llm.Model == "" {
		llm.Model = domain.DefaultLLMModels()[llm.Provider]
	}

	settings := &domain.AppSettings{
		LLM: llm,
		Chunking: domain.ChunkingPolicy{
			Strategy:              s.getChunkStrategy(d.Chunking.Strategy),
			MaxTokens:             s.getInt(keyChunkMax, d.Chunking.MaxTokens),
			OverlapTokens:         s.getInt(keyChunkOverlap, d.Chunking.OverlapTokens),
			AtomicOverflowCeiling: s.getFloat(keyChunkCeiling, d.Chunking.AtomicOverflowCeiling),
			TargetFillRatio:       s.getFloat(keyChunkFill, d.Chunking.TargetFillRatio),
			LookBackRatio:         s.getFloat(keyChunkLookBack, d.Chunking.LookBackRatio),
		},
		Summarize: domain.SummarizeSettings{
			Strategy:        s.getExecStrategy(d.Summarize.Strategy),
			Concurrency:     s.getInt(keySumConcurrency, d.Summarize.Concurrency),
			MaxRetries:      s.getInt(keySumMaxRetries, d.Summarize.MaxRetries),
			InitialBackoff:  s.getDuration(keySumInitialBackoff, time.Millisecond, d.Summarize.InitialBackoff),
			MaxBackoff:      s.getDuration(keySumMaxBackoff, time.Millisecond, d.Summarize.MaxBackoff),
			ChunkTimeout:    s.getDuration(keySumChunkTimeout, time.Second, d.Summarize.ChunkTimeout),
			PipelineTimeout: s.getDuration(keySumPipelineTimeout, time.Second, d.Summarize.PipelineTimeout),
			DirectThreshold: s.getInt(keySumDirectThreshold, d.Summarize.DirectThreshold),
			ContextBudget:   s.getInt(keySumContextBudget, d.Summarize.ContextBudget),
			MapMaxTokens:    s.getInt(keySumMapMaxTokens, d.Summarize.MapMaxTokens),
			ReduceMaxTokens: s.getInt(keySumReduceMaxTokens, d.Summarize.ReduceMaxTokens),
		},
		Cache: domain.CacheSettings{
			Enabled:       s.getBool(keyCacheEnabled, d.Cache.Enabled),
			Backend:       s.getCacheBackend(d.Cache.Backend),
			Dir:           s.configStore.GetString(keyCacheDir),
			TTL:           s.getDuration(keyCacheTTL, time.Second, d.Cache.TTL),
			MaxBytes:      int64(s.getInt(keyCacheMaxBytes, int(d.Cache.MaxBytes))),
			EvictInterval: s.getDuration(keyCacheEvict, time.Second, d.Cache.EvictInterval),
		},
	}

	return settings, nil
}

// Save persists application settings.
// An API key that came from the environment is never written to disk.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMRate, settings.LLM.RequestsPerSecond},
		{keyLLMBurst, settings.LLM.Burst},

		{keyChunkStrategy, settings.Chunking.Strategy.String()},
		{keyChunkMax, settings.Chunking.MaxTokens},
		{keyChunkOverlap, settings.Chunking.OverlapTokens},
		{keyChunkCeiling, settings.Chunking.AtomicOverflowCeiling},
		{keyChunkFill, settings.Chunking.TargetFillRatio},
		{keyChunkLookBack, settings.Chunking.LookBackRatio},

		{keySumStrategy, settings.Summarize.Strategy.String()},
		{keySumConcurrency, settings.Summarize.Concurrency},
		{keySumMaxRetries, settings.Summarize.MaxRetries},
		{keySumInitialBackoff, settings.Summarize.InitialBackoff.Milliseconds()},
		{keySumMaxBackoff, settings.Summarize.MaxBackoff.Milliseconds()},
		{keySumChunkTimeout, int64(settings.Summarize.ChunkTimeout / time.Second)},
		{keySumPipelineTimeout, int64(settings.Summarize.PipelineTimeout / time.Second)},
		{keySumDirectThreshold, settings.Summarize.DirectThreshold},
		{keySumContextBudget, settings.Summarize.ContextBudget},
		{keySumMapMaxTokens, settings.Summarize.MapMaxTokens},
		{keySumReduceMaxTokens, settings.Summarize.ReduceMaxTokens},

		{keyCacheEnabled, settings.Cache.Enabled},
		{keyCacheBackend, settings.Cache.Backend.String()},
		{keyCacheDir, settings.Cache.Dir},
		{keyCacheTTL, int64(settings.Cache.TTL / time.Second)},
		{keyCacheMaxBytes, settings.Cache.MaxBytes},
		{keyCacheEvict, int64(settings.Cache.EvictInterval / time.Second)},
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.envKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyLLMAPIKey, err)
		}
	}

	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s (or set %s)", provider, provider.APIKeyEnv())
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that current settings can drive a summarisation run.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.LLM.IsConfigured() {
		if settings.LLM.Provider == "" {
			return fmt.Errorf("%w: no LLM provider configured", domain.ErrLLMUnavailable)
		}
		return fmt.Errorf("%w: %s requires an API key (set %s)",
			domain.ErrLLMUnavailable, settings.LLM.Provider, settings.LLM.Provider.APIKeyEnv())
	}
	if settings.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: llm.requests_per_second must not be negative", domain.ErrInvalidInput)
	}

	if err := settings.Chunking.Validate(); err != nil {
		return err
	}

	sum := settings.Summarize
	switch {
	case sum.Concurrency < 1:
		return fmt.Errorf("%w: summarize.concurrency must be at least 1", domain.ErrInvalidInput)
	case sum.MaxRetries < 0:
		return fmt.Errorf("%w: summarize.max_retries must not be negative", domain.ErrInvalidInput)
	case sum.MaxBackoff < sum.InitialBackoff:
		return fmt.Errorf("%w: summarize.max_backoff_ms is below initial_backoff_ms", domain.ErrInvalidInput)
	case sum.ContextBudget < settings.Chunking.MaxTokens:
		return fmt.Errorf("%w: summarize.context_budget_tokens %d is below chunking.max_tokens %d",
			domain.ErrInvalidInput, sum.ContextBudget, settings.Chunking.MaxTokens)
	}

	if settings.Cache.Enabled && !settings.Cache.Backend.IsValid() {
		return fmt.Errorf("%w: cache backend %q", domain.ErrUnsupportedType, settings.Cache.Backend)
	}
	if settings.Cache.MaxBytes < 0 {
		return errors.New("cache.max_bytes must not be negative")
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	if env := provider.APIKeyEnv(); env != "" {
		return s.getenv(env)
	}
	return ""
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * unit
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getChunkStrategy(defaultVal domain.ChunkStrategy) domain.ChunkStrategy {
	strategy, err := domain.ParseChunkStrategy(s.configStore.GetString(keyChunkStrategy))
	if err != nil {
		return defaultVal
	}
	return strategy
}

func (s *SettingsService) getExecStrategy(defaultVal domain.ExecutionStrategy) domain.ExecutionStrategy {
	strategy, err := domain.ParseExecutionStrategy(s.configStore.GetString(keySumStrategy))
	if err != nil {
		return defaultVal
	}
	return strategy
}

func (s *SettingsService) getCacheBackend(defaultVal domain.CacheBackend) domain.CacheBackend {
	backend := domain.CacheBackend(s.configStore.GetString(keyCacheBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
