package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestAIProvider_IsValid tests all valid and invalid providers
func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{"ollama is valid", AIProviderOllama, true},
		{"openai is valid", AIProviderOpenAI, true},
		{"anthropic is valid", AIProviderAnthropic, true},
		{"gemini is valid", AIProviderGemini, true},
		{"empty string is invalid", AIProvider(""), false},
		{"unknown provider is invalid", AIProvider("cohere"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

// TestAIProvider_RequiresAPIKey tests which providers need API keys
func TestAIProvider_RequiresAPIKey(t *testing.T) {
	tests := []struct {
		provider AIProvider
		expected bool
	}{
		{AIProviderOllama, false},
		{AIProviderOpenAI, true},
		{AIProviderAnthropic, true},
		{AIProviderGemini, true},
		{AIProvider("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.RequiresAPIKey())
		})
	}
}

// TestAIProvider_IsLocal tests which providers run locally
func TestAIProvider_IsLocal(t *testing.T) {
	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderOpenAI.IsLocal())
	assert.False(t, AIProviderAnthropic.IsLocal())
	assert.False(t, AIProviderGemini.IsLocal())
}

// TestAIProvider_Description tests human-readable descriptions
func TestAIProvider_Description(t *testing.T) {
	tests := []struct {
		provider AIProvider
		expected string
	}{
		{AIProviderOllama, "Ollama (local)"},
		{AIProviderOpenAI, "OpenAI (cloud)"},
		{AIProviderAnthropic, "Anthropic (cloud)"},
		{AIProviderGemini, "Gemini (cloud)"},
		{AIProvider("bogus"), unknownDescription},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.Description())
			assert.Equal(t, string(tt.provider), tt.provider.String())
		})
	}
}

func TestAIProvider_APIKeyEnv(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", AIProviderOpenAI.APIKeyEnv())
	assert.Equal(t, "ANTHROPIC_API_KEY", AIProviderAnthropic.APIKeyEnv())
	assert.Equal(t, "GEMINI_API_KEY", AIProviderGemini.APIKeyEnv())
	assert.Empty(t, AIProviderOllama.APIKeyEnv())
}

// TestLLMSettings_IsConfigured tests LLM configuration validation
func TestLLMSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings LLMSettings
		expected bool
	}{
		{
			name:     "ollama without key",
			settings: LLMSettings{Provider: AIProviderOllama, Model: "llama3.2"},
			expected: true,
		},
		{
			name:     "openai with key",
			settings: LLMSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"},
			expected: true,
		},
		{
			name:     "openai without key",
			settings: LLMSettings{Provider: AIProviderOpenAI},
			expected: false,
		},
		{
			name:     "gemini without key",
			settings: LLMSettings{Provider: AIProviderGemini, Model: "gemini-1.5-flash"},
			expected: false,
		},
		{
			name:     "invalid provider",
			settings: LLMSettings{Provider: "bogus", APIKey: "key"},
			expected: false,
		},
		{
			name:     "empty settings",
			settings: LLMSettings{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestLLMSettings_ModelRef(t *testing.T) {
	ref := LLMSettings{Provider: AIProviderAnthropic, Model: "claude-3-5-haiku-latest"}.ModelRef()
	assert.Equal(t, ModelRef{Provider: AIProviderAnthropic, Model: "claude-3-5-haiku-latest"}, ref)
	assert.Equal(t, "anthropic/claude-3-5-haiku-latest", ref.String())
}

func TestCacheBackend_IsValid(t *testing.T) {
	for _, b := range []CacheBackend{CacheBackendSQLite, CacheBackendFile, CacheBackendMemory} {
		assert.True(t, b.IsValid(), b.String())
	}
	assert.False(t, CacheBackend("redis").IsValid())
	assert.False(t, CacheBackend("").IsValid())
}

// TestDefaultAppSettings tests default values
func TestDefaultAppSettings(t *testing.T) {
	settings := DefaultAppSettings()

	assert.False(t, settings.LLM.IsConfigured())
	assert.NoError(t, settings.Chunking.Validate())
	assert.Equal(t, DefaultAtomicOverflowCeiling, settings.Chunking.AtomicOverflowCeiling)

	assert.Equal(t, ExecParallel, settings.Summarize.Strategy)
	assert.Equal(t, 5, settings.Summarize.Concurrency)
	assert.Equal(t, 3, settings.Summarize.MaxRetries)
	assert.Less(t, settings.Summarize.InitialBackoff, settings.Summarize.MaxBackoff)
	assert.Less(t, settings.Summarize.ChunkTimeout, settings.Summarize.PipelineTimeout)
	assert.Greater(t, settings.Summarize.ContextBudget, settings.Summarize.MapMaxTokens)
	assert.LessOrEqual(t, settings.Summarize.DirectThreshold, settings.Chunking.MaxTokens)

	assert.True(t, settings.Cache.Enabled)
	assert.Equal(t, CacheBackendSQLite, settings.Cache.Backend)
	assert.Equal(t, 7*24*time.Hour, settings.Cache.TTL)
	assert.Equal(t, int64(64<<20), settings.Cache.MaxBytes)
	assert.Positive(t, settings.Cache.EvictInterval)
}

// TestAllLLMProviders tests complete list of LLM providers
func TestAllLLMProviders(t *testing.T) {
	providers := AllLLMProviders()
	assert.Len(t, providers, 4)

	models := DefaultLLMModels()
	for _, p := range providers {
		assert.True(t, p.IsValid())
		assert.NotEmpty(t, models[p], "default model for %s", p)
	}
}
