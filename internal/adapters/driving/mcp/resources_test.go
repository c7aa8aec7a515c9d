package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/precis/internal/core/domain"
)

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleCacheStatsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil cache service reads as disabled", func(t *testing.T) {
		server, err := NewServer(&Ports{Summarize: &mockSummarizeService{}})
		require.NoError(t, err)

		result, err := server.handleCacheStatsResource(ctx, makeReadResourceRequest(cacheStatsURI))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
		assert.Equal(t, false, got["enabled"])
		assert.Equal(t, float64(0), got["entries"])
	})

	t.Run("reports stats", func(t *testing.T) {
		cache := &mockCacheService{stats: domain.CacheStats{
			Entries: 3, TotalBytes: 2048, MaxBytes: 4096, Staging: 1,
		}}
		server, err := NewServer(&Ports{Summarize: &mockSummarizeService{}, Cache: cache})
		require.NoError(t, err)

		result, err := server.handleCacheStatsResource(ctx, makeReadResourceRequest(cacheStatsURI))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, cacheStatsURI, result.Contents[0].URI)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
		assert.Equal(t, true, got["enabled"])
		assert.Equal(t, float64(3), got["entries"])
		assert.Equal(t, float64(2048), got["total_bytes"])
		assert.Equal(t, float64(1), got["in_flight"])
	})

	t.Run("disabled cache reads as empty", func(t *testing.T) {
		cache := &mockCacheService{err: errors.New("result cache is disabled")}
		server, err := NewServer(&Ports{Summarize: &mockSummarizeService{}, Cache: cache})
		require.NoError(t, err)

		result, err := server.handleCacheStatsResource(ctx, makeReadResourceRequest(cacheStatsURI))
		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"enabled": false`)
	})
}

func TestServer_handleSettingsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil settings service is not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Summarize: &mockSummarizeService{}})
		require.NoError(t, err)

		_, err = server.handleSettingsResource(ctx, makeReadResourceRequest(settingsURI))
		assert.Error(t, err)
	})

	t.Run("masks the api key", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.LLM = domain.LLMSettings{
			Provider: domain.AIProviderOpenAI,
			Model:    "gpt-4o-mini",
			APIKey:   "sk-secret-value",
		}
		server, err := NewServer(&Ports{
			Summarize: &mockSummarizeService{},
			Settings:  &mockSettingsService{settings: &settings},
		})
		require.NoError(t, err)

		result, err := server.handleSettingsResource(ctx, makeReadResourceRequest(settingsURI))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)

		text := result.Contents[0].Text
		assert.NotContains(t, text, "sk-secret-value")
		assert.Contains(t, text, `"provider": "openai"`)
		assert.Contains(t, text, `"configured": true`)
		assert.Contains(t, text, `"strategy": "parallel"`)
		assert.Contains(t, text, `"max_tokens": 1000`)
	})

	t.Run("returns error on settings failure", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Summarize: &mockSummarizeService{},
			Settings:  &mockSettingsService{err: errors.New("config unreadable")},
		})
		require.NoError(t, err)

		_, err = server.handleSettingsResource(ctx, makeReadResourceRequest(settingsURI))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config unreadable")
	})
}
