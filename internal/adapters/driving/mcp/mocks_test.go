package mcp

import (
	"context"

	"github.com/custodia-labs/precis/internal/core/domain"
)

// mockSummarizeService is a mock implementation of driving.SummarizeService.
type mockSummarizeService struct {
	summary *domain.FinalSummary
	chunks  []domain.Chunk
	err     error

	lastDoc    domain.Document
	lastOpts   domain.SummarizeOptions
	lastPolicy *domain.ChunkingPolicy
}

func (m *mockSummarizeService) Summarize(
	_ context.Context,
	doc domain.Document,
	opts domain.SummarizeOptions,
) (*domain.FinalSummary, error) {
	m.lastDoc = doc
	m.lastOpts = opts
	return m.summary, m.err
}

func (m *mockSummarizeService) Stream(
	_ context.Context,
	_ domain.Document,
	_ domain.SummarizeOptions,
) (<-chan domain.ProgressEvent, error) {
	return nil, m.err
}

func (m *mockSummarizeService) Plan(doc domain.Document, policy *domain.ChunkingPolicy) ([]domain.Chunk, error) {
	m.lastDoc = doc
	m.lastPolicy = policy
	return m.chunks, m.err
}

// mockCacheService is a mock implementation of driving.CacheService.
type mockCacheService struct {
	stats domain.CacheStats
	err   error
}

func (m *mockCacheService) Stats(_ context.Context) (domain.CacheStats, error) {
	return m.stats, m.err
}

func (m *mockCacheService) Evict(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockCacheService) Purge(_ context.Context) error {
	return m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings *domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	return m.settings, m.err
}

func (m *mockSettingsService) Save(_ *domain.AppSettings) error {
	return m.err
}

func (m *mockSettingsService) SetLLMProvider(_ domain.AIProvider, _, _ string) error {
	return m.err
}

func (m *mockSettingsService) Validate() error {
	return m.err
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.err
}
