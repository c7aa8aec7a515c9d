package cli

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/custodia-labs/precis/internal/core/domain"
)

// mockSummarizeService is a mock implementation of driving.SummarizeService.
type mockSummarizeService struct {
	events []domain.ProgressEvent
	chunks []domain.Chunk
	err    error

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
	if m.err != nil {
		return nil, m.err
	}
	for _, ev := range m.events {
		if ev.Final != nil {
			return ev.Final, nil
		}
	}
	return nil, nil
}

func (m *mockSummarizeService) Stream(
	_ context.Context,
	doc domain.Document,
	opts domain.SummarizeOptions,
) (<-chan domain.ProgressEvent, error) {
	m.lastDoc = doc
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.ProgressEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (m *mockSummarizeService) Plan(doc domain.Document, policy *domain.ChunkingPolicy) ([]domain.Chunk, error) {
	m.lastDoc = doc
	m.lastPolicy = policy
	return m.chunks, m.err
}

// mockCacheService is a mock implementation of driving.CacheService.
type mockCacheService struct {
	stats   domain.CacheStats
	evicted int
	err     error
	purged  bool
}

func (m *mockCacheService) Stats(_ context.Context) (domain.CacheStats, error) {
	return m.stats, m.err
}

func (m *mockCacheService) Evict(_ context.Context) (int, error) {
	return m.evicted, m.err
}

func (m *mockCacheService) Purge(_ context.Context) error {
	if m.err == nil {
		m.purged = true
	}
	return m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    *domain.AppSettings
	getErr      error
	validateErr error
	pingErr     error

	setProvider domain.AIProvider
	setModel    string
	setKey      string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	return m.settings, m.getErr
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = s
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.setProvider, m.setModel, m.setKey = provider, model, apiKey
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.pingErr
}

func finalEvents(text string, total, failed int) []domain.ProgressEvent {
	var events []domain.ProgressEvent
	for i := 0; i < total; i++ {
		status := domain.StatusOK
		if i < failed {
			status = domain.StatusFailed
		}
		events = append(events, domain.ProgressEvent{
			Kind:      domain.ProgressPartial,
			Partial:   &domain.PartialSummary{ChunkIndex: i, Status: status},
			Completed: i + 1,
			Total:     total,
		})
	}
	return append(events, domain.ProgressEvent{
		Kind:  domain.ProgressFinal,
		Final: &domain.FinalSummary{Text: text, SourceChunkCount: total, FailedChunkCount: failed},
	})
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	summarize *mockSummarizeService
	cache     *mockCacheService
	settings  *mockSettingsService
}

// setupTestServices installs mocks and returns a cleanup func.
func setupTestServices() (*testServices, func()) {
	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "gpt-4o-mini",
		APIKey:   "sk-test-1234567890",
	}

	ts := &testServices{
		summarize: &mockSummarizeService{events: finalEvents("the summary", 3, 0)},
		cache:     &mockCacheService{},
		settings:  &mockSettingsService{settings: &settings},
	}
	SetServices(&Services{
		Settings:  ts.settings,
		Summarize: ts.summarize,
		Cache:     ts.cache,
	})
	resetFlags()

	return ts, func() {
		SetServices(nil)
		resetFlags()
	}
}

// resetFlags restores every command flag to its default between runs.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
		for _, sub := range c.Commands() {
			sub.Flags().VisitAll(reset)
		}
	}
}

// execute runs rootCmd with args and stdin, returning stdout, stderr and the error.
func execute(stdin string, args ...string) (string, string, error) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	var in io.Reader = strings.NewReader(stdin)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}
