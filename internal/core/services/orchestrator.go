package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/logger"
)

// SummarizeRequest is one map-reduce run over planned chunks.
type SummarizeRequest struct {
	// DocumentID is the content identity of the source document.
	DocumentID string

	// Chunks are the planned chunks in document order.
	Chunks []domain.Chunk

	// Query focuses the summary. Empty asks for a general summary.
	Query string

	// Policy is the chunking policy the chunks were planned with.
	Policy domain.ChunkingPolicy

	// Strategy selects how the map phase runs.
	Strategy domain.ExecutionStrategy

	// NoCache skips the result cache entirely.
	NoCache bool
}

// Fingerprint returns the cache key of the request for model.
func (r SummarizeRequest) Fingerprint(model domain.ModelRef) domain.Fingerprint {
	return domain.ComputeFingerprint(domain.FingerprintInput{
		DocumentID: r.DocumentID,
		Query:      r.Query,
		Policy:     r.Policy,
		Model:      model,
		Strategy:   r.Strategy,
	})
}

// Orchestrator runs map-reduce summarisation over an LLM, consulting the
// result cache before and after each run.
type Orchestrator struct {
	llm      driven.LLMService
	model    domain.ModelRef
	settings domain.SummarizeSettings

	cache   driven.ResultCache
	ttl     time.Duration
	prompts driven.PromptStore
	count   func(string) int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithResultCache stores committed summaries in cache for ttl.
func WithResultCache(cache driven.ResultCache, ttl time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cache = cache
		o.ttl = ttl
	}
}

// WithPromptStore loads templates from store instead of the built-in defaults.
func WithPromptStore(store driven.PromptStore) OrchestratorOption {
	return func(o *Orchestrator) {
		o.prompts = store
	}
}

// WithTokenCount measures reduce input with count instead of the heuristic.
func WithTokenCount(count func(string) int) OrchestratorOption {
	return func(o *Orchestrator) {
		if count != nil {
			o.count = count
		}
	}
}

// NewOrchestrator creates an orchestrator. Zero settings fall back to defaults.
func NewOrchestrator(
	llm driven.LLMService,
	model domain.ModelRef,
	settings domain.SummarizeSettings,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		llm:      llm,
		model:    model,
		settings: withSummarizeDefaults(settings),
		count:    HeuristicTokens,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func withSummarizeDefaults(s domain.SummarizeSettings) domain.SummarizeSettings {
	d := domain.DefaultAppSettings().Summarize
	if !s.Strategy.IsValid() {
		s.Strategy = d.Strategy
	}
	if s.Concurrency <= 0 {
		s.Concurrency = d.Concurrency
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	if s.InitialBackoff <= 0 {
		s.InitialBackoff = d.InitialBackoff
	}
	if s.MaxBackoff < s.InitialBackoff {
		s.MaxBackoff = max(d.MaxBackoff, s.InitialBackoff)
	}
	if s.ChunkTimeout <= 0 {
		s.ChunkTimeout = d.ChunkTimeout
	}
	if s.PipelineTimeout <= 0 {
		s.PipelineTimeout = d.PipelineTimeout
	}
	if s.ContextBudget <= 0 {
		s.ContextBudget = d.ContextBudget
	}
	if s.MapMaxTokens <= 0 {
		s.MapMaxTokens = d.MapMaxTokens
	}
	if s.ReduceMaxTokens <= 0 {
		s.ReduceMaxTokens = d.ReduceMaxTokens
	}
	return s
}

// Summarize runs req to completion and returns the final summary.
func (o *Orchestrator) Summarize(ctx context.Context, req SummarizeRequest) (*domain.FinalSummary, error) {
	return o.run(ctx, req, nil)
}

// Stream runs req in the background. Partial events follow the strategy:
// none for Parallel, completion order for Streaming, chunk order for
// Sequential. The channel closes after one Final or Error event. It is
// buffered for the whole run, so a slow reader never stalls the pipeline.
func (o *Orchestrator) Stream(ctx context.Context, req SummarizeRequest) <-chan domain.ProgressEvent {
	total := len(req.Chunks)
	events := make(chan domain.ProgressEvent, total+2)

	go func() {
		defer close(events)
		final, err := o.run(ctx, req, func(ev domain.ProgressEvent) {
			events <- ev
		})
		if err != nil {
			events <- domain.ProgressEvent{Kind: domain.ProgressError, Err: err, Total: total}
			return
		}
		events <- domain.ProgressEvent{Kind: domain.ProgressFinal, Final: final, Completed: total, Total: total}
	}()
	return events
}

// emitFunc receives partial progress. nil discards events.
type emitFunc func(domain.ProgressEvent)

func (o *Orchestrator) run(ctx context.Context, req SummarizeRequest, emit emitFunc) (*domain.FinalSummary, error) {
	if len(req.Chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to summarise", domain.ErrInvalidInput)
	}
	if req.Strategy == "" {
		req.Strategy = o.settings.Strategy
	}
	if !req.Strategy.IsValid() {
		return nil, fmt.Errorf("%w: unknown execution strategy %q", domain.ErrInvalidInput, req.Strategy)
	}

	ctx, cancel := context.WithTimeout(ctx, o.settings.PipelineTimeout)
	defer cancel()

	fp := req.Fingerprint(o.model)
	runID := uuid.NewString()[:8]
	logger.Section(fmt.Sprintf("Run %s: %d chunks, %s, %s", runID, len(req.Chunks), req.Strategy, o.model))
	logger.Debug("run %s: fingerprint %s", runID, fp.Short())

	if o.cache == nil || req.NoCache {
		return o.execute(ctx, req, emit)
	}

	if value, ok := o.cache.Get(ctx, fp); ok {
		logger.Debug("run %s: cache hit", runID)
		return value, nil
	}

	handle, joined, err := o.cache.BeginStaging(ctx, fp)
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, runError(ctx)
	case err != nil:
		logger.Warn("run %s: result cache unavailable: %v", runID, err)
		return o.execute(ctx, req, emit)
	case joined != nil:
		logger.Debug("run %s: joined in-flight run", runID)
		return joined, nil
	}

	committed := false
	defer func() {
		if !committed {
			logger.Debug("run %s: discarding staged result", runID)
			o.cache.Discard(handle)
		}
	}()

	final, err := o.execute(ctx, req, emit)
	if err != nil {
		return nil, err
	}

	// The summary is complete; a cancellation arriving now must not lose it.
	if err := o.cache.Commit(context.WithoutCancel(ctx), handle, *final, o.ttl); err != nil {
		logger.Warn("run %s: commit: %v", runID, err)
	}
	committed = true
	return final, nil
}

// execute runs the map and reduce phases without touching the cache.
func (o *Orchestrator) execute(ctx context.Context, req SummarizeRequest, emit emitFunc) (*domain.FinalSummary, error) {
	if len(req.Chunks) == 1 {
		return o.direct(ctx, req, emit)
	}

	partials, err := o.mapPhase(ctx, req, emit)
	if err != nil {
		return nil, err
	}

	var failures []domain.ChunkFailure
	for _, p := range partials {
		if !p.OK() {
			failures = append(failures, domain.ChunkFailure{ChunkIndex: p.ChunkIndex, Status: p.Status, Err: p.Err})
		}
	}
	if len(failures) == len(partials) {
		return nil, &domain.SummarizationError{Failures: failures, Err: domain.ErrAllChunksFailed}
	}
	if len(failures) > 0 {
		logger.Warn("%d of %d chunks failed; summarising the rest", len(failures), len(partials))
	}

	text, err := o.reduce(ctx, partials, req.Query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, runError(ctx)
		}
		return nil, &domain.SummarizationError{Err: fmt.Errorf("reduce: %w", err)}
	}

	return &domain.FinalSummary{
		Text:             text,
		SourceChunkCount: len(partials),
		FailedChunkCount: len(failures),
	}, nil
}

// direct summarises a single chunk in one call with no reduce.
func (o *Orchestrator) direct(ctx context.Context, req SummarizeRequest, emit emitFunc) (*domain.FinalSummary, error) {
	c := req.Chunks[0]
	prompt := o.render(driven.PromptDirectSummary, focus(req.Query), c.Text)

	text, attempts, err := o.generate(ctx, prompt, o.settings.ReduceMaxTokens)
	p := domain.PartialSummary{ChunkIndex: c.Index, Text: text, Status: domain.StatusOK, Attempts: attempts}
	if err != nil {
		if ctx.Err() != nil {
			return nil, runError(ctx)
		}
		return nil, &domain.SummarizationError{
			Failures: []domain.ChunkFailure{{ChunkIndex: c.Index, Status: statusFor(err), Err: err}},
			Err:      domain.ErrAllChunksFailed,
		}
	}

	if emit != nil && req.Strategy != domain.ExecParallel {
		emit(domain.ProgressEvent{Kind: domain.ProgressPartial, Partial: &p, Completed: 1, Total: 1})
	}
	return &domain.FinalSummary{Text: text, SourceChunkCount: 1}, nil
}

// render fills the named template, preferring the prompt store.
func (o *Orchestrator) render(name string, args ...any) string {
	tmpl, _ := driven.DefaultPrompt(name)
	if o.prompts != nil {
		loaded, err := o.prompts.Load(name)
		if err != nil {
			logger.Warn("prompt %s: %v; using built-in template", name, err)
		} else {
			tmpl = loaded
		}
	}
	return fmt.Sprintf(tmpl, args...)
}

func focus(query string) string {
	if q := strings.TrimSpace(query); q != "" {
		return q
	}
	return "general summary"
}

// runError reports why the run context ended.
func runError(ctx context.Context) error {
	err := context.Cause(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("summarization: %w: %w", domain.ErrTimeout, err)
	}
	return fmt.Errorf("summarization: %w", err)
}
