package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/core/ports/driving"
	"github.com/custodia-labs/precis/internal/logger"
)

// Ensure SummarizeService implements the interface.
var _ driving.SummarizeService = (*SummarizeService)(nil)

// SummarizeService plans documents into chunks and hands them to the orchestrator.
type SummarizeService struct {
	planner      driven.ChunkPlanner
	orchestrator *Orchestrator
	count        func(string) int
	policy       domain.ChunkingPolicy

	// directThreshold is the largest document, in tokens, summarised without chunking.
	directThreshold int
}

// NewSummarizeService creates a new summarize service.
// count must measure text with the same tokenizer the planner uses.
// A nil orchestrator allows planning only.
func NewSummarizeService(
	planner driven.ChunkPlanner,
	orchestrator *Orchestrator,
	count func(string) int,
	settings domain.AppSettings,
) *SummarizeService {
	if count == nil {
		count = HeuristicTokens
	}
	return &SummarizeService{
		planner:         planner,
		orchestrator:    orchestrator,
		count:           count,
		policy:          settings.Chunking,
		directThreshold: settings.Summarize.DirectThreshold,
	}
}

// Summarize runs the full pipeline and returns the final summary.
func (s *SummarizeService) Summarize(
	ctx context.Context,
	doc domain.Document,
	opts domain.SummarizeOptions,
) (*domain.FinalSummary, error) {
	if s.orchestrator == nil {
		return nil, domain.ErrLLMUnavailable
	}
	req, err := s.prepare(doc, opts)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.Summarize(ctx, req)
}

// Stream runs the pipeline and reports progress on the returned channel.
// Errors found before the run starts are returned directly.
func (s *SummarizeService) Stream(
	ctx context.Context,
	doc domain.Document,
	opts domain.SummarizeOptions,
) (<-chan domain.ProgressEvent, error) {
	if s.orchestrator == nil {
		return nil, domain.ErrLLMUnavailable
	}
	req, err := s.prepare(doc, opts)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.Stream(ctx, req), nil
}

// Plan splits a document without summarising it.
// A nil policy uses the configured one.
func (s *SummarizeService) Plan(doc domain.Document, policy *domain.ChunkingPolicy) ([]domain.Chunk, error) {
	p, err := s.resolvePolicy(policy)
	if err != nil {
		return nil, err
	}
	return s.planner.Plan(doc, p)
}

func (s *SummarizeService) resolvePolicy(override *domain.ChunkingPolicy) (domain.ChunkingPolicy, error) {
	p := s.policy
	if override != nil {
		p = *override
	}
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return domain.ChunkingPolicy{}, err
	}
	return p, nil
}

// prepare validates opts and chunks doc. Documents at or below the direct
// threshold, capped at the policy's MaxTokens, become a single chunk and
// skip the planner.
func (s *SummarizeService) prepare(doc domain.Document, opts domain.SummarizeOptions) (SummarizeRequest, error) {
	if doc.IsEmpty() {
		return SummarizeRequest{}, fmt.Errorf("%w: document is empty", domain.ErrInvalidInput)
	}
	if opts.Strategy != "" && !opts.Strategy.IsValid() {
		return SummarizeRequest{}, fmt.Errorf("%w: unknown execution strategy %q", domain.ErrInvalidInput, opts.Strategy)
	}

	policy, err := s.resolvePolicy(opts.Policy)
	if err != nil {
		return SummarizeRequest{}, err
	}

	// A direct chunk must still respect the chunk budget of the policy.
	threshold := min(s.directThreshold, policy.MaxTokens)

	var chunks []domain.Chunk
	if tokens := s.count(doc.Text); tokens <= threshold {
		logger.Debug("document is %d tokens; summarising directly", tokens)
		chunks = []domain.Chunk{{
			Text:       doc.Text,
			TokenCount: tokens,
			EndOffset:  len(doc.Text),
		}}
	} else {
		chunks, err = s.planner.Plan(doc, policy)
		if err != nil {
			return SummarizeRequest{}, fmt.Errorf("plan chunks: %w", err)
		}
		logger.Info("planned %d chunks (%s, max %d tokens)", len(chunks), policy.Strategy, policy.MaxTokens)
	}

	return SummarizeRequest{
		DocumentID: doc.Identity(),
		Chunks:     chunks,
		Query:      opts.Query,
		Policy:     policy,
		Strategy:   opts.Strategy,
		NoCache:    opts.NoCache,
	}, nil
}
