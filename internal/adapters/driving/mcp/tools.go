package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/precis/internal/core/domain"
)

// ChunkingInput overrides the configured chunking policy.
type ChunkingInput struct {
	Chunking      string `json:"chunking,omitempty" jsonschema:"chunking strategy: hierarchical, semantic or fixed"`
	MaxTokens     int    `json:"max_tokens,omitempty" jsonschema:"maximum tokens per chunk"`
	OverlapTokens int    `json:"overlap_tokens,omitempty" jsonschema:"tokens repeated from the previous chunk"`
}

// SummarizeInput is the input schema for the summarize tool.
type SummarizeInput struct {
	Text     string `json:"text" jsonschema:"the document text to summarise"`
	Query    string `json:"query,omitempty" jsonschema:"optional question or topic to focus the summary on"`
	Strategy string `json:"strategy,omitempty" jsonschema:"execution strategy: parallel, streaming or sequential"`
	NoCache  bool   `json:"no_cache,omitempty" jsonschema:"bypass the result cache"`
	ChunkingInput
}

// SummarizeOutput is the output schema for the summarize tool.
type SummarizeOutput struct {
	Summary          string `json:"summary"`
	SourceChunkCount int    `json:"source_chunk_count"`
	FailedChunkCount int    `json:"failed_chunk_count"`
}

// PlanChunksInput is the input schema for the plan_chunks tool.
type PlanChunksInput struct {
	Text        string `json:"text" jsonschema:"the document text to split"`
	IncludeText bool   `json:"include_text,omitempty" jsonschema:"include each chunk's text in the result"`
	ChunkingInput
}

// PlanChunksOutput is the output schema for the plan_chunks tool.
type PlanChunksOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput describes one planned chunk.
type ChunkOutput struct {
	Index       int      `json:"index"`
	TokenCount  int      `json:"token_count"`
	SectionPath []string `json:"section_path,omitempty"`
	IsAtomic    bool     `json:"is_atomic,omitempty"`
	StartOffset int      `json:"start_offset"`
	EndOffset   int      `json:"end_offset"`
	Text        string   `json:"text,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "summarize",
		Description: "Summarise a long document with map-reduce over token-bounded chunks",
	}, s.handleSummarize)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "plan_chunks",
		Description: "Split a document into token-bounded chunks without summarising it",
	}, s.handlePlanChunks)
}

// handleSummarize handles the summarize tool invocation.
func (s *Server) handleSummarize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SummarizeInput,
) (*mcp.CallToolResult, SummarizeOutput, error) {
	policy, err := s.policyOverride(input.ChunkingInput)
	if err != nil {
		return nil, SummarizeOutput{}, err
	}

	opts := domain.SummarizeOptions{
		Query:    input.Query,
		Strategy: domain.ExecutionStrategy(input.Strategy),
		Policy:   policy,
		NoCache:  input.NoCache,
	}

	summary, err := s.ports.Summarize.Summarize(ctx, domain.Document{Text: input.Text}, opts)
	if err != nil {
		return nil, SummarizeOutput{}, err
	}

	return nil, SummarizeOutput{
		Summary:          summary.Text,
		SourceChunkCount: summary.SourceChunkCount,
		FailedChunkCount: summary.FailedChunkCount,
	}, nil
}

// handlePlanChunks handles the plan_chunks tool invocation.
func (s *Server) handlePlanChunks(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input PlanChunksInput,
) (*mcp.CallToolResult, PlanChunksOutput, error) {
	policy, err := s.policyOverride(input.ChunkingInput)
	if err != nil {
		return nil, PlanChunksOutput{}, err
	}

	chunks, err := s.ports.Summarize.Plan(domain.Document{Text: input.Text}, policy)
	if err != nil {
		return nil, PlanChunksOutput{}, err
	}

	output := PlanChunksOutput{
		Chunks: make([]ChunkOutput, len(chunks)),
		Count:  len(chunks),
	}
	for i := range chunks {
		output.Chunks[i] = ChunkOutput{
			Index:       chunks[i].Index,
			TokenCount:  chunks[i].TokenCount,
			SectionPath: chunks[i].SectionPath,
			IsAtomic:    chunks[i].IsAtomic,
			StartOffset: chunks[i].StartOffset,
			EndOffset:   chunks[i].EndOffset,
		}
		if input.IncludeText {
			output.Chunks[i].Text = chunks[i].Text
		}
	}

	return nil, output, nil
}

// policyOverride returns nil when the input leaves the configured policy alone.
func (s *Server) policyOverride(in ChunkingInput) (*domain.ChunkingPolicy, error) {
	if in.Chunking == "" && in.MaxTokens == 0 && in.OverlapTokens == 0 {
		return nil, nil
	}

	policy := domain.DefaultChunkingPolicy()
	if s.ports.Settings != nil {
		if settings, err := s.ports.Settings.Get(); err == nil {
			policy = settings.Chunking
		}
	}

	if in.Chunking != "" {
		strategy, err := domain.ParseChunkStrategy(in.Chunking)
		if err != nil {
			return nil, err
		}
		policy.Strategy = strategy
	}
	if in.MaxTokens < 0 || in.OverlapTokens < 0 {
		return nil, fmt.Errorf("%w: token limits must not be negative", domain.ErrInvalidInput)
	}
	if in.MaxTokens > 0 {
		policy.MaxTokens = in.MaxTokens
	}
	if in.OverlapTokens > 0 {
		policy.OverlapTokens = in.OverlapTokens
	}
	return &policy, nil
}
