package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/precis/internal/core/domain"
)

func TestServer_handleSummarize(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the summary", func(t *testing.T) {
		mock := &mockSummarizeService{
			summary: &domain.FinalSummary{Text: "short version", SourceChunkCount: 4, FailedChunkCount: 1},
		}
		server, err := NewServer(&Ports{Summarize: mock})
		require.NoError(t, err)

		input := SummarizeInput{Text: "long document", Query: "risks", Strategy: "sequential", NoCache: true}
		_, output, err := server.handleSummarize(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "short version", output.Summary)
		assert.Equal(t, 4, output.SourceChunkCount)
		assert.Equal(t, 1, output.FailedChunkCount)

		assert.Equal(t, "long document", mock.lastDoc.Text)
		assert.Equal(t, "risks", mock.lastOpts.Query)
		assert.Equal(t, domain.ExecSequential, mock.lastOpts.Strategy)
		assert.True(t, mock.lastOpts.NoCache)
		assert.Nil(t, mock.lastOpts.Policy)
	})

	t.Run("applies chunking overrides over configured policy", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Chunking.OverlapTokens = 50
		mock := &mockSummarizeService{summary: &domain.FinalSummary{}}
		server, err := NewServer(&Ports{Summarize: mock, Settings: &mockSettingsService{settings: &settings}})
		require.NoError(t, err)

		input := SummarizeInput{Text: "doc", ChunkingInput: ChunkingInput{Chunking: "fixed", MaxTokens: 400}}
		_, _, err = server.handleSummarize(ctx, nil, input)
		require.NoError(t, err)

		require.NotNil(t, mock.lastOpts.Policy)
		assert.Equal(t, domain.ChunkFixed, mock.lastOpts.Policy.Strategy)
		assert.Equal(t, 400, mock.lastOpts.Policy.MaxTokens)
		assert.Equal(t, 50, mock.lastOpts.Policy.OverlapTokens)
	})

	t.Run("rejects unknown chunking strategy", func(t *testing.T) {
		mock := &mockSummarizeService{summary: &domain.FinalSummary{}}
		server, err := NewServer(&Ports{Summarize: mock})
		require.NoError(t, err)

		input := SummarizeInput{Text: "doc", ChunkingInput: ChunkingInput{Chunking: "diagonal"}}
		_, _, err = server.handleSummarize(ctx, nil, input)
		assert.ErrorIs(t, err, domain.ErrInvalidPolicy)
	})

	t.Run("rejects negative limits", func(t *testing.T) {
		server, err := NewServer(&Ports{Summarize: &mockSummarizeService{}})
		require.NoError(t, err)

		input := SummarizeInput{Text: "doc", ChunkingInput: ChunkingInput{MaxTokens: -1}}
		_, _, err = server.handleSummarize(ctx, nil, input)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("returns error on summarize failure", func(t *testing.T) {
		mock := &mockSummarizeService{err: errors.New("all chunks failed")}
		server, err := NewServer(&Ports{Summarize: mock})
		require.NoError(t, err)

		_, _, err = server.handleSummarize(ctx, nil, SummarizeInput{Text: "doc"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all chunks failed")
	})
}

func TestServer_handlePlanChunks(t *testing.T) {
	ctx := context.Background()
	chunks := []domain.Chunk{
		{Index: 0, Text: "# Intro\nhello", TokenCount: 3, SectionPath: []string{"Intro"}, EndOffset: 13},
		{Index: 1, Text: "```\ncode\n```", TokenCount: 5, IsAtomic: true, StartOffset: 13, EndOffset: 25},
	}

	t.Run("describes chunks without text", func(t *testing.T) {
		mock := &mockSummarizeService{chunks: chunks}
		server, err := NewServer(&Ports{Summarize: mock})
		require.NoError(t, err)

		_, output, err := server.handlePlanChunks(ctx, nil, PlanChunksInput{Text: "doc"})
		require.NoError(t, err)

		assert.Equal(t, 2, output.Count)
		require.Len(t, output.Chunks, 2)
		assert.Equal(t, []string{"Intro"}, output.Chunks[0].SectionPath)
		assert.Empty(t, output.Chunks[0].Text)
		assert.True(t, output.Chunks[1].IsAtomic)
		assert.Equal(t, 13, output.Chunks[1].StartOffset)
		assert.Equal(t, 25, output.Chunks[1].EndOffset)
		assert.Nil(t, mock.lastPolicy)
	})

	t.Run("includes text on request", func(t *testing.T) {
		mock := &mockSummarizeService{chunks: chunks}
		server, err := NewServer(&Ports{Summarize: mock})
		require.NoError(t, err)

		input := PlanChunksInput{Text: "doc", IncludeText: true, ChunkingInput: ChunkingInput{OverlapTokens: 10}}
		_, output, err := server.handlePlanChunks(ctx, nil, input)
		require.NoError(t, err)

		assert.Equal(t, "```\ncode\n```", output.Chunks[1].Text)
		require.NotNil(t, mock.lastPolicy)
		assert.Equal(t, 10, mock.lastPolicy.OverlapTokens)
		assert.Equal(t, domain.DefaultMaxTokens, mock.lastPolicy.MaxTokens)
	})

	t.Run("returns error on plan failure", func(t *testing.T) {
		mock := &mockSummarizeService{err: domain.ErrInvalidPolicy}
		server, err := NewServer(&Ports{Summarize: mock})
		require.NoError(t, err)

		_, _, err = server.handlePlanChunks(ctx, nil, PlanChunksInput{Text: "doc"})
		assert.ErrorIs(t, err, domain.ErrInvalidPolicy)
	})
}
