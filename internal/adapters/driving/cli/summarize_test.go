package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/precis/internal/core/domain"
)

func TestSummarizeCmd_Use(t *testing.T) {
	assert.Equal(t, "summarize [file]", summarizeCmd.Use)
}

func TestSummarizeCmd_Flags(t *testing.T) {
	for _, name := range []string{"query", "strategy", "json", "no-cache", "progress", "chunking", "max-tokens", "overlap"} {
		assert.NotNil(t, summarizeCmd.Flags().Lookup(name), "missing flag %q", name)
	}
	assert.Equal(t, "q", summarizeCmd.Flags().Lookup("query").Shorthand)
	assert.Equal(t, "s", summarizeCmd.Flags().Lookup("strategy").Shorthand)
}

func TestSummarizeCmd_RejectsExtraArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("", "summarize", "a.md", "b.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg(s)")
}

func TestSummarizeCmd_ReadsStdin(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, errOut, err := execute("a long report", "summarize")
	require.NoError(t, err)

	assert.Contains(t, out, "the summary")
	assert.Empty(t, errOut)
	assert.Equal(t, "a long report", ts.summarize.lastDoc.Text)
	assert.Equal(t, "stdin", ts.summarize.lastDoc.Metadata["source"])
	assert.Equal(t, domain.SummarizeOptions{}, ts.summarize.lastOpts)
}

func TestSummarizeCmd_ReadsFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, os.WriteFile(path, []byte("# Report\nbody"), 0600))

	_, _, err := execute("", "summarize", path)
	require.NoError(t, err)

	assert.Equal(t, "# Report\nbody", ts.summarize.lastDoc.Text)
	assert.Equal(t, "report.md", ts.summarize.lastDoc.Metadata["title"])
}

func TestSummarizeCmd_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("", "summarize", filepath.Join(t.TempDir(), "missing.md"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open document")
}

func TestSummarizeCmd_PassesOptions(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("text", "summarize",
		"--query", "what changed?", "--strategy", "sequential", "--no-cache",
		"--chunking", "fixed", "--max-tokens", "300")
	require.NoError(t, err)

	opts := ts.summarize.lastOpts
	assert.Equal(t, "what changed?", opts.Query)
	assert.Equal(t, domain.ExecSequential, opts.Strategy)
	assert.True(t, opts.NoCache)
	require.NotNil(t, opts.Policy)
	assert.Equal(t, domain.ChunkFixed, opts.Policy.Strategy)
	assert.Equal(t, 300, opts.Policy.MaxTokens)
	assert.Equal(t, domain.DefaultOverlapTokens, opts.Policy.OverlapTokens)
}

func TestSummarizeCmd_InvalidStrategy(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("text", "summarize", "--strategy", "eventually")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSummarizeCmd_InvalidChunking(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("text", "summarize", "--chunking", "diagonal")
	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)
}

func TestSummarizeCmd_StreamingShowsProgress(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.summarize.events = finalEvents("merged", 3, 1)

	out, errOut, err := execute("text", "summarize", "--strategy", "streaming")
	require.NoError(t, err)

	assert.Contains(t, out, "merged")
	assert.Contains(t, errOut, "[1/3] chunk 1 failed")
	assert.Contains(t, errOut, "[3/3] chunk 3 done")
	assert.Contains(t, errOut, "Warning: 1 of 3 chunks could not be summarised.")
}

func TestSummarizeCmd_QuietByDefault(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, errOut, err := execute("text", "summarize")
	require.NoError(t, err)
	assert.NotContains(t, errOut, "chunk")
}

func TestSummarizeCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.summarize.events = finalEvents("merged", 4, 2)

	out, _, err := execute("text", "summarize", "--json")
	require.NoError(t, err)

	var got domain.FinalSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, domain.FinalSummary{Text: "merged", SourceChunkCount: 4, FailedChunkCount: 2}, got)
}

func TestSummarizeCmd_ErrorEvent(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.summarize.events = []domain.ProgressEvent{{Kind: domain.ProgressError, Err: domain.ErrAllChunksFailed}}

	_, _, err := execute("text", "summarize")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAllChunksFailed)
}

func TestSummarizeCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.summarize.err = errors.New("LLM down")

	_, _, err := execute("text", "summarize")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summarize failed: LLM down")
}

func TestSummarizeCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	SetServices(nil)

	_, _, err := execute("text", "summarize")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summarize service not configured")
}
