package domain

import "fmt"

// ExecutionStrategy selects how chunk summaries are scheduled.
type ExecutionStrategy string

// Available execution strategies.
const (
	// ExecParallel summarises chunks concurrently and reports only the final result.
	ExecParallel ExecutionStrategy = "parallel"

	// ExecStreaming summarises chunks concurrently and reports each partial as it completes.
	ExecStreaming ExecutionStrategy = "streaming"

	// ExecSequential summarises chunks one at a time in document order.
	ExecSequential ExecutionStrategy = "sequential"
)

// IsValid returns true if the strategy is recognised.
func (s ExecutionStrategy) IsValid() bool {
	switch s {
	case ExecParallel, ExecStreaming, ExecSequential:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s ExecutionStrategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s ExecutionStrategy) Description() string {
	switch s {
	case ExecParallel:
		return "Parallel (bounded fan-out, final result only)"
	case ExecStreaming:
		return "Streaming (bounded fan-out, partial results as they complete)"
	case ExecSequential:
		return "Sequential (one chunk at a time)"
	default:
		return unknownDescription
	}
}

// ParseExecutionStrategy converts a configuration string to a strategy.
func ParseExecutionStrategy(s string) (ExecutionStrategy, error) {
	strategy := ExecutionStrategy(s)
	if !strategy.IsValid() {
		return "", fmt.Errorf("%w: unknown execution strategy %q", ErrInvalidInput, s)
	}
	return strategy, nil
}

// AllExecutionStrategies returns all available execution strategies.
func AllExecutionStrategies() []ExecutionStrategy {
	return []ExecutionStrategy{ExecParallel, ExecStreaming, ExecSequential}
}

// SummaryStatus is the outcome of a single chunk summary.
type SummaryStatus string

// Chunk summary outcomes.
const (
	StatusOK      SummaryStatus = "ok"
	StatusFailed  SummaryStatus = "failed"
	StatusTimeout SummaryStatus = "timeout"
)

// String returns the string representation.
func (s SummaryStatus) String() string {
	return string(s)
}

// PartialSummary is the map-phase result for one chunk.
type PartialSummary struct {
	ChunkIndex int           `json:"chunk_index"`
	Text       string        `json:"text"`
	Status     SummaryStatus `json:"status"`
	Attempts   int           `json:"attempts"`

	// Err is the last error for a failed chunk.
	Err error `json:"-"`
}

// OK returns true if the chunk was summarised.
func (p PartialSummary) OK() bool {
	return p.Status == StatusOK
}

// FinalSummary is the reduced result of a run.
type FinalSummary struct {
	Text             string `json:"text"`
	SourceChunkCount int    `json:"source_chunk_count"`
	FailedChunkCount int    `json:"failed_chunk_count"`
}

// ProgressKind identifies a progress event.
type ProgressKind string

// Progress event kinds.
const (
	ProgressPartial ProgressKind = "partial"
	ProgressFinal   ProgressKind = "final"
	ProgressError   ProgressKind = "error"
)

// ProgressEvent is emitted while a run is in flight.
// Exactly one Final or Error event ends every stream.
type ProgressEvent struct {
	Kind      ProgressKind
	Partial   *PartialSummary
	Final     *FinalSummary
	Err       error
	Completed int
	Total     int
}

// ModelRef identifies the model a run targets.
type ModelRef struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
}

// String returns provider/model.
func (m ModelRef) String() string {
	return m.Provider.String() + "/" + m.Model
}

// TokenCount is a token count plus whether it came from the heuristic fallback.
type TokenCount struct {
	Tokens   int
	Degraded bool
}

// SummarizeOptions adjusts a single summarisation request.
type SummarizeOptions struct {
	// Query focuses the summary. Empty asks for a general summary.
	Query string

	// Strategy overrides the configured execution strategy when set.
	Strategy ExecutionStrategy

	// Policy overrides the configured chunking policy when set.
	Policy *ChunkingPolicy

	// NoCache bypasses the result cache for both reads and writes.
	NoCache bool
}
