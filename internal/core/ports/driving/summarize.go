package driving

import (
	"context"

	"github.com/custodia-labs/precis/internal/core/domain"
)

// SummarizeService summarises documents for external actors.
type SummarizeService interface {
	// Summarize runs the full pipeline and returns the final summary.
	Summarize(ctx context.Context, doc domain.Document, opts domain.SummarizeOptions) (*domain.FinalSummary, error)

	// Stream runs the pipeline and reports progress on the returned channel.
	// The channel closes after exactly one Final or Error event.
	Stream(ctx context.Context, doc domain.Document, opts domain.SummarizeOptions) (<-chan domain.ProgressEvent, error)

	// Plan splits a document without summarising it.
	Plan(doc domain.Document, policy *domain.ChunkingPolicy) ([]domain.Chunk, error)
}

// CacheService exposes result cache housekeeping.
type CacheService interface {
	// Stats reports cache contents.
	Stats(ctx context.Context) (domain.CacheStats, error)

	// Evict applies TTL and size bounds now.
	Evict(ctx context.Context) (int, error)

	// Purge removes every cached summary.
	Purge(ctx context.Context) error
}
