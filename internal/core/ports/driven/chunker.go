package driven

import "github.com/custodia-labs/precis/internal/core/domain"

// ChunkPlanner splits a document into token-bounded chunks.
// Implementations must be deterministic: the same document and policy
// always produce the same chunks.
type ChunkPlanner interface {
	// Plan validates policy and returns ordered chunks.
	// An empty document yields an empty slice.
	Plan(doc domain.Document, policy domain.ChunkingPolicy) ([]domain.Chunk, error)
}
