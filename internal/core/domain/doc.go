// Package domain defines the core business entities for precis.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Extracted text awaiting summarisation
//   - Chunk: A token-bounded slice of a document
//   - ChunkingPolicy: Limits and strategy for the planner
//   - PartialSummary, FinalSummary: Map and reduce results
//   - Fingerprint, CacheEntry: Result cache keys and records
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
