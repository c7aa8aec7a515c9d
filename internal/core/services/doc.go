// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - TokenCounter: per-model token counting with a heuristic fallback
//   - SummaryOrchestrator: map-reduce summarisation over planned chunks
//   - SummarizeService: plans documents and delegates to the orchestrator
//   - CacheJanitor: periodic result cache eviction
//
// Services are pure Go with no CGO. Fan-out uses errgroup and retries use
// cenkalti/backoff; no service imports an adapter package.
package services
