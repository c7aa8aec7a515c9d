package mcp

import (
	"github.com/custodia-labs/precis/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Summarize runs summaries and chunk plans.
	Summarize driving.SummarizeService

	// Cache exposes result cache statistics.
	Cache driving.CacheService

	// Settings exposes the active configuration.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Summarize == nil {
		return ErrMissingSummarizeService
	}
	// Cache and Settings only back resources.
	return nil
}
