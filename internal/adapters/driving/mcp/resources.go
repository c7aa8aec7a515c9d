package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/precis/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for precis resources.
	uriScheme = "precis://"

	cacheStatsURI = uriScheme + "cache/stats"
	settingsURI   = uriScheme + "settings"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         cacheStatsURI,
		Name:        "cache-stats",
		Description: "Entry count and size of the summary cache",
		MIMEType:    "application/json",
	}, s.handleCacheStatsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         settingsURI,
		Name:        "settings",
		Description: "Active provider, chunking and summarisation settings",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)
}

// handleCacheStatsResource reports cache contents. A missing or disabled
// cache reads as empty.
func (s *Server) handleCacheStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type statsInfo struct {
		Enabled    bool  `json:"enabled"`
		Entries    int   `json:"entries"`
		TotalBytes int64 `json:"total_bytes"`
		MaxBytes   int64 `json:"max_bytes"`
		InFlight   int   `json:"in_flight"`
	}

	info := statsInfo{}
	if s.ports.Cache != nil {
		stats, err := s.ports.Cache.Stats(ctx)
		if err == nil {
			info = statsInfo{
				Enabled:    true,
				Entries:    stats.Entries,
				TotalBytes: stats.TotalBytes,
				MaxBytes:   stats.MaxBytes,
				InFlight:   stats.Staging,
			}
		}
	}

	return jsonResource(req.Params.URI, info)
}

// handleSettingsResource returns the active settings with the API key masked.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Settings == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("getting settings: %w", err)
	}

	type settingsInfo struct {
		Provider   string                `json:"provider"`
		Model      string                `json:"model"`
		Configured bool                  `json:"configured"`
		Chunking   domain.ChunkingPolicy `json:"chunking"`
		Strategy   string                `json:"strategy"`
		Cache      bool                  `json:"cache"`
	}

	return jsonResource(req.Params.URI, settingsInfo{
		Provider:   settings.LLM.Provider.String(),
		Model:      settings.LLM.Model,
		Configured: settings.LLM.IsConfigured(),
		Chunking:   settings.Chunking,
		Strategy:   settings.Summarize.Strategy.String(),
		Cache:      settings.Cache.Enabled,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
