// Package mcp provides an MCP (Model Context Protocol) server adapter for precis.
// It lets AI assistants summarise long documents and inspect chunk plans.
package mcp

import "errors"

// ErrMissingSummarizeService is returned when the summarize service is not provided.
var ErrMissingSummarizeService = errors.New("mcp: summarize service is required")
