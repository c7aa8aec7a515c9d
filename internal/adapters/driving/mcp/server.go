package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/precis/internal/logger"
)

// DefaultVersion is reported to clients when no build version is set.
const DefaultVersion = "dev"

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

const instructions = `precis summarises long documents. Call plan_chunks to preview how a
text will be split, and summarize to run the map-reduce summary. Pass a query
to focus the summary. Identical requests are served from the result cache.`

// Server is the MCP server for precis.
type Server struct {
	ports   *Ports
	server  *mcp.Server
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported in the initialize handshake.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports:   ports,
		version: DefaultVersion,
	}
	for _, opt := range opts {
		opt(s)
	}

	impl := &mcp.Implementation{
		Name:    "precis",
		Version: s.version,
	}
	s.server = mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions})

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Version returns the version reported to clients.
func (s *Server) Version() string {
	return s.version
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("mcp: serving on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
// In-flight summaries get shutdownTimeout to finish after cancellation.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutdown: %v", err)
		}
	}()

	logger.Debug("mcp: serving on http %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}
