// Package mcp serves file maps to agents over the Model Context Protocol.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/phobologic/filemap/internal/batch"
	"github.com/phobologic/filemap/internal/discover"
	"github.com/phobologic/filemap/internal/logging"
)

// Server exposes the file_map and map_paths tools.
type Server struct {
	finder *discover.Finder
	logger *slog.Logger
	mcp    *server.MCPServer
}

// NewServer registers the tools. map_paths resolves paths against the
// finder's root.
func NewServer(version string, mapper *batch.Mapper, finder *discover.Finder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	mcpServer := server.NewMCPServer(
		"filemap",
		version,
		server.WithToolCapabilities(true),
	)

	AddFileMapTool(mcpServer, mapper)
	AddMapPathsTool(mcpServer, mapper, finder)

	return &Server{
		finder: finder,
		logger: logger,
		mcp:    mcpServer,
	}
}

// Serve runs the server on stdio until the client disconnects or ctx is
// cancelled.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio", "root", s.finder.Root())
		errCh <- server.ServeStdio(s.mcp)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("stopping MCP server")
		return nil
	}
}
