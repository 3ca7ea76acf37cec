// Package mcp exposes the engine as Model Context Protocol tools over stdio.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"avail-risk/internal/engine"
)

// ServerName is reported to clients during initialisation.
const ServerName = "avail-risk"

// Server holds the state for the MCP server.
type Server struct {
	engine *engine.Engine
	mcp    *mcp.Server
}

// NewServer creates a new MCP server with every tool registered.
func NewServer(e *engine.Engine, version string) *Server {
	s := &Server{
		engine: e,
		mcp:    mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil),
	}
	s.registerTools()
	return s
}

// Serve runs the server over stdio until the client disconnects or ctx is
// cancelled.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("dataset", s.engine.DatasetPath()).Msg("MCP server listening on stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t. It is used to run the server over
// in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}
