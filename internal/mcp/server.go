// Package mcp exposes the orchestrator to MCP clients over stdio, so an
// assistant host can call capabilities as tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/carwise/gearbox/internal/orchestrator"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes capability execution tools.
type Server struct {
	orch *orchestrator.Orchestrator
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server around the orchestrator.
func NewServer(orch *orchestrator.Orchestrator) *Server {
	s := &Server{orch: orch}

	s.mcp = server.NewMCPServer(
		"gearbox",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers.
func (s *Server) registerTools() {
	s.mcp.AddTool(invokeCapabilityTool, s.handleInvokeCapability)
	s.mcp.AddTool(listCapabilitiesTool, s.handleListCapabilities)
	s.mcp.AddTool(getSessionContextTool, s.handleGetSessionContext)
	s.mcp.AddTool(invalidateCacheTool, s.handleInvalidateCache)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
