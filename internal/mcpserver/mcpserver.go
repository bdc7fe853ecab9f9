package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and registers the bury analysis tools.
type Server struct {
	server *mcp.Server
}

// NewServer creates a new MCP server with all bury tools registered.
func NewServer(version string) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "bury",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds the analysis tools to the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_dead_code",
		Description: describeDeadCode(),
	}, handleAnalyzeDeadCode)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_entry_points",
		Description: describeEntryPoints(),
	}, handleListEntryPoints)
}
