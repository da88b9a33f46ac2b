package mcptools

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewServer registers the operator tools on a stdio-ready MCP server.
func NewServer(searcher Searcher, convs ConversationLister, board CallBoard) *server.MCPServer {
	s := server.NewMCPServer(
		"supportdesk",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Tools for support operators: search a tenant's knowledge base, "+
			"review recent conversations, and check live call metrics."),
	)

	search := NewSearchTool(searcher)
	s.AddTool(search.Definition(), search.Handle)

	list := NewConversationsTool(convs)
	s.AddTool(list.Definition(), list.Handle)

	metrics := NewCallMetricsTool(board)
	s.AddTool(metrics.Definition(), metrics.Handle)

	return s
}
