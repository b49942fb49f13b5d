package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all riskdesk tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("riskdesk", "1.0.0")
	client := NewRiskdeskClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolSimulateThresholds, h.HandleSimulateThresholds)
	s.AddTool(ToolGetOverview, h.HandleGetOverview)
	s.AddTool(ToolGetRiskHistogram, h.HandleGetRiskHistogram)
	s.AddTool(ToolListRiskyCorridors, h.HandleListRiskyCorridors)
	s.AddTool(ToolSearchTransactions, h.HandleSearchTransactions)

	return s
}
