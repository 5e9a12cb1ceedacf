package tool

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients during initialization.
var Version = "v1.0.0"

// NewServer creates an MCP server exposing the send_email tool.
func NewServer(svc mailSender, rec recorder, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "email-mcp-server",
		Title:   "Email MCP Server",
		Version: Version,
	}, nil)

	server.AddTool(&mcp.Tool{
		Name:        ToolSendEmail,
		Description: "Send an email to a recipient",
		InputSchema: sendEmailSchema(),
	}, NewSendEmail(svc, rec, logger).SendEmail)

	return server
}
