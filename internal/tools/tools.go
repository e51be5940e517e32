package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/client"
	"github.com/AbdelilahOu/MssqlMcp/internal/executor"
)

func RegisterTools(s *mcp.Server, manager *client.Manager, exec *executor.Executor) {
	// Execute SQL Tool (the only tool this server exposes)
	GetExecuteSQLTool(manager, exec).Register(s)
}
