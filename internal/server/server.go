package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/client"
	"github.com/AbdelilahOu/MssqlMcp/internal/config"
	"github.com/AbdelilahOu/MssqlMcp/internal/executor"
	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
	"github.com/AbdelilahOu/MssqlMcp/internal/resources"
	"github.com/AbdelilahOu/MssqlMcp/internal/tools"
)

type MCPServerConfig struct {
	Version    string
	Connection *config.ConnectionConfig
}

// NewMCPServer assembles the server around an injected connection manager so
// hosts and tests can substitute their own.
func NewMCPServer(ctx context.Context, cfg MCPServerConfig, manager *client.Manager) *mcp.Server {
	impl := &mcp.Implementation{Name: "mssql-mcp-server", Version: cfg.Version}
	s := mcp.NewServer(impl, nil)

	exec := executor.New(cfg.Connection)

	// Tools register without requiring an active DB connection; resource
	// registration queries the schema and degrades to none on failure.
	tools.RegisterTools(s, manager, exec)
	resources.NewRegistry(manager, exec).Register(ctx, s)

	return s
}

type StdioServerConfig struct {
	Version    string
	Connection *config.ConnectionConfig
}

func RunStdioServer(cfg StdioServerConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := client.NewManager(cfg.Connection)
	defer manager.Close()

	s := NewMCPServer(ctx, MCPServerConfig{Version: cfg.Version, Connection: cfg.Connection}, manager)

	logger.Info("MSSQL MCP Server running",
		"server", cfg.Connection.Server,
		"database", cfg.Connection.Database)

	return s.Run(ctx, &mcp.StdioTransport{})
}
