package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelilahOu/MssqlMcp/internal/config"
	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
	"github.com/AbdelilahOu/MssqlMcp/internal/server"
)

const version = "v0.1.0"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mssql-mcp-server",
	Short: "MSSQL MCP Server for read-only SQL Server access",
	Long:  `A Model Context Protocol (MCP) server exposing SQL Server tables and a read-only query tool to AI clients.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags default to the MSSQL_* environment; the password is
	// env-only so it never appears in a process listing.
	rootCmd.PersistentFlags().StringP("server", "s", os.Getenv("MSSQL_SERVER"), "SQL Server host (or host,port)")
	rootCmd.PersistentFlags().StringP("database", "d", os.Getenv("MSSQL_DATABASE"), "Target database")
	rootCmd.PersistentFlags().StringP("user", "u", os.Getenv("MSSQL_USER"), "SQL login user")
	rootCmd.PersistentFlags().IntP("port", "p", 0, "SQL Server port (default 1433)")
	rootCmd.PersistentFlags().String("log-file", os.Getenv("MSSQL_MCP_LOG_FILE"), "Log file path (stderr only when empty)")
	rootCmd.PersistentFlags().String("log-level", os.Getenv("MSSQL_MCP_LOG_LEVEL"), "Log level (DEBUG, INFO, WARN, ERROR)")

	// Subcommand: stdio (local transport, for IDE/agent integration)
	stdioCmd := &cobra.Command{
		Use:   "stdio",
		Short: "Run over stdio transport (for local MCP clients)",
		RunE:  runStdioServer,
	}
	rootCmd.AddCommand(stdioCmd)
}

func runStdioServer(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if v, _ := cmd.Flags().GetString("server"); v != "" {
		cfg.Server = v
		if host, port, ok := strings.Cut(v, ","); ok {
			if p, err := strconv.Atoi(strings.TrimSpace(port)); err == nil {
				cfg.Server = strings.TrimSpace(host)
				cfg.Port = p
			}
		}
	}
	if v, _ := cmd.Flags().GetString("database"); v != "" {
		cfg.Database = v
	}
	if v, _ := cmd.Flags().GetString("user"); v != "" {
		cfg.User = v
	}
	if v, _ := cmd.Flags().GetInt("port"); v > 0 {
		cfg.Port = v
	}

	logFile, _ := cmd.Flags().GetString("log-file")
	logLevel, _ := cmd.Flags().GetString("log-level")
	if err := logger.Initialize(logger.Config{
		Level:      logger.ParseLogLevel(logLevel),
		OutputFile: logFile,
		MaxSize:    10 * 1024 * 1024,
		Console:    true,
	}); err != nil {
		return err
	}
	defer logger.Shutdown()

	// Missing connection parameters surface at first use, not here: tools
	// must register even when the DB is unreachable.
	return server.RunStdioServer(server.StdioServerConfig{
		Version:    version,
		Connection: cfg,
	})
}
