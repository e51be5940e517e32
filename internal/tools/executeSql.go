package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/client"
	"github.com/AbdelilahOu/MssqlMcp/internal/executor"
	"github.com/AbdelilahOu/MssqlMcp/internal/guard"
)

// rejectedMessage is the fixed payload for queries the guard turns away.
// Query-level problems never surface as protocol errors on this path.
const rejectedMessage = "Error: Only SELECT queries are allowed"

type ExecuteSQLInput struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"SELECT SQL query to execute"`
}

type ExecuteSQLOutput struct {
	Results string `json:"results" jsonschema_description:"Formatted query results"`
}

func GetExecuteSQLTool(manager *client.Manager, exec *executor.Executor) *ToolDefinition[ExecuteSQLInput, ExecuteSQLOutput] {
	return NewToolDefinition(
		"execute_sql",
		"Execute a read-only SQL query (SELECT only) against the connected SQL Server database.",
		func(ctx context.Context, req *mcp.CallToolRequest, input ExecuteSQLInput) (*mcp.CallToolResult, ExecuteSQLOutput, error) {
			return executeSQLHandler(ctx, input, manager, exec)
		},
	)
}

func executeSQLHandler(ctx context.Context, input ExecuteSQLInput, manager *client.Manager, exec *executor.Executor) (*mcp.CallToolResult, ExecuteSQLOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, ExecuteSQLOutput{}, fmt.Errorf("query is required")
	}

	if c := guard.Classify(input.Query); !c.Admitted {
		return textResult(rejectedMessage)
	}

	db, err := manager.Acquire(ctx)
	if err != nil {
		return textResult(fmt.Sprintf("Error: %v", err))
	}

	result, err := exec.Run(ctx, db, input.Query)
	if err != nil {
		return textResult(fmt.Sprintf("Error: %v", err))
	}

	text, err := executor.FormatResult(result)
	if err != nil {
		return textResult(fmt.Sprintf("Error: %v", err))
	}
	return textResult(text)
}

func textResult(text string) (*mcp.CallToolResult, ExecuteSQLOutput, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, ExecuteSQLOutput{Results: text}, nil
}
