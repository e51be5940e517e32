// Package resources exposes base tables as MCP resources.
package resources

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AbdelilahOu/MssqlMcp/internal/client"
	"github.com/AbdelilahOu/MssqlMcp/internal/executor"
	"github.com/AbdelilahOu/MssqlMcp/internal/guard"
	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
)

const (
	uriScheme = "mssql://"
	mimeType  = "application/json"
)

const listTablesQuery = "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE'"

// Registry derives resource descriptors from live schema metadata and serves
// reads against them. Descriptors are never persisted.
type Registry struct {
	manager *client.Manager
	exec    *executor.Executor
}

func NewRegistry(manager *client.Manager, exec *executor.Executor) *Registry {
	return &Registry{manager: manager, exec: exec}
}

// Descriptors returns one resource per base table in the connected schema.
// Listing is advisory: any failure degrades to an empty slice so the
// protocol handshake is never blocked.
func (r *Registry) Descriptors(ctx context.Context) []*mcp.Resource {
	db, err := r.manager.Acquire(ctx)
	if err != nil {
		logger.Error("Failed to list resources", err)
		return nil
	}

	rows, err := db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		logger.Error("Failed to list resources", err)
		return nil
	}
	defer rows.Close()

	var resources []*mcp.Resource
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			logger.Error("Failed to scan table name", err)
			return nil
		}
		resources = append(resources, &mcp.Resource{
			URI:         fmt.Sprintf("mssql://%s/data", table),
			Name:        fmt.Sprintf("Table: %s", table),
			MIMEType:    mimeType,
			Description: fmt.Sprintf("Data in table %s", table),
		})
	}
	if err := rows.Err(); err != nil {
		logger.Error("Failed to list resources", err)
		return nil
	}

	return resources
}

// TableFromURI extracts the table name from a resource identifier: the path
// segment immediately following the mssql:// prefix.
func TableFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return "", &guard.ValidationError{Msg: fmt.Sprintf("invalid URI scheme: %s", uri)}
	}
	table, _, _ := strings.Cut(strings.TrimPrefix(uri, uriScheme), "/")
	if table == "" {
		return "", &guard.ValidationError{Msg: fmt.Sprintf("missing table name in URI: %s", uri)}
	}
	return table, nil
}

// Read serves one resource read: validates the identifier, then returns the
// delimited table preview. Errors propagate to the caller, unlike listing.
func (r *Registry) Read(ctx context.Context, uri string) (string, error) {
	table, err := TableFromURI(uri)
	if err != nil {
		return "", err
	}

	db, err := r.manager.Acquire(ctx)
	if err != nil {
		return "", err
	}

	return r.exec.Preview(ctx, db, table)
}

func (r *Registry) handler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		text, err := r.Read(ctx, req.Params.URI)
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, MIMEType: mimeType, Text: text},
			},
		}, nil
	}
}

// Register adds the current per-table resources plus a template so tables
// created after startup remain readable.
func (r *Registry) Register(ctx context.Context, s *mcp.Server) {
	h := r.handler()
	s.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "mssql://{table}/data",
		Name:        "Table data",
		MIMEType:    mimeType,
		Description: "First rows of a table",
	}, h)
	for _, res := range r.Descriptors(ctx) {
		s.AddResource(res, h)
	}
}
