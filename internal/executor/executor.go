// Package executor runs admitted queries and renders bounded results.
package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/AbdelilahOu/MssqlMcp/internal/config"
	"github.com/AbdelilahOu/MssqlMcp/internal/guard"
	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
)

// ExecutionError reports a backend failure for an admitted query. It carries
// the backend's message, never credentials.
type ExecutionError struct {
	Msg string
	Err error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// QueryResult holds column metadata and the materialized rows. Every row has
// exactly len(Columns) values; TotalRowCount counts all rows the backend
// returned, of which at most the display cap were materialized.
type QueryResult struct {
	Columns       []string
	Rows          [][]any
	Truncated     bool
	TotalRowCount int
}

// Executor executes literal query text against a live connection and formats
// the payloads for the two output contracts: the JSON-summary form for the
// execute_sql tool, and the delimited form for resource reads.
type Executor struct {
	DisplayCap  int
	PreviewRows int
	Timeout     time.Duration
}

func New(cfg *config.ConnectionConfig) *Executor {
	return &Executor{
		DisplayCap:  cfg.MaxDisplayRows,
		PreviewRows: cfg.PreviewRows,
		Timeout:     cfg.QueryTimeout,
	}
}

// Run executes the query verbatim, materializing at most DisplayCap rows
// while counting the true total.
func (e *Executor) Run(ctx context.Context, db *sqlx.DB, query string) (*QueryResult, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		logger.LogDatabaseOperation("SELECT", query, 0, err)
		return nil, &ExecutionError{Msg: "query execution error", Err: err}
	}
	defer rows.Close()

	result, err := collect(rows, e.DisplayCap)
	if err != nil {
		logger.LogDatabaseOperation("SELECT", query, 0, err)
		return nil, err
	}

	logger.LogDatabaseOperation("SELECT", query, int64(result.TotalRowCount), nil)
	return result, nil
}

// PreviewQuery composes the bounded statement for a table preview. The
// identifier is validated and bracket-quoted because the gateway builds this
// statement itself.
func (e *Executor) PreviewQuery(table string) (string, error) {
	quoted, err := quoteIdentifier(table)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT TOP %d * FROM %s", e.PreviewRows, quoted), nil
}

// Preview runs the composed table-preview query and returns the delimited
// rendering.
func (e *Executor) Preview(ctx context.Context, db *sqlx.DB, table string) (string, error) {
	query, err := e.PreviewQuery(table)
	if err != nil {
		return "", err
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		logger.LogDatabaseOperation("PREVIEW", query, 0, err)
		return "", &ExecutionError{Msg: "query execution error", Err: err}
	}
	defer rows.Close()

	result, err := collect(rows, e.PreviewRows)
	if err != nil {
		logger.LogDatabaseOperation("PREVIEW", query, 0, err)
		return "", err
	}

	logger.LogDatabaseOperation("PREVIEW", query, int64(result.TotalRowCount), nil)
	return RenderDelimited(result), nil
}

// collect scans up to limit rows while counting every row the backend
// returns.
func collect(rows *sql.Rows, limit int) (*QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		// No result set. Should not occur for admitted queries, but an
		// empty result beats a failure.
		return &QueryResult{Columns: []string{}, Rows: [][]any{}}, nil
	}

	result := &QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		result.TotalRowCount++
		if len(result.Rows) >= limit {
			continue
		}

		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, &ExecutionError{Msg: "error scanning row", Err: err}
		}

		row := make([]any, len(columns))
		for i := range values {
			row[i] = stringifyValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Msg: "error iterating rows", Err: err}
	}

	result.Truncated = result.TotalRowCount > len(result.Rows)
	return result, nil
}

// stringifyValue normalizes a scanned value for rendering. NULL stays nil so
// the JSON form carries a literal null.
func stringifyValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// FormatResult renders the tool-path payload: a one-line summary when the
// result was truncated, followed by a JSON array mapping column names to
// stringified values.
func FormatResult(result *QueryResult) (string, error) {
	mapped := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		m := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			m[col] = row[i]
		}
		mapped = append(mapped, m)
	}

	jsonBytes, err := json.Marshal(mapped)
	if err != nil {
		return "", &ExecutionError{Msg: "JSON marshal error", Err: err}
	}

	if result.Truncated {
		return fmt.Sprintf("Query returned %d rows. Showing first %d rows:\n%s",
			result.TotalRowCount, len(result.Rows), jsonBytes), nil
	}
	return string(jsonBytes), nil
}

// RenderDelimited renders the resource-read payload: a comma-joined header
// of column names and one comma-joined line per row.
func RenderDelimited(result *QueryResult) string {
	lines := make([]string, 0, len(result.Rows)+1)
	lines = append(lines, strings.Join(result.Columns, ","))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n")
}

var identifierPart = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#]*$`)

// quoteIdentifier bracket-quotes a table name, optionally schema-qualified.
// Fails closed on anything that does not look like a plain identifier.
func quoteIdentifier(table string) (string, error) {
	if table == "" {
		return "", &guard.ValidationError{Msg: "table name is required"}
	}
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return "", &guard.ValidationError{Msg: fmt.Sprintf("invalid table name: %s", table)}
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		if !identifierPart.MatchString(p) {
			return "", &guard.ValidationError{Msg: fmt.Sprintf("invalid table name: %s", table)}
		}
		quoted[i] = "[" + p + "]"
	}
	return strings.Join(quoted, "."), nil
}
