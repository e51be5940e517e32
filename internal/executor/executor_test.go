package executor_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/AbdelilahOu/MssqlMcp/internal/executor"
	"github.com/AbdelilahOu/MssqlMcp/internal/guard"
)

func testDB(t *testing.T, rowCount int) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE users (id INTEGER, name TEXT)`)
	require.NoError(t, err)
	for i := 1; i <= rowCount; i++ {
		_, err = db.Exec(`INSERT INTO users (id, name) VALUES (?, ?)`, i, fmt.Sprintf("user%d", i))
		require.NoError(t, err)
	}
	return db
}

func newExecutor() *executor.Executor {
	return &executor.Executor{DisplayCap: 3, PreviewRows: 100}
}

func TestRunCapsDisplayedRows(t *testing.T) {
	db := testDB(t, 10)
	exec := newExecutor()

	result, err := exec.Run(context.Background(), db, "SELECT id, name FROM users ORDER BY id")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, result.Columns)
	assert.Equal(t, 10, result.TotalRowCount)
	assert.Len(t, result.Rows, 3)
	assert.True(t, result.Truncated)
	for _, row := range result.Rows {
		assert.Len(t, row, len(result.Columns))
	}
}

func TestRunSmallResultNotTruncated(t *testing.T) {
	db := testDB(t, 2)
	exec := newExecutor()

	result, err := exec.Run(context.Background(), db, "SELECT id, name FROM users ORDER BY id")
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRowCount)
	assert.Len(t, result.Rows, 2)
	assert.False(t, result.Truncated)
}

func TestRunEmptyResult(t *testing.T) {
	db := testDB(t, 0)
	exec := newExecutor()

	result, err := exec.Run(context.Background(), db, "SELECT id FROM users")
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalRowCount)
	assert.Empty(t, result.Rows)
	assert.False(t, result.Truncated)
}

func TestRunBackendError(t *testing.T) {
	db := testDB(t, 0)
	exec := newExecutor()

	_, err := exec.Run(context.Background(), db, "SELECT nope FROM missing")
	require.Error(t, err)
	var execErr *executor.ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestFormatResultTruncated(t *testing.T) {
	db := testDB(t, 10)
	exec := newExecutor()

	result, err := exec.Run(context.Background(), db, "SELECT id, name FROM users ORDER BY id")
	require.NoError(t, err)

	text, err := executor.FormatResult(result)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "Query returned 10 rows. Showing first 3 rows:\n"))
	assert.Contains(t, text, `"name":"user1"`)
	assert.Contains(t, text, `"id":"3"`)
	assert.NotContains(t, text, "user4")
}

func TestFormatResultNoSummaryWhenComplete(t *testing.T) {
	db := testDB(t, 2)
	exec := newExecutor()

	result, err := exec.Run(context.Background(), db, "SELECT id, name FROM users ORDER BY id")
	require.NoError(t, err)

	text, err := executor.FormatResult(result)
	require.NoError(t, err)

	assert.Equal(t, `[{"id":"1","name":"user1"},{"id":"2","name":"user2"}]`, text)
}

func TestFormatResultNullValues(t *testing.T) {
	db := testDB(t, 0)
	_, err := db.Exec(`INSERT INTO users (id, name) VALUES (1, NULL)`)
	require.NoError(t, err)
	exec := newExecutor()

	result, err := exec.Run(context.Background(), db, "SELECT id, name FROM users")
	require.NoError(t, err)

	text, err := executor.FormatResult(result)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1","name":null}]`, text)
}

func TestRenderDelimited(t *testing.T) {
	result := &executor.QueryResult{
		Columns:       []string{"id", "name"},
		Rows:          [][]any{{"1", "alice"}, {"2", "bob"}},
		TotalRowCount: 2,
	}

	text := executor.RenderDelimited(result)
	assert.Equal(t, "id,name\n1,alice\n2,bob", text)
	assert.Len(t, strings.Split(text, "\n"), 3)
}

func TestRenderDelimitedNull(t *testing.T) {
	result := &executor.QueryResult{
		Columns:       []string{"id", "name"},
		Rows:          [][]any{{"1", nil}},
		TotalRowCount: 1,
	}

	assert.Equal(t, "id,name\n1,NULL", executor.RenderDelimited(result))
}

func TestPreviewQuery(t *testing.T) {
	exec := newExecutor()

	query, err := exec.PreviewQuery("users")
	require.NoError(t, err)
	assert.Equal(t, "SELECT TOP 100 * FROM [users]", query)

	query, err = exec.PreviewQuery("dbo.users")
	require.NoError(t, err)
	assert.Equal(t, "SELECT TOP 100 * FROM [dbo].[users]", query)
}

func TestPreviewQueryRejectsBadIdentifiers(t *testing.T) {
	exec := newExecutor()

	bad := []string{
		"",
		"users; DROP TABLE users",
		"users]",
		"a.b.c",
		"users--",
		"users name",
	}
	for _, table := range bad {
		t.Run(table, func(t *testing.T) {
			_, err := exec.PreviewQuery(table)
			require.Error(t, err)
			var valErr *guard.ValidationError
			assert.ErrorAs(t, err, &valErr)
		})
	}
}
