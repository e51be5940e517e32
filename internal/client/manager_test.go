package client_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/AbdelilahOu/MssqlMcp/internal/client"
	"github.com/AbdelilahOu/MssqlMcp/internal/config"
)

func testConfig() *config.ConnectionConfig {
	return &config.ConnectionConfig{Server: "localhost", Database: "testdb"}
}

func sqliteOpener(opens *int) client.Opener {
	return func(ctx context.Context) (*sqlx.DB, error) {
		*opens++
		return sqlx.Open("sqlite", ":memory:")
	}
}

func TestAcquireOpensLazily(t *testing.T) {
	opens := 0
	m := client.NewManagerWithOpener(testConfig(), sqliteOpener(&opens))
	defer m.Close()

	assert.Equal(t, 0, opens)

	db, err := m.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, db)
	assert.Equal(t, 1, opens)
}

func TestAcquireReusesLiveConnection(t *testing.T) {
	opens := 0
	m := client.NewManagerWithOpener(testConfig(), sqliteOpener(&opens))
	defer m.Close()

	db1, err := m.Acquire(context.Background())
	require.NoError(t, err)
	db2, err := m.Acquire(context.Background())
	require.NoError(t, err)

	assert.Same(t, db1, db2)
	assert.Equal(t, 1, opens, "no redundant reconnect for a live connection")
}

func TestAcquireReconnectsOnceOnProbeFailure(t *testing.T) {
	opens := 0
	m := client.NewManagerWithOpener(testConfig(), sqliteOpener(&opens))
	defer m.Close()

	db1, err := m.Acquire(context.Background())
	require.NoError(t, err)

	// Kill the session underneath the manager so the probe fails.
	require.NoError(t, db1.Close())

	db2, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, db1, db2)
	assert.Equal(t, 2, opens, "exactly one reconnect")
}

func TestAcquirePropagatesConnectionError(t *testing.T) {
	opens := 0
	fail := false
	opener := func(ctx context.Context) (*sqlx.DB, error) {
		if fail {
			return nil, errors.New("dial tcp: connection refused")
		}
		opens++
		return sqlx.Open("sqlite", ":memory:")
	}
	m := client.NewManagerWithOpener(testConfig(), opener)
	defer m.Close()

	db, err := m.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, db.Close())
	fail = true

	_, err = m.Acquire(context.Background())
	require.Error(t, err)
	var connErr *client.ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.Equal(t, 1, opens, "no retry loop after a failed reconnect")
}

func TestAcquireSurfacesConfigError(t *testing.T) {
	opens := 0
	m := client.NewManagerWithOpener(&config.ConnectionConfig{}, sqliteOpener(&opens))

	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 0, opens, "no connect attempt without required parameters")
}

func TestCloseReleasesConnection(t *testing.T) {
	opens := 0
	m := client.NewManagerWithOpener(testConfig(), sqliteOpener(&opens))

	_, err := m.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "double close is safe")

	// A later demand reconnects.
	_, err = m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, opens)
}
