// Package client owns the single database connection behind the gateway.
package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AbdelilahOu/MssqlMcp/internal/config"
	"github.com/AbdelilahOu/MssqlMcp/internal/logger"
)

// ConnectionError reports a failure to establish or re-establish the
// database session.
type ConnectionError struct {
	Msg string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Opener dials a new database handle. Injectable so tests can substitute an
// in-memory backend and count connect attempts.
type Opener func(ctx context.Context) (*sqlx.DB, error)

// Manager holds at most one live connection, created on first demand and
// probed before each reuse. It is not safe for concurrent use: the MCP
// dispatch loop serializes calls onto it, and any other host must do the
// same.
type Manager struct {
	cfg    *config.ConnectionConfig
	opener Opener
	db     *sqlx.DB
}

func NewManager(cfg *config.ConnectionConfig) *Manager {
	m := &Manager{cfg: cfg}
	m.opener = m.dial
	return m
}

// NewManagerWithOpener substitutes the dial function. Test seam.
func NewManagerWithOpener(cfg *config.ConnectionConfig, opener Opener) *Manager {
	return &Manager{cfg: cfg, opener: opener}
}

func (m *Manager) dial(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "mssql", m.cfg.ConnString())
	if err != nil {
		return nil, err
	}
	// Single logical session: one open connection, reused across requests.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// Acquire returns the live connection, opening it on first use. An existing
// connection is probed with a trivial round trip; on probe failure the
// handle is discarded and exactly one fresh connect is attempted within the
// same call. A failed connect propagates as ConnectionError (or ConfigError
// when required parameters are missing).
func (m *Manager) Acquire(ctx context.Context) (*sqlx.DB, error) {
	if m.db != nil {
		err := m.db.PingContext(ctx)
		if err == nil {
			return m.db, nil
		}
		logger.Warn("Liveness probe failed, discarding connection", "error", err.Error())
		m.db.Close()
		m.db = nil
	}
	return m.connect(ctx)
}

func (m *Manager) connect(ctx context.Context) (*sqlx.DB, error) {
	if err := m.cfg.Validate(); err != nil {
		return nil, err
	}

	attemptID := uuid.New().String()
	db, err := m.opener(ctx)
	logger.LogConnectAttempt(attemptID, config.Redact(m.cfg.ConnString()), err)
	if err != nil {
		return nil, &ConnectionError{Msg: "failed to connect to database", Err: err}
	}

	m.db = db
	return db, nil
}

// Close releases the held connection. Safe to call when none is held.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}
