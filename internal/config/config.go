package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Defaults for the connection surface. MaxDisplayRows caps how many result
// rows the execute_sql tool renders; PreviewRows bounds the table-preview
// query composed for resource reads.
const (
	DefaultPort           = 1433
	DefaultConnectTimeout = 30 * time.Second
	DefaultQueryTimeout   = 30 * time.Second
	DefaultMaxDisplayRows = 3
	DefaultPreviewRows    = 100
)

// ConfigError reports missing or invalid connection parameters.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

// ConnectionConfig holds everything needed to reach the SQL Server instance.
// Immutable after Load.
type ConnectionConfig struct {
	Server                 string
	Port                   int
	Database               string
	User                   string
	Password               string
	Driver                 string // accepted for ODBC compatibility, informational only
	Encrypt                bool
	TrustServerCertificate bool
	ConnectTimeout         time.Duration
	QueryTimeout           time.Duration
	MaxDisplayRows         int
	PreviewRows            int
}

// Load reads the MSSQL_* environment variables. Missing required values are
// not an error here: they surface as a ConfigError from Validate at first
// use, so the server can still start and register its tools.
func Load() *ConnectionConfig {
	cfg := &ConnectionConfig{
		Server:                 os.Getenv("MSSQL_SERVER"),
		Port:                   DefaultPort,
		Database:               os.Getenv("MSSQL_DATABASE"),
		User:                   os.Getenv("MSSQL_USER"),
		Password:               os.Getenv("MSSQL_PASSWORD"),
		Driver:                 os.Getenv("MSSQL_DRIVER"),
		Encrypt:                envBool("MSSQL_ENCRYPT", true),
		TrustServerCertificate: envBool("MSSQL_TRUST_SERVER_CERTIFICATE", true),
		ConnectTimeout:         envSeconds("MSSQL_CONNECT_TIMEOUT", DefaultConnectTimeout),
		QueryTimeout:           envSeconds("MSSQL_QUERY_TIMEOUT", DefaultQueryTimeout),
		MaxDisplayRows:         envInt("MSSQL_MAX_ROWS", DefaultMaxDisplayRows),
		PreviewRows:            envInt("MSSQL_PREVIEW_ROWS", DefaultPreviewRows),
	}

	// MSSQL_SERVER may carry the port as "host,port" (ODBC convention).
	if host, port, ok := strings.Cut(cfg.Server, ","); ok {
		if p, err := strconv.Atoi(strings.TrimSpace(port)); err == nil {
			cfg.Server = strings.TrimSpace(host)
			cfg.Port = p
		}
	}
	if p := os.Getenv("MSSQL_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			cfg.Port = v
		}
	}

	return cfg
}

// Validate checks the parameters required for a connect attempt.
func (c *ConnectionConfig) Validate() error {
	if c.Server == "" {
		return &ConfigError{Msg: "MSSQL_SERVER is required"}
	}
	if c.Database == "" {
		return &ConfigError{Msg: "MSSQL_DATABASE is required"}
	}
	return nil
}

// ConnString builds an ADO-style connection string for go-mssqldb. The ADO
// format avoids URL-encoding issues with special characters in passwords.
// ApplicationIntent=ReadOnly is the session-level second line of defense
// beneath the query guard.
func (c *ConnectionConfig) ConnString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "server=%s;port=%d", c.Server, c.Port)
	if c.User != "" {
		fmt.Fprintf(&b, ";user id=%s;password=%s", c.User, c.Password)
	}
	fmt.Fprintf(&b, ";database=%s", c.Database)
	fmt.Fprintf(&b, ";dial timeout=%.0f;connection timeout=%.0f",
		c.ConnectTimeout.Seconds(), c.ConnectTimeout.Seconds())
	if c.Encrypt {
		b.WriteString(";encrypt=true")
		if c.TrustServerCertificate {
			b.WriteString(";TrustServerCertificate=true")
		}
	} else {
		b.WriteString(";encrypt=disable")
	}
	b.WriteString(";ApplicationIntent=ReadOnly")
	return b.String()
}

var passwordPattern = regexp.MustCompile(`(?i)(password=)[^;]*`)

// Redact masks the password in a connection string so it can appear in
// diagnostics. Credentials are never logged in plaintext.
func Redact(connString string) string {
	return passwordPattern.ReplaceAllString(connString, "${1}***")
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
