package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Logger writes structured diagnostics to stderr and/or a rotating file.
// Stdout is reserved for the MCP stdio transport, so console output goes to
// stderr.
type Logger struct {
	slogger  *slog.Logger
	logLevel LogLevel
	logFile  *os.File
}

type Config struct {
	Level      LogLevel
	OutputFile string
	MaxSize    int64 // bytes before rotation
	Console    bool
}

func ParseLogLevel(level string) LogLevel {
	switch level {
	case "DEBUG", "debug":
		return DEBUG
	case "INFO", "info":
		return INFO
	case "WARN", "warn", "WARNING", "warning":
		return WARN
	case "ERROR", "error":
		return ERROR
	default:
		return INFO
	}
}

var globalLogger *Logger

func Initialize(cfg Config) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	globalLogger = logger
	return nil
}

func NewLogger(cfg Config) (*Logger, error) {
	logger := &Logger{
		logLevel: cfg.Level,
	}

	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, os.Stderr)
	}

	if cfg.OutputFile != "" {
		dir := filepath.Dir(cfg.OutputFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}

		if err := rotateLogIfNeeded(cfg.OutputFile, cfg.MaxSize); err != nil {
			return nil, fmt.Errorf("failed to rotate log: %w", err)
		}

		file, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.logFile = file
		writers = append(writers, file)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	logger.slogger = slog.New(slog.NewTextHandler(writer, opts))

	return logger, nil
}

func rotateLogIfNeeded(filename string, maxSize int64) error {
	if maxSize <= 0 {
		return nil
	}
	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if info.Size() >= maxSize {
		timestamp := time.Now().Format("20060102-150405")
		backupName := fmt.Sprintf("%s.%s", filename, timestamp)
		if err := os.Rename(filename, backupName); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	return nil
}

func (l *Logger) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	if level < l.logLevel {
		return
	}
	switch level {
	case DEBUG:
		l.slogger.Debug(msg, args...)
	case INFO:
		l.slogger.Info(msg, args...)
	case WARN:
		l.slogger.Warn(msg, args...)
	case ERROR:
		l.slogger.Error(msg, args...)
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.log(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(WARN, msg, args...) }

func (l *Logger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.log(ERROR, msg, args...)
}

func Debug(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Warn(msg, args...)
	}
}

func Error(msg string, err error, args ...any) {
	if globalLogger != nil {
		globalLogger.Error(msg, err, args...)
	}
}

// LogConnectAttempt records one connect attempt. The connection string must
// already have its password redacted by the caller.
func LogConnectAttempt(attemptID, redactedConnString string, err error) {
	if err != nil {
		Error("Connect attempt failed", err, "attempt_id", attemptID, "conn", redactedConnString)
	} else {
		Info("Connect attempt succeeded", "attempt_id", attemptID, "conn", redactedConnString)
	}
}

// LogDatabaseOperation records a query with the SQL truncated to keep log
// lines bounded.
func LogDatabaseOperation(operation, query string, rows int64, err error) {
	sanitized := query
	if len(sanitized) > 100 {
		sanitized = sanitized[:100] + "..."
	}
	if err != nil {
		Error(fmt.Sprintf("%s operation failed", operation), err, "query", sanitized)
	} else {
		Info(fmt.Sprintf("%s operation completed", operation), "query", sanitized, "rows", rows)
	}
}

func GetGlobalLogger() *Logger {
	return globalLogger
}

func Shutdown() error {
	if globalLogger != nil {
		return globalLogger.Close()
	}
	return nil
}
