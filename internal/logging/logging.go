// Package logging builds the zerolog loggers used across pbicli and carries
// per-invocation trace IDs through context. Commands construct one logger at
// startup via NewLoggerWithPath, derive component loggers from it, and attach
// it to the command context so lower layers can recover it with FromContext.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Log output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Log output destinations.
const (
	OutputStderr = "stderr"
	OutputStdout = "stdout"
	OutputFile   = "file"
)

// Environment variables that override the configured log level and format.
const (
	EnvLogLevel  = "PBICLI_LOG_LEVEL"
	EnvLogFormat = "PBICLI_LOG_FORMAT"
)

const logFilePerm = 0600

// Config controls construction of the process logger.
type Config struct {
	Level  string // trace|debug|info|warn|error, defaults to info
	Format string // console|json, defaults to console
	Output string // stderr|stdout|file, defaults to stderr
	File   string // log file path, used when Output == "file"
	Caller bool   // annotate events with caller file:line
}

// LogPathResult carries the constructed logger together with the state of the
// optional file sink so the CLI can report where logs went and close the
// handle on shutdown.
type LogPathResult struct {
	Logger         zerolog.Logger
	FilePath       string
	UsingFile      bool
	FallbackUsed   bool
	FallbackReason string

	file *os.File
}

// Close releases the file sink, if one was opened. Safe to call on a
// console-only result.
func (r *LogPathResult) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// NewLoggerWithPath builds the process logger from cfg. When file output is
// requested but the file cannot be opened, it falls back to stderr and
// records the reason instead of failing the command.
func NewLoggerWithPath(cfg Config) LogPathResult {
	result := LogPathResult{}

	writers := []io.Writer{consoleDestination(cfg)}

	if cfg.Output == OutputFile && cfg.File != "" {
		file, err := openLogFile(cfg.File)
		if err != nil {
			result.FallbackUsed = true
			result.FallbackReason = err.Error()
		} else {
			result.file = file
			result.FilePath = cfg.File
			result.UsingFile = true
			// The file sink always receives raw JSON events regardless of
			// the console format, so logs stay machine-parseable.
			writers = append(writers, file)
		}
	}

	result.Logger = build(cfg, zerolog.MultiLevelWriter(writers...))
	return result
}

// New builds a logger from cfg without a file sink. Intended for tests and
// one-off tooling; the CLI uses NewLoggerWithPath.
func New(cfg Config) zerolog.Logger {
	return build(cfg, consoleDestination(cfg))
}

// NewWriterLogger builds a logger that writes raw events to w. Used by tests
// to capture output.
func NewWriterLogger(cfg Config, w io.Writer) zerolog.Logger {
	return build(cfg, w)
}

// build assembles the zerolog.Logger with level, timestamps, optional caller
// annotation, and the trace-ID hook.
func build(cfg Config, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	logCtx := zerolog.New(w).Level(lvl).With().Timestamp()
	if cfg.Caller {
		logCtx = logCtx.Caller()
	}

	return logCtx.Logger().Hook(traceHook{})
}

// consoleDestination returns the terminal-facing writer for cfg: a
// human-readable ConsoleWriter or raw JSON, on stderr or stdout.
func consoleDestination(cfg Config) io.Writer {
	var out io.Writer = os.Stderr
	if cfg.Output == OutputStdout {
		out = os.Stdout
	}

	if cfg.Format == FormatJSON {
		return out
	}

	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
}

// openLogFile opens path for appending, creating parent directories as needed.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFilePerm)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return file, nil
}

// ComponentLogger derives a logger stamped with a component field, e.g.
// "cli", "cache", "powerbi".
func ComponentLogger(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// FromContext returns the logger attached to ctx, or a disabled logger when
// none was attached. The pointer form matches zerolog.Ctx so callers can
// chain directly: logging.FromContext(ctx).Warn().Ctx(ctx)...
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// PrintLogPathMessage tells the user where file logs are being written.
func PrintLogPathMessage(w io.Writer, path string) {
	_, _ = fmt.Fprintf(w, "Logging to %s\n", path)
}

// PrintFallbackWarning tells the user that file logging was requested but
// unavailable and logs are going to stderr instead.
func PrintFallbackWarning(w io.Writer, reason string) {
	_, _ = fmt.Fprintf(w, "Warning: file logging unavailable (%s), logging to stderr\n", reason)
}
