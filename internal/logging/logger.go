package logging

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the level of logging
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel converts a configured level name into a LogLevel
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error", "":
		return ErrorLevel, nil
	default:
		return ErrorLevel, fmt.Errorf("unknown log level %q", name)
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Logger provides leveled logging with sensitive data redaction
type Logger struct {
	zl      zerolog.Logger
	verbose bool
}

// NewLogger creates a new logger instance writing to output.
// Default log level is ERROR for quiet operation.
func NewLogger(output io.Writer, verbose bool) *Logger {
	level := ErrorLevel
	if verbose {
		level = InfoLevel
	}
	return NewLoggerWithLevel(output, level)
}

// NewDebugLogger creates a logger with DEBUG level enabled
func NewDebugLogger(output io.Writer) *Logger {
	return NewLoggerWithLevel(output, DebugLevel)
}

// NewLoggerWithLevel creates a logger at an explicit level
func NewLoggerWithLevel(output io.Writer, level LogLevel) *Logger {
	writer := zerolog.ConsoleWriter{
		Out:        output,
		NoColor:    true,
		TimeFormat: "15:04:05",
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.TimestampFieldName, zerolog.MessageFieldName},
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("[%s]", strings.ToUpper(fmt.Sprint(i)))
		},
	}

	return &Logger{
		zl:      zerolog.New(writer).Level(level.zerolog()).With().Timestamp().Logger(),
		verbose: level <= InfoLevel,
	}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(l.zl.Debug(), msg, args...)
}

// Info logs informational messages
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(l.zl.Info(), msg, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(l.zl.Warn(), msg, args...)
}

// Error logs error messages
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(l.zl.Error(), msg, args...)
}

// TimedOperation tracks and logs the duration of an operation
func (l *Logger) TimedOperation(operation string, fn func() error) error {
	l.Info("starting %s", operation)
	start := time.Now()

	err := fn()
	duration := time.Since(start)

	if err != nil {
		l.Error("%s failed after %v: %v", operation, duration, err)
	} else {
		l.Info("%s completed in %v", operation, duration)
	}

	return err
}

// log formats the message, scrubs secrets and hands it to zerolog.
// A nil event means the level is disabled.
func (l *Logger) log(event *zerolog.Event, msg string, args ...interface{}) {
	if event == nil {
		return
	}
	event.Msg(l.sanitizeString(fmt.Sprintf(msg, args...)))
}

// Patterns for sensitive data, most specific first to avoid conflicts
var sensitivePatterns = []struct {
	regex       *regexp.Regexp
	replacement string
}{
	// Complete Authorization header with Bearer token
	{regexp.MustCompile(`(?i)authorization:\s*bearer\s+[A-Za-z0-9\-_.=]+`), "Authorization: Bearer [REDACTED]"},

	// Bare JWTs
	{regexp.MustCompile(`eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`), "[REDACTED_JWT]"},

	// URL query parameters with sensitive names
	{regexp.MustCompile(`(?i)([?&](api[_-]?key|token|secret|password|pass)=)[^&\s\n]+`), "${1}[REDACTED]"},

	// Key-value patterns with equals (not in URLs)
	{regexp.MustCompile(`(?i)(^|[^?&])(api[_-]?key|apikey|token|secret|password|pass)=\s*[^\s\n&,}]+`), "${1}${2}=[REDACTED]"},

	// Key-value patterns with colon (config style)
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey|token|secret|password|pass):\s*[^\s\n,}]+`), "${1}: [REDACTED]"},

	// Long unbroken alphanumeric strings after colon or space. Dashes are
	// excluded so object ids and GUIDs stay readable.
	{regexp.MustCompile(`(\s|:\s*)[A-Za-z0-9_]{20,}(\s|$)`), "${1}[REDACTED_TOKEN]${2}"},
}

// sanitizeString removes or masks sensitive data patterns in strings
func (l *Logger) sanitizeString(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		result = pattern.regex.ReplaceAllString(result, pattern.replacement)
	}
	return result
}

// IsVerbose returns whether info-level logging is enabled
func (l *Logger) IsVerbose() bool {
	return l.verbose
}
