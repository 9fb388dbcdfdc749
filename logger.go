package voicerelay

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	// LogLevelDebug logs everything including detailed debugging information
	LogLevelDebug LogLevel = iota
	// LogLevelInfo logs informational messages and above
	LogLevelInfo
	// LogLevelWarn logs warnings and above
	LogLevelWarn
	// LogLevelError logs only errors
	LogLevelError
	// LogLevelOff disables all logging
	LogLevelOff
)

// String returns the string representation of a LogLevel
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a string to LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LogLevelDebug
	case "INFO":
		return LogLevelInfo
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	case "OFF":
		return LogLevelOff
	default:
		return LogLevelInfo
	}
}

// Logger provides structured logging with configurable levels
type Logger struct {
	level  LogLevel
	prefix string
	logger *log.Logger
	sink   func(event string, fields map[string]any)
}

// NewLogger creates a new structured logger
func NewLogger(level LogLevel) *Logger {
	return &Logger{
		level:  level,
		prefix: "[voicerelay]",
		logger: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
	}
}

// NewLoggerFromFunc adapts a plain logging callback into a leveled Logger.
// Errors are delivered with an "ERROR: " event prefix so the callback can
// distinguish them.
func NewLoggerFromFunc(fn func(event string, fields map[string]any)) *Logger {
	return &Logger{level: LogLevelInfo, sink: fn}
}

// NewLoggerFromEnv creates a logger with level from VOICERELAY_LOG_LEVEL
func NewLoggerFromEnv() *Logger {
	return NewLogger(ParseLogLevel(os.Getenv("VOICERELAY_LOG_LEVEL")))
}

// SetLevel updates the logger's minimum level
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// Debug logs debug-level messages
func (l *Logger) Debug(event string, fields map[string]any) {
	l.log(LogLevelDebug, event, fields)
}

// Info logs info-level messages
func (l *Logger) Info(event string, fields map[string]any) {
	l.log(LogLevelInfo, event, fields)
}

// Warn logs warning-level messages
func (l *Logger) Warn(event string, fields map[string]any) {
	l.log(LogLevelWarn, event, fields)
}

// Error logs error-level messages
func (l *Logger) Error(event string, fields map[string]any) {
	l.log(LogLevelError, event, fields)
}

// log is the internal logging method
func (l *Logger) log(level LogLevel, event string, fields map[string]any) {
	if level < l.level {
		return
	}

	if l.sink != nil {
		if level >= LogLevelError {
			l.sink("ERROR: "+event, fields)
		} else {
			l.sink(event, fields)
		}
		return
	}

	var fieldStrs []string
	for k, v := range fields {
		fieldStrs = append(fieldStrs, fmt.Sprintf("%s=%v", k, v))
	}

	fieldsStr := ""
	if len(fieldStrs) > 0 {
		fieldsStr = " " + strings.Join(fieldStrs, " ")
	}

	l.logger.Printf("%s [%s] %s%s", l.prefix, level.String(), event, fieldsStr)
}

// LoggerFunc creates a logger function compatible with the Config.Logger field
func (l *Logger) LoggerFunc() func(string, map[string]any) {
	return func(event string, fields map[string]any) {
		l.Info(event, fields)
	}
}
