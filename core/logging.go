package core

import (
	"os"
	"regexp"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel mirrors the teacher's core/factory.go Logger() singleton.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	logger   zerolog.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	logLevel LogLevel       = INFO
	mu       sync.RWMutex
)

// SetLogLevel updates the package-level minimum log level.
func SetLogLevel(l LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	logLevel = l
	zerolog.SetGlobalLevel(mapLogLevel(l))
}

// GetLogLevel returns the package-level minimum log level.
func GetLogLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// Logger returns the shared structured logger.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &logger
}

// SetLoggerOutput redirects the shared logger, used by internal/obslog to
// attach a lumberjack-backed rotating writer.
func SetLoggerOutput(w zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = w
}

func mapLogLevel(l LogLevel) zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

var redactedFields = regexp.MustCompile(`(?i)(password|token|key|secret|api)`)

// Redact masks field values whose key looks sensitive, for callers that log
// arbitrary maps (e.g. request parameters, provider endpoint config).
func Redact(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if redactedFields.MatchString(k) {
			out[k] = "***redacted***"
			continue
		}
		out[k] = v
	}
	return out
}
