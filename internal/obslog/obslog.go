// Package obslog wires the three rotating text logs of SPEC_FULL.md §6
// (operations, performance, errors) under logs/baml/: github.com/rs/zerolog
// loggers writing through gopkg.in/natefinch/lumberjack.v2 for rotation,
// grounded on the teacher's plugins/logging/zerolog package (which pairs the
// same two libraries the same way for its file-output path). Field values
// whose key looks sensitive are masked by RedactFields (the same name
// pattern as core.Redact) before a caller adds them to an event; the
// attached zerolog hook does not redact anything.
package obslog

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jplfaria/cogniscient-runtime/core"
)

// rotation bounds mirror the teacher's lumberjack defaults: small per-file
// caps with a handful of compressed backups, since these logs accumulate
// over a long-running co-scientist run rather than a single request.
const (
	maxSizeMB  = 50
	maxBackups = 5
	maxAgeDays = 28
)

// Loggers bundles the three rotating logs a running system writes to.
type Loggers struct {
	Operations  zerolog.Logger
	Performance zerolog.Logger
	Errors      zerolog.Logger
}

type redactHook struct{}

// Run implements zerolog.Hook: it never edits the already-queued event
// fields (zerolog has no API for that), so redaction instead happens at the
// call site via RedactFields and this hook leaves every event unchanged.
func (redactHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {}

// RedactFields applies the same password|token|key|secret|api field-name
// pattern as core.Redact before a caller adds a map of arbitrary fields to a
// log event, per SPEC_FULL.md §6.
func RedactFields(fields map[string]any) map[string]any {
	return core.Redact(fields)
}

func newRotatingLogger(rootDir, filename string) zerolog.Logger {
	writer := &lumberjack.Logger{
		Filename:   filepath.Join(rootDir, "logs", "baml", filename),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	return zerolog.New(writer).Hook(redactHook{}).With().Timestamp().Logger()
}

// NewLoggers creates logs/baml/{operations,performance,errors}.log rooted at
// rootDir, creating the directory tree on first write via lumberjack.
func NewLoggers(rootDir string) *Loggers {
	return &Loggers{
		Operations:  newRotatingLogger(rootDir, "operations.log"),
		Performance: newRotatingLogger(rootDir, "performance.log"),
		Errors:      newRotatingLogger(rootDir, "errors.log"),
	}
}
