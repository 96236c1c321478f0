package logging

import (
	"context"
)

// Level is the minimum severity that gets written
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Fields are key/value pairs attached to an entry, such as key, bucket or
// bytes
type Fields map[string]any

// Logger records what a command did to which object. Every command gets
// one scoped with its name through WithFields.
type Logger interface {
	Debug(ctx context.Context, msg string, fields Fields)
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)

	// Error records a failed transfer or listing; err may be nil
	Error(ctx context.Context, msg string, err error, fields Fields)

	// WithFields returns a child that adds fields to every entry. Children
	// share the parent's output.
	WithFields(fields Fields) Logger

	// Close releases the log file, if any. Writes after Close are dropped.
	Close() error
}
