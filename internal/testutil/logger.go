// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LogRecorder is a slog handler that keeps every record for assertions
type LogRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

// NewRecordingLogger returns a logger whose records are kept by the recorder
func NewRecordingLogger() (*slog.Logger, *LogRecorder) {
	rec := &LogRecorder{}
	return slog.New(rec), rec
}

func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *LogRecorder) Handle(_ context.Context, record slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record.Clone())
	return nil
}

// WithAttrs and WithGroup are not needed by the services; attributes passed
// that way are dropped.
func (r *LogRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }

func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Messages returns the messages logged at level or above, in order
func (r *LogRecorder) Messages(level slog.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, record := range r.records {
		if record.Level >= level {
			out = append(out, record.Message)
		}
	}
	return out
}
