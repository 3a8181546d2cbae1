// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured logger used across the
// analyzer. Records are handed to a single forwarding goroutine over a
// buffered channel, so worker goroutines never write the sink directly
// and the output stream has exactly one writer.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger wraps slog with the key/value convenience API used throughout
// the codebase.
type Logger struct {
	s *slog.Logger
}

func (l *Logger) Debug(msg string, args ...any) { l.s.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.s.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.s.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.s.Error(msg, args...) }

// With returns a logger that attaches the given attributes to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{s: l.s.With(args...)}
}

// ParseLevel maps a CLI level name to a slog level. "fatal" shares the
// error level; it exists so operators can reuse level names from other
// tooling without surprises.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error", "fatal":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unsupported log level: %s", name)
}

// Options configures Setup.
type Options struct {
	Level  string
	File   string // empty writes to stderr
	Syslog SyslogConfig
	RunID  string
}

// Setup builds the process logger. The returned close function drains
// the forwarding channel and releases the log file; call it before exit.
func Setup(opts Options) (*Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var sink io.Writer = os.Stderr
	var file *os.File
	if opts.File != "" {
		file, err = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		sink = file
	}
	var syslogWriter *SyslogWriter
	if opts.Syslog.Enabled {
		syslogWriter, err = NewSyslogWriter(opts.Syslog)
		if err != nil {
			if file != nil {
				file.Close()
			}
			return nil, nil, err
		}
		sink = io.MultiWriter(sink, syslogWriter)
	}

	inner := slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level})
	fwd := newForwarder()
	handler := &queueHandler{inner: inner, fwd: fwd}

	logger := &Logger{s: slog.New(handler)}
	if opts.RunID != "" {
		logger = logger.With("run_id", opts.RunID)
	}

	closeFn := func() error {
		fwd.stop()
		if syslogWriter != nil {
			syslogWriter.Close()
		}
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closeFn, nil
}

// Discard returns a logger that drops everything. Used in tests and as a
// default when callers pass nil.
func Discard() *Logger {
	return &Logger{s: slog.New(slog.DiscardHandler)}
}

// forwarder serializes record delivery: many producers, one consumer.
type forwarder struct {
	ch   chan queuedRecord
	done chan struct{}
	once sync.Once
}

type queuedRecord struct {
	handler slog.Handler
	record  slog.Record
}

func newForwarder() *forwarder {
	f := &forwarder{
		ch:   make(chan queuedRecord, 256),
		done: make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *forwarder) run() {
	for q := range f.ch {
		// Errors from the sink are intentionally dropped; logging must
		// never take down an analysis run.
		_ = q.handler.Handle(context.Background(), q.record)
	}
	close(f.done)
}

func (f *forwarder) stop() {
	f.once.Do(func() {
		close(f.ch)
	})
	<-f.done
}

// queueHandler is a slog.Handler that enqueues records for the forwarder
// instead of writing them inline.
type queueHandler struct {
	inner slog.Handler
	fwd   *forwarder
}

func (h *queueHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *queueHandler) Handle(ctx context.Context, record slog.Record) error {
	defer func() {
		// A send on the closed channel after shutdown is not worth a
		// crash; late records are dropped.
		_ = recover()
	}()
	h.fwd.ch <- queuedRecord{handler: h.inner, record: record.Clone()}
	return nil
}

func (h *queueHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &queueHandler{inner: h.inner.WithAttrs(attrs), fwd: h.fwd}
}

func (h *queueHandler) WithGroup(name string) slog.Handler {
	return &queueHandler{inner: h.inner.WithGroup(name), fwd: h.fwd}
}
