package cmd

import (
	"context"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// multiHandler fans records out to the console and the log file with
// independent levels.
type multiHandler struct {
	console slog.Handler
	file    slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.console.Enabled(ctx, r.Level) {
		h.console.Handle(ctx, r)
	}
	if h.file.Enabled(ctx, r.Level) {
		h.file.Handle(ctx, r)
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &multiHandler{console: h.console.WithAttrs(attrs), file: h.file.WithAttrs(attrs)}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	return &multiHandler{console: h.console.WithGroup(name), file: h.file.WithGroup(name)}
}

// initLogger builds the server logger. Errors always go to stderr; with a
// log file everything from debug up is appended there too, with rotation.
func initLogger(logFile string) (*slog.Logger, func()) {
	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})

	if logFile == "" {
		return slog.New(console), func() {}
	}

	lj := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		LocalTime:  true,
	}
	file := slog.NewJSONHandler(lj, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(&multiHandler{console: console, file: file})
	return logger, func() { lj.Close() }
}
