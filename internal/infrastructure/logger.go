package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"namerank/internal/config"
)

// logState is the process logger and the file it appends to, if any
var logState struct {
	sync.Mutex
	logger *slog.Logger
	file   *os.File
}

type traceIDKey struct{}

// WithTraceID stores the request trace id in ctx
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// GetTraceID returns the trace id stored by WithTraceID or ""
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// InitializeLogger builds the JSON logger described by cfg and installs it as
// the slog default. Once a logger exists later calls return it unchanged.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	logState.Lock()
	defer logState.Unlock()

	if logState.logger != nil {
		return logState.logger, nil
	}
	w, file, err := logWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logState.logger = NewJSONLogger(w, cfg.Level)
	logState.file = file
	slog.SetDefault(logState.logger)
	return logState.logger, nil
}

// CloseLogger closes the log file and forgets the process logger, so the next
// InitializeLogger starts over.
func CloseLogger() error {
	logState.Lock()
	defer logState.Unlock()

	logState.logger = nil
	if logState.file == nil {
		return nil
	}
	err := logState.file.Close()
	logState.file = nil
	return err
}

// logWriter picks stdout, the configured file or both. The file is returned
// separately so it can be closed.
func logWriter(cfg config.LoggingConfig) (io.Writer, *os.File, error) {
	output := strings.ToLower(cfg.Output)
	if output != "file" && output != "both" {
		return os.Stdout, nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	if output == "both" {
		return io.MultiWriter(os.Stdout, file), file, nil
	}
	return file, file, nil
}

// NewJSONLogger builds a JSON logger writing to w. Records logged with a
// context carrying a trace id get a trace_id attribute.
func NewJSONLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel(level),
	})
	return slog.New(traceHandler{handler})
}

// logLevel accepts slog level names in any case plus "warning". Anything else
// is info.
func logLevel(name string) slog.Level {
	if strings.EqualFold(name, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}
