package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tnqbao/gau-catalog-service/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
)

type LoggerClient struct {
	logger *slog.Logger
}

// InitLoggerClient writes to stdout and, when a provider is given, to the
// OpenTelemetry log pipeline.
func InitLoggerClient(cfg *config.EnvConfig, provider otellog.LoggerProvider) *LoggerClient {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Environment.Mode != "production" {
		opts.Level = slog.LevelDebug
	}

	var stdout slog.Handler
	if cfg.Environment.Mode == "production" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	// The OTel bridge reads the span from ctx itself, so only stdout gets trace attributes.
	handlers := []slog.Handler{traceHandler{stdout}}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(cfg.Grafana.ServiceName, otelslog.WithLoggerProvider(provider)))
	}

	logger := slog.New(fanoutHandler(handlers)).With(
		slog.String("service", cfg.Grafana.ServiceName),
		slog.String("env", cfg.Environment.Mode),
	)
	return &LoggerClient{logger: logger}
}

// NewLoggerClient wraps an existing handler and adds trace attributes to it.
func NewLoggerClient(handler slog.Handler) *LoggerClient {
	return &LoggerClient{logger: slog.New(traceHandler{handler})}
}

func (l *LoggerClient) DebugWithContextf(ctx context.Context, format string, args ...any) {
	l.logger.DebugContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) InfoWithContextf(ctx context.Context, format string, args ...any) {
	l.logger.InfoContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) WarningWithContextf(ctx context.Context, format string, args ...any) {
	l.logger.WarnContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) ErrorWithContextf(ctx context.Context, err error, format string, args ...any) {
	var attrs []any
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.logger.ErrorContext(ctx, fmt.Sprintf(format, args...), attrs...)
}

// traceHandler adds trace_id and span_id from the record's context.
type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, record slog.Record) error {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		record = record.Clone()
		record.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, record)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanoutHandler, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	next := make(fanoutHandler, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
