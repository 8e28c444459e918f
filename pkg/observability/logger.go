package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Log attribute keys added by LintHandler.
const (
	AttrFile     = "file"
	AttrAnalyzer = "analyzer"
	AttrRequest  = "request"
	AttrTraceID  = "trace_id"
	AttrSpanID   = "span_id"
	AttrMode     = "mode"
	AttrEnv      = "env"
)

// lintScope is what a check knows about itself: the file being checked, the
// analyzer currently running and the LSP or MCP request that started it.
type lintScope struct {
	file     string
	analyzer string
	request  string
}

type lintScopeKey struct{}

func scopeFrom(ctx context.Context) lintScope {
	scope, _ := ctx.Value(lintScopeKey{}).(lintScope)

	return scope
}

// WithFile records the Python file under check on ctx.
func WithFile(ctx context.Context, path string) context.Context {
	scope := scopeFrom(ctx)
	scope.file = path

	return context.WithValue(ctx, lintScopeKey{}, scope)
}

// WithAnalyzer records the running analyzer on ctx.
func WithAnalyzer(ctx context.Context, name string) context.Context {
	scope := scopeFrom(ctx)
	scope.analyzer = name

	return context.WithValue(ctx, lintScopeKey{}, scope)
}

// WithRequest records the server operation (e.g. "lsp.check" or
// "mcp.pystyle_check") that triggered the work on ctx.
func WithRequest(ctx context.Context, op string) context.Context {
	scope := scopeFrom(ctx)
	scope.request = op

	return context.WithValue(ctx, lintScopeKey{}, scope)
}

// LintHandler is an [slog.Handler] that tags each record with the lint scope
// and trace context found on the record's context.
type LintHandler struct {
	inner slog.Handler
}

// NewLintHandler wraps inner. Mode and env are fixed for the process and are
// attached once.
func NewLintHandler(inner slog.Handler, mode AppMode, env string) *LintHandler {
	fixed := []slog.Attr{slog.String(AttrMode, string(mode))}
	if env != "" {
		fixed = append(fixed, slog.String(AttrEnv, env))
	}

	return &LintHandler{inner: inner.WithAttrs(fixed)}
}

// Enabled delegates to the inner handler.
func (h *LintHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds file, analyzer, request and trace attributes, then delegates.
func (h *LintHandler) Handle(ctx context.Context, record slog.Record) error {
	scope := scopeFrom(ctx)

	for _, attr := range [...]slog.Attr{
		slog.String(AttrFile, scope.file),
		slog.String(AttrAnalyzer, scope.analyzer),
		slog.String(AttrRequest, scope.request),
	} {
		if attr.Value.String() != "" {
			record.AddAttrs(attr)
		}
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(AttrTraceID, sc.TraceID().String()),
			slog.String(AttrSpanID, sc.SpanID().String()),
		)
	}

	if err := h.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("lint log handler: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (h *LintHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LintHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (h *LintHandler) WithGroup(name string) slog.Handler {
	return &LintHandler{inner: h.inner.WithGroup(name)}
}
