// Package lsp serves pystyle diagnostics to editors over the Language Server
// Protocol. Documents are checked in memory on open, change and save.
package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/pystyle/pkg/lint"
	"github.com/Sumatoshi-tech/pystyle/pkg/observability"
	"github.com/Sumatoshi-tech/pystyle/pkg/runner"
	"github.com/Sumatoshi-tech/pystyle/pkg/safeconv"
	"github.com/Sumatoshi-tech/pystyle/pkg/version"
)

const (
	serverName = "pystyle"

	diagnosticSource = "pystyle"

	methodPublishDiagnostics = "textDocument/publishDiagnostics"

	opCheck = "lsp.check"
)

// Deps holds injectable dependencies for the LSP server.
// Zero-value fields use production defaults.
type Deps struct {
	Registry *lint.Registry
	Logger   *slog.Logger
	Metrics  *observability.REDMetrics
	Tracer   trace.Tracer
}

// Server implements the pystyle language server.
type Server struct {
	store   *DocumentStore
	runner  *runner.Runner
	metrics *observability.REDMetrics
	logger  *slog.Logger
	handler protocol.Handler
}

// NewServer creates a language server checking documents with deps.Registry,
// or the default analyzers when it is nil.
func NewServer(deps Deps) *Server {
	registry := deps.Registry
	if registry == nil {
		registry = lint.DefaultRegistry(nil)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		store:   NewDocumentStore(),
		runner:  runner.New(registry, runner.WithTracer(deps.Tracer), runner.WithLogger(logger), runner.WithWorkers(1)),
		metrics: deps.Metrics,
		logger:  logger,
	}

	srv.handler = protocol.Handler{
		Initialize:            srv.initialize,
		Initialized:           srv.initialized,
		Shutdown:              srv.shutdown,
		SetTrace:              srv.setTrace,
		TextDocumentDidOpen:   srv.didOpen,
		TextDocumentDidChange: srv.didChange,
		TextDocumentDidSave:   srv.didSave,
		TextDocumentDidClose:  srv.didClose,
	}

	return srv
}

// RunStdio serves the protocol on stdin and stdout until the client exits.
func (srv *Server) RunStdio() error {
	lspServer := server.NewServer(&srv.handler, serverName, false)

	err := lspServer.RunStdio()
	if err != nil {
		return fmt.Errorf("lsp server: %w", err)
	}

	return nil
}

func (srv *Server) initialize(_ *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	capabilities := srv.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = protocol.TextDocumentSyncKindFull

	serverVersion := version.Version

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &serverVersion,
		},
	}, nil
}

func (srv *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI

	srv.store.Set(uri, params.TextDocument.Text)
	srv.publishDiagnostics(ctx, uri)

	return nil
}

func (srv *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	text, ok := lastFullText(params.ContentChanges)
	if !ok {
		return nil
	}

	srv.store.Set(uri, text)
	srv.publishDiagnostics(ctx, uri)

	return nil
}

func (srv *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI

	if params.Text != nil {
		srv.store.Set(uri, *params.Text)
	}

	if _, ok := srv.store.Get(uri); ok {
		srv.publishDiagnostics(ctx, uri)
	}

	return nil
}

func (srv *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	srv.store.Delete(uri)

	ctx.Notify(methodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	return nil
}

// lastFullText returns the text of the last whole-document change. Full sync
// is advertised, so ranged edits are not expected.
func lastFullText(changes []any) (string, bool) {
	for i := len(changes) - 1; i >= 0; i-- {
		switch change := changes[i].(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			return change.Text, true
		case *protocol.TextDocumentContentChangeEventWhole:
			return change.Text, true
		case map[string]any:
			if text, ok := change["text"].(string); ok {
				return text, true
			}
		}
	}

	return "", false
}

func (srv *Server) publishDiagnostics(ctx *glsp.Context, uri string) {
	text, ok := srv.store.Get(uri)
	if !ok {
		return
	}

	ctx.Notify(methodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: srv.Diagnose(context.Background(), uri, text),
	})
}

// Diagnose checks one document and converts the outcome to LSP diagnostics.
func (srv *Server) Diagnose(ctx context.Context, uri, text string) []protocol.Diagnostic {
	ctx = observability.WithRequest(ctx, opCheck)
	start := time.Now()

	decInflight := srv.metrics.TrackInflight(ctx, opCheck)
	defer decInflight()

	res := srv.runner.CheckSource(ctx, runner.SourceFile{Path: URIToPath(uri), Content: []byte(text)})

	status := observability.StatusOK
	if res.Failed() {
		status = observability.StatusError
	}

	srv.metrics.RecordRequest(ctx, opCheck, status, time.Since(start))

	return ToProtocol(res)
}

// URIToPath converts a file:// URI to a local path. Other URIs are returned
// unchanged.
func URIToPath(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme != "file" {
		return uri
	}

	return filepath.FromSlash(parsed.Path)
}

// ToProtocol converts a file result to LSP diagnostics. Lines are 0-based on
// the wire; each diagnostic spans its whole line.
func ToProtocol(res runner.FileResult) []protocol.Diagnostic {
	diags := make([]protocol.Diagnostic, 0, len(res.Diagnostics)+1)

	if res.Failed() {
		line, column, message := lint.FileLine, 0, "Cannot check file: "+res.Err.Error()

		if syntaxErr, ok := res.SyntaxError(); ok {
			line, column, message = syntaxErr.Line, syntaxErr.Column-1, "Syntax error: "+syntaxErr.Msg
		}

		diags = append(diags, newDiagnostic(line, column, protocol.DiagnosticSeverityError, "syntax", message))

		return diags
	}

	for _, d := range res.Diagnostics {
		diags = append(diags, newDiagnostic(d.Line, 0, protocol.DiagnosticSeverityWarning, string(d.Category), d.Message))
	}

	return diags
}

func newDiagnostic(line, column int, severity protocol.DiagnosticSeverity, code, message string) protocol.Diagnostic {
	source := diagnosticSource
	row := safeconv.ClampIntToUint32(line - 1)

	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: row, Character: safeconv.ClampIntToUint32(column)},
			End:   protocol.Position{Line: row + 1, Character: 0},
		},
		Severity: &severity,
		Code:     &protocol.IntegerOrString{Value: code},
		Source:   &source,
		Message:  message,
	}
}
