package lsp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Sumatoshi-tech/pystyle/pkg/lint"
	"github.com/Sumatoshi-tech/pystyle/pkg/observability"
	"github.com/Sumatoshi-tech/pystyle/pkg/pysyntax"
	"github.com/Sumatoshi-tech/pystyle/pkg/runner"
)

type notification struct {
	method string
	params *protocol.PublishDiagnosticsParams
}

type recorder struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recorder) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			r.mu.Lock()
			defer r.mu.Unlock()

			published, _ := params.(*protocol.PublishDiagnosticsParams)
			r.sent = append(r.sent, notification{method: method, params: published})
		},
	}
}

func (r *recorder) last(t *testing.T) notification {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	require.NotEmpty(t, r.sent)

	return r.sent[len(r.sent)-1]
}

func TestDocumentStore(t *testing.T) {
	t.Parallel()

	store := NewDocumentStore()
	uri := "file:///tmp/a.py"

	_, ok := store.Get(uri)
	assert.False(t, ok)

	store.Set(uri, "one")
	store.Set(uri, "two")

	got, ok := store.Get(uri)
	require.True(t, ok)
	assert.Equal(t, "two", got)
	assert.Equal(t, 1, store.Len())

	store.Delete(uri)

	_, ok = store.Get(uri)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestURIToPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.FromSlash("/home/dev/app/mod.py"), URIToPath("file:///home/dev/app/mod.py"))
	assert.Equal(t, filepath.FromSlash("/home/dev/my app/mod.py"), URIToPath("file:///home/dev/my%20app/mod.py"))
	assert.Equal(t, "untitled:Untitled-1", URIToPath("untitled:Untitled-1"))
}

func TestToProtocol_Diagnostics(t *testing.T) {
	t.Parallel()

	diags := ToProtocol(runner.FileResult{
		Path: "mod.py",
		Diagnostics: []lint.Diagnostic{
			{Path: "mod.py", Line: 1, Category: lint.CategoryImportOrder, Message: "Direct imports are not alphabetically ordered"},
			{Path: "mod.py", Line: 7, Category: lint.CategoryMissingDocstring, Message: "Missing docstring: Function: f"},
		},
	})

	require.Len(t, diags, 2)
	assert.Equal(t, protocol.UInteger(0), diags[0].Range.Start.Line)
	assert.Equal(t, protocol.UInteger(6), diags[1].Range.Start.Line)
	assert.Equal(t, protocol.UInteger(7), diags[1].Range.End.Line)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *diags[1].Severity)
	assert.Equal(t, string(lint.CategoryMissingDocstring), diags[1].Code.Value)
	assert.Equal(t, diagnosticSource, *diags[1].Source)
	assert.Equal(t, "Missing docstring: Function: f", diags[1].Message)
}

func TestToProtocol_Failures(t *testing.T) {
	t.Parallel()

	syntaxDiags := ToProtocol(runner.FileResult{
		Path: "bad.py",
		Err:  &pysyntax.SyntaxError{Path: "bad.py", Msg: "unexpected token", Line: 3, Column: 5},
	})

	require.Len(t, syntaxDiags, 1)
	assert.Equal(t, protocol.DiagnosticSeverityError, *syntaxDiags[0].Severity)
	assert.Equal(t, protocol.UInteger(2), syntaxDiags[0].Range.Start.Line)
	assert.Equal(t, protocol.UInteger(4), syntaxDiags[0].Range.Start.Character)
	assert.Equal(t, "Syntax error: unexpected token", syntaxDiags[0].Message)

	otherDiags := ToProtocol(runner.FileResult{Path: "bin.py", Err: errors.New("binary content")})

	require.Len(t, otherDiags, 1)
	assert.Equal(t, protocol.UInteger(0), otherDiags[0].Range.Start.Line)
	assert.Equal(t, "Cannot check file: binary content", otherDiags[0].Message)
}

func TestLastFullText(t *testing.T) {
	t.Parallel()

	text, ok := lastFullText([]any{
		protocol.TextDocumentContentChangeEventWhole{Text: "old"},
		map[string]any{"text": "new"},
	})
	require.True(t, ok)
	assert.Equal(t, "new", text)

	_, ok = lastFullText(nil)
	assert.False(t, ok)
}

func TestServer_DocumentLifecycle(t *testing.T) {
	t.Parallel()

	srv := NewServer(Deps{Registry: lint.DefaultRegistry([]string{"app"})})
	rec := &recorder{}
	ctx := rec.context()
	uri := "file:///work/app/mod.py"

	require.NoError(t, srv.didOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "python", Version: 1, Text: "import sys\nimport os\n"},
	}))

	opened := rec.last(t)
	assert.Equal(t, methodPublishDiagnostics, opened.method)
	require.NotNil(t, opened.params)
	assert.Equal(t, uri, opened.params.URI)
	require.Len(t, opened.params.Diagnostics, 1)

	require.NoError(t, srv.didChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "import os\nimport sys\n"}},
	}))

	assert.Empty(t, rec.last(t).params.Diagnostics)

	require.NoError(t, srv.didSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))

	assert.Empty(t, rec.last(t).params.Diagnostics)

	require.NoError(t, srv.didClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))

	closed := rec.last(t)
	assert.Empty(t, closed.params.Diagnostics)
	assert.Equal(t, 0, srv.store.Len())
}

func TestServer_Initialize(t *testing.T) {
	t.Parallel()

	srv := NewServer(Deps{})

	result, err := srv.initialize(nil, &protocol.InitializeParams{})
	require.NoError(t, err)

	initResult, ok := result.(protocol.InitializeResult)
	require.True(t, ok)
	assert.Equal(t, protocol.TextDocumentSyncKindFull, initResult.Capabilities.TextDocumentSync)
	assert.Equal(t, serverName, initResult.ServerInfo.Name)
}

func TestDiagnose_LogsRequestAndFile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	srv := NewServer(Deps{Logger: slog.New(observability.NewLintHandler(inner, observability.ModeLSP, ""))})

	diags := srv.Diagnose(context.Background(), "file:///work/legacy.py", "print \"hi\"\n")
	require.Len(t, diags, 1)
	assert.Equal(t, "Syntax error: Missing parentheses in call to 'print'", diags[0].Message)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))

	assert.Equal(t, "file failed", record["msg"])
	assert.Equal(t, opCheck, record[observability.AttrRequest])
	assert.Equal(t, filepath.FromSlash("/work/legacy.py"), record[observability.AttrFile])
	assert.Equal(t, "lsp", record[observability.AttrMode])
}
