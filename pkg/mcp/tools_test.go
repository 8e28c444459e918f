package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pystyle/pkg/lint"
)

func decodeCheck(t *testing.T, result *mcpsdk.CallToolResult) CheckOutput {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	var out CheckOutput
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))

	return out
}

func TestValidateCheckInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input CheckInput
		err   error
	}{
		{"ok", CheckInput{Code: "x = 1\n"}, nil},
		{"ok with path", CheckInput{Code: "x = 1\n", Path: "pkg/mod.py"}, nil},
		{"empty", CheckInput{}, ErrEmptyCode},
		{"too large", CheckInput{Code: strings.Repeat("x", MaxCodeInputBytes+1)}, ErrCodeTooLarge},
		{"not python", CheckInput{Code: "x = 1\n", Path: "main.go"}, ErrNotPython},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateCheckInput(tt.input)
			if tt.err == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestHandleCheck_Diagnostics(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{LocalPackages: []string{"app"}})

	result, output, err := srv.handleCheck(context.Background(), nil, CheckInput{
		Code: "from app import x\nfrom typing import Any\n",
		Path: "svc/mod.py",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.NotNil(t, output.Data)

	out := decodeCheck(t, result)
	assert.False(t, out.Passed)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, "svc/mod.py", out.Diagnostics[0].Path)
	assert.Equal(t, "Local from-imports must come after third-party from-imports", out.Diagnostics[0].Message)
	assert.Empty(t, out.Failures)
}

func TestHandleCheck_InputOverridesLocalPackages(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{LocalPackages: []string{"app"}})

	result, _, err := srv.handleCheck(context.Background(), nil, CheckInput{
		Code:          "from app import x\nfrom typing import Any\n",
		LocalPackages: []string{"other"},
	})
	require.NoError(t, err)

	out := decodeCheck(t, result)
	assert.True(t, out.Passed)
	assert.Empty(t, out.Diagnostics)
}

func TestHandleCheck_DefaultPath(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, _, err := srv.handleCheck(context.Background(), nil, CheckInput{Code: "import sys\nimport os\n"})
	require.NoError(t, err)

	out := decodeCheck(t, result)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, defaultPath, out.Diagnostics[0].Path)
	assert.Equal(t, lint.FileLine, out.Diagnostics[0].Line)
}

func TestHandleCheck_SelectAnalyzer(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, _, err := srv.handleCheck(context.Background(), nil, CheckInput{
		Code:      "import sys\nimport os\n\ndef f():\n    pass\n",
		Analyzers: []string{lint.AnnotationAnalyzerName},
	})
	require.NoError(t, err)

	out := decodeCheck(t, result)
	require.Len(t, out.Diagnostics, 2)

	for _, d := range out.Diagnostics {
		assert.NotEqual(t, lint.CategoryImportOrder, d.Category)
	}
}

func TestHandleCheck_Errors(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, _, err := srv.handleCheck(context.Background(), nil, CheckInput{})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, _, err = srv.handleCheck(context.Background(), nil, CheckInput{Code: "x = 1\n", Analyzers: []string{"nope"}})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleCheck_SyntaxErrorIsFailure(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, _, err := srv.handleCheck(context.Background(), nil, CheckInput{Code: "def broken(:\n    pass\n"})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	out := decodeCheck(t, result)
	assert.False(t, out.Passed)
	assert.Empty(t, out.Diagnostics)
	require.Len(t, out.Failures, 1)
	assert.True(t, strings.HasPrefix(out.Failures[0].Message, "Syntax error: "))
}

func TestHandleAnalyzers(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, _, err := srv.handleAnalyzers(context.Background(), nil, AnalyzersInput{})
	require.NoError(t, err)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	var infos []AnalyzerInfo
	require.NoError(t, json.Unmarshal([]byte(text.Text), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, lint.ImportOrderAnalyzerName, infos[0].Name)
	assert.Equal(t, lint.AnnotationAnalyzerName, infos[1].Name)
	assert.NotEmpty(t, infos[0].Description)
}

func TestListToolNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{ToolNameAnalyzers, ToolNameCheck}, NewServer(ServerDeps{}).ListToolNames())
}
