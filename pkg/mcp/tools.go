package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/pystyle/pkg/lint"
	"github.com/Sumatoshi-tech/pystyle/pkg/pysyntax"
	"github.com/Sumatoshi-tech/pystyle/pkg/report"
	"github.com/Sumatoshi-tech/pystyle/pkg/runner"
)

// Tool name constants.
const (
	ToolNameCheck     = "pystyle_check"
	ToolNameAnalyzers = "pystyle_analyzers"
)

// Input size limits.
const (
	// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
	MaxCodeInputBytes = 1 << 20

	// defaultPath names inline code when the caller gives no path.
	defaultPath = "snippet.py"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
	// ErrNotPython indicates the path does not name a Python source file.
	ErrNotPython = errors.New("path must end in " + pysyntax.Extension)
)

// CheckInput is the input schema for the pystyle_check tool.
type CheckInput struct {
	Analyzers     []string `json:"analyzers,omitempty"      jsonschema:"optional list of analyzer names to run (default: all)"`
	Code          string   `json:"code"                     jsonschema:"Python source code to check"`
	LocalPackages []string `json:"local_packages,omitempty" jsonschema:"top-level packages treated as local for import ordering"`
	Path          string   `json:"path,omitempty"           jsonschema:"file name reported in diagnostics (default: snippet.py)"`
}

// AnalyzersInput is the input schema for the pystyle_analyzers tool.
type AnalyzersInput struct{}

// CheckOutput is the payload of a pystyle_check call.
type CheckOutput struct {
	Passed      bool              `json:"passed"`
	Diagnostics []lint.Diagnostic `json:"diagnostics"`
	Failures    []report.Failure  `json:"failures"`
}

// AnalyzerInfo describes one registered analyzer.
type AnalyzerInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func validateCheckInput(input CheckInput) error {
	if input.Code == "" {
		return ErrEmptyCode
	}

	if len(input.Code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(input.Code), MaxCodeInputBytes)
	}

	if input.Path != "" && !pysyntax.IsSupported(input.Path) {
		return fmt.Errorf("%w: %s", ErrNotPython, input.Path)
	}

	return nil
}

func (s *Server) handleCheck(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input CheckInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCheckInput(input)
	if err != nil {
		return errorResult(err)
	}

	localPackages := input.LocalPackages
	if len(localPackages) == 0 {
		localPackages = s.localPackages
	}

	registry, err := lint.DefaultRegistry(localPackages).Select(input.Analyzers)
	if err != nil {
		return errorResult(err)
	}

	path := input.Path
	if path == "" {
		path = defaultPath
	}

	res := runner.New(registry, runner.WithTracer(s.tracer), runner.WithLogger(s.logger)).
		CheckSource(ctx, runner.SourceFile{Path: path, Content: []byte(input.Code)})

	doc := report.NewDocument(&runner.Result{Files: []runner.FileResult{res}})

	return jsonResult(CheckOutput{
		Passed:      doc.Passed,
		Diagnostics: doc.Diagnostics,
		Failures:    doc.Failures,
	})
}

func (s *Server) handleAnalyzers(
	_ context.Context, _ *mcpsdk.CallToolRequest, _ AnalyzersInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	registry := lint.DefaultRegistry(s.localPackages)
	infos := make([]AnalyzerInfo, 0, len(registry.Names()))

	for _, name := range registry.Names() {
		analyzer, err := registry.Get(name)
		if err != nil {
			return errorResult(err)
		}

		infos = append(infos, AnalyzerInfo{Name: analyzer.Name(), Description: analyzer.Description()})
	}

	return jsonResult(infos)
}
