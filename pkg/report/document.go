package report

import (
	"slices"

	"github.com/Sumatoshi-tech/pystyle/pkg/lint"
	"github.com/Sumatoshi-tech/pystyle/pkg/runner"
)

// Failure is a file that could not be checked.
type Failure struct {
	Path    string `json:"path"    yaml:"path"`
	Line    int    `json:"line"    yaml:"line"`
	Message string `json:"message" yaml:"message"`
}

// String renders the failure in the same "<path>:<line> - <message>" shape
// as diagnostics.
func (f Failure) String() string {
	return lint.Diagnostic{Path: f.Path, Line: f.Line, Message: f.Message}.String()
}

// Summary holds run totals.
type Summary struct {
	FilesChecked    int            `json:"files_checked"     yaml:"files_checked"`
	LinesChecked    int            `json:"lines_checked"     yaml:"lines_checked"`
	FilesWithIssues int            `json:"files_with_issues" yaml:"files_with_issues"`
	Failures        int            `json:"failures"          yaml:"failures"`
	Issues          int            `json:"issues"            yaml:"issues"`
	ByCategory      map[string]int `json:"by_category"       yaml:"by_category"`
}

// Document is the machine-readable form of a run.
type Document struct {
	Passed      bool              `json:"passed"      yaml:"passed"`
	Diagnostics []lint.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	Failures    []Failure         `json:"failures"    yaml:"failures"`
	Summary     Summary           `json:"summary"     yaml:"summary"`
}

// NewDocument builds the document for a run result.
func NewDocument(res *runner.Result) Document {
	doc := Document{
		Passed:      res.Passed(),
		Diagnostics: res.Diagnostics(),
		Failures:    []Failure{},
	}

	if doc.Diagnostics == nil {
		doc.Diagnostics = []lint.Diagnostic{}
	}

	for _, f := range res.Failures() {
		doc.Failures = append(doc.Failures, newFailure(f))
	}

	counts := res.CountByCategory()
	byCategory := make(map[string]int, len(lint.Categories()))

	for _, category := range lint.Categories() {
		byCategory[string(category)] = counts[category]
	}

	doc.Summary = Summary{
		FilesChecked:    len(res.Files),
		LinesChecked:    res.Lines(),
		FilesWithIssues: res.FilesWithIssues(),
		Failures:        len(doc.Failures),
		Issues:          len(doc.Diagnostics) + len(doc.Failures),
		ByCategory:      byCategory,
	}

	return doc
}

func newFailure(f runner.FileResult) Failure {
	if syntaxErr, ok := f.SyntaxError(); ok {
		return Failure{
			Path:    f.Path,
			Line:    syntaxErr.Line,
			Message: "Syntax error: " + syntaxErr.Msg,
		}
	}

	return Failure{Path: f.Path, Line: lint.FileLine, Message: "Cannot check file: " + f.Err.Error()}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}
