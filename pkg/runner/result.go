package runner

import (
	"errors"
	"time"

	"github.com/Sumatoshi-tech/pystyle/pkg/lint"
	"github.com/Sumatoshi-tech/pystyle/pkg/pysyntax"
)

// SourceFile is one file's path and raw content.
type SourceFile struct {
	Path    string
	Content []byte
}

// FileResult is the outcome of checking one file. Err is set when the file
// could not be read or parsed; Diagnostics is then empty.
type FileResult struct {
	Path        string
	Diagnostics []lint.Diagnostic
	Err         error
	Lines       int
	Duration    time.Duration
}

// Failed reports whether the file could not be checked.
func (r FileResult) Failed() bool {
	return r.Err != nil
}

// SyntaxError returns the parse failure, if that is why the file failed.
func (r FileResult) SyntaxError() (*pysyntax.SyntaxError, bool) {
	var syntaxErr *pysyntax.SyntaxError
	if errors.As(r.Err, &syntaxErr) {
		return syntaxErr, true
	}

	return nil, false
}

// Result holds every file's outcome in input order.
type Result struct {
	Files []FileResult
}

// Diagnostics returns all diagnostics in file order.
func (r *Result) Diagnostics() []lint.Diagnostic {
	var diags []lint.Diagnostic

	for _, f := range r.Files {
		diags = append(diags, f.Diagnostics...)
	}

	return diags
}

// Failures returns the files that could not be checked.
func (r *Result) Failures() []FileResult {
	var failed []FileResult

	for _, f := range r.Files {
		if f.Failed() {
			failed = append(failed, f)
		}
	}

	return failed
}

// FilesWithIssues counts files with at least one diagnostic or a failure.
func (r *Result) FilesWithIssues() int {
	count := 0

	for _, f := range r.Files {
		if f.Failed() || len(f.Diagnostics) > 0 {
			count++
		}
	}

	return count
}

// CountByCategory tallies diagnostics per category.
func (r *Result) CountByCategory() map[lint.Category]int {
	counts := make(map[lint.Category]int, len(lint.Categories()))

	for _, f := range r.Files {
		for _, d := range f.Diagnostics {
			counts[d.Category]++
		}
	}

	return counts
}

// Lines returns the total number of lines checked.
func (r *Result) Lines() int {
	total := 0

	for _, f := range r.Files {
		total += f.Lines
	}

	return total
}

// Passed reports whether no file produced a diagnostic or failed.
func (r *Result) Passed() bool {
	return r.FilesWithIssues() == 0
}
