// Package lint holds the import-order and declaration annotation analyzers.
// Both are pure functions of an immutable pysyntax.Tree.
package lint

import (
	"fmt"
	"strconv"
)

// Category groups diagnostics by the rule that produced them.
type Category string

// Diagnostic categories.
const (
	CategoryImportOrder      Category = "import-order"
	CategoryMissingDocstring Category = "missing-docstring"
	CategoryMissingTypeHint  Category = "missing-type-hint"
)

// Categories lists every category in reporting order.
func Categories() []Category {
	return []Category{CategoryImportOrder, CategoryMissingDocstring, CategoryMissingTypeHint}
}

// FileLine is the line used for file-scoped diagnostics.
const FileLine = 1

// Diagnostic is a single rule violation.
type Diagnostic struct {
	Path     string   `json:"path"     yaml:"path"`
	Category Category `json:"category" yaml:"category"`
	Message  string   `json:"message"  yaml:"message"`
	Line     int      `json:"line"     yaml:"line"`
}

// String renders the diagnostic as "<path>:<line> - <message>".
func (d Diagnostic) String() string {
	return d.Path + ":" + strconv.Itoa(d.Line) + " - " + d.Message
}

func newDiagnostic(path string, line int, category Category, format string, args ...any) Diagnostic {
	return Diagnostic{
		Path:     path,
		Line:     line,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}
