package lint

import (
	"github.com/Sumatoshi-tech/pystyle/pkg/pysyntax"
)

// AnnotationAnalyzerName is the registry name of the annotation analyzer.
const AnnotationAnalyzerName = "annotations"

// ReceiverPredicate reports whether a parameter is an implicit receiver that
// needs no annotation.
type ReceiverPredicate func(p pysyntax.Param) bool

// DefaultReceiverNames are the conventional Python receiver parameter names.
var DefaultReceiverNames = []string{"self", "cls"}

// ReceiverNamed builds a predicate matching parameters by name.
func ReceiverNamed(names ...string) ReceiverPredicate {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}

	return func(p pysyntax.Param) bool {
		_, ok := set[p.Name]

		return ok
	}
}

// AnnotationOption configures an AnnotationAnalyzer.
type AnnotationOption func(*AnnotationAnalyzer)

// WithReceiverPredicate replaces the default self/cls receiver rule.
func WithReceiverPredicate(pred ReceiverPredicate) AnnotationOption {
	return func(a *AnnotationAnalyzer) {
		if pred != nil {
			a.isReceiver = pred
		}
	}
}

// AnnotationAnalyzer requires every function and method to carry a docstring
// and complete parameter and return annotations.
type AnnotationAnalyzer struct {
	isReceiver ReceiverPredicate
}

// NewAnnotationAnalyzer creates the analyzer with the given options.
func NewAnnotationAnalyzer(opts ...AnnotationOption) *AnnotationAnalyzer {
	a := &AnnotationAnalyzer{
		isReceiver: ReceiverNamed(DefaultReceiverNames...),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Name returns the analyzer name.
func (a *AnnotationAnalyzer) Name() string {
	return AnnotationAnalyzerName
}

// Description returns a one-line summary of the rule.
func (a *AnnotationAnalyzer) Description() string {
	return "Functions and methods need a docstring and full type hints"
}

// Analyze visits functions in source order. Methods are visited with their
// class; classes nested in a class body are skipped.
func (a *AnnotationAnalyzer) Analyze(tree *pysyntax.Tree) []Diagnostic {
	var diags []Diagnostic

	tree.Walk(func(id, parent pysyntax.NodeID) bool {
		n := tree.Node(id)

		var owner *pysyntax.Node
		if parent >= 0 {
			owner = tree.Node(parent)
		}

		switch n.Kind {
		case pysyntax.KindFunction:
			label := "Function: " + n.Name
			if owner != nil && owner.Kind == pysyntax.KindClass {
				label = "Method: " + owner.Name + "." + n.Name
			}

			diags = append(diags, a.check(tree.Path, n, label)...)

			return true
		case pysyntax.KindClass:
			return owner == nil || owner.Kind != pysyntax.KindClass
		case pysyntax.KindImport, pysyntax.KindFromImport:
		}

		return false
	})

	return diags
}

func (a *AnnotationAnalyzer) check(path string, n *pysyntax.Node, label string) []Diagnostic {
	var diags []Diagnostic

	if !n.Documented() {
		diags = append(diags, newDiagnostic(path, n.Line, CategoryMissingDocstring,
			"Missing docstring: %s", label))
	}

	if !a.fullyAnnotated(n) {
		diags = append(diags, newDiagnostic(path, n.Line, CategoryMissingTypeHint,
			"Missing type hints: %s", label))
	}

	return diags
}

func (a *AnnotationAnalyzer) fullyAnnotated(n *pysyntax.Node) bool {
	if !n.HasReturns() {
		return false
	}

	for _, p := range n.Params {
		if !p.Annotated() && !a.isReceiver(p) {
			return false
		}
	}

	return true
}
