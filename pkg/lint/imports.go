package lint

import (
	"strings"

	"github.com/Sumatoshi-tech/pystyle/pkg/pysyntax"
)

// ImportSection is the ordered category an import belongs to.
type ImportSection int

// Import sections in their required file order.
const (
	SectionDirect ImportSection = iota
	SectionThirdPartyFrom
	SectionLocalFrom
	sectionCount
)

var sectionLabels = [sectionCount]string{
	SectionDirect:         "Direct imports",
	SectionThirdPartyFrom: "Third-party from-imports",
	SectionLocalFrom:      "Local from-imports",
}

// String returns the human-readable section label.
func (s ImportSection) String() string {
	if s < 0 || s >= sectionCount {
		return "Unknown imports"
	}

	return sectionLabels[s]
}

// ImportOrderAnalyzerName is the registry name of the import-order analyzer.
const ImportOrderAnalyzerName = "import-order"

// ImportOrderAnalyzer checks that direct imports come first, then third-party
// from-imports, then local from-imports, each section sorted alphabetically.
type ImportOrderAnalyzer struct {
	local map[string]struct{}
}

// NewImportOrderAnalyzer creates an analyzer that treats from-imports whose
// top-level module is one of localPackages as local.
func NewImportOrderAnalyzer(localPackages []string) *ImportOrderAnalyzer {
	local := make(map[string]struct{}, len(localPackages))

	for _, name := range localPackages {
		name = strings.TrimSpace(name)
		if name != "" {
			local[name] = struct{}{}
		}
	}

	return &ImportOrderAnalyzer{local: local}
}

// Name returns the analyzer name.
func (a *ImportOrderAnalyzer) Name() string {
	return ImportOrderAnalyzerName
}

// Description returns a one-line summary of the rule.
func (a *ImportOrderAnalyzer) Description() string {
	return "Imports grouped as direct, third-party from, local from; each group sorted"
}

// Classify returns the section of an import node. The second result is false
// for nodes that take no part in ordering: non-imports and from-imports
// without a module name.
func (a *ImportOrderAnalyzer) Classify(n *pysyntax.Node) (ImportSection, bool) {
	switch n.Kind {
	case pysyntax.KindImport:
		return SectionDirect, true
	case pysyntax.KindFromImport:
		if n.Module == "" {
			return 0, false
		}

		top, _, _ := strings.Cut(n.Module, ".")
		if _, ok := a.local[top]; ok {
			return SectionLocalFrom, true
		}

		return SectionThirdPartyFrom, true
	case pysyntax.KindFunction, pysyntax.KindClass:
	}

	return 0, false
}

type importEntry struct {
	text string
	line int
}

// Analyze returns at most one diagnostic per unsorted section plus one per
// misplaced pair of sections. All diagnostics point at FileLine.
func (a *ImportOrderAnalyzer) Analyze(tree *pysyntax.Tree) []Diagnostic {
	var sections [sectionCount][]importEntry

	for _, id := range tree.Imports() {
		n := tree.Node(id)

		section, ok := a.Classify(n)
		if !ok {
			continue
		}

		sections[section] = append(sections[section], importEntry{text: n.Text, line: n.Line})
	}

	var diags []Diagnostic

	for section, entries := range sections {
		if !sortedByText(entries) {
			diags = append(diags, newDiagnostic(tree.Path, FileLine, CategoryImportOrder,
				"%s are not alphabetically ordered", ImportSection(section)))
		}
	}

	for section := SectionDirect; section+1 < sectionCount; section++ {
		before, after := sections[section], sections[section+1]
		if len(before) == 0 || len(after) == 0 {
			continue
		}

		// Sequencing is by line; imports sharing a line never cross.
		if minLine(after) < maxLine(before) {
			diags = append(diags, newDiagnostic(tree.Path, FileLine, CategoryImportOrder,
				"%s must come after %s", section+1, strings.ToLower(section.String())))
		}
	}

	return diags
}

// sortedByText is a non-strict ascending check; equal neighbours are sorted.
func sortedByText(entries []importEntry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i].text < entries[i-1].text {
			return false
		}
	}

	return true
}

func minLine(entries []importEntry) int {
	lowest := entries[0].line

	for _, e := range entries[1:] {
		lowest = min(lowest, e.line)
	}

	return lowest
}

func maxLine(entries []importEntry) int {
	highest := entries[0].line

	for _, e := range entries[1:] {
		highest = max(highest, e.line)
	}

	return highest
}
