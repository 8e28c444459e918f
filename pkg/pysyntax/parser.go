package pysyntax

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/alexaandru/go-sitter-forest/python"
)

// Extension is the file extension handled by the parser.
const Extension = ".py"

const tsError = "ERROR"

// Sentinel errors for parser operations.
var (
	// ErrSyntax marks a file that does not parse as Python.
	ErrSyntax = errors.New("invalid syntax")

	errNoRootNode = errors.New("pysyntax: no root node")
	errPoolType   = errors.New("pysyntax: pool returned unexpected type")
)

// SyntaxError describes where a file failed to parse. It wraps ErrSyntax.
type SyntaxError struct {
	Path   string
	Msg    string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Msg)
}

// Unwrap lets errors.Is match ErrSyntax.
func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

var (
	languageOnce sync.Once
	language     *sitter.Language
)

func pythonLanguage() *sitter.Language {
	languageOnce.Do(func() {
		language = sitter.NewLanguage(python.GetLanguage())
	})

	return language
}

// Parser turns Python source into a Tree. It is safe for concurrent use;
// tree-sitter parsers are pooled per goroutine.
type Parser struct {
	pool sync.Pool
}

// NewParser creates a Parser for the Python grammar.
func NewParser() *Parser {
	lang := pythonLanguage()

	return &Parser{
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}
}

// IsSupported reports whether the file name has the Python source extension.
func IsSupported(path string) bool {
	return filepath.Ext(path) == Extension
}

// Parse parses content and returns its declaration tree. A file containing any
// syntax error fails as a whole with a *SyntaxError.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*Tree, error) {
	tsParser, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer p.pool.Put(tsParser)

	tsTree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tsTree.Close()

	root := tsTree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	if root.HasError() {
		return nil, syntaxErrorAt(path, root)
	}

	if err := checkGrammar(path, root); err != nil {
		return nil, err
	}

	b := &builder{
		src:  content,
		tree: &Tree{Path: path},
	}
	b.collect(root, &b.tree.Top)

	return b.tree, nil
}

// syntaxErrorAt locates the first ERROR or MISSING node below root.
func syntaxErrorAt(path string, root sitter.Node) *SyntaxError {
	bad, found := firstErrorNode(root)
	if !found {
		bad = root
	}

	msg := ErrSyntax.Error()
	if bad.IsMissing() {
		msg = "missing " + bad.Type()
	}

	start := bad.StartPoint()

	return &SyntaxError{
		Path:   path,
		Msg:    msg,
		Line:   int(start.Row) + 1,
		Column: int(start.Column) + 1,
	}
}

func firstErrorNode(n sitter.Node) (sitter.Node, bool) {
	if n.Type() == tsError || n.IsMissing() {
		return n, true
	}

	if !n.HasError() {
		return sitter.Node{}, false
	}

	for idx := range n.ChildCount() {
		child := n.Child(idx)
		if child.IsNull() {
			continue
		}

		if found, ok := firstErrorNode(child); ok {
			return found, true
		}
	}

	return sitter.Node{}, false
}
