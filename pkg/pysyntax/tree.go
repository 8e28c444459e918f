// Package pysyntax converts Python source into an owned, immutable declaration
// tree. Only the nodes the linter cares about are kept: imports, functions and
// classes. Everything else in the source is transparent.
package pysyntax

// NodeID indexes a Node inside its Tree arena.
type NodeID int

// Kind identifies what a Node declares.
type Kind uint8

// Node kinds.
const (
	KindImport Kind = iota + 1
	KindFromImport
	KindFunction
	KindClass
)

// String returns a short lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindImport:
		return "import"
	case KindFromImport:
		return "from-import"
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

// ParamKind is the syntactic slot a parameter occupies.
type ParamKind uint8

// Parameter kinds.
const (
	ParamPositional ParamKind = iota
	ParamPositionalOnly
	ParamVarArgs
	ParamKeywordOnly
	ParamKwArgs
)

// Param is a single function parameter.
type Param struct {
	Name       string
	Annotation string
	Kind       ParamKind
}

// Annotated reports whether the parameter carries a type annotation.
func (p Param) Annotated() bool {
	return p.Annotation != ""
}

// Node is one declaration in the arena.
//
// Import nodes use Text, Module and Level. Function nodes use Name, Params,
// Returns, Doc and Children. Class nodes use Name and Children.
type Node struct {
	Kind Kind
	Line int

	// Name is the declared identifier of a function or class.
	Name string

	// Text is the canonical single-line form of an import statement.
	Text string
	// Module is the dotted module of a from-import without leading dots.
	// Empty for `from . import x`.
	Module string
	// Level is the number of leading dots of a relative from-import.
	Level int

	Params     []Param
	Returns    string
	Doc        string
	HasDoc     bool
	IsAsync    bool
	Decorators int

	Children []NodeID
}

// HasReturns reports whether the function has a return annotation.
func (n *Node) HasReturns() bool {
	return n.Returns != ""
}

// Documented reports whether the declaration has a non-blank docstring.
func (n *Node) Documented() bool {
	return n.HasDoc && n.Doc != ""
}

// Tree is the parsed representation of one source file.
// It is never mutated after Parse returns.
type Tree struct {
	Path  string
	Nodes []Node
	Top   []NodeID
}

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Walk visits every node in source order, depth first. The visit function
// receives the node and the id of its enclosing function or class, or -1 at
// module level. Returning false skips the node's children.
func (t *Tree) Walk(visit func(id NodeID, parent NodeID) bool) {
	var walk func(ids []NodeID, parent NodeID)

	walk = func(ids []NodeID, parent NodeID) {
		for _, id := range ids {
			if visit(id, parent) {
				walk(t.Nodes[id].Children, id)
			}
		}
	}

	walk(t.Top, -1)
}

// Imports returns the ids of all import nodes in source order, at any depth.
func (t *Tree) Imports() []NodeID {
	var ids []NodeID

	t.Walk(func(id, _ NodeID) bool {
		switch t.Nodes[id].Kind {
		case KindImport, KindFromImport:
			ids = append(ids, id)
		case KindFunction, KindClass:
		}

		return true
	})

	return ids
}
