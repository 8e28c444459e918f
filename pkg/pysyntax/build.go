package pysyntax

import (
	"strconv"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Tree-sitter node types of the Python grammar that the builder understands.
const (
	tsImport          = "import_statement"
	tsFromImport      = "import_from_statement"
	tsFutureImport    = "future_import_statement"
	tsFunction        = "function_definition"
	tsClass           = "class_definition"
	tsDecorated       = "decorated_definition"
	tsDecorator       = "decorator"
	tsDottedName      = "dotted_name"
	tsAliasedImport   = "aliased_import"
	tsRelativeImport  = "relative_import"
	tsImportPrefix    = "import_prefix"
	tsWildcardImport  = "wildcard_import"
	tsComment         = "comment"
	tsExpressionStmt  = "expression_statement"
	tsString          = "string"
	tsConcatenated    = "concatenated_string"
	tsIdentifier      = "identifier"
	tsTypedParam      = "typed_parameter"
	tsDefaultParam    = "default_parameter"
	tsTypedDefault    = "typed_default_parameter"
	tsListSplat       = "list_splat_pattern"
	tsDictSplat       = "dictionary_splat_pattern"
	tsKeywordSep      = "keyword_separator"
	tsPositionalSep   = "positional_separator"
	futureModuleName  = "__future__"
	importKeyword     = "import "
	fromKeyword       = "from "
	importSeparator   = ", "
	wildcard          = "*"
	asyncKeyword      = "async"
)

// transparent lists compound statements whose bodies belong to the enclosing scope.
var transparent = map[string]bool{
	"block":               true,
	"if_statement":        true,
	"elif_clause":         true,
	"else_clause":         true,
	"for_statement":       true,
	"while_statement":     true,
	"try_statement":       true,
	"except_clause":       true,
	"except_group_clause": true,
	"finally_clause":      true,
	"with_statement":      true,
	"match_statement":     true,
	"case_clause":         true,
}

type builder struct {
	src  []byte
	tree *Tree
}

func (b *builder) add(n Node) NodeID {
	b.tree.Nodes = append(b.tree.Nodes, n)

	return NodeID(len(b.tree.Nodes) - 1)
}

func (b *builder) text(n sitter.Node) string {
	return n.Content(b.src)
}

// collect appends the declarations found among the named children of parent.
func (b *builder) collect(parent sitter.Node, into *[]NodeID) {
	for idx := range parent.NamedChildCount() {
		child := parent.NamedChild(idx)
		if child.IsNull() {
			continue
		}

		b.visit(child, 0, into)
	}
}

func (b *builder) visit(n sitter.Node, decorators int, into *[]NodeID) {
	switch kind := n.Type(); {
	case kind == tsImport:
		*into = append(*into, b.add(b.directImport(n)))
	case kind == tsFromImport || kind == tsFutureImport:
		*into = append(*into, b.add(b.fromImport(n)))
	case kind == tsFunction:
		*into = append(*into, b.function(n, decorators))
	case kind == tsClass:
		*into = append(*into, b.class(n, decorators))
	case kind == tsDecorated:
		def := n.ChildByFieldName("definition")
		if def.IsNull() {
			return
		}

		b.visit(def, countChildren(n, tsDecorator), into)
	case transparent[kind]:
		b.collect(n, into)
	}
}

func (b *builder) directImport(n sitter.Node) Node {
	names := make([]string, 0, n.NamedChildCount())

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)
		if name := b.importedName(child); name != "" {
			names = append(names, name)
		}
	}

	return Node{
		Kind: KindImport,
		Line: lineOf(n),
		Text: importKeyword + strings.Join(names, importSeparator),
	}
}

func (b *builder) fromImport(n sitter.Node) Node {
	node := Node{
		Kind: KindFromImport,
		Line: lineOf(n),
	}

	moduleStart := -1

	if n.Type() == tsFutureImport {
		node.Module = futureModuleName
	} else if module := n.ChildByFieldName("module_name"); !module.IsNull() {
		moduleStart = int(module.StartByte())
		node.Module, node.Level = b.moduleName(module)
	}

	var names []string

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)
		if child.IsNull() || int(child.StartByte()) == moduleStart {
			continue
		}

		if child.Type() == tsWildcardImport {
			names = append(names, wildcard)

			continue
		}

		if name := b.importedName(child); name != "" {
			names = append(names, name)
		}
	}

	node.Text = fromKeyword + strings.Repeat(".", node.Level) + node.Module + " " +
		importKeyword + strings.Join(names, importSeparator)

	return node
}

// moduleName returns the dotted module and the relative import level.
func (b *builder) moduleName(n sitter.Node) (string, int) {
	if n.Type() != tsRelativeImport {
		return compact(b.text(n)), 0
	}

	var (
		module string
		level  int
	)

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)

		switch child.Type() {
		case tsImportPrefix:
			level = strings.Count(b.text(child), ".")
		case tsDottedName:
			module = compact(b.text(child))
		}
	}

	return module, level
}

// importedName renders a dotted_name or aliased_import; other nodes yield "".
func (b *builder) importedName(n sitter.Node) string {
	switch n.Type() {
	case tsDottedName:
		return compact(b.text(n))
	case tsAliasedImport:
		name := n.ChildByFieldName("name")
		alias := n.ChildByFieldName("alias")

		if name.IsNull() || alias.IsNull() {
			return compact(b.text(n))
		}

		return compact(b.text(name)) + " as " + compact(b.text(alias))
	default:
		return ""
	}
}

func (b *builder) function(n sitter.Node, decorators int) NodeID {
	node := Node{
		Kind:       KindFunction,
		Line:       lineOf(n),
		Decorators: decorators,
		IsAsync:    strings.HasPrefix(b.text(n), asyncKeyword),
	}

	if name := n.ChildByFieldName("name"); !name.IsNull() {
		node.Name = b.text(name)
	}

	if params := n.ChildByFieldName("parameters"); !params.IsNull() {
		node.Params = b.parameters(params)
	}

	if returns := n.ChildByFieldName("return_type"); !returns.IsNull() {
		node.Returns = strings.TrimSpace(b.text(returns))
	}

	body := n.ChildByFieldName("body")
	if !body.IsNull() {
		node.Doc, node.HasDoc = b.docstring(body)
	}

	// Reserve the slot before descending so ids follow source order.
	id := b.add(node)

	if !body.IsNull() {
		var children []NodeID

		b.collect(body, &children)
		b.tree.Nodes[id].Children = children
	}

	return id
}

func (b *builder) class(n sitter.Node, decorators int) NodeID {
	node := Node{
		Kind:       KindClass,
		Line:       lineOf(n),
		Decorators: decorators,
	}

	if name := n.ChildByFieldName("name"); !name.IsNull() {
		node.Name = b.text(name)
	}

	body := n.ChildByFieldName("body")
	if !body.IsNull() {
		node.Doc, node.HasDoc = b.docstring(body)
	}

	id := b.add(node)

	if !body.IsNull() {
		var children []NodeID

		b.collect(body, &children)
		b.tree.Nodes[id].Children = children
	}

	return id
}

func (b *builder) parameters(n sitter.Node) []Param {
	params := make([]Param, 0, n.NamedChildCount())
	kind := ParamPositional

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)

		switch child.Type() {
		case tsIdentifier:
			params = append(params, Param{Name: b.text(child), Kind: kind})
		case tsDefaultParam:
			params = append(params, Param{Name: b.fieldText(child, "name"), Kind: kind})
		case tsTypedDefault:
			params = append(params, Param{
				Name:       b.fieldText(child, "name"),
				Annotation: b.fieldText(child, "type"),
				Kind:       kind,
			})
		case tsTypedParam:
			param := b.typedParameter(child, kind)
			if param.Kind == ParamVarArgs {
				kind = ParamKeywordOnly
			}

			params = append(params, param)
		case tsListSplat:
			params = append(params, Param{Name: b.splatName(child), Kind: ParamVarArgs})
			kind = ParamKeywordOnly
		case tsDictSplat:
			params = append(params, Param{Name: b.splatName(child), Kind: ParamKwArgs})
		case tsKeywordSep:
			kind = ParamKeywordOnly
		case tsPositionalSep:
			for i := range params {
				if params[i].Kind == ParamPositional {
					params[i].Kind = ParamPositionalOnly
				}
			}
		}
	}

	return params
}

// typedParameter handles `x: T`, `*args: T` and `**kw: T`.
func (b *builder) typedParameter(n sitter.Node, kind ParamKind) Param {
	param := Param{
		Annotation: b.fieldText(n, "type"),
		Kind:       kind,
	}

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)

		switch child.Type() {
		case tsIdentifier:
			param.Name = b.text(child)
		case tsListSplat:
			param.Name = b.splatName(child)
			param.Kind = ParamVarArgs
		case tsDictSplat:
			param.Name = b.splatName(child)
			param.Kind = ParamKwArgs
		default:
			continue
		}

		break
	}

	return param
}

func (b *builder) splatName(n sitter.Node) string {
	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)
		if child.Type() == tsIdentifier {
			return b.text(child)
		}
	}

	return strings.TrimLeft(b.text(n), "*")
}

func (b *builder) fieldText(n sitter.Node, field string) string {
	child := n.ChildByFieldName(field)
	if child.IsNull() {
		return ""
	}

	return strings.TrimSpace(b.text(child))
}

// docstring returns the cleaned docstring of a body block and whether the
// first statement is a string literal at all.
func (b *builder) docstring(body sitter.Node) (string, bool) {
	for idx := range body.NamedChildCount() {
		stmt := body.NamedChild(idx)
		if stmt.Type() == tsComment {
			continue
		}

		if stmt.Type() != tsExpressionStmt || stmt.NamedChildCount() != 1 {
			return "", false
		}

		expr := stmt.NamedChild(0)

		switch expr.Type() {
		case tsString:
			return stringLiteral(b.text(expr))
		case tsConcatenated:
			return b.concatenated(expr)
		default:
			return "", false
		}
	}

	return "", false
}

func (b *builder) concatenated(n sitter.Node) (string, bool) {
	var sb strings.Builder

	for idx := range n.NamedChildCount() {
		part := n.NamedChild(idx)
		if part.Type() != tsString {
			continue
		}

		value, ok := stringLiteral(b.text(part))
		if !ok {
			return "", false
		}

		sb.WriteString(value)
	}

	return strings.TrimSpace(sb.String()), true
}

// stringLiteral strips prefix and quotes from a str literal. Bytes, f-strings
// and t-strings are not docstrings.
func stringLiteral(literal string) (string, bool) {
	quote := strings.IndexAny(literal, `"'`)
	if quote < 0 {
		return "", false
	}

	prefix := strings.ToLower(literal[:quote])
	if strings.ContainsAny(prefix, "bft") {
		return "", false
	}

	body := literal[quote:]

	width := 1
	if strings.HasPrefix(body, `"""`) || strings.HasPrefix(body, `'''`) {
		width = 3
	}

	if len(body) < 2*width {
		return "", true
	}

	text := body[width : len(body)-width]
	if !strings.Contains(prefix, "r") {
		text = unescape(text)
	}

	return strings.TrimSpace(text), true
}

// unescape decodes the backslash escapes of a non-raw str literal. Unknown
// escapes such as `\d` and named `\N{...}` escapes are kept verbatim.
func unescape(text string) string {
	if !strings.Contains(text, `\`) {
		return text
	}

	var out strings.Builder

	out.Grow(len(text))

	for len(text) > 0 {
		slash := strings.IndexByte(text, '\\')
		if slash < 0 || slash == len(text)-1 {
			out.WriteString(text)

			break
		}

		out.WriteString(text[:slash])
		text = text[slash:]

		switch esc := text[1]; {
		case esc == '\n':
			text = text[2:]
		case esc == '\r':
			text = strings.TrimPrefix(text[2:], "\n")
		case esc == '\'' || esc == '"':
			out.WriteByte(esc)

			text = text[2:]
		case esc >= '0' && esc <= '7':
			text = unescapeOctal(&out, text[1:])
		case strings.IndexByte(`abfnrtvxuU\`, esc) >= 0:
			value, _, tail, err := strconv.UnquoteChar(text, 0)
			if err != nil {
				out.WriteString(text[:2])

				text = text[2:]

				continue
			}

			out.WriteRune(value)

			text = tail
		default:
			out.WriteString(text[:2])

			text = text[2:]
		}
	}

	return out.String()
}

// unescapeOctal decodes up to three octal digits at the start of digits.
func unescapeOctal(out *strings.Builder, digits string) string {
	value, used := 0, 0

	for used < 3 && used < len(digits) && digits[used] >= '0' && digits[used] <= '7' {
		value = value*8 + int(digits[used]-'0')
		used++
	}

	out.WriteRune(rune(value))

	return digits[used:]
}

func countChildren(n sitter.Node, kind string) int {
	count := 0

	for idx := range n.NamedChildCount() {
		if n.NamedChild(idx).Type() == kind {
			count++
		}
	}

	return count
}

func lineOf(n sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// compact drops all whitespace, turning `a . b` into `a.b`.
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
