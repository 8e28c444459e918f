package pysyntax_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pystyle/pkg/pysyntax"
)

func parse(t *testing.T, src string) *pysyntax.Tree {
	t.Helper()

	tree, err := pysyntax.NewParser().Parse(context.Background(), "sample.py", []byte(src))
	require.NoError(t, err)

	return tree
}

func TestIsSupported(t *testing.T) {
	t.Parallel()

	assert.True(t, pysyntax.IsSupported("pkg/mod.py"))
	assert.False(t, pysyntax.IsSupported("MOD.PY"))
	assert.False(t, pysyntax.IsSupported("mod.pyc"))
	assert.False(t, pysyntax.IsSupported("README"))
}

func TestParse_EmptyFile(t *testing.T) {
	t.Parallel()

	tree := parse(t, "")

	assert.Equal(t, "sample.py", tree.Path)
	assert.Empty(t, tree.Nodes)
	assert.Empty(t, tree.Top)
}

func TestParse_SyntaxError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"unbalanced parameters", "import os\ndef broken(:\n    pass\n", 2, ""},
		{"print statement", "import os\nprint \"hello\"\n", 2, "Missing parentheses in call to 'print'"},
		{"exec statement", "exec \"x = 1\"\n", 1, "Missing parentheses in call to 'exec'"},
		{
			"comma in except clause",
			"try:\n    pass\nexcept Exception, e:\n    pass\n",
			3, "multiple exception types must be parenthesized",
		},
		{
			"non-default after default",
			"def f(a=1, b):\n    pass\n",
			1, "parameter without a default follows parameter with a default",
		},
		{
			"typed non-default after default",
			"class C:\n    def m(self, a: int = 1, b: str):\n        pass\n",
			2, "parameter without a default follows parameter with a default",
		},
		{
			"lambda non-default after default",
			"f = lambda a=1, b: a\n",
			1, "parameter without a default follows parameter with a default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree, err := pysyntax.NewParser().Parse(context.Background(), "bad.py", []byte(tt.src))
			require.Error(t, err)
			require.ErrorIs(t, err, pysyntax.ErrSyntax)
			assert.Nil(t, tree)

			var syntaxErr *pysyntax.SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, "bad.py", syntaxErr.Path)

			if tt.msg == "" {
				assert.GreaterOrEqual(t, syntaxErr.Line, tt.line)

				return
			}

			assert.Equal(t, tt.line, syntaxErr.Line)
			assert.Equal(t, tt.msg, syntaxErr.Msg)
		})
	}
}

func TestParse_AcceptsPython3Forms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"print call", "print(\"hello\")\n"},
		{"parenthesized except", "try:\n    pass\nexcept (KeyError, ValueError) as e:\n    pass\n"},
		{"keyword-only after varargs", "def f(a, b=1, *args, c, d=2, **kw):\n    pass\n"},
		{"keyword-only after bare star", "def f(a=1, *, b):\n    pass\n"},
		{"typed varargs", "def f(a: int = 1, *args: str, b: int):\n    pass\n"},
		{"positional-only marker", "def f(a, b=1, /, c=2):\n    pass\n"},
		{"lambda defaults", "f = lambda a, b=1: a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := pysyntax.NewParser().Parse(context.Background(), "ok.py", []byte(tt.src))
			require.NoError(t, err)
		})
	}
}

func TestParse_Imports(t *testing.T) {
	t.Parallel()

	tree := parse(t, `import os
import a.b as c, d
from __future__ import annotations
from x.y import z as w, v
from ..pkg import thing
from . import sibling
from m import *
`)

	ids := tree.Imports()
	require.Len(t, ids, 7)

	tests := []struct {
		kind   pysyntax.Kind
		text   string
		module string
		level  int
		line   int
	}{
		{pysyntax.KindImport, "import os", "", 0, 1},
		{pysyntax.KindImport, "import a.b as c, d", "", 0, 2},
		{pysyntax.KindFromImport, "from __future__ import annotations", "__future__", 0, 3},
		{pysyntax.KindFromImport, "from x.y import z as w, v", "x.y", 0, 4},
		{pysyntax.KindFromImport, "from ..pkg import thing", "pkg", 2, 5},
		{pysyntax.KindFromImport, "from . import sibling", "", 1, 6},
		{pysyntax.KindFromImport, "from m import *", "m", 0, 7},
	}

	for i, tt := range tests {
		n := tree.Node(ids[i])

		assert.Equal(t, tt.kind, n.Kind, tt.text)
		assert.Equal(t, tt.text, n.Text)
		assert.Equal(t, tt.module, n.Module, tt.text)
		assert.Equal(t, tt.level, n.Level, tt.text)
		assert.Equal(t, tt.line, n.Line, tt.text)
	}
}

func TestParse_ImportsInsideCompoundStatements(t *testing.T) {
	t.Parallel()

	tree := parse(t, `try:
    import json
except ImportError:
    import simplejson
if True:
    from a import b

def f():
    import inner
`)

	ids := tree.Imports()
	require.Len(t, ids, 4)

	var texts []string
	for _, id := range ids {
		texts = append(texts, tree.Node(id).Text)
	}

	assert.Equal(t, []string{"import json", "import simplejson", "from a import b", "import inner"}, texts)
	assert.Len(t, tree.Top, 4)
}

func TestParse_FunctionSignature(t *testing.T) {
	t.Parallel()

	tree := parse(t, `@decorator
async def fetch(a, b: int, /, c=1, d: str = "x", *args: int, e, **kw) -> None:
    """Fetch things."""
`)

	require.Len(t, tree.Top, 1)

	fn := tree.Node(tree.Top[0])
	assert.Equal(t, pysyntax.KindFunction, fn.Kind)
	assert.Equal(t, "fetch", fn.Name)
	assert.Equal(t, 2, fn.Line)
	assert.True(t, fn.IsAsync)
	assert.Equal(t, 1, fn.Decorators)
	assert.Equal(t, "None", fn.Returns)
	assert.True(t, fn.Documented())
	assert.Equal(t, "Fetch things.", fn.Doc)

	want := []pysyntax.Param{
		{Name: "a", Kind: pysyntax.ParamPositionalOnly},
		{Name: "b", Annotation: "int", Kind: pysyntax.ParamPositionalOnly},
		{Name: "c", Kind: pysyntax.ParamPositional},
		{Name: "d", Annotation: "str", Kind: pysyntax.ParamPositional},
		{Name: "args", Annotation: "int", Kind: pysyntax.ParamVarArgs},
		{Name: "e", Kind: pysyntax.ParamKeywordOnly},
		{Name: "kw", Kind: pysyntax.ParamKwArgs},
	}
	assert.Equal(t, want, fn.Params)
}

func TestParse_KeywordSeparatorIsNotAParam(t *testing.T) {
	t.Parallel()

	tree := parse(t, "def f(a: int, *, b: int) -> int:\n    return a\n")

	fn := tree.Node(tree.Top[0])
	require.Len(t, fn.Params, 2)
	assert.Equal(t, pysyntax.ParamPositional, fn.Params[0].Kind)
	assert.Equal(t, pysyntax.ParamKeywordOnly, fn.Params[1].Kind)
	assert.False(t, fn.Documented())
}

func TestParse_Docstrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		documented bool
		doc        string
	}{
		{"triple double", `"""Hello."""`, true, "Hello."},
		{"single quotes", `'hi'`, true, "hi"},
		{"raw prefix", `r"""raw"""`, true, "raw"},
		{"blank", `"""   """`, false, ""},
		{"bytes", `b"bytes"`, false, ""},
		{"fstring", `f"x"`, false, ""},
		{"not first", "x = 1\n    \"\"\"late\"\"\"", false, ""},
		{"comment first", "# note\n    \"\"\"Doc.\"\"\"", true, "Doc."},
		{"none", "pass", false, ""},
		{"escaped newline only", `"\n"`, false, ""},
		{"escaped whitespace around text", `"\tText.\n"`, true, "Text."},
		{"escaped quote", `'It\'s.'`, true, "It's."},
		{"hex and unicode escapes", `"\x41\u00e9"`, true, "A\u00e9"},
		{"octal escape", `"\101\12"`, true, "A"},
		{"unknown escape kept", `"\d+"`, true, `\d+`},
		{"raw keeps escapes", `r"\n"`, true, `\n`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree := parse(t, "def f():\n    "+tt.body+"\n")
			fn := tree.Node(tree.Top[0])

			assert.Equal(t, tt.documented, fn.Documented())
			assert.Equal(t, tt.doc, fn.Doc)
		})
	}
}

func TestParse_ClassesAndNesting(t *testing.T) {
	t.Parallel()

	tree := parse(t, `class Outer:
    """Outer."""

    def method(self):
        def helper():
            pass

    class Inner:
        def deep(self):
            pass
`)

	require.Len(t, tree.Top, 1)

	outer := tree.Node(tree.Top[0])
	assert.Equal(t, pysyntax.KindClass, outer.Kind)
	assert.Equal(t, "Outer", outer.Name)
	require.Len(t, outer.Children, 2)

	method := tree.Node(outer.Children[0])
	assert.Equal(t, "method", method.Name)
	assert.Equal(t, 4, method.Line)
	require.Len(t, method.Children, 1)
	assert.Equal(t, "helper", tree.Node(method.Children[0]).Name)

	inner := tree.Node(outer.Children[1])
	assert.Equal(t, pysyntax.KindClass, inner.Kind)
	require.Len(t, inner.Children, 1)
}

func TestTree_WalkSourceOrderAndParents(t *testing.T) {
	t.Parallel()

	tree := parse(t, `def a():
    pass

class B:
    def c(self):
        pass

def d():
    pass
`)

	var (
		names   []string
		parents []string
	)

	tree.Walk(func(id, parent pysyntax.NodeID) bool {
		names = append(names, tree.Node(id).Name)

		if parent < 0 {
			parents = append(parents, "")
		} else {
			parents = append(parents, tree.Node(parent).Name)
		}

		return true
	})

	assert.Equal(t, []string{"a", "B", "c", "d"}, names)
	assert.Equal(t, []string{"", "", "B", ""}, parents)
}

func TestParser_ConcurrentUse(t *testing.T) {
	t.Parallel()

	parser := pysyntax.NewParser()
	done := make(chan error, 8)

	for range 8 {
		go func() {
			_, err := parser.Parse(context.Background(), "c.py", []byte("import os\n"))
			done <- err
		}()
	}

	for range 8 {
		require.NoError(t, <-done)
	}
}
