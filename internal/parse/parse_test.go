package parse

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/filemap/internal/scan"
)

// items parses src and returns the top-level items by name, or by node
// type when the node has no name field.
func items(t *testing.T, grammar *sitter.Language, src string) (names, docs []string, prefixes []int) {
	t.Helper()
	err := Parse(context.Background(), grammar, []byte(src), func(root *sitter.Node) {
		Items(root, []byte(src), func(n *sitter.Node) bool { return n.Type() == "attribute_item" }, func(it Item) {
			name := it.Node.Type()
			if n := it.Node.ChildByFieldName("name"); n != nil {
				name = NodeText(n, []byte(src))
			}
			names = append(names, name)
			docs = append(docs, it.Doc)
			prefixes = append(prefixes, len(it.Prefix))
		})
	})
	require.NoError(t, err)
	return names, docs, prefixes
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	called := false
	err := Parse(context.Background(), golang.GetLanguage(), nil, func(*sitter.Node) { called = true })
	require.NoError(t, err)
	assert.False(t, called)
}

func TestItemsDocComments(t *testing.T) {
	t.Parallel()

	src := "package p\n\n// Doc for A.\nfunc A() {}\nfunc B() {} // trailing\nfunc C() {}\n\n// detached\n\nfunc D() {}\n\n/* Block\n * doc. */\nfunc E() {}\n"
	names, docs, _ := items(t, golang.GetLanguage(), src)

	assert.Equal(t, []string{"package_clause", "A", "B", "C", "D", "E"}, names)
	assert.Equal(t, []string{"", "Doc for A.", "", "", "", "Block\ndoc."}, docs)
}

func TestItemsPrefix(t *testing.T) {
	t.Parallel()

	src := "/// Doc.\n#[a]\n#[b]\nfn f() {}\n\n#[c] fn g() {}\n"
	names, docs, prefixes := items(t, rust.GetLanguage(), src)

	assert.Equal(t, []string{"f", "g"}, names)
	assert.Equal(t, []string{"Doc.", ""}, docs)
	assert.Equal(t, []int{2, 1}, prefixes)
}

func TestHeaderAndSpan(t *testing.T) {
	t.Parallel()

	src := []byte("package p\n\nfunc (r *T) Name(\n\ta int,\n) string {\n\treturn \"\"\n}\n")
	err := Parse(context.Background(), golang.GetLanguage(), src, func(root *sitter.Node) {
		fn := root.NamedChild(1)
		require.Equal(t, "method_declaration", fn.Type())
		assert.Equal(t, "func (r *T) Name( a int, ) string", Header(fn, fn.ChildByFieldName("body"), src))
		assert.Equal(t, "package p", Header(root.NamedChild(0), nil, src))

		span := Span(fn)
		assert.Equal(t, 3, span.Start.Line)
		assert.Equal(t, 1, span.Start.Column)
		assert.Equal(t, 7, span.End.Line)
		assert.Equal(t, len(src)-1, span.End.Offset)
		assert.Equal(t, uint32(6), LastRow(fn))
	})
	require.NoError(t, err)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	err := Parse(context.Background(), golang.GetLanguage(), []byte("package p\n\nfunc A() {}\n"), func(root *sitter.Node) {
		assert.Empty(t, Errors(root))
	})
	require.NoError(t, err)

	src := []byte("package p\n\nfunc (\n")
	err = Parse(context.Background(), golang.GetLanguage(), src, func(root *sitter.Node) {
		spans := Errors(root)
		require.NotEmpty(t, spans)
		for _, s := range spans {
			assert.LessOrEqual(t, s.End.Offset, len(src))
		}
	})
	require.NoError(t, err)
}

func significant(toks []scan.Token) []scan.Kind {
	var out []scan.Kind
	for _, tok := range toks {
		if tok.Kind != scan.Newline {
			out = append(out, tok.Kind)
		}
	}
	return out
}

func TestScannerTokens(t *testing.T) {
	t.Parallel()

	src := "package p\n\nvar x = 'a' + 1 // n\n"
	toks := Scanner(golang.GetLanguage()).Scan([]byte(src)).All()

	assert.Equal(t, []scan.Kind{
		scan.Ident, scan.Ident,
		scan.Ident, scan.Ident, scan.Punct, scan.Char, scan.Punct, scan.Number, scan.LineComment,
		scan.EOF,
	}, significant(toks))

	x := toks[0]
	for _, tok := range toks {
		if tok.Text == "x" {
			x = tok
		}
	}
	assert.Equal(t, 3, x.Start.Line)
	assert.Equal(t, 5, x.Start.Column)
	assert.Equal(t, 15, x.Start.Offset)

	eof := toks[len(toks)-1]
	assert.Equal(t, len(src), eof.Start.Offset)
	assert.Equal(t, 4, eof.Start.Line)
}

func TestScannerUnrecognized(t *testing.T) {
	t.Parallel()

	src := "package p\n)))\n"
	toks := Scanner(golang.GetLanguage()).Scan([]byte(src)).All()
	assert.Contains(t, significant(toks), scan.Unrecognized)
	for _, tok := range toks {
		assert.LessOrEqual(t, tok.End.Offset, len(src))
	}

	toks = Scanner(golang.GetLanguage()).Scan(nil).All()
	require.Len(t, toks, 1)
	assert.Equal(t, scan.EOF, toks[0].Kind)
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fn a(x: u8)", CollapseWhitespace("  fn a(\n\tx: u8)\n"))
	assert.Equal(t, "", CollapseWhitespace(" \n "))
}
