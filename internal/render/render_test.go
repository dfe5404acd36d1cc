package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/filemap/internal/graph"
	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/tree"
)

func span(startLine, start, end int) model.Span {
	return model.Span{
		Start: model.Position{Line: startLine, Column: 1, Offset: start},
		End:   model.Position{Line: startLine + 1, Column: 1, Offset: end},
	}
}

func sampleTree(t *testing.T) *tree.Tree {
	t.Helper()
	decls := []model.Declaration{
		{
			Kind: model.Enum, Name: "Status", Signature: "pub enum Status",
			Doc: "Lifecycle state.\nMore detail.", Span: span(1, 0, 50),
			Attributes: []string{"#[derive(Debug)]", "pub"}, Visibility: model.Public,
		},
		{
			Kind: model.EnumVariant, Name: "Pending", Signature: "Pending", Span: span(2, 10, 17),
			Visibility: model.Public, Assoc: model.Associations{Parent: "Status"},
		},
		{
			Kind: model.EnumVariant, Name: "Done", Signature: "Done", Span: span(3, 20, 24),
			Visibility: model.Public, Assoc: model.Associations{Parent: "Status"},
		},
		{
			Kind: model.Other, Signature: "garbage", Span: span(5, 60, 67),
			Warnings: []string{"unrecognized item at 5:1"},
		},
		{
			Kind: model.Function, Name: "run", Signature: "async fn run()", Span: span(7, 70, 90),
			Attributes: []string{"async"},
		},
	}
	graph.Resolve(decls)
	tr, err := tree.Build("rust", []byte(strings.Repeat(" ", 100)), decls)
	require.NoError(t, err)
	return tr
}

func TestText(t *testing.T) {
	t.Parallel()

	m := Build(sampleTree(t))
	assert.Equal(t, `file: rust
#[derive(Debug)] pub enum Status  // Lifecycle state.
  variant Pending
  variant Done
unparsed garbage
async fn run()
`, Text(m))
	assert.True(t, m.Recovered)
	assert.Equal(t, []string{"line 5: unrecognized item at 5:1"}, m.Warnings)
	assert.Zero(t, m.Elided)
}

func TestBuildMergesMarkers(t *testing.T) {
	t.Parallel()

	tr := sampleTree(t)
	tr.Nodes[1].Removed = true
	tr.Nodes[2].Removed = true
	tr.Nodes[3].Removed = true

	m := Build(tr)
	assert.Equal(t, "file: rust\n#[derive(Debug)] pub enum Status  // Lifecycle state.\n  ...\n...\nasync fn run()\n", Text(m))
	assert.Equal(t, 3, m.Elided)
	require.Len(t, m.Entries, 4)
	assert.True(t, m.Entries[1].Marker)
	assert.Equal(t, 2, m.Entries[1].Hidden)
	assert.Equal(t, 1, m.Entries[2].Hidden)
	assert.Empty(t, m.Relations, "relations to removed members are dropped")
}

func TestRelationsIncluded(t *testing.T) {
	t.Parallel()

	m := Build(sampleTree(t))
	require.Len(t, m.Relations, 2)
	assert.Equal(t, graph.MemberOf, m.Relations[0].Kind)
	assert.Equal(t, "Status", m.Relations[0].To)
	assert.Equal(t, 1, m.Relations[0].ToLine)
}

func TestFormatShortSignature(t *testing.T) {
	t.Parallel()

	got := FormatLine(Entry{Kind: model.Const, Signature: "a=", Depth: 1})
	assert.Equal(t, "  const a=", got)
	assert.GreaterOrEqual(t, len(FormatLine(Entry{Kind: model.Module})), len(Ellipsis))
	assert.Equal(t, "sig with newline", FormatLine(Entry{Kind: model.Function, Signature: "sig with\n newline"}))
	assert.Equal(t, "@app.route('/') def index()", FormatLine(Entry{
		Kind:       model.Function,
		Signature:  "def index()",
		Attributes: []string{"@app.route('/')", "async"},
	}))
}

func TestLayoutMatchesText(t *testing.T) {
	t.Parallel()

	tr := sampleTree(t)
	var l Layout
	m := Build(tr)
	lines := strings.Split(strings.TrimSuffix(Text(m), "\n"), "\n")
	require.Len(t, lines, len(tr.Nodes)+1)
	assert.Equal(t, len(lines[0]), l.Header(tr))
	for i, n := range tr.Nodes {
		assert.Equal(t, len(lines[i+1]), l.Line(n), lines[i+1])
	}
	assert.Equal(t, 5, l.Marker(1))
}

func TestEncodeFormats(t *testing.T) {
	t.Parallel()

	m := Build(sampleTree(t))

	out, err := Encode(m, FormatJSON)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "rust", decoded["language"])
	entries := decoded["entries"].([]any)
	require.Len(t, entries, 5)
	first := entries[0].(map[string]any)
	assert.Equal(t, "enum", first["kind"])
	assert.Equal(t, "public", first["visibility"])

	out, err = Encode(m, FormatYAML)
	require.NoError(t, err)
	var back Map
	require.NoError(t, yaml.Unmarshal([]byte(out), &back))
	assert.Equal(t, "rust", back.Language)
	assert.Len(t, back.Entries, 5)
	assert.Equal(t, "Status", back.Entries[1].Associations.Parent)

	out, err = Encode(m, FormatTOON)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "language: rust\nrecovered: true\nbudget_infeasible: false\nelided: 0\n"))
	assert.Contains(t, out, "entries[5]{depth,kind,name,line,end_line,signature,doc}:")
	assert.Contains(t, out, "warnings[1]{message}:")

	out, err = Encode(m, FormatText)
	require.NoError(t, err)
	assert.Equal(t, Text(m), out)

	_, err = Encode(m, Format("xml"))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestCombine(t *testing.T) {
	t.Parallel()

	got := Combine([]FileMap{
		{Path: "src/b.rs", Body: "file: rust\nfn b()\n"},
		{Path: "README", Body: ""},
		{Path: "big.go", Body: NoMapTooLarge},
	})
	assert.Equal(t, "### README\n[NO MAP]\n\n### big.go\n[NO MAP - TOO LARGE]\n\n### src/b.rs\nfile: rust\nfn b()\n", got)
}

func TestSortWarnings(t *testing.T) {
	t.Parallel()

	m := &Map{}
	m.AddWarning("line %d: b", 12)
	m.AddWarning("line %d: a", 3)
	m.AddWarning("file-level")
	m.SortWarnings()
	assert.Equal(t, []string{"file-level", "line 3: a", "line 12: b"}, m.Warnings)
	assert.True(t, m.Recovered)
}
