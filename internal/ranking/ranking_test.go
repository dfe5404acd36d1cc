package ranking

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/filemap/internal/lang"
	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/render"
	"github.com/phobologic/filemap/internal/tree"
)

func span(start, end int) model.Span {
	return model.Span{
		Start: model.Position{Line: start + 1, Column: 1, Offset: start},
		End:   model.Position{Line: end + 1, Column: 1, Offset: end},
	}
}

// twoStructs builds A{a1,a2,a3} and B{b1,b2}, all public.
func twoStructs(t *testing.T) *tree.Tree {
	t.Helper()
	src := []byte(strings.Repeat("\n", 100))
	pub := model.Public
	decls := []model.Declaration{
		{Kind: model.Struct, Name: "A", Signature: "struct A", Span: span(0, 40), Visibility: pub},
		{Kind: model.Field, Name: "a1", Signature: "a1: u8", Span: span(10, 11), Visibility: pub},
		{Kind: model.Field, Name: "a2", Signature: "a2: u8", Span: span(20, 21), Visibility: pub},
		{Kind: model.Field, Name: "a3", Signature: "a3: u8", Span: span(30, 31), Visibility: pub},
		{Kind: model.Struct, Name: "B", Signature: "struct B", Span: span(50, 90), Visibility: pub},
		{Kind: model.Field, Name: "b1", Signature: "b1: u8", Span: span(60, 61), Visibility: pub},
		{Kind: model.Field, Name: "b2", Signature: "b2: u8", Span: span(70, 71), Visibility: pub},
	}
	tr, err := tree.Build("rust", src, decls)
	require.NoError(t, err)
	return tr
}

func fixtureTree(t *testing.T) *tree.Tree {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "fixtures", "rust_example.rs"))
	require.NoError(t, err)
	a, ok := lang.Lookup("rust")
	require.True(t, ok)
	tr, err := tree.Build("rust", src, a.Declarations(src))
	require.NoError(t, err)
	return tr
}

func retained(tr *tree.Tree) map[int]bool {
	out := make(map[int]bool)
	for _, n := range tr.Nodes {
		if !n.Removed {
			out[n.Index] = true
		}
	}
	return out
}

func TestScoreDepthDominates(t *testing.T) {
	t.Parallel()

	shallow := &model.Declaration{Kind: model.Other, Depth: 0, Visibility: model.Private}
	deep := &model.Declaration{Kind: model.Module, Depth: 1, Visibility: model.Public}
	assert.Greater(t, Score(shallow), Score(deep))

	pub := &model.Declaration{Kind: model.Field, Visibility: model.Public}
	priv := &model.Declaration{Kind: model.Module, Visibility: model.Private}
	assert.Greater(t, Score(pub), Score(priv))

	fn := &model.Declaration{Kind: model.Function}
	field := &model.Declaration{Kind: model.Field}
	macro := &model.Declaration{Kind: model.MacroInvocation}
	other := &model.Declaration{Kind: model.Other}
	assert.Greater(t, Score(fn), Score(field))
	assert.Greater(t, Score(field), Score(macro))
	assert.Greater(t, Score(macro), Score(other))

	for _, k := range model.Kinds {
		assert.Positive(t, KindWeight(k), k)
		assert.Less(t, KindWeight(k), 10, k)
	}
}

func TestParseUnit(t *testing.T) {
	t.Parallel()

	u, err := ParseUnit("lines")
	require.NoError(t, err)
	assert.Equal(t, Lines, u)
	u, err = ParseUnit("chars")
	require.NoError(t, err)
	assert.Equal(t, Chars, u)
	_, err = ParseUnit("tokens")
	assert.Error(t, err)

	assert.Equal(t, "unlimited", NoBudget.String())
	assert.Equal(t, "40 lines", LinesBudget(40).String())
	assert.False(t, Budget{Unit: Chars}.Enabled())
}

func TestTrimNoBudget(t *testing.T) {
	t.Parallel()

	tr := twoStructs(t)
	res := Trim(tr, NoBudget, render.Layout{})
	assert.Zero(t, res.Removed)
	assert.False(t, res.Infeasible)
	assert.Equal(t, 8, res.Size)
	assert.Equal(t, 7, tr.Retained())
}

func TestTrimKeepsTopLevelFirst(t *testing.T) {
	t.Parallel()

	tr := twoStructs(t)
	res := Trim(tr, LinesBudget(6), render.Layout{})
	assert.False(t, res.Infeasible)
	assert.Equal(t, 4, res.Removed)
	assert.Equal(t, 6, res.Size)

	got := render.Text(render.Build(tr))
	assert.Equal(t, `file: rust
struct A
  field a1: u8
  ...
struct B
  ...
`, got)
}

func TestTrimInfeasible(t *testing.T) {
	t.Parallel()

	tr := twoStructs(t)
	res := Trim(tr, LinesBudget(1), render.Layout{})
	assert.True(t, res.Infeasible)
	assert.Equal(t, 7, res.Removed)
	assert.Equal(t, 2, res.Size)

	m := render.Build(tr)
	assert.Equal(t, "file: rust\n...\n", render.Text(m))
	assert.Equal(t, 7, m.Elided)
	require.Len(t, m.Entries, 1)
	assert.Equal(t, 7, m.Entries[0].Hidden)
}

func TestTrimExactFit(t *testing.T) {
	t.Parallel()

	tr := twoStructs(t)
	full := Size(tr, Chars, render.Layout{})
	res := Trim(tr, CharsBudget(full), render.Layout{})
	assert.Zero(t, res.Removed)
	assert.Equal(t, full, res.Size)
}

func TestTrimMonotonic(t *testing.T) {
	t.Parallel()

	for _, unit := range []Unit{Lines, Chars} {
		t.Run(unit.String(), func(t *testing.T) {
			t.Parallel()

			tr := fixtureTree(t)
			full := Size(tr, unit, render.Layout{})
			prev := retained(tr)
			for limit := full; limit >= 1; limit -= limit/20 + 1 {
				tr.Reset()
				res := Trim(tr, Budget{Unit: unit, Max: limit}, render.Layout{})

				text := render.Text(render.Build(tr))
				measured := utf8.RuneCountInString(text)
				if unit == Lines {
					measured = strings.Count(text, "\n")
				}
				require.Equal(t, measured, res.Size, "budget %d", limit)
				if !res.Infeasible {
					require.LessOrEqual(t, res.Size, limit)
				}

				cur := retained(tr)
				for idx := range cur {
					require.True(t, prev[idx], "budget %d kept node %d dropped by a larger budget", limit, idx)
				}
				for _, n := range tr.Nodes {
					if !n.Removed && !n.Parent.IsRoot() {
						require.False(t, n.Parent.Removed, "budget %d kept %q without its parent", limit, n.Decl.Label())
					}
				}
				prev = cur
			}
		})
	}
}

func TestTrimFixtureRetainsTopLevel(t *testing.T) {
	t.Parallel()

	tr := fixtureTree(t)
	// header, every top-level declaration, one marker per container
	lines := 1
	for _, n := range tr.Root.Children {
		lines++
		if len(n.Children) > 0 {
			lines++
		}
	}
	res := Trim(tr, LinesBudget(lines), render.Layout{})
	require.False(t, res.Infeasible)
	for _, n := range tr.Root.Children {
		assert.False(t, n.Removed, n.Decl.Label())
		for _, c := range n.Children {
			assert.True(t, c.Removed, c.Decl.Label())
		}
	}
}
