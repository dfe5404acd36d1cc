// Package tree nests a flat declaration list into a containment tree.
package tree

import (
	"errors"
	"fmt"
	"sort"

	"github.com/phobologic/filemap/internal/model"
)

// ErrInvariant reports declarations that cannot form a containment tree:
// two declarations with the same span, or spans that partially overlap.
var ErrInvariant = errors.New("symbol tree invariant violated")

// Node is one declaration in the tree. The root has a nil Decl.
type Node struct {
	Decl     *model.Declaration
	Span     model.Span
	Depth    int // -1 for the root
	Parent   *Node
	Children []*Node
	Index    int // source order among all declarations; -1 for the root

	// Removed is set by trimming. A removed node is never rendered; it is
	// folded into an elision marker under its nearest retained ancestor.
	Removed bool
}

// IsRoot reports whether n is the synthetic file node.
func (n *Node) IsRoot() bool {
	return n.Decl == nil
}

// Tree is the symbol tree of one file.
type Tree struct {
	Language string
	Root     *Node
	// Nodes lists every declaration node in source order (pre-order).
	Nodes []*Node
}

// Build nests decls under a synthetic root spanning src. A declaration
// becomes a child of the nearest preceding declaration whose span contains
// it. Depth on each declaration is rewritten to its tree depth.
func Build(language string, src []byte, decls []model.Declaration) (*Tree, error) {
	root := &Node{Span: fileSpan(src), Depth: -1, Index: -1}
	t := &Tree{Language: language, Root: root}

	ordered := make([]model.Declaration, len(decls))
	copy(ordered, decls)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Span, ordered[j].Span
		if a.Start.Offset != b.Start.Offset {
			return a.Start.Offset < b.Start.Offset
		}
		return a.End.Offset > b.End.Offset
	})

	stack := []*Node{root}
	for i := range ordered {
		d := &ordered[i]
		if d.Span.Start.Offset > d.Span.End.Offset || !root.Span.Covers(d.Span) {
			return nil, fmt.Errorf("%w: %s %q at %s lies outside the input", ErrInvariant, d.Kind, d.Label(), d.Span.Start)
		}
		for len(stack) > 1 {
			top := stack[len(stack)-1]
			if top.Span.Start.Offset == d.Span.Start.Offset && top.Span.End.Offset == d.Span.End.Offset {
				return nil, fmt.Errorf("%w: %s %q and %s %q share the span %s-%s",
					ErrInvariant, top.Decl.Kind, top.Decl.Label(), d.Kind, d.Label(), d.Span.Start, d.Span.End)
			}
			if top.Span.Covers(d.Span) {
				break
			}
			if d.Span.Start.Offset < top.Span.End.Offset {
				return nil, fmt.Errorf("%w: %s %q at %s partially overlaps %s %q",
					ErrInvariant, d.Kind, d.Label(), d.Span.Start, top.Decl.Kind, top.Decl.Label())
			}
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		d.Depth = parent.Depth + 1
		n := &Node{Decl: d, Span: d.Span, Depth: d.Depth, Parent: parent, Index: len(t.Nodes)}
		parent.Children = append(parent.Children, n)
		t.Nodes = append(t.Nodes, n)
		stack = append(stack, n)
	}
	return t, nil
}

func fileSpan(src []byte) model.Span {
	end := model.Position{Line: 1, Column: 1, Offset: len(src)}
	for _, c := range src {
		if c == '\n' {
			end.Line++
			end.Column = 1
		} else if c&0xC0 != 0x80 {
			end.Column++
		}
	}
	return model.Span{Start: model.Position{Line: 1, Column: 1}, End: end}
}

// Walk visits the root's descendants in source order. Returning false from
// fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node) bool) {
	var visit func(n *Node)
	visit = func(n *Node) {
		for _, c := range n.Children {
			if fn(c) {
				visit(c)
			}
		}
	}
	visit(t.Root)
}

// Declarations returns the declarations in source order.
func (t *Tree) Declarations() []model.Declaration {
	out := make([]model.Declaration, len(t.Nodes))
	for i, n := range t.Nodes {
		out[i] = *n.Decl
	}
	return out
}

// Retained counts the nodes not removed by trimming.
func (t *Tree) Retained() int {
	count := 0
	for _, n := range t.Nodes {
		if !n.Removed {
			count++
		}
	}
	return count
}

// Reset clears all trimming state.
func (t *Tree) Reset() {
	for _, n := range t.Nodes {
		n.Removed = false
	}
}

// Check verifies the containment invariants: every child lies strictly
// inside its parent and siblings are ordered and disjoint.
func (t *Tree) Check() error {
	var check func(n *Node) error
	check = func(n *Node) error {
		for i, c := range n.Children {
			if !n.Span.Covers(c.Span) || !n.IsRoot() && n.Span == c.Span {
				return fmt.Errorf("%w: %q not inside its parent", ErrInvariant, c.Decl.Label())
			}
			if i > 0 && n.Children[i-1].Span.End.Offset > c.Span.Start.Offset {
				return fmt.Errorf("%w: %q overlaps its previous sibling", ErrInvariant, c.Decl.Label())
			}
			if c.Depth != n.Depth+1 {
				return fmt.Errorf("%w: %q has depth %d under depth %d", ErrInvariant, c.Decl.Label(), c.Depth, n.Depth)
			}
			if err := check(c); err != nil {
				return err
			}
		}
		return nil
	}
	return check(t.Root)
}
