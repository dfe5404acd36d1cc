// Package ranking scores declarations by importance and trims a symbol tree
// to a size budget.
package ranking

import (
	"container/heap"
	"fmt"

	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/tree"
)

// Unit is what a budget counts.
type Unit int

const (
	Lines Unit = iota + 1
	Chars
)

func (u Unit) String() string {
	switch u {
	case Lines:
		return "lines"
	case Chars:
		return "chars"
	default:
		return "none"
	}
}

// ParseUnit converts "lines" or "chars" to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "lines", "line":
		return Lines, nil
	case "chars", "char", "characters":
		return Chars, nil
	}
	return 0, fmt.Errorf("unknown budget unit %q (want lines or chars)", s)
}

// Budget caps the rendered size of a map.
type Budget struct {
	Unit Unit `json:"unit" yaml:"unit"`
	Max  int  `json:"max" yaml:"max"`
}

// NoBudget disables trimming.
var NoBudget = Budget{}

// Enabled reports whether b limits anything.
func (b Budget) Enabled() bool {
	return b.Unit != 0 && b.Max > 0
}

func (b Budget) String() string {
	if !b.Enabled() {
		return "unlimited"
	}
	return fmt.Sprintf("%d %s", b.Max, b.Unit)
}

// LinesBudget returns a budget of n rendered lines.
func LinesBudget(n int) Budget { return Budget{Unit: Lines, Max: n} }

// CharsBudget returns a budget of n rendered characters.
func CharsBudget(n int) Budget { return Budget{Unit: Chars, Max: n} }

// Layout reports rendered lengths in characters, excluding line breaks.
// Every node line must be at least as long as a marker at the same depth.
type Layout interface {
	Header(t *tree.Tree) int
	Line(n *tree.Node) int
	Marker(depth int) int
}

var kindWeights = map[model.Kind]int{
	model.Module:               9,
	model.Trait:                8,
	model.Struct:               8,
	model.Enum:                 8,
	model.ImplBlock:            7,
	model.TypeAlias:            6,
	model.Function:             6,
	model.TraitMethodSignature: 5,
	model.Const:                4,
	model.Field:                3,
	model.EnumVariant:          3,
	model.MacroInvocation:      2,
	model.Other:                1,
}

// KindWeight returns the importance of a declaration kind, 0 to 9.
func KindWeight(k model.Kind) int {
	return kindWeights[k]
}

// Score ranks a declaration for trimming; higher survives longer. Depth
// dominates, then visibility, then kind.
func Score(d *model.Declaration) int {
	return -d.Depth*100 + int(d.Visibility)*10 + KindWeight(d.Kind)
}

// Result summarizes a trim.
type Result struct {
	Removed    int
	Size       int
	Infeasible bool
}

// Size returns the rendered size of t's retained nodes in unit.
func Size(t *tree.Tree, unit Unit, layout Layout) int {
	s := sizer{unit: unit, layout: layout}
	total := s.line(layout.Header(t))
	var visit func(n *tree.Node)
	visit = func(n *tree.Node) {
		inRun := false
		for _, c := range n.Children {
			if c.Removed {
				if !inRun {
					total += s.line(layout.Marker(c.Depth))
				}
				inRun = true
				continue
			}
			inRun = false
			total += s.line(layout.Line(c))
			visit(c)
		}
	}
	visit(t.Root)
	return total
}

type sizer struct {
	unit   Unit
	layout Layout
}

func (s sizer) line(n int) int {
	if s.unit == Chars {
		return n + 1
	}
	return 1
}

// Trim marks the lowest-scored nodes of t as removed until its rendered size
// fits b. Only leaves, or nodes whose children are all removed, are
// removable, so the retained set is always closed under ancestors. Removal
// order does not depend on the budget: a smaller budget removes a superset
// of what a larger one removes. When even an empty map does not fit, every
// node is removed and Infeasible is set.
func Trim(t *tree.Tree, b Budget, layout Layout) Result {
	if !b.Enabled() {
		return Result{Size: Size(t, Lines, layout)}
	}
	s := sizer{unit: b.Unit, layout: layout}
	size := Size(t, b.Unit, layout)
	res := Result{Size: size}
	if size <= b.Max {
		return res
	}

	pending := make(map[*tree.Node]int, len(t.Nodes))
	slot := make(map[*tree.Node]int, len(t.Nodes))
	q := &queue{}
	for _, n := range t.Nodes {
		for i, c := range n.Children {
			slot[c] = i
		}
		if n.Removed {
			continue
		}
		live := 0
		for _, c := range n.Children {
			if !c.Removed {
				live++
			}
		}
		pending[n] = live
		if live == 0 {
			heap.Push(q, candidate{node: n, score: Score(n.Decl)})
		}
	}

	for i, c := range t.Root.Children {
		slot[c] = i
	}

	for q.Len() > 0 && size > b.Max {
		n := heap.Pop(q).(candidate).node
		size += removalDelta(n, slot[n], s)
		n.Removed = true
		res.Removed++

		p := n.Parent
		if p.IsRoot() {
			continue
		}
		pending[p]--
		if pending[p] == 0 {
			heap.Push(q, candidate{node: p, score: Score(p.Decl)})
		}
	}
	res.Size = size
	res.Infeasible = size > b.Max
	return res
}

// removalDelta is the size change from removing n, which must have no
// retained children. Its line goes away, the marker for its children goes
// away, and it joins or bridges the runs of removed siblings around it.
func removalDelta(n *tree.Node, i int, s sizer) int {
	delta := -s.line(s.layout.Line(n))
	if len(n.Children) > 0 {
		delta -= s.line(s.layout.Marker(n.Depth + 1))
	}
	siblings := n.Parent.Children
	markers := 1
	if i > 0 && siblings[i-1].Removed {
		markers--
	}
	if i+1 < len(siblings) && siblings[i+1].Removed {
		markers--
	}
	return delta + markers*s.line(s.layout.Marker(n.Depth))
}

type candidate struct {
	node  *tree.Node
	score int
}

// queue is a min-heap of removable nodes. Ties go to the later node so that
// earlier declarations are kept.
type queue []candidate

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].score != q[j].score {
		return q[i].score < q[j].score
	}
	return q[i].node.Index > q[j].node.Index
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(candidate)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	*q = old[:n-1]
	return c
}
