package lang

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/parse"
)

// walker collects the declarations of one syntax tree.
type walker struct {
	src      []byte
	decls    []model.Declaration
	isPrefix func(*sitter.Node) bool
}

func (w *walker) text(n *sitter.Node) string {
	return parse.NodeText(n, w.src)
}

func (w *walker) add(d model.Declaration) {
	w.decls = append(w.decls, d)
}

// each hands the items of container to item. ERROR children, and an ERROR
// container itself, go through region instead.
func (w *walker) each(container *sitter.Node, depth int, item func(parse.Item) bool) {
	if container == nil {
		return
	}
	if container.IsError() {
		w.region(container, depth, item)
		return
	}
	parse.Items(container, w.src, w.isPrefix, func(it parse.Item) {
		if it.Node.IsError() {
			w.region(it.Node, depth, item, it.Prefix...)
			return
		}
		item(it)
	})
}

// region maps the children of an ERROR node. Children item recognizes
// become declarations as usual; every stretch of the rest becomes a single
// other declaration covering just that stretch. lead holds attributes
// stacked on the ERROR node, which open the first stretch.
func (w *walker) region(e *sitter.Node, depth int, item func(parse.Item) bool, lead ...*sitter.Node) {
	run := append([]*sitter.Node(nil), lead...)
	flush := func() {
		if len(run) == 0 {
			return
		}
		first, last := run[0], run[len(run)-1]
		d := model.Declaration{
			Kind:      model.Other,
			Depth:     depth,
			Span:      parse.Between(first, last),
			Signature: truncate(parse.CollapseWhitespace(string(w.src[first.StartByte():last.EndByte()])), 60),
		}
		d.Warn("unparsed input at %s", d.Span.Start)
		w.add(d)
		run = nil
	}
	parse.Items(e, w.src, w.isPrefix, func(it parse.Item) {
		switch {
		case it.Node.IsError():
			run = append(run, it.Prefix...)
			flush()
			w.region(it.Node, depth, item)
		case it.Node.IsNamed() && w.recognize(it, item, flush):
		default:
			run = append(run, it.Prefix...)
			run = append(run, it.Node)
		}
	})
	flush()
}

// recognize offers it to item. When item takes it, the pending stretch is
// flushed ahead of what item emitted so declarations stay in source order.
func (w *walker) recognize(it parse.Item, item func(parse.Item) bool, flush func()) bool {
	mark := len(w.decls)
	if !item(it) {
		w.decls = w.decls[:mark]
		return false
	}
	emitted := append([]model.Declaration(nil), w.decls[mark:]...)
	w.decls = w.decls[:mark]
	flush()
	w.decls = append(w.decls, emitted...)
	return true
}

// truncate shortens s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// typeName returns the bare name of a type expression, dropping pointers,
// references, lifetimes, generic arguments and path qualifiers:
// &'a foo::Bar<T> and *pkg.Bar[T] both give Bar.
func typeName(n *sitter.Node, src []byte) string {
	for n != nil {
		switch n.Type() {
		case "type_identifier", "identifier", "primitive_type", "constant", "field_identifier":
			return parse.NodeText(n, src)
		case "generic_type", "reference_type", "pointer_type", "parameter_declaration", "qualified_type",
			"scoped_type_identifier", "scope_resolution", "abstract_type", "dynamic_type":
			next := n.ChildByFieldName("type")
			if next == nil {
				next = n.ChildByFieldName("name")
			}
			if next == nil && n.NamedChildCount() > 0 {
				next = n.NamedChild(int(n.NamedChildCount()) - 1)
			}
			n = next
		case "parameter_list", "type_elem", "parenthesized_type":
			if n.NamedChildCount() == 0 {
				return ""
			}
			n = n.NamedChild(0)
		default:
			return parse.CollapseWhitespace(parse.NodeText(n, src))
		}
	}
	return ""
}
