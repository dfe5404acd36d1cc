package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/parse"
)

func init() {
	grammar := ruby.GetLanguage()
	mustAdd(&Adapter{
		Name:       "ruby",
		Aliases:    []string{"rb"},
		Extensions: []string{".rb"},
		Scanner:    parse.Scanner(grammar),
		Recognizer: TreeRecognizer{Grammar: grammar, Walk: walkRuby},
	})
}

// rubyScope is the class or module being walked. vis is the visibility
// set by the last bare private, protected or public.
type rubyScope struct {
	name string
	vis  model.Visibility
}

type rubyWalker struct {
	walker
}

func walkRuby(src []byte, root *sitter.Node) []model.Declaration {
	w := &rubyWalker{walker{src: src}}
	w.items(root, 0, &rubyScope{vis: model.Public})
	return w.decls
}

func (w *rubyWalker) items(container *sitter.Node, depth int, scope *rubyScope) {
	w.each(container, depth, func(it parse.Item) bool {
		return w.item(it, depth, scope)
	})
}

var rubyVisibility = map[string]model.Visibility{
	"private":   model.Private,
	"protected": model.Default,
	"public":    model.Public,
}

func (w *rubyWalker) item(it parse.Item, depth int, scope *rubyScope) bool {
	n := it.Node
	switch n.Type() {
	case "class", "module":
		w.class(it, depth)
	case "method", "singleton_method":
		w.method(it, n, depth, scope, scope.vis)
	case "identifier":
		vis, ok := rubyVisibility[w.text(n)]
		if !ok || scope.name == "" {
			return false
		}
		scope.vis = vis
	case "assignment":
		left := n.ChildByFieldName("left")
		if left == nil || left.Type() != "constant" {
			return false
		}
		d := model.Declaration{
			Kind:       model.Const,
			Name:       w.text(left),
			Doc:        it.Doc,
			Signature:  truncate(parse.CollapseWhitespace(w.text(n)), 80),
			Span:       it.Span(),
			Depth:      depth,
			Visibility: model.Public,
			Assoc:      model.Associations{Parent: scope.name},
		}
		w.add(d)
	case "call":
		return w.call(it, depth, scope)
	default:
		return false
	}
	return true
}

// className returns the constant or scoped path naming a class or module.
func (w *rubyWalker) className(n *sitter.Node) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return w.text(name)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "constant" || c.Type() == "scope_resolution" {
			return w.text(c)
		}
	}
	return ""
}

func (w *rubyWalker) class(it parse.Item, depth int) {
	n := it.Node
	d := model.Declaration{
		Kind:       model.Struct,
		Doc:        it.Doc,
		Span:       it.Span(),
		Depth:      depth,
		Visibility: model.Public,
		Name:       w.className(n),
	}
	d.Signature = "class " + d.Name
	if n.Type() == "module" {
		d.Kind = model.Module
		d.Signature = "module " + d.Name
	}
	if sc := n.ChildByFieldName("superclass"); sc != nil && sc.NamedChildCount() > 0 {
		d.Signature += " < " + parse.CollapseWhitespace(w.text(sc.NamedChild(0)))
	}
	if d.Name == "" {
		d.Warn("%s without a name", n.Type())
		d.Kind = model.Other
	}
	w.add(d)
	if d.Kind == model.Other {
		return
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		body = firstOfType(n, "body_statement")
	}
	if body != nil {
		w.items(body, depth+1, &rubyScope{name: d.Name, vis: model.Public})
	}
}

// method maps def name(params) and def self.name(params). The signature
// stops after the parameter list, or after the name when there is none.
func (w *rubyWalker) method(it parse.Item, n *sitter.Node, depth int, scope *rubyScope, vis model.Visibility) {
	d := model.Declaration{
		Kind:       model.Function,
		Doc:        it.Doc,
		Span:       it.Span(),
		Depth:      depth,
		Visibility: vis,
		Assoc:      model.Associations{Parent: scope.name},
	}
	name := n.ChildByFieldName("name")
	if name == nil {
		d.Kind = model.Other
		d.Signature = truncate(parse.CollapseWhitespace(w.text(n)), 60)
		d.Warn("method without a name")
		w.add(d)
		return
	}
	d.Name = w.text(name)
	end := name.EndByte()
	if params := n.ChildByFieldName("parameters"); params != nil {
		end = params.EndByte()
	}
	d.Signature = parse.CollapseWhitespace(string(w.src[n.StartByte():end]))
	if n.Type() == "singleton_method" {
		d.AddAttribute("static")
	}
	w.add(d)
}

// call handles attr_reader and friends, which declare fields, and
// private def ..., which declares a single method with that visibility.
func (w *rubyWalker) call(it parse.Item, depth int, scope *rubyScope) bool {
	n := it.Node
	m := n.ChildByFieldName("method")
	args := n.ChildByFieldName("arguments")
	if m == nil || args == nil || n.ChildByFieldName("receiver") != nil {
		return false
	}
	verb := w.text(m)
	if vis, ok := rubyVisibility[verb]; ok {
		if args.NamedChildCount() != 1 {
			return false
		}
		def := args.NamedChild(0)
		if def.Type() != "method" && def.Type() != "singleton_method" {
			return false
		}
		w.method(it, def, depth, scope, vis)
		return true
	}
	if !strings.HasPrefix(verb, "attr_") || scope.name == "" {
		return false
	}
	first := true
	for i := 0; i < int(args.NamedChildCount()); i++ {
		sym := args.NamedChild(i)
		if sym.Type() != "simple_symbol" {
			continue
		}
		d := model.Declaration{
			Kind:       model.Field,
			Name:       strings.TrimPrefix(w.text(sym), ":"),
			Doc:        it.Doc,
			Signature:  verb + " " + w.text(sym),
			Span:       parse.Span(sym),
			Depth:      depth,
			Visibility: scope.vis,
			Assoc:      model.Associations{Parent: scope.name},
		}
		if first {
			d.Span = parse.Between(n, sym)
			first = false
		} else {
			d.Doc = ""
		}
		w.add(d)
	}
	return true
}
