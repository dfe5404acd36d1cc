package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/parse"
)

func init() {
	grammar := python.GetLanguage()
	mustAdd(&Adapter{
		Name:       "python",
		Aliases:    []string{"py"},
		Extensions: []string{".py", ".pyi"},
		Scanner:    parse.Scanner(grammar),
		Recognizer: TreeRecognizer{Grammar: grammar, Walk: walkPython},
	})
}

func pythonVisibility(name string) model.Visibility {
	switch {
	case strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__"):
		return model.Default
	case strings.HasPrefix(name, "_"):
		return model.Private
	default:
		return model.Public
	}
}

type pyWalker struct {
	walker
}

func walkPython(src []byte, root *sitter.Node) []model.Declaration {
	w := &pyWalker{walker{src: src}}
	w.items(root, 0, "")
	return w.decls
}

// items maps a module or class body. Function bodies and compound
// statements are never entered.
func (w *pyWalker) items(container *sitter.Node, depth int, class string) {
	w.each(container, depth, func(it parse.Item) bool {
		return w.item(it, depth, class)
	})
}

func (w *pyWalker) item(it parse.Item, depth int, class string) bool {
	n := it.Node
	var decorators []string
	if n.Type() == "decorated_definition" {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "decorator" {
				decorators = append(decorators, parse.CollapseWhitespace(w.text(c)))
			}
		}
		n = n.ChildByFieldName("definition")
		if n == nil {
			return false
		}
	}
	switch n.Type() {
	case "function_definition", "class_definition":
		w.definition(it, n, decorators, depth, class)
	case "expression_statement":
		if n.NamedChildCount() != 1 || n.NamedChild(0).Type() != "assignment" {
			return false
		}
		return w.assignment(it, n.NamedChild(0), depth, class)
	case "import_statement", "import_from_statement", "future_import_statement":
	default:
		return false
	}
	return true
}

func (w *pyWalker) definition(it parse.Item, n *sitter.Node, decorators []string, depth int, class string) {
	body := n.ChildByFieldName("body")
	d := model.Declaration{
		Kind:      model.Function,
		Doc:       it.Doc,
		Signature: strings.TrimSuffix(parse.Header(n, body, w.src), ":"),
		Span:      it.Span(),
		Depth:     depth,
		Assoc:     model.Associations{Parent: class},
	}
	if n.Type() == "class_definition" {
		d.Kind = model.Struct
	}
	for _, dec := range decorators {
		d.AddAttribute(dec)
	}
	if first := n.Child(0); first != nil && first.Type() == "async" {
		d.AddAttribute("async")
	}
	if d.Doc == "" {
		d.Doc = w.docstring(body)
	}
	if name := n.ChildByFieldName("name"); name != nil {
		d.Name = w.text(name)
	} else {
		d.Warn("%s without a name", strings.TrimSuffix(n.Type(), "_definition"))
		d.Kind = model.Other
	}
	d.Visibility = pythonVisibility(d.Name)
	w.add(d)
	if d.Kind == model.Struct && body != nil {
		w.items(body, depth+1, d.Name)
	}
}

// assignment maps NAME = value and NAME: type = value. Module-level names
// become consts and class-level names fields.
func (w *pyWalker) assignment(it parse.Item, a *sitter.Node, depth int, class string) bool {
	left := a.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return false
	}
	d := model.Declaration{
		Kind:  model.Const,
		Name:  w.text(left),
		Doc:   it.Doc,
		Span:  it.Span(),
		Depth: depth,
	}
	if class != "" {
		d.Kind = model.Field
		d.Assoc.Parent = class
	}
	var boundary *sitter.Node
	if a.ChildByFieldName("type") != nil {
		boundary = firstOfType(a, "=")
	}
	d.Signature = truncate(parse.Header(a, boundary, w.src), 80)
	d.Visibility = pythonVisibility(d.Name)
	w.add(d)
	return true
}

// docstring returns the string literal opening a body, if any.
func (w *pyWalker) docstring(body *sitter.Node) string {
	if body == nil {
		return ""
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if parse.IsComment(stmt) {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 || stmt.NamedChild(0).Type() != "string" {
			return ""
		}
		return docstring(w.text(stmt.NamedChild(0)))
	}
	return ""
}

// docstring strips quotes and prefixes from a string literal.
func docstring(lit string) string {
	s := strings.TrimLeft(lit, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		lines = append(lines, strings.TrimSpace(l))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
