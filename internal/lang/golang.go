package lang

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/parse"
)

func init() {
	grammar := golang.GetLanguage()
	mustAdd(&Adapter{
		Name:       "go",
		Aliases:    []string{"golang"},
		Extensions: []string{".go"},
		Scanner:    parse.Scanner(grammar),
		Recognizer: TreeRecognizer{Grammar: grammar, Walk: walkGo},
	})
}

func goVisibility(name string) model.Visibility {
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		return model.Public
	}
	return model.Private
}

type goWalker struct {
	walker
}

func walkGo(src []byte, root *sitter.Node) []model.Declaration {
	w := &goWalker{walker{src: src}}
	w.each(root, 0, w.item)
	return w.decls
}

func (w *goWalker) item(it parse.Item) bool {
	n := it.Node
	switch n.Type() {
	case "import_declaration":
	case "package_clause":
		d := model.Declaration{
			Kind:       model.Module,
			Doc:        it.Doc,
			Signature:  parse.Header(n, nil, w.src),
			Span:       it.Span(),
			Visibility: model.Public,
		}
		if n.NamedChildCount() > 0 {
			d.Name = w.text(n.NamedChild(0))
		} else {
			d.Kind = model.Other
			d.Warn("package clause without a name")
		}
		w.add(d)
	case "function_declaration", "method_declaration":
		d := model.Declaration{
			Kind:      model.Function,
			Doc:       it.Doc,
			Signature: parse.Header(n, n.ChildByFieldName("body"), w.src),
			Span:      it.Span(),
		}
		if r := n.ChildByFieldName("receiver"); r != nil {
			d.Assoc.Target = typeName(r, w.src)
		}
		if name := n.ChildByFieldName("name"); name != nil {
			d.Name = w.text(name)
		} else {
			d.Kind = model.Other
			d.Warn("function without a name")
		}
		d.Visibility = goVisibility(d.Name)
		w.add(d)
	case "type_declaration", "const_declaration", "var_declaration":
		w.group(it)
	case "type_spec", "type_alias", "const_spec", "var_spec":
		// a spec of a group whose parentheses never closed
		w.spec(specKeyword[n.Type()], n, n, it.Doc, it.Span())
	default:
		return false
	}
	return true
}

var specKeyword = map[string]string{
	"type_spec":  "type",
	"type_alias": "type",
	"const_spec": "const",
	"var_spec":   "var",
}

// group maps type, const and var declarations. In the parenthesized form
// each spec is its own declaration with its own doc; otherwise the single
// spec takes the span and doc of the whole declaration.
func (w *goWalker) group(it parse.Item) {
	n := it.Node
	keyword := strings.TrimSuffix(n.Type(), "_declaration")
	container := n
	if list := firstOfType(n, "var_spec_list"); list != nil {
		container = list
	}
	if firstOfType(container, "(") == nil {
		for i := 0; i < int(container.NamedChildCount()); i++ {
			if spec := container.NamedChild(i); !parse.IsComment(spec) {
				w.spec(keyword, spec, n, it.Doc, it.Span())
				return
			}
		}
		return
	}
	w.each(container, 0, func(s parse.Item) bool {
		switch s.Node.Type() {
		case "type_spec", "type_alias", "const_spec", "var_spec":
			w.spec(keyword, s.Node, s.Node, s.Doc, s.Span())
			return true
		}
		return false
	})
}

// spec maps one spec. head is the node the signature text starts at: the
// whole declaration in the single form, the spec node alone in a group.
func (w *goWalker) spec(keyword string, spec, head *sitter.Node, doc string, span model.Span) {
	d := model.Declaration{Doc: doc, Span: span}
	prefix := ""
	if head == spec {
		prefix = keyword + " "
	}
	if name := spec.ChildByFieldName("name"); name != nil {
		d.Name = w.text(name)
	}
	d.Visibility = goVisibility(d.Name)

	var members func(body *sitter.Node, parent string)
	var boundary *sitter.Node
	switch spec.Type() {
	case "type_spec", "type_alias":
		d.Kind = model.TypeAlias
		if typ := spec.ChildByFieldName("type"); typ != nil && spec.Type() == "type_spec" {
			switch typ.Type() {
			case "struct_type":
				d.Kind = model.Struct
				boundary = firstOfType(typ, "field_declaration_list")
				members = w.fields
			case "interface_type":
				d.Kind = model.Trait
				boundary = firstOfType(typ, "{")
				members = w.methods
			}
		}
	default:
		d.Kind = model.Const
		if keyword == "var" {
			d.AddAttribute("var")
		}
		boundary = firstOfType(spec, "=")
	}
	d.Signature = prefix + parse.Header(head, boundary, w.src)
	if d.Name == "" {
		d.Warn("%s without a name", keyword)
		d.Kind = model.Other
		members = nil
	}
	w.add(d)
	if members != nil {
		members(spec.ChildByFieldName("type"), d.Name)
	}
}

func (w *goWalker) fields(typ *sitter.Node, parent string) {
	w.each(firstOfType(typ, "field_declaration_list"), 1, func(it parse.Item) bool {
		if it.Node.Type() != "field_declaration" {
			return false
		}
		d := model.Declaration{
			Kind:      model.Field,
			Doc:       it.Doc,
			Signature: parse.CollapseWhitespace(w.text(it.Node)),
			Span:      it.Span(),
			Depth:     1,
			Assoc:     model.Associations{Parent: parent},
		}
		if name := it.Node.ChildByFieldName("name"); name != nil {
			d.Name = w.text(name)
		} else {
			// embedded type
			d.Name = typeName(it.Node.ChildByFieldName("type"), w.src)
		}
		d.Visibility = goVisibility(d.Name)
		w.add(d)
		return true
	})
}

func (w *goWalker) methods(typ *sitter.Node, parent string) {
	w.each(typ, 1, func(it parse.Item) bool {
		d := model.Declaration{
			Kind:      model.TraitMethodSignature,
			Doc:       it.Doc,
			Signature: parse.CollapseWhitespace(w.text(it.Node)),
			Span:      it.Span(),
			Depth:     1,
			Assoc:     model.Associations{Parent: parent},
		}
		switch it.Node.Type() {
		case "method_elem", "method_spec":
			if name := it.Node.ChildByFieldName("name"); name != nil {
				d.Name = w.text(name)
			}
		case "type_elem", "constraint_elem", "interface_type_name":
			// embedded interface or type set
			d.Kind = model.Field
			d.Name = typeName(it.Node, w.src)
		default:
			return false
		}
		d.Visibility = goVisibility(d.Name)
		w.add(d)
		return true
	})
}

// firstOfType returns the first child of n with the given node type.
func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && c.Type() == typ {
			return c
		}
	}
	return nil
}
