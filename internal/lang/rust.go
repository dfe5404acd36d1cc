package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/parse"
)

func init() {
	grammar := rust.GetLanguage()
	mustAdd(&Adapter{
		Name:       "rust",
		Aliases:    []string{"rs"},
		Extensions: []string{".rs"},
		Scanner:    parse.Scanner(grammar),
		Recognizer: TreeRecognizer{Grammar: grammar, Walk: walkRust},
	})
}

// rustScope describes the container items are found in.
type rustScope struct {
	kind model.Kind // Trait, ImplBlock, Module or "" for the file
	name string
	vis  model.Visibility
}

type rustWalker struct {
	walker
}

func walkRust(src []byte, root *sitter.Node) []model.Declaration {
	w := &rustWalker{walker{src: src, isPrefix: isRustAttribute}}
	w.items(root, 0, rustScope{})
	return w.decls
}

func isRustAttribute(n *sitter.Node) bool {
	return n.Type() == "attribute_item"
}

func (w *rustWalker) items(container *sitter.Node, depth int, scope rustScope) {
	w.each(container, depth, func(it parse.Item) bool {
		return w.item(it, depth, scope)
	})
}

// base fills in what every item shares: doc, attributes, visibility and
// the span starting at the first attribute.
func (w *rustWalker) base(it parse.Item) model.Declaration {
	d := model.Declaration{Doc: it.Doc, Span: it.Span(), Visibility: model.Private}
	for _, a := range it.Prefix {
		d.AddAttribute(parse.CollapseWhitespace(w.text(a)))
	}
	for i := 0; i < int(it.Node.ChildCount()); i++ {
		c := it.Node.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "visibility_modifier":
			vis := parse.CollapseWhitespace(w.text(c))
			d.AddAttribute(vis)
			d.Visibility = model.Default
			if vis == "pub" {
				d.Visibility = model.Public
			}
		case "function_modifiers":
			for j := 0; j < int(c.ChildCount()); j++ {
				d.AddAttribute(parse.CollapseWhitespace(w.text(c.Child(j))))
			}
		}
	}
	return d
}

func (w *rustWalker) item(it parse.Item, depth int, scope rustScope) bool {
	n := it.Node
	if n.Type() == "expression_statement" && n.NamedChildCount() == 1 && n.NamedChild(0).Type() == "macro_invocation" {
		n = n.NamedChild(0)
		it.Node = n
	}
	switch n.Type() {
	case "use_declaration", "extern_crate_declaration", "inner_attribute_item", "empty_statement":
		return true
	case "function_item", "function_signature_item":
		w.function(it, depth, scope)
	case "struct_item", "union_item":
		w.adt(it, depth, model.Struct)
	case "enum_item":
		w.adt(it, depth, model.Enum)
	case "trait_item":
		w.trait(it, depth)
	case "impl_item":
		w.impl(it, depth)
	case "mod_item", "foreign_mod_item":
		w.module(it, depth)
	case "type_item", "associated_type":
		d := w.member(it, depth, scope, model.TypeAlias)
		d.Signature = strings.TrimSuffix(parse.Header(n, nil, w.src), ";")
		w.named(d, n)
	case "const_item", "static_item":
		d := w.member(it, depth, scope, model.Const)
		d.Signature = strings.TrimSuffix(parse.Header(n, n.ChildByFieldName("value"), w.src), ";")
		d.Signature = strings.TrimSpace(strings.TrimSuffix(d.Signature, "="))
		w.named(d, n)
	case "macro_definition":
		d := w.member(it, depth, scope, model.MacroInvocation)
		d.Signature = "macro_rules!"
		if name := n.ChildByFieldName("name"); name != nil {
			d.Name = w.text(name)
			d.Signature += " " + d.Name
		}
		w.add(d)
	case "macro_invocation":
		d := w.member(it, depth, scope, model.MacroInvocation)
		if m := n.ChildByFieldName("macro"); m != nil {
			d.Name = w.text(m)
			if i := strings.LastIndex(d.Name, "::"); i >= 0 {
				d.Name = d.Name[i+2:]
			}
			d.Signature = parse.CollapseWhitespace(w.text(m)) + "!"
		}
		w.add(d)
	default:
		return false
	}
	return true
}

// member starts a declaration that may live in a trait or impl body.
func (w *rustWalker) member(it parse.Item, depth int, scope rustScope, kind model.Kind) model.Declaration {
	d := w.base(it)
	d.Kind = kind
	d.Depth = depth
	switch scope.kind {
	case model.Trait:
		d.Assoc.Parent = scope.name
		if d.Visibility == model.Private {
			d.Visibility = scope.vis
		}
	case model.ImplBlock:
		d.Assoc.Parent = scope.name
	}
	return d
}

// named emits d under the name field of n, or as other when n has none.
func (w *rustWalker) named(d model.Declaration, n *sitter.Node) model.Declaration {
	if name := n.ChildByFieldName("name"); name != nil {
		d.Name = w.text(name)
	} else {
		d.Warn("%s without a name", d.Kind)
		d.Kind = model.Other
	}
	w.add(d)
	return d
}

func (w *rustWalker) function(it parse.Item, depth int, scope rustScope) {
	kind := model.Function
	if scope.kind == model.Trait {
		kind = model.TraitMethodSignature
	}
	d := w.member(it, depth, scope, kind)
	d.Signature = strings.TrimSuffix(parse.Header(it.Node, it.Node.ChildByFieldName("body"), w.src), ";")
	w.named(d, it.Node)
}

// adt maps structs, unions and enums along with their fields or variants.
func (w *rustWalker) adt(it parse.Item, depth int, kind model.Kind) {
	n := it.Node
	d := w.base(it)
	d.Kind = kind
	d.Depth = depth
	body := n.ChildByFieldName("body")
	if body != nil && body.Type() == "ordered_field_declaration_list" {
		d.Signature = strings.TrimSuffix(parse.Header(n, nil, w.src), ";")
		body = nil
	} else {
		d.Signature = strings.TrimSuffix(parse.Header(n, body, w.src), ";")
	}
	d = w.named(d, n)
	if d.Kind == model.Other || body == nil {
		return
	}
	w.each(body, depth+1, func(c parse.Item) bool {
		switch c.Node.Type() {
		case "field_declaration":
			f := w.base(c)
			f.Kind = model.Field
			f.Depth = depth + 1
			f.Signature = parse.CollapseWhitespace(w.text(c.Node))
			f.Assoc.Parent = d.Name
			w.named(f, c.Node)
		case "enum_variant":
			v := w.base(c)
			v.Kind = model.EnumVariant
			v.Depth = depth + 1
			v.Visibility = d.Visibility
			v.Signature = parse.CollapseWhitespace(w.text(c.Node))
			v.Assoc.Parent = d.Name
			w.named(v, c.Node)
		default:
			return false
		}
		return true
	})
}

func (w *rustWalker) trait(it parse.Item, depth int) {
	n := it.Node
	body := n.ChildByFieldName("body")
	d := w.base(it)
	d.Kind = model.Trait
	d.Depth = depth
	d.Signature = parse.Header(n, body, w.src)
	d = w.named(d, n)
	if body != nil {
		w.items(body, depth+1, rustScope{kind: model.Trait, name: d.Name, vis: d.Visibility})
	}
}

func (w *rustWalker) impl(it parse.Item, depth int) {
	n := it.Node
	body := n.ChildByFieldName("body")
	d := w.base(it)
	d.Kind = model.ImplBlock
	d.Depth = depth
	d.Signature = strings.TrimSuffix(parse.Header(n, body, w.src), ";")
	if t := n.ChildByFieldName("trait"); t != nil {
		d.Assoc.Trait = typeName(t, w.src)
	}
	if t := n.ChildByFieldName("type"); t != nil {
		d.Assoc.Target = typeName(t, w.src)
	}
	if d.Assoc.Target == "" {
		d.Warn("impl without a target type")
	}
	w.add(d)
	if body != nil {
		w.items(body, depth+1, rustScope{kind: model.ImplBlock, name: d.Assoc.Target})
	}
}

func (w *rustWalker) module(it parse.Item, depth int) {
	n := it.Node
	body := n.ChildByFieldName("body")
	d := w.base(it)
	d.Kind = model.Module
	d.Depth = depth
	d.Signature = strings.TrimSuffix(parse.Header(n, body, w.src), ";")
	if name := n.ChildByFieldName("name"); name != nil {
		d.Name = w.text(name)
	}
	w.add(d)
	if body != nil {
		w.items(body, depth+1, rustScope{kind: model.Module, name: d.Name})
	}
}
