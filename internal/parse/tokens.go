package parse

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/scan"
)

// Scanner returns a scan.Scanner that lists the leaves of the syntax tree
// as tokens. Literals and comments stay whole, an ERROR node becomes one
// Unrecognized token and tokens the parser inserted are left out.
func Scanner(grammar *sitter.Language) scan.Scanner {
	return scan.ScannerFunc(func(src []byte) *scan.Stream {
		var toks []scan.Token
		_ = Parse(context.Background(), grammar, src, func(root *sitter.Node) {
			toks = Tokens(root, src)
		})
		toks = append(toks, eofToken(src))
		i := 0
		return scan.NewStream(func() scan.Token {
			t := toks[i]
			if i < len(toks)-1 {
				i++
			}
			return t
		})
	})
}

// Tokens flattens the tree under root into source-ordered tokens.
func Tokens(root *sitter.Node, source []byte) []scan.Token {
	var toks []scan.Token
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.IsMissing() || n.EndByte() == n.StartByte() {
			return
		}
		if kind, ok := leafKind(n, source); ok {
			toks = append(toks, scan.Token{
				Kind:  kind,
				Text:  NodeText(n, source),
				Start: Position(n.StartPoint(), n.StartByte()),
				End:   Position(n.EndPoint(), n.EndByte()),
			})
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil {
				visit(c)
			}
		}
	}
	visit(root)
	return toks
}

// leafKind classifies n when it is reported as a single token.
func leafKind(n *sitter.Node, source []byte) (scan.Kind, bool) {
	typ := n.Type()
	switch {
	case n.IsError():
		return scan.Unrecognized, true
	case IsComment(n):
		if strings.HasPrefix(NodeText(n, source), "/*") {
			return scan.BlockComment, true
		}
		return scan.LineComment, true
	case typ == "char_literal" || typ == "rune_literal" || typ == "character":
		return scan.Char, true
	case strings.Contains(typ, "string") || typ == "heredoc_body" || typ == "regex":
		return scan.String, true
	case typ == "lifetime":
		return scan.Lifetime, true
	case strings.Contains(typ, "integer") || strings.Contains(typ, "float") ||
		strings.HasSuffix(typ, "int_literal") || typ == "imaginary_literal":
		return scan.Number, true
	case n.ChildCount() > 0:
		return 0, false
	case n.IsNamed():
		return scan.Ident, true
	}
	text := NodeText(n, source)
	if strings.TrimSpace(text) == "" {
		// statement terminators
		return scan.Newline, true
	}
	switch text {
	case "(", "[", "{":
		return scan.Open, true
	case ")", "]", "}":
		return scan.Close, true
	}
	if c := text[0]; c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
		return scan.Ident, true
	}
	return scan.Punct, true
}

func eofToken(src []byte) scan.Token {
	p := model.Position{Line: 1, Column: 1, Offset: len(src)}
	for _, c := range src {
		if c == '\n' {
			p.Line++
			p.Column = 1
		} else {
			p.Column++
		}
	}
	return scan.Token{Kind: scan.EOF, Start: p, End: p}
}
