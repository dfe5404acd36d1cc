// Package parse runs tree-sitter over a source file and offers the node
// helpers the language recognizers share.
package parse

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/filemap/internal/model"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Parse parses src with grammar and hands the root of the syntax tree to
// visit. The tree is freed when visit returns, so visit must not keep
// nodes. Empty input is not parsed and visit is not called.
func Parse(ctx context.Context, grammar *sitter.Language, src []byte, visit func(root *sitter.Node)) error {
	if len(src) == 0 {
		return nil
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return err
	}
	defer tree.Close()

	visit(tree.RootNode())
	return nil
}

// NodeText returns the source text of node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Header returns the collapsed text of node up to the start of boundary,
// typically its body. A nil boundary yields the whole node.
func Header(node, boundary *sitter.Node, source []byte) string {
	end := node.EndByte()
	if boundary != nil && boundary.StartByte() >= node.StartByte() && boundary.StartByte() < end {
		end = boundary.StartByte()
	}
	return CollapseWhitespace(string(source[node.StartByte():end]))
}

// Position converts a tree-sitter point to a 1-based position.
func Position(p sitter.Point, offset uint32) model.Position {
	return model.Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Offset: int(offset)}
}

// Span returns the source range of node.
func Span(node *sitter.Node) model.Span {
	return Between(node, node)
}

// Between returns the range from the start of first to the end of last.
func Between(first, last *sitter.Node) model.Span {
	return model.Span{
		Start: Position(first.StartPoint(), first.StartByte()),
		End:   Position(last.EndPoint(), last.EndByte()),
	}
}

// LastRow returns the 0-based row holding the last character of node.
// Line comments that swallow their newline end at column 0 of the next row.
func LastRow(node *sitter.Node) uint32 {
	start, end := node.StartPoint(), node.EndPoint()
	if end.Column == 0 && end.Row > start.Row {
		return end.Row - 1
	}
	return end.Row
}

// IsComment reports whether node is a comment in any of the grammars.
func IsComment(node *sitter.Node) bool {
	switch node.Type() {
	case "comment", "line_comment", "block_comment":
		return true
	}
	return false
}

// Errors returns the spans tree-sitter marked as ERROR or MISSING.
func Errors(root *sitter.Node) []model.Span {
	if root == nil || !root.HasError() {
		return nil
	}
	var spans []model.Span
	collectErrors(root, &spans)
	return spans
}

func collectErrors(node *sitter.Node, spans *[]model.Span) {
	if node.IsMissing() || node.IsError() {
		*spans = append(*spans, Span(node))
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && (child.HasError() || child.IsMissing()) {
			collectErrors(child, spans)
		}
	}
}

// CommentText strips comment markers from a block of comment nodes.
func CommentText(comments []*sitter.Node, source []byte) string {
	var lines []string
	for _, c := range comments {
		text := strings.TrimSpace(NodeText(c, source))
		if strings.HasPrefix(text, "/*") {
			for _, p := range []string{"/**", "/*!", "/*"} {
				if strings.HasPrefix(text, p) {
					text = text[len(p):]
					break
				}
			}
			text = strings.TrimSuffix(text, "*/")
			for _, l := range strings.Split(text, "\n") {
				l = strings.TrimSpace(l)
				lines = append(lines, strings.TrimSpace(strings.TrimPrefix(l, "*")))
			}
			continue
		}
		if strings.HasPrefix(text, "=begin") {
			text = strings.TrimSuffix(strings.TrimPrefix(text, "=begin"), "=end")
			for _, l := range strings.Split(text, "\n") {
				lines = append(lines, strings.TrimSpace(l))
			}
			continue
		}
		for _, p := range []string{"///", "//!", "//", "#"} {
			if strings.HasPrefix(text, p) {
				text = text[len(p):]
				break
			}
		}
		lines = append(lines, strings.TrimSpace(text))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
