package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/filemap/internal/model"
)

// Item is one declaration candidate inside a container node: a child,
// the attribute-like siblings stacked on it and the comment block
// directly above them.
type Item struct {
	Node   *sitter.Node
	Prefix []*sitter.Node
	Doc    string
}

// First returns the first node of the item, its first prefix if any.
func (it Item) First() *sitter.Node {
	if len(it.Prefix) > 0 {
		return it.Prefix[0]
	}
	return it.Node
}

// Span covers the prefix and the node.
func (it Item) Span() model.Span {
	return Between(it.First(), it.Node)
}

// Items calls fn for each child of container in source order. Comments
// are folded into the Doc of the next item when they end on the line just
// above it; a comment sharing a line with the previous child is trailing
// and dropped. Children for which isPrefix reports true are stacked onto
// the next item. Anonymous tokens are skipped except inside ERROR nodes,
// where every child counts.
func Items(container *sitter.Node, source []byte, isPrefix func(*sitter.Node) bool, fn func(Item)) {
	var (
		comments []*sitter.Node
		prefix   []*sitter.Node
		prevRow  = -1
	)
	keepAnonymous := container.IsError()
	for i := 0; i < int(container.ChildCount()); i++ {
		child := container.Child(i)
		if child == nil || child.IsMissing() || child.EndByte() == child.StartByte() {
			continue
		}
		switch {
		case IsComment(child):
			if len(prefix) > 0 {
				continue
			}
			row := int(child.StartPoint().Row)
			if row == prevRow {
				comments = comments[:0]
				continue
			}
			if n := len(comments); n > 0 && row-int(LastRow(comments[n-1])) > 1 {
				comments = comments[:0]
			}
			comments = append(comments, child)
		case !child.IsNamed() && !keepAnonymous:
			prevRow = int(LastRow(child))
		case isPrefix != nil && isPrefix(child):
			prefix = append(prefix, child)
		default:
			it := Item{Node: child, Prefix: prefix}
			first := it.First()
			if n := len(comments); n > 0 && int(first.StartPoint().Row)-int(LastRow(comments[n-1])) <= 1 {
				it.Doc = CommentText(comments, source)
			}
			fn(it)
			comments, prefix = nil, nil
			prevRow = int(LastRow(child))
		}
	}
}
