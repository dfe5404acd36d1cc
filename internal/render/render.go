// Package render turns a trimmed symbol tree into a file map and encodes it
// as text, JSON or YAML.
package render

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/phobologic/filemap/internal/graph"
	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/tree"
)

// Ellipsis stands in for a run of removed declarations.
const Ellipsis = "..."

// Map is the rendered outline of one file.
type Map struct {
	Language         string           `json:"language" yaml:"language"`
	Entries          []Entry          `json:"entries" yaml:"entries"`
	Relations        []graph.Relation `json:"relations,omitempty" yaml:"relations,omitempty"`
	Warnings         []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Recovered        bool             `json:"recovered" yaml:"recovered"`
	BudgetInfeasible bool             `json:"budget_infeasible" yaml:"budget_infeasible"`
	Elided           int              `json:"elided" yaml:"elided"`
}

// Entry is one line of a map: a declaration or an elision marker.
type Entry struct {
	Kind         model.Kind          `json:"kind,omitempty" yaml:"kind,omitempty"`
	Name         string              `json:"name,omitempty" yaml:"name,omitempty"`
	Signature    string              `json:"signature" yaml:"signature"`
	Doc          string              `json:"doc,omitempty" yaml:"doc,omitempty"`
	Depth        int                 `json:"depth" yaml:"depth"`
	Line         int                 `json:"line,omitempty" yaml:"line,omitempty"`
	EndLine      int                 `json:"end_line,omitempty" yaml:"end_line,omitempty"`
	Visibility   string              `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Attributes   []string            `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Associations *model.Associations `json:"associations,omitempty" yaml:"associations,omitempty"`
	Warnings     []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	// Marker entries stand for Hidden removed declarations.
	Marker bool `json:"marker,omitempty" yaml:"marker,omitempty"`
	Hidden int  `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// NewEntry converts a declaration to a map entry.
func NewEntry(d *model.Declaration) Entry {
	e := Entry{
		Kind:       d.Kind,
		Name:       d.Name,
		Signature:  d.Signature,
		Doc:        d.Doc,
		Depth:      d.Depth,
		Line:       d.Span.Start.Line,
		EndLine:    d.Span.EndLine(),
		Visibility: d.Visibility.String(),
		Attributes: d.Attributes,
		Warnings:   d.Warnings,
	}
	if !d.Assoc.IsZero() {
		assoc := d.Assoc
		e.Associations = &assoc
	}
	return e
}

func marker(depth, hidden int) Entry {
	return Entry{Signature: Ellipsis, Depth: depth, Marker: true, Hidden: hidden}
}

// Build renders the retained nodes of t in source order. Each run of
// adjacent removed siblings becomes a single marker at their depth.
func Build(t *tree.Tree) *Map {
	m := &Map{Language: t.Language, Entries: []Entry{}}
	var visit func(n *tree.Node)
	visit = func(n *tree.Node) {
		var run *Entry
		for _, c := range n.Children {
			if c.Removed {
				hidden := subtreeSize(c)
				m.Elided += hidden
				if run == nil {
					m.Entries = append(m.Entries, marker(c.Depth, 0))
					run = &m.Entries[len(m.Entries)-1]
				}
				run.Hidden += hidden
				continue
			}
			run = nil
			m.Entries = append(m.Entries, NewEntry(c.Decl))
			visit(c)
		}
	}
	visit(t.Root)

	for _, n := range t.Nodes {
		for _, w := range n.Decl.Warnings {
			m.Warnings = append(m.Warnings, fmt.Sprintf("line %d: %s", n.Decl.Span.Start.Line, w))
		}
	}
	m.Recovered = len(m.Warnings) > 0
	m.Relations = graph.Relations(retained(t))
	return m
}

func retained(t *tree.Tree) []model.Declaration {
	var out []model.Declaration
	for _, n := range t.Nodes {
		if !n.Removed {
			out = append(out, *n.Decl)
		}
	}
	return out
}

func subtreeSize(n *tree.Node) int {
	size := 1
	for _, c := range n.Children {
		size += subtreeSize(c)
	}
	return size
}

// AddWarning records a file-level warning and marks the map as recovered.
func (m *Map) AddWarning(format string, args ...any) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
	m.Recovered = true
}

// SortWarnings orders warnings by their line prefix.
func (m *Map) SortWarnings() {
	sort.SliceStable(m.Warnings, func(i, j int) bool {
		return warningLine(m.Warnings[i]) < warningLine(m.Warnings[j])
	})
}

func warningLine(w string) int {
	var n int
	if _, err := fmt.Sscanf(w, "line %d:", &n); err != nil {
		return 0
	}
	return n
}

var prefixes = map[model.Kind]string{
	model.EnumVariant: "variant",
	model.Field:       "field",
	model.Other:       "unparsed",
}

// Header returns the first line of a text map.
func Header(language string) string {
	return "file: " + language
}

// FormatLine renders one entry as a text line without a line break.
func FormatLine(e Entry) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", e.Depth))
	if e.Marker {
		b.WriteString(Ellipsis)
		return b.String()
	}
	for _, a := range e.Attributes {
		if strings.HasPrefix(a, "#") || strings.HasPrefix(a, "@") {
			b.WriteString(oneLine(a))
			b.WriteByte(' ')
		}
	}
	sig := oneLine(e.Signature)
	if sig == "" {
		sig = e.Name
	}
	if p, ok := prefixes[e.Kind]; ok {
		b.WriteString(p)
		b.WriteByte(' ')
	} else if utf8.RuneCountInString(sig) < len(Ellipsis) {
		b.WriteString(string(e.Kind))
		b.WriteByte(' ')
	}
	b.WriteString(sig)
	if doc := firstLine(e.Doc); doc != "" {
		b.WriteString("  // ")
		b.WriteString(doc)
	}
	return b.String()
}

func oneLine(s string) string {
	if !strings.ContainsAny(s, "\n\r\t") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Text renders the map one entry per line under a header line.
func Text(m *Map) string {
	var b strings.Builder
	b.WriteString(Header(m.Language))
	b.WriteByte('\n')
	for _, e := range m.Entries {
		b.WriteString(FormatLine(e))
		b.WriteByte('\n')
	}
	return b.String()
}

// Layout measures text output for trimming. It satisfies ranking.Layout.
type Layout struct{}

// Header returns the length of the header line.
func (Layout) Header(t *tree.Tree) int {
	return utf8.RuneCountInString(Header(t.Language))
}

// Line returns the length of the node's rendered line.
func (Layout) Line(n *tree.Node) int {
	return utf8.RuneCountInString(FormatLine(NewEntry(n.Decl)))
}

// Marker returns the length of a marker line at depth.
func (Layout) Marker(depth int) int {
	return 2*depth + len(Ellipsis)
}
