// Package model defines the declaration types shared by every stage of the
// file map pipeline.
package model

import "fmt"

// Kind is the syntactic category of a declaration.
type Kind string

const (
	File                 Kind = "file"
	Module               Kind = "module"
	TypeAlias            Kind = "type-alias"
	Struct               Kind = "struct"
	Enum                 Kind = "enum"
	EnumVariant          Kind = "enum-variant"
	Trait                Kind = "trait"
	TraitMethodSignature Kind = "trait-method-signature"
	ImplBlock            Kind = "impl-block"
	Function             Kind = "function"
	Const                Kind = "const"
	Field                Kind = "field"
	MacroInvocation      Kind = "macro-invocation"
	Other                Kind = "other"
)

// Kinds lists every declaration kind an adapter may emit, in display order.
var Kinds = []Kind{
	Module, TypeAlias, Struct, Enum, EnumVariant, Trait, TraitMethodSignature,
	ImplBlock, Function, Const, Field, MacroInvocation, Other,
}

// Visibility is the export level of a declaration as seen by its adapter.
type Visibility int

const (
	Private Visibility = iota
	Default
	Public
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Default:
		return "default"
	default:
		return "private"
	}
}

// MarshalText lets encoders print visibility by name.
func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Position is a location in the source text. Line and Column are 1-based;
// Offset is a 0-based byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Before reports whether p comes strictly before q.
func (p Position) Before(q Position) bool {
	return p.Offset < q.Offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open source range [Start, End).
type Span struct {
	Start Position
	End   Position
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

// Covers reports whether s contains o, allowing equal bounds.
func (s Span) Covers(o Span) bool {
	return s.Start.Offset <= o.Start.Offset && o.End.Offset <= s.End.Offset
}

// StrictlyContains reports whether s covers o and the two are not identical.
func (s Span) StrictlyContains(o Span) bool {
	return s.Covers(o) && s != o
}

// Overlaps reports whether the two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start.Offset < o.End.Offset && o.Start.Offset < s.End.Offset
}

// EndLine returns the last line the span touches.
func (s Span) EndLine() int {
	if s.End.Column == 1 && s.End.Line > s.Start.Line {
		return s.End.Line - 1
	}
	return s.End.Line
}

// Associations are name-based links from a declaration to other
// declarations in the same file. Lines are filled in by the resolver and
// stay 0 when the name is not declared locally.
type Associations struct {
	Trait      string `json:"trait,omitempty" yaml:"trait,omitempty"`
	Target     string `json:"target,omitempty" yaml:"target,omitempty"`
	Parent     string `json:"parent,omitempty" yaml:"parent,omitempty"`
	TraitLine  int    `json:"trait_line,omitempty" yaml:"trait_line,omitempty"`
	TargetLine int    `json:"target_line,omitempty" yaml:"target_line,omitempty"`
	ParentLine int    `json:"parent_line,omitempty" yaml:"parent_line,omitempty"`
}

// IsZero reports whether no association is set.
func (a Associations) IsZero() bool {
	return a.Trait == "" && a.Target == "" && a.Parent == ""
}

// Declaration is one recognized construct.
type Declaration struct {
	Kind       Kind
	Name       string
	Signature  string
	Doc        string
	Span       Span
	Depth      int
	Attributes []string
	Visibility Visibility
	Assoc      Associations
	Warnings   []string
}

// HasAttribute reports whether attr is present verbatim.
func (d *Declaration) HasAttribute(attr string) bool {
	for _, a := range d.Attributes {
		if a == attr {
			return true
		}
	}
	return false
}

// AddAttribute appends attr unless it is already present.
func (d *Declaration) AddAttribute(attr string) {
	if attr == "" || d.HasAttribute(attr) {
		return
	}
	d.Attributes = append(d.Attributes, attr)
}

// Warn records a recovery annotation.
func (d *Declaration) Warn(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// Label returns the name, falling back to the signature for anonymous
// declarations.
func (d *Declaration) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Signature
}
