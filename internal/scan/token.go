// Package scan defines the token streams that feed the declaration
// recognizers.
//
// Scanners never fail. Input they cannot make sense of (an unclosed fence,
// a region the parser rejected) becomes an Unrecognized token and scanning
// continues after it.
package scan

import (
	"fmt"

	"github.com/phobologic/filemap/internal/model"
)

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Number
	String
	Char
	Lifetime
	Punct
	Open
	Close
	LineComment
	BlockComment
	Newline
	Line
	Unrecognized
)

var kindNames = [...]string{
	EOF:          "EOF",
	Ident:        "Ident",
	Number:       "Number",
	String:       "String",
	Char:         "Char",
	Lifetime:     "Lifetime",
	Punct:        "Punct",
	Open:         "Open",
	Close:        "Close",
	LineComment:  "LineComment",
	BlockComment: "BlockComment",
	Newline:      "Newline",
	Line:         "Line",
	Unrecognized: "Unrecognized",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is one lexical unit. Text is the exact source slice.
type Token struct {
	Kind  Kind
	Text  string
	Start model.Position
	End   model.Position
}

// Span returns the token's source range.
func (t Token) Span() model.Span {
	return model.Span{Start: t.Start, End: t.End}
}

// Is reports whether t is a punctuation or delimiter token with the given text.
func (t Token) Is(text string) bool {
	return (t.Kind == Punct || t.Kind == Open || t.Kind == Close) && t.Text == text
}

// IsKeyword reports whether t is the identifier kw.
func (t Token) IsKeyword(kw string) bool {
	return t.Kind == Ident && t.Text == kw
}

// IsComment reports whether t is a line or block comment.
func (t Token) IsComment() bool {
	return t.Kind == LineComment || t.Kind == BlockComment
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text, t.Start)
}

// Scanner turns raw text into a lazy token stream.
type Scanner interface {
	Scan(src []byte) *Stream
}

// ScannerFunc adapts a function to the Scanner interface.
type ScannerFunc func(src []byte) *Stream

// Scan calls f(src).
func (f ScannerFunc) Scan(src []byte) *Stream {
	return f(src)
}
