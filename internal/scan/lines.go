package scan

import (
	"bytes"
	"strings"

	"github.com/phobologic/filemap/internal/model"
)

// LineScanner produces one Line token per source line for line-oriented
// formats. Lines inside fenced blocks are tagged String so recognizers skip
// them; a fence that is never closed is tagged Unrecognized and the lines
// after it are scanned as ordinary text.
type LineScanner struct {
	Fences []string
}

// Scan returns a lazy stream of annotated lines.
func (ls LineScanner) Scan(src []byte) *Stream {
	var (
		off   int
		line  = 1
		fence string
	)
	return NewStream(func() Token {
		if off >= len(src) {
			p := model.Position{Line: line, Column: 1, Offset: len(src)}
			return Token{Kind: EOF, Start: p, End: p}
		}
		end := bytes.IndexByte(src[off:], '\n')
		next := len(src)
		if end >= 0 {
			next = off + end + 1
			end = off + end
		} else {
			end = len(src)
		}
		text := strings.TrimRight(string(src[off:end]), "\r")
		start := model.Position{Line: line, Column: 1, Offset: off}
		stop := model.Position{Line: line, Column: 1 + len(text), Offset: off + len(text)}

		kind := Line
		trimmed := strings.TrimSpace(text)
		switch {
		case fence != "":
			kind = String
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
		default:
			if f := ls.fenceOf(trimmed); f != "" {
				if closes(src[next:], f) {
					fence = f
					kind = String
				} else {
					kind = Unrecognized
				}
			}
		}

		off = next
		line++
		return Token{Kind: kind, Text: text, Start: start, End: stop}
	})
}

func (ls LineScanner) fenceOf(trimmed string) string {
	for _, f := range ls.Fences {
		if strings.HasPrefix(trimmed, f) {
			return f
		}
	}
	return ""
}

func closes(rest []byte, fence string) bool {
	for _, l := range strings.Split(string(rest), "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), fence) {
			return true
		}
	}
	return false
}
