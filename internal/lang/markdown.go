package lang

import (
	"strings"

	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/scan"
)

func init() {
	mustAdd(&Adapter{
		Name:       "markdown",
		Aliases:    []string{"md"},
		Extensions: []string{".md", ".markdown"},
		Scanner:    scan.LineScanner{Fences: []string{"```", "~~~"}},
		Recognizer: RecognizerFunc(recognizeMarkdown),
	})
}

type mdHeading struct {
	index int
	level int
}

// recognizeMarkdown maps ATX and setext headings to nested module
// declarations. A heading's section runs until the next heading of the same
// or a higher level.
func recognizeMarkdown(_ []byte, toks *scan.Stream) []model.Declaration {
	var (
		decls   []model.Declaration
		open    []mdHeading
		prevEnd model.Position
		docFor  = -1
	)
	closeTo := func(level int) {
		for len(open) > 0 && open[len(open)-1].level >= level {
			decls[open[len(open)-1].index].Span.End = prevEnd
			open = open[:len(open)-1]
		}
	}

	for {
		t := toks.Next()
		if t.Kind == scan.EOF {
			prevEnd = t.Start
			break
		}
		switch t.Kind {
		case scan.Unrecognized:
			d := model.Declaration{
				Kind:      model.Other,
				Signature: strings.TrimSpace(t.Text),
				Span:      t.Span(),
				Depth:     len(open),
			}
			d.Warn("unterminated code fence at %s", t.Start)
			decls = append(decls, d)
			prevEnd = t.End
			continue
		case scan.String:
			prevEnd = t.End
			continue
		}

		level, text := atxHeading(t.Text)
		last := t
		if level == 0 {
			if next := toks.Peek(); next.Kind == scan.Line && strings.TrimSpace(t.Text) != "" {
				level = setextLevel(next.Text)
				if level > 0 {
					text = strings.TrimSpace(t.Text)
					last = toks.Next()
				}
			}
		}
		if level == 0 {
			if docFor >= 0 && strings.TrimSpace(t.Text) != "" {
				decls[docFor].Doc = strings.TrimSpace(t.Text)
				docFor = -1
			}
			prevEnd = t.End
			continue
		}

		closeTo(level)
		d := model.Declaration{
			Kind:       model.Module,
			Name:       text,
			Signature:  strings.Repeat("#", level) + " " + text,
			Span:       model.Span{Start: t.Start, End: last.End},
			Depth:      len(open),
			Visibility: model.Public,
		}
		if text == "" {
			d.Kind = model.Other
			d.Signature = strings.Repeat("#", level)
			d.Warn("empty heading at %s", t.Start)
		}
		decls = append(decls, d)
		docFor = len(decls) - 1
		if d.Kind == model.Module {
			open = append(open, mdHeading{index: docFor, level: level})
		} else {
			docFor = -1
		}
		prevEnd = last.End
	}
	closeTo(1)
	return decls
}

// atxHeading returns the level and text of a "## Title" line, or 0.
func atxHeading(line string) (int, string) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return 0, ""
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0, ""
	}
	rest := trimmed[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0, ""
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSpace(strings.TrimRight(rest, "#"))
	return level, rest
}

// setextLevel returns 1 for an === underline, 2 for ---, else 0.
func setextLevel(line string) int {
	s := strings.TrimSpace(line)
	if s == "" {
		return 0
	}
	switch {
	case strings.Trim(s, "=") == "":
		return 1
	case strings.Trim(s, "-") == "" && len(s) >= 2:
		return 2
	}
	return 0
}
