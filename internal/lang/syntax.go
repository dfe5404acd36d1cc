package lang

import (
	"context"
	"fmt"

	"github.com/phobologic/filemap/internal/model"
)

// SyntaxErrors returns the spans the adapter's grammar marked as ERROR or
// MISSING in src. Adapters without a grammar report nothing.
func (a *Adapter) SyntaxErrors(ctx context.Context, src []byte) ([]model.Span, error) {
	if _, ok := a.Recognizer.(TreeRecognizer); !ok {
		return nil, nil
	}
	res, err := a.Analyze(ctx, src, true)
	if err != nil {
		return nil, err
	}
	return res.Errors, nil
}

// AnnotateSyntaxErrors attaches a warning for each error span to the
// innermost declaration that touches it. It returns the error spans no
// declaration claimed.
func AnnotateSyntaxErrors(decls []model.Declaration, errs []model.Span) []model.Span {
	var orphans []model.Span
	for _, e := range errs {
		best := -1
		for i := range decls {
			if !touches(decls[i].Span, e) {
				continue
			}
			if best < 0 || decls[best].Span.Covers(decls[i].Span) {
				best = i
			}
		}
		if best < 0 {
			orphans = append(orphans, e)
			continue
		}
		msg := fmt.Sprintf("syntax error near line %d", e.Start.Line)
		if !contains(decls[best].Warnings, msg) {
			decls[best].Warnings = append(decls[best].Warnings, msg)
		}
	}
	return orphans
}

// touches reports whether e overlaps d, treating zero-width error spans
// (missing tokens) as a point.
func touches(d, e model.Span) bool {
	if e.Len() == 0 {
		return d.Start.Offset <= e.Start.Offset && e.Start.Offset < d.End.Offset
	}
	return d.Overlaps(e)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
