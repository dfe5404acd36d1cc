// Package extract turns one source file into a file map. It is the single
// entry point to the scanner, recognizer, tree, trimming and rendering
// stages and has no side effects.
package extract

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/phobologic/filemap/internal/graph"
	"github.com/phobologic/filemap/internal/lang"
	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/ranking"
	"github.com/phobologic/filemap/internal/render"
	"github.com/phobologic/filemap/internal/tree"
)

// Code classifies extraction failures.
type Code string

const (
	CodeUnsupportedLanguage Code = "unsupported-language"
	CodeInvariant           Code = "invariant-violation"
	CodeInvalidBudget       Code = "invalid-budget"
)

var (
	// ErrUnsupportedLanguage matches errors for language ids with no adapter.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrInvariant matches internal consistency failures. These are bugs in
	// an adapter or the tree builder, never a property of the input.
	ErrInvariant = errors.New("invariant violation")
	// ErrInvalidBudget matches negative budgets.
	ErrInvalidBudget = errors.New("invalid budget")
)

var codeSentinels = map[Code]error{
	CodeUnsupportedLanguage: ErrUnsupportedLanguage,
	CodeInvariant:           ErrInvariant,
	CodeInvalidBudget:       ErrInvalidBudget,
}

// Error is returned by Extract for every failure class.
type Error struct {
	Code     Code
	Language string
	Err      error
}

func (e *Error) Error() string {
	msg := codeSentinels[e.Code].Error()
	if e.Language != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Language)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e's code.
func (e *Error) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRegistry uses r instead of lang.Default.
func WithRegistry(r *lang.Registry) Option {
	return func(x *Extractor) { x.registry = r }
}

// WithSyntaxCheck turns the tree-sitter annotation pass on or off. It is on
// by default.
func WithSyntaxCheck(on bool) Option {
	return func(x *Extractor) { x.syntax = on }
}

// Extractor maps source files. It holds no per-call state and is safe for
// concurrent use.
type Extractor struct {
	registry *lang.Registry
	syntax   bool
}

// New returns an Extractor over lang.Default with syntax checks enabled.
func New(opts ...Option) *Extractor {
	x := &Extractor{registry: lang.Default, syntax: true}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

var defaultExtractor = New()

// Extract maps src as languageID using the default extractor. A zero
// budget (ranking.NoBudget) disables trimming.
func Extract(src []byte, languageID string, budget ranking.Budget) (*render.Map, error) {
	return defaultExtractor.Extract(context.Background(), src, languageID, budget)
}

// Extract maps src. Malformed input is not an error: affected declarations
// carry warnings and the map is marked recovered. A budget too small for
// even the top-level marker yields the smallest map with BudgetInfeasible
// set.
func (x *Extractor) Extract(ctx context.Context, src []byte, languageID string, budget ranking.Budget) (m *render.Map, err error) {
	a, ok := x.registry.Lookup(languageID)
	if !ok {
		return nil, &Error{Code: CodeUnsupportedLanguage, Language: languageID}
	}
	if budget.Max < 0 {
		return nil, &Error{Code: CodeInvalidBudget, Language: a.Name, Err: fmt.Errorf("max %d is negative", budget.Max)}
	}

	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = &Error{Code: CodeInvariant, Language: a.Name, Err: fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
		}
	}()

	res, err := a.Analyze(ctx, src, x.syntax)
	if err != nil {
		return nil, err
	}
	decls := res.Declarations

	var orphans []model.Span
	if x.syntax {
		orphans = lang.AnnotateSyntaxErrors(decls, res.Errors)
	}

	graph.Resolve(decls)

	t, err := tree.Build(a.Name, src, decls)
	if err != nil {
		return nil, &Error{Code: CodeInvariant, Language: a.Name, Err: err}
	}

	trim := ranking.Trim(t, budget, render.Layout{})

	m = render.Build(t)
	for _, o := range orphans {
		m.AddWarning("line %d: syntax error", o.Start.Line)
	}
	m.SortWarnings()
	m.BudgetInfeasible = trim.Infeasible
	return m, nil
}
