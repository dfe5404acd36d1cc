// Package lang provides the language adapter registry and the per-language
// scanners and declaration recognizers.
package lang

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/filemap/internal/model"
	"github.com/phobologic/filemap/internal/parse"
	"github.com/phobologic/filemap/internal/scan"
)

var (
	// ErrSealed is returned when registering after the first lookup.
	ErrSealed = errors.New("registry is sealed")
	// ErrDuplicate is returned when a language id or alias is already taken.
	ErrDuplicate = errors.New("language already registered")
)

// Recognizer turns a token stream into a flat, source-ordered list of
// declarations. Recognizers must not panic on any input.
type Recognizer interface {
	Recognize(src []byte, toks *scan.Stream) []model.Declaration
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(src []byte, toks *scan.Stream) []model.Declaration

// Recognize calls f.
func (f RecognizerFunc) Recognize(src []byte, toks *scan.Stream) []model.Declaration {
	return f(src, toks)
}

// TreeRecognizer builds declarations by walking a tree-sitter syntax tree.
// Used as a Recognizer it parses the source itself and ignores the token
// stream.
type TreeRecognizer struct {
	Grammar *sitter.Language
	Walk    func(src []byte, root *sitter.Node) []model.Declaration
}

// Recognize parses src and walks the result.
func (r TreeRecognizer) Recognize(src []byte, _ *scan.Stream) []model.Declaration {
	var decls []model.Declaration
	_ = parse.Parse(context.Background(), r.Grammar, src, func(root *sitter.Node) {
		decls = r.Walk(src, root)
	})
	return decls
}

// Adapter bundles everything needed to map one language.
type Adapter struct {
	Name       string
	Aliases    []string
	Extensions []string
	Scanner    scan.Scanner
	Recognizer Recognizer
}

// Analysis is what one pass over a source file yields.
type Analysis struct {
	Declarations []model.Declaration
	// Errors lists the spans the grammar flagged, when requested.
	Errors []model.Span
}

// Analyze recognizes the declarations of src. Tree recognizers parse the
// source once, and with syntax set the same tree supplies the error spans.
// Token recognizers see a leading byte order mark as blanks; tree-sitter
// skips it on its own.
func (a *Adapter) Analyze(ctx context.Context, src []byte, syntax bool) (Analysis, error) {
	tr, ok := a.Recognizer.(TreeRecognizer)
	if !ok {
		src = maskBOM(src)
		return Analysis{Declarations: a.Recognizer.Recognize(src, a.Scanner.Scan(src))}, nil
	}
	var out Analysis
	err := parse.Parse(ctx, tr.Grammar, src, func(root *sitter.Node) {
		out.Declarations = tr.Walk(src, root)
		if syntax {
			out.Errors = parse.Errors(root)
		}
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("parsing %s: %w", a.Name, err)
	}
	return out, nil
}

// Declarations recognizes src without syntax checks.
func (a *Adapter) Declarations(src []byte) []model.Declaration {
	res, _ := a.Analyze(context.Background(), src, false)
	return res.Declarations
}

// maskBOM returns src with a leading UTF-8 byte order mark replaced by
// spaces, keeping every offset intact. src itself is never modified.
func maskBOM(src []byte) []byte {
	if !bytes.HasPrefix(src, utf8BOM) {
		return src
	}
	out := make([]byte, len(src))
	copy(out, src)
	copy(out, "   ")
	return out
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Registry maps language ids to adapters. Registration happens during
// initialization; the first lookup seals the registry and it is read-only
// from then on.
type Registry struct {
	mu       sync.Mutex
	sealed   bool
	sealOnce sync.Once
	adapters map[string]*Adapter
	byName   map[string]*Adapter
	byExt    map[string]*Adapter
}

// NewRegistry returns an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]*Adapter),
		byName:   make(map[string]*Adapter),
	}
}

// Register adds an adapter built from a scanner and recognizer.
func (r *Registry) Register(id string, sc scan.Scanner, rec Recognizer, extensions ...string) error {
	return r.Add(&Adapter{Name: id, Extensions: extensions, Scanner: sc, Recognizer: rec})
}

// Add registers a fully configured adapter under its name and aliases.
func (r *Registry) Add(a *Adapter) error {
	if a.Name == "" || a.Scanner == nil || a.Recognizer == nil {
		return fmt.Errorf("adapter %q: name, scanner and recognizer are required", a.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("registering %q: %w", a.Name, ErrSealed)
	}
	ids := append([]string{a.Name}, a.Aliases...)
	for _, id := range ids {
		if _, ok := r.adapters[strings.ToLower(id)]; ok {
			return fmt.Errorf("registering %q: %w", id, ErrDuplicate)
		}
	}
	for _, id := range ids {
		r.adapters[strings.ToLower(id)] = a
	}
	r.byName[a.Name] = a
	return nil
}

func (r *Registry) seal() {
	r.sealOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.sealed = true
		r.byExt = make(map[string]*Adapter)
		for _, name := range r.namesLocked() {
			a := r.byName[name]
			for _, ext := range a.Extensions {
				if _, ok := r.byExt[ext]; !ok {
					r.byExt[ext] = a
				}
			}
		}
	})
}

// Lookup returns the adapter for a language id or alias (case-insensitive).
func (r *Registry) Lookup(id string) (*Adapter, bool) {
	r.seal()
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(id))]
	return a, ok
}

// ForExtension returns the adapter registered for a file extension
// including the dot, e.g. ".rs".
func (r *Registry) ForExtension(ext string) (*Adapter, bool) {
	r.seal()
	a, ok := r.byExt[strings.ToLower(ext)]
	return a, ok
}

// Names returns the canonical adapter names in sorted order.
func (r *Registry) Names() []string {
	r.seal()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default holds the built-in adapters. Populated by init() functions in
// per-language files.
var Default = NewRegistry()

func mustAdd(a *Adapter) {
	if err := Default.Add(a); err != nil {
		panic(err)
	}
}

// Lookup is Default.Lookup.
func Lookup(id string) (*Adapter, bool) {
	return Default.Lookup(id)
}

// ForExtension returns the canonical language name for a file extension,
// or "" if unsupported.
func ForExtension(ext string) string {
	if a, ok := Default.ForExtension(ext); ok {
		return a.Name
	}
	return ""
}
