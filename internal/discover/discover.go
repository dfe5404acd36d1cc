// Package discover finds mappable source files under a directory.
package discover

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/filemap/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to root
	Language string
}

// Options narrows discovery. Include and Exclude are globs over
// slash-separated paths relative to the root; "**" crosses directories.
type Options struct {
	Languages []string
	Include   []string
	Exclude   []string
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	"target":        {},
	"vendor":        {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
}

type pattern struct {
	text string
	glob glob.Glob
}

// Finder applies the skip rules, ignore files and patterns of one root.
type Finder struct {
	root     string
	langs    map[string]struct{}
	include  []pattern
	exclude  []pattern
	gitFiles map[string]struct{}
	gi       *ignore.GitIgnore
}

// New prepares a Finder for root. Language names are canonicalized through
// the adapter registry.
func New(root string, opts Options) (*Finder, error) {
	f := &Finder{root: root, langs: make(map[string]struct{}, len(opts.Languages))}
	for _, name := range opts.Languages {
		a, ok := lang.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unsupported language %q", name)
		}
		f.langs[a.Name] = struct{}{}
	}
	var err error
	if f.include, err = compile(opts.Include); err != nil {
		return nil, err
	}
	if f.exclude, err = compile(opts.Exclude); err != nil {
		return nil, err
	}
	f.gitFiles = gitLsFiles(root)
	f.gi = loadGitignore(root)
	return f, nil
}

func compile(globs []string) ([]pattern, error) {
	out := make([]pattern, 0, len(globs))
	for _, g := range globs {
		compiled, err := glob.Compile(g, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", g, err)
		}
		out = append(out, pattern{text: g, glob: compiled})
	}
	return out, nil
}

// Files discovers mappable files under root.
func Files(root string, opts Options) ([]FileEntry, error) {
	f, err := New(root, opts)
	if err != nil {
		return nil, err
	}
	return f.Files()
}

// Files walks the root and returns matching files sorted by path.
func (f *Finder) Files() ([]FileEntry, error) {
	var results []FileEntry

	err := filepath.WalkDir(f.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == f.root {
				return nil
			}
			if SkipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return nil
		}

		if f.gitFiles != nil {
			if _, ok := f.gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		}
		if language, ok := f.Match(rel); ok {
			results = append(results, FileEntry{Path: rel, Language: language})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// Match reports whether the file at rel (relative to the root) passes the
// skip rules, .gitignore and patterns, and returns its language.
func (f *Finder) Match(rel string) (string, bool) {
	slashed := filepath.ToSlash(rel)
	parts := strings.Split(slashed, "/")
	for _, dir := range parts[:len(parts)-1] {
		if SkipDir(dir) {
			return "", false
		}
	}
	name := parts[len(parts)-1]
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	if f.gi != nil && f.gi.MatchesPath(slashed) {
		return "", false
	}
	if matchesAny(slashed, f.exclude) {
		return "", false
	}
	if len(f.include) > 0 && !matchesAny(slashed, f.include) {
		return "", false
	}

	language := lang.ForExtension(filepath.Ext(name))
	if language == "" {
		return "", false
	}
	if len(f.langs) > 0 {
		if _, ok := f.langs[language]; !ok {
			return "", false
		}
	}
	return language, true
}

// SkipDir reports whether a directory with this name is never descended
// into: hidden directories, VCS metadata, dependency and build output.
func SkipDir(name string) bool {
	_, skip := skipDirs[name]
	return skip || strings.HasPrefix(name, ".")
}

// matchesAny also lets "**/x" match x at the root.
func matchesAny(path string, patterns []pattern) bool {
	for _, p := range patterns {
		if p.glob.Match(path) {
			return true
		}
		if rest, ok := strings.CutPrefix(p.text, "**/"); ok && !strings.Contains(path, "/") {
			if g, err := glob.Compile(rest, '/'); err == nil && g.Match(path) {
				return true
			}
		}
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

// Root returns the directory the Finder walks.
func (f *Finder) Root() string {
	return f.root
}
