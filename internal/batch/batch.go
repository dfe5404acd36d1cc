// Package batch maps many files concurrently and combines the results.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/phobologic/filemap/internal/discover"
	"github.com/phobologic/filemap/internal/extract"
	"github.com/phobologic/filemap/internal/logging"
	"github.com/phobologic/filemap/internal/ranking"
	"github.com/phobologic/filemap/internal/render"
)

// ErrTooLarge marks files above the size ceiling.
var ErrTooLarge = errors.New("file too large")

// Options configures a Mapper.
type Options struct {
	Budget      ranking.Budget
	Format      render.Format
	Workers     int // 0 means GOMAXPROCS
	MaxFileSize int // 0 means no limit
	SyntaxCheck bool
	CacheSize   int // 0 disables caching
	Logger      *slog.Logger
	// Progress is called once per finished file from a single goroutine.
	Progress func(done, total int)
}

// Result is the outcome for one file. Exactly one of Map and Err is set.
type Result struct {
	Path     string
	Language string
	Map      *render.Map
	Body     string
	Err      error
}

// Mapper maps files under a root directory.
type Mapper struct {
	root      string
	opts      Options
	extractor *extract.Extractor
	cache     *Cache
	logger    *slog.Logger
}

// New creates a Mapper for files relative to root.
func New(root string, opts Options) (*Mapper, error) {
	if opts.Format == "" {
		opts.Format = render.FormatText
	}
	m := &Mapper{
		root:      root,
		opts:      opts,
		extractor: extract.New(extract.WithSyntaxCheck(opts.SyntaxCheck)),
		logger:    opts.Logger,
	}
	if m.logger == nil {
		m.logger = logging.NewDiscardLogger()
	}
	if opts.CacheSize > 0 {
		c, err := NewCache(opts.CacheSize)
		if err != nil {
			return nil, err
		}
		m.cache = c
	}
	return m, nil
}

// WithBudget returns a Mapper sharing m's cache that trims to b.
func (m *Mapper) WithBudget(b ranking.Budget) *Mapper {
	c := *m
	c.opts.Budget = b
	return &c
}

// WithFormat returns a Mapper sharing m's cache that encodes as f.
func (m *Mapper) WithFormat(f render.Format) *Mapper {
	c := *m
	c.opts.Format = f
	return &c
}

// Cache returns the result cache, or nil when caching is disabled.
func (m *Mapper) Cache() *Cache {
	return m.cache
}

// Source maps src, consulting the cache first.
func (m *Mapper) Source(ctx context.Context, language string, src []byte) (*render.Map, error) {
	if m.cache == nil {
		return m.extractor.Extract(ctx, src, language, m.opts.Budget)
	}
	key, err := Key(language, m.opts.Budget, m.opts.SyntaxCheck, src)
	if err != nil {
		return nil, err
	}
	if cached, ok := m.cache.Get(key); ok {
		m.logger.Debug("cache hit", "language", language, "bytes", len(src))
		return cached, nil
	}
	fm, err := m.extractor.Extract(ctx, src, language, m.opts.Budget)
	if err != nil {
		return nil, err
	}
	m.cache.Add(key, fm)
	return fm, nil
}

func (m *Mapper) mapFile(ctx context.Context, f discover.FileEntry) Result {
	res := Result{Path: f.Path, Language: f.Language}
	absPath := filepath.Join(m.root, f.Path)

	if m.opts.MaxFileSize > 0 {
		if fi, err := os.Stat(absPath); err == nil && fi.Size() > int64(m.opts.MaxFileSize) {
			m.logger.Warn("skipped large file", "path", f.Path, "size", fi.Size(), "limit", m.opts.MaxFileSize)
			res.Err = fmt.Errorf("%s: %w", f.Path, ErrTooLarge)
			return res
		}
	}

	source, err := os.ReadFile(absPath)
	if err != nil {
		m.logger.Warn("failed to read file", "path", f.Path, "error", err)
		res.Err = fmt.Errorf("reading %s: %w", f.Path, err)
		return res
	}

	fm, err := m.Source(ctx, f.Language, source)
	if err != nil {
		m.logger.Warn("failed to map file", "path", f.Path, "error", err)
		res.Err = fmt.Errorf("mapping %s: %w", f.Path, err)
		return res
	}
	body, err := render.Encode(fm, m.opts.Format)
	if err != nil {
		res.Err = fmt.Errorf("encoding %s: %w", f.Path, err)
		return res
	}
	if fm.Recovered {
		m.logger.Info("recovered from malformed input", "path", f.Path, "warnings", len(fm.Warnings))
	}
	res.Map = fm
	res.Body = body
	return res
}

// Map maps files concurrently and returns one result per file in input
// order. Cancelling ctx fails the files not yet started.
func (m *Mapper) Map(ctx context.Context, files []discover.FileEntry) []Result {
	type indexed struct {
		index  int
		result Result
	}

	numWorkers := m.opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan indexed, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				f := files[idx]
				if err := ctx.Err(); err != nil {
					results <- indexed{index: idx, result: Result{Path: f.Path, Language: f.Language, Err: err}}
					continue
				}
				results <- indexed{index: idx, result: m.mapFile(ctx, f)}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	out := make([]Result, len(files))
	done := 0
	for r := range results {
		out[r.index] = r.result
		done++
		if m.opts.Progress != nil {
			m.opts.Progress(done, len(files))
		}
	}
	m.logger.Debug("mapped files", "count", len(files), "workers", numWorkers)
	return out
}

// Combine joins results under "### path" headings. Files that were too
// large or failed get a placeholder instead of a map.
func Combine(results []Result) string {
	files := make([]render.FileMap, len(results))
	for i, r := range results {
		body := r.Body
		switch {
		case errors.Is(r.Err, ErrTooLarge):
			body = render.NoMapTooLarge
		case r.Err != nil:
			body = render.NoMap
		}
		files[i] = render.FileMap{Path: filepath.ToSlash(r.Path), Body: body}
	}
	return render.Combine(files)
}
