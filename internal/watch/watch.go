// Package watch re-maps source files as they change on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/phobologic/filemap/internal/discover"
	"github.com/phobologic/filemap/internal/logging"
)

// DefaultDebounce is the quiet period before changed files are reported.
const DefaultDebounce = 300 * time.Millisecond

// Change is a mappable file that was written, created or removed.
type Change struct {
	discover.FileEntry
	Removed bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher reports batches of changed files under a Finder's root.
type Watcher struct {
	finder   *discover.Finder
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
}

// New watches every directory under the finder's root that discovery would
// descend into.
func New(finder *discover.Finder, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		finder:   finder,
		fsw:      fsw,
		debounce: DefaultDebounce,
		logger:   logging.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.addRecursive(finder.Root()); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers debounced batches of changes, sorted by path, until ctx is
// done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, onChange func([]Change)) error {
	pending := make(map[string]discover.FileEntry)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			rel, err := filepath.Rel(w.finder.Root(), event.Name)
			if err != nil {
				continue
			}
			language, ok := w.finder.Match(rel)
			if !ok {
				continue
			}
			w.logger.Debug("file changed", "path", rel, "op", event.Op.String())
			pending[rel] = discover.FileEntry{Path: rel, Language: language}
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			onChange(w.flush(pending))
			clear(pending)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) flush(pending map[string]discover.FileEntry) []Change {
	changes := make([]Change, 0, len(pending))
	for _, f := range pending {
		_, err := os.Stat(filepath.Join(w.finder.Root(), f.Path))
		changes = append(changes, Change{FileEntry: f, Removed: os.IsNotExist(err)})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger.Warn("error accessing directory", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.finder.Root() && discover.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}
