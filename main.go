// filemap prints compact structural maps of source files for coding agents.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/phobologic/filemap/internal/batch"
	"github.com/phobologic/filemap/internal/config"
	"github.com/phobologic/filemap/internal/discover"
	"github.com/phobologic/filemap/internal/lang"
	"github.com/phobologic/filemap/internal/logging"
	"github.com/phobologic/filemap/internal/render"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options holds flag values shared by the mapping commands.
type options struct {
	langs       []string
	budgetLines int
	budgetChars int
	format      string
	workers     int
	maxFileSize int
	noSyntax    bool
	include     []string
	exclude     []string
	configPath  string
	verbosity   int
	quiet       bool
	progress    bool
}

// app carries the streams of one invocation.
type app struct {
	opts   options
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCmd(&app{stdin: stdin, stdout: stdout, stderr: stderr})
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filemap [paths...]",
		Short: "Print compact structural maps of source files",
		Long: `filemap prints a compact outline of each source file: its declarations,
signatures and the first line of their docs, nested by scope. Large files can
be trimmed to a line or character budget; shallow declarations are kept first.

Paths may be files or directories. Directories are searched recursively,
honoring .gitignore. Use "-" to read a single file from stdin (requires --lang).`,
		Example: `  filemap src/lib.rs
  filemap --budget-lines 40 internal/
  cat main.go | filemap -l go -
  filemap -f json -l python,rust .`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMap(cmd, args)
		},
	}
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetVersionTemplate("filemap {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringSliceVarP(&a.opts.langs, "lang", "l", nil, "languages to include, or the language of a single file or stdin")
	pf.IntVar(&a.opts.budgetLines, "budget-lines", 0, "trim each map to this many lines of text output")
	pf.IntVar(&a.opts.budgetChars, "budget-chars", 0, "trim each map to this many characters of text output")
	pf.StringVarP(&a.opts.format, "format", "f", "", "output format: text, toon, json or yaml (default text)")
	pf.IntVar(&a.opts.workers, "workers", 0, "number of concurrent workers (default GOMAXPROCS)")
	pf.IntVar(&a.opts.maxFileSize, "max-file-size", 0, fmt.Sprintf("skip files larger than this many bytes (default %d)", config.DefaultMaxFileSize))
	pf.BoolVar(&a.opts.noSyntax, "no-syntax-check", false, "skip the tree-sitter syntax check")
	pf.StringSliceVar(&a.opts.include, "include", nil, "only map files matching these globs (e.g. 'src/**/*.rs')")
	pf.StringSliceVar(&a.opts.exclude, "exclude", nil, "skip files matching these globs")
	pf.StringVar(&a.opts.configPath, "config", "", "config file (default .filemap.yaml in the target directory)")
	pf.CountVarP(&a.opts.verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&a.opts.quiet, "quiet", "q", false, "suppress all log output")
	cmd.Flags().BoolVar(&a.opts.progress, "progress", false, "show a progress bar while mapping many files")

	cmd.AddCommand(
		newLanguagesCmd(a),
		newWatchCmd(a),
		newMCPCmd(a),
		newInitCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

// settings loads the configuration for root and applies flag overrides.
func (a *app) settings(cmd *cobra.Command, root string) (*config.Config, *slog.Logger, error) {
	loader := config.NewLoader(root)
	if a.opts.configPath != "" {
		loader = config.NewFileLoader(a.opts.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("budget-lines") || flags.Changed("budget-chars") {
		cfg.Budget = config.BudgetConfig{Lines: a.opts.budgetLines, Chars: a.opts.budgetChars}
	}
	if flags.Changed("format") {
		cfg.Format = a.opts.format
	}
	if flags.Changed("workers") {
		cfg.Workers = a.opts.workers
	}
	if flags.Changed("max-file-size") {
		cfg.MaxFileSize = a.opts.maxFileSize
	}
	if a.opts.noSyntax {
		cfg.SyntaxCheck = false
	}
	if flags.Changed("lang") {
		cfg.Languages = a.opts.langs
	}
	if flags.Changed("include") {
		cfg.Paths.Include = a.opts.include
	}
	if flags.Changed("exclude") {
		cfg.Paths.Exclude = a.opts.exclude
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}

	level := logging.LevelFromString(cfg.Log.Level)
	if a.opts.verbosity > 0 || a.opts.quiet {
		level = logging.LevelFromVerbosity(a.opts.verbosity, a.opts.quiet)
	}
	return cfg, logging.NewLogger(a.stderr, level), nil
}

func newMapper(root string, cfg *config.Config, logger *slog.Logger, progress func(done, total int)) (*batch.Mapper, error) {
	format, err := render.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return batch.New(root, batch.Options{
		Budget:      cfg.MapBudget(),
		Format:      format,
		Workers:     cfg.Workers,
		MaxFileSize: cfg.MaxFileSize,
		SyntaxCheck: cfg.SyntaxCheck,
		CacheSize:   cfg.CacheSize,
		Logger:      logger,
		Progress:    progress,
	})
}

func newFinder(root string, cfg *config.Config) (*discover.Finder, error) {
	return discover.New(root, discover.Options{
		Languages: cfg.Languages,
		Include:   cfg.Paths.Include,
		Exclude:   cfg.Paths.Exclude,
	})
}

func (a *app) runMap(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	if len(args) == 1 && args[0] == "-" {
		return a.mapStdin(cmd)
	}

	// A single directory is the root: its config applies and headings are
	// relative to it.
	root := ""
	configRoot := "."
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			root = args[0]
			configRoot = args[0]
		}
	}

	cfg, logger, err := a.settings(cmd, configRoot)
	if err != nil {
		return err
	}

	var entries []discover.FileEntry
	single := false
	if root != "" {
		finder, err := newFinder(root, cfg)
		if err != nil {
			return err
		}
		if entries, err = finder.Files(); err != nil {
			return fmt.Errorf("discovering files: %w", err)
		}
	} else {
		single = len(args) == 1
		if entries, err = a.collect(args, cfg); err != nil {
			return err
		}
	}
	if len(entries) == 0 {
		return fmt.Errorf("no mappable files found")
	}

	var bar *progressbar.ProgressBar
	var progress func(done, total int)
	if a.opts.progress && !a.opts.quiet && len(entries) > 1 {
		bar = newProgressBar(a.stderr, len(entries))
		progress = func(done, _ int) { _ = bar.Set(done) }
	}

	mapper, err := newMapper(root, cfg, logger, progress)
	if err != nil {
		return err
	}
	results := mapper.Map(cmd.Context(), entries)
	if bar != nil {
		_ = bar.Finish()
	}
	if err := cmd.Context().Err(); err != nil {
		return err
	}

	if single {
		if results[0].Err != nil {
			return results[0].Err
		}
		_, _ = io.WriteString(a.stdout, results[0].Body)
		return nil
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil && !errors.Is(r.Err, batch.ErrTooLarge) {
			failed++
		}
	}
	if failed == len(results) {
		return fmt.Errorf("no files could be mapped")
	}
	_, _ = io.WriteString(a.stdout, batch.Combine(results))
	return nil
}

// collect expands file and directory arguments. File languages come from
// --lang when exactly one is given, otherwise from the extension.
func (a *app) collect(args []string, cfg *config.Config) ([]discover.FileEntry, error) {
	var entries []discover.FileEntry
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("path: %w", err)
		}

		if info.IsDir() {
			finder, err := newFinder(arg, cfg)
			if err != nil {
				return nil, err
			}
			files, err := finder.Files()
			if err != nil {
				return nil, fmt.Errorf("discovering files: %w", err)
			}
			for _, f := range files {
				entries = append(entries, discover.FileEntry{Path: filepath.Join(arg, f.Path), Language: f.Language})
			}
			continue
		}

		language, err := fileLanguage(arg, cfg.Languages)
		if err != nil {
			return nil, err
		}
		entries = append(entries, discover.FileEntry{Path: arg, Language: language})
	}
	return entries, nil
}

func fileLanguage(path string, langs []string) (string, error) {
	if len(langs) == 1 {
		a, ok := lang.Lookup(langs[0])
		if !ok {
			return "", fmt.Errorf("unsupported language %q", langs[0])
		}
		return a.Name, nil
	}
	if language := lang.ForExtension(filepath.Ext(path)); language != "" {
		return language, nil
	}
	return "", fmt.Errorf("%s: cannot detect language from extension; use --lang", path)
}

func (a *app) mapStdin(cmd *cobra.Command) error {
	if len(a.opts.langs) != 1 {
		return fmt.Errorf("reading stdin requires exactly one --lang")
	}
	cfg, logger, err := a.settings(cmd, ".")
	if err != nil {
		return err
	}
	src, err := io.ReadAll(a.stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if cfg.MaxFileSize > 0 && len(src) > cfg.MaxFileSize {
		return fmt.Errorf("stdin: %w (>%d bytes)", batch.ErrTooLarge, cfg.MaxFileSize)
	}

	mapper, err := newMapper("", cfg, logger, nil)
	if err != nil {
		return err
	}
	fm, err := mapper.Source(cmd.Context(), a.opts.langs[0], src)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	body, err := render.Encode(fm, format)
	if err != nil {
		return err
	}
	_, _ = io.WriteString(a.stdout, body)
	return nil
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Mapping files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
