package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/phobologic/filemap/internal/batch"
	"github.com/phobologic/filemap/internal/discover"
	"github.com/phobologic/filemap/internal/extract"
	"github.com/phobologic/filemap/internal/render"
)

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// AddFileMapTool registers the file_map tool, which maps source text
// passed inline.
func AddFileMapTool(s *server.MCPServer, mapper *batch.Mapper) {
	tool := mcp.NewTool(
		"file_map",
		mcp.WithDescription("Return a compact structural outline of one source file: declarations, signatures and the first line of their docs, nested by scope. Use a budget to cap the outline size."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Full source text of the file")),
		mcp.WithString("language",
			mcp.Required(),
			mcp.Description("Language id: rust, go, python or markdown")),
		mcp.WithNumber("budget_lines",
			mcp.Description("Maximum lines of text output (mutually exclusive with budget_chars)")),
		mcp.WithNumber("budget_chars",
			mcp.Description("Maximum characters of text output")),
		mcp.WithString("format",
			mcp.Description("Output format: text (default), toon, json or yaml")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createFileMapHandler(mapper))
}

func createFileMapHandler(mapper *batch.Mapper) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.GetRawArguments().(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		if _, ok := argsMap["content"]; !ok {
			return mcp.NewToolResultError("content parameter is required"), nil
		}
		content, err := parseStringArg(argsMap, "content", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		language, err := parseStringArg(argsMap, "language", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		budget, err := parseBudget(argsMap)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format, err := parseFormatArg(argsMap)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		fm, err := mapper.WithBudget(budget).Source(ctx, language, []byte(content))
		if err != nil {
			if isUserError(err) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, err
		}
		body, err := render.Encode(fm, format)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(body), nil
	}
}

// AddMapPathsTool registers the map_paths tool, which maps files and
// directories under the server root.
func AddMapPathsTool(s *server.MCPServer, mapper *batch.Mapper, finder *discover.Finder) {
	tool := mcp.NewTool(
		"map_paths",
		mcp.WithDescription("Return structural outlines for files or directories in the project, one section per file under a '### path' heading. Directories are searched recursively, honoring .gitignore."),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("Files or directories relative to the project root (e.g., ['src', 'main.go'])")),
		mcp.WithNumber("budget_lines",
			mcp.Description("Maximum lines of text output per file (mutually exclusive with budget_chars)")),
		mcp.WithNumber("budget_chars",
			mcp.Description("Maximum characters of text output per file")),
		mcp.WithString("format",
			mcp.Description("Output format per file: text (default), toon, json or yaml")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createMapPathsHandler(mapper, finder))
}

func createMapPathsHandler(mapper *batch.Mapper, finder *discover.Finder) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.GetRawArguments().(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		paths := parseArrayArg(argsMap, "paths")
		if len(paths) == 0 {
			return mcp.NewToolResultError("paths parameter is required"), nil
		}
		budget, err := parseBudget(argsMap)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format, err := parseFormatArg(argsMap)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		entries, err := resolvePaths(finder, paths)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(entries) == 0 {
			return mcp.NewToolResultError("no mappable files found"), nil
		}

		results := mapper.WithBudget(budget).WithFormat(format).Map(ctx, entries)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(batch.Combine(results)), nil
	}
}

// resolvePaths expands request paths into discovered files. Paths must stay
// inside the finder's root.
func resolvePaths(finder *discover.Finder, paths []string) ([]discover.FileEntry, error) {
	seen := make(map[string]struct{})
	var out []discover.FileEntry
	add := func(e discover.FileEntry) {
		if _, dup := seen[e.Path]; !dup {
			seen[e.Path] = struct{}{}
			out = append(out, e)
		}
	}

	var all []discover.FileEntry
	for _, p := range paths {
		rel := filepath.Clean(filepath.FromSlash(p))
		if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("path %q is outside project root", p)
		}

		info, err := os.Stat(filepath.Join(finder.Root(), rel))
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("path %q does not exist", p)
		} else if err != nil {
			return nil, fmt.Errorf("path %q: %w", p, err)
		}

		if !info.IsDir() {
			language, ok := finder.Match(rel)
			if !ok {
				return nil, fmt.Errorf("path %q is not a supported source file", p)
			}
			add(discover.FileEntry{Path: rel, Language: language})
			continue
		}

		if all == nil {
			if all, err = finder.Files(); err != nil {
				return nil, fmt.Errorf("discovering files: %w", err)
			}
		}
		prefix := rel + string(filepath.Separator)
		for _, e := range all {
			if rel == "." || strings.HasPrefix(e.Path, prefix) {
				add(e)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// isUserError reports whether err describes bad input rather than a fault
// in the server.
func isUserError(err error) bool {
	return errors.Is(err, extract.ErrUnsupportedLanguage) || errors.Is(err, extract.ErrInvalidBudget)
}
