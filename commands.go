package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/phobologic/filemap/internal/batch"
	"github.com/phobologic/filemap/internal/discover"
	"github.com/phobologic/filemap/internal/lang"
	"github.com/phobologic/filemap/internal/mcp"
	"github.com/phobologic/filemap/internal/watch"
)

func newLanguagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and their file extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LANGUAGE\tALIASES\tEXTENSIONS")
			for _, name := range lang.Default.Names() {
				ad, _ := lang.Lookup(name)
				aliases := strings.Join(ad.Aliases, ",")
				if aliases == "" {
					aliases = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ad.Name, aliases, strings.Join(ad.Extensions, " "))
			}
			return tw.Flush()
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the filemap version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(a.stdout, "filemap %s\n", version)
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Map a directory, then re-map files as they change",
		Long: `Map every source file under dir (default: current directory), then keep
running and print fresh maps for files that are created or modified. Changes
are batched until the directory has been quiet for a moment.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			cfg, logger, err := a.settings(cmd, root)
			if err != nil {
				return err
			}
			finder, err := newFinder(root, cfg)
			if err != nil {
				return err
			}
			mapper, err := newMapper(root, cfg, logger, nil)
			if err != nil {
				return err
			}

			w, err := watch.New(finder, watch.WithLogger(logger))
			if err != nil {
				return err
			}
			defer w.Close()

			ctx := cmd.Context()
			files, err := finder.Files()
			if err != nil {
				return fmt.Errorf("discovering files: %w", err)
			}
			if len(files) > 0 {
				_, _ = fmt.Fprint(a.stdout, batch.Combine(mapper.Map(ctx, files)))
			}

			return w.Run(ctx, func(changes []watch.Change) {
				var changed []discover.FileEntry
				for _, c := range changes {
					if c.Removed {
						logger.Info("file removed", "path", c.Path)
						continue
					}
					changed = append(changed, c.FileEntry)
				}
				if len(changed) == 0 {
					return
				}
				_, _ = fmt.Fprint(a.stdout, "\n"+batch.Combine(mapper.Map(ctx, changed)))
			})
		},
	}
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp [dir]",
		Short: "Serve file maps over the Model Context Protocol on stdio",
		Long: `Start an MCP server on stdio exposing two tools:

  file_map   map source text passed inline
  map_paths  map files or directories under dir (default: current directory)

Logs go to stderr; stdout carries the protocol.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			cfg, logger, err := a.settings(cmd, root)
			if err != nil {
				return err
			}
			finder, err := newFinder(root, cfg)
			if err != nil {
				return err
			}
			mapper, err := newMapper(root, cfg, logger, nil)
			if err != nil {
				return err
			}
			return mcp.NewServer(version, mapper, finder, logger).Serve(cmd.Context())
		},
	}
}
