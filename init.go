package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	sentinelStart = "<!-- filemap:start -->"
	sentinelEnd   = "<!-- filemap:end -->"

	defaultAgentDoc = "AGENTS.md"
)

// newInitCmd builds `filemap init`, which writes (or updates) a filemap
// usage section in an agent instructions file.
func newInitCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [path-to-AGENTS.md]",
		Short: "Write a filemap usage section to an agent instructions file",
		Long: `Write a filemap usage section to an agent instructions file such as
AGENTS.md or CLAUDE.md. The section is wrapped in sentinel comments so it can
be updated in place on subsequent runs without touching surrounding content.
Creates the file if it does not exist.

The path defaults to ./AGENTS.md.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section := generateSection()

			// --dry-run with no path: just print the section itself.
			if dryRun && len(args) == 0 {
				_, _ = fmt.Fprintln(a.stdout, section)
				return nil
			}

			path := defaultAgentDoc
			if len(args) > 0 {
				path = args[0]
			}

			existing, err := os.ReadFile(path)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			updated := applySection(string(existing), section)

			if dryRun {
				_, _ = fmt.Fprint(a.stdout, updated)
				return nil
			}

			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(a.stderr, "wrote filemap section to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// generateSection returns the full sentinel-wrapped filemap documentation block.
func generateSection() string {
	body := `## filemap: File Maps

Run ` + "`filemap`" + ` via the shell before reading a large source file in full. It
prints a compact outline of the file (declarations, signatures and the first
line of each doc comment, nested by scope) so you can decide which parts to
read.

**Availability:** Check with ` + "`filemap --version`" + ` first; skip gracefully if
not found.

**Run it:**
` + "```" + `bash
filemap src/server.rs                  # one file
filemap --budget-lines 60 src/server.rs  # cap the outline at 60 lines
filemap internal/                      # every supported file under a directory
filemap -l go,python .                 # filter by language
cat snippet.py | filemap -l python -   # read from stdin
filemap -f json src/lib.rs             # machine-readable output
` + "```" + `

**All flags:** ` + "`filemap --help`" + `

**How to use the output:**

1. **Outline before reading.** Map a file first, then read only the line
   ranges you need instead of the whole file.

2. **Budgets keep the big picture.** When a budget trims the map, top-level
   declarations survive and nested members collapse to ` + "`...`" + `. Map
   again without a budget, or read the file, to expand them.

3. **Warnings mean recovery.** A map of malformed source still lists what
   could be recognized; treat its contents as approximate.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if len(content) == 0 {
		return section + "\n"
	}
	return content + "\n" + section + "\n"
}
