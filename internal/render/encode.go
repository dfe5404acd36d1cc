package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/filemap/internal/toon"
)

// Format names an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatTOON Format = "toon"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the supported encodings.
var Formats = []Format{FormatText, FormatTOON, FormatJSON, FormatYAML}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want text, toon, json or yaml)", s)
}

// Encode renders m in format f.
func Encode(m *Map, f Format) (string, error) {
	switch f {
	case FormatText, "":
		return Text(m), nil
	case FormatTOON:
		return TOON(m) + "\n", nil
	case FormatJSON:
		out, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding json: %w", err)
		}
		return string(out) + "\n", nil
	case FormatYAML:
		out, err := yaml.Marshal(m)
		if err != nil {
			return "", fmt.Errorf("encoding yaml: %w", err)
		}
		return string(out), nil
	}
	return "", fmt.Errorf("unknown format %q", f)
}

// TOON renders m as a TOON document with an entries table.
func TOON(m *Map) string {
	var rows [][]string
	for _, e := range m.Entries {
		if e.Marker {
			rows = append(rows, []string{strconv.Itoa(e.Depth), "", "", "", "", Ellipsis, ""})
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Depth),
			string(e.Kind),
			e.Name,
			strconv.Itoa(e.Line),
			strconv.Itoa(e.EndLine),
			oneLine(e.Signature),
			firstLine(e.Doc),
		})
	}
	var relations [][]string
	for _, r := range m.Relations {
		relations = append(relations, []string{r.Kind, r.From, strconv.Itoa(r.FromLine), r.To, strconv.Itoa(r.ToLine)})
	}
	var warnings [][]string
	for _, w := range m.Warnings {
		warnings = append(warnings, []string{w})
	}
	return toon.Encode(toon.Document{
		Fields: []toon.Field{
			{Key: "language", Value: m.Language},
			{Key: "recovered", Value: strconv.FormatBool(m.Recovered), Literal: true},
			{Key: "budget_infeasible", Value: strconv.FormatBool(m.BudgetInfeasible), Literal: true},
			{Key: "elided", Value: strconv.Itoa(m.Elided), Literal: true},
		},
		Tables: []toon.Table{
			{Name: "entries", Columns: []string{"depth", "kind", "name", "line", "end_line", "signature", "doc"}, Rows: rows},
			{Name: "relations", Columns: []string{"kind", "from", "from_line", "to", "to_line"}, Rows: relations, OmitEmpty: true},
			{Name: "warnings", Columns: []string{"message"}, Rows: warnings, OmitEmpty: true},
		},
	})
}

// Placeholders used in combined output for files without a map.
const (
	NoMap         = "[NO MAP]"
	NoMapTooLarge = "[NO MAP - TOO LARGE]"
)

// FileMap is one file's contribution to a combined map. Body holds the
// encoded map or a placeholder.
type FileMap struct {
	Path string
	Body string
}

// Combine joins per-file maps under "### path" headings, sorted by path.
func Combine(files []FileMap) string {
	sorted := make([]FileMap, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var b strings.Builder
	for i, f := range sorted {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "### %s\n", f.Path)
		body := f.Body
		if strings.TrimSpace(body) == "" {
			body = NoMap
		}
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
