// Package report renders classification results as markdown, HTML and
// console tables.
package report

import (
	"fmt"
	"sort"
	"strings"
)

// Count is the number of rows carrying one label.
type Count struct {
	Name  string
	Value int
}

// Summary counts labels, ordered by descending count then name.
func Summary(labels []string) []Count {
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	out := make([]Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, Count{Name: name, Value: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Markdown renders a titled report with a summary count table followed by
// the detailed rows.
func Markdown(title string, summary []Count, header []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Category | Count |\n|----------|-------|\n")
	for _, c := range summary {
		fmt.Fprintf(&b, "| %s | %d |\n", escapeCell(c.Name), c.Value)
	}

	b.WriteString("\n## Detailed Observations\n\n")
	if len(header) == 0 {
		return b.String()
	}
	writeMarkdownRow(&b, header)
	seps := make([]string, len(header))
	for i := range seps {
		seps[i] = "---"
	}
	writeMarkdownRow(&b, seps)
	for _, row := range rows {
		cells := make([]string, len(header))
		copy(cells, row)
		writeMarkdownRow(&b, cells)
	}
	return b.String()
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(escapeCell(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
