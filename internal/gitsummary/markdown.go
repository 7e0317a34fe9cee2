package gitsummary

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// NoSummary replaces an empty model answer in the report.
const NoSummary = "*No summary generated.*"

var breakingWords = []string{"removed", "deleted", "required", "breaking"}

// IsBreaking reports whether a summary mentions a potentially breaking change.
func IsBreaking(summary string) bool {
	lower := strings.ToLower(summary)
	for _, w := range breakingWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Markdown renders the summaries by file type and file. validations, keyed
// by file, add a requirements section under the file's summary.
func Markdown(summaries Summaries, validations map[string][]string) string {
	var b strings.Builder
	b.WriteString("# AI Summary of Changes\n\n")
	for _, ext := range sortedKeys(summaries) {
		fmt.Fprintf(&b, "## %s Files\n\n", strings.ToUpper(ext))
		for _, file := range sortedKeys(summaries[ext]) {
			summary := summaries[ext][file]
			fmt.Fprintf(&b, "### %s\n\n", file)
			if IsBreaking(summary) {
				b.WriteString("**🚨 Potential Breaking Change Detected**\n\n")
			}
			if strings.TrimSpace(summary) == "" {
				summary = NoSummary
			}
			fmt.Fprintf(&b, "%s\n\n", summary)

			if v, ok := validations[file]; ok {
				b.WriteString("#### Requirements Check\n\n")
				for _, line := range v {
					fmt.Fprintf(&b, "- %s\n", line)
				}
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

// Render formats Markdown for the terminal.
func Render(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render(md)
}

// CommitTable renders the commit history as a terminal table.
func CommitTable(commits []Commit) string {
	rows := make([][]string, len(commits))
	for i, c := range commits {
		rows[i] = []string{
			fmt.Sprint(i),
			shortHash(c.Hash),
			c.Author,
			c.Date.Format("2006-01-02 15:04:05"),
			firstLine(c.Message),
		}
	}
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("#", "Commit", "Author", "Date", "Message").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	return t.Render()
}

func shortHash(h string) string {
	if len(h) > 10 {
		return h[:10]
	}
	return h
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
