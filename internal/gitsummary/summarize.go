package gitsummary

import (
	"context"
	"fmt"
	"strings"

	"github.com/pavnask/rag-local-fork/internal/llm"
)

const (
	summarySystem   = "You are a precise assistant that summarizes YAML configuration changes."
	maxSummaryLines = 1000
)

// Summaries maps extension → file → summary text.
type Summaries map[string]map[string]string

// Len returns the number of summarised files.
func (s Summaries) Len() int {
	n := 0
	for _, files := range s {
		n += len(files)
	}
	return n
}

// SummaryPrompt builds the per-file summarisation prompt.
func SummaryPrompt(readme, file string, lines []string, language string, schemas map[string]string) *llm.Prompt {
	if len(lines) > maxSummaryLines {
		lines = lines[:maxSummaryLines]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Repository README:\n%s\n\n", readme)
	fmt.Fprintf(&b, "This is a YAML configuration file: %s\n\n", file)
	fmt.Fprintf(&b, "Below is the git diff of recent changes:\n\n%s\n\n", strings.Join(lines, "\n"))
	if len(schemas) > 0 {
		b.WriteString("Schema Context:\n")
		for _, p := range sortedKeys(schemas) {
			fmt.Fprintf(&b, "%s\n\n", schemas[p])
		}
	}
	fmt.Fprintf(&b, "Please summarize the YAML changes in %s. Explain what keys, sections, or values were added, removed, or modified. If possible, highlight any impact these changes may have on behavior or configurations.", language)
	return llm.UserPrompt(summarySystem, b.String())
}

// Summarize asks the model for one summary per changed file.
func Summarize(ctx context.Context, chat llm.Chatter, groups Groups, readme, language string, schemas map[string]string) (Summaries, error) {
	out := make(Summaries, len(groups))
	for _, ext := range groups.Extensions() {
		files := make(map[string]string, len(groups[ext]))
		for _, file := range groups.Files(ext) {
			resp, err := chat.Chat(ctx, SummaryPrompt(readme, file, groups[ext][file], language, schemas))
			if err != nil {
				return nil, fmt.Errorf("summarize %s: %w", file, err)
			}
			files[file] = strings.TrimSpace(resp.Content)
		}
		out[ext] = files
	}
	return out, nil
}
