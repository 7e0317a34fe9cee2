package gitsummary

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/llm"
)

// NoSignificantChanges replaces the impact analysis of an empty diff.
const NoSignificantChanges = "**No significant changes detected.**"

var tagRef = regexp.MustCompile(`tag:\s*(\S+)`)

// Impact is the removed and added text of a diff plus the objects other
// objects reference through tag fields.
type Impact struct {
	Removed  string
	Added    string
	Affected []string
}

// Empty reports whether the diff neither removed nor added anything.
func (i Impact) Empty() bool {
	return i.Removed == "" && i.Added == ""
}

// AnalyzeImpact extracts "- " and "+ " content lines and tag references.
func AnalyzeImpact(diff string) Impact {
	var removed, added []string
	tags := map[string]bool{}
	for _, line := range strings.Split(diff, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "- ") && !strings.HasPrefix(line, "---"):
			removed = append(removed, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "+ ") && !strings.HasPrefix(line, "+++"):
			added = append(added, strings.TrimSpace(line[2:]))
		}
		if m := tagRef.FindStringSubmatch(line); m != nil {
			tags[m[1]] = true
		}
	}
	affected := make([]string, 0, len(tags))
	for t := range tags {
		affected = append(affected, t)
	}
	sort.Strings(affected)
	return Impact{Removed: strings.Join(removed, "\n"), Added: strings.Join(added, "\n"), Affected: affected}
}

// ImpactPrompt asks the model how the changes affect referenced objects.
func ImpactPrompt(i Impact) *llm.Prompt {
	var b strings.Builder
	b.WriteString("You are analyzing changes in a system where objects reference each other via `tag` fields.\n")
	b.WriteString("Identify the impact of changes on other objects.\n\n")
	fmt.Fprintf(&b, "**Changed Objects:**\n%s\n\n%s\n\n", orPlaceholder(i.Removed, "[No removed content]"), orPlaceholder(i.Added, "[No added content]"))
	fmt.Fprintf(&b, "**Affected Objects (via tag dependency):**\n%s\n\n", orPlaceholder(strings.Join(i.Affected, ", "), "[No affected objects detected]"))
	b.WriteString("**Rules:**\n")
	b.WriteString("- Explain how the modifications impact referenced objects.\n")
	b.WriteString("- Identify whether the affected objects require updates.\n")
	b.WriteString("- Format the response in Markdown.")
	return llm.UserPrompt("", b.String())
}

// ImpactMarkdown renders the impact report around the model's analysis.
func ImpactMarkdown(i Impact, analysis string) string {
	var b strings.Builder
	b.WriteString("# 🚀 AI-Powered Git Diff Analysis\n\n")
	fmt.Fprintf(&b, "## 🔍 AI Summary of Changes:\n%s\n\n---\n\n", analysis)
	fmt.Fprintf(&b, "## ❌ OLD (Removed) Content:\n```diff\n%s\n```\n\n", orPlaceholder(i.Removed, "[No removed content.]"))
	fmt.Fprintf(&b, "## ✅ NEW (Added) Content:\n```diff\n%s\n```\n\n---\n\n", orPlaceholder(i.Added, "[No added content.]"))
	fmt.Fprintf(&b, "## 🔗 Impact Analysis: Affected Objects\n- %s\n", orPlaceholder(strings.Join(i.Affected, ", "), "No linked objects affected."))
	return b.String()
}

// StructuredPrompt asks the model for added, deleted and modified objects as JSON.
func StructuredPrompt(diff string) *llm.Prompt {
	var b strings.Builder
	b.WriteString("You are an AI that analyzes Git diffs and extracts structured changes.\n\n")
	b.WriteString("**Rules:**\n")
	b.WriteString("- Only return valid JSON. Do NOT include any extra text, explanations, or formatting.\n")
	b.WriteString("- If no changes are found, return:\n  {\"added_objects\": [], \"deleted_objects\": [], \"modified_objects\": []}\n\n")
	b.WriteString("**JSON format:**\n")
	b.WriteString(`{"added_objects": ["..."], "deleted_objects": ["..."], "modified_objects": [{"object": "name", "changes": {"attribute": "Old Value → New Value"}}]}`)
	fmt.Fprintf(&b, "\n\n**Git Diff to Analyze:**\n%s", diff)
	return llm.UserPrompt("", b.String())
}

// StructuredMarkdown renders parsed structured changes.
func StructuredMarkdown(sc domain.StructuredChanges) string {
	var b strings.Builder
	b.WriteString("# 📜 Structured Git Diff Report\n\n")
	b.WriteString("## ✅ Added Objects\n")
	writeList(&b, sc.Added, "No objects added.")
	b.WriteString("\n## ❌ Deleted Objects\n")
	writeList(&b, sc.Deleted, "No objects deleted.")
	b.WriteString("\n## 🔄 Modified Objects\n")
	if len(sc.Modified) == 0 {
		b.WriteString("- No objects modified.\n")
	}
	for _, m := range sc.Modified {
		fmt.Fprintf(&b, "- **%s**\n", m.Object)
		for _, attr := range sortedKeys(m.Changes) {
			fmt.Fprintf(&b, "  - %s: %s\n", attr, m.Changes[attr])
		}
	}
	return b.String()
}

func writeList(b *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "- %s\n", empty)
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
