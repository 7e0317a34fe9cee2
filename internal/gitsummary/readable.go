package gitsummary

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// RowKind tells how a side-by-side row changed.
type RowKind int

const (
	RowContext RowKind = iota
	RowRemoved
	RowAdded
	RowChanged
)

// DiffRow is one line of the side-by-side view. A zero line number leaves
// that side blank.
type DiffRow struct {
	Kind   RowKind
	OldNum int
	Old    string
	NewNum int
	New    string
	// Words holds the word-level edit script of a RowChanged row.
	Words  []diffmatchpatch.Diff
}

// DiffHunk is the rows under one "@@" header.
type DiffHunk struct {
	Header string
	Rows   []DiffRow
}

// FileDiff is the side-by-side view of one file.
type FileDiff struct {
	Path  string
	Hunks []DiffHunk
}

var (
	hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,\d+)? \+(\d+)(?:,\d+)? @@`)
	wordDiff   = diffmatchpatch.New()
)

type pendingLine struct {
	num  int
	text string
}

// SideBySide parses a unified patch into per-file hunks of aligned rows. A run
// of removed lines followed by added lines is paired row by row; each pair
// carries a word-level diff.
func SideBySide(raw string, opts DiffOptions) []FileDiff {
	var (
		files          []FileDiff
		file           *FileDiff
		hunk           *DiffHunk
		inHeader       bool
		oldNum, newNum int
		removed, added []pendingLine
	)

	flushRun := func() {
		if hunk == nil {
			removed, added = nil, nil
			return
		}
		hunk.Rows = append(hunk.Rows, pairRun(removed, added)...)
		removed, added = nil, nil
	}
	flushFile := func() {
		flushRun()
		if file != nil && len(file.Hunks) > 0 {
			files = append(files, *file)
		}
		file, hunk = nil, nil
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if m := diffHeader.FindStringSubmatch(line); m != nil {
			flushFile()
			inHeader = true
			if p := path.Clean(m[2]); opts.keep(p) {
				file = &FileDiff{Path: p}
			}
			continue
		}
		if inHeader {
			if isPatchHeader(line) {
				continue
			}
			inHeader = false
		}
		if file == nil {
			continue
		}
		if m := hunkHeader.FindStringSubmatch(line); m != nil {
			flushRun()
			oldNum, _ = strconv.Atoi(m[1])
			newNum, _ = strconv.Atoi(m[2])
			file.Hunks = append(file.Hunks, DiffHunk{Header: line})
			hunk = &file.Hunks[len(file.Hunks)-1]
			continue
		}
		if hunk == nil || line == "" || strings.HasPrefix(line, `\`) {
			continue
		}

		switch line[0] {
		case '-':
			removed = append(removed, pendingLine{oldNum, line[1:]})
			oldNum++
		case '+':
			added = append(added, pendingLine{newNum, line[1:]})
			newNum++
		default:
			flushRun()
			text := strings.TrimPrefix(line, " ")
			hunk.Rows = append(hunk.Rows, DiffRow{Kind: RowContext, OldNum: oldNum, Old: text, NewNum: newNum, New: text})
			oldNum++
			newNum++
		}
	}
	flushFile()
	return files
}

func pairRun(removed, added []pendingLine) []DiffRow {
	rows := make([]DiffRow, 0, max(len(removed), len(added)))
	for i := range max(len(removed), len(added)) {
		switch {
		case i < len(removed) && i < len(added):
			r, a := removed[i], added[i]
			rows = append(rows, DiffRow{
				Kind: RowChanged, OldNum: r.num, Old: r.text, NewNum: a.num, New: a.text,
				Words: WordDiff(r.text, a.text),
			})
		case i < len(removed):
			rows = append(rows, DiffRow{Kind: RowRemoved, OldNum: removed[i].num, Old: removed[i].text})
		default:
			rows = append(rows, DiffRow{Kind: RowAdded, NewNum: added[i].num, New: added[i].text})
		}
	}
	return rows
}

// WordDiff returns a semantically cleaned edit script from before to after.
func WordDiff(before, after string) []diffmatchpatch.Diff {
	return wordDiff.DiffCleanupSemantic(wordDiff.DiffMain(before, after, false))
}

var (
	oldStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	newStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	oldWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Underline(true)
	newWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true).Underline(true)
	lineNumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pathStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// RenderSideBySide formats files as OLD (Removed) | NEW (Added) tables, one
// per hunk. Changed words are highlighted within paired lines.
func RenderSideBySide(files []FileDiff) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "\n%s\n", pathStyle.Render("📂 File Changed: "+f.Path))
		for _, h := range f.Hunks {
			fmt.Fprintf(&b, "%s\n", hunkStyle.Render("Section: "+h.Header))
			rows := make([][]string, len(h.Rows))
			for i, r := range h.Rows {
				rows[i] = []string{oldCell(r), newCell(r)}
			}
			cell := lipgloss.NewStyle().Padding(0, 1)
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("OLD (Removed)", "NEW (Added)").
				Rows(rows...).
				StyleFunc(func(int, int) lipgloss.Style { return cell })
			fmt.Fprintf(&b, "%s\n", t.Render())
		}
	}
	return b.String()
}

func oldCell(r DiffRow) string {
	if r.OldNum == 0 {
		return ""
	}
	num := lineNumStyle.Render(fmt.Sprintf("%d:", r.OldNum)) + " "
	switch r.Kind {
	case RowRemoved:
		return num + oldStyle.Render(r.Old)
	case RowChanged:
		return num + highlight(r.Words, diffmatchpatch.DiffDelete, oldStyle, oldWordStyle)
	default:
		return num + r.Old
	}
}

func newCell(r DiffRow) string {
	if r.NewNum == 0 {
		return ""
	}
	num := lineNumStyle.Render(fmt.Sprintf("%d:", r.NewNum)) + " "
	switch r.Kind {
	case RowAdded:
		return num + newStyle.Render(r.New)
	case RowChanged:
		return num + highlight(r.Words, diffmatchpatch.DiffInsert, newStyle, newWordStyle)
	default:
		return num + r.New
	}
}

// highlight renders one side of an edit script: equal text in base, edits
// of kind in word, and the other side's edits dropped.
func highlight(diffs []diffmatchpatch.Diff, kind diffmatchpatch.Operation, base, word lipgloss.Style) string {
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(base.Render(d.Text))
		case kind:
			b.WriteString(word.Render(d.Text))
		}
	}
	return b.String()
}
