// Package sheetmatch finds semantically similar rows across two worksheets.
package sheetmatch

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/pavnask/rag-local-fork/internal/adapter/spreadsheet"
	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/pipeline"
)

// DefaultThreshold is the minimum cosine similarity for a match.
const DefaultThreshold = 0.8

// NoMatches is the report body when no pair reaches the threshold.
const NoMatches = "No matches found above the threshold."

// Output columns.
var Columns = []string{"File1_Row", "File2_Row", "Similarity", "Explanation"}

var keyPattern = regexp.MustCompile(`\bTACIR_\d+-[\p{L}\p{N}_]+`)

// Descriptions joins the cells of each row with single spaces. Rows with an
// empty cell are dropped.
func Descriptions(t spreadsheet.Table) []string {
	var out []string
	for _, row := range t.Rows {
		if len(row) < len(t.Header) {
			continue
		}
		cells := make([]string, 0, len(row))
		complete := true
		for _, c := range row {
			c = strings.TrimSpace(c)
			if c == "" {
				complete = false
				break
			}
			cells = append(cells, c)
		}
		if complete && len(cells) > 0 {
			out = append(out, strings.Join(cells, " "))
		}
	}
	return out
}

// ExtractKeys returns the TACIR keys in text.
func ExtractKeys(text string) []string {
	return keyPattern.FindAllString(text, -1)
}

// RemoveKeys strips TACIR keys and collapses the remaining whitespace.
func RemoveKeys(text string) string {
	return strings.Join(strings.Fields(keyPattern.ReplaceAllString(text, "")), " ")
}

// Match is a pair of rows whose descriptions are similar.
type Match struct {
	Row1, Row2   int
	Text1, Text2 string
	Similarity   float64
	Keys1, Keys2 []string
	Differences  []string
	Explanation  string
}

// Matcher compares two description lists.
type Matcher struct {
	embedder    domain.Embedder
	threshold   float64
	concurrency int
	logger      *slog.Logger
}

// NewMatcher creates a matcher that embeds with up to concurrency requests in flight.
func NewMatcher(embedder domain.Embedder, threshold float64, concurrency int, logger *slog.Logger) *Matcher {
	return &Matcher{embedder: embedder, threshold: threshold, concurrency: concurrency, logger: logger}
}

// Match returns every (i, j) pair with cosine similarity ≥ threshold, in
// row order. Keys are removed before embedding.
func (m *Matcher) Match(ctx context.Context, desc1, desc2 []string) ([]Match, error) {
	vecs1, err := m.embedAll(ctx, desc1)
	if err != nil {
		return nil, fmt.Errorf("embed first sheet: %w", err)
	}
	vecs2, err := m.embedAll(ctx, desc2)
	if err != nil {
		return nil, fmt.Errorf("embed second sheet: %w", err)
	}

	var matches []Match
	for i, v1 := range vecs1 {
		if v1 == nil {
			continue
		}
		for j, v2 := range vecs2 {
			if v2 == nil {
				continue
			}
			score, err := domain.Cosine(v1, v2)
			if err != nil {
				m.logger.Debug("skipping pair", "row1", i, "row2", j, "error", err)
				continue
			}
			if score < m.threshold {
				continue
			}
			matches = append(matches, newMatch(i, j, desc1[i], desc2[j], score))
		}
	}
	m.logger.Info("sheet comparison complete", "rows1", len(desc1), "rows2", len(desc2), "matches", len(matches))
	return matches, nil
}

// embedAll embeds descriptions with their keys removed. Descriptions that
// are empty without keys get a nil vector.
func (m *Matcher) embedAll(ctx context.Context, desc []string) ([][]float32, error) {
	tasks := make([]pipeline.Task[[]float32], len(desc))
	for i, d := range desc {
		text := RemoveKeys(d)
		tasks[i] = pipeline.Task[[]float32]{
			Name: fmt.Sprintf("row-%d", i),
			Run: func(ctx context.Context) ([]float32, error) {
				if text == "" {
					return nil, nil
				}
				return m.embedder.Embed(ctx, text)
			},
		}
	}

	results := pipeline.FanOut(ctx, m.concurrency, 0, tasks)
	vecs := make([][]float32, len(results))
	for i, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("%s: %w", r.Name, r.Err)
		}
		vecs[i] = r.Value
	}
	return vecs, nil
}

func newMatch(i, j int, d1, d2 string, score float64) Match {
	m := Match{
		Row1:        i,
		Row2:        j,
		Text1:       d1,
		Text2:       d2,
		Similarity:  score,
		Keys1:       ExtractKeys(d1),
		Keys2:       ExtractKeys(d2),
		Differences: wordDifference(d1, d2),
	}
	m.Explanation = explain(m)
	return m
}

// wordDifference is the sorted symmetric difference of the word sets.
func wordDifference(a, b string) []string {
	setA, setB := wordSet(a), wordSet(b)
	var diff []string
	for w := range setA {
		if !setB[w] {
			diff = append(diff, w)
		}
	}
	for w := range setB {
		if !setA[w] {
			diff = append(diff, w)
		}
	}
	sort.Strings(diff)
	return diff
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func explain(m Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match Found (Similarity: %.2f)\n", m.Similarity)
	fmt.Fprintf(&b, "File 1: %s\n", m.Text1)
	fmt.Fprintf(&b, "File 2: %s\n", m.Text2)
	fmt.Fprintf(&b, "Differences: %s\n\n", strings.Join(m.Differences, ", "))
	fmt.Fprintf(&b, "Keys Found in File 1: %s\n", strings.Join(m.Keys1, ", "))
	fmt.Fprintf(&b, "Keys Found in File 2: %s\n\n", strings.Join(m.Keys2, ", "))
	b.WriteString("Explanation: The descriptions from both files match with a high similarity score.\n")
	b.WriteString("Key differences in wording or details are highlighted above.\n")
	b.WriteString("This suggests that these entries may be related but contain slight differences in phrasing.")
	return b.String()
}

// Report renders the text report.
func Report(matches []Match) string {
	var b strings.Builder
	b.WriteString("Semantic Matching Analysis Report\n")
	b.WriteString("====================================\n\n")
	if len(matches) == 0 {
		b.WriteString(NoMatches + "\n")
		return b.String()
	}
	for _, m := range matches {
		b.WriteString(m.Explanation)
		b.WriteString("\n\n")
	}
	return b.String()
}

// Table converts matches into the output sheet.
func Table(matches []Match) spreadsheet.Table {
	t := spreadsheet.Table{Header: Columns}
	for _, m := range matches {
		t.Rows = append(t.Rows, []string{m.Text1, m.Text2, fmt.Sprintf("%.4f", m.Similarity), m.Explanation})
	}
	return t
}

// Write saves matches to an xlsx workbook.
func Write(path string, matches []Match) error {
	return spreadsheet.WriteTable(path, "Matches", Table(matches), nil)
}
