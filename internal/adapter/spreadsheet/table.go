// Package spreadsheet reads and writes xlsx tables with excelize.
package spreadsheet

import (
	"errors"
	"strconv"
	"strings"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

// ErrNotFound is returned when the workbook or sheet does not exist.
var ErrNotFound = errors.New("spreadsheet not found")

// Table is a header row plus data rows. Rows shorter than the header are
// padded with empty cells when converted to records.
type Table struct {
	Header []string
	Rows   [][]string
}

// Has reports whether the table carries the named column.
func (t Table) Has(column string) bool {
	return t.index(column) >= 0
}

// Records returns the rows keyed by header name.
func (t Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Header))
		for i, col := range t.Header {
			if col == "" {
				continue
			}
			if i < len(row) {
				rec[col] = strings.TrimSpace(row[i])
			} else {
				rec[col] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

// Column returns every value of the named column, or nil when absent.
func (t Table) Column(column string) []string {
	idx := t.index(column)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = strings.TrimSpace(row[idx])
		}
	}
	return out
}

// Append adds a row built from rec in header order.
func (t *Table) Append(rec map[string]string) {
	row := make([]string, len(t.Header))
	for i, col := range t.Header {
		row[i] = rec[col]
	}
	t.Rows = append(t.Rows, row)
}

func (t Table) index(column string) int {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == column {
			return i
		}
	}
	return -1
}

// Observations builds one observation per record. The text is the free-text
// column when present (Observation_Text or Free Text Observation), otherwise
// the Entity of a structured row.
func Observations(t Table) []*domain.Observation {
	recs := t.Records()
	out := make([]*domain.Observation, 0, len(recs))
	for _, rec := range recs {
		text := rec[domain.ColObservationText]
		if text == "" {
			text = rec[domain.ColFreeText]
		}
		if text == "" {
			text = rec[domain.ColEntity]
		}
		out = append(out, domain.NewObservation(rec[domain.ColObservationID], text, rec))
	}
	return out
}

// Rules builds rules from either a TIME rules sheet (Condition, Action) or a
// weather rules sheet (Sky / Rain / Wind Condition, Location Exception,
// Classification, Recommendation). Rows with neither a condition nor any
// categorical value are skipped.
func Rules(t Table) []domain.Rule {
	recs := t.Records()
	out := make([]domain.Rule, 0, len(recs))
	for i, rec := range recs {
		r := domain.Rule{
			Condition:         rec[domain.ColCondition],
			Sky:               rec[domain.ColSky],
			Rain:              rec[domain.ColRain],
			Wind:              rec[domain.ColWind],
			LocationException: rec[domain.ColLocationException],
			Action:            rec[domain.ColAction],
			Recommendation:    rec[domain.ColRecommendation],
		}
		if r.Action == "" {
			r.Action = rec[domain.ColClassification]
		}
		if r.Condition == "" && r.Sky == "" && r.Rain == "" && r.Wind == "" {
			continue
		}
		r.ID = rec["Rule_ID"]
		if r.ID == "" {
			r.ID = "rule-" + strconv.Itoa(i+1)
		}
		out = append(out, r)
	}
	return out
}
