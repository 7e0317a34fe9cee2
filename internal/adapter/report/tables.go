package report

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

// TIME report columns.
const (
	ColDescription    = "Description"
	ColTimeClass      = "TIME_Classification"
	ColMatchMethod    = "Match_Method"
	ColMatchScore     = "Match_Score"
	ColMatchedRule    = "Matched_Condition"
	ColAISuggestion   = "OLLAMA_Suggestion"
	ColRelevanceScore = "Relevance_Score"
)

// TimeColumns is the header of the TIME classification sheet.
var TimeColumns = []string{
	domain.ColObservationID,
	ColDescription,
	ColTimeClass,
	ColMatchMethod,
	ColMatchScore,
	ColMatchedRule,
	domain.ColSuggestedAction,
	ColAISuggestion,
	ColRelevanceScore,
}

// WeatherColumns is the header of the weather classification sheet.
var WeatherColumns = []string{
	domain.ColLocation,
	domain.ColSky,
	domain.ColRain,
	domain.ColWind,
	domain.ColFreeText,
	domain.ColClassification,
	domain.ColRecommendation,
	ColMatchMethod,
	ColMatchScore,
	"Weather_Terms",
	"Items",
	"Contradictions",
	"History",
	"Explanation",
	"AI_Usefulness",
}

// TimeRows converts classifications into TIME sheet rows. Rows with a
// relevance score come first, highest score first; the rest keep their order.
func TimeRows(results []domain.Classification) [][]string {
	sorted := make([]domain.Classification, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Relevance, sorted[j].Relevance
		switch {
		case ri == nil:
			return false
		case rj == nil:
			return true
		default:
			return *ri > *rj
		}
	})

	rows := make([][]string, 0, len(sorted))
	for _, c := range sorted {
		relevance := ""
		if c.Relevance != nil {
			relevance = formatScore(*c.Relevance)
		}
		rows = append(rows, []string{
			c.ObservationID,
			c.Text,
			c.Action,
			c.Method,
			formatScore(c.Score),
			c.MatchedRule,
			c.Recommendation,
			c.Suggestion,
			relevance,
		})
	}
	return rows
}

// WeatherTableRows converts classifications into weather sheet rows.
func WeatherTableRows(results []domain.Classification) [][]string {
	rows := make([][]string, 0, len(results))
	for _, c := range results {
		rows = append(rows, []string{
			c.Fields[domain.ColLocation],
			c.Fields[domain.ColSky],
			c.Fields[domain.ColRain],
			c.Fields[domain.ColWind],
			c.Text,
			c.Action,
			c.Suggestion,
			c.Method,
			formatScore(c.Score),
			domain.JoinOrNone(c.WeatherTerms),
			domain.JoinOrNone(c.Items),
			c.Contradiction,
			c.History,
			c.Explanation,
			c.Usefulness,
		})
	}
	return rows
}

// Actions returns the action of every classification, in order.
func Actions(results []domain.Classification) []string {
	out := make([]string, len(results))
	for i, c := range results {
		out[i] = c.Action
	}
	return out
}

func formatScore(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
