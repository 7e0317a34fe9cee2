package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestTimeRows_SortedByRelevance(t *testing.T) {
	results := []domain.Classification{
		{ObservationID: "s1", Text: "CPU Usage", Action: "Invest", Method: domain.MethodFuzzy, Score: 0.9, MatchedRule: "CPU"},
		{ObservationID: "f1", Text: "stable", Action: "Tolerate", Method: domain.MethodKeyword, Relevance: ptr(2.4)},
		{ObservationID: "f2", Text: "legacy", Action: "Eliminate", Method: domain.MethodSemantic, Score: 0.812, Relevance: ptr(4.6), Suggestion: "Retire it"},
	}

	want := [][]string{
		{"f2", "legacy", "Eliminate", "semantic", "0.81", "", "", "Retire it", "4.6"},
		{"f1", "stable", "Tolerate", "keyword", "0", "", "", "", "2.4"},
		{"s1", "CPU Usage", "Invest", "fuzzy", "0.9", "CPU", "", "", ""},
	}
	if diff := cmp.Diff(want, TimeRows(results)); diff != "" {
		t.Errorf("TimeRows() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "s1", results[0].ObservationID)
}

func TestWeatherTableRows(t *testing.T) {
	results := []domain.Classification{{
		Text: "Rain all day",
		Fields: map[string]string{
			domain.ColLocation: "Boston", domain.ColSky: "Cloudy", domain.ColRain: "Heavy", domain.ColWind: "Calm",
		},
		Action:        "Bad",
		Method:        domain.MethodRule,
		Score:         1,
		Suggestion:    "Stay inside.",
		WeatherTerms:  []string{"rain"},
		Contradiction: domain.NoContradiction,
		History:       domain.NoAdditionalSuggestions,
	}}

	rows := WeatherTableRows(results)
	assert.Len(t, rows[0], len(WeatherColumns))
	assert.Equal(t, []string{
		"Boston", "Cloudy", "Heavy", "Calm", "Rain all day", "Bad", "Stay inside.", "rule", "1",
		"rain", "None", domain.NoContradiction, domain.NoAdditionalSuggestions, "", "",
	}, rows[0])
}

func TestActions(t *testing.T) {
	assert.Equal(t, []string{"Invest", "Bad"}, Actions([]domain.Classification{{Action: "Invest"}, {Action: "Bad"}}))
}

func TestTimeColumnsMatchRows(t *testing.T) {
	rows := TimeRows([]domain.Classification{{ObservationID: "x"}})
	assert.Len(t, rows[0], len(TimeColumns))
}
