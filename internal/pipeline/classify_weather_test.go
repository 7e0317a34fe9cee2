package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/pipeline"
)

var weatherRules = []domain.Rule{
	{ID: "cloudy", Sky: "Cloudy", Rain: "Heavy", Wind: "Calm", Action: "Bad", Recommendation: "Stay inside"},
	{ID: "sunny", Sky: "Sunny", Rain: "None", Wind: "Calm", Action: "Good", Recommendation: "Wear sunglasses"},
}

func weatherEmbedder() *tableEmbedder {
	return &tableEmbedder{
		vectors: map[string][]float32{
			"Cloudy Heavy Calm":       {1, 0},
			"Sunny None Calm":         {0, 1},
			"Boston Sunny Light Calm": {0.1, 1},
		},
		fallback: []float32{-1, 0},
	}
}

func newWeatherGraph(t *testing.T, embedder domain.Embedder, chat llm.Chatter) *pipeline.WeatherGraph {
	t.Helper()
	g, err := pipeline.NewWeatherGraph(weatherRules, embedder, chat, 0.3, discardLogger())
	require.NoError(t, err)
	return g
}

func weatherObservation(location, sky, rain, wind, text string) *domain.Observation {
	return domain.NewObservation("", text, map[string]string{
		domain.ColLocation: location,
		domain.ColSky:      sky,
		domain.ColRain:     rain,
		domain.ColWind:     wind,
		domain.ColFreeText: text,
	})
}

func TestWeatherGraph_Classify(t *testing.T) {
	tests := []struct {
		name string
		obs  *domain.Observation
		want domain.Classification
	}{
		{
			name: "exact rule",
			obs:  weatherObservation("Boston", "Cloudy", "Heavy", "Calm", "Heavy rain, glad I had my umbrella"),
			want: domain.Classification{
				Action:         "Bad",
				Method:         domain.MethodRule,
				Score:          1,
				MatchedRule:    "Cloudy Heavy Calm",
				Recommendation: "Stay inside",
				Suggestion:     "Stay inside.",
				WeatherTerms:   []string{"rain"},
				Items:          []string{"umbrella"},
				Contradiction:  domain.NoContradiction,
				History:        domain.NoAdditionalSuggestions,
			},
		},
		{
			name: "semantic fallback",
			obs:  weatherObservation("Boston", "Sunny", "Light", "Calm", "Sun then rain"),
			want: domain.Classification{
				Action:         "Good",
				Method:         domain.MethodSemantic,
				Score:          0.995,
				MatchedRule:    "Sunny None Calm",
				Recommendation: "Wear sunglasses",
				Suggestion:     "Wear sunglasses. Consider using: boots, raincoat, umbrella.",
				WeatherTerms:   []string{"rain", "sun"},
				Contradiction:  "Contradiction: Sunny but mentions rain in free text. | Sun & Rain Contradiction Detected",
				History:        domain.NoAdditionalSuggestions,
			},
		},
		{
			name: "no rule",
			obs:  weatherObservation("Oslo", "Foggy", "None", "Strong", "Fog all day"),
			want: domain.Classification{
				Action:         domain.UnknownClassification,
				Method:         domain.MethodNone,
				Recommendation: domain.NoRuleRecommendation,
				Suggestion:     "No recommendation.",
				WeatherTerms:   []string{"fog"},
				Contradiction:  domain.NoContradiction,
				History:        domain.NoAdditionalSuggestions,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newWeatherGraph(t, weatherEmbedder(), nil)
			got, err := g.Classify(context.Background(), tt.obs)
			require.NoError(t, err)

			assert.Equal(t, tt.obs.ID, got.ObservationID)
			assert.False(t, got.ClassifiedAt.IsZero())
			assert.InDelta(t, tt.want.Score, got.Score, 0.01)

			got.ObservationID, got.Text, got.Fields = "", "", nil
			got.Score, tt.want.Score = 0, 0
			got.ClassifiedAt = tt.want.ClassifiedAt
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWeatherGraph_HistoryAcrossObservations(t *testing.T) {
	g := newWeatherGraph(t, nil, nil)
	ctx := context.Background()

	_, err := g.Classify(ctx, weatherObservation("Seattle", "Cloudy", "Heavy", "Calm", "Took the umbrella"))
	require.NoError(t, err)
	got, err := g.Classify(ctx, weatherObservation("Denver", "Cloudy", "Heavy", "Calm", "Overcast"))
	require.NoError(t, err)

	assert.Equal(t, "Consider using umbrella in Denver, based on past observations in Seattle.", got.History)
}

func TestWeatherGraph_Explain(t *testing.T) {
	chat := &mockChatter{reply: "Heavy rain makes going out unsafe."}
	g := newWeatherGraph(t, nil, chat)

	assert.Equal(t, []string{
		pipeline.NodeRuleMatching,
		pipeline.NodeExtractItems,
		pipeline.NodeDetectContradictions,
		pipeline.NodeGenerateRecommendation,
		pipeline.NodeExplain,
	}, g.Nodes())

	got, err := g.Classify(context.Background(), weatherObservation("Boston", "Cloudy", "Heavy", "Calm", "Heavy rain"))
	require.NoError(t, err)
	assert.Equal(t, "Heavy rain makes going out unsafe.", got.Explanation)

	require.Equal(t, 1, chat.calls())
	assert.Equal(t,
		"Explain why the recommendation 'Stay inside' was given for classification 'Bad', and how it relates to the extracted weather: 'rain'.",
		chat.prompts[0].Messages[0].Content)
}

func TestWeatherGraph_ExplainFailureKeepsClassification(t *testing.T) {
	chat := &mockChatter{errs: []error{errors.New("connection refused")}}
	g := newWeatherGraph(t, nil, chat)

	got, err := g.Classify(context.Background(), weatherObservation("Boston", "Cloudy", "Heavy", "Calm", "Heavy rain"))
	require.NoError(t, err)
	assert.Equal(t, "Bad", got.Action)
	assert.Equal(t, domain.NoAIResponse, got.Explanation)
}

func TestWeatherGraph_NoExplainNodeWithoutChatter(t *testing.T) {
	g := newWeatherGraph(t, nil, nil)
	assert.NotContains(t, g.Nodes(), pipeline.NodeExplain)
}

func TestWeatherGraph_NodesValidatedAtConstruction(t *testing.T) {
	g, err := pipeline.NewWeatherGraph(nil, nil, &mockChatter{}, 0.3, discardLogger())
	require.NoError(t, err)

	nodes := g.Nodes()
	require.Len(t, nodes, 5)
	nodes[0] = "mutated"
	assert.Equal(t, pipeline.NodeRuleMatching, g.Nodes()[0], "callers get a copy of the order")
}

func TestWeatherGraph_EmbedErrorFailsObservation(t *testing.T) {
	emb := &tableEmbedder{err: errors.New("model not loaded")}
	g := newWeatherGraph(t, emb, nil)

	_, err := g.Classify(context.Background(), weatherObservation("Oslo", "Foggy", "None", "Strong", "Fog"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node rule_matching")
	assert.Contains(t, err.Error(), "model not loaded")
}
