package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/pipeline"
)

var timeRules = []domain.Rule{
	{ID: "R1", Condition: "Performance degraded", Action: domain.ActionMigrate, Recommendation: "Plan a cloud move"},
	{ID: "R2", Condition: "Security audit failed", Action: domain.ActionEliminate},
}

func timeEmbedder() *tableEmbedder {
	return &tableEmbedder{
		vectors: map[string][]float32{
			"Performance degraded":   {1, 0, 0},
			"Security audit failed":  {0, 1, 0},
			"Response times doubled": {1, 0, 0},
			"System has been stable": {0.33, 0, 0.944},
		},
		fallback: []float32{0, 0, 1},
	}
}

var defaultThresholds = pipeline.TimeThresholds{Match: 0.3, Keyword: 0.35, Fuzzy: 75}

func TestTimeClassifier_FreeText(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantAction string
		wantMethod string
		wantRule   string
	}{
		{"semantic match", "Response times doubled", domain.ActionMigrate, domain.MethodSemantic, "Performance degraded"},
		{"low confidence falls back to keywords", "System has been stable", domain.ActionTolerate, domain.MethodKeyword, ""},
		{"no match anywhere", "nothing notable", domain.NoMatchLabel, domain.MethodNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := pipeline.NewTimeClassifier(timeRules, timeEmbedder(), nil, defaultThresholds, discardLogger())
			got, err := c.Classify(context.Background(), obs("", tt.text))
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, got.Action)
			assert.Equal(t, tt.wantMethod, got.Method)
			assert.Equal(t, tt.wantRule, got.MatchedRule)
			assert.Nil(t, got.Relevance)
			assert.Empty(t, got.Suggestion)
			assert.False(t, got.ClassifiedAt.IsZero())
		})
	}
}

func TestTimeClassifier_SemanticCarriesRecommendation(t *testing.T) {
	c := pipeline.NewTimeClassifier(timeRules, timeEmbedder(), nil, defaultThresholds, discardLogger())
	got, err := c.Classify(context.Background(), obs("o1", "Response times doubled"))
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ObservationID)
	assert.Equal(t, "Plan a cloud move", got.Recommendation)
	assert.InDelta(t, 1.0, got.Score, 1e-9)
}

func TestTimeClassifier_EmbedsRulesOnce(t *testing.T) {
	emb := timeEmbedder()
	c := pipeline.NewTimeClassifier(timeRules, emb, nil, defaultThresholds, discardLogger())
	for _, text := range []string{"Response times doubled", "System has been stable", "other"} {
		_, err := c.Classify(context.Background(), obs("", text))
		require.NoError(t, err)
	}
	assert.Equal(t, len(timeRules)+3, emb.calls())
}

func TestTimeClassifier_KeywordsWithoutEmbedder(t *testing.T) {
	c := pipeline.NewTimeClassifier(timeRules, nil, nil, defaultThresholds, discardLogger())
	got, err := c.Classify(context.Background(), obs("", "Security audit failed twice"))
	require.NoError(t, err)
	assert.Equal(t, domain.ActionEliminate, got.Action)
	assert.Equal(t, domain.MethodKeyword, got.Method)
}

func TestTimeClassifier_EmbedError(t *testing.T) {
	emb := &tableEmbedder{err: errors.New("model not loaded")}
	c := pipeline.NewTimeClassifier(timeRules, emb, nil, defaultThresholds, discardLogger())
	_, err := c.Classify(context.Background(), obs("", "anything"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestTimeClassifier_Structured(t *testing.T) {
	tests := []struct {
		name       string
		metric     string
		wantAction string
		wantMethod string
	}{
		{"fuzzy metric match", "performance degraded", domain.ActionMigrate, domain.MethodFuzzy},
		{"unrelated metric", "uptime", domain.NoMatchLabel, domain.MethodNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := timeEmbedder()
			c := pipeline.NewTimeClassifier(timeRules, emb, nil, defaultThresholds, discardLogger())
			o := domain.NewObservation("", "ERP", map[string]string{
				domain.ColEntity: "ERP", domain.ColMetric: tt.metric, domain.ColValue: "80",
			})
			got, err := c.Classify(context.Background(), o)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, got.Action)
			assert.Equal(t, tt.wantMethod, got.Method)
			assert.Zero(t, emb.calls())
		})
	}
}

func TestTimeClassifier_RelevanceAndSuggestion(t *testing.T) {
	chat := &mockChatter{reply: "Migrate: the platform is end of life."}
	c := pipeline.NewTimeClassifier(timeRules, timeEmbedder(), chat, defaultThresholds, discardLogger())

	o := domain.NewObservation("", "Response times doubled", map[string]string{
		domain.ColObservationText: "Response times doubled",
		domain.ColSeverity:        "Critical",
		domain.ColRecurrence:      "Frequent",
		domain.ColAnomaly:         "Extreme",
		domain.ColTimeSensitivity: "Immediate",
	})
	got, err := c.Classify(context.Background(), o)
	require.NoError(t, err)

	require.NotNil(t, got.Relevance)
	assert.InDelta(t, 5.0, *got.Relevance, 1e-9)
	assert.Equal(t, "Migrate: the platform is end of life.", got.Suggestion)

	require.Equal(t, 1, chat.calls())
	p := chat.prompts[0]
	assert.Equal(t, "You are an IT analyst specializing in system evaluations.", p.System)
	assert.Contains(t, p.Messages[0].Content, "\"Response times doubled\"")
}

func TestTimeClassifier_SuggestionFailureFallsBack(t *testing.T) {
	chat := &mockChatter{errs: []error{errors.New("timeout")}}
	c := pipeline.NewTimeClassifier(timeRules, nil, chat, defaultThresholds, discardLogger())
	got, err := c.Classify(context.Background(), obs("", "legacy mainframe"))
	require.NoError(t, err)
	assert.Equal(t, domain.NoAIResponse, got.Suggestion)
	assert.Equal(t, domain.ActionEliminate, got.Action)
}

func TestTimePrompt(t *testing.T) {
	p := pipeline.TimePrompt("Disk full")
	assert.Contains(t, p, "\"Disk full\"")
	for _, a := range domain.TimeActions {
		assert.Contains(t, p, "- "+a+"\n")
	}
}
