package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Column names shared by the spreadsheet adapters, the classifiers and the reports.
const (
	ColObservationID   = "Observation_ID"
	ColObservationText = "Observation_Text"
	ColEntity          = "Entity"
	ColMetric          = "Metric"
	ColValue           = "Value"
	ColCondition       = "Condition"
	ColAction          = "Action"
	ColCategory        = "Category"
	ColSuggestedAction = "Suggested_Action"

	ColSeverity        = "Severity"
	ColRecurrence      = "Recurrence"
	ColAnomaly         = "Anomaly"
	ColTimeSensitivity = "Time Sensitivity"

	ColLocation          = "Location"
	ColSky               = "Sky Condition"
	ColRain              = "Rain Condition"
	ColWind              = "Wind Condition"
	ColFreeText          = "Free Text Observation"
	ColLocationException = "Location Exception"
	ColClassification    = "Classification"
	ColRecommendation    = "Recommendation"
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Observation is one input row: categorical fields plus free text.
type Observation struct {
	ID     string
	Text   string
	Fields map[string]string

	mu        sync.Mutex
	embedding []float32
}

// NewObservation builds an observation, deriving a deterministic ID when id is empty.
func NewObservation(id, text string, fields map[string]string) *Observation {
	if fields == nil {
		fields = map[string]string{}
	}
	if id == "" {
		id = ObservationID(text, fields)
	}
	return &Observation{ID: id, Text: text, Fields: fields}
}

// Field returns the trimmed value of a categorical column, or "" when absent.
func (o *Observation) Field(name string) string {
	return strings.TrimSpace(o.Fields[name])
}

// Embedding returns the cached embedding of the observation text, computing it
// on first use.
func (o *Observation) Embedding(ctx context.Context, e Embedder) ([]float32, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.embedding != nil {
		return o.embedding, nil
	}
	vec, err := e.Embed(ctx, o.Text)
	if err != nil {
		return nil, fmt.Errorf("embed observation %s: %w", o.ID, err)
	}
	o.embedding = vec
	return vec, nil
}

// ObservationID returns "obs-" followed by the first 16 hex chars of a SHA-256
// over the text and the sorted fields.
func ObservationID(text string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(text))
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%s", k, fields[k])
	}
	return "obs-" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Rule pairs a condition with an action. TIME rules use Condition; weather rules
// use the exact Sky / Rain / Wind values and an optional LocationException.
type Rule struct {
	ID                string
	Condition         string
	Sky               string
	Rain              string
	Wind              string
	LocationException string
	Action            string
	Recommendation    string
}

// Description is the text embedded for semantic rule matching.
func (r Rule) Description() string {
	if r.Condition != "" {
		return r.Condition
	}
	parts := make([]string, 0, 4)
	for _, s := range []string{r.Sky, r.Rain, r.Wind, r.LocationException} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Match methods recorded on a Classification.
const (
	MethodSemantic = "semantic"
	MethodKeyword  = "keyword"
	MethodFuzzy    = "fuzzy"
	MethodRule     = "rule"
	MethodNone     = "none"
)

// Classification is the outcome for one observation.
type Classification struct {
	ObservationID  string            `json:"observation_id"`
	Text           string            `json:"text"`
	Fields         map[string]string `json:"fields,omitempty"`
	Action         string            `json:"action"`
	Method         string            `json:"method"`
	Score          float64           `json:"score"`
	MatchedRule    string            `json:"matched_rule,omitempty"`
	Recommendation string            `json:"recommendation,omitempty"`
	Suggestion     string            `json:"suggestion,omitempty"`
	Relevance      *float64          `json:"relevance,omitempty"`
	WeatherTerms   []string          `json:"weather_terms,omitempty"`
	Items          []string          `json:"items,omitempty"`
	Contradiction  string            `json:"contradiction,omitempty"`
	History        string            `json:"history,omitempty"`
	Explanation    string            `json:"explanation,omitempty"`
	Usefulness     string            `json:"usefulness,omitempty"`
	ClassifiedAt   time.Time         `json:"classified_at"`
}
