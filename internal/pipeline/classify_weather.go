package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/llm"
)

// Weather graph node names.
const (
	NodeRuleMatching           = "rule_matching"
	NodeExtractItems           = "extract_items"
	NodeDetectContradictions   = "detect_contradictions"
	NodeGenerateRecommendation = "generate_recommendation"
	NodeExplain                = "explain"
)

// WeatherState flows through the weather graph.
type WeatherState struct {
	Obs *domain.Observation

	Classification string
	Recommendation string
	MatchedRule    string
	Method         string
	Score          float64

	Weather        []string
	Items          []string
	Contradictions []string
	Suggestion     string
	History        string
	Explanation    string
}

// NewWeatherState starts a state with the default labels.
func NewWeatherState(obs *domain.Observation) *WeatherState {
	return &WeatherState{
		Obs:            obs,
		Classification: domain.UnknownClassification,
		Recommendation: domain.NoRuleRecommendation,
		Method:         domain.MethodNone,
	}
}

// WeatherGraph classifies weather observations by running them through
// rule_matching, extract_items, detect_contradictions,
// generate_recommendation and, when a chatter is set, explain.
type WeatherGraph struct {
	rules     []domain.Rule
	embedder  domain.Embedder
	chat      llm.Chatter
	threshold float64
	history   *domain.LocationHistory
	graph     *Graph[WeatherState]
	order     []string
	logger    *slog.Logger

	mu         sync.Mutex
	candidates []domain.Candidate
}

// NewWeatherGraph builds and validates the graph. A nil embedder disables the
// semantic rule fallback; a nil chatter drops the explain node.
func NewWeatherGraph(rules []domain.Rule, embedder domain.Embedder, chat llm.Chatter, threshold float64, logger *slog.Logger) (*WeatherGraph, error) {
	w := &WeatherGraph{
		rules:     rules,
		embedder:  embedder,
		chat:      chat,
		threshold: threshold,
		history:   domain.NewLocationHistory(),
		logger:    logger,
	}

	g := NewGraph[WeatherState]().
		AddNode(NodeRuleMatching, w.ruleMatching).
		AddNode(NodeExtractItems, extractItems).
		AddNode(NodeDetectContradictions, detectContradictions).
		AddNode(NodeGenerateRecommendation, w.generateRecommendation).
		AddEdge(NodeRuleMatching, NodeExtractItems).
		AddEdge(NodeExtractItems, NodeDetectContradictions).
		AddEdge(NodeDetectContradictions, NodeGenerateRecommendation).
		SetEntry(NodeRuleMatching)
	if chat != nil {
		g.AddNode(NodeExplain, w.explain).AddEdge(NodeGenerateRecommendation, NodeExplain)
	}
	order, err := g.Order()
	if err != nil {
		return nil, fmt.Errorf("build weather graph: %w", err)
	}
	w.graph = g
	w.order = order
	return w, nil
}

// Nodes returns the node names in execution order.
func (w *WeatherGraph) Nodes() []string {
	return slices.Clone(w.order)
}

// Classify implements Classifier.
func (w *WeatherGraph) Classify(ctx context.Context, obs *domain.Observation) (domain.Classification, error) {
	state := NewWeatherState(obs)
	if err := w.graph.Run(ctx, state); err != nil {
		return domain.Classification{}, fmt.Errorf("weather graph for %s: %w", obs.ID, err)
	}
	return domain.Classification{
		ObservationID:  obs.ID,
		Text:           obs.Text,
		Fields:         obs.Fields,
		Action:         state.Classification,
		Method:         state.Method,
		Score:          state.Score,
		MatchedRule:    state.MatchedRule,
		Recommendation: state.Recommendation,
		Suggestion:     state.Suggestion,
		WeatherTerms:   state.Weather,
		Items:          state.Items,
		Contradiction:  domain.ContradictionText(state.Contradictions),
		History:        state.History,
		Explanation:    state.Explanation,
		ClassifiedAt:   domain.Now(),
	}, nil
}

func (w *WeatherGraph) ruleMatching(ctx context.Context, s *WeatherState) error {
	if r, ok := domain.MatchWeatherRule(s.Obs, w.rules); ok {
		s.apply(r, domain.MethodRule, 1)
		return nil
	}
	if w.embedder == nil || len(w.rules) == 0 {
		return nil
	}

	text := conditionsText(s.Obs)
	if text == "" {
		return nil
	}
	cands, err := w.ruleCandidates(ctx)
	if err != nil {
		return err
	}
	vec, err := w.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed conditions: %w", err)
	}
	m, err := domain.Nearest(vec, cands, w.threshold)
	if err != nil {
		return err
	}
	s.Score = m.Score
	if m.Matched {
		s.apply(w.rules[m.Index], domain.MethodSemantic, m.Score)
	}
	return nil
}

func (s *WeatherState) apply(r domain.Rule, method string, score float64) {
	s.Classification = r.Action
	if r.Recommendation != "" {
		s.Recommendation = r.Recommendation
	}
	s.MatchedRule = r.Description()
	s.Method = method
	s.Score = score
}

func extractItems(_ context.Context, s *WeatherState) error {
	s.Weather, s.Items = domain.ExtractEntities(s.Obs.Text)
	return nil
}

func detectContradictions(_ context.Context, s *WeatherState) error {
	s.Contradictions = domain.DetectContradictions(s.Obs.Field(domain.ColSky), s.Obs.Text)
	return nil
}

func (w *WeatherGraph) generateRecommendation(_ context.Context, s *WeatherState) error {
	location := s.Obs.Field(domain.ColLocation)
	missing := domain.MissingGear(location, s.Obs.Text, s.Items)
	s.Suggestion = domain.GearRecommendation(s.Recommendation, missing)
	s.History = w.history.Observe(location, s.Items)
	return nil
}

// explain asks the model to justify the recommendation. Model failures leave
// the fallback text instead of failing the observation.
func (w *WeatherGraph) explain(ctx context.Context, s *WeatherState) error {
	prompt := fmt.Sprintf("Explain why the recommendation '%s' was given for classification '%s', and how it relates to the extracted weather: '%s'.",
		s.Recommendation, s.Classification, domain.JoinOrNone(s.Weather))
	resp, err := w.chat.Chat(ctx, llm.UserPrompt("", prompt))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn("ai explanation failed", "observation_id", s.Obs.ID, "error", err)
		s.Explanation = domain.NoAIResponse
		return nil
	}
	s.Explanation = llm.ContentOrFallback(resp)
	return nil
}

// ruleCandidates embeds each rule's categorical columns once.
func (w *WeatherGraph) ruleCandidates(ctx context.Context) ([]domain.Candidate, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.candidates != nil {
		return w.candidates, nil
	}
	cands := make([]domain.Candidate, len(w.rules))
	for i, r := range w.rules {
		vec, err := w.embedder.Embed(ctx, r.Description())
		if err != nil {
			return nil, fmt.Errorf("embed rule %s: %w", r.ID, err)
		}
		cands[i] = domain.Candidate{Text: r.Description(), Vector: vec, Label: r.Action, Recommendation: r.Recommendation}
	}
	w.candidates = cands
	return cands, nil
}

// conditionsText joins the categorical columns of a weather observation.
func conditionsText(obs *domain.Observation) string {
	return joinNonEmpty(
		obs.Field(domain.ColLocation),
		obs.Field(domain.ColSky),
		obs.Field(domain.ColRain),
		obs.Field(domain.ColWind),
	)
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
