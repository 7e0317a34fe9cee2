package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/llm"
)

const timeAnalystSystem = "You are an IT analyst specializing in system evaluations."

// TimeThresholds tune the TIME classifier.
type TimeThresholds struct {
	// Match is the minimum cosine similarity for a semantic rule match.
	Match float64
	// Keyword is the similarity under which the keyword table is consulted
	// even when a semantic match exists.
	Keyword float64
	// Fuzzy is the WeightedRatio a structured metric must exceed.
	Fuzzy int
}

// TimeClassifier assigns Tolerate / Invest / Migrate / Eliminate to IT
// observations. Free text is matched semantically against rule conditions
// with a keyword fallback; structured rows are fuzzy-matched on Metric.
type TimeClassifier struct {
	rules      []domain.Rule
	embedder   domain.Embedder
	chat       llm.Chatter
	thresholds TimeThresholds
	logger     *slog.Logger

	mu         sync.Mutex
	candidates []domain.Candidate
}

// NewTimeClassifier creates a classifier. A nil embedder disables semantic
// matching; a nil chatter disables AI suggestions.
func NewTimeClassifier(rules []domain.Rule, embedder domain.Embedder, chat llm.Chatter, th TimeThresholds, logger *slog.Logger) *TimeClassifier {
	return &TimeClassifier{
		rules:      rules,
		embedder:   embedder,
		chat:       chat,
		thresholds: th,
		logger:     logger,
	}
}

// Classify implements Classifier.
func (c *TimeClassifier) Classify(ctx context.Context, obs *domain.Observation) (domain.Classification, error) {
	out := domain.Classification{
		ObservationID: obs.ID,
		Text:          obs.Text,
		Fields:        obs.Fields,
		Action:        domain.NoMatchLabel,
		Method:        domain.MethodNone,
	}

	var err error
	if metric := obs.Field(domain.ColMetric); metric != "" {
		c.classifyStructured(metric, &out)
	} else {
		err = c.classifyFreeText(ctx, obs, &out)
	}
	if err != nil {
		return domain.Classification{}, err
	}

	if domain.HasRelevanceColumns(obs.Fields) {
		score := domain.RelevanceScore(obs.Fields)
		out.Relevance = &score
	}

	if c.chat != nil && obs.Text != "" {
		out.Suggestion = c.suggest(ctx, obs)
	}
	out.ClassifiedAt = domain.Now()
	return out, nil
}

func (c *TimeClassifier) classifyStructured(metric string, out *domain.Classification) {
	conditions := make([]string, len(c.rules))
	for i, r := range c.rules {
		conditions[i] = r.Condition
	}
	m, ok := domain.BestFuzzy(metric, conditions)
	if !ok {
		return
	}
	out.Score = float64(m.Score) / 100
	if m.Score <= c.thresholds.Fuzzy {
		return
	}
	rule := c.rules[m.Index]
	out.Action = rule.Action
	out.Method = domain.MethodFuzzy
	out.MatchedRule = rule.Condition
	out.Recommendation = rule.Recommendation
}

func (c *TimeClassifier) classifyFreeText(ctx context.Context, obs *domain.Observation, out *domain.Classification) error {
	if c.embedder != nil && len(c.rules) > 0 {
		cands, err := c.ruleCandidates(ctx)
		if err != nil {
			return err
		}
		vec, err := obs.Embedding(ctx, c.embedder)
		if err != nil {
			return err
		}
		m, err := domain.Nearest(vec, cands, c.thresholds.Match)
		if err != nil {
			return fmt.Errorf("match observation %s: %w", obs.ID, err)
		}
		out.Score = m.Score
		if m.Matched && m.Score >= c.thresholds.Keyword {
			rule := c.rules[m.Index]
			out.Action = rule.Action
			out.Method = domain.MethodSemantic
			out.MatchedRule = rule.Condition
			out.Recommendation = rule.Recommendation
			return nil
		}
	}

	if action, ok := domain.KeywordAction(obs.Text); ok {
		out.Action = action
		out.Method = domain.MethodKeyword
	}
	return nil
}

// ruleCandidates embeds the rule conditions once. A failed attempt is retried
// on the next call.
func (c *TimeClassifier) ruleCandidates(ctx context.Context) ([]domain.Candidate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.candidates != nil {
		return c.candidates, nil
	}
	cands := make([]domain.Candidate, len(c.rules))
	for i, r := range c.rules {
		vec, err := c.embedder.Embed(ctx, r.Description())
		if err != nil {
			return nil, fmt.Errorf("embed rule %s: %w", r.ID, err)
		}
		cands[i] = domain.Candidate{Text: r.Description(), Vector: vec, Label: r.Action, Recommendation: r.Recommendation}
	}
	c.candidates = cands
	c.logger.Debug("rule conditions embedded", "rules", len(cands))
	return cands, nil
}

func (c *TimeClassifier) suggest(ctx context.Context, obs *domain.Observation) string {
	resp, err := c.chat.Chat(ctx, llm.UserPrompt(timeAnalystSystem, TimePrompt(obs.Text)))
	if err != nil {
		c.logger.Warn("ai suggestion failed", "observation_id", obs.ID, "error", err)
		return domain.NoAIResponse
	}
	return llm.ContentOrFallback(resp)
}

// TimePrompt asks the model to place an observation in the TIME framework.
func TimePrompt(text string) string {
	var b strings.Builder
	b.WriteString("Given the following IT system observation:\n")
	fmt.Fprintf(&b, "%q\n\n", text)
	b.WriteString("Classify the system into one of these categories:\n")
	for _, a := range domain.TimeActions {
		fmt.Fprintf(&b, "- %s\n", a)
	}
	b.WriteString("\nAlso, provide a short explanation for your classification.")
	return b.String()
}
