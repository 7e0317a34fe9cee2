package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// NoMatchLabel is the label returned when no candidate reaches the threshold.
const NoMatchLabel = "No Strong Match Found"

// snapEpsilon absorbs float32 rounding so identical vectors score exactly 1.
const snapEpsilon = 1e-6

var (
	ErrZeroVector        = errors.New("zero vector")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidThreshold  = errors.New("threshold must be within [0,1]")
)

// Candidate is one entry of a retrieval set.
type Candidate struct {
	Text           string
	Vector         []float32
	Label          string
	Recommendation string
}

// Match is the result of a nearest-neighbour lookup. Index is -1 and Label is
// NoMatchLabel when Matched is false; Score then still holds the best score seen.
type Match struct {
	Index     int
	Candidate Candidate
	Label     string
	Score     float64
	Matched   bool
}

// Scored is a candidate index with its similarity.
type Scored struct {
	Index int
	Score float64
}

// Cosine returns the raw cosine similarity of a and b in [-1,1].
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, ErrZeroVector
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Similarity is Cosine clamped into [0,1], with near-1 values snapped to 1.
func Similarity(a, b []float32) (float64, error) {
	s, err := Cosine(a, b)
	if err != nil {
		return 0, err
	}
	return clampScore(s), nil
}

func clampScore(s float64) float64 {
	switch {
	case math.IsNaN(s) || s <= 0:
		return 0
	case s > 1-snapEpsilon:
		return 1
	default:
		return s
	}
}

// Nearest returns the candidate with the highest similarity to query. The first
// candidate wins ties. An empty candidate set yields a no-match result.
func Nearest(query []float32, candidates []Candidate, threshold float64) (Match, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return Match{}, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	if IsZero(query) {
		return Match{}, fmt.Errorf("query: %w", ErrZeroVector)
	}

	noMatch := Match{Index: -1, Label: NoMatchLabel}
	if len(candidates) == 0 {
		return noMatch, nil
	}

	best, bestScore := -1, -1.0
	for i, c := range candidates {
		s, err := Similarity(query, c.Vector)
		if err != nil {
			return Match{}, fmt.Errorf("candidate %d: %w", i, err)
		}
		if s > bestScore {
			best, bestScore = i, s
		}
	}

	if bestScore < threshold {
		noMatch.Score = bestScore
		return noMatch, nil
	}
	return Match{
		Index:     best,
		Candidate: candidates[best],
		Label:     candidates[best].Label,
		Score:     bestScore,
		Matched:   true,
	}, nil
}

// TopK returns up to k candidates ordered by descending similarity, earlier
// candidates first among equal scores. k <= 0 returns every candidate.
func TopK(query []float32, candidates []Candidate, k int) ([]Scored, error) {
	if IsZero(query) {
		return nil, fmt.Errorf("query: %w", ErrZeroVector)
	}
	scored := make([]Scored, 0, len(candidates))
	for i, c := range candidates {
		s, err := Similarity(query, c.Vector)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		scored = append(scored, Scored{Index: i, Score: s})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// IsZero reports whether v has no non-zero component. An empty vector is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
