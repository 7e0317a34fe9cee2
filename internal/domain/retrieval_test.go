package domain

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder maps each lower-cased token to a bucket, giving identical texts
// identical vectors.
type hashEmbedder struct {
	dim   int
	calls int
}

func (h *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h.calls++
	v := make([]float32, h.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		f := fnv.New32a()
		f.Write([]byte(tok))
		v[int(f.Sum32())%h.dim]++
	}
	return v, nil
}

func embedAll(t *testing.T, e Embedder, texts ...string) []Candidate {
	t.Helper()
	out := make([]Candidate, len(texts))
	for i, s := range texts {
		v, err := e.Embed(context.Background(), s)
		require.NoError(t, err)
		out[i] = Candidate{Text: s, Vector: v, Label: s}
	}
	return out
}

func TestNearest(t *testing.T) {
	cands := []Candidate{
		{Label: "x", Vector: []float32{1, 0, 0}},
		{Label: "y", Vector: []float32{0, 1, 0}},
		{Label: "xy", Vector: []float32{1, 1, 0}},
	}

	tests := []struct {
		name      string
		query     []float32
		threshold float64
		wantLabel string
		wantMatch bool
		wantScore float64
	}{
		{"exact axis", []float32{2, 0, 0}, 0.5, "x", true, 1},
		{"diagonal", []float32{1, 1, 0}, 0.9, "xy", true, 1},
		{"below threshold", []float32{0, 0, 1}, 0.1, NoMatchLabel, false, 0},
		{"threshold zero always matches", []float32{0, 0, 1}, 0, "x", true, 0},
		{"opposite vector clamps to zero", []float32{-1, -1, 0}, 0, "x", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Nearest(tt.query, cands, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, m.Label)
			assert.Equal(t, tt.wantMatch, m.Matched)
			assert.InDelta(t, tt.wantScore, m.Score, 1e-9)
		})
	}
}

func TestNearest_FirstCandidateWinsTies(t *testing.T) {
	cands := []Candidate{
		{Label: "first", Vector: []float32{1, 0}},
		{Label: "second", Vector: []float32{2, 0}},
	}
	m, err := Nearest([]float32{1, 0}, cands, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Index)
	assert.Equal(t, "first", m.Label)
}

func TestNearest_EmptyCandidates(t *testing.T) {
	m, err := Nearest([]float32{1, 0}, nil, 0.3)
	require.NoError(t, err)
	assert.False(t, m.Matched)
	assert.Equal(t, -1, m.Index)
	assert.Equal(t, NoMatchLabel, m.Label)
}

func TestNearest_Errors(t *testing.T) {
	cands := []Candidate{{Label: "a", Vector: []float32{1, 0}}}

	_, err := Nearest([]float32{0, 0}, cands, 0.3)
	assert.True(t, errors.Is(err, ErrZeroVector))

	_, err = Nearest([]float32{1, 0}, []Candidate{{Vector: []float32{0, 0}}}, 0.3)
	assert.ErrorIs(t, err, ErrZeroVector)
	assert.Contains(t, err.Error(), "candidate 0")

	_, err = Nearest([]float32{1, 0, 0}, cands, 0.3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	for _, th := range []float64{-0.1, 1.01, math.NaN()} {
		_, err = Nearest([]float32{1, 0}, cands, th)
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	}
}

func TestNearest_ThresholdOne(t *testing.T) {
	e := &hashEmbedder{dim: 64}
	cands := embedAll(t, e, "cpu usage above ninety percent", "disk latency spikes", "legacy mainframe")

	t.Run("exact duplicate matches", func(t *testing.T) {
		q, _ := e.Embed(context.Background(), "disk latency spikes")
		m, err := Nearest(q, cands, 1)
		require.NoError(t, err)
		assert.True(t, m.Matched)
		assert.Equal(t, "disk latency spikes", m.Label)
		assert.Equal(t, 1.0, m.Score)
	})

	t.Run("near text does not", func(t *testing.T) {
		q, _ := e.Embed(context.Background(), "disk latency spikes often")
		m, err := Nearest(q, cands, 1)
		require.NoError(t, err)
		assert.False(t, m.Matched)
	})
}

func TestNearest_ScoreDominatesOthers(t *testing.T) {
	e := &hashEmbedder{dim: 32}
	cands := embedAll(t, e,
		"database replication lag",
		"security patch missing",
		"stable system with no incidents",
		"high cost of licenses",
	)
	q, _ := e.Embed(context.Background(), "security patch missing on legacy database")

	m, err := Nearest(q, cands, 0)
	require.NoError(t, err)
	require.True(t, m.Matched)
	assert.GreaterOrEqual(t, m.Score, 0.0)
	assert.LessOrEqual(t, m.Score, 1.0)
	for i, c := range cands {
		s, err := Similarity(q, c.Vector)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, m.Score, s, "candidate %d", i)
	}
}

func TestTopK(t *testing.T) {
	cands := []Candidate{
		{Vector: []float32{0, 1}},
		{Vector: []float32{1, 0}},
		{Vector: []float32{1, 1}},
	}
	got, err := TopK([]float32{1, 0}, cands, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 2, got[1].Index)

	all, err := TopK([]float32{1, 0}, cands, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestObservation_EmbeddingCached(t *testing.T) {
	e := &hashEmbedder{dim: 8}
	obs := NewObservation("", "Legacy ERP system", nil)

	v1, err := obs.Embedding(context.Background(), e)
	require.NoError(t, err)
	v2, err := obs.Embedding(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, e.calls)
}

func TestObservationID_Deterministic(t *testing.T) {
	f := map[string]string{ColLocation: "Denver", ColSky: "Cloudy"}
	a := ObservationID("snow expected", f)
	b := ObservationID("snow expected", map[string]string{ColSky: "Cloudy", ColLocation: "Denver"})
	c := ObservationID("rain expected", f)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "obs-"))
	assert.Len(t, a, 20)
}
