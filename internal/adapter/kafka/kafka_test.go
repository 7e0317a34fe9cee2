package kafka

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pavnask/rag-local-fork/internal/config"
	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	relevance := 3.4
	c := domain.Classification{
		ObservationID: "obs-1",
		Text:          "CPU usage above 90%",
		Action:        domain.ActionMigrate,
		Method:        domain.MethodSemantic,
		Score:         0.72,
		Relevance:     &relevance,
		ClassifiedAt:  now,
	}

	msg, err := serializeToMessage(c)
	require.NoError(t, err)

	assert.Equal(t, []byte("obs-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"action":"Migrate"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "action", msg.Headers[0].Key)
	assert.Equal(t, []byte("Migrate"), msg.Headers[0].Value)
	assert.Equal(t, "method", msg.Headers[1].Key)
	assert.Equal(t, []byte("semantic"), msg.Headers[1].Value)
	assert.Equal(t, "classified_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var decoded domain.Classification
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.NotNil(t, decoded.Relevance)
	assert.InDelta(t, 3.4, *decoded.Relevance, 1e-9)
}

func TestNewWriter_UsesConfig(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:       []string{"b1:9092", "b2:9092"},
		KafkaSinkTopic:     "classified-observations",
		BatchSize:          25,
		BatchFlushInterval: 250 * time.Millisecond,
	}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer w.Close()

	assert.Equal(t, "classified-observations", w.writer.Topic)
	assert.Equal(t, 25, w.writer.BatchSize)
	assert.Equal(t, 250*time.Millisecond, w.writer.BatchTimeout)
}

func TestLoadBatch_Empty(t *testing.T) {
	w := &Writer{}
	assert.NoError(t, w.LoadBatch(t.Context(), nil))
}
