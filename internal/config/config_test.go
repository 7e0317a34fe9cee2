package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, "llama3.2", cfg.ChatModel)
	assert.Equal(t, "all-minilm", cfg.EmbedModel)
	assert.Equal(t, 60*time.Second, cfg.OllamaTimeout)
	assert.Equal(t, 5, cfg.LLMMaxRetries)
	assert.Equal(t, time.Second, cfg.LLMRetryDelay)
	assert.Zero(t, cfg.LLMRateLimit)
	assert.Equal(t, 1000, cfg.EmbedCacheSize)
	assert.False(t, cfg.AIEnabled)

	assert.Equal(t, ModeTime, cfg.Mode)
	assert.Equal(t, "rules.xlsx", cfg.RulesFile)
	assert.Equal(t, "observations.xlsx", cfg.ObservationsFile)
	assert.Empty(t, cfg.StructuredFile)
	assert.Equal(t, "reports", cfg.ReportDir)
	assert.Equal(t, 0.3, cfg.MatchThreshold)
	assert.Equal(t, 0.35, cfg.KeywordThreshold)
	assert.Equal(t, 75, cfg.FuzzyThreshold)
	assert.Equal(t, 0.4, cfg.IndexThreshold)

	assert.Equal(t, BackendSQLite, cfg.MemoryBackend)
	assert.Equal(t, "chatbot_memory.db", cfg.MemoryPath)
	assert.Equal(t, "document_embeddings.index", cfg.IndexPath)
	assert.Equal(t, "document_metadata.json", cfg.IndexMetadataPath)
	assert.Equal(t, BackendLocal, cfg.VectorBackend)
	assert.Equal(t, 6334, cfg.QdrantPort)
	assert.Equal(t, 60*time.Second, cfg.RoleTimeout)
	assert.Equal(t, 5, cfg.RoleConcurrency)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "classified-observations", cfg.KafkaSinkTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("OLLAMA_URL", "http://ollama:11434")
	t.Setenv("OLLAMA_CHAT_MODEL", "mistral")
	t.Setenv("OLLAMA_TIMEOUT", "2m")
	t.Setenv("LLM_MAX_RETRIES", "0")
	t.Setenv("LLM_RATE_LIMIT", "2.5")
	t.Setenv("AI_ENABLED", "true")
	t.Setenv("CLASSIFY_MODE", "weather")
	t.Setenv("MATCH_THRESHOLD", "0.5")
	t.Setenv("FUZZY_THRESHOLD", "80")
	t.Setenv("MEMORY_BACKEND", "json")
	t.Setenv("VECTOR_BACKEND", "qdrant")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("ROLE_CONCURRENCY", "2")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, "http://ollama:11434", cfg.OllamaURL)
	assert.Equal(t, "mistral", cfg.ChatModel)
	assert.Equal(t, 2*time.Minute, cfg.OllamaTimeout)
	assert.Equal(t, 0, cfg.LLMMaxRetries)
	assert.Equal(t, 2.5, cfg.LLMRateLimit)
	assert.True(t, cfg.AIEnabled)
	assert.Equal(t, ModeWeather, cfg.Mode)
	assert.Equal(t, 0.5, cfg.MatchThreshold)
	assert.Equal(t, 80, cfg.FuzzyThreshold)
	assert.Equal(t, BackendJSON, cfg.MemoryBackend)
	assert.Equal(t, BackendQdrant, cfg.VectorBackend)
	assert.Equal(t, 7000, cfg.QdrantPort)
	assert.Equal(t, 2, cfg.RoleConcurrency)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad mode", "CLASSIFY_MODE", "sports", "CLASSIFY_MODE"},
		{"bad memory backend", "MEMORY_BACKEND", "redis", "MEMORY_BACKEND"},
		{"bad vector backend", "VECTOR_BACKEND", "faiss", "VECTOR_BACKEND"},
		{"threshold above one", "MATCH_THRESHOLD", "1.5", "MATCH_THRESHOLD"},
		{"threshold not a number", "INDEX_THRESHOLD", "high", "INDEX_THRESHOLD"},
		{"negative retries", "LLM_MAX_RETRIES", "-1", "LLM_MAX_RETRIES"},
		{"zero cache", "EMBED_CACHE_SIZE", "0", "EMBED_CACHE_SIZE"},
		{"bad timeout", "OLLAMA_TIMEOUT", "soon", "OLLAMA_TIMEOUT"},
		{"negative role timeout", "ROLE_TIMEOUT", "-5s", "ROLE_TIMEOUT"},
		{"batch size too large", "BATCH_SIZE", "9999", "BATCH_SIZE"},
		{"bad flush interval", "BATCH_FLUSH_INTERVAL", "later", "BATCH_FLUSH_INTERVAL"},
		{"bad shutdown timeout", "SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FirstInvalidVariableReported(t *testing.T) {
	t.Setenv("QDRANT_PORT", "0")
	t.Setenv("FUZZY_THRESHOLD", "x")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FUZZY_THRESHOLD")
}
