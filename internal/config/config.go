package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Classification modes.
const (
	ModeTime    = "time"
	ModeWeather = "weather"
)

// Memory and vector backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendLocal  = "local"
	BackendQdrant = "qdrant"
)

// Config holds all settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Model server configuration.
	OllamaURL      string
	ChatModel      string
	EmbedModel     string
	OllamaTimeout  time.Duration
	LLMMaxRetries  int
	LLMRetryDelay  time.Duration
	LLMRateLimit   float64
	EmbedCacheSize int
	AIEnabled      bool

	// Classification inputs and thresholds.
	Mode             string
	RulesFile        string
	ObservationsFile string
	StructuredFile   string
	ReportDir        string
	MatchThreshold   float64
	KeywordThreshold float64
	FuzzyThreshold   int
	IndexThreshold   float64

	// Chat memory and document index.
	MemoryBackend     string
	MemoryPath        string
	IndexPath         string
	IndexMetadataPath string
	VectorBackend     string
	QdrantHost        string
	QdrantPort        int
	QdrantCollection  string
	RoleTimeout       time.Duration
	RoleConcurrency   int

	// Optional Kafka publishing of classifications.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	p := &parser{}
	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		OllamaURL:      sharedcfg.EnvOrDefault("OLLAMA_URL", "http://localhost:11434"),
		ChatModel:      sharedcfg.EnvOrDefault("OLLAMA_CHAT_MODEL", "llama3.2"),
		EmbedModel:     sharedcfg.EnvOrDefault("OLLAMA_EMBED_MODEL", "all-minilm"),
		OllamaTimeout:  p.duration("OLLAMA_TIMEOUT", "60s"),
		LLMMaxRetries:  p.integer("LLM_MAX_RETRIES", 5, 0),
		LLMRetryDelay:  p.duration("LLM_RETRY_DELAY", "1s"),
		LLMRateLimit:   p.float("LLM_RATE_LIMIT", 0, 0, 1e6),
		EmbedCacheSize: p.integer("EMBED_CACHE_SIZE", 1000, 1),
		AIEnabled:      sharedcfg.EnvOrDefault("AI_ENABLED", "false") == "true",

		Mode:             sharedcfg.EnvOrDefault("CLASSIFY_MODE", ModeTime),
		RulesFile:        sharedcfg.EnvOrDefault("RULES_FILE", "rules.xlsx"),
		ObservationsFile: sharedcfg.EnvOrDefault("OBSERVATIONS_FILE", "observations.xlsx"),
		StructuredFile:   os.Getenv("STRUCTURED_FILE"),
		ReportDir:        sharedcfg.EnvOrDefault("REPORT_DIR", "reports"),
		MatchThreshold:   p.float("MATCH_THRESHOLD", 0.3, 0, 1),
		KeywordThreshold: p.float("KEYWORD_THRESHOLD", 0.35, 0, 1),
		FuzzyThreshold:   p.integer("FUZZY_THRESHOLD", 75, 0),
		IndexThreshold:   p.float("INDEX_THRESHOLD", 0.4, 0, 1),

		MemoryBackend:     sharedcfg.EnvOrDefault("MEMORY_BACKEND", BackendSQLite),
		MemoryPath:        sharedcfg.EnvOrDefault("MEMORY_PATH", "chatbot_memory.db"),
		IndexPath:         sharedcfg.EnvOrDefault("INDEX_PATH", "document_embeddings.index"),
		IndexMetadataPath: sharedcfg.EnvOrDefault("INDEX_METADATA_PATH", "document_metadata.json"),
		VectorBackend:     sharedcfg.EnvOrDefault("VECTOR_BACKEND", BackendLocal),
		QdrantHost:        sharedcfg.EnvOrDefault("QDRANT_HOST", "localhost"),
		QdrantPort:        p.integer("QDRANT_PORT", 6334, 1),
		QdrantCollection:  sharedcfg.EnvOrDefault("QDRANT_COLLECTION", "observations"),
		RoleTimeout:       p.duration("ROLE_TIMEOUT", "60s"),
		RoleConcurrency:   p.integer("ROLE_CONCURRENCY", 5, 1),

		KafkaEnabled:   sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "classified-observations"),
	}
	if p.err != nil {
		return nil, p.err
	}

	if cfg.Mode != ModeTime && cfg.Mode != ModeWeather {
		return nil, fmt.Errorf("invalid CLASSIFY_MODE %q: want %q or %q", cfg.Mode, ModeTime, ModeWeather)
	}
	if cfg.MemoryBackend != BackendSQLite && cfg.MemoryBackend != BackendJSON {
		return nil, fmt.Errorf("invalid MEMORY_BACKEND %q", cfg.MemoryBackend)
	}
	if cfg.VectorBackend != BackendLocal && cfg.VectorBackend != BackendQdrant {
		return nil, fmt.Errorf("invalid VECTOR_BACKEND %q", cfg.VectorBackend)
	}
	if cfg.OllamaURL == "" {
		return nil, errors.New("OLLAMA_URL is required")
	}
	if cfg.RulesFile == "" {
		return nil, errors.New("RULES_FILE is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// parser records the first invalid variable so Load can report it after
// building the struct.
type parser struct {
	err error
}

func (p *parser) fail(name string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s", name)
	}
}

func (p *parser) duration(name, def string) time.Duration {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		p.fail(name)
		return 0
	}
	return d
}

func (p *parser) integer(name string, def, minimum int) int {
	s := os.Getenv(name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minimum {
		p.fail(name)
		return def
	}
	return n
}

func (p *parser) float(name string, def, lo, hi float64) float64 {
	s := os.Getenv(name)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < lo || f > hi {
		p.fail(name)
		return def
	}
	return f
}
