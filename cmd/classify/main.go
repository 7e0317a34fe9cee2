package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/pavnask/rag-local-fork/internal/adapter/http"
	kafkaadapter "github.com/pavnask/rag-local-fork/internal/adapter/kafka"
	"github.com/pavnask/rag-local-fork/internal/adapter/ollama"
	"github.com/pavnask/rag-local-fork/internal/adapter/spreadsheet"
	"github.com/pavnask/rag-local-fork/internal/config"
	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/observability"
	"github.com/pavnask/rag-local-fork/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("classification failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	models := newProviders(cfg, logger, metrics)
	embedder := ollama.NewCachedEmbedder(models.retried, cfg.EmbedCacheSize, metrics)

	var chat llm.Chatter
	if cfg.AIEnabled {
		chat = models.retried
		metrics.AIEnabled.Set(1)
		logger.Info("ai suggestions enabled", "model", cfg.ChatModel)
	} else {
		logger.Info("ai suggestions disabled")
	}

	rules, err := readSheet(cfg.RulesFile, logger)
	if err != nil {
		return err
	}
	observations, err := loadObservations(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("inputs loaded", "mode", cfg.Mode, "rules", len(rules.Rows), "observations", len(observations))

	var classifier pipeline.Classifier
	if cfg.Mode == config.ModeWeather {
		classifier, err = pipeline.NewWeatherGraph(spreadsheet.Rules(rules), embedder, chat, cfg.MatchThreshold, logger)
		if err != nil {
			return err
		}
	} else {
		classifier = pipeline.NewTimeClassifier(spreadsheet.Rules(rules), embedder, chat, pipeline.TimeThresholds{
			Match:   cfg.MatchThreshold,
			Keyword: cfg.KeywordThreshold,
			Fuzzy:   cfg.FuzzyThreshold,
		}, logger)
	}

	collector := &pipeline.Collector{}
	var loader pipeline.BatchLoader = collector
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loader = pipeline.MultiLoader{writer, collector}
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic)
	}

	p := pipeline.New(pipeline.NewSliceExtractor(observations), classifier, loader, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, collector, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		logger.Info("shutdown complete")
	}()

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if ctx.Err() != nil {
		logger.Info("interrupted, writing partial reports")
	}

	results := collector.Results()
	if cfg.Mode == config.ModeWeather && chat != nil && ctx.Err() == nil {
		explainUsefulness(ctx, models.direct, results, logger)
	}
	return writeReports(cfg, results, logger)
}

// providers wraps one Ollama client twice. The explain queue runs its own
// rate-limit backoff, so it gets the client without the retry layer.
type providers struct {
	retried llm.Provider
	direct  llm.Provider
}

func newProviders(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) providers {
	client := ollama.NewClient(cfg.OllamaURL, cfg.ChatModel, cfg.EmbedModel, cfg.OllamaTimeout, logger, metrics)
	retried := llm.NewRetryProvider(client, &llm.RetryConfig{
		MaxRetries: cfg.LLMMaxRetries,
		RetryDelay: cfg.LLMRetryDelay,
		MaxDelay:   llm.DefaultRetryConfig().MaxDelay,
		Timeout:    cfg.OllamaTimeout,
	})
	return providers{
		retried: llm.NewRateLimitProvider(retried, cfg.LLMRateLimit),
		direct:  llm.NewRateLimitProvider(client, cfg.LLMRateLimit),
	}
}

// readSheet reads the first sheet of path. A missing file yields an empty
// table.
func readSheet(path string, logger *slog.Logger) (spreadsheet.Table, error) {
	if path == "" {
		return spreadsheet.Table{}, nil
	}
	t, err := spreadsheet.ReadTable(path, "")
	if errors.Is(err, spreadsheet.ErrNotFound) {
		logger.Warn("spreadsheet not found, continuing without it", "path", path)
		return spreadsheet.Table{}, nil
	}
	return t, err
}

func loadObservations(cfg *config.Config, logger *slog.Logger) ([]*domain.Observation, error) {
	free, err := readSheet(cfg.ObservationsFile, logger)
	if err != nil {
		return nil, err
	}
	obs := spreadsheet.Observations(free)
	if cfg.Mode == config.ModeTime {
		structured, err := readSheet(cfg.StructuredFile, logger)
		if err != nil {
			return nil, err
		}
		obs = append(obs, spreadsheet.Observations(structured)...)
	}
	return obs, nil
}

// explainUsefulness asks the model why each weather recommendation helps.
func explainUsefulness(ctx context.Context, chat llm.Chatter, results []domain.Classification, logger *slog.Logger) {
	q := pipeline.NewExplainQueue(chat, logger)
	for _, r := range results {
		q.Enqueue(pipeline.ExplainRequest{
			Key: r.ObservationID,
			Prompt: pipeline.UsefulnessPrompt(
				r.Fields[domain.ColLocation], r.Fields[domain.ColSky], r.Fields[domain.ColRain], r.Fields[domain.ColWind],
				r.Items, r.Suggestion,
			),
		})
	}
	notes := q.Process(ctx)
	for i := range results {
		results[i].Usefulness = notes[results[i].ObservationID]
	}
	logger.Info("usefulness explanations complete", "explained", len(notes), "pending", q.Len())
}
