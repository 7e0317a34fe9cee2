// Command chat runs the adaptive-memory IT chatbot in the terminal.
//
// Usage:
//
//	go run ./cmd/chat --session global --memory-backend sqlite --retrieval vector
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"

	"github.com/pavnask/rag-local-fork/internal/adapter/jsonfile"
	"github.com/pavnask/rag-local-fork/internal/adapter/ollama"
	"github.com/pavnask/rag-local-fork/internal/adapter/qdrant"
	"github.com/pavnask/rag-local-fork/internal/adapter/spreadsheet"
	"github.com/pavnask/rag-local-fork/internal/adapter/sqlite"
	"github.com/pavnask/rag-local-fork/internal/adapter/vecindex"
	"github.com/pavnask/rag-local-fork/internal/chat"
	"github.com/pavnask/rag-local-fork/internal/config"
	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/observability"
)

// Retrieval modes.
const (
	retrievalVector = "vector"
	retrievalFuzzy  = "fuzzy"
)

const dimensionProbe = "dimension probe"

type options struct {
	session       string
	memoryBackend string
	memoryPath    string
	retrieval     string
	observations  string
	reindex       bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := options{
		memoryBackend: cfg.MemoryBackend,
		memoryPath:    cfg.MemoryPath,
		observations:  cfg.ObservationsFile,
	}

	rootCmd := &cobra.Command{
		Use:          "chat",
		Short:        "Adaptive-memory IT chatbot grounded on classified observations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	rootCmd.Flags().StringVar(&opts.session, "session", "", "Session id (blank for a new session, 'global' to share memory)")
	rootCmd.Flags().StringVar(&opts.memoryBackend, "memory-backend", opts.memoryBackend, "Memory backend: sqlite or json")
	rootCmd.Flags().StringVar(&opts.memoryPath, "memory-path", opts.memoryPath, "Memory database or JSON file path")
	rootCmd.Flags().StringVar(&opts.retrieval, "retrieval", retrievalVector, "Retrieval mode: vector or fuzzy")
	rootCmd.Flags().StringVar(&opts.observations, "observations", opts.observations, "Observations spreadsheet to ground answers on")
	rootCmd.Flags().BoolVar(&opts.reindex, "reindex", false, "Rebuild the document index from the observations")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, in io.Reader, out io.Writer) error {
	if opts.retrieval != retrievalVector && opts.retrieval != retrievalFuzzy {
		return fmt.Errorf("invalid --retrieval %q: want %q or %q", opts.retrieval, retrievalVector, retrievalFuzzy)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	memory, err := openMemory(ctx, opts.memoryBackend, opts.memoryPath, logger)
	if err != nil {
		return err
	}
	defer closeLogged(memory, "memory store", logger)

	table, err := spreadsheet.ReadTable(opts.observations, "")
	if errors.Is(err, spreadsheet.ErrNotFound) {
		logger.Warn("observations not found, answering without grounding", "path", opts.observations)
	} else if err != nil {
		return err
	}
	docs := chat.Documents(spreadsheet.Observations(table))

	client := ollama.NewClient(cfg.OllamaURL, cfg.ChatModel, cfg.EmbedModel, cfg.OllamaTimeout, logger, metrics)
	provider := llm.NewRateLimitProvider(llm.NewRetryProvider(client, &llm.RetryConfig{
		MaxRetries: cfg.LLMMaxRetries,
		RetryDelay: cfg.LLMRetryDelay,
		MaxDelay:   llm.DefaultRetryConfig().MaxDelay,
		Timeout:    cfg.OllamaTimeout,
	}), cfg.LLMRateLimit)

	sessionOpts := chat.Options{
		SessionID:   opts.session,
		Memory:      memory,
		Chat:        provider,
		Documents:   docs,
		Threshold:   cfg.IndexThreshold,
		RoleTimeout: cfg.RoleTimeout,
		Concurrency: cfg.RoleConcurrency,
		Logger:      logger,
		Metrics:     metrics,
	}

	if opts.retrieval == retrievalVector {
		embedder := ollama.NewCachedEmbedder(provider, cfg.EmbedCacheSize, metrics)
		index, err := openIndex(ctx, cfg, embedder, docs, opts.reindex, logger)
		if err != nil {
			return err
		}
		defer closeLogged(index, "document index", logger)
		sessionOpts.Index = index
		sessionOpts.Embedder = embedder
	}

	session := chat.NewSession(sessionOpts)
	logger.Info("chat session started", "session_id", session.ID(), "retrieval", opts.retrieval, "documents", len(docs))
	return session.Run(ctx, in, out)
}

type memoryStore interface {
	chat.MemoryStore
	io.Closer
}

func openMemory(ctx context.Context, backend, path string, logger *slog.Logger) (memoryStore, error) {
	switch backend {
	case config.BackendSQLite:
		return sqlite.Open(ctx, path, logger)
	case config.BackendJSON:
		return jsonfile.Open(path, logger)
	default:
		return nil, fmt.Errorf("invalid --memory-backend %q", backend)
	}
}

type documentIndex interface {
	chat.DocumentIndex
	io.Closer
}

// openIndex opens the configured vector index. The local index is rebuilt
// when asked or when it is empty; a Qdrant collection is rebuilt on every
// start.
func openIndex(ctx context.Context, cfg *config.Config, embedder *ollama.CachedEmbedder, docs []domain.Document, reindex bool, logger *slog.Logger) (documentIndex, error) {
	probe, err := embedder.Embed(ctx, dimensionProbe)
	if err != nil {
		return nil, fmt.Errorf("probe embedding dimension: %w", err)
	}
	dim := len(probe)

	var index documentIndex
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		q, err := qdrant.New(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection, dim)
		if err != nil {
			return nil, err
		}
		index, reindex = q, true
	default:
		local, err := vecindex.Open(cfg.IndexPath, cfg.IndexMetadataPath, dim, logger)
		if err != nil {
			return nil, err
		}
		index, reindex = local, reindex || local.Len() == 0
	}

	if reindex && len(docs) > 0 {
		if err := chat.IndexObservations(ctx, index, embedder, docs); err != nil {
			closeLogged(index, "document index", logger)
			return nil, err
		}
		logger.Info("document index rebuilt", "backend", cfg.VectorBackend, "documents", len(docs))
	}
	return index, nil
}

func closeLogged(c io.Closer, name string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("close failed", "component", name, "error", err)
	}
}
