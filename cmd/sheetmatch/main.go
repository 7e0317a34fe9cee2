// Command sheetmatch finds semantically similar rows between two worksheets.
//
// Usage:
//
//	go run ./cmd/sheetmatch --file1 a.xlsx --file2 b.xlsx --threshold 0.8 --out matches.xlsx
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"

	"github.com/pavnask/rag-local-fork/internal/adapter/ollama"
	"github.com/pavnask/rag-local-fork/internal/adapter/spreadsheet"
	"github.com/pavnask/rag-local-fork/internal/config"
	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/observability"
	"github.com/pavnask/rag-local-fork/internal/sheetmatch"
)

type options struct {
	file1, sheet1 string
	file2, sheet2 string
	threshold     float64
	out           string
	report        string
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:          "sheetmatch",
		Short:        "Match rows between two spreadsheets by embedding similarity",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
			metrics := observability.NewMetrics()
			client := ollama.NewClient(cfg.OllamaURL, cfg.ChatModel, cfg.EmbedModel, cfg.OllamaTimeout, logger, metrics)
			provider := llm.NewRateLimitProvider(llm.NewRetryProvider(client, &llm.RetryConfig{
				MaxRetries: cfg.LLMMaxRetries,
				RetryDelay: cfg.LLMRetryDelay,
				MaxDelay:   llm.DefaultRetryConfig().MaxDelay,
				Timeout:    cfg.OllamaTimeout,
			}), cfg.LLMRateLimit)
			embedder := ollama.NewCachedEmbedder(provider, cfg.EmbedCacheSize, metrics)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, embedder, cfg.RoleConcurrency, cmd.OutOrStdout(), logger)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.file1, "file1", "", "First spreadsheet")
	flags.StringVar(&opts.sheet1, "sheet1", "", "Sheet in the first spreadsheet (default: first sheet)")
	flags.StringVar(&opts.file2, "file2", "", "Second spreadsheet")
	flags.StringVar(&opts.sheet2, "sheet2", "", "Sheet in the second spreadsheet (default: first sheet)")
	flags.Float64Var(&opts.threshold, "threshold", sheetmatch.DefaultThreshold, "Minimum cosine similarity")
	flags.StringVar(&opts.out, "out", "semantic_matches_with_keys_and_report.xlsx", "Output workbook")
	flags.StringVar(&opts.report, "report", "semantic_matching_report.txt", "Output text report")
	_ = rootCmd.MarkFlagRequired("file1")
	_ = rootCmd.MarkFlagRequired("file2")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, embedder domain.Embedder, concurrency int, out io.Writer, logger *slog.Logger) error {
	if opts.threshold < -1 || opts.threshold > 1 {
		return fmt.Errorf("invalid --threshold %v: want a value in [-1, 1]", opts.threshold)
	}

	t1, err := spreadsheet.ReadTable(opts.file1, opts.sheet1)
	if err != nil {
		return err
	}
	t2, err := spreadsheet.ReadTable(opts.file2, opts.sheet2)
	if err != nil {
		return err
	}

	m := sheetmatch.NewMatcher(embedder, opts.threshold, concurrency, logger)
	matches, err := m.Match(ctx, sheetmatch.Descriptions(t1), sheetmatch.Descriptions(t2))
	if err != nil {
		return err
	}

	if err := sheetmatch.Write(opts.out, matches); err != nil {
		return err
	}
	text := sheetmatch.Report(matches)
	if opts.report != "" {
		if err := os.WriteFile(opts.report, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	fmt.Fprint(out, text)
	logger.Info("matching complete", "matches", len(matches), "workbook", opts.out, "report", opts.report)
	return nil
}
