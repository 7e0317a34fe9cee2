// Command readme writes a README.md for a Go project from its source. With
// --ai, declarations without a useful doc comment are summarized by the local
// model.
//
// Usage:
//
//	go run ./cmd/readme ./myproject --ai --language Spanish --translate
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"

	"github.com/pavnask/rag-local-fork/internal/adapter/ollama"
	"github.com/pavnask/rag-local-fork/internal/config"
	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/observability"
	"github.com/pavnask/rag-local-fork/internal/readme"
)

func main() {
	var (
		useAI       bool
		language    string
		translate   bool
		output      string
		concurrency int
	)

	rootCmd := &cobra.Command{
		Use:          "readme <path>",
		Short:        "Generate a README for a Go project or file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

			project, err := readme.Scan(args[0])
			if err != nil {
				return err
			}
			logger.Info("project scanned", "root", project.Root, "packages", len(project.Packages))

			opts := readme.Options{Language: language, Translate: translate, Concurrency: concurrency, Logger: logger}
			if useAI {
				client := ollama.NewClient(cfg.OllamaURL, cfg.ChatModel, cfg.EmbedModel, cfg.OllamaTimeout, logger, observability.NewMetrics())
				opts.Chat = llm.NewRetryProvider(client, &llm.RetryConfig{
					MaxRetries: cfg.LLMMaxRetries,
					RetryDelay: cfg.LLMRetryDelay,
					MaxDelay:   llm.DefaultRetryConfig().MaxDelay,
					Timeout:    cfg.OllamaTimeout,
				})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			md, err := readme.Generate(ctx, project, opts)
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(project.Root, "README.md")
			}
			if err := os.WriteFile(output, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write readme: %w", err)
			}
			logger.Info("README generated", "path", output)
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&useAI, "ai", false, "Summarize undocumented declarations with the local model")
	flags.StringVar(&language, "language", "English", "Language of the model output")
	flags.BoolVar(&translate, "translate", false, "Translate the prose sections to --language")
	flags.StringVarP(&output, "output", "o", "", "Output path (default <project>/README.md)")
	flags.IntVar(&concurrency, "concurrency", 2, "Concurrent model requests")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
