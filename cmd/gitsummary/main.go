// Command gitsummary reports a repository's commit history and summarizes
// the configuration changes between two commits with a local model.
//
// Usage:
//
//	go run ./cmd/gitsummary --repo ../infra --compare -1 0 --yaml --ai-summary --markdown changes.md
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavnask/rag-local-fork/internal/adapter/ollama"
	"github.com/pavnask/rag-local-fork/internal/config"
	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/observability"
)

func main() {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:          "gitsummary",
		Short:        "Git commit analyzer with AI summaries of YAML changes",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(v, cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.Output != "" {
				f, err := os.Create(s.Output)
				if err != nil {
					return fmt.Errorf("open output file: %w", err)
				}
				defer f.Close()
				out = io.MultiWriter(out, f)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
			client := ollama.NewClient(cfg.OllamaURL, cfg.ChatModel, cfg.EmbedModel, cfg.OllamaTimeout, logger, observability.NewMetrics())
			chat := llm.NewRetryProvider(client, &llm.RetryConfig{
				MaxRetries: cfg.LLMMaxRetries,
				RetryDelay: cfg.LLMRetryDelay,
				MaxDelay:   llm.DefaultRetryConfig().MaxDelay,
				Timeout:    cfg.OllamaTimeout,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, s, chat, out, logger)
		},
	}

	flags := rootCmd.Flags()
	flags.String("repo", "", "Path to the Git repository")
	flags.String("branch", "main", "Branch to read history from")
	flags.Int("limit", 10, "Number of commits to fetch")
	flags.IntSlice("compare", nil, "Two commit indices to diff, e.g. --compare -1,0")
	flags.Bool("ai-summary", false, "Summarize the diff with the local model")
	flags.String("language", "English", "Language of the summary")
	flags.Bool("yaml", false, "Only include YAML files")
	flags.String("markdown", "", "Path to save the AI summary as Markdown")
	flags.Bool("use-schema", false, "Use schema files to improve summaries")
	flags.String("schema-paths", "schema", "Comma-separated list of schema paths")
	flags.String("config", "", "Path to a YAML config file")
	flags.String("output", "", "Path to save the full output")
	flags.String("mode", ModeSummary, "Mode: summary, requirements, impact, structured or diff")
	flags.String("requirements-file", "", "Path to a requirements JSON or YAML file")
	flags.String("standards-file", "", "Path to a standards JSON or YAML file")

	for _, name := range []string{
		"repo", "branch", "limit", "compare", "ai-summary", "language", "yaml", "markdown", "use-schema",
		"schema-paths", "output", "mode", "requirements-file", "standards-file",
	} {
		_ = v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings merges the config file under the flags. Explicitly set flags
// win over config values, which win over flag defaults.
func loadSettings(v *viper.Viper, cmd *cobra.Command) (Settings, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading config: %w", err)
		}
	}

	compare, err := compareIndices(v.Get("compare"))
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		Repo:             v.GetString("repo"),
		Branch:           v.GetString("branch"),
		Limit:            v.GetInt("limit"),
		Compare:          compare,
		AISummary:        v.GetBool("ai_summary"),
		Language:         v.GetString("language"),
		YAMLOnly:         v.GetBool("yaml"),
		Markdown:         v.GetString("markdown"),
		UseSchema:        v.GetBool("use_schema"),
		SchemaPaths:      splitList(v.GetString("schema_paths")),
		Output:           v.GetString("output"),
		Mode:             v.GetString("mode"),
		RequirementsFile: v.GetString("requirements_file"),
		StandardsFile:    v.GetString("standards_file"),
		GitIgnore:        v.GetStringSlice("git_ignore"),
	}
	if s.Mode == "" {
		s.Mode = ModeSummary
	}
	return s, s.Validate()
}

// compareIndices accepts the flag's []int or a config list of numbers.
func compareIndices(raw any) ([]int, error) {
	var out []int
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case []int:
		out = val
	case []any:
		for _, x := range val {
			n, err := strconv.Atoi(fmt.Sprint(x))
			if err != nil {
				return nil, fmt.Errorf("invalid compare index %v", x)
			}
			out = append(out, n)
		}
	case string:
		for _, x := range splitList(strings.Trim(val, "[]")) {
			n, err := strconv.Atoi(x)
			if err != nil {
				return nil, fmt.Errorf("invalid compare index %q", x)
			}
			out = append(out, n)
		}
	default:
		return nil, fmt.Errorf("invalid compare value %v", raw)
	}
	if len(out) != 0 && len(out) != 2 {
		return nil, fmt.Errorf("--compare takes exactly two indices, got %d", len(out))
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
