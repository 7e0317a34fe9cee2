package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/gitsummary"
	"github.com/pavnask/rag-local-fork/internal/llm"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	fileStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const rule = "=================================================="

func heading(out io.Writer, title string) {
	fmt.Fprintln(out, headingStyle.Render("\n"+title))
	fmt.Fprintln(out, headingStyle.Render(rule))
}

func run(ctx context.Context, s Settings, chat llm.Chatter, out io.Writer, logger *slog.Logger) error {
	if err := gitsummary.CheckRepo(ctx, s.Repo); err != nil {
		return err
	}

	var standards []gitsummary.Standard
	if s.StandardsFile != "" {
		var err error
		if standards, err = gitsummary.LoadStandards(s.StandardsFile); err != nil {
			return err
		}
	}
	var requirements gitsummary.Requirements
	if s.Mode == ModeRequirements && s.RequirementsFile != "" {
		var err error
		if requirements, err = gitsummary.LoadRequirements(s.RequirementsFile); err != nil {
			return err
		}
	}

	commits, err := gitsummary.History(ctx, s.Repo, s.Branch, s.Limit)
	if err != nil {
		return err
	}
	heading(out, "Commit History Report:")
	fmt.Fprintln(out, gitsummary.CommitTable(commits))

	if len(s.Compare) != 2 {
		return nil
	}
	i, j := s.Compare[0], s.Compare[1]
	heading(out, fmt.Sprintf("Diff between commit %d and %d:", i, j))

	switch s.Mode {
	case ModeImpact:
		return runImpact(ctx, s, chat, commits, out)
	case ModeStructured:
		return runStructured(ctx, s, chat, commits, out)
	case ModeDiff:
		return runReadable(ctx, s, commits, out)
	default:
		return runSummary(ctx, s, chat, commits, requirements, standards, out, logger)
	}
}

func runSummary(ctx context.Context, s Settings, chat llm.Chatter, commits []gitsummary.Commit,
	requirements gitsummary.Requirements, standards []gitsummary.Standard, out io.Writer, logger *slog.Logger,
) error {
	groups, err := gitsummary.Diff(ctx, s.Repo, commits, s.Compare[0], s.Compare[1], gitsummary.DiffOptions{
		YAMLOnly: s.YAMLOnly,
		Ignore:   s.GitIgnore,
	})
	if err != nil {
		return err
	}
	writeGroups(out, groups)
	if groups.Len() == 0 {
		fmt.Fprintln(out, noteStyle.Render("No changes captured."))
		return nil
	}

	var validations map[string][]string
	if !requirements.Empty() {
		validations = validateGroups(groups, requirements, out)
	}

	if !s.AISummary {
		return nil
	}

	var schemas map[string]string
	if s.UseSchema {
		if schemas, err = gitsummary.LoadSchemas(s.SchemaPaths, logger); err != nil {
			return err
		}
	}

	heading(out, "AI Summary of Changes:")
	summaries, err := gitsummary.Summarize(ctx, chat, groups, gitsummary.Readme(s.Repo), s.Language, schemas)
	if err != nil {
		return err
	}

	if len(standards) > 0 {
		heading(out, "Standards Evaluation:")
		evaluateStandards(groups, standards, out)
	}

	md := gitsummary.Markdown(summaries, validations)
	if err := writeRendered(out, md); err != nil {
		return err
	}
	return saveMarkdown(s.Markdown, md, summaries.Len(), out)
}

func runImpact(ctx context.Context, s Settings, chat llm.Chatter, commits []gitsummary.Commit, out io.Writer) error {
	patch, err := gitsummary.Patch(ctx, s.Repo, commits, s.Compare[0], s.Compare[1])
	if err != nil {
		return err
	}
	impact := gitsummary.AnalyzeImpact(patch)
	if impact.Empty() {
		fmt.Fprintln(out, gitsummary.NoSignificantChanges)
		return nil
	}

	resp, err := chat.Chat(ctx, gitsummary.ImpactPrompt(impact))
	if err != nil {
		return fmt.Errorf("impact analysis: %w", err)
	}
	md := gitsummary.ImpactMarkdown(impact, llm.ContentOrFallback(resp))
	if err := writeRendered(out, md); err != nil {
		return err
	}
	return saveMarkdown(s.Markdown, md, 1, out)
}

func runStructured(ctx context.Context, s Settings, chat llm.Chatter, commits []gitsummary.Commit, out io.Writer) error {
	patch, err := gitsummary.Patch(ctx, s.Repo, commits, s.Compare[0], s.Compare[1])
	if err != nil {
		return err
	}
	if strings.TrimSpace(patch) == "" {
		fmt.Fprintln(out, gitsummary.NoSignificantChanges)
		return nil
	}

	resp, err := chat.Chat(ctx, gitsummary.StructuredPrompt(patch))
	if err != nil {
		return fmt.Errorf("structured analysis: %w", err)
	}
	changes, err := domain.ParseStructuredChanges(llm.ContentOrFallback(resp))
	if err != nil {
		return fmt.Errorf("structured analysis: %w", err)
	}
	md := gitsummary.StructuredMarkdown(changes)
	if err := writeRendered(out, md); err != nil {
		return err
	}
	return saveMarkdown(s.Markdown, md, 1, out)
}

// runReadable prints the patch as side-by-side tables without the model.
func runReadable(ctx context.Context, s Settings, commits []gitsummary.Commit, out io.Writer) error {
	patch, err := gitsummary.Patch(ctx, s.Repo, commits, s.Compare[0], s.Compare[1])
	if err != nil {
		return err
	}
	files := gitsummary.SideBySide(patch, gitsummary.DiffOptions{YAMLOnly: s.YAMLOnly, Ignore: s.GitIgnore})
	if len(files) == 0 {
		fmt.Fprintln(out, gitsummary.NoSignificantChanges)
		return nil
	}
	_, err = io.WriteString(out, gitsummary.RenderSideBySide(files))
	return err
}

func writeGroups(out io.Writer, groups gitsummary.Groups) {
	for _, ext := range groups.Extensions() {
		fmt.Fprintln(out, noteStyle.Render(ext))
		for _, file := range groups.Files(ext) {
			fmt.Fprintln(out, fileStyle.Render(fmt.Sprintf("  %s (%d lines)", file, len(groups[ext][file]))))
		}
	}
}

func validateGroups(groups gitsummary.Groups, req gitsummary.Requirements, out io.Writer) map[string][]string {
	validations := make(map[string][]string)
	for _, ext := range groups.Extensions() {
		for _, file := range groups.Files(ext) {
			v := gitsummary.ValidateRequirements(groups[ext][file], req)
			validations[file] = v
			fmt.Fprintln(out, headingStyle.Render("Requirements validation for "+file+":"))
			for _, line := range v {
				fmt.Fprintln(out, noteStyle.Render("  - "+line))
			}
		}
	}
	return validations
}

func evaluateStandards(groups gitsummary.Groups, standards []gitsummary.Standard, out io.Writer) {
	for _, ext := range groups.Extensions() {
		for _, file := range groups.Files(ext) {
			parsed, err := gitsummary.ParseYAML(gitsummary.CleanYAML(groups[ext][file]))
			if err != nil {
				fmt.Fprintln(out, noteStyle.Render(fmt.Sprintf("Standards check skipped for %s: %v", file, err)))
				continue
			}
			fmt.Fprintln(out, fileStyle.Render("File: "+file))
			hits := gitsummary.CheckStandards(parsed, standards)
			if len(hits) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("  No standards matched."))
				continue
			}
			for _, h := range hits {
				fmt.Fprintln(out, noteStyle.Render("  - "+h))
			}
		}
	}
}

func writeRendered(out io.Writer, md string) error {
	rendered, err := gitsummary.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, rendered)
	return err
}

// saveMarkdown writes md to path when a path is set and there is content.
func saveMarkdown(path, md string, entries int, out io.Writer) error {
	if path == "" {
		return nil
	}
	if entries == 0 {
		fmt.Fprintln(out, noteStyle.Render("No summaries found. Markdown not saved."))
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve markdown path: %w", err)
	}
	if err := os.WriteFile(abs, []byte(md), 0o644); err != nil {
		return fmt.Errorf("save markdown: %w", err)
	}
	fmt.Fprintln(out, mutedStyle.Render("Markdown saved to "+abs))
	return nil
}
