package readme

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/pipeline"
)

// NoDescription stands in for a missing doc comment.
const NoDescription = "No description"

const (
	minDocLen       = 10
	maxPromptSource = 8000
	defaultLanguage = "English"
)

// Options control generation. A nil Chat keeps the README to what the
// source says.
type Options struct {
	Chat        llm.Chatter
	Language    string
	Translate   bool
	Concurrency int
	Logger      *slog.Logger
}

// Generate renders the README for p. With a chatter, declarations whose doc
// comment is shorter than ten characters are summarised by the model and the
// summaries are written back into p. With Translate the prose sections are
// translated to Language. Model failures fall back to the source text.
func Generate(ctx context.Context, p *Project, opts Options) (string, error) {
	if opts.Language == "" {
		opts.Language = defaultLanguage
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	g := generator{project: p, opts: opts}

	description := g.description(ctx)
	if err := g.summarizeDecls(ctx); err != nil {
		return "", err
	}

	summary := g.summarySection()
	cli := g.cliSection()
	if opts.Chat != nil && opts.Translate {
		description = g.translate(ctx, "description", description)
		summary = g.translate(ctx, "summary", summary)
		cli = g.translate(ctx, "CLI usage", cli)
	}
	return g.render(description, summary, cli), nil
}

type generator struct {
	project *Project
	opts    Options
}

func (g *generator) ask(ctx context.Context, prompt string) (string, error) {
	resp, err := g.opts.Chat.Chat(ctx, llm.UserPrompt("", fmt.Sprintf("Respond in %s.\n\n%s", g.opts.Language, prompt)))
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.Content)
	if out == "" {
		return "", errors.New("empty model response")
	}
	return out, nil
}

// description is the doc of the root package, else of the first documented
// package. A short one is replaced by a model summary when a chatter is set.
func (g *generator) description(ctx context.Context) string {
	p := g.project
	if len(p.Packages) == 0 {
		return p.Title + " is a Go project."
	}
	pkg := &p.Packages[0]
	for i := range p.Packages {
		if p.Packages[i].Dir == "." {
			pkg = &p.Packages[i]
			break
		}
	}
	doc := pkg.Doc
	for i := 0; doc == "" && i < len(p.Packages); i++ {
		doc = p.Packages[i].Doc
	}
	fallback := cmp.Or(doc, p.Title+" is a Go project.")
	if len(doc) >= minDocLen || g.opts.Chat == nil {
		return fallback
	}

	g.opts.Logger.Info("summarizing package with model", "package", pkg.Dir)
	out, err := g.ask(ctx, "Summarize the purpose of this Go package:\n\n"+packageSource(pkg))
	if err != nil {
		g.opts.Logger.Warn("package summary failed", "package", pkg.Dir, "error", err)
		return fallback
	}
	return out
}

type declRef struct {
	pkg, idx int
	isType   bool
}

// summarizeDecls fills short or missing docs through the model.
func (g *generator) summarizeDecls(ctx context.Context) error {
	if g.opts.Chat == nil {
		return nil
	}
	var refs []declRef
	var tasks []pipeline.Task[string]
	for pi, pkg := range g.project.Packages {
		for ti, t := range pkg.Types {
			if len(t.Doc) >= minDocLen {
				continue
			}
			refs = append(refs, declRef{pi, ti, true})
			tasks = append(tasks, g.task("type "+t.Name, "Explain the purpose of this Go type in simple terms:\n\n"+t.Source))
		}
		for fi, f := range pkg.Funcs {
			if len(f.Doc) >= minDocLen {
				continue
			}
			refs = append(refs, declRef{pi, fi, false})
			tasks = append(tasks, g.task(f.Signature(), "Explain clearly what this Go function does:\n\n"+f.Source))
		}
	}
	if len(tasks) == 0 {
		return nil
	}

	g.opts.Logger.Info("summarizing declarations with model", "count", len(tasks))
	for i, r := range pipeline.FanOut(ctx, g.opts.Concurrency, 0, tasks) {
		if r.Err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.opts.Logger.Warn("declaration summary failed", "declaration", r.Name, "error", r.Err)
			continue
		}
		ref := refs[i]
		pkg := &g.project.Packages[ref.pkg]
		if ref.isType {
			pkg.Types[ref.idx].Doc = r.Value
		} else {
			pkg.Funcs[ref.idx].Doc = r.Value
		}
	}
	return nil
}

func (g *generator) task(name, prompt string) pipeline.Task[string] {
	return pipeline.Task[string]{
		Name: name,
		Run:  func(ctx context.Context) (string, error) { return g.ask(ctx, truncate(prompt)) },
	}
}

func (g *generator) translate(ctx context.Context, label, content string) string {
	if strings.TrimSpace(content) == "" {
		return content
	}
	g.opts.Logger.Info("translating section", "section", label, "language", g.opts.Language)
	out, err := g.ask(ctx, fmt.Sprintf("Translate the following section to %s. Do not alter any code or parameter names:\n\n%s", g.opts.Language, content))
	if err != nil {
		g.opts.Logger.Warn("translation failed", "section", label, "error", err)
		return content
	}
	return out
}

func (g *generator) summarySection() string {
	var b strings.Builder
	for _, pkg := range g.project.Packages {
		doc := firstSentence(pkg.Doc)
		if doc == "" {
			doc = NoDescription
		}
		fmt.Fprintf(&b, "- `%s` (package %s): %s\n", pkg.Dir, pkg.Name, doc)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (g *generator) cliSection() string {
	var b strings.Builder
	for _, pkg := range g.project.Packages {
		if !pkg.Main {
			continue
		}
		target := "./" + pkg.Dir
		if pkg.Dir == "." {
			target = "."
		}
		fmt.Fprintf(&b, "```bash\ngo run %s\n```\n", target)
		if len(pkg.Flags) > 0 {
			b.WriteString("\nThis command accepts the following flags:\n")
			for _, f := range pkg.Flags {
				fmt.Fprintf(&b, "- `--%s`: %s\n", f.Name, f.Help)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (g *generator) features() []string {
	f := g.project.Features
	out := []string{"- Written in Go"}
	if f.CLI {
		out = append(out, "- Provides a command-line interface")
	}
	if f.Env {
		out = append(out, "- Uses environment variables or config files for settings")
	}
	if f.Errors {
		out = append(out, "- Handles errors explicitly and reports them clearly")
	}
	if f.Network {
		out = append(out, "- Connects to an API or external service")
	}
	if f.Concurrency {
		out = append(out, "- Runs work concurrently with goroutines")
	}
	return out
}

func (g *generator) render(description, summary, cli string) string {
	p := g.project
	var b strings.Builder
	fmt.Fprintf(&b, "# 📘 Project: %s\n\n%s\n\n", p.Title, description)
	fmt.Fprintf(&b, "## 🚀 What It Does\n%s\n\n", summary)
	fmt.Fprintf(&b, "## ✅ Features\n%s\n\n", strings.Join(g.features(), "\n"))

	if len(p.Imports) > 0 {
		b.WriteString("## 📦 Requirements\nFetch the following modules with go get:\n```bash\n")
		b.WriteString(strings.Join(p.Imports, "\n"))
		b.WriteString("\n```\n\n")
	}
	if cli != "" {
		fmt.Fprintf(&b, "## 🧰 CLI Usage\n%s\n\n", cli)
	}

	b.WriteString("## 📘 API Reference\n")
	for _, pkg := range p.Packages {
		if len(pkg.Types) == 0 && len(pkg.Funcs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## Package `%s` (`%s`)\n", pkg.Name, pkg.Dir)
		for _, t := range pkg.Types {
			fmt.Fprintf(&b, "\n### Type `%s`\n%s\n", t.Name, docOrDefault(t.Doc))
		}
		for _, f := range pkg.Funcs {
			fmt.Fprintf(&b, "\n### `%s`\n%s\n", f.Signature(), docOrDefault(f.Doc))
		}
	}

	b.WriteString("\n## 🤝 Contributing\nWe welcome contributions! Please see [CONTRIBUTING.md](CONTRIBUTING.md) for guidelines.\n")
	if p.HasLicense {
		b.WriteString("\n## 📄 License\nThis project is licensed under the terms of the license found in the [LICENSE](LICENSE) file.\n")
	}
	return b.String()
}

func packageSource(pkg *Package) string {
	var b strings.Builder
	for _, t := range pkg.Types {
		b.WriteString(t.Source)
		b.WriteString("\n\n")
	}
	for _, f := range pkg.Funcs {
		b.WriteString(f.Source)
		b.WriteString("\n\n")
	}
	return truncate(b.String())
}

func truncate(s string) string {
	if len(s) <= maxPromptSource {
		return s
	}
	return strings.ToValidUTF8(s[:maxPromptSource], "")
}

func docOrDefault(doc string) string {
	if strings.TrimSpace(doc) == "" {
		return NoDescription
	}
	return doc
}

func firstSentence(doc string) string {
	doc = strings.Join(strings.Fields(doc), " ")
	if i := strings.Index(doc, ". "); i >= 0 {
		return doc[:i+1]
	}
	return doc
}
