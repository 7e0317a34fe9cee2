package readme_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/readme"
)

const mainSource = `// Command tool prints greetings for the configured users.
package main

import (
	"flag"
	"fmt"
	"os"

	"example.com/tool/internal/lib"
	"github.com/spf13/cobra"
)

func main() {
	name := flag.String("name", "world", "Who to greet")
	var loud bool
	flag.BoolVar(&loud, "loud", false, "Shout the greeting")
	flag.Parse()
	_ = cobra.Command{}
	if err := run(*name, loud); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(name string, loud bool) error {
	fmt.Println(lib.Greet(name), loud)
	return nil
}
`

const libSource = `// Package lib builds greetings. It keeps no state.
package lib

import "strings"

// Greeter formats greetings with a prefix.
type Greeter struct{ Prefix string }

type Options struct{ Loud bool }

// Greet returns a friendly greeting for name.
func Greet(name string) string { return "hello " + name }

func (g *Greeter) Say(name string, times int) string { return strings.Repeat(g.Prefix+name, times) }

func helper() {}
`

func project(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "greeting_tool")
	files := map[string]string{
		"go.mod":                   "module example.com/tool\n\ngo 1.22\n",
		"LICENSE":                  "MIT\n",
		"main.go":                  mainSource,
		"internal/lib/lib.go":      libSource,
		"internal/lib/lib_test.go": "package lib\n\nfunc TestGreet() {}\n",
		"_scratch/scratch.go":      "package scratch\n\nfunc Exported() {}\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type scriptedChat struct {
	mu      sync.Mutex
	err     error
	prompts []string
}

func (c *scriptedChat) Chat(_ context.Context, p *llm.Prompt) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	content := p.Messages[0].Content
	c.prompts = append(c.prompts, content)
	if c.err != nil {
		return nil, c.err
	}
	if strings.Contains(content, "Translate the following section") {
		return &llm.Response{Content: "section traduite"}, nil
	}
	return &llm.Response{Content: "Summary written by the model."}, nil
}

func (c *scriptedChat) count(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.prompts {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}

func TestScan(t *testing.T) {
	p, err := readme.Scan(project(t))
	require.NoError(t, err)

	assert.Equal(t, "Greeting Tool", p.Title)
	assert.Equal(t, "example.com/tool", p.Module)
	assert.True(t, p.HasLicense)
	assert.Equal(t, []string{"github.com/spf13/cobra"}, p.Imports)
	assert.Equal(t, readme.Features{CLI: true, Errors: true}, p.Features)

	require.Len(t, p.Packages, 2)
	cmd, lib := p.Packages[0], p.Packages[1]

	assert.Equal(t, ".", cmd.Dir)
	assert.True(t, cmd.Main)
	assert.Equal(t, "Command tool prints greetings for the configured users.", cmd.Doc)
	require.Len(t, cmd.Funcs, 2, "main packages list unexported functions too")
	assert.Equal(t, "run(name string, loud bool)", cmd.Funcs[1].Signature())
	assert.Equal(t, []readme.Flag{{Name: "name", Help: "Who to greet"}, {Name: "loud", Help: "Shout the greeting"}}, cmd.Flags)

	assert.Equal(t, "internal/lib", lib.Dir)
	assert.False(t, lib.Main)
	require.Len(t, lib.Types, 2)
	assert.Equal(t, "Greeter formats greetings with a prefix.", lib.Types[0].Doc)
	assert.Empty(t, lib.Types[1].Doc)
	require.Len(t, lib.Funcs, 2, "unexported functions are skipped")
	assert.Equal(t, "Greet(name string)", lib.Funcs[0].Signature())
	assert.Equal(t, "Greeter.Say(name string, times int)", lib.Funcs[1].Signature())
	assert.Contains(t, lib.Funcs[1].Source, "strings.Repeat")
}

func TestScan_SingleFile(t *testing.T) {
	root := project(t)
	p, err := readme.Scan(filepath.Join(root, "internal", "lib", "lib.go"))
	require.NoError(t, err)
	require.Len(t, p.Packages, 1)
	assert.Equal(t, ".", p.Packages[0].Dir)
	assert.Empty(t, p.Imports)
}

func TestScan_NoGoFiles(t *testing.T) {
	_, err := readme.Scan(t.TempDir())
	assert.ErrorIs(t, err, readme.ErrNoGoFiles)
}

func TestGenerate_FromSourceOnly(t *testing.T) {
	p, err := readme.Scan(project(t))
	require.NoError(t, err)

	md, err := readme.Generate(context.Background(), p, readme.Options{Logger: discardLogger()})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(md, "# 📘 Project: Greeting Tool\n\nCommand tool prints greetings for the configured users.\n"))
	assert.Contains(t, md, "- `internal/lib` (package lib): Package lib builds greetings.\n")
	assert.Contains(t, md, "- Provides a command-line interface")
	assert.Contains(t, md, "- Handles errors explicitly")
	assert.Contains(t, md, "## 📦 Requirements\nFetch the following modules with go get:\n```bash\ngithub.com/spf13/cobra\n```")
	assert.Contains(t, md, "```bash\ngo run .\n```")
	assert.Contains(t, md, "- `--loud`: Shout the greeting")
	assert.Contains(t, md, "### `Greet(name string)`\nGreet returns a friendly greeting for name.")
	assert.Contains(t, md, "### `Greeter.Say(name string, times int)`\n"+readme.NoDescription)
	assert.Contains(t, md, "### Type `Options`\n"+readme.NoDescription)
	assert.Contains(t, md, "## 📄 License")
	assert.NotContains(t, md, "helper")
	assert.NotContains(t, md, "scratch")
}

func TestGenerate_ModelSummariesAndTranslation(t *testing.T) {
	p, err := readme.Scan(project(t))
	require.NoError(t, err)
	chat := &scriptedChat{}

	md, err := readme.Generate(context.Background(), p, readme.Options{
		Chat:        chat,
		Language:    "French",
		Translate:   true,
		Concurrency: 2,
		Logger:      discardLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, chat.count("Explain clearly what this Go function does"), "main and run in the command, Say in lib")
	assert.Equal(t, 1, chat.count("Explain the purpose of this Go type"))
	assert.Equal(t, 3, chat.count("Translate the following section to French"))
	assert.Equal(t, 0, chat.count("Summarize the purpose"), "the root package is documented")
	assert.Equal(t, len(chat.prompts), chat.count("Respond in French."))

	assert.Contains(t, md, "### `Greeter.Say(name string, times int)`\nSummary written by the model.")
	assert.Contains(t, md, "### `Greet(name string)`\nGreet returns a friendly greeting for name.")
	assert.Contains(t, md, "# 📘 Project: Greeting Tool\n\nsection traduite\n")
	assert.Contains(t, md, "## 🧰 CLI Usage\nsection traduite")
}

func TestGenerate_ModelFailureKeepsSourceText(t *testing.T) {
	p, err := readme.Scan(project(t))
	require.NoError(t, err)
	chat := &scriptedChat{err: errors.New("model not loaded")}

	md, err := readme.Generate(context.Background(), p, readme.Options{Chat: chat, Translate: true, Logger: discardLogger()})
	require.NoError(t, err)
	assert.NotEmpty(t, chat.prompts)
	assert.Contains(t, md, "Command tool prints greetings for the configured users.")
	assert.Contains(t, md, "### Type `Options`\n"+readme.NoDescription)
	assert.Contains(t, md, "- `--name`: Who to greet")
}
