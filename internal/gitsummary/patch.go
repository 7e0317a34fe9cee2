package gitsummary

import (
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Keys used for a history with a single commit.
const (
	InitialCommitGroup = "initial_commit"
	NewFilesKey        = "new_files"
	noExtension        = "no_extension"
)

// Groups maps a file extension to the changed lines of each file.
type Groups map[string]map[string][]string

// Extensions returns the group keys in sorted order.
func (g Groups) Extensions() []string {
	return sortedKeys(g)
}

// Files returns the files of one extension in sorted order.
func (g Groups) Files(ext string) []string {
	return sortedKeys(g[ext])
}

// Len returns the number of files across groups.
func (g Groups) Len() int {
	n := 0
	for _, files := range g {
		n += len(files)
	}
	return n
}

func (g Groups) add(file string, lines []string) {
	ext := strings.ToLower(path.Ext(file))
	if ext == "" {
		ext = noExtension
	}
	if g[ext] == nil {
		g[ext] = make(map[string][]string)
	}
	g[ext][file] = lines
}

// DiffOptions filter the files of a patch.
type DiffOptions struct {
	YAMLOnly bool
	// Ignore holds glob patterns matched against the path and its base name.
	Ignore []string
}

func (o DiffOptions) keep(file string) bool {
	if o.YAMLOnly && !IsYAML(file) {
		return false
	}
	for _, p := range o.Ignore {
		if ok, _ := filepath.Match(p, file); ok {
			return false
		}
		if ok, _ := filepath.Match(p, path.Base(file)); ok {
			return false
		}
	}
	return true
}

// IsYAML reports whether file has a .yaml or .yml extension.
func IsYAML(file string) bool {
	ext := strings.ToLower(path.Ext(file))
	return ext == ".yaml" || ext == ".yml"
}

var diffHeader = regexp.MustCompile(`^diff --git a/(.*?) b/(.*?)$`)

// ParsePatch splits a unified patch into per-file changed lines. Newly
// added files are read whole through readNew; header lines are dropped.
func ParsePatch(raw string, opts DiffOptions, readNew func(path string) ([]string, error)) (Groups, error) {
	groups := Groups{}
	lines := strings.Split(raw, "\n")

	var current string
	var collected []string
	inHeader := false
	flush := func() {
		if current != "" {
			groups.add(current, collected)
		}
		current, collected = "", nil
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if m := diffHeader.FindStringSubmatch(line); m != nil {
			flush()
			inHeader = true
			file := path.Clean(m[2])
			if !opts.keep(file) {
				continue
			}
			if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "new file mode") {
				content, err := readNew(file)
				if err != nil {
					return nil, err
				}
				groups.add(file, nonBlank(content))
				continue
			}
			current = file
			collected = []string{}
			continue
		}
		if inHeader {
			if isPatchHeader(line) {
				continue
			}
			inHeader = false
		}
		if current == "" || strings.TrimSpace(line) == "" {
			continue
		}
		collected = append(collected, line)
	}
	flush()
	return groups, nil
}

// isPatchHeader matches the extended header lines git writes between
// "diff --git" and the first hunk.
func isPatchHeader(line string) bool {
	for _, p := range []string{
		"index ", "--- ", "+++ ", "new file mode", "deleted file mode", "old mode", "new mode",
		"similarity index", "dissimilarity index", "rename from", "rename to", "copy from", "copy to", "Binary files",
	} {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, strings.TrimRight(l, "\r"))
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
