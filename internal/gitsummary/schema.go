package gitsummary

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// NoReadme is the README text used when the repository has none.
const NoReadme = "No README file found."

// Readme returns the first README.md, README.txt or README.rst in repo.
func Readme(repo string) string {
	for _, name := range []string{"README.md", "README.txt", "README.rst"} {
		data, err := os.ReadFile(filepath.Join(repo, name))
		if err == nil {
			return string(data)
		}
	}
	return NoReadme
}

// LoadSchemas reads every *.yaml file under each directory in paths, keyed
// by file path. Missing directories are logged and skipped.
func LoadSchemas(paths []string, logger *slog.Logger) (map[string]string, error) {
	schemas := make(map[string]string)
	for _, dir := range paths {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			logger.Warn("schema directory not found", "path", dir)
			continue
		}
		err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(p) != ".yaml" {
				return nil
			}
			data, err := os.ReadFile(p)
			if err != nil {
				logger.Error("failed to read schema file", "path", p, "error", err)
				return nil
			}
			schemas[p] = string(data)
			logger.Debug("schema loaded", "path", p)
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("walk schema dir %s: %w", dir, err)
		}
	}
	return schemas, nil
}
