package main

import (
	"errors"
	"fmt"
	"slices"
)

// Modes of operation.
const (
	ModeSummary      = "summary"
	ModeRequirements = "requirements"
	ModeImpact       = "impact"
	ModeStructured   = "structured"
	ModeDiff         = "diff"
)

var modes = []string{ModeSummary, ModeRequirements, ModeImpact, ModeStructured, ModeDiff}

// Settings is the merged flag and config file input.
type Settings struct {
	Repo             string
	Branch           string
	Limit            int
	Compare          []int
	AISummary        bool
	Language         string
	YAMLOnly         bool
	Markdown         string
	UseSchema        bool
	SchemaPaths      []string
	Output           string
	Mode             string
	RequirementsFile string
	StandardsFile    string
	GitIgnore        []string
}

// Validate checks the settings before any git command runs.
func (s Settings) Validate() error {
	if s.Repo == "" {
		return errors.New("missing required argument: --repo (or provide it in the config file)")
	}
	if !slices.Contains(modes, s.Mode) {
		return fmt.Errorf("invalid --mode %q: want one of %v", s.Mode, modes)
	}
	if s.Limit <= 0 {
		return fmt.Errorf("invalid --limit %d", s.Limit)
	}
	return nil
}
