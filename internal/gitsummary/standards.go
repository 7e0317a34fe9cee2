package gitsummary

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SystemsBlock is the top-level key holding system definitions.
const SystemsBlock = "kadzo.v2023.systems"

// Keys of the systems block that describe the block itself.
var metadataKeys = map[string]bool{
	"title": true, "description": true, "class": true, "group": true, "criticality": true,
}

// Standard is one compliance statement and the systems it applies to.
type Standard struct {
	Statement string `yaml:"statement"`
	Sber      struct {
		ApplicabilityLevel []string `yaml:"applicability_level"`
		ObjUndCtrl         []string `yaml:"obj_und_ctrl"`
	} `yaml:"sber"`
}

// LoadStandards reads a JSON or YAML list of standards.
func LoadStandards(path string) ([]Standard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read standards file: %w", err)
	}
	var standards []Standard
	if err := yaml.Unmarshal(data, &standards); err != nil {
		return nil, fmt.Errorf("decode standards file %s: %w", path, err)
	}
	return standards, nil
}

// CheckStandards lists every (system, standard) pair where the system's
// criticality is an applicability level of the standard and its group is
// one of the standard's controlled objects. Comparison ignores case and
// surrounding space.
func CheckStandards(parsed map[string]any, standards []Standard) []string {
	block, ok := parsed[SystemsBlock].(map[string]any)
	if !ok {
		return nil
	}

	var hits []string
	for _, id := range sortedKeys(block) {
		if metadataKeys[id] {
			continue
		}
		sys, ok := block[id].(map[string]any)
		if !ok {
			continue
		}
		crit, hasCrit := sys["criticality"]
		group, hasGroup := sys["group"]
		if !hasCrit || !hasGroup {
			continue
		}
		for _, std := range standards {
			if containsFold(std.Sber.ApplicabilityLevel, fmt.Sprint(crit)) && containsFold(std.Sber.ObjUndCtrl, fmt.Sprint(group)) {
				hits = append(hits, fmt.Sprintf("🟢 **%s** matches standard:\n> _%s_", id, std.Statement))
			}
		}
	}
	return hits
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}
