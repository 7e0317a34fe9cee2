package gitsummary

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RequirementsMet is the single message of a clean validation.
const RequirementsMet = "✅ YAML meets all requirements"

// Requirements describe what a changed YAML document must contain.
type Requirements struct {
	RequiredFields   []string              `yaml:"required_fields"`
	FieldConstraints map[string]Constraint `yaml:"field_constraints"`
}

// Constraint bounds a numeric field.
type Constraint struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// Empty reports whether no requirement is set.
func (r Requirements) Empty() bool {
	return len(r.RequiredFields) == 0 && len(r.FieldConstraints) == 0
}

// LoadRequirements reads a JSON or YAML requirements file.
func LoadRequirements(path string) (Requirements, error) {
	var r Requirements
	data, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("read requirements file: %w", err)
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("decode requirements file %s: %w", path, err)
	}
	return r, nil
}

// CleanYAML turns diff lines into parseable YAML. Plain file content is kept
// as is. For diff lines, removed lines and hunk headers are dropped, added
// and context lines are kept when they contain ':', and the one-column diff
// marker is stripped so indentation survives.
func CleanYAML(lines []string) string {
	if isPlainContent(lines) {
		return strings.Join(lines, "\n")
	}
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.HasPrefix(l, "-") || strings.HasPrefix(l, "@@") || !strings.Contains(l, ":") {
			continue
		}
		if strings.HasPrefix(l, "+") || strings.HasPrefix(l, " ") {
			l = l[1:]
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

func isPlainContent(lines []string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, "+") || strings.HasPrefix(l, "-") || strings.HasPrefix(l, "@@") {
			return false
		}
	}
	return true
}

// ParseYAML parses cleaned YAML into a mapping.
func ParseYAML(text string) (map[string]any, error) {
	var parsed any
	if err := yaml.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, err
	}
	m, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("YAML content is not a mapping")
	}
	return m, nil
}

// ValidateRequirements checks the YAML in lines against req. Fields are
// searched at any depth.
func ValidateRequirements(lines []string, req Requirements) []string {
	var parsed any
	if err := yaml.Unmarshal([]byte(CleanYAML(lines)), &parsed); err != nil {
		return []string{fmt.Sprintf("❌ YAML parse error: %v", err)}
	}
	doc, ok := parsed.(map[string]any)
	if !ok || len(doc) == 0 {
		return []string{"❌ YAML content is not a valid dictionary"}
	}

	var report []string
	for _, field := range req.RequiredFields {
		if _, found := findField(doc, field); !found {
			report = append(report, "❌ Missing required field: "+field)
		}
	}

	fields := make([]string, 0, len(req.FieldConstraints))
	for f := range req.FieldConstraints {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, field := range fields {
		rule := req.FieldConstraints[field]
		raw, found := findField(doc, field)
		if !found || raw == nil {
			continue
		}
		val, err := toNumber(raw)
		if err != nil {
			report = append(report, fmt.Sprintf("⚠️ Could not evaluate %s: %v", field, err))
			continue
		}
		if rule.Min != nil && val < *rule.Min {
			report = append(report, fmt.Sprintf("⚠️ %s value %s is below the minimum of %s", field, formatNumber(val), formatNumber(*rule.Min)))
		}
		if rule.Max != nil && val > *rule.Max {
			report = append(report, fmt.Sprintf("⚠️ %s value %s exceeds the maximum of %s", field, formatNumber(val), formatNumber(*rule.Max)))
		}
	}

	if len(report) == 0 {
		return []string{RequirementsMet}
	}
	return report
}

// findField returns the first value stored under key, depth first.
func findField(node any, key string) (any, bool) {
	switch v := node.(type) {
	case map[string]any:
		for _, k := range sortedKeys(v) {
			if k == key {
				return v[k], true
			}
		}
		for _, k := range sortedKeys(v) {
			if found, ok := findField(v[k], key); ok {
				return found, true
			}
		}
	case []any:
		for _, item := range v {
			if found, ok := findField(item, key); ok {
				return found, true
			}
		}
	}
	return nil, false
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("%v is not a number", v)
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
