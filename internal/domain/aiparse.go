package domain

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// NoAIResponse is recorded when the model returns no content.
const NoAIResponse = "No AI response"

var (
	classifyAsRe       = regexp.MustCompile(`(?i)classify it as "(.*?)"`)
	recommendationsRe  = regexp.MustCompile(`(?s)Recommendations:\n\n(.*?)\n\n`)
	addedLineRe        = regexp.MustCompile(`(?i)Added:\s*(.+)`)
	deletedLineRe      = regexp.MustCompile(`(?i)Deleted:\s*(.+)`)
	modifiedLineRe     = regexp.MustCompile(`(?i)Modified:\s*(.+)`)
	ErrEmptyAIResponse = errors.New("AI response was empty")
)

// AIDetails is what can be recovered from a free-form weather answer.
type AIDetails struct {
	Classification  string
	Recommendations string
	Explanation     string
}

// ParseWeatherDetails extracts the quoted classification and the
// recommendations block; the whole trimmed answer becomes the explanation.
func ParseWeatherDetails(text string) AIDetails {
	d := AIDetails{Explanation: strings.TrimSpace(text)}
	if m := classifyAsRe.FindStringSubmatch(text); m != nil {
		d.Classification = m[1]
	}
	if m := recommendationsRe.FindStringSubmatch(text); m != nil {
		d.Recommendations = strings.TrimSpace(m[1])
	}
	return d
}

// ModifiedObject is one object changed between two revisions.
type ModifiedObject struct {
	Object  string            `json:"object"`
	Changes map[string]string `json:"changes"`
}

// StructuredChanges is the JSON shape requested from the model for a diff.
type StructuredChanges struct {
	Added    []string         `json:"added_objects"`
	Deleted  []string         `json:"deleted_objects"`
	Modified []ModifiedObject `json:"modified_objects"`
}

// ParseStructuredChanges decodes the model's JSON answer. Invalid JSON falls back
// to scanning "Added:", "Deleted:" and "Modified: a → b" lines.
func ParseStructuredChanges(text string) (StructuredChanges, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return StructuredChanges{}, ErrEmptyAIResponse
	}

	var sc StructuredChanges
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &sc); err == nil {
		return sc, nil
	}

	for _, m := range addedLineRe.FindAllStringSubmatch(text, -1) {
		sc.Added = append(sc.Added, strings.TrimSpace(m[1]))
	}
	for _, m := range deletedLineRe.FindAllStringSubmatch(text, -1) {
		sc.Deleted = append(sc.Deleted, strings.TrimSpace(m[1]))
	}
	for _, m := range modifiedLineRe.FindAllStringSubmatch(text, -1) {
		parts := strings.Split(m[1], "→")
		if len(parts) != 2 {
			continue
		}
		from, to := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		sc.Modified = append(sc.Modified, ModifiedObject{
			Object:  from,
			Changes: map[string]string{"Attribute": from + " → " + to},
		})
	}
	return sc, nil
}

// stripCodeFence removes a surrounding ```json fence some models add.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
