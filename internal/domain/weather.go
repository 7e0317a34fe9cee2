package domain

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Weather classification defaults when no rule applies.
const (
	UnknownClassification   = "Unknown"
	NoRuleRecommendation    = "No recommendation"
	NoContradiction         = "None"
	NoAdditionalSuggestions = "No additional recommendations."
)

var weatherTerms = map[string]bool{
	"rain": true, "snow": true, "wind": true, "storm": true,
	"sun": true, "cloud": true, "humidity": true, "fog": true,
}

var itemTerms = map[string]bool{
	"umbrella": true, "coat": true, "hat": true, "sunglasses": true, "boots": true,
	"scarf": true, "gloves": true, "raincoat": true, "hoodie": true,
}

type gearRule struct {
	condition string
	gear      []string
}

// weatherGear maps a condition mentioned in free text to the gear expected for it.
var weatherGear = []gearRule{
	{"rain", []string{"umbrella", "raincoat", "boots"}},
	{"snow", []string{"boots", "coat", "gloves"}},
	{"windy", []string{"windbreaker", "scarf"}},
	{"hot", []string{"hat", "sunglasses"}},
	{"cold", []string{"jacket", "gloves"}},
}

// ExtractEntities returns the sorted weather terms and gear items mentioned in text.
func ExtractEntities(text string) (weather, items []string) {
	seenW, seenI := map[string]bool{}, map[string]bool{}
	for _, tok := range tokenize(text) {
		if weatherTerms[tok] && !seenW[tok] {
			seenW[tok] = true
			weather = append(weather, tok)
		}
		if itemTerms[tok] && !seenI[tok] {
			seenI[tok] = true
			items = append(items, tok)
		}
	}
	sort.Strings(weather)
	sort.Strings(items)
	return weather, items
}

// JoinOrNone joins values with ", " or returns "None" when empty.
func JoinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}

// MatchWeatherRule finds the rule whose Sky, Rain and Wind equal the
// observation's. A rule naming the observation's location in its Location
// Exception wins over a generic rule; rules excepting another location never apply.
func MatchWeatherRule(obs *Observation, rules []Rule) (Rule, bool) {
	location := obs.Field(ColLocation)
	var generic *Rule
	for i := range rules {
		r := &rules[i]
		if r.Sky != obs.Field(ColSky) || r.Rain != obs.Field(ColRain) || r.Wind != obs.Field(ColWind) {
			continue
		}
		switch r.LocationException {
		case location:
			return *r, true
		case "":
			if generic == nil {
				generic = r
			}
		}
	}
	if generic != nil {
		return *generic, true
	}
	return Rule{}, false
}

// DetectContradictions returns the warnings raised by the sky condition and
// free text, or nil when they are consistent.
func DetectContradictions(sky, text string) []string {
	sky, text = strings.ToLower(sky), strings.ToLower(text)
	var warnings []string
	if strings.Contains(sky, "sunny") && strings.Contains(text, "rain") {
		warnings = append(warnings, "Contradiction: Sunny but mentions rain in free text.")
	}
	if strings.Contains(text, "sun") && strings.Contains(text, "rain") {
		warnings = append(warnings, "Sun & Rain Contradiction Detected")
	}
	if strings.Contains(text, "umbrella") && strings.Contains(text, "dry") {
		warnings = append(warnings, "Umbrella mentioned but 'dry' stated")
	}
	return warnings
}

// ContradictionText joins warnings with " | ", or returns "None".
func ContradictionText(warnings []string) string {
	if len(warnings) == 0 {
		return NoContradiction
	}
	return strings.Join(warnings, " | ")
}

// MissingGear lists the gear for every condition mentioned in text when none of
// that condition's gear appears among items. Denver snow does not call for boots.
func MissingGear(location, text string, items []string) []string {
	have := map[string]bool{}
	for _, it := range items {
		have[it] = true
	}
	lower := strings.ToLower(text)

	missing := map[string]bool{}
	for _, g := range weatherGear {
		if !strings.Contains(lower, g.condition) {
			continue
		}
		covered := false
		for _, item := range g.gear {
			if have[item] {
				covered = true
				break
			}
		}
		if !covered {
			for _, item := range g.gear {
				missing[item] = true
			}
		}
	}
	if location == "Denver" && strings.Contains(lower, "snow") {
		delete(missing, "boots")
	}

	out := make([]string, 0, len(missing))
	for item := range missing {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// GearRecommendation appends missing gear to the rule recommendation.
func GearRecommendation(ruleRecommendation string, missing []string) string {
	rec := strings.TrimSuffix(ruleRecommendation, ".") + "."
	if len(missing) > 0 {
		rec += " Consider using: " + strings.Join(missing, ", ") + "."
	}
	return rec
}

// LocationHistory accumulates the items seen per location across a run and
// suggests items that other locations carried. Safe for concurrent use.
type LocationHistory struct {
	mu    sync.Mutex
	order []string
	items map[string]map[string]bool
}

// NewLocationHistory returns an empty history.
func NewLocationHistory() *LocationHistory {
	return &LocationHistory{items: map[string]map[string]bool{}}
}

// Observe records items for location and returns suggestions derived from the
// other locations seen so far, in first-seen order.
func (h *LocationHistory) Observe(location string, items []string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	current := map[string]bool{}
	for _, it := range items {
		current[it] = true
	}
	if _, ok := h.items[location]; !ok {
		h.items[location] = map[string]bool{}
		h.order = append(h.order, location)
	}
	for it := range current {
		h.items[location][it] = true
	}

	var recs []string
	for _, past := range h.order {
		if past == location {
			continue
		}
		var missing []string
		for it := range h.items[past] {
			if !current[it] {
				missing = append(missing, it)
			}
		}
		if len(missing) == 0 {
			continue
		}
		sort.Strings(missing)
		recs = append(recs, fmt.Sprintf("Consider using %s in %s, based on past observations in %s.",
			strings.Join(missing, ", "), location, past))
	}
	if len(recs) == 0 {
		return NoAdditionalSuggestions
	}
	return strings.Join(recs, " ")
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
