package domain

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// FuzzyMatch is the best fuzzy choice for a query.
type FuzzyMatch struct {
	Value string
	Score int
	Index int
}

var dmp = diffmatchpatch.New()

// Ratio is the normalized indel similarity of a and b in [0,100] after
// lower-casing and stripping punctuation.
func Ratio(a, b string) int {
	return int(math.Round(ratio(preprocess(a), preprocess(b))))
}

// WeightedRatio combines plain, token-sorted, token-set and partial ratios the
// way interactive fuzzy matchers do, favouring whichever is strongest for
// strings of the given relative lengths.
func WeightedRatio(a, b string) int {
	a, b = preprocess(a), preprocess(b)
	if a == "" || b == "" {
		return 0
	}

	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))

	best := ratio(a, b)
	if lenRatio < 1.5 {
		best = math.Max(best, tokenSortRatio(a, b)*0.95)
		best = math.Max(best, tokenSetRatio(a, b)*0.95)
		return int(math.Round(best))
	}

	scale := 0.9
	if lenRatio >= 8 {
		scale = 0.6
	}
	best = math.Max(best, partialRatio(a, b)*scale)
	best = math.Max(best, tokenSetRatio(a, b)*0.95*scale)
	return int(math.Round(best))
}

// BestFuzzy scores query against every choice with WeightedRatio and returns
// the first choice with the highest score. ok is false for an empty choice set
// or an all-zero score.
func BestFuzzy(query string, choices []string) (FuzzyMatch, bool) {
	best := FuzzyMatch{Index: -1}
	for i, c := range choices {
		s := WeightedRatio(query, c)
		if s > best.Score {
			best = FuzzyMatch{Value: c, Score: s, Index: i}
		}
	}
	return best, best.Index >= 0
}

// ExtractOne returns the best choice whose score is at least cutoff.
func ExtractOne(query string, choices []string, cutoff int) (FuzzyMatch, bool) {
	m, ok := BestFuzzy(query, choices)
	if !ok || m.Score < cutoff {
		return FuzzyMatch{Index: -1}, false
	}
	return m, true
}

func ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	indel := 0
	for _, d := range dmp.DiffMain(a, b, false) {
		if d.Type != diffmatchpatch.DiffEqual {
			indel += utf8.RuneCountInString(d.Text)
		}
	}
	return 100 * float64(total-indel) / float64(total)
}

func tokenSortRatio(a, b string) float64 {
	return ratio(sortedTokens(a), sortedTokens(b))
}

func tokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	var common, onlyA, onlyB []string
	for t := range ta {
		if tb[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if !ta[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := ratio(withA, withB)
	if base != "" {
		best = math.Max(best, ratio(base, withA))
		best = math.Max(best, ratio(base, withB))
	}
	return best
}

// partialRatio slides the shorter string over the longer and keeps the best window.
func partialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortedTokens(s string) string {
	f := strings.Fields(s)
	sort.Strings(f)
	return strings.Join(f, " ")
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

func preprocess(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
