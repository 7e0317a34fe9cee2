package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC and collapses whitespace. Used for cache keys and
// embedding input so visually identical text embeds once.
func Normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}
