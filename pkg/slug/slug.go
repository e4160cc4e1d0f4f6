// Package slug turns display names into lowercase ASCII identifiers safe
// for URLs and file names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxLen = 80

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate lowercases name, strips diacritics and joins the remaining
// alphanumeric runs with single hyphens:
//
//	"Organic Jaggery, Pure!" → "organic-jaggery-pure"
//	"Pâté de Campagne"       → "pate-de-campagne"
func Generate(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	s := nonAlnum.ReplaceAllString(strings.ToLower(folded), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}
