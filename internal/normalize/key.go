package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes, removes combining marks, and recomposes, so
// "Müller" and "Mueller" still differ but "Müller" and "Muller" do not.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var reNameSplit = regexp.MustCompile(`[,\s]+`)

// IdentityKey derives the join key used to match and group contacts:
// diacritics stripped, case folded, whitespace collapsed, and name tokens
// sorted so "Doe, Jane" and "Jane Doe" collide. Display names are the sole
// identity; phones and emails are never used as join keys, to avoid false
// merges from shared family numbers.
func IdentityKey(displayName string) string {
	folded, _, _ := transform.String(stripAccents, strings.ToLower(displayName))

	parts := reNameSplit.Split(strings.TrimSpace(folded), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// CollapseWhitespace folds runs of whitespace into single spaces.
// Used by the NOTE completeness score.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
