package normalize

import (
	"regexp"
	"strings"
)

// reEmail matches the basic local@domain.tld shape. Anything fancier
// (quoted local parts, IDN) is out of scope for address-book exports.
var reEmail = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Email extracts the first address-shaped token from a raw value.
// Display casing is preserved; use EmailKey for deduplication.
func Email(raw string) (string, bool) {
	match := reEmail.FindString(raw)
	if match == "" {
		return "", false
	}
	return match, true
}

// EmailKey is the case-folded form used for uniqueness checks.
func EmailKey(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
