// Package normalize contains the pure field normalizers the pipeline is
// built on: phone cleaning, date normalization, email extraction, and the
// identity-key folding used to match contacts across exports.
package normalize

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/tartampluch/go-vcfmerge/internal/config"
)

// Normalizer bundles the configuration the field normalizers need.
// It is immutable after construction.
type Normalizer struct {
	MinDigits          int
	AllowInternational bool
	// DefaultRegion is an optional ISO 3166-1 region hint (e.g. "DE") for
	// numbers without an international prefix.
	DefaultRegion string
}

// New returns a Normalizer for the given options.
func New(opts config.Options) *Normalizer {
	return &Normalizer{
		MinDigits:          opts.MinDigits,
		AllowInternational: opts.AllowInternational,
		DefaultRegion:      opts.DefaultRegion,
	}
}

// Phone reduces a raw phone value to its canonical digit string.
// A leading "+" survives, every other non-digit character is stripped.
// The boolean is false when the number does not meet the minimum digit
// count or is obvious junk (all zeros, one repeated digit); callers must
// not retain invalid numbers in structured fields.
func (n *Normalizer) Phone(raw string) (string, bool) {
	digits := stripToDigits(raw)
	if digits == "" {
		return "", false
	}

	bare := strings.TrimPrefix(digits, "+")
	if len(bare) < n.MinDigits {
		return digits, false
	}
	if isRepeatedDigit(bare) {
		return digits, false
	}

	if n.AllowInternational {
		if e164, ok := n.tryE164(raw); ok {
			return e164, true
		}
	}
	return digits, true
}

// tryE164 canonicalizes via libphonenumber when the number carries enough
// context to be parsed (an international prefix, or a configured region).
// Failures fall back to the plain digit string.
func (n *Normalizer) tryE164(raw string) (string, bool) {
	region := n.DefaultRegion
	if region == "" && !strings.HasPrefix(strings.TrimSpace(raw), "+") {
		return "", false
	}

	num, err := phonenumbers.Parse(strings.TrimSpace(raw), region)
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

// HasCountryCode reports whether a normalized number carries an
// international prefix. Used by completeness scoring.
func HasCountryCode(number string) bool {
	return strings.HasPrefix(number, "+")
}

// stripToDigits removes everything except digits, keeping one leading "+".
func stripToDigits(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for i, r := range raw {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

// isRepeatedDigit reports whether the string is one digit repeated
// (including all zeros), which no real subscriber number is.
func isRepeatedDigit(digits string) bool {
	if digits == "" {
		return true
	}
	first := digits[0]
	for i := 1; i < len(digits); i++ {
		if digits[i] != first {
			return false
		}
	}
	return true
}
