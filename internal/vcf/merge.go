package vcf

import (
	"strings"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/normalize"
)

// Rules captures the configured merge precedence. Fields listed in neither
// set resolve to "prefer non-empty, else prefer source".
type Rules struct {
	preferUpdate map[string]bool
	preferSource map[string]bool
}

// NewRules builds Rules from the two upper-cased field-name lists.
// Validation (unknown names, overlap) happens at configuration load;
// by the time Rules exist the lists are trusted.
func NewRules(preferUpdate, preferSource []string) Rules {
	r := Rules{
		preferUpdate: make(map[string]bool, len(preferUpdate)),
		preferSource: make(map[string]bool, len(preferSource)),
	}
	for _, f := range preferUpdate {
		r.preferUpdate[f] = true
	}
	for _, f := range preferSource {
		r.preferSource[f] = true
	}
	return r
}

// preferUpdateFor reports whether the update side wins for a field when
// both sides carry a value.
func (r Rules) preferUpdateFor(field string) bool {
	return r.preferUpdate[field]
}

// Merge resolves two contact records into a fresh one. A nil update
// returns a copy of the source. List-valued fields always union; scalar
// fields follow the precedence rules; the birthday sentinel exception
// overrides precedence because a known year always beats an unknown one.
// The result shares no memory with either input.
func Merge(source, update *Contact, rules Rules) *Contact {
	if update == nil {
		return source.Clone()
	}

	out := &Contact{}

	out.FormattedName = mergeScalar(source.FormattedName, update.FormattedName, rules.preferUpdateFor(config.FieldFN))
	if pickSecond(source.Name.IsZero(), update.Name.IsZero(), rules.preferUpdateFor(config.FieldN)) {
		out.Name = update.Name
	} else {
		out.Name = source.Name
	}
	out.Birthday = MergeBirthday(source.Birthday, update.Birthday, rules.preferUpdateFor(config.FieldBday))
	out.Organization = mergeScalar(source.Organization, update.Organization, rules.preferUpdateFor(config.FieldOrg))
	out.Title = mergeScalar(source.Title, update.Title, rules.preferUpdateFor(config.FieldTitle))

	if rules.preferUpdateFor(config.FieldTel) {
		out.Phones = UnionPhones(update.Phones, source.Phones)
	} else {
		out.Phones = UnionPhones(source.Phones, update.Phones)
	}
	if rules.preferUpdateFor(config.FieldEmail) {
		out.Emails = UnionEmails(update.Emails, source.Emails)
	} else {
		out.Emails = UnionEmails(source.Emails, update.Emails)
	}
	if rules.preferUpdateFor(config.FieldAdr) {
		out.Addresses = UnionAddresses(update.Addresses, source.Addresses)
	} else {
		out.Addresses = UnionAddresses(source.Addresses, update.Addresses)
	}

	out.Note = MergeNotes(source.Note, update.Note)
	out.sortPhones()
	return out
}

// mergeScalar resolves a single-valued field: non-empty beats empty, the
// precedence side wins when both are set.
func mergeScalar(source, update string, preferUpdate bool) string {
	if pickSecond(source == "", update == "", preferUpdate) {
		return update
	}
	return source
}

// pickSecond decides whether the second of two values wins given emptiness
// and precedence direction.
func pickSecond(firstEmpty, secondEmpty, preferSecond bool) bool {
	switch {
	case secondEmpty:
		return false
	case firstEmpty:
		return true
	default:
		return preferSecond
	}
}

// MergeBirthday applies scalar precedence with the sentinel exception: a
// birthday whose year is the 1900 placeholder never displaces one with a
// fully-specified year, regardless of configured precedence.
func MergeBirthday(source, update string, preferUpdate bool) string {
	chosen := mergeScalar(source, update, preferUpdate)
	other := source
	if chosen == source {
		other = update
	}
	if chosen != "" && other != "" &&
		normalize.YearUnknown(chosen) && !normalize.YearUnknown(other) {
		return other
	}
	return chosen
}

// UnionPhones merges two phone lists by normalized number, primary side
// first. Type tags of duplicate numbers are combined.
func UnionPhones(primary, secondary []Phone) []Phone {
	acc := &Contact{}
	for _, p := range primary {
		acc.AddPhone(p.Number, p.Types)
	}
	for _, p := range secondary {
		acc.AddPhone(p.Number, p.Types)
	}
	return acc.Phones
}

// UnionEmails merges two email lists by case-folded address, primary side
// first.
func UnionEmails(primary, secondary []Email) []Email {
	acc := &Contact{}
	for _, e := range primary {
		acc.AddEmail(e.Address, e.Types)
	}
	for _, e := range secondary {
		acc.AddEmail(e.Address, e.Types)
	}
	return acc.Emails
}

// UnionAddresses merges two address lists by field-level fill-in: a
// secondary address that does not contradict an existing one completes it
// instead of being appended.
func UnionAddresses(primary, secondary []Address) []Address {
	acc := &Contact{}
	for _, a := range primary {
		acc.AddAddress(a)
	}
	for _, a := range secondary {
		acc.AddAddress(a)
	}
	return acc.Addresses
}

// MergeNotes concatenates the two consolidated NOTE values line-wise,
// dropping lines the result already contains. Precedence is irrelevant;
// promotion has already run on both sides.
func MergeNotes(source, update string) string {
	seen := make(map[string]bool)
	var lines []string
	for _, block := range []string{source, update} {
		if block == "" {
			continue
		}
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
