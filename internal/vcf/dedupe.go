package vcf

import (
	"log/slog"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/normalize"
)

// Collapse describes one merged duplicate group for the run report.
type Collapse struct {
	Key      string
	Count    int
	Extended []string
}

// Dedupe groups contacts by identity key and folds each group of two or
// more into a single record. Contacts fold in encounter order: the
// first-seen record is the scalar baseline and a later value displaces it
// only when strictly more complete; list fields always union and the
// birthday sentinel exception applies. Output preserves the
// first-occurrence order of each key.
func Dedupe(contacts []*Contact) ([]*Contact, []Collapse) {
	// Contacts without any name have no identity to group on; each one
	// passes through as its own singleton instead of colliding on "".
	var groups [][]*Contact
	index := make(map[string]int)
	for _, c := range contacts {
		key := c.Key()
		if key == "" {
			groups = append(groups, []*Contact{c})
			continue
		}
		if i, seen := index[key]; seen {
			groups[i] = append(groups[i], c)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, []*Contact{c})
	}

	log := slog.With(config.LogKeyComponent, config.CompEngine)

	var out []*Contact
	var collapsed []Collapse
	for _, group := range groups {
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		key := group[0].Key()

		acc := group[0].Clone()
		for _, next := range group[1:] {
			acc = foldDuplicate(acc, next)
		}
		out = append(out, acc)

		record := Collapse{
			Key:      key,
			Count:    len(group),
			Extended: extendedFields(group[0], acc),
		}
		collapsed = append(collapsed, record)
		log.Info(config.MsgCollapsedGroup,
			config.LogKeyKey, key,
			config.LogKeyCount, record.Count,
			config.LogKeyField, record.Extended,
		)
	}
	return out, collapsed
}

// foldDuplicate merges one duplicate into the running accumulation using
// the resolver's field-merge primitives. Scalars keep the accumulated
// baseline unless the newcomer is strictly more complete.
func foldDuplicate(acc, next *Contact) *Contact {
	out := &Contact{}

	out.FormattedName = preferMoreComplete(acc.FormattedName, next.FormattedName)
	out.Name = acc.Name
	if nameCompleteness(next.Name) > nameCompleteness(acc.Name) {
		out.Name = next.Name
	}
	out.Birthday = MergeBirthday(acc.Birthday, next.Birthday, false)
	out.Organization = preferMoreComplete(acc.Organization, next.Organization)
	out.Title = preferMoreComplete(acc.Title, next.Title)

	out.Phones = UnionPhones(acc.Phones, next.Phones)
	out.Emails = UnionEmails(acc.Emails, next.Emails)
	out.Addresses = UnionAddresses(acc.Addresses, next.Addresses)
	out.Note = MergeNotes(acc.Note, next.Note)
	out.sortPhones()
	return out
}

// preferMoreComplete keeps the baseline value unless the challenger is
// strictly more complete (longer after whitespace collapse).
func preferMoreComplete(baseline, challenger string) string {
	if baseline == "" {
		return challenger
	}
	if len(normalize.CollapseWhitespace(challenger)) > len(normalize.CollapseWhitespace(baseline)) {
		return challenger
	}
	return baseline
}

func nameCompleteness(n StructuredName) int {
	score := 0
	for _, c := range []string{n.Family, n.Given, n.Middle, n.Prefix, n.Suffix} {
		if c != "" {
			score++
		}
	}
	return score
}

// extendedFields reports which fields gained data relative to the group's
// first-seen record.
func extendedFields(first, merged *Contact) []string {
	var fields []string
	if len(merged.Phones) > len(first.Phones) {
		fields = append(fields, config.FieldTel)
	}
	if len(merged.Emails) > len(first.Emails) {
		fields = append(fields, config.FieldEmail)
	}
	if len(merged.Addresses) > len(first.Addresses) {
		fields = append(fields, config.FieldAdr)
	}
	if merged.Birthday != first.Birthday {
		fields = append(fields, config.FieldBday)
	}
	if merged.Organization != first.Organization {
		fields = append(fields, config.FieldOrg)
	}
	if merged.Title != first.Title {
		fields = append(fields, config.FieldTitle)
	}
	if merged.Note != first.Note {
		fields = append(fields, config.FieldNote)
	}
	if merged.FormattedName != first.FormattedName {
		fields = append(fields, config.FieldFN)
	}
	return fields
}
