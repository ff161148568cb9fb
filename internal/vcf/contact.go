// Package vcf implements the contact pipeline core: a lenient vCard reader,
// NOTE promotion, field-by-field conflict resolution, duplicate collapsing,
// and serialization back to vCard text.
package vcf

import (
	"sort"
	"strings"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/normalize"
)

// StructuredName mirrors the five N components in vCard order.
type StructuredName struct {
	Family string
	Given  string
	Middle string
	Prefix string
	Suffix string
}

// IsZero reports whether no component is set.
func (n StructuredName) IsZero() bool {
	return n == StructuredName{}
}

// Phone is a normalized telephone entry. Number is the canonical digit
// string (optionally with a leading "+"); Types are upper-cased tags such
// as CELL or WORK.
type Phone struct {
	Number string
	Types  []string
}

// HasType reports whether the phone carries the given upper-cased tag.
func (p Phone) HasType(tag string) bool {
	for _, t := range p.Types {
		if t == tag {
			return true
		}
	}
	return false
}

// Email is an address entry. Address keeps the casing it was first seen
// with; uniqueness is decided on the lower-cased form.
type Email struct {
	Address string
	Types   []string
}

// Address is one structured postal address. The seven vCard ADR components
// are folded down to the five the pipeline cares about.
type Address struct {
	Street     string
	City       string
	Region     string
	PostalCode string
	Country    string
	Types      []string
}

// IsZero reports whether every component is empty.
func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.Region == "" &&
		a.PostalCode == "" && a.Country == ""
}

// Completeness counts the non-empty components. Used to decide which of
// two conflicting addresses carries more information.
func (a Address) Completeness() int {
	score := 0
	for _, c := range []string{a.Street, a.City, a.Region, a.PostalCode, a.Country} {
		if c != "" {
			score++
		}
	}
	return score
}

// Contact is the canonical in-memory contact record. One is built per
// parsed vCard block; promotion mutates it in place, merging produces
// fresh values.
type Contact struct {
	FormattedName string
	Name          StructuredName
	// Birthday is "" or YYYY-MM-DD; year 1900 means "year unknown".
	Birthday     string
	Phones       []Phone
	Emails       []Email
	Addresses    []Address
	Organization string
	Title        string
	Note         string
}

// IsEmpty reports whether the contact carries no usable data at all.
func (c *Contact) IsEmpty() bool {
	return c.FormattedName == "" && c.Name.IsZero() && len(c.Phones) == 0 &&
		len(c.Emails) == 0 && len(c.Addresses) == 0 &&
		c.Organization == "" && c.Title == "" && c.Note == "" && c.Birthday == ""
}

// Key returns the identity key used for matching and duplicate grouping.
// Contacts without a formatted name fall back to the family-name component.
func (c *Contact) Key() string {
	name := c.FormattedName
	if name == "" {
		name = c.Name.Family
	}
	return normalize.IdentityKey(name)
}

// HasPhone reports whether an equally-normalized number is already present.
func (c *Contact) HasPhone(number string) bool {
	key := phoneKey(number)
	for _, p := range c.Phones {
		if phoneKey(p.Number) == key {
			return true
		}
	}
	return false
}

// AddPhone inserts a normalized number unless one with the same digits is
// already present. New type tags are folded into an existing entry instead
// of duplicating it. Mobile-tagged entries are kept ahead of the rest.
func (c *Contact) AddPhone(number string, types []string) bool {
	key := phoneKey(number)
	for i := range c.Phones {
		if phoneKey(c.Phones[i].Number) == key {
			c.Phones[i].Types = unionTags(c.Phones[i].Types, types)
			c.sortPhones()
			return false
		}
	}
	c.Phones = append(c.Phones, Phone{Number: number, Types: normalizeTags(types)})
	c.sortPhones()
	return true
}

// HasEmail reports whether the address is already present (case-insensitive).
func (c *Contact) HasEmail(address string) bool {
	key := normalize.EmailKey(address)
	for _, e := range c.Emails {
		if normalize.EmailKey(e.Address) == key {
			return true
		}
	}
	return false
}

// AddEmail inserts an address unless it is already present. The casing of
// the first sighting wins; later duplicates only contribute type tags.
func (c *Contact) AddEmail(address string, types []string) bool {
	key := normalize.EmailKey(address)
	for i := range c.Emails {
		if normalize.EmailKey(c.Emails[i].Address) == key {
			c.Emails[i].Types = unionTags(c.Emails[i].Types, types)
			return false
		}
	}
	c.Emails = append(c.Emails, Email{Address: address, Types: normalizeTags(types)})
	return true
}

// AddAddress merges the given address into the contact: an existing entry
// with the same type tag (or one it does not contradict) is filled in
// component by component, otherwise the address is appended.
func (c *Contact) AddAddress(addr Address) bool {
	if addr.IsZero() {
		return false
	}
	addr.Types = normalizeTags(addr.Types)
	for i := range c.Addresses {
		if addressesCompatible(c.Addresses[i], addr) {
			fillAddress(&c.Addresses[i], addr)
			return false
		}
	}
	c.Addresses = append(c.Addresses, addr)
	return true
}

// AppendNoteLine adds a line to the consolidated NOTE value.
func (c *Contact) AppendNoteLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if c.Note == "" {
		c.Note = line
		return
	}
	c.Note += "\n" + line
}

// NoteLines splits the consolidated NOTE back into trimmed lines.
func (c *Contact) NoteLines() []string {
	if c.Note == "" {
		return nil
	}
	raw := strings.Split(c.Note, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

// Clone returns a deep copy; merge outputs must not alias their inputs.
// Nil lists stay nil so a clone is indistinguishable from its source.
func (c *Contact) Clone() *Contact {
	out := *c
	if c.Phones != nil {
		out.Phones = make([]Phone, len(c.Phones))
		for i, p := range c.Phones {
			out.Phones[i] = Phone{Number: p.Number, Types: append([]string(nil), p.Types...)}
		}
	}
	if c.Emails != nil {
		out.Emails = make([]Email, len(c.Emails))
		for i, e := range c.Emails {
			out.Emails[i] = Email{Address: e.Address, Types: append([]string(nil), e.Types...)}
		}
	}
	if c.Addresses != nil {
		out.Addresses = make([]Address, len(c.Addresses))
		for i, a := range c.Addresses {
			cp := a
			cp.Types = append([]string(nil), a.Types...)
			out.Addresses[i] = cp
		}
	}
	return &out
}

// Completeness scores how much information the contact carries. The
// weighting matches what the tool has always used for duplicate handling:
// phone and email counts saturate at three so one hoarded field cannot
// outweigh a generally richer record.
func (c *Contact) Completeness() int {
	score := 0
	if c.FormattedName != "" {
		score++
	}
	if !c.Name.IsZero() {
		score++
	}
	if c.Organization != "" {
		score++
	}
	if c.Title != "" {
		score++
	}
	if c.Birthday != "" && !normalize.YearUnknown(c.Birthday) {
		score++
	}
	score += min(len(c.Phones), 3)
	score += min(len(c.Emails), 3)
	if len(c.Addresses) > 0 {
		score++
	}
	if c.Note != "" {
		score++
	}
	return score
}

// phonePriority orders rendered and stored phone entries: mobile numbers
// first, then work, home, fax, everything else. Stable within a class.
func phonePriority(p Phone) int {
	switch {
	case p.HasType(config.TypeCell):
		return 0
	case p.HasType(config.TypeWork):
		return 1
	case p.HasType(config.TypeHome):
		return 2
	case p.HasType(config.TypeFax):
		return 3
	default:
		return 4
	}
}

func (c *Contact) sortPhones() {
	sort.SliceStable(c.Phones, func(i, j int) bool {
		return phonePriority(c.Phones[i]) < phonePriority(c.Phones[j])
	})
}

// phoneKey ignores the international prefix so "+4917..." and "4917..."
// with identical digits do not duplicate; uniqueness is by normalized
// digits.
func phoneKey(number string) string {
	return strings.TrimPrefix(number, "+")
}

func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func unionTags(existing, extra []string) []string {
	return normalizeTags(append(append([]string(nil), existing...), extra...))
}

// addressesCompatible reports whether two addresses describe the same
// place closely enough to be merged by fill-in: they share a type tag (or
// one has none) and no non-empty component disagrees.
func addressesCompatible(a, b Address) bool {
	if len(a.Types) > 0 && len(b.Types) > 0 && !tagsOverlap(a.Types, b.Types) {
		return false
	}
	pairs := [][2]string{
		{a.Street, b.Street}, {a.City, b.City}, {a.Region, b.Region},
		{a.PostalCode, b.PostalCode}, {a.Country, b.Country},
	}
	for _, p := range pairs {
		if p[0] != "" && p[1] != "" && !strings.EqualFold(p[0], p[1]) {
			return false
		}
	}
	return true
}

func tagsOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// fillAddress copies non-empty components of src into empty slots of dst.
func fillAddress(dst *Address, src Address) {
	if dst.Street == "" {
		dst.Street = src.Street
	}
	if dst.City == "" {
		dst.City = src.City
	}
	if dst.Region == "" {
		dst.Region = src.Region
	}
	if dst.PostalCode == "" {
		dst.PostalCode = src.PostalCode
	}
	if dst.Country == "" {
		dst.Country = src.Country
	}
	dst.Types = unionTags(dst.Types, src.Types)
}
