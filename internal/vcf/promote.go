package vcf

import (
	"regexp"
	"strings"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/normalize"
)

// NOTE mining. iCloud and Outlook exports leak structured data into
// free-text notes ("Mobile Phone: …", "E-mail Address: …", job titles,
// address fragments). Each promotable line shape is an independent
// extractor; extractors run in a fixed priority order and the first hit
// consumes the line.

// rePhoneCandidate finds phone-shaped digit runs inside free text.
var rePhoneCandidate = regexp.MustCompile(`\+?\d[\d\s().\-/]{5,}\d`)

// phoneLabels map note-line labels to the TYPE tags the promoted number
// should carry. Order matters: more specific labels first.
var phoneLabels = []struct {
	label string
	types []string
}{
	{"Business Phone:", []string{config.TypeWork, config.TypeVoice}},
	{"Home Phone:", []string{config.TypeHome, config.TypeVoice}},
	{"Mobile Phone:", []string{config.TypeCell, config.TypeVoice}},
	{"Other Phone:", []string{config.TypeVoice}},
	{"Phone:", nil},
}

// addressLabels map note-line labels to an address component and the TYPE
// tag of the address they belong to.
var addressLabels = []struct {
	label     string
	component string
	tag       string
}{
	{"Business Street:", "street", config.TypeWork},
	{"Business City:", "city", config.TypeWork},
	{"Business Postal Code:", "postal", config.TypeWork},
	{"Business Country/Region:", "country", config.TypeWork},
	{"Home Street:", "street", config.TypeHome},
	{"Home City:", "city", config.TypeHome},
	{"Home Postal Code:", "postal", config.TypeHome},
	{"Home Country/Region:", "country", config.TypeHome},
	{"Address:", "street", ""},
}

var titleLabels = []string{"Job Title:", "Title:"}

// housekeepingPrefixes are note lines that never carry promotable payload
// and only restate what structured fields already hold. Always dropped.
var housekeepingPrefixes = []string{
	"E-mail Display Name:",
	"E-mail Type:",
	"Priority:",
	"Sensitivity:",
}

// Promote moves structured data out of the contact's NOTE into proper
// fields, subject to the same validity and dedup rules as parsing. The
// remaining lines are re-joined into a single consolidated NOTE value.
// Running Promote on an already-promoted contact is a no-op.
func Promote(c *Contact, n *normalize.Normalizer) {
	lines := c.NoteLines()
	if len(lines) == 0 {
		return
	}

	var retained []string
	for _, line := range lines {
		if isHousekeeping(line) {
			continue
		}
		switch {
		case promotePhone(c, n, line):
		case promoteEmail(c, line):
		case promoteAddress(c, line):
		case promoteTitle(c, line):
		default:
			retained = append(retained, line)
		}
	}

	c.Note = strings.Join(retained, "\n")
}

func isHousekeeping(line string) bool {
	for _, prefix := range housekeepingPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// promotePhone extracts a phone number from the line. A line is consumed
// when it yields at least one valid number, including numbers the contact
// already has; dropping recognized duplicates keeps promotion idempotent.
func promotePhone(c *Contact, n *normalize.Normalizer, line string) bool {
	text := line
	var types []string
	for _, pl := range phoneLabels {
		if idx := strings.Index(line, pl.label); idx >= 0 {
			text = line[idx+len(pl.label):]
			types = pl.types
			break
		}
	}

	consumed := false
	for _, cand := range rePhoneCandidate.FindAllString(text, -1) {
		number, ok := n.Phone(cand)
		if !ok {
			continue
		}
		consumed = true
		if !c.HasPhone(number) {
			c.AddPhone(number, types)
		}
	}
	return consumed
}

// promoteEmail extracts the first address-shaped token anywhere in the line.
func promoteEmail(c *Contact, line string) bool {
	addr, ok := normalize.Email(line)
	if !ok {
		return false
	}
	if !c.HasEmail(addr) {
		c.AddEmail(addr, nil)
	}
	return true
}

// promoteAddress fills one component of a typed address from a labeled
// note line ("Business Street: Hauptstr. 5").
func promoteAddress(c *Contact, line string) bool {
	for _, al := range addressLabels {
		if !strings.HasPrefix(line, al.label) {
			continue
		}
		payload := strings.TrimSpace(line[len(al.label):])
		if payload == "" {
			return false
		}

		addr := Address{}
		switch al.component {
		case "street":
			addr.Street = payload
		case "city":
			addr.City = payload
		case "postal":
			addr.PostalCode = payload
		case "country":
			addr.Country = payload
		}
		if al.tag != "" {
			addr.Types = []string{al.tag}
		}
		c.AddAddress(addr)
		return true
	}
	return false
}

// promoteTitle consumes a job-title line; the first sighted title wins.
func promoteTitle(c *Contact, line string) bool {
	for _, label := range titleLabels {
		if !strings.HasPrefix(line, label) {
			continue
		}
		payload := strings.TrimSpace(line[len(label):])
		if payload == "" {
			return false
		}
		if c.Title == "" {
			c.Title = payload
		}
		return true
	}
	return false
}
