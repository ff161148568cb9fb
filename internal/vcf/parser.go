package vcf

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/normalize"
)

// Severity classifies a diagnostic record.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one recoverable parse problem. Diagnostics are values, not
// errors: the parse continues and the caller decides what to surface.
type Diagnostic struct {
	Line     int
	Severity Severity
	Message  string
	Raw      string
}

// ErrNoVCards is returned when the whole input contains no BEGIN:VCARD.
var ErrNoVCards = errors.New(config.ErrNoVCards)

// logicalLine is one unfolded property line with the physical line number
// it started on.
type logicalLine struct {
	text string
	num  int
}

// property is the uniform representation every vendor line shape
// (standard, grouped item, labeled item) is resolved into.
type property struct {
	group string // itemN prefix, lower-cased, "" when absent
	name  string // upper-cased property name
	types []string
	value string
}

// groupRef remembers where the last property of a vendor group landed in
// the contact under construction, so a following itemN.X-ABLabel can attach
// its label as a type tag. Phones are referenced by their normalized digit
// key because AddPhone reorders the list; emails and addresses only ever
// append, so a position is stable for them.
type groupRef struct {
	field string
	key   string
	index int
}

// Parser turns raw vCard text into Contact records. It never aborts on a
// malformed line; problems inside a card are reported as diagnostics.
type Parser struct {
	norm *normalize.Normalizer
	log  *slog.Logger
}

// NewParser returns a Parser using the given normalizer.
func NewParser(n *normalize.Normalizer) *Parser {
	return &Parser{
		norm: n,
		log:  slog.With(config.LogKeyComponent, config.CompParser),
	}
}

// Parse consumes the whole input and returns the contacts in encounter
// order plus the accumulated diagnostics. The only fatal condition is an
// input without a single BEGIN:VCARD.
func (p *Parser) Parse(r io.Reader) ([]*Contact, []Diagnostic, error) {
	lines, err := unfold(r)
	if err != nil {
		return nil, nil, err
	}

	var (
		contacts []*Contact
		diags    []Diagnostic
		current  *Contact
		groups   map[string]groupRef
		sawBegin bool
		beginNum int
	)

	discard := func(num int) {
		diags = append(diags, Diagnostic{
			Line: num, Severity: SeverityWarning, Message: config.MsgUnterminatedCard,
		})
		p.log.Warn(config.MsgUnterminatedCard, config.LogKeyLine, num)
	}

	for _, ln := range lines {
		prop, ok := splitProperty(ln.text)
		if !ok {
			if current != nil {
				diags = append(diags, Diagnostic{
					Line: ln.num, Severity: SeverityWarning,
					Message: config.MsgSkippedLine, Raw: ln.text,
				})
				p.log.Warn(config.MsgSkippedLine, config.LogKeyLine, ln.num, config.LogKeyValue, ln.text)
			}
			continue
		}

		switch prop.name {
		case config.FieldBegin:
			if !strings.EqualFold(prop.value, config.CardSentinel) {
				continue
			}
			if current != nil {
				discard(beginNum)
			}
			current = &Contact{}
			groups = make(map[string]groupRef)
			sawBegin = true
			beginNum = ln.num

		case config.FieldEnd:
			if !strings.EqualFold(prop.value, config.CardSentinel) || current == nil {
				continue
			}
			if !current.IsEmpty() {
				finishContact(current)
				contacts = append(contacts, current)
			}
			current = nil

		default:
			if current == nil {
				continue
			}
			p.apply(current, groups, prop, ln.num, &diags)
		}
	}

	if current != nil {
		discard(beginNum)
	}
	if !sawBegin {
		return nil, diags, ErrNoVCards
	}
	return contacts, diags, nil
}

// apply routes one in-card property into the contact.
func (p *Parser) apply(c *Contact, groups map[string]groupRef, prop property, num int, diags *[]Diagnostic) {
	switch prop.name {
	case config.FieldVersion:
		// Declared version does not change how leniently we read.

	case config.FieldFN:
		if v := strings.TrimSpace(prop.value); v != "" {
			c.FormattedName = v
		}

	case config.FieldN:
		c.Name = parseStructuredName(prop.value)

	case config.FieldBday:
		if c.Birthday != "" {
			return
		}
		normalized := normalize.Date(prop.value)
		if normalized == "" {
			*diags = append(*diags, Diagnostic{
				Line: num, Severity: SeverityWarning,
				Message: config.MsgDroppedDate, Raw: prop.value,
			})
			p.log.Warn(config.MsgDroppedDate, config.LogKeyLine, num, config.LogKeyValue, prop.value)
			return
		}
		c.Birthday = normalized

	case config.FieldTel:
		number, ok := p.norm.Phone(prop.value)
		if !ok {
			// Never destroy information: the raw text survives in NOTE.
			c.AppendNoteLine(strings.TrimSpace(prop.value))
			*diags = append(*diags, Diagnostic{
				Line: num, Severity: SeverityWarning,
				Message: config.MsgDroppedPhone, Raw: prop.value,
			})
			p.log.Debug(config.MsgDroppedPhone, config.LogKeyLine, num, config.LogKeyValue, prop.value)
			return
		}
		c.AddPhone(number, prop.types)
		if prop.group != "" {
			groups[prop.group] = groupRef{field: config.FieldTel, key: phoneKey(number)}
		}

	case config.FieldEmail:
		addr, ok := normalize.Email(prop.value)
		if !ok {
			c.AppendNoteLine(strings.TrimSpace(prop.value))
			*diags = append(*diags, Diagnostic{
				Line: num, Severity: SeverityWarning,
				Message: config.MsgDroppedEmail, Raw: prop.value,
			})
			return
		}
		if c.AddEmail(addr, prop.types) && prop.group != "" {
			groups[prop.group] = groupRef{field: config.FieldEmail, index: len(c.Emails) - 1}
		}

	case config.FieldAdr:
		addr := parseAddress(prop.value, prop.types)
		if c.AddAddress(addr) && prop.group != "" {
			groups[prop.group] = groupRef{field: config.FieldAdr, index: len(c.Addresses) - 1}
		}

	case config.FieldOrg:
		if v := strings.TrimSpace(strings.TrimRight(unescapeText(prop.value), ";")); v != "" {
			c.Organization = v
		}

	case config.FieldTitle:
		if v := strings.TrimSpace(prop.value); v != "" {
			c.Title = v
		}

	case config.FieldNote:
		for _, line := range strings.Split(unescapeText(prop.value), "\n") {
			c.AppendNoteLine(line)
		}

	case config.FieldABLabel:
		// A label line classifies the immediately preceding property of the
		// same vendor group, e.g. item1.X-ABLabel:Obsolete after item1.TEL.
		ref, ok := groups[prop.group]
		if !ok {
			return
		}
		tag := strings.ToUpper(strings.TrimSpace(unescapeText(prop.value)))
		if tag == "" {
			return
		}
		switch ref.field {
		case config.FieldTel:
			for i := range c.Phones {
				if phoneKey(c.Phones[i].Number) == ref.key {
					c.Phones[i].Types = unionTags(c.Phones[i].Types, []string{tag})
					c.sortPhones()
					break
				}
			}
		case config.FieldEmail:
			if ref.index < len(c.Emails) {
				c.Emails[ref.index].Types = unionTags(c.Emails[ref.index].Types, []string{tag})
			}
		case config.FieldAdr:
			if ref.index < len(c.Addresses) {
				c.Addresses[ref.index].Types = unionTags(c.Addresses[ref.index].Types, []string{tag})
			}
		}

	default:
		*diags = append(*diags, Diagnostic{
			Line: num, Severity: SeverityInfo,
			Message: config.MsgUnknownProperty, Raw: prop.name,
		})
	}
}

// finishContact derives a display name from N when FN is missing.
func finishContact(c *Contact) {
	if c.FormattedName != "" {
		return
	}
	parts := []string{c.Name.Prefix, c.Name.Given, c.Name.Middle, c.Name.Family, c.Name.Suffix}
	var keep []string
	for _, p := range parts {
		if p != "" {
			keep = append(keep, p)
		}
	}
	c.FormattedName = strings.Join(keep, " ")
}

// unfold reads physical lines and joins vCard continuation lines (leading
// space or tab) onto the previous logical line.
func unfold(r io.Reader) ([]logicalLine, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []logicalLine
	num := 0
	for scanner.Scan() {
		num++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		if (text[0] == ' ' || text[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1].text += text[1:]
			continue
		}
		lines = append(lines, logicalLine{text: strings.TrimSpace(text), num: num})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// splitProperty resolves one logical line into the uniform property shape.
// Returns false for lines without a name/value separator.
func splitProperty(line string) (property, bool) {
	lhs, value, found := strings.Cut(line, ":")
	if !found {
		return property{}, false
	}

	var prop property
	prop.value = strings.TrimSpace(value)

	segments := strings.Split(lhs, ";")
	name := strings.TrimSpace(segments[0])

	// Vendor grouping: item1.TEL, item2.EMAIL. The numeric group carries no
	// meaning beyond associating a following X-ABLabel line.
	if group, bare, ok := strings.Cut(name, config.GroupSeparator); ok {
		prop.group = strings.ToLower(strings.TrimSpace(group))
		name = bare
	}
	prop.name = strings.ToUpper(strings.TrimSpace(name))

	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if key, val, ok := strings.Cut(seg, "="); ok {
			if strings.EqualFold(strings.TrimSpace(key), config.ParamTypeKey) {
				for _, t := range strings.Split(val, ",") {
					if t = strings.TrimSpace(t); t != "" {
						prop.types = append(prop.types, strings.ToUpper(t))
					}
				}
			}
			// Other parameters (CHARSET, ENCODING, VALUE) are ignored.
			continue
		}
		// Legacy bare token: TEL;CELL: means TYPE=CELL.
		prop.types = append(prop.types, strings.ToUpper(seg))
	}
	return prop, true
}

// splitComponents splits a compound value on unescaped semicolons only,
// leaving escape sequences intact for a later unescapeText pass.
func splitComponents(value string) []string {
	var parts []string
	var b strings.Builder
	escaped := false
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if escaped {
			b.WriteByte('\\')
			b.WriteByte(ch)
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == ';' {
			parts = append(parts, b.String())
			b.Reset()
			continue
		}
		b.WriteByte(ch)
	}
	if escaped {
		b.WriteByte('\\')
	}
	return append(parts, b.String())
}

// parseStructuredName splits the N value into its five components.
func parseStructuredName(value string) StructuredName {
	parts := splitComponents(value)
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	return StructuredName{
		Family: strings.TrimSpace(unescapeText(parts[0])),
		Given:  strings.TrimSpace(unescapeText(parts[1])),
		Middle: strings.TrimSpace(unescapeText(parts[2])),
		Prefix: strings.TrimSpace(unescapeText(parts[3])),
		Suffix: strings.TrimSpace(unescapeText(parts[4])),
	}
}

// parseAddress folds the seven ADR components into the structured model.
// PO box and extended-address spill into the street line.
func parseAddress(value string, types []string) Address {
	parts := splitComponents(value)
	for len(parts) < 7 {
		parts = append(parts, "")
	}
	comp := func(i int) string {
		return strings.TrimSpace(unescapeText(parts[i]))
	}

	var street []string
	for _, s := range []string{comp(0), comp(1), comp(2)} {
		if s != "" {
			street = append(street, s)
		}
	}
	return Address{
		Street:     strings.Join(street, ", "),
		City:       comp(3),
		Region:     comp(4),
		PostalCode: comp(5),
		Country:    comp(6),
		Types:      types,
	}
}

// unescapeText reverses vCard value escaping (\n, \comma, \semicolon, \\).
func unescapeText(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case ',', ';', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
