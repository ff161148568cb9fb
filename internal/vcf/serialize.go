package vcf

import (
	"fmt"
	"io"

	"github.com/emersion/go-vcard"

	"github.com/tartampluch/go-vcfmerge/internal/config"
)

// Encode renders one contact as a BEGIN:VCARD…END:VCARD block.
func Encode(w io.Writer, c *Contact, version string) error {
	card := buildCard(c, version)
	if err := vcard.NewEncoder(w).Encode(card); err != nil {
		return fmt.Errorf("%s: %w", config.ErrEncodeCard, err)
	}
	return nil
}

// EncodeAll streams every contact into one output.
func EncodeAll(w io.Writer, contacts []*Contact, version string) error {
	enc := vcard.NewEncoder(w)
	for _, c := range contacts {
		if err := enc.Encode(buildCard(c, version)); err != nil {
			return fmt.Errorf("%s: %w", config.ErrEncodeCard, err)
		}
	}
	return nil
}

// buildCard maps the canonical contact onto a go-vcard Card. Values go in
// raw: the go-vcard encoder escapes backslashes, newlines, and commas on
// write, and the structured Name/Address helpers own the component joins.
func buildCard(c *Contact, version string) vcard.Card {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldVersion, version)

	fn := c.FormattedName
	if fn == "" {
		fn = config.FallbackContactName
	}
	card.SetValue(vcard.FieldFormattedName, fn)

	if !c.Name.IsZero() {
		card.SetName(&vcard.Name{
			FamilyName:      c.Name.Family,
			GivenName:       c.Name.Given,
			AdditionalName:  c.Name.Middle,
			HonorificPrefix: c.Name.Prefix,
			HonorificSuffix: c.Name.Suffix,
		})
	}
	if c.Organization != "" {
		card.SetValue(vcard.FieldOrganization, c.Organization)
	}
	if c.Title != "" {
		card.SetValue(vcard.FieldTitle, c.Title)
	}
	if c.Birthday != "" {
		card.SetValue(vcard.FieldBirthday, c.Birthday)
	}

	for _, a := range c.Addresses {
		card.AddAddress(&vcard.Address{
			Field:         &vcard.Field{Params: typeParams(a.Types)},
			StreetAddress: a.Street,
			Locality:      a.City,
			Region:        a.Region,
			PostalCode:    a.PostalCode,
			Country:       a.Country,
		})
	}

	// Phones are already held in priority order (mobile first).
	for _, p := range c.Phones {
		card.Add(vcard.FieldTelephone, &vcard.Field{
			Value:  p.Number,
			Params: typeParams(p.Types),
		})
	}
	for _, e := range c.Emails {
		card.Add(vcard.FieldEmail, &vcard.Field{
			Value:  e.Address,
			Params: typeParams(e.Types),
		})
	}

	// One consolidated NOTE; embedded newlines are escaped by the encoder.
	if c.Note != "" {
		card.SetValue(vcard.FieldNote, c.Note)
	}
	return card
}

func typeParams(types []string) vcard.Params {
	if len(types) == 0 {
		return nil
	}
	params := make(vcard.Params)
	for _, t := range types {
		params.Add(vcard.ParamType, t)
	}
	return params
}
