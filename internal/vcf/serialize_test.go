package vcf_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/vcf"
)

func TestEncode_FullContact(t *testing.T) {
	c := &vcf.Contact{
		FormattedName: "Jane Doe",
		Name:          vcf.StructuredName{Family: "Doe", Given: "Jane"},
		Birthday:      "1987-03-04",
		Phones:        []vcf.Phone{{Number: "+14155552671", Types: []string{config.TypeCell}}},
		Emails:        []vcf.Email{{Address: "jane@example.com"}},
		Organization:  "Acme Corp",
		Title:         "Engineer",
		Note:          "old friend",
	}

	var buf strings.Builder
	require.NoError(t, vcf.Encode(&buf, c, config.DefaultVCFVersion))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCARD"))
	assert.Contains(t, out, "VERSION:3.0")
	assert.Contains(t, out, "FN:Jane Doe")
	assert.Contains(t, out, "Doe;Jane;;;")
	assert.Contains(t, out, "BDAY:1987-03-04")
	assert.Contains(t, out, "+14155552671")
	assert.Contains(t, out, "jane@example.com")
	assert.Contains(t, out, "Acme Corp")
	assert.Contains(t, out, "Engineer")
	assert.Contains(t, out, "old friend")
	assert.Contains(t, out, "END:VCARD")
}

func TestEncode_MissingNameFallsBack(t *testing.T) {
	c := &vcf.Contact{Phones: []vcf.Phone{{Number: "5551234567"}}}

	var buf strings.Builder
	require.NoError(t, vcf.Encode(&buf, c, config.DefaultVCFVersion))

	assert.Contains(t, buf.String(), "FN:"+config.FallbackContactName)
}

func TestEncode_NoteEscaped(t *testing.T) {
	c := &vcf.Contact{FormattedName: "Jane", Note: "line one\nline two, with comma"}

	var buf strings.Builder
	require.NoError(t, vcf.Encode(&buf, c, config.DefaultVCFVersion))

	out := buf.String()
	assert.Contains(t, out, `line one\nline two\, with comma`)
	assert.NotContains(t, out, "line one\nline two")
	// The encoder escapes exactly once.
	assert.NotContains(t, out, `\\n`)
	assert.NotContains(t, out, `\\,`)
}

func TestEncode_CommaInScalarEscapedOnce(t *testing.T) {
	c := &vcf.Contact{FormattedName: "Doe, Jane", Organization: "Acme, Inc."}

	var buf strings.Builder
	require.NoError(t, vcf.Encode(&buf, c, config.DefaultVCFVersion))

	out := buf.String()
	assert.Contains(t, out, `FN:Doe\, Jane`)
	assert.Contains(t, out, `Acme\, Inc.`)
	assert.NotContains(t, out, `\\,`)
}

func TestEncode_MultilineNoteRoundTrips(t *testing.T) {
	c := &vcf.Contact{FormattedName: "Jane", Note: "line one\nline two, with comma"}

	var buf strings.Builder
	require.NoError(t, vcf.Encode(&buf, c, config.DefaultVCFVersion))

	parsed, _, err := newTestParser().Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, []string{"line one", "line two, with comma"}, parsed[0].NoteLines())
}

func TestEncode_OmitsAbsentBirthday(t *testing.T) {
	c := &vcf.Contact{FormattedName: "Jane"}

	var buf strings.Builder
	require.NoError(t, vcf.Encode(&buf, c, config.DefaultVCFVersion))

	assert.NotContains(t, buf.String(), "BDAY")
}

func TestEncodeAll_RoundTripsThroughParser(t *testing.T) {
	contacts := []*vcf.Contact{
		{
			FormattedName: "Jane Doe",
			Name:          vcf.StructuredName{Family: "Doe", Given: "Jane"},
			Birthday:      "1987-03-04",
			Phones: []vcf.Phone{
				{Number: "5553334444", Types: []string{config.TypeCell}},
				{Number: "5551112222", Types: []string{config.TypeWork}},
			},
			Emails: []vcf.Email{{Address: "jane@example.com"}},
		},
		{FormattedName: "John Smith", Note: "met at the conference"},
	}

	var buf strings.Builder
	require.NoError(t, vcf.EncodeAll(&buf, contacts, config.DefaultVCFVersion))

	parsed, diags, err := newTestParser().Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	for _, d := range diags {
		assert.NotEqual(t, vcf.SeverityWarning, d.Severity)
	}

	jane := parsed[0]
	assert.Equal(t, "Jane Doe", jane.FormattedName)
	assert.Equal(t, "Doe", jane.Name.Family)
	assert.Equal(t, "1987-03-04", jane.Birthday)
	require.Len(t, jane.Phones, 2)
	assert.Equal(t, "5553334444", jane.Phones[0].Number)
	require.Len(t, jane.Emails, 1)

	john := parsed[1]
	assert.Equal(t, "met at the conference", john.Note)
}
