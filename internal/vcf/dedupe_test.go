package vcf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/vcf"
)

func TestDedupe_NoDuplicates(t *testing.T) {
	contacts := []*vcf.Contact{
		{FormattedName: "Jane Doe"},
		{FormattedName: "John Smith"},
	}

	out, collapsed := vcf.Dedupe(contacts)

	require.Len(t, out, 2)
	assert.Empty(t, collapsed)
	assert.Same(t, contacts[0], out[0])
	assert.Same(t, contacts[1], out[1])
}

func TestDedupe_CollapsesByIdentityKey(t *testing.T) {
	contacts := []*vcf.Contact{
		{FormattedName: "Jane Doe", Phones: []vcf.Phone{{Number: "5551112222"}}},
		{FormattedName: "John Smith"},
		{FormattedName: "Doe, Jane", Emails: []vcf.Email{{Address: "jane@example.com"}}},
	}

	out, collapsed := vcf.Dedupe(contacts)

	require.Len(t, out, 2)
	// Output preserves first-occurrence order of each key; the longer
	// display form displaces the baseline.
	assert.Equal(t, "Doe, Jane", out[0].FormattedName)
	assert.Equal(t, "John Smith", out[1].FormattedName)
	require.Len(t, out[0].Phones, 1)
	require.Len(t, out[0].Emails, 1)

	require.Len(t, collapsed, 1)
	assert.Equal(t, "doe jane", collapsed[0].Key)
	assert.Equal(t, 2, collapsed[0].Count)
	assert.Contains(t, collapsed[0].Extended, config.FieldEmail)
}

func TestDedupe_FirstSeenScalarBaseline(t *testing.T) {
	contacts := []*vcf.Contact{
		{FormattedName: "Jane Doe", Organization: "Acme"},
		{FormattedName: "Jane Doe", Organization: "Bolt"},
	}

	out, _ := vcf.Dedupe(contacts)

	require.Len(t, out, 1)
	// Later values displace the baseline only when strictly more complete.
	assert.Equal(t, "Acme", out[0].Organization)
}

func TestDedupe_MoreCompleteScalarWins(t *testing.T) {
	contacts := []*vcf.Contact{
		{FormattedName: "Jane Doe", Title: "Eng"},
		{FormattedName: "Jane Doe", Title: "Senior Engineer"},
	}

	out, _ := vcf.Dedupe(contacts)

	require.Len(t, out, 1)
	assert.Equal(t, "Senior Engineer", out[0].Title)
}

func TestDedupe_BirthdaySentinelException(t *testing.T) {
	contacts := []*vcf.Contact{
		{FormattedName: "Jane Doe", Birthday: "1900-03-04"},
		{FormattedName: "Jane Doe", Birthday: "1987-03-04"},
	}

	out, _ := vcf.Dedupe(contacts)

	require.Len(t, out, 1)
	assert.Equal(t, "1987-03-04", out[0].Birthday)
}

func TestDedupe_NameCompleteness(t *testing.T) {
	contacts := []*vcf.Contact{
		{FormattedName: "Jane Doe", Name: vcf.StructuredName{Family: "Doe"}},
		{FormattedName: "Jane Doe", Name: vcf.StructuredName{Family: "Doe", Given: "Jane"}},
	}

	out, _ := vcf.Dedupe(contacts)

	require.Len(t, out, 1)
	assert.Equal(t, "Jane", out[0].Name.Given)
}

func TestDedupe_NamelessContactsStaySeparate(t *testing.T) {
	contacts := []*vcf.Contact{
		{Phones: []vcf.Phone{{Number: "5551112222"}}},
		{Phones: []vcf.Phone{{Number: "5553334444"}}},
	}

	out, collapsed := vcf.Dedupe(contacts)

	require.Len(t, out, 2)
	assert.Empty(t, collapsed)
	assert.Same(t, contacts[0], out[0])
	assert.Same(t, contacts[1], out[1])
}

func TestDedupe_Stable(t *testing.T) {
	contacts := []*vcf.Contact{
		{FormattedName: "Jane Doe", Phones: []vcf.Phone{{Number: "5551112222"}}},
		{FormattedName: "Doe, Jane", Emails: []vcf.Email{{Address: "jane@example.com"}}},
		{FormattedName: "John Smith"},
	}

	once, _ := vcf.Dedupe(contacts)
	twice, collapsed := vcf.Dedupe(once)

	assert.Equal(t, once, twice)
	assert.Empty(t, collapsed)
}

func TestDedupe_ThreeWayFold(t *testing.T) {
	contacts := []*vcf.Contact{
		{FormattedName: "Jane Doe", Phones: []vcf.Phone{{Number: "5551112222", Types: []string{config.TypeHome}}}},
		{FormattedName: "Jane Doe", Phones: []vcf.Phone{{Number: "5553334444", Types: []string{config.TypeCell}}}},
		{FormattedName: "Jane Doe", Note: "old friend"},
	}

	out, collapsed := vcf.Dedupe(contacts)

	require.Len(t, out, 1)
	require.Len(t, out[0].Phones, 2)
	// Mobile sorts ahead of home.
	assert.Equal(t, "5553334444", out[0].Phones[0].Number)
	assert.Equal(t, "old friend", out[0].Note)
	require.Len(t, collapsed, 1)
	assert.Equal(t, 3, collapsed[0].Count)
}
