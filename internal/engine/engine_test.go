package engine_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/engine"
	"github.com/tartampluch/go-vcfmerge/internal/vcf"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockFetcher simulates the network layer for unit tests using `testify/mock`.
type MockFetcher struct {
	mock.Mock
}

// Fetch implements the engine.VCardFetcher interface.
func (m *MockFetcher) Fetch(ctx context.Context, url, user, pass string) (io.ReadCloser, error) {
	args := m.Called(ctx, url, user, pass)
	if r := args.Get(0); r != nil {
		return r.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func writeVCF(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func baseOptions() config.Options {
	return config.Options{
		VCFVersion:      config.DefaultVCFVersion,
		MinDigits:       config.DefaultMinDigits,
		PreferUpdateFor: config.DefaultPreferUpdateFor,
		PreferSourceFor: config.DefaultPreferSourceFor,
		Dedupe:          true,
	}
}

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestRun_SourceOnly(t *testing.T) {
	dir := t.TempDir()
	source := writeVCF(t, dir, "source.vcf", strings.Join([]string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:Jane Doe",
		"TEL;TYPE=CELL:5551112222",
		"NOTE:Mobile Phone: 555-333-4444",
		"END:VCARD",
	}, "\r\n"))

	opts := baseOptions()
	opts.Source = source
	m := &engine.Merger{Options: opts}

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.SourceContacts)
	assert.Equal(t, 0, res.Stats.UpdateContacts)
	assert.Equal(t, 1, res.Stats.FinalContacts)

	// NOTE promotion ran: the labeled mobile number became a real TEL.
	require.Len(t, res.Contacts, 1)
	assert.Len(t, res.Contacts[0].Phones, 2)
	assert.Empty(t, res.Contacts[0].Note)

	out := string(res.Output)
	assert.Contains(t, out, "FN:Jane Doe")
	assert.Contains(t, out, "5553334444")
}

func TestRun_MergeAndDedupe(t *testing.T) {
	dir := t.TempDir()
	source := writeVCF(t, dir, "source.vcf", strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Jane Doe",
		"TEL;TYPE=CELL:5551112222",
		"END:VCARD",
		"BEGIN:VCARD",
		"FN:John Smith",
		"END:VCARD",
	}, "\n"))
	update := writeVCF(t, dir, "update.vcf", strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Doe, Jane",
		"EMAIL:jane@example.com",
		"END:VCARD",
		"BEGIN:VCARD",
		"FN:New Person",
		"END:VCARD",
	}, "\n"))

	opts := baseOptions()
	opts.Source = source
	opts.Update = update
	m := &engine.Merger{Options: opts}

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.SourceContacts)
	assert.Equal(t, 2, res.Stats.UpdateContacts)
	assert.Equal(t, 1, res.Stats.MergedPairs)
	assert.Equal(t, 1, res.Stats.AddedFromUpdate)
	assert.Equal(t, 3, res.Stats.FinalContacts)

	jane := res.Contacts[0]
	assert.Len(t, jane.Phones, 1)
	assert.Len(t, jane.Emails, 1)
}

func TestRun_DedupeCollapsesWithinSource(t *testing.T) {
	dir := t.TempDir()
	source := writeVCF(t, dir, "source.vcf", strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Jane Doe",
		"TEL:5551112222",
		"END:VCARD",
		"BEGIN:VCARD",
		"FN:Doe, Jane",
		"EMAIL:jane@example.com",
		"END:VCARD",
	}, "\n"))

	opts := baseOptions()
	opts.Source = source
	m := &engine.Merger{Options: opts}

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.CollapsedGroups)
	assert.Equal(t, 1, res.Stats.FinalContacts)
	require.Len(t, res.Collapsed, 1)
	assert.Equal(t, 2, res.Collapsed[0].Count)
}

func TestRun_DedupeDisabled(t *testing.T) {
	dir := t.TempDir()
	source := writeVCF(t, dir, "source.vcf", strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Jane Doe",
		"END:VCARD",
		"BEGIN:VCARD",
		"FN:Jane Doe",
		"END:VCARD",
	}, "\n"))

	opts := baseOptions()
	opts.Source = source
	opts.Dedupe = false
	m := &engine.Merger{Options: opts}

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.FinalContacts)
	assert.Empty(t, res.Collapsed)
}

func TestRun_WebSource(t *testing.T) {
	vcardContent := strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Remote Contact",
		"END:VCARD",
	}, "\r\n")

	mockFetcher := new(MockFetcher)
	mockFetcher.On("Fetch", mock.Anything, "https://example.com/contacts.vcf", "user", "secret").
		Return(io.NopCloser(strings.NewReader(vcardContent)), nil)

	opts := baseOptions()
	opts.Source = "https://example.com/contacts.vcf"
	opts.WebUser = "user"
	opts.WebPass = "secret"
	m := &engine.Merger{Fetcher: mockFetcher, Options: opts}

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "Remote Contact", res.Contacts[0].FormattedName)
	mockFetcher.AssertExpectations(t)
}

func TestRun_WebSourceWithoutFetcher(t *testing.T) {
	opts := baseOptions()
	opts.Source = "https://example.com/contacts.vcf"
	m := &engine.Merger{Options: opts}

	_, err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrFetcherMissing)
}

func TestRun_MissingSourceFile(t *testing.T) {
	opts := baseOptions()
	opts.Source = filepath.Join(t.TempDir(), "missing.vcf")
	m := &engine.Merger{Options: opts}

	_, err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrOpenInput)
}

func TestRun_NoVCardsInInput(t *testing.T) {
	dir := t.TempDir()
	source := writeVCF(t, dir, "source.vcf", "this is not a vcard file\n")

	opts := baseOptions()
	opts.Source = source
	m := &engine.Merger{Options: opts}

	_, err := m.Run(context.Background())
	assert.ErrorIs(t, err, vcf.ErrNoVCards)
}

func TestRun_Latin1Fallback(t *testing.T) {
	dir := t.TempDir()
	// 0xE9 is é in Latin-1 and invalid as a standalone UTF-8 byte.
	content := "BEGIN:VCARD\nFN:Ren\xe9 Dupont\nEND:VCARD\n"
	source := writeVCF(t, dir, "source.vcf", content)

	opts := baseOptions()
	opts.Source = source
	m := &engine.Merger{Options: opts}

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "René Dupont", res.Contacts[0].FormattedName)
}

func TestRun_BinaryInputRejected(t *testing.T) {
	dir := t.TempDir()
	source := writeVCF(t, dir, "source.vcf", "BEGIN:VCARD\x00END:VCARD")

	opts := baseOptions()
	opts.Source = source
	m := &engine.Merger{Options: opts}

	_, err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrInputDecode)
}

func TestRun_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	source := writeVCF(t, dir, "source.vcf", "BEGIN:VCARD\nFN:Jane\nEND:VCARD\n")
	update := writeVCF(t, dir, "update.vcf", "BEGIN:VCARD\nFN:John\nEND:VCARD\n")

	opts := baseOptions()
	opts.Source = source
	opts.Update = update
	m := &engine.Merger{Options: opts}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// -----------------------------------------------------------------------------
// Output Writing
// -----------------------------------------------------------------------------

func TestWriteOutputs_CreatesBackup(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "merged.vcf")
	require.NoError(t, os.WriteFile(output, []byte("old content"), 0o644))

	opts := baseOptions()
	opts.Output = output
	opts.Backup = true
	m := &engine.Merger{Options: opts}

	res := &engine.Result{Output: []byte("new content")}
	require.NoError(t, m.WriteOutputs(res))

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(written))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var backups []string
	for _, e := range entries {
		if strings.Contains(e.Name(), config.BackupSuffix) {
			backups = append(backups, e.Name())
		}
	}
	require.Len(t, backups, 1)

	restored, err := os.ReadFile(filepath.Join(dir, backups[0]))
	require.NoError(t, err)
	assert.Equal(t, "old content", string(restored))
}

func TestWriteOutputs_NoBackupForFreshOutput(t *testing.T) {
	dir := t.TempDir()

	opts := baseOptions()
	opts.Output = filepath.Join(dir, "merged.vcf")
	opts.Backup = true
	m := &engine.Merger{Options: opts}

	require.NoError(t, m.WriteOutputs(&engine.Result{Output: []byte("content")}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteOutputs_SplitPerContact(t *testing.T) {
	dir := t.TempDir()
	splitDir := filepath.Join(dir, "split")

	opts := baseOptions()
	opts.Output = filepath.Join(dir, "merged.vcf")
	opts.SplitOutput = true
	opts.SplitOutputDir = splitDir
	m := &engine.Merger{Options: opts}

	res := &engine.Result{
		Contacts: []*vcf.Contact{
			{FormattedName: "Jane Doe"},
			{FormattedName: "Jane Doe"},
			{FormattedName: `Sla/sh: "Quoted"`},
		},
	}
	require.NoError(t, m.WriteOutputs(res))

	entries, err := os.ReadDir(splitDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "Jane Doe.vcf")
	assert.Contains(t, names, "Jane Doe_2.vcf")
}

func TestWriteOutputs_BirthdayCalendar(t *testing.T) {
	dir := t.TempDir()
	icsPath := filepath.Join(dir, "birthdays.ics")

	opts := baseOptions()
	opts.Output = filepath.Join(dir, "merged.vcf")
	opts.BirthdayCalendar = icsPath
	m := &engine.Merger{Options: opts}

	res := &engine.Result{
		Contacts: []*vcf.Contact{{FormattedName: "Jane Doe", Birthday: "1987-03-04"}},
	}
	require.NoError(t, m.WriteOutputs(res))

	ics, err := os.ReadFile(icsPath)
	require.NoError(t, err)
	assert.Contains(t, string(ics), "SUMMARY:Birthday: Jane Doe")
}

// -----------------------------------------------------------------------------
// Calendar Export
// -----------------------------------------------------------------------------

func TestBirthdayCalendar_Events(t *testing.T) {
	contacts := []*vcf.Contact{
		{FormattedName: "Jane Doe", Birthday: "1987-03-04"},
		{FormattedName: "No Birthday"},
		{FormattedName: "Year Unknown", Birthday: "1900-12-24"},
	}

	ics, err := engine.BirthdayCalendar(contacts, time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	out := string(ics)

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "SUMMARY:Birthday: Jane Doe")
	assert.Contains(t, out, "SUMMARY:Birthday: Year Unknown")
	assert.NotContains(t, out, "No Birthday")
	assert.Contains(t, out, "RRULE:FREQ=YEARLY")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:19870304")
}

func TestBirthdayCalendar_Deterministic(t *testing.T) {
	contacts := []*vcf.Contact{{FormattedName: "Jane Doe", Birthday: "1987-03-04"}}
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	a, err := engine.BirthdayCalendar(contacts, now)
	require.NoError(t, err)
	b, err := engine.BirthdayCalendar(contacts, now)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestBirthdayCalendar_EmptyStub(t *testing.T) {
	ics, err := engine.BirthdayCalendar(nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, config.StubVCalendar, string(ics))
}
