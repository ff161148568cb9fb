package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/normalize"
	"github.com/tartampluch/go-vcfmerge/internal/vcf"
)

// Stats summarizes a merge run.
type Stats struct {
	SourceContacts  int
	UpdateContacts  int
	MergedPairs     int
	AddedFromUpdate int
	CollapsedGroups int
	FinalContacts   int
}

// Result is everything a run produces: the serialized output, the final
// contact list, the accumulated diagnostics, and the dedup report.
type Result struct {
	Output      []byte
	Contacts    []*vcf.Contact
	Diagnostics []vcf.Diagnostic
	Collapsed   []vcf.Collapse
	Stats       Stats
}

// Merger is the core service running the pipeline. The fetcher is only
// consulted when an input path is an http(s) URL.
type Merger struct {
	Fetcher VCardFetcher
	Options config.Options
}

// Run executes the full pipeline: acquire and parse the source (and, when
// configured, the update), promote NOTE payloads, pair and merge by
// identity key, collapse duplicates, and serialize. The stages themselves
// are synchronous; the context is checked between them.
func (m *Merger) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := slog.With(config.LogKeyComponent, config.CompEngine)
	log.Info(config.MsgRunStarted,
		config.LogKeySource, m.Options.Source,
		config.LogKeyUpdate, m.Options.Update,
	)

	norm := normalize.New(m.Options)
	parser := vcf.NewParser(norm)
	res := &Result{}

	log.Info(config.MsgReadingSource)
	source, err := m.readContacts(ctx, parser, norm, m.Options.Source, res)
	if err != nil {
		return nil, err
	}
	res.Stats.SourceContacts = len(source)

	merged := source
	if m.Options.Update != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Info(config.MsgReadingUpdate)
		update, err := m.readContacts(ctx, parser, norm, m.Options.Update, res)
		if err != nil {
			return nil, err
		}
		res.Stats.UpdateContacts = len(update)
		merged = m.mergeUpdate(source, update, res, log)
	} else {
		log.Info(config.MsgNoUpdate)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m.Options.Dedupe {
		var collapsed []vcf.Collapse
		merged, collapsed = vcf.Dedupe(merged)
		res.Collapsed = collapsed
		res.Stats.CollapsedGroups = len(collapsed)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := vcf.EncodeAll(&buf, merged, m.Options.VCFVersion); err != nil {
		return nil, err
	}
	res.Output = buf.Bytes()
	res.Contacts = merged
	res.Stats.FinalContacts = len(merged)

	log.Info(config.MsgRunSuccess,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeySource, res.Stats.SourceContacts),
			slog.Int(config.LogKeyUpdate, res.Stats.UpdateContacts),
			slog.Int(config.LogKeyMerged, res.Stats.MergedPairs),
			slog.Int(config.LogKeyCollapsed, res.Stats.CollapsedGroups),
			slog.Int(config.LogKeyWarnings, len(res.Diagnostics)),
		),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// mergeUpdate pairs update contacts with source contacts by identity key.
// Matches merge under the configured precedence rules; unmatched update
// contacts are appended as new records.
func (m *Merger) mergeUpdate(source, update []*vcf.Contact, res *Result, log *slog.Logger) []*vcf.Contact {
	preferUpdate, preferSource := m.Options.NormalizedPreferences()
	rules := vcf.NewRules(preferUpdate, preferSource)

	merged := make([]*vcf.Contact, len(source))
	copy(merged, source)

	index := make(map[string]int, len(merged))
	for i, c := range merged {
		if _, dup := index[c.Key()]; !dup {
			index[c.Key()] = i
		}
	}

	for _, u := range update {
		key := u.Key()
		if i, ok := index[key]; ok {
			merged[i] = vcf.Merge(merged[i], u, rules)
			res.Stats.MergedPairs++
			log.Debug(config.MsgMergedContact, config.LogKeyKey, key)
			continue
		}
		index[key] = len(merged)
		merged = append(merged, u)
		res.Stats.AddedFromUpdate++
		log.Debug(config.MsgAddedContact, config.LogKeyKey, key)
	}
	return merged
}

// readContacts acquires one input, parses it, and runs NOTE promotion on
// every contact. Diagnostics accumulate on the result.
func (m *Merger) readContacts(ctx context.Context, parser *vcf.Parser, norm *normalize.Normalizer, path string, res *Result) ([]*vcf.Contact, error) {
	reader, err := m.acquire(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrOpenInput, err)
	}
	defer func() { _ = reader.Close() }()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrOpenInput, err)
	}
	text, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	contacts, diags, err := parser.Parse(strings.NewReader(text))
	res.Diagnostics = append(res.Diagnostics, diags...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for _, c := range contacts {
		vcf.Promote(c, norm)
	}
	return contacts, nil
}

// acquire opens a local file or delegates to the fetcher for URLs.
func (m *Merger) acquire(ctx context.Context, path string) (io.ReadCloser, error) {
	if strings.HasPrefix(path, config.SchemeHTTP+"://") || strings.HasPrefix(path, config.SchemeHTTPS+"://") {
		if m.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return m.Fetcher.Fetch(ctx, path, m.Options.WebUser, m.Options.WebPass)
	}
	return os.Open(path)
}

// decodeText interprets the input bytes as UTF-8, falling back to Latin-1
// for older exports. Inputs that are clearly not text are rejected.
func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		if bytes.ContainsRune(raw, 0) {
			return "", errors.New(config.ErrInputDecode)
		}
		return string(raw), nil
	}

	slog.Warn(config.MsgLatin1Fallback, config.LogKeyComponent, config.CompEngine)
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if c == 0 {
			return "", errors.New(config.ErrInputDecode)
		}
		b.WriteRune(rune(c))
	}
	return b.String(), nil
}
