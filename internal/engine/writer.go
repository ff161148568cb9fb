package engine

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/vcf"
)

var (
	reUnsafeChars = regexp.MustCompile(`[\\/:*?"<>|]+`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// WriteOutputs persists a run: backup of a pre-existing output file,
// the combined vCard file, the optional split-per-contact directory, and
// the optional birthday calendar.
func (m *Merger) WriteOutputs(res *Result) error {
	log := slog.With(config.LogKeyComponent, config.CompWriter)

	if m.Options.Backup {
		if err := backupFile(m.Options.Output, log); err != nil {
			return err
		}
	}

	if err := os.WriteFile(m.Options.Output, res.Output, config.FilePermDefault); err != nil {
		return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
	}
	log.Info(config.MsgOutputWritten,
		config.LogKeyFile, m.Options.Output,
		config.LogKeyCount, len(res.Contacts),
	)

	if m.Options.SplitOutput {
		if err := m.writeSplit(res.Contacts, log); err != nil {
			return err
		}
	}

	if m.Options.BirthdayCalendar != "" {
		ics, err := BirthdayCalendar(res.Contacts, time.Now())
		if err != nil {
			return err
		}
		if err := os.WriteFile(m.Options.BirthdayCalendar, ics, config.FilePermDefault); err != nil {
			return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
		}
		log.Info(config.MsgCalendarWritten, config.LogKeyFile, m.Options.BirthdayCalendar)
	}
	return nil
}

// writeSplit emits one .vcf file per contact for clients that only import
// single-card files.
func (m *Merger) writeSplit(contacts []*vcf.Contact, log *slog.Logger) error {
	dir := m.Options.SplitOutputDir
	if err := os.MkdirAll(dir, config.DirPermDefault); err != nil {
		return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
	}

	for _, c := range contacts {
		path := uniquePath(dir, safeFilename(c.FormattedName))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, config.FilePermDefault)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
		}
		err = vcf.Encode(f, c, m.Options.VCFVersion)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
		}
	}
	log.Info(config.MsgSplitWritten, config.LogKeyFile, dir, config.LogKeyCount, len(contacts))
	return nil
}

// backupFile copies an existing output aside with a timestamp suffix
// before it is overwritten.
func backupFile(path string, log *slog.Logger) error {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%s: %w", config.ErrCreateBackup, err)
	}
	defer func() { _ = src.Close() }()

	backupPath := fmt.Sprintf("%s%s_%s", path, config.BackupSuffix, time.Now().Format(config.BackupTimeLayout))
	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.FilePermDefault)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrCreateBackup, err)
	}
	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrCreateBackup, err)
	}

	log.Info(config.MsgBackupCreated, config.LogKeyFile, backupPath)
	return nil
}

// safeFilename derives a filesystem-safe fragment from a contact name.
func safeFilename(name string) string {
	cleaned := reUnsafeChars.ReplaceAllString(name, "_")
	cleaned = strings.TrimSpace(reSpaces.ReplaceAllString(cleaned, " "))
	if len(cleaned) > config.MaxSafeFilenameLen {
		cleaned = cleaned[:config.MaxSafeFilenameLen]
	}
	if cleaned == "" {
		return config.FallbackContactName
	}
	return cleaned
}

// uniquePath appends _2, _3, … until the name does not collide.
func uniquePath(dir, base string) string {
	path := filepath.Join(dir, base+".vcf")
	for suffix := 2; ; suffix++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.vcf", base, suffix))
	}
}
