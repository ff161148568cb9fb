package engine

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tartampluch/go-vcfmerge/internal/config"
	"github.com/tartampluch/go-vcfmerge/internal/vcf"
)

// BirthdayCalendar renders the merged contacts' birthdays as an iCalendar
// feed with one yearly-recurring event per contact. Contacts without a
// parseable birthday are skipped; sentinel-year birthdays recur like any
// other but carry no birth year information.
func BirthdayCalendar(contacts []*vcf.Contact, now time.Time) ([]byte, error) {
	log := slog.With(config.LogKeyComponent, config.CompCalendar)

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)

	dtStamp := ical.NewProp(config.PropDTStamp)
	dtStamp.SetDateTime(now.UTC())

	count := 0
	for _, c := range contacts {
		if c.Birthday == "" {
			continue
		}
		birthDate, err := time.Parse(config.DateFormatISO, c.Birthday)
		if err != nil {
			log.Debug(config.MsgDroppedDate,
				config.LogKeyName, c.FormattedName,
				config.LogKeyValue, c.Birthday,
			)
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, eventUID(c.FormattedName, c.Birthday))
		event.Props.SetText(config.PropSummary, fmt.Sprintf(config.FormatBdaySummary, c.FormattedName))

		dtStart := ical.NewProp(config.PropDTStart)
		dtStart.SetDate(birthDate)
		event.Props.Set(dtStart)

		rrule := ical.NewProp(config.PropRRule)
		rrule.Value = config.RRuleYearly
		event.Props.Set(rrule)

		event.Props.Set(dtStamp)
		cal.Children = append(cal.Children, event.Component)
		count++
	}

	// Keep the feed valid for clients even when no birthdays exist.
	if count == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrEncodeCalendar, err)
	}

	log.Info(config.MsgCalendarWritten, config.LogKeyCount, count)
	return buf.Bytes(), nil
}

// eventUID is deterministic across runs so calendar clients can refresh
// without duplicating events.
func eventUID(name, birthday string) string {
	input := config.UIDSalt + name + "|" + birthday
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf(config.FormatUID, fmt.Sprintf("%x", hash[:config.UIDHashLength]), config.ICalDomain)
}
