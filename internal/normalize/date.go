package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-vcfmerge/internal/config"
)

// Birthday values arrive in whatever shape the exporting client used.
// The patterns below cover the separator forms seen in iCloud and Outlook
// exports; month-name forms are handled with time.Parse layouts.
var (
	reYMD     = regexp.MustCompile(`^(\d{4})[-./](\d{1,2})[-./](\d{1,2})$`)
	reDMY     = regexp.MustCompile(`^(\d{1,2})[-./](\d{1,2})[-./](\d{4})$`)
	reDM      = regexp.MustCompile(`^(\d{1,2})[-./](\d{1,2})$`)
	reCompact = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	reDMYComp = regexp.MustCompile(`^(\d{2})(\d{2})(\d{4})$`)
	reNoYear  = regexp.MustCompile(`^--(\d{2})-?(\d{2})$`)
)

// monthNameLayouts cover English month-name forms, with and without a year.
var monthNameLayouts = []string{
	"2 January 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January",
	"January 2",
	"2 Jan",
	"Jan 2",
}

// Date normalizes a raw date value to YYYY-MM-DD. The sentinel year 1900
// stands in when the year is missing or implausible (before 1900 or in the
// future). An empty return means the value could not be resolved to at
// least a day and a month; such dates are dropped, never defaulted.
func Date(raw string) string {
	value := trimValue(raw)
	if value == "" {
		return ""
	}

	if m := reYMD.FindStringSubmatch(value); m != nil {
		return formatDMY(m[3], m[2], m[1])
	}
	if m := reDMY.FindStringSubmatch(value); m != nil {
		// European order: day first.
		return formatDMY(m[1], m[2], m[3])
	}
	if m := reDM.FindStringSubmatch(value); m != nil {
		return formatDMY(m[1], m[2], "")
	}
	if m := reNoYear.FindStringSubmatch(value); m != nil {
		// vCard 4 truncated form --MM-DD / --MMDD.
		return formatDMY(m[2], m[1], "")
	}
	// An 8-digit string is read as YYYYMMDD first and as DDMMYYYY only
	// when that yields an impossible month or day.
	if m := reCompact.FindStringSubmatch(value); m != nil {
		if out := formatDMY(m[3], m[2], m[1]); out != "" {
			return out
		}
	}
	if m := reDMYComp.FindStringSubmatch(value); m != nil {
		return formatDMY(m[1], m[2], m[3])
	}

	for _, layout := range monthNameLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			year := ""
			if t.Year() > 0 {
				year = strconv.Itoa(t.Year())
			}
			return formatDMY(strconv.Itoa(t.Day()), strconv.Itoa(int(t.Month())), year)
		}
	}
	return ""
}

// formatDMY validates the parts and renders YYYY-MM-DD, substituting the
// sentinel year when the year component is missing or implausible.
func formatDMY(day, month, year string) string {
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return ""
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return ""
	}

	y := config.SentinelYear
	if year != "" {
		parsed, err := strconv.Atoi(year)
		if err != nil {
			return ""
		}
		if parsed >= config.SentinelYear && parsed <= time.Now().Year() {
			y = parsed
		}
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

// YearUnknown reports whether a normalized birthday carries the sentinel
// year instead of a real one.
func YearUnknown(birthday string) bool {
	return len(birthday) >= 4 && birthday[:4] == "1900"
}

func trimValue(raw string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(raw), ";"))
}
