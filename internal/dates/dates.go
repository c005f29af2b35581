// Package dates normalizes the heterogeneous date renderings found on
// regulatory listing pages and feeds into canonical UTC calendar dates.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthIndex = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	namedRe   = regexp.MustCompile(`([A-Za-z]+)\s+(\d{1,2}),?\s+(\d{4})`)
	numericRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
)

// feedLayouts covers the pubDate formats syndication feeds emit.
var feedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// ParseNamed extracts a "Feb 26, 2026" / "February 26 2026" style date from
// text. Returns false if no parseable named date is present.
func ParseNamed(text string) (time.Time, bool) {
	m := namedRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	month, ok := monthIndex[strings.ToLower(m[1])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	return date(year, month, day)
}

// ParseNumeric extracts a dd/mm/yyyy date from text.
func ParseNumeric(text string) (time.Time, bool) {
	m := numericRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	return date(year, time.Month(month), day)
}

// ParseFeedTime converts a feed-native pubDate string to a calendar date.
func ParseFeedTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range feedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(24 * time.Hour), true
		}
	}
	return time.Time{}, false
}

// NearestDate finds the first date in a text window, preferring the numeric
// dd/mm/yyyy form over named-month text. Best effort: when several dates
// interleave in the window the first match wins.
func NearestDate(text string) (time.Time, bool) {
	if d, ok := ParseNumeric(text); ok {
		return d, true
	}
	return ParseNamed(text)
}

// WithinWindow reports whether d falls inside the trailing window of the
// given number of days, permitting up to one day of forward clock skew for
// sources whose server clocks run ahead.
func WithinWindow(d, now time.Time, days int) bool {
	if d.IsZero() {
		return false
	}
	// Compare at day granularity so a candidate dated exactly N days ago is
	// accepted no matter the time of day the run starts.
	diff := now.UTC().Truncate(24 * time.Hour).Sub(d)
	return diff >= -24*time.Hour && diff <= time.Duration(days)*24*time.Hour
}

func date(year int, month time.Month, day int) (time.Time, bool) {
	if day < 1 || day > 31 || year < 1900 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// Reject rollovers like Feb 30.
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
