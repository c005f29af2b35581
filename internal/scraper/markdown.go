package scraper

import (
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/regwatch/internal/dates"
)

// DatedLink is a document link paired with the date attributed to it by one
// of the extraction heuristics.
type DatedLink struct {
	Title string
	URL   string
	Date  time.Time
}

var (
	// Date headings in Jina-rendered listings: "**Feb 26, 2026**" or "## Feb 26, 2026".
	boldDateRe    = regexp.MustCompile(`\*\*([A-Za-z]+\s+\d{1,2},?\s+\d{4})\*\*`)
	headingDateRe = regexp.MustCompile(`^##\s+([A-Za-z]+\s+\d{1,2},?\s+\d{4})`)

	// Table rows: | [Title](url) | <category> | dd/mm/yyyy |
	pipeRowRe = regexp.MustCompile(`\|\s*\[([^\]]+)\]\(([^)]+)\)[^|]*\|[^|]*\|\s*(\d{1,2}/\d{1,2}/\d{4})\s*\|`)
)

// ScanDatedLinks scans rendered text line by line, carrying the most recent
// date heading forward until the next heading. Every line matching linkRe
// while a current date is set yields a dated link. Listings group many
// documents under one date heading, so losing the carried date would
// misdate every link until the next heading.
//
// skip, if non-nil, drops navigation and non-document links.
func ScanDatedLinks(text string, linkRe *regexp.Regexp, skip func(title, url string) bool) []DatedLink {
	var out []DatedLink
	var current time.Time

	for _, line := range strings.Split(text, "\n") {
		if m := boldDateRe.FindStringSubmatch(line); m != nil {
			current, _ = dates.ParseNamed(m[1])
			continue
		}
		if m := headingDateRe.FindStringSubmatch(line); m != nil {
			current, _ = dates.ParseNamed(m[1])
			continue
		}

		if current.IsZero() {
			continue
		}

		m := linkRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[1])
		url := m[2]
		if skip != nil && skip(title, url) {
			continue
		}
		out = append(out, DatedLink{Title: title, URL: url, Date: current})
	}
	return out
}

// ParsePipeTable extracts links from a pipe-delimited tabular layout whose
// last cell carries an explicit dd/mm/yyyy date column.
func ParsePipeTable(text string) []DatedLink {
	var out []DatedLink
	for _, m := range pipeRowRe.FindAllStringSubmatch(text, -1) {
		d, ok := dates.ParseNumeric(m[3])
		if !ok {
			continue
		}
		out = append(out, DatedLink{
			Title: strings.TrimSpace(m[1]),
			URL:   m[2],
			Date:  d,
		})
	}
	return out
}

// ProximityLinks scans for links matching linkRe and dates each one by the
// nearest date found within window bytes on either side of the link in the
// raw text. Numeric dd/mm/yyyy dates are tried first; named-month dates are
// a fallback when allowNamed is set. Links with no nearby date, and links
// rejected by keep, are dropped.
//
// Best effort: when several documents and dates interleave inside the
// window the attribution can be wrong. Known limitation, kept as-is.
func ProximityLinks(text string, linkRe *regexp.Regexp, window int, allowNamed bool, keep func(title, url string) bool) []DatedLink {
	var out []DatedLink
	for _, idx := range linkRe.FindAllStringSubmatchIndex(text, -1) {
		title := strings.TrimSpace(text[idx[2]:idx[3]])
		url := text[idx[4]:idx[5]]
		if keep != nil && !keep(title, url) {
			continue
		}

		lo := idx[0] - window
		if lo < 0 {
			lo = 0
		}
		hi := idx[0] + window
		if hi > len(text) {
			hi = len(text)
		}
		nearby := text[lo:hi]

		d, ok := dates.ParseNumeric(nearby)
		if !ok && allowNamed {
			d, ok = dates.ParseNamed(nearby)
		}
		if !ok {
			continue
		}
		out = append(out, DatedLink{Title: title, URL: url, Date: d})
	}
	return out
}
