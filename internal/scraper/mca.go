package scraper

import (
	"context"
	"regexp"
	"strings"

	"github.com/sells-group/regwatch/internal/model"
	"github.com/sells-group/regwatch/pkg/jina"
)

const (
	defaultMCAPage = "https://www.mca.gov.in/content/mca/global/en/acts-rules/ebooks/circulars.html"
	mcaDomain      = "https://www.mca.gov.in"

	// Fallback date search window around a link, in bytes of rendered text.
	mcaProximityWindow = 300
)

// Absolute document-like links for the proximity fallback; short labels are
// navigation.
var mcaFallbackLinkRe = regexp.MustCompile(`\[([^\]]{15,})\]\((https?://[^)]+)\)`)

// MCA scrapes the corporate-affairs ministry's circulars page via Jina
// rendering. The page lays circulars out as a pipe table with an explicit
// date column; when the table yields nothing for a link, a proximity scan
// over document-like links picks up the rest.
type MCA struct {
	jina jina.Client
	page string
}

// NewMCA creates the MCA strategy over the default circulars page.
func NewMCA(client jina.Client) *MCA {
	return &MCA{jina: client, page: defaultMCAPage}
}

// NewMCAWithPage creates the strategy for an explicit page URL (tests).
func NewMCAWithPage(client jina.Client, page string) *MCA {
	return &MCA{jina: client, page: page}
}

func (m *MCA) Source() model.Source { return model.SourceMCA }

func (m *MCA) Fetch(ctx context.Context) ([]Candidate, error) {
	resp, err := m.jina.Read(ctx, m.page)
	if err != nil {
		return nil, err
	}
	text := resp.Data.Content

	var out []Candidate

	// Primary path: tabular rows with the explicit date column.
	for _, l := range ParsePipeTable(text) {
		url := l.URL
		if !strings.HasPrefix(url, "http") {
			if !strings.HasPrefix(url, "/") {
				url = "/" + url
			}
			url = mcaDomain + url
		}
		out = append(out, Candidate{Title: l.Title, URL: url, Published: l.Date})
	}

	// Fallback: document-like links dated by the nearest numeric date.
	// Duplicates of table rows resolve at upsert (same URL, first write wins).
	for _, l := range ProximityLinks(text, mcaFallbackLinkRe, mcaProximityWindow, false, keepMCALink) {
		out = append(out, Candidate{Title: l.Title, URL: l.URL, Published: l.Date})
	}

	return out, nil
}

func keepMCALink(title, url string) bool {
	return strings.Contains(strings.ToLower(title), "circular") || strings.Contains(url, ".pdf")
}
