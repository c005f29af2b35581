package scraper

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/regwatch/internal/model"
	"github.com/sells-group/regwatch/pkg/jina"
)

// Wider window than MCA: the council pages scatter dates further from
// their links.
const gstProximityWindow = 500

var defaultGSTPages = []string{
	"https://gstcouncil.gov.in/gst-circulars",
	"https://gstcouncil.gov.in/press-release",
}

var gstKeywords = []string{"circular", "notification", "press", "gst"}

// GST scrapes the tax council's circular and press release pages via Jina
// rendering. The pages have no tabular layout at all, so extraction is
// keyword-filtered links dated by proximity, numeric or named.
type GST struct {
	jina  jina.Client
	pages []string
}

// NewGST creates the GST strategy over the default council pages.
func NewGST(client jina.Client) *GST {
	return &GST{jina: client, pages: defaultGSTPages}
}

// NewGSTWithPages creates the strategy for explicit page URLs (tests).
func NewGSTWithPages(client jina.Client, pages []string) *GST {
	return &GST{jina: client, pages: pages}
}

func (g *GST) Source() model.Source { return model.SourceGST }

func (g *GST) Fetch(ctx context.Context) ([]Candidate, error) {
	var out []Candidate
	var lastErr error
	fetched := 0

	for _, page := range g.pages {
		resp, err := g.jina.Read(ctx, page)
		if err != nil {
			zap.L().Warn("gst: page fetch failed", zap.String("page", page), zap.Error(err))
			lastErr = err
			continue
		}
		fetched++

		for _, l := range ProximityLinks(resp.Data.Content, mcaFallbackLinkRe, gstProximityWindow, true, keepGSTLink) {
			out = append(out, Candidate{Title: l.Title, URL: l.URL, Published: l.Date})
		}
	}

	if fetched == 0 {
		return nil, lastErr
	}
	return out, nil
}

func keepGSTLink(title, url string) bool {
	lower := strings.ToLower(title)
	for _, kw := range gstKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return strings.Contains(url, ".pdf")
}
