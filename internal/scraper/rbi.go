package scraper

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/regwatch/internal/model"
	"github.com/sells-group/regwatch/pkg/jina"
)

// RBI scrapes the central bank's notification and press release listings.
// Both pages are WAF-protected, so they are fetched as Jina-rendered
// markdown and parsed with the carry-forward date scan.
type RBI struct {
	jina  jina.Client
	pages []string
}

var defaultRBIPages = []string{
	"https://www.rbi.org.in/Scripts/NotificationUser.aspx",
	"https://www.rbi.org.in/Scripts/BS_PressReleaseDisplay.aspx",
}

// Document links live under the Scripts path; shorter labels are menu items.
var rbiLinkRe = regexp.MustCompile(`\[([^\]]{10,})\]\((https://www\.rbi\.org\.in/Scripts/[^)]+)\)`)

// NewRBI creates the RBI strategy over the default listing pages.
func NewRBI(client jina.Client) *RBI {
	return &RBI{jina: client, pages: defaultRBIPages}
}

// NewRBIWithPages creates the strategy for explicit page URLs (tests).
func NewRBIWithPages(client jina.Client, pages []string) *RBI {
	return &RBI{jina: client, pages: pages}
}

func (r *RBI) Source() model.Source { return model.SourceRBI }

func (r *RBI) Fetch(ctx context.Context) ([]Candidate, error) {
	// The carried date persists across pages: the second page may open with
	// links before its first date heading.
	var texts []string
	var lastErr error
	for _, page := range r.pages {
		resp, err := r.jina.Read(ctx, page)
		if err != nil {
			zap.L().Warn("rbi: page fetch failed", zap.String("page", page), zap.Error(err))
			lastErr = err
			continue
		}
		texts = append(texts, resp.Data.Content)
	}
	if len(texts) == 0 {
		return nil, lastErr
	}

	links := ScanDatedLinks(strings.Join(texts, "\n"), rbiLinkRe, skipRBILink)

	out := make([]Candidate, 0, len(links))
	for _, l := range links {
		out = append(out, Candidate{Title: l.Title, URL: l.URL, Published: l.Date})
	}
	return out, nil
}

func skipRBILink(title, url string) bool {
	if strings.Contains(url, "NotificationUser.aspx#") ||
		strings.Contains(url, "BS_PressReleaseDisplay.aspx#") {
		return true
	}
	return strings.HasPrefix(title, "PDF -") || strings.HasPrefix(title, "Image")
}
