package scraper

import (
	"context"
	"strings"

	"github.com/sells-group/regwatch/internal/dates"
	"github.com/sells-group/regwatch/internal/feed"
	"github.com/sells-group/regwatch/internal/model"
)

const (
	defaultSEBIFeedURL = "https://www.sebi.gov.in/sebirss.xml"
	sebiDomain         = "https://www.sebi.gov.in"
)

// SEBI scrapes the securities regulator's official RSS feed, the one source
// that serves a machine-readable listing directly.
type SEBI struct {
	fetcher *Fetcher
	feedURL string
}

// NewSEBI creates the SEBI strategy over the default feed.
func NewSEBI(fetcher *Fetcher) *SEBI {
	return &SEBI{fetcher: fetcher, feedURL: defaultSEBIFeedURL}
}

// NewSEBIWithFeed creates the strategy for an explicit feed URL (tests).
func NewSEBIWithFeed(fetcher *Fetcher, feedURL string) *SEBI {
	return &SEBI{fetcher: fetcher, feedURL: feedURL}
}

func (s *SEBI) Source() model.Source { return model.SourceSEBI }

func (s *SEBI) Fetch(ctx context.Context) ([]Candidate, error) {
	body, err := s.fetcher.FetchText(ctx, s.feedURL)
	if err != nil {
		return nil, err
	}

	items, err := feed.ParseRSS(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(items))
	for _, item := range items {
		link := item.Link
		if link != "" && !strings.HasPrefix(link, "http") {
			if !strings.HasPrefix(link, "/") {
				link = "/" + link
			}
			link = sebiDomain + link
		}

		// A missing publish timestamp leaves a zero date; the runner's
		// acceptance filter drops it.
		published, _ := dates.ParseFeedTime(item.PubDate)
		out = append(out, Candidate{Title: item.Title, URL: link, Published: published})
	}
	return out, nil
}
