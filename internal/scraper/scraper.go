// Package scraper fetches regulatory listing pages and feeds, one strategy
// per source, and persists accepted candidates as circulars.
package scraper

import (
	"context"
	"time"

	"github.com/sells-group/regwatch/internal/model"
)

// Candidate is one document record extracted from a source listing before
// acceptance filtering.
type Candidate struct {
	Title     string
	URL       string
	Published time.Time
}

// Strategy produces candidate documents for a single source. Fetch errors
// are source-local; the runner isolates them from sibling sources.
type Strategy interface {
	Source() model.Source
	Fetch(ctx context.Context) ([]Candidate, error)
}
