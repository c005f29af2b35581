package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/regwatch/internal/dates"
	"github.com/sells-group/regwatch/internal/model"
	"github.com/sells-group/regwatch/internal/store"
)

const maxTitleLen = 500

// Runner dispatches every source strategy concurrently and settles all of
// them, capturing each source's outcome independently. One source failing
// never aborts its siblings or the run.
type Runner struct {
	store      store.Store
	strategies []Strategy
	windowDays int
	now        func() time.Time
}

// NewRunner creates a Runner over the given strategies. windowDays is the
// recency window candidates must fall within.
func NewRunner(st store.Store, windowDays int, strategies ...Strategy) *Runner {
	return &Runner{
		store:      st,
		strategies: strategies,
		windowDays: windowDays,
		now:        time.Now,
	}
}

// Run scrapes all sources and returns the aggregate result. The aggregate
// always succeeds; per-source failures are reported in the breakdown and
// the scrape log.
func (r *Runner) Run(ctx context.Context) (*model.ScrapeResult, error) {
	type sourceRun struct {
		source  model.Source
		outcome model.SourceOutcome
	}

	runs := make([]sourceRun, len(r.strategies))

	// Goroutines always return nil so the group never cancels siblings:
	// settle all, collect individually.
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range r.strategies {
		g.Go(func() error {
			count, err := r.runSource(gctx, s)
			run := sourceRun{source: s.Source()}
			if err != nil {
				run.outcome = model.SourceOutcome{Status: model.OutcomeFailed, Error: err.Error()}
				zap.L().Error("scrape: source failed",
					zap.String("source", string(s.Source())),
					zap.Error(err),
				)
			} else {
				run.outcome = model.SourceOutcome{Count: count, Status: model.OutcomeSuccess}
				zap.L().Info("scrape: source complete",
					zap.String("source", string(s.Source())),
					zap.Int("inserted", count),
				)
			}
			runs[i] = run
			return nil
		})
	}
	_ = g.Wait()

	result := &model.ScrapeResult{
		Success: true,
		Sources: make(map[string]model.SourceOutcome, len(runs)),
	}
	for _, run := range runs {
		result.Scraped += run.outcome.Count
		result.Sources[strings.ToLower(string(run.source))] = run.outcome

		message := fmt.Sprintf("Inserted %d items", run.outcome.Count)
		if run.outcome.Error != "" {
			message = run.outcome.Error
		}
		entry := &model.ScrapeLogEntry{
			Source:     run.source,
			Status:     run.outcome.Status,
			Message:    message,
			ItemsFound: run.outcome.Count,
		}
		if err := r.store.InsertScrapeLog(ctx, entry); err != nil {
			zap.L().Warn("scrape: log write failed",
				zap.String("source", string(run.source)),
				zap.Error(err),
			)
		}
	}

	return result, nil
}

func (r *Runner) runSource(ctx context.Context, s Strategy) (int, error) {
	candidates, err := s.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	now := r.now()
	count := 0
	for _, c := range candidates {
		if !r.accept(c, now) {
			continue
		}

		circular := &model.Circular{
			Source:        s.Source(),
			Title:         truncate(c.Title, maxTitleLen),
			URL:           c.URL,
			PublishedDate: ptrTime(c.Published),
			Status:        model.CircularStatusScraped,
		}
		inserted, err := r.store.UpsertCircular(ctx, circular)
		if err != nil {
			zap.L().Warn("scrape: upsert failed",
				zap.String("source", string(s.Source())),
				zap.String("url", c.URL),
				zap.Error(err),
			)
			continue
		}
		if inserted {
			count++
		}
	}
	return count, nil
}

// accept applies the shared candidate rule: a real title, a URL, and a
// parseable publish date inside the recency window (with one day of forward
// clock skew allowed).
func (r *Runner) accept(c Candidate, now time.Time) bool {
	if utf8.RuneCountInString(c.Title) < 10 || c.URL == "" {
		return false
	}
	if c.Published.IsZero() {
		return false
	}
	return dates.WithinWindow(c.Published, now, r.windowDays)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
