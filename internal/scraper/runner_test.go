package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regwatch/internal/model"
)

// stubStrategy returns fixed candidates or a fixed error.
type stubStrategy struct {
	source     model.Source
	candidates []Candidate
	err        error
}

func (s *stubStrategy) Source() model.Source { return s.source }

func (s *stubStrategy) Fetch(ctx context.Context) ([]Candidate, error) {
	return s.candidates, s.err
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 5, 11, 0, 0, 0, time.UTC)
}

func TestRunnerIsolatesSourceFailures(t *testing.T) {
	st := newMockStore()

	good := &stubStrategy{
		source: model.SourceRBI,
		candidates: []Candidate{
			{Title: "Master Direction on Digital Lending", URL: "https://rbi.example/a", Published: utcDay(2026, time.March, 4)},
		},
	}
	bad := &stubStrategy{source: model.SourceSEBI, err: errors.New("feed unreachable")}

	r := NewRunner(st, 7, good, bad)
	r.now = fixedNow

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success, "one source failing never fails the run")
	assert.Equal(t, 1, result.Scraped)

	require.Contains(t, result.Sources, "rbi")
	assert.Equal(t, model.OutcomeSuccess, result.Sources["rbi"].Status)
	assert.Equal(t, 1, result.Sources["rbi"].Count)

	require.Contains(t, result.Sources, "sebi")
	assert.Equal(t, model.OutcomeFailed, result.Sources["sebi"].Status)
	assert.Contains(t, result.Sources["sebi"].Error, "feed unreachable")
}

func TestRunnerAcceptanceFiltering(t *testing.T) {
	st := newMockStore()

	s := &stubStrategy{
		source: model.SourceRBI,
		candidates: []Candidate{
			{Title: "Review of Priority Sector Lending norms", URL: "https://rbi.example/keep", Published: utcDay(2026, time.March, 1)},
			{Title: "Home", URL: "https://rbi.example/short-title", Published: utcDay(2026, time.March, 1)},
			{Title: "Circular with an empty link target here", URL: "", Published: utcDay(2026, time.March, 1)},
			{Title: "Circular with no publish date attached", URL: "https://rbi.example/undated"},
			{Title: "Circular from well outside the window", URL: "https://rbi.example/stale", Published: utcDay(2026, time.January, 10)},
		},
	}

	r := NewRunner(st, 7, s)
	r.now = fixedNow

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scraped)

	require.Len(t, st.circulars, 1)
	kept := st.circulars["https://rbi.example/keep"]
	require.NotNil(t, kept)
	assert.Equal(t, model.CircularStatusScraped, kept.Status)
	assert.Equal(t, model.SourceRBI, kept.Source)
}

func TestRunnerCountsOnlyNewInserts(t *testing.T) {
	st := newMockStore()

	a := &stubStrategy{
		source: model.SourceMCA,
		candidates: []Candidate{
			{Title: "General Circular 01/2026 on MGT-7 filing", URL: "https://mca.example/c1", Published: utcDay(2026, time.March, 3)},
			{Title: "General Circular 01/2026 on MGT-7 filing", URL: "https://mca.example/c1", Published: utcDay(2026, time.March, 3)},
		},
	}

	r := NewRunner(st, 7, a)
	r.now = fixedNow

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Scraped, "a duplicate URL is not a new item")
	assert.Len(t, st.circulars, 1)
}

func TestRunnerWritesScrapeLog(t *testing.T) {
	st := newMockStore()

	good := &stubStrategy{
		source: model.SourceGST,
		candidates: []Candidate{
			{Title: "Circular on GST rate rationalisation", URL: "https://gst.example/a", Published: utcDay(2026, time.March, 4)},
		},
	}
	bad := &stubStrategy{source: model.SourceRBI, err: errors.New("blocked upstream")}

	r := NewRunner(st, 7, good, bad)
	r.now = fixedNow

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, st.logs, 2)
	bySource := map[model.Source]model.ScrapeLogEntry{}
	for _, e := range st.logs {
		bySource[e.Source] = e
	}

	assert.Equal(t, model.OutcomeSuccess, bySource[model.SourceGST].Status)
	assert.Equal(t, "Inserted 1 items", bySource[model.SourceGST].Message)
	assert.Equal(t, 1, bySource[model.SourceGST].ItemsFound)

	assert.Equal(t, model.OutcomeFailed, bySource[model.SourceRBI].Status)
	assert.Contains(t, bySource[model.SourceRBI].Message, "blocked upstream")
}

func TestRunnerTruncatesLongTitles(t *testing.T) {
	st := newMockStore()

	long := strings.Repeat("Consolidated guidelines volume ", 30) // > 500 bytes
	s := &stubStrategy{
		source: model.SourceSEBI,
		candidates: []Candidate{
			{Title: long, URL: "https://sebi.example/long", Published: utcDay(2026, time.March, 4)},
		},
	}

	r := NewRunner(st, 7, s)
	r.now = fixedNow

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	kept := st.circulars["https://sebi.example/long"]
	require.NotNil(t, kept)
	assert.Len(t, kept.Title, maxTitleLen)
}
