package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regwatch/internal/extractor"
	"github.com/sells-group/regwatch/internal/mapper"
	"github.com/sells-group/regwatch/internal/model"
	"github.com/sells-group/regwatch/internal/scraper"
	"github.com/sells-group/regwatch/internal/store"
	"github.com/sells-group/regwatch/pkg/anthropic"
)

type stubStrategy struct {
	source     model.Source
	candidates []scraper.Candidate
	err        error
}

func (s *stubStrategy) Source() model.Source { return s.source }

func (s *stubStrategy) Fetch(ctx context.Context) ([]scraper.Candidate, error) {
	return s.candidates, s.err
}

// fakeAI always answers with the same extraction payload.
type fakeAI struct {
	input map[string]any
	err   error
}

func (f *fakeAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, _ := json.Marshal(f.input)
	return &anthropic.MessageResponse{
		StopReason: "tool_use",
		Content: []anthropic.ContentBlock{
			{Type: "tool_use", Name: "extract_compliance_data", Input: raw},
		},
	}, nil
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedRoster(t *testing.T, st *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	_, err := st.DB().ExecContext(ctx,
		`INSERT INTO clients (id, firm_id, client_name, entity_type, industry_type)
		 VALUES ('cl-1', 'firm-1', 'Acme Finance', 'NBFC', 'Fintech'),
		        ('cl-2', 'firm-1', 'Beta Traders', 'LLP', 'Retail')`)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(ctx,
		`INSERT INTO profiles (id, firm_id) VALUES ('u-1', 'firm-1'), ('u-2', 'firm-1')`)
	require.NoError(t, err)
}

func TestOrchestratorEndToEnd(t *testing.T) {
	st := newTestStore(t)
	seedRoster(t, st)

	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	strategy := &stubStrategy{
		source: model.SourceRBI,
		candidates: []scraper.Candidate{
			{Title: "Master Direction on Digital Lending", URL: "https://rbi.example/a", Published: yesterday},
		},
	}

	ai := &fakeAI{input: map[string]any{
		"summary":               "Revised digital lending norms for NBFCs.",
		"entity_types_affected": []string{"NBFC"},
		"industries_affected":   []string{},
		"compliance_action":     "Halt non-compliant lending products",
		"risk_level":            "high",
		"immediate_action":      true,
		"compliance_required":   true,
	}}

	runner := scraper.NewRunner(st, 7, strategy)
	ext := extractor.New(st, ai, extractor.DefaultConfig("claude-test"))
	o := New(runner, ext, mapper.New(st))

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.Equal(t, 1, result.Scrape.Scraped)
	require.Len(t, result.Process.Results, 1)
	assert.Equal(t, model.CircularStatusProcessed, result.Process.Results[0].Status)

	require.Len(t, result.ImpactMapping, 1)
	assert.Equal(t, 1, result.ImpactMapping[0].TasksCreated, "only the matching NBFC client gets a task")

	ctx := context.Background()
	circularID := result.Process.Results[0].CircularID

	// Empty industries fan out to the wildcard row.
	impacts, err := st.ListImpactsByCircular(ctx, circularID)
	require.NoError(t, err)
	require.Len(t, impacts, 1)
	assert.Equal(t, "All", impacts[0].IndustryType)

	exists, err := st.TaskExists(ctx, "cl-1", circularID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = st.TaskExists(ctx, "cl-2", circularID)
	require.NoError(t, err)
	assert.False(t, exists)

	// High risk alerted both firm profiles.
	var n int
	require.NoError(t, st.DB().QueryRowContext(ctx,
		`SELECT COUNT(1) FROM notifications WHERE type = 'high_risk'`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestOrchestratorRerunIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	seedRoster(t, st)

	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	strategy := &stubStrategy{
		source: model.SourceRBI,
		candidates: []scraper.Candidate{
			{Title: "Master Direction on Digital Lending", URL: "https://rbi.example/a", Published: yesterday},
		},
	}
	ai := &fakeAI{input: map[string]any{
		"summary":               "Revised digital lending norms for NBFCs.",
		"entity_types_affected": []string{"NBFC"},
		"industries_affected":   []string{"Fintech"},
		"compliance_action":     "Update lending policies",
		"risk_level":            "low",
		"immediate_action":      false,
		"compliance_required":   true,
	}}

	runner := scraper.NewRunner(st, 7, strategy)
	ext := extractor.New(st, ai, extractor.DefaultConfig("claude-test"))
	o := New(runner, ext, mapper.New(st))

	first, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, first.ImpactMapping, 1)
	assert.Equal(t, 1, first.ImpactMapping[0].TasksCreated)

	second, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, second.Scrape.Scraped, "same URL is not re-inserted")
	assert.Empty(t, second.Process.Results, "nothing left in scraped status")
	assert.Empty(t, second.ImpactMapping)

	var tasks int
	require.NoError(t, st.DB().QueryRowContext(context.Background(),
		`SELECT COUNT(1) FROM compliance_tasks`).Scan(&tasks))
	assert.Equal(t, 1, tasks)
}

func TestOrchestratorSkipsMappingForFailedExtractions(t *testing.T) {
	st := newTestStore(t)
	seedRoster(t, st)

	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	strategy := &stubStrategy{
		source: model.SourceRBI,
		candidates: []scraper.Candidate{
			{Title: "Master Direction on Digital Lending", URL: "https://rbi.example/a", Published: yesterday},
		},
	}
	ai := &fakeAI{err: errors.New("overloaded")}

	runner := scraper.NewRunner(st, 7, strategy)
	ext := extractor.New(st, ai, extractor.DefaultConfig("claude-test"))
	o := New(runner, ext, mapper.New(st))

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Process.Results, 1)
	assert.Equal(t, model.CircularStatusFailed, result.Process.Results[0].Status)
	assert.Empty(t, result.ImpactMapping, "failed circulars are never mapped")
}
