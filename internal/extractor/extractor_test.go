package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regwatch/internal/model"
	"github.com/sells-group/regwatch/internal/store"
	"github.com/sells-group/regwatch/pkg/anthropic"
)

// fakeAI returns canned responses (or errors) in sequence and records every
// request it saw.
type fakeAI struct {
	responses []*anthropic.MessageResponse
	errs      []error
	requests  []anthropic.MessageRequest
}

func (f *fakeAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("fakeAI: no canned response")
}

func toolResponse(t *testing.T, input map[string]any) *anthropic.MessageResponse {
	t.Helper()
	raw, err := json.Marshal(input)
	require.NoError(t, err)
	return &anthropic.MessageResponse{
		StopReason: "tool_use",
		Content: []anthropic.ContentBlock{
			{Type: "tool_use", Name: "extract_compliance_data", Input: raw},
		},
	}
}

// mockStore tracks circular statuses and collected impacts.
type mockStore struct {
	store.Store

	circulars map[string]*model.Circular
	scraped   []model.Circular
	statuses  map[string][]model.CircularStatus
	impacts   []model.Impact
	completed map[string]bool
}

func newMockStore(circulars ...model.Circular) *mockStore {
	m := &mockStore{
		circulars: make(map[string]*model.Circular),
		statuses:  make(map[string][]model.CircularStatus),
		completed: make(map[string]bool),
		scraped:   circulars,
	}
	for i := range circulars {
		m.circulars[circulars[i].ID] = &circulars[i]
	}
	return m
}

func (m *mockStore) GetCircular(ctx context.Context, id string) (*model.Circular, error) {
	c, ok := m.circulars[id]
	if !ok {
		return nil, errors.New("circular not found")
	}
	return c, nil
}

func (m *mockStore) ListCircularsByStatus(ctx context.Context, status model.CircularStatus, limit int) ([]model.Circular, error) {
	if len(m.scraped) > limit {
		return m.scraped[:limit], nil
	}
	return m.scraped, nil
}

func (m *mockStore) UpdateCircularStatus(ctx context.Context, id string, status model.CircularStatus) error {
	m.statuses[id] = append(m.statuses[id], status)
	return nil
}

func (m *mockStore) CompleteCircularExtraction(ctx context.Context, id, summary string, effectiveDate *time.Time, complianceRequired bool) error {
	m.completed[id] = true
	return nil
}

func (m *mockStore) InsertImpact(ctx context.Context, imp *model.Impact) error {
	m.impacts = append(m.impacts, *imp)
	return nil
}

func scrapedCircular(id string) model.Circular {
	return model.Circular{
		ID:      id,
		Source:  model.SourceRBI,
		Title:   "Master Direction on Digital Lending",
		URL:     "https://rbi.example/" + id,
		RawText: "Banks and NBFCs shall comply with the revised digital lending norms.",
		Status:  model.CircularStatusScraped,
	}
}

func baseInput() map[string]any {
	return map[string]any{
		"summary":               "Revised digital lending norms for regulated entities.",
		"entity_types_affected": []string{"NBFC"},
		"industries_affected":   []string{"Fintech"},
		"compliance_action":     "Update lending policies",
		"risk_level":            "medium",
		"immediate_action":      false,
		"compliance_required":   true,
	}
}

func TestExtractorSuccess(t *testing.T) {
	st := newMockStore(scrapedCircular("c1"))
	ai := &fakeAI{responses: []*anthropic.MessageResponse{toolResponse(t, baseInput())}}

	e := New(st, ai, DefaultConfig("claude-test"))
	result, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.Equal(t, model.CircularStatusProcessed, result.Results[0].Status)
	assert.Empty(t, result.Results[0].Error)

	assert.Equal(t, []model.CircularStatus{model.CircularStatusProcessing}, st.statuses["c1"])
	assert.True(t, st.completed["c1"])

	require.Len(t, st.impacts, 1)
	assert.Equal(t, "NBFC", st.impacts[0].EntityType)
	assert.Equal(t, "Fintech", st.impacts[0].IndustryType)
	assert.Equal(t, model.RiskMedium, st.impacts[0].RiskLevel)

	// The request carried the forced tool and the cached system prompt.
	require.Len(t, ai.requests, 1)
	req := ai.requests[0]
	assert.Equal(t, "extract_compliance_data", req.ForceTool)
	require.Len(t, req.System, 1)
	assert.Contains(t, req.System[0].Text, "Indian regulatory compliance expert")
	require.NotNil(t, req.System[0].CacheControl)
}

func TestExtractorFanOut(t *testing.T) {
	tests := []struct {
		name       string
		entities   []string
		industries []string
		want       [][2]string
	}{
		{
			name:     "empty industries become the wildcard",
			entities: []string{"NBFC", "Listed"},
			want:     [][2]string{{"NBFC", "All"}, {"Listed", "All"}},
		},
		{
			name:       "cross product",
			entities:   []string{"NBFC"},
			industries: []string{"Fintech", "Banking"},
			want:       [][2]string{{"NBFC", "Fintech"}, {"NBFC", "Banking"}},
		},
		{
			name: "no entities yields no impacts",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := baseInput()
			input["entity_types_affected"] = tt.entities
			input["industries_affected"] = tt.industries

			st := newMockStore(scrapedCircular("c1"))
			ai := &fakeAI{responses: []*anthropic.MessageResponse{toolResponse(t, input)}}

			e := New(st, ai, DefaultConfig("claude-test"))
			_, err := e.Run(context.Background(), "")
			require.NoError(t, err)

			var got [][2]string
			for _, imp := range st.impacts {
				got = append(got, [2]string{imp.EntityType, imp.IndustryType})
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractorRetriesOnceThenFails(t *testing.T) {
	st := newMockStore(scrapedCircular("c1"))
	ai := &fakeAI{errs: []error{errors.New("rate limited"), errors.New("overloaded")}}

	e := New(st, ai, DefaultConfig("claude-test"))
	result, err := e.Run(context.Background(), "")
	require.NoError(t, err, "one circular failing never fails the batch")

	assert.Len(t, ai.requests, 2, "exactly two attempts")

	require.Len(t, result.Results, 1)
	assert.Equal(t, model.CircularStatusFailed, result.Results[0].Status)
	assert.Contains(t, result.Results[0].Error, "overloaded", "the last attempt's error is reported")

	assert.Equal(t,
		[]model.CircularStatus{model.CircularStatusProcessing, model.CircularStatusFailed},
		st.statuses["c1"])
	assert.False(t, st.completed["c1"])
	assert.Empty(t, st.impacts)
}

func TestExtractorRecoversOnSecondAttempt(t *testing.T) {
	st := newMockStore(scrapedCircular("c1"))
	ai := &fakeAI{
		errs:      []error{errors.New("rate limited"), nil},
		responses: []*anthropic.MessageResponse{nil, toolResponse(t, baseInput())},
	}

	e := New(st, ai, DefaultConfig("claude-test"))
	result, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Len(t, ai.requests, 2)
	assert.Equal(t, model.CircularStatusProcessed, result.Results[0].Status)
	assert.True(t, st.completed["c1"])
}

func TestExtractorMissingToolCallIsRetryable(t *testing.T) {
	st := newMockStore(scrapedCircular("c1"))
	prose := &anthropic.MessageResponse{
		StopReason: "end_turn",
		Content:    []anthropic.ContentBlock{{Type: "text", Text: "I cannot comply."}},
	}
	ai := &fakeAI{responses: []*anthropic.MessageResponse{prose, toolResponse(t, baseInput())}}

	e := New(st, ai, DefaultConfig("claude-test"))
	result, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Len(t, ai.requests, 2)
	assert.Equal(t, model.CircularStatusProcessed, result.Results[0].Status)
}

func TestExtractorTruncatesLongText(t *testing.T) {
	c := scrapedCircular("c1")
	c.RawText = strings.Repeat("regulatory text ", 1000) // 16000 chars

	st := newMockStore(c)
	ai := &fakeAI{responses: []*anthropic.MessageResponse{toolResponse(t, baseInput())}}

	e := New(st, ai, DefaultConfig("claude-test"))
	_, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, ai.requests, 1)
	prompt := ai.requests[0].Messages[0].Content
	assert.Less(t, len(prompt), 8200, "submitted content is capped")
}

func TestExtractorBatchRespectsLimitAndIsolation(t *testing.T) {
	circulars := make([]model.Circular, 12)
	for i := range circulars {
		circulars[i] = scrapedCircular("c" + string(rune('a'+i)))
	}
	st := newMockStore(circulars...)

	// First circular fails both attempts, the rest succeed.
	ai := &fakeAI{errs: []error{errors.New("boom"), errors.New("boom")}}
	for i := 0; i < 9; i++ {
		ai.responses = append(ai.responses, toolResponse(t, baseInput()))
	}
	ai.errs = append(ai.errs, make([]error, 9)...)
	ai.responses = append([]*anthropic.MessageResponse{nil, nil}, ai.responses...)

	e := New(st, ai, DefaultConfig("claude-test"))
	result, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Len(t, result.Results, 10, "batch capped at the configured limit")
	assert.Equal(t, model.CircularStatusFailed, result.Results[0].Status)
	for _, r := range result.Results[1:] {
		assert.Equal(t, model.CircularStatusProcessed, r.Status)
	}
}

func TestExtractorExplicitCircular(t *testing.T) {
	c := scrapedCircular("target")
	st := newMockStore(c)
	ai := &fakeAI{responses: []*anthropic.MessageResponse{toolResponse(t, baseInput())}}

	e := New(st, ai, DefaultConfig("claude-test"))
	result, err := e.Run(context.Background(), "target")
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.Equal(t, "target", result.Results[0].CircularID)

	_, err = e.Run(context.Background(), "missing")
	assert.Error(t, err, "an explicit unknown ID is a request error")
}

func TestParseISODate(t *testing.T) {
	got := parseISODate("2026-03-15")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), *got)

	got = parseISODate("March 15, 2026")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), *got)

	assert.Nil(t, parseISODate(""))
	assert.Nil(t, parseISODate("null"))
	assert.Nil(t, parseISODate("soon"))
}
