package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/sells-group/regwatch/internal/model"
	"github.com/sells-group/regwatch/internal/store"
	"github.com/sells-group/regwatch/pkg/jina"
)

// fakeJina serves canned rendered content per target URL.
type fakeJina struct {
	pages map[string]string
	errs  map[string]error
}

func (f *fakeJina) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	if err, ok := f.errs[targetURL]; ok {
		return nil, err
	}
	content, ok := f.pages[targetURL]
	if !ok {
		return nil, fmt.Errorf("no canned page for %s", targetURL)
	}
	return &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: content}}, nil
}

var _ jina.Client = (*fakeJina)(nil)

// mockStore records circulars keyed by URL with first-write-wins semantics,
// plus the scrape log. Only the methods the runner touches are implemented.
type mockStore struct {
	store.Store

	mu        sync.Mutex
	circulars map[string]*model.Circular
	logs      []model.ScrapeLogEntry
	upsertErr error
}

func newMockStore() *mockStore {
	return &mockStore{circulars: make(map[string]*model.Circular)}
}

func (m *mockStore) UpsertCircular(ctx context.Context, c *model.Circular) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return false, m.upsertErr
	}
	if _, exists := m.circulars[c.URL]; exists {
		return false, nil
	}
	m.circulars[c.URL] = c
	return true, nil
}

func (m *mockStore) InsertScrapeLog(ctx context.Context, entry *model.ScrapeLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *entry)
	return nil
}
