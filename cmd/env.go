package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regwatch/internal/extractor"
	"github.com/sells-group/regwatch/internal/mapper"
	"github.com/sells-group/regwatch/internal/pipeline"
	"github.com/sells-group/regwatch/internal/scraper"
	"github.com/sells-group/regwatch/internal/store"
	anthropicpkg "github.com/sells-group/regwatch/pkg/anthropic"
	"github.com/sells-group/regwatch/pkg/jina"
)

// pipelineEnv holds the initialized store, clients, and stages needed by
// the scrape/extract/map/pipeline/serve commands.
type pipelineEnv struct {
	Store        store.Store
	Runner       *scraper.Runner
	Extractor    *extractor.Extractor
	Mapper       *mapper.Mapper
	Orchestrator *pipeline.Orchestrator
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "regwatch.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store, API clients, and all three pipeline stages.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	jinaClient := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	fetcher := scraper.NewFetcher(
		time.Duration(cfg.Scrape.FetchTimeoutSecs)*time.Second,
		cfg.Scrape.RatePerSec,
		cfg.Scrape.UserAgent,
	)

	runner := scraper.NewRunner(st, cfg.Scrape.WindowDays,
		scraper.NewRBI(jinaClient),
		scraper.NewSEBI(fetcher),
		scraper.NewMCA(jinaClient),
		scraper.NewGST(jinaClient),
	)

	extractCfg := extractor.DefaultConfig(cfg.Anthropic.Model)
	extractCfg.BatchLimit = cfg.Extract.BatchLimit
	extractCfg.Attempts = cfg.Extract.Attempts
	extractCfg.MaxChars = cfg.Extract.MaxChars
	ext := extractor.New(st, anthropicClient, extractCfg)

	mp := mapper.New(st)

	return &pipelineEnv{
		Store:        st,
		Runner:       runner,
		Extractor:    ext,
		Mapper:       mp,
		Orchestrator: pipeline.New(runner, ext, mp),
	}, nil
}
