// Package pipeline orchestrates the full scrape, extract, map sequence as
// one run.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regwatch/internal/extractor"
	"github.com/sells-group/regwatch/internal/mapper"
	"github.com/sells-group/regwatch/internal/model"
	"github.com/sells-group/regwatch/internal/scraper"
)

// Orchestrator chains the three pipeline stages. Stages run sequentially:
// extraction always follows the scrape (earlier runs may have left scraped
// circulars behind even when this scrape found nothing), and mapping runs
// once per circular the extraction stage processed.
type Orchestrator struct {
	runner    *scraper.Runner
	extractor *extractor.Extractor
	mapper    *mapper.Mapper
}

// New creates an Orchestrator.
func New(r *scraper.Runner, e *extractor.Extractor, m *mapper.Mapper) *Orchestrator {
	return &Orchestrator{runner: r, extractor: e, mapper: m}
}

// Run executes one full pipeline run. Per-item failures stay inside their
// stage results; only an unexpected stage-level error fails the run.
func (o *Orchestrator) Run(ctx context.Context) (*model.PipelineResult, error) {
	log := zap.L()

	log.Info("pipeline: scrape stage")
	scrape, err := o.runner.Run(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: scrape stage")
	}

	log.Info("pipeline: extract stage", zap.Int("scraped", scrape.Scraped))
	process, err := o.extractor.Run(ctx, "")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: extract stage")
	}

	result := &model.PipelineResult{
		Success:       true,
		Scrape:        scrape,
		Process:       process,
		ImpactMapping: []model.MapResult{},
	}

	for _, outcome := range process.Results {
		if outcome.Status != model.CircularStatusProcessed {
			continue
		}
		mapped, err := o.mapper.Map(ctx, outcome.CircularID)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: map stage for circular %s", outcome.CircularID)
		}
		result.ImpactMapping = append(result.ImpactMapping, *mapped)
	}

	log.Info("pipeline: run complete",
		zap.Int("scraped", scrape.Scraped),
		zap.Int("processed", len(process.Results)),
		zap.Int("mapped", len(result.ImpactMapping)),
	)
	return result, nil
}
