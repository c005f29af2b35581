package model

// SourceOutcome is one source's result within a scrape run, captured
// independently of sibling sources.
type SourceOutcome struct {
	Count  int    `json:"count"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// ScrapeResult aggregates a scrape run. It never fails as a whole because
// one source failed.
type ScrapeResult struct {
	Success bool                     `json:"success"`
	Scraped int                      `json:"scraped"`
	Sources map[string]SourceOutcome `json:"sources"`
}

// ExtractOutcome records one circular's extraction result.
type ExtractOutcome struct {
	CircularID string         `json:"circular_id"`
	Status     CircularStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
}

// ExtractResult aggregates an extraction batch.
type ExtractResult struct {
	Success bool             `json:"success"`
	Results []ExtractOutcome `json:"results"`
}

// MapResult reports tasks created by one mapping invocation.
type MapResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	TasksCreated int    `json:"tasks_created"`
}

// PipelineResult aggregates the three stages of one orchestrated run.
type PipelineResult struct {
	Success       bool           `json:"success"`
	Scrape        *ScrapeResult  `json:"scrape"`
	Process       *ExtractResult `json:"process"`
	ImpactMapping []MapResult    `json:"impact_mapping"`
}
