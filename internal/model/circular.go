package model

import "time"

// Source identifies a regulatory publisher we scrape.
type Source string

const (
	SourceRBI  Source = "RBI"
	SourceSEBI Source = "SEBI"
	SourceMCA  Source = "MCA"
	SourceGST  Source = "GST"
)

// AllSources lists every source the scraper knows about.
var AllSources = []Source{SourceRBI, SourceSEBI, SourceMCA, SourceGST}

// CircularStatus tracks a circular through the pipeline.
type CircularStatus string

const (
	CircularStatusScraped    CircularStatus = "scraped"
	CircularStatusProcessing CircularStatus = "processing"
	CircularStatusProcessed  CircularStatus = "processed"
	CircularStatusFailed     CircularStatus = "failed"
)

// RiskLevel grades the compliance risk of an impact or task.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// EntityTypes is the fixed enumeration the extraction schema allows,
// including the "All" wildcard.
var EntityTypes = []string{"Pvt Ltd", "LLP", "NBFC", "Listed", "Startup", "All"}

// Circular is one scraped regulatory publication. URL is globally unique;
// a second candidate with the same URL is ignored, never overwritten.
type Circular struct {
	ID                 string         `json:"id"`
	Source             Source         `json:"source"`
	Title              string         `json:"title"`
	URL                string         `json:"url"`
	RawText            string         `json:"raw_text,omitempty"`
	PublishedDate      *time.Time     `json:"published_date,omitempty"`
	EffectiveDate      *time.Time     `json:"effective_date,omitempty"`
	Status             CircularStatus `json:"status"`
	Summary            string         `json:"summary,omitempty"`
	ComplianceRequired *bool          `json:"compliance_required,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Impact is one (entity type x industry type) slice of a circular's
// extracted compliance impact. Never mutated after creation.
type Impact struct {
	ID               string     `json:"id"`
	CircularID       string     `json:"circular_id"`
	EntityType       string     `json:"entity_type"`
	IndustryType     string     `json:"industry_type"`
	ImpactSummary    string     `json:"impact_summary"`
	ComplianceAction string     `json:"compliance_action"`
	RiskLevel        RiskLevel  `json:"risk_level"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	ImmediateAction  bool       `json:"immediate_action"`
}

// ScrapeLogEntry is one append-only audit row per source per scrape run.
type ScrapeLogEntry struct {
	ID         string    `json:"id"`
	Source     Source    `json:"source"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	ItemsFound int       `json:"items_found"`
	CreatedAt  time.Time `json:"created_at"`
}
