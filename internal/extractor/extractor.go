// Package extractor turns a circular's raw text into structured impact
// records via a schema-constrained extraction call with bounded retry.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regwatch/internal/dates"
	"github.com/sells-group/regwatch/internal/model"
	"github.com/sells-group/regwatch/internal/resilience"
	"github.com/sells-group/regwatch/internal/store"
	"github.com/sells-group/regwatch/pkg/anthropic"
)

const (
	// extractTool is the forced tool; a response without its payload is an
	// extraction failure.
	extractTool = "extract_compliance_data"

	systemPrompt = "You are an Indian regulatory compliance expert. Analyze the given regulatory circular and extract structured compliance information. You MUST respond using the extract_compliance_data function."
)

// Config bounds the extraction batch and its external-call budget.
type Config struct {
	Model      string
	BatchLimit int // circulars per invocation when no explicit target
	Attempts   int // total attempts per circular
	MaxChars   int // text submitted per circular
	MaxTokens  int64
}

// DefaultConfig returns the production extraction bounds.
func DefaultConfig(model string) Config {
	return Config{
		Model:      model,
		BatchLimit: 10,
		Attempts:   2,
		MaxChars:   8000,
		MaxTokens:  2048,
	}
}

// Extractor processes scraped circulars one at a time, deliberately
// throttling external-call concurrency and cost.
type Extractor struct {
	store store.Store
	ai    anthropic.Client
	cfg   Config
}

// New creates an Extractor.
func New(st store.Store, ai anthropic.Client, cfg Config) *Extractor {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 10
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 2
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 8000
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	return &Extractor{store: st, ai: ai, cfg: cfg}
}

// extraction is the payload shape the tool schema enforces.
type extraction struct {
	Summary             string   `json:"summary"`
	EffectiveDate       string   `json:"effective_date,omitempty"`
	EntityTypesAffected []string `json:"entity_types_affected"`
	IndustriesAffected  []string `json:"industries_affected"`
	ComplianceAction    string   `json:"compliance_action"`
	DueDate             string   `json:"due_date,omitempty"`
	RiskLevel           string   `json:"risk_level"`
	ImmediateAction     bool     `json:"immediate_action"`
	ComplianceRequired  bool     `json:"compliance_required"`
}

// Run extracts impact data for one explicitly named circular, or, when
// circularID is empty, for a bounded batch of circulars in scraped status.
// One circular's failure never aborts the batch.
func (e *Extractor) Run(ctx context.Context, circularID string) (*model.ExtractResult, error) {
	var circulars []model.Circular
	if circularID != "" {
		c, err := e.store.GetCircular(ctx, circularID)
		if err != nil {
			return nil, eris.Wrap(err, "extractor: load circular")
		}
		circulars = []model.Circular{*c}
	} else {
		var err error
		circulars, err = e.store.ListCircularsByStatus(ctx, model.CircularStatusScraped, e.cfg.BatchLimit)
		if err != nil {
			return nil, eris.Wrap(err, "extractor: list scraped circulars")
		}
	}

	result := &model.ExtractResult{Success: true, Results: []model.ExtractOutcome{}}

	for i := range circulars {
		circular := &circulars[i]
		result.Results = append(result.Results, e.processOne(ctx, circular))
	}

	return result, nil
}

// processOne resolves a single circular fully, success or exhaustion,
// before the caller moves to the next one.
func (e *Extractor) processOne(ctx context.Context, circular *model.Circular) model.ExtractOutcome {
	log := zap.L().With(
		zap.String("circular_id", circular.ID),
		zap.String("source", string(circular.Source)),
	)

	if err := e.store.UpdateCircularStatus(ctx, circular.ID, model.CircularStatusProcessing); err != nil {
		log.Warn("extractor: mark processing failed", zap.Error(err))
		return model.ExtractOutcome{
			CircularID: circular.ID,
			Status:     model.CircularStatusFailed,
			Error:      err.Error(),
		}
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    e.cfg.Attempts,
		InitialBackoff: time.Second,
		// Rate limiting, quota exhaustion and malformed payloads all retry
		// identically against the attempt budget.
		ShouldRetry: func(error) bool { return true },
		OnRetry:     resilience.RetryLogger("anthropic", "extract_compliance_data"),
	}

	extracted, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*extraction, error) {
		return e.extract(ctx, circular)
	})
	if err != nil {
		log.Error("extractor: attempts exhausted", zap.Error(err))
		if statusErr := e.store.UpdateCircularStatus(ctx, circular.ID, model.CircularStatusFailed); statusErr != nil {
			log.Warn("extractor: mark failed failed", zap.Error(statusErr))
		}
		return model.ExtractOutcome{
			CircularID: circular.ID,
			Status:     model.CircularStatusFailed,
			Error:      err.Error(),
		}
	}

	effective := parseISODate(extracted.EffectiveDate)
	if err := e.store.CompleteCircularExtraction(ctx, circular.ID, extracted.Summary, effective, extracted.ComplianceRequired); err != nil {
		// Without the status update the circular is not processed; writing
		// impact rows for it would orphan them.
		log.Error("extractor: complete extraction failed", zap.Error(err))
		return model.ExtractOutcome{
			CircularID: circular.ID,
			Status:     model.CircularStatusFailed,
			Error:      err.Error(),
		}
	}

	for _, imp := range fanOut(circular.ID, extracted) {
		if err := e.store.InsertImpact(ctx, &imp); err != nil {
			log.Warn("extractor: insert impact failed",
				zap.String("entity_type", imp.EntityType),
				zap.String("industry_type", imp.IndustryType),
				zap.Error(err),
			)
		}
	}

	log.Info("extractor: circular processed",
		zap.Int("entity_types", len(extracted.EntityTypesAffected)),
		zap.Int("industries", len(extracted.IndustriesAffected)),
		zap.String("risk_level", extracted.RiskLevel),
	)

	return model.ExtractOutcome{CircularID: circular.ID, Status: model.CircularStatusProcessed}
}

// extract performs one extraction call and validates the tool payload.
func (e *Extractor) extract(ctx context.Context, circular *model.Circular) (*extraction, error) {
	text := circular.RawText
	if text == "" {
		text = circular.Title
	}
	if len(text) > e.cfg.MaxChars {
		text = text[:e.cfg.MaxChars]
	}

	prompt := fmt.Sprintf("Analyze this regulatory circular from %s:\n\nTitle: %s\n\nContent:\n%s",
		circular.Source, circular.Title, text)

	resp, err := e.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
		Tools:     []anthropic.Tool{extractionTool()},
		ForceTool: extractTool,
	})
	if err != nil {
		return nil, eris.Wrap(err, "extractor: create message")
	}

	input, ok := resp.ToolInput(extractTool)
	if !ok {
		return nil, eris.New("extractor: no tool call in response")
	}

	var out extraction
	if err := json.Unmarshal(input, &out); err != nil {
		return nil, eris.Wrap(err, "extractor: unmarshal tool input")
	}
	return &out, nil
}

// fanOut expands an extraction into impact rows: the cross product of
// entity types and industries, with a wildcard-industry row per entity type
// when the extraction yields no industry signal so entity coverage is not
// silently dropped.
func fanOut(circularID string, ex *extraction) []model.Impact {
	base := model.Impact{
		CircularID:       circularID,
		ImpactSummary:    ex.Summary,
		ComplianceAction: ex.ComplianceAction,
		RiskLevel:        model.RiskLevel(ex.RiskLevel),
		DueDate:          parseISODate(ex.DueDate),
		ImmediateAction:  ex.ImmediateAction,
	}

	var out []model.Impact
	for _, entity := range ex.EntityTypesAffected {
		if len(ex.IndustriesAffected) == 0 {
			imp := base
			imp.EntityType = entity
			imp.IndustryType = "All"
			out = append(out, imp)
			continue
		}
		for _, industry := range ex.IndustriesAffected {
			imp := base
			imp.EntityType = entity
			imp.IndustryType = industry
			out = append(out, imp)
		}
	}
	return out
}

func extractionTool() anthropic.Tool {
	return anthropic.Tool{
		Name:        extractTool,
		Description: "Extract structured compliance data from a regulatory circular",
		Properties: map[string]any{
			"summary": map[string]any{
				"type": "string", "description": "Executive summary, max 200 words",
			},
			"effective_date": map[string]any{
				"type": "string", "description": "Effective date in YYYY-MM-DD format, or null if not specified",
			},
			"entity_types_affected": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string", "enum": model.EntityTypes},
				"description": "Entity types affected",
			},
			"industries_affected": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Industries impacted",
			},
			"compliance_action": map[string]any{
				"type": "string", "description": "Required compliance action",
			},
			"due_date": map[string]any{
				"type": "string", "description": "Due date in YYYY-MM-DD format, or null",
			},
			"risk_level": map[string]any{
				"type": "string", "enum": []string{"low", "medium", "high"},
			},
			"immediate_action": map[string]any{
				"type": "boolean", "description": "Whether immediate action is required",
			},
			"compliance_required": map[string]any{
				"type": "boolean",
			},
		},
		Required: []string{
			"summary", "entity_types_affected", "industries_affected",
			"compliance_action", "risk_level", "immediate_action", "compliance_required",
		},
	}
}

func parseISODate(s string) *time.Time {
	if s == "" || s == "null" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		t = t.UTC()
		return &t
	}
	// Models occasionally emit named dates despite the schema hint.
	if t, ok := dates.ParseNamed(s); ok {
		return &t
	}
	return nil
}
