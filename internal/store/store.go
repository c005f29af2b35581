// Package store persists circulars, impacts, tasks and notifications
// behind a driver-agnostic interface. Postgres backs production; SQLite
// backs development and tests.
package store

import (
	"context"
	"time"

	"github.com/sells-group/regwatch/internal/model"
)

// Store defines the persistence contract the pipeline depends on.
//
// UpsertCircular must provide atomic insert-or-ignore semantics keyed by
// URL (first write wins); everything else is plain insert/update. The
// clients and profiles tables are owned by the CRUD layer and are read-only
// here.
type Store interface {
	// Circulars
	UpsertCircular(ctx context.Context, c *model.Circular) (bool, error)
	GetCircular(ctx context.Context, id string) (*model.Circular, error)
	ListCircularsByStatus(ctx context.Context, status model.CircularStatus, limit int) ([]model.Circular, error)
	UpdateCircularStatus(ctx context.Context, id string, status model.CircularStatus) error
	CompleteCircularExtraction(ctx context.Context, id, summary string, effectiveDate *time.Time, complianceRequired bool) error

	// Impacts
	InsertImpact(ctx context.Context, imp *model.Impact) error
	ListImpactsByCircular(ctx context.Context, circularID string) ([]model.Impact, error)

	// Roster (read-only to the pipeline)
	ListClients(ctx context.Context) ([]model.Client, error)
	ListProfilesByFirm(ctx context.Context, firmID string) ([]model.Profile, error)

	// Tasks and notifications
	TaskExists(ctx context.Context, clientID, circularID string) (bool, error)
	InsertTask(ctx context.Context, task *model.ComplianceTask) error
	InsertNotification(ctx context.Context, n *model.Notification) error

	// Audit
	InsertScrapeLog(ctx context.Context, entry *model.ScrapeLogEntry) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
