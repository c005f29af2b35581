// Package mapper fans processed circular impacts out into per-client
// compliance tasks and high-risk notifications.
package mapper

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regwatch/internal/model"
	"github.com/sells-group/regwatch/internal/store"
)

const maxTaskTitleLen = 500

// Mapper joins a circular's impact rows against the client roster and
// materializes one task per affected client, at most once per
// (client, circular) pair.
type Mapper struct {
	store store.Store
}

// New creates a Mapper.
func New(st store.Store) *Mapper {
	return &Mapper{store: st}
}

// Matches reports whether an impact row applies to a client. "All" is the
// wildcard on either axis, and comparison ignores case so free-text roster
// entries still line up with the extraction enums.
func Matches(imp *model.Impact, client *model.Client) bool {
	entityOK := strings.EqualFold(imp.EntityType, "All") ||
		strings.EqualFold(imp.EntityType, client.EntityType)
	industryOK := strings.EqualFold(imp.IndustryType, "All") ||
		strings.EqualFold(imp.IndustryType, client.IndustryType)
	return entityOK && industryOK
}

// Map creates compliance tasks for every client matched by the circular's
// impact rows. Re-running for the same circular creates nothing new.
func (m *Mapper) Map(ctx context.Context, circularID string) (*model.MapResult, error) {
	impacts, err := m.store.ListImpactsByCircular(ctx, circularID)
	if err != nil {
		return nil, eris.Wrap(err, "mapper: list impacts")
	}
	if len(impacts) == 0 {
		return &model.MapResult{Success: true, Message: "No impacts to map"}, nil
	}

	circular, err := m.store.GetCircular(ctx, circularID)
	if err != nil {
		return nil, eris.Wrap(err, "mapper: load circular")
	}

	clients, err := m.store.ListClients(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "mapper: list clients")
	}

	log := zap.L().With(zap.String("circular_id", circularID))

	created := 0
	for i := range impacts {
		imp := &impacts[i]
		for j := range clients {
			client := &clients[j]
			if !Matches(imp, client) {
				continue
			}

			exists, err := m.store.TaskExists(ctx, client.ID, circularID)
			if err != nil {
				log.Warn("mapper: task lookup failed",
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
				continue
			}
			if exists {
				continue
			}

			task := &model.ComplianceTask{
				ClientID:    client.ID,
				FirmID:      client.FirmID,
				CircularID:  circularID,
				Title:       taskTitle(circular, imp),
				Description: imp.ImpactSummary,
				DueDate:     imp.DueDate,
				Status:      model.TaskStatusPending,
				RiskLevel:   imp.RiskLevel,
			}
			if err := m.store.InsertTask(ctx, task); err != nil {
				log.Warn("mapper: insert task failed",
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
				continue
			}
			created++

			if imp.RiskLevel == model.RiskHigh {
				m.notifyFirm(ctx, client, task, log)
			}
		}
	}

	log.Info("mapper: circular mapped", zap.Int("tasks_created", created))
	return &model.MapResult{Success: true, TasksCreated: created}, nil
}

// notifyFirm alerts every profile in the client's firm about a newly
// created high-risk task. Notification failures never fail the mapping.
func (m *Mapper) notifyFirm(ctx context.Context, client *model.Client, task *model.ComplianceTask, log *zap.Logger) {
	profiles, err := m.store.ListProfilesByFirm(ctx, client.FirmID)
	if err != nil {
		log.Warn("mapper: list profiles failed",
			zap.String("firm_id", client.FirmID),
			zap.Error(err),
		)
		return
	}

	for _, p := range profiles {
		n := &model.Notification{
			UserID:  p.ID,
			Title:   "High Risk Alert",
			Message: fmt.Sprintf("New high-risk compliance task for %s: %s", client.Name, task.Title),
			Type:    "high_risk",
		}
		if err := m.store.InsertNotification(ctx, n); err != nil {
			log.Warn("mapper: insert notification failed",
				zap.String("user_id", p.ID),
				zap.Error(err),
			)
		}
	}
}

// taskTitle prefers the concrete compliance action over the circular's
// title, prefixed with the source for scanability in task lists.
func taskTitle(circular *model.Circular, imp *model.Impact) string {
	body := imp.ComplianceAction
	if body == "" {
		body = circular.Title
	}
	return truncate(fmt.Sprintf("%s: %s", circular.Source, body), maxTaskTitleLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
