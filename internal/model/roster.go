package model

import "time"

// Client is a firm's client as maintained by the CRUD layer.
// Read-only to the pipeline.
type Client struct {
	ID           string `json:"id"`
	FirmID       string `json:"firm_id"`
	Name         string `json:"client_name"`
	EntityType   string `json:"entity_type"`
	IndustryType string `json:"industry_type"`
}

// Profile is one member of a firm; notification fan-out targets every
// profile of the owning firm.
type Profile struct {
	ID     string `json:"id"`
	FirmID string `json:"firm_id"`
}

// TaskStatus tracks a compliance task; transitions past pending belong to
// the UI, not the pipeline.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusOverdue   TaskStatus = "overdue"
)

// ComplianceTask is a per-client obligation derived from a circular's
// impact. At most one task exists per (ClientID, CircularID) pair.
// CircularID is empty for manually created tasks.
type ComplianceTask struct {
	ID          string     `json:"id"`
	ClientID    string     `json:"client_id"`
	FirmID      string     `json:"firm_id"`
	CircularID  string     `json:"circular_id,omitempty"`
	Title       string     `json:"task_title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      TaskStatus `json:"status"`
	RiskLevel   RiskLevel  `json:"risk_level"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Notification is created for each firm member when a new high-risk task
// appears. The read flag is mutated only by the UI.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
