// Package models defines the core domain types for FloorSync.
package models

import "time"

// DowntimeStatus represents the current state of a downtime event.
type DowntimeStatus string

const (
	DowntimeActive   DowntimeStatus = "active"
	DowntimeResolved DowntimeStatus = "resolved"
)

// MaintenanceStatus represents the current state of a maintenance task.
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in-progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
)

// AlertType classifies what an alert is about.
type AlertType string

const (
	AlertDowntime    AlertType = "downtime"
	AlertMaintenance AlertType = "maintenance"
	AlertSystem      AlertType = "system"
)

// AlertSeverity ranks how urgent an alert is.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// UserRole distinguishes operators from supervisors.
type UserRole string

const (
	RoleOperator   UserRole = "operator"
	RoleSupervisor UserRole = "supervisor"
)

// DowntimeEvent records a span of equipment downtime captured on the floor.
// EndTime is set if and only if Status is resolved.
type DowntimeEvent struct {
	ID            string         `json:"id"`
	OperatorID    string         `json:"operator_id"`
	EquipmentID   string         `json:"equipment_id"`
	EquipmentName string         `json:"equipment_name"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       *time.Time     `json:"end_time,omitempty"`
	Reason        string         `json:"reason"`
	Description   string         `json:"description,omitempty"`
	Status        DowntimeStatus `json:"status"`
	Synced        bool           `json:"synced"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// MaintenanceTask is a checklist-driven maintenance job on a piece of
// equipment. It owns its checklist items; they are created and deleted
// with the task. CompletedAt is set if and only if Status is completed.
type MaintenanceTask struct {
	ID            string            `json:"id"`
	OperatorID    string            `json:"operator_id"`
	EquipmentID   string            `json:"equipment_id"`
	EquipmentName string            `json:"equipment_name"`
	ChecklistID   string            `json:"checklist_id"`
	ChecklistName string            `json:"checklist_name"`
	Items         []ChecklistItem   `json:"items"`
	Status        MaintenanceStatus `json:"status"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	Synced        bool              `json:"synced"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ChecklistItem is a single inspection or action step owned by a
// maintenance task.
type ChecklistItem struct {
	ID       string `json:"id"`
	TaskID   string `json:"task_id"`
	ItemText string `json:"item_text"`
	Checked  bool   `json:"checked"`
	Notes    string `json:"notes,omitempty"`
}

// Alert is a notification raised for downtime, maintenance, or system
// conditions. AcknowledgedBy/At are set if and only if Acknowledged.
type Alert struct {
	ID             string        `json:"id"`
	Type           AlertType     `json:"type"`
	Severity       AlertSeverity `json:"severity"`
	Title          string        `json:"title"`
	Message        string        `json:"message"`
	RelatedID      string        `json:"related_id,omitempty"`
	Acknowledged   bool          `json:"acknowledged"`
	AcknowledgedBy string        `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	Synced         bool          `json:"synced"`
	CreatedAt      time.Time     `json:"created_at"`
}

// User is a floor operator or supervisor account used for lookups by
// the authentication layer.
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Password string   `json:"-"`
	Role     UserRole `json:"role"`
	Name     string   `json:"name"`
}

// SyncStatus is the process-wide observable synchronization state.
type SyncStatus struct {
	IsOnline     bool       `json:"is_online"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	PendingItems int        `json:"pending_items"`
	Syncing      bool       `json:"syncing"`
}

// DashboardStats aggregates the counts shown on the dashboard.
type DashboardStats struct {
	ActiveDowntime       int `json:"active_downtime"`
	PendingMaintenance   int `json:"pending_maintenance"`
	UnacknowledgedAlerts int `json:"unacknowledged_alerts"`
	TodayDowntimeMinutes int `json:"today_downtime_minutes"`
}

// SyncLogEntry records the outcome of one synchronization attempt.
type SyncLogEntry struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Success     bool      `json:"success"`
	SyncedItems int       `json:"synced_items"`
	Errors      string    `json:"errors,omitempty"`
}
