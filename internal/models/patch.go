package models

import "time"

// Patch types enumerate exactly which fields a partial update may set.
// Nil fields are left untouched. Identifiers, sync flags, and owned
// sub-collections are never patchable; the store manages those itself.

// DowntimeEventPatch is a partial update for a downtime event.
type DowntimeEventPatch struct {
	StartTime   *time.Time      `json:"start_time,omitempty"`
	EndTime     *time.Time      `json:"end_time,omitempty"`
	Reason      *string         `json:"reason,omitempty"`
	Description *string         `json:"description,omitempty"`
	Status      *DowntimeStatus `json:"status,omitempty"`
}

// IsZero reports whether the patch sets no fields.
func (p DowntimeEventPatch) IsZero() bool {
	return p.StartTime == nil && p.EndTime == nil && p.Reason == nil &&
		p.Description == nil && p.Status == nil
}

// MaintenanceTaskPatch is a partial update for a maintenance task.
// CompletedAt is derived from the status transition, not settable.
type MaintenanceTaskPatch struct {
	Status *MaintenanceStatus `json:"status,omitempty"`
}

// IsZero reports whether the patch sets no fields.
func (p MaintenanceTaskPatch) IsZero() bool {
	return p.Status == nil
}

// ChecklistItemPatch is a partial update for a checklist item.
type ChecklistItemPatch struct {
	Checked *bool   `json:"checked,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// IsZero reports whether the patch sets no fields.
func (p ChecklistItemPatch) IsZero() bool {
	return p.Checked == nil && p.Notes == nil
}
