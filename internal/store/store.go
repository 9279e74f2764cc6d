// Package store provides SQLite-backed persistence for FloorSync.
//
// Every record carries a synced flag. Records are created unsynced,
// any field mutation resets the flag, and only the sync engine marks
// records synced after the remote confirms acceptance.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/floorsync/floorsync/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Sentinel errors for store operations.
var (
	ErrNotFound            = errors.New("record not found")
	ErrChecklistIncomplete = errors.New("checklist has unchecked items")
	ErrEndTimeRequired     = errors.New("resolved event requires an end time")
	ErrEndTimeBeforeStart  = errors.New("end time precedes start time")
	ErrEndTimeOnActive     = errors.New("active event cannot carry an end time")
)

// Store provides access to the FloorSync SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS downtime_events (
		id TEXT PRIMARY KEY,
		operator_id TEXT NOT NULL,
		equipment_id TEXT NOT NULL,
		equipment_name TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		reason TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS maintenance_tasks (
		id TEXT PRIMARY KEY,
		operator_id TEXT NOT NULL,
		equipment_id TEXT NOT NULL,
		equipment_name TEXT NOT NULL,
		checklist_id TEXT NOT NULL,
		checklist_name TEXT NOT NULL,
		status TEXT NOT NULL,
		completed_at DATETIME,
		synced INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS maintenance_checklist_items (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		item_text TEXT NOT NULL,
		checked INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		FOREIGN KEY (task_id) REFERENCES maintenance_tasks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		related_id TEXT,
		acknowledged INTEGER NOT NULL DEFAULT 0,
		acknowledged_by TEXT,
		acknowledged_at DATETIME,
		synced INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_log (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		success INTEGER NOT NULL,
		synced_items INTEGER NOT NULL,
		errors TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_downtime_operator ON downtime_events(operator_id);
	CREATE INDEX IF NOT EXISTS idx_downtime_status ON downtime_events(status);
	CREATE INDEX IF NOT EXISTS idx_downtime_synced ON downtime_events(synced);
	CREATE INDEX IF NOT EXISTS idx_maintenance_operator ON maintenance_tasks(operator_id);
	CREATE INDEX IF NOT EXISTS idx_maintenance_synced ON maintenance_tasks(synced);
	CREATE INDEX IF NOT EXISTS idx_checklist_task ON maintenance_checklist_items(task_id);
	CREATE INDEX IF NOT EXISTS idx_alerts_acknowledged ON alerts(acknowledged);
	CREATE INDEX IF NOT EXISTS idx_alerts_synced ON alerts(synced);
	`

	_, err := s.db.Exec(schema)
	return err
}

// validateDowntime checks the end-time invariant on the combined state
// of a downtime event: an end time is present if and only if the event
// is resolved, and never precedes the start time.
func validateDowntime(status models.DowntimeStatus, start time.Time, end *time.Time) error {
	switch status {
	case models.DowntimeResolved:
		if end == nil {
			return ErrEndTimeRequired
		}
		if end.Before(start) {
			return ErrEndTimeBeforeStart
		}
	default:
		if end != nil {
			return ErrEndTimeOnActive
		}
	}
	return nil
}

// --- Downtime Operations ---

// NewDowntimeEvent holds the caller-supplied fields for a new downtime event.
type NewDowntimeEvent struct {
	OperatorID    string
	EquipmentID   string
	EquipmentName string
	StartTime     time.Time
	Reason        string
	Description   string
}

// CreateDowntimeEvent inserts a new active, unsynced downtime event.
func (s *Store) CreateDowntimeEvent(nev NewDowntimeEvent) (*models.DowntimeEvent, error) {
	now := time.Now().UTC()
	start := nev.StartTime
	if start.IsZero() {
		start = now
	}

	ev := &models.DowntimeEvent{
		ID:            uuid.New().String(),
		OperatorID:    nev.OperatorID,
		EquipmentID:   nev.EquipmentID,
		EquipmentName: nev.EquipmentName,
		StartTime:     start,
		Reason:        nev.Reason,
		Description:   nev.Description,
		Status:        models.DowntimeActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := s.db.Exec(
		`INSERT INTO downtime_events
		 (id, operator_id, equipment_id, equipment_name, start_time, end_time, reason, description, status, synced, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, NULL, ?, ?, ?, 0, ?, ?)`,
		ev.ID, ev.OperatorID, ev.EquipmentID, ev.EquipmentName, ev.StartTime,
		ev.Reason, ev.Description, ev.Status, ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert downtime event: %w", err)
	}
	return ev, nil
}

// GetDowntimeEvent retrieves a downtime event by ID. Returns nil if absent.
func (s *Store) GetDowntimeEvent(id string) (*models.DowntimeEvent, error) {
	row := s.db.QueryRow(
		`SELECT id, operator_id, equipment_id, equipment_name, start_time, end_time, reason, description, status, synced, created_at, updated_at
		 FROM downtime_events WHERE id = ?`, id)
	ev, err := scanDowntimeEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query downtime event: %w", err)
	}
	return ev, nil
}

// UpdateDowntimeEvent applies a partial update to a downtime event.
// Unset patch fields are left untouched; an empty patch is a no-op.
// The updated timestamp is refreshed and the record marked unsynced.
func (s *Store) UpdateDowntimeEvent(id string, patch models.DowntimeEventPatch) error {
	if patch.IsZero() {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT id, operator_id, equipment_id, equipment_name, start_time, end_time, reason, description, status, synced, created_at, updated_at
		 FROM downtime_events WHERE id = ?`, id)
	ev, err := scanDowntimeEvent(row)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query downtime event: %w", err)
	}

	if patch.StartTime != nil {
		ev.StartTime = patch.StartTime.UTC()
	}
	if patch.EndTime != nil {
		t := patch.EndTime.UTC()
		ev.EndTime = &t
	}
	if patch.Reason != nil {
		ev.Reason = *patch.Reason
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Status != nil {
		ev.Status = *patch.Status
	}

	if err := validateDowntime(ev.Status, ev.StartTime, ev.EndTime); err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(
		`UPDATE downtime_events
		 SET start_time = ?, end_time = ?, reason = ?, description = ?, status = ?, synced = 0, updated_at = ?
		 WHERE id = ?`,
		ev.StartTime, nullableTime(ev.EndTime), ev.Reason, ev.Description, ev.Status, now, id,
	)
	if err != nil {
		return fmt.Errorf("update downtime event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DowntimeFilter narrows ListDowntimeEvents results.
type DowntimeFilter struct {
	OperatorID string
	Status     models.DowntimeStatus
	Unsynced   bool
	Limit      int
}

// ListDowntimeEvents returns downtime events, newest first.
func (s *Store) ListDowntimeEvents(f DowntimeFilter) ([]models.DowntimeEvent, error) {
	query := `SELECT id, operator_id, equipment_id, equipment_name, start_time, end_time, reason, description, status, synced, created_at, updated_at
	          FROM downtime_events`
	where, args := buildWhere(f.OperatorID, string(f.Status), f.Unsynced)
	query += where + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query downtime events: %w", err)
	}
	defer rows.Close()

	var events []models.DowntimeEvent
	for rows.Next() {
		ev, err := scanDowntimeEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan downtime event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// --- Maintenance Operations ---

// NewMaintenanceTask holds the caller-supplied fields for a new task.
type NewMaintenanceTask struct {
	OperatorID    string
	EquipmentID   string
	EquipmentName string
	ChecklistID   string
	ChecklistName string
}

// CreateMaintenanceTask inserts a new pending task together with its
// owned checklist items in a single transaction.
func (s *Store) CreateMaintenanceTask(nt NewMaintenanceTask, itemTexts []string) (*models.MaintenanceTask, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	task := &models.MaintenanceTask{
		ID:            uuid.New().String(),
		OperatorID:    nt.OperatorID,
		EquipmentID:   nt.EquipmentID,
		EquipmentName: nt.EquipmentName,
		ChecklistID:   nt.ChecklistID,
		ChecklistName: nt.ChecklistName,
		Status:        models.MaintenancePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = tx.Exec(
		`INSERT INTO maintenance_tasks
		 (id, operator_id, equipment_id, equipment_name, checklist_id, checklist_name, status, completed_at, synced, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL, 0, ?, ?)`,
		task.ID, task.OperatorID, task.EquipmentID, task.EquipmentName,
		task.ChecklistID, task.ChecklistName, task.Status, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert maintenance task: %w", err)
	}

	for _, text := range itemTexts {
		item := models.ChecklistItem{
			ID:       uuid.New().String(),
			TaskID:   task.ID,
			ItemText: text,
		}
		_, err = tx.Exec(
			`INSERT INTO maintenance_checklist_items (id, task_id, item_text, checked, notes) VALUES (?, ?, ?, 0, ?)`,
			item.ID, item.TaskID, item.ItemText, item.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("insert checklist item: %w", err)
		}
		task.Items = append(task.Items, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return task, nil
}

// GetMaintenanceTask retrieves a task with its checklist items. Returns
// nil if absent.
func (s *Store) GetMaintenanceTask(id string) (*models.MaintenanceTask, error) {
	row := s.db.QueryRow(
		`SELECT id, operator_id, equipment_id, equipment_name, checklist_id, checklist_name, status, completed_at, synced, created_at, updated_at
		 FROM maintenance_tasks WHERE id = ?`, id)
	task, err := scanMaintenanceTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query maintenance task: %w", err)
	}
	if err := s.loadChecklistItems(task); err != nil {
		return nil, err
	}
	return task, nil
}

// MaintenanceFilter narrows ListMaintenanceTasks results.
type MaintenanceFilter struct {
	OperatorID string
	Status     models.MaintenanceStatus
	Unsynced   bool
	Limit      int
}

// ListMaintenanceTasks returns tasks with their checklist items, newest first.
func (s *Store) ListMaintenanceTasks(f MaintenanceFilter) ([]models.MaintenanceTask, error) {
	query := `SELECT id, operator_id, equipment_id, equipment_name, checklist_id, checklist_name, status, completed_at, synced, created_at, updated_at
	          FROM maintenance_tasks`
	where, args := buildWhere(f.OperatorID, string(f.Status), f.Unsynced)
	query += where + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query maintenance tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.MaintenanceTask
	for rows.Next() {
		task, err := scanMaintenanceTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		if err := s.loadChecklistItems(&tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// UpdateMaintenanceTask applies a partial update to a task. A transition
// to completed is rejected with ErrChecklistIncomplete while any owned
// checklist item is unchecked; completed_at is set on that transition
// and cleared on any other status.
func (s *Store) UpdateMaintenanceTask(id string, patch models.MaintenanceTaskPatch) error {
	if patch.IsZero() {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current models.MaintenanceStatus
	err = tx.QueryRow(`SELECT status FROM maintenance_tasks WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query maintenance task: %w", err)
	}

	status := current
	if patch.Status != nil {
		status = *patch.Status
	}

	now := time.Now().UTC()
	var completedAt *time.Time
	if status == models.MaintenanceCompleted {
		var unchecked int
		err = tx.QueryRow(
			`SELECT COUNT(*) FROM maintenance_checklist_items WHERE task_id = ? AND checked = 0`, id,
		).Scan(&unchecked)
		if err != nil {
			return fmt.Errorf("count unchecked items: %w", err)
		}
		if unchecked > 0 {
			return ErrChecklistIncomplete
		}
		completedAt = &now
	}

	_, err = tx.Exec(
		`UPDATE maintenance_tasks SET status = ?, completed_at = ?, synced = 0, updated_at = ? WHERE id = ?`,
		status, nullableTime(completedAt), now, id,
	)
	if err != nil {
		return fmt.Errorf("update maintenance task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// UpdateChecklistItem applies a partial update to a checklist item.
// It deliberately does not touch the owning task's sync flag; callers
// mark the task unsynced via UpdateMaintenanceTask when a toggle
// changes task-level status.
func (s *Store) UpdateChecklistItem(itemID string, patch models.ChecklistItemPatch) error {
	if patch.IsZero() {
		return nil
	}

	query := `UPDATE maintenance_checklist_items SET `
	var sets []string
	var args []interface{}
	if patch.Checked != nil {
		sets = append(sets, `checked = ?`)
		args = append(args, boolToInt(*patch.Checked))
	}
	if patch.Notes != nil {
		sets = append(sets, `notes = ?`)
		args = append(args, *patch.Notes)
	}
	query += joinSets(sets) + ` WHERE id = ?`
	args = append(args, itemID)

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update checklist item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Alert Operations ---

// NewAlert holds the caller-supplied fields for a new alert.
type NewAlert struct {
	Type      models.AlertType
	Severity  models.AlertSeverity
	Title     string
	Message   string
	RelatedID string
}

// CreateAlert inserts a new unacknowledged, unsynced alert.
func (s *Store) CreateAlert(na NewAlert) (*models.Alert, error) {
	now := time.Now().UTC()
	alert := &models.Alert{
		ID:        uuid.New().String(),
		Type:      na.Type,
		Severity:  na.Severity,
		Title:     na.Title,
		Message:   na.Message,
		RelatedID: na.RelatedID,
		CreatedAt: now,
	}

	_, err := s.db.Exec(
		`INSERT INTO alerts (id, type, severity, title, message, related_id, acknowledged, synced, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?)`,
		alert.ID, alert.Type, alert.Severity, alert.Title, alert.Message, alert.RelatedID, alert.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	return alert, nil
}

// AcknowledgeAlert marks an alert acknowledged by the given user and
// flags it for re-sync.
func (s *Store) AcknowledgeAlert(id, acknowledgedBy string) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE alerts SET acknowledged = 1, acknowledged_by = ?, acknowledged_at = ?, synced = 0 WHERE id = ?`,
		acknowledgedBy, now, id,
	)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AlertFilter narrows ListAlerts results.
type AlertFilter struct {
	Acknowledged *bool
	Unsynced     bool
	Limit        int
}

// ListAlerts returns alerts, newest first.
func (s *Store) ListAlerts(f AlertFilter) ([]models.Alert, error) {
	query := `SELECT id, type, severity, title, message, related_id, acknowledged, acknowledged_by, acknowledged_at, synced, created_at
	          FROM alerts`
	var conds []string
	var args []interface{}
	if f.Acknowledged != nil {
		conds = append(conds, `acknowledged = ?`)
		args = append(args, boolToInt(*f.Acknowledged))
	}
	if f.Unsynced {
		conds = append(conds, `synced = 0`)
	}
	query += whereClause(conds) + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

// ActiveDowntimeEvents returns all downtime events that have not been
// resolved yet, newest first.
func (s *Store) ActiveDowntimeEvents() ([]models.DowntimeEvent, error) {
	return s.ListDowntimeEvents(DowntimeFilter{Status: models.DowntimeActive})
}

// --- Sync Operations ---

// UnsyncedDowntimeEvents returns all downtime events awaiting upload.
func (s *Store) UnsyncedDowntimeEvents() ([]models.DowntimeEvent, error) {
	return s.ListDowntimeEvents(DowntimeFilter{Unsynced: true})
}

// UnsyncedMaintenanceTasks returns all maintenance tasks awaiting upload,
// with their checklist items loaded.
func (s *Store) UnsyncedMaintenanceTasks() ([]models.MaintenanceTask, error) {
	return s.ListMaintenanceTasks(MaintenanceFilter{Unsynced: true})
}

// UnsyncedAlerts returns all alerts awaiting upload.
func (s *Store) UnsyncedAlerts() ([]models.Alert, error) {
	return s.ListAlerts(AlertFilter{Unsynced: true})
}

// PendingSyncCount returns the total number of records awaiting upload.
func (s *Store) PendingSyncCount() (int, error) {
	var total int
	for _, table := range []string{"downtime_events", "maintenance_tasks", "alerts"} {
		var n int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + table + ` WHERE synced = 0`).Scan(&n); err != nil {
			return 0, fmt.Errorf("count unsynced %s: %w", table, err)
		}
		total += n
	}
	return total, nil
}

// MarkDowntimeEventSynced clears the unsynced flag on a downtime event.
func (s *Store) MarkDowntimeEventSynced(id string) error {
	_, err := s.db.Exec(`UPDATE downtime_events SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark downtime event synced: %w", err)
	}
	return nil
}

// MarkMaintenanceTaskSynced clears the unsynced flag on a maintenance task.
func (s *Store) MarkMaintenanceTaskSynced(id string) error {
	_, err := s.db.Exec(`UPDATE maintenance_tasks SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark maintenance task synced: %w", err)
	}
	return nil
}

// MarkAlertSynced clears the unsynced flag on an alert.
func (s *Store) MarkAlertSynced(id string) error {
	_, err := s.db.Exec(`UPDATE alerts SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark alert synced: %w", err)
	}
	return nil
}

// RecordSyncAttempt appends an entry to the sync log.
func (s *Store) RecordSyncAttempt(entry models.SyncLogEntry) (*models.SyncLogEntry, error) {
	entry.ID = uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO sync_log (id, started_at, finished_at, success, synced_items, errors) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.StartedAt, entry.FinishedAt, boolToInt(entry.Success), entry.SyncedItems, entry.Errors,
	)
	if err != nil {
		return nil, fmt.Errorf("insert sync log: %w", err)
	}
	return &entry, nil
}

// LastSyncAttempt returns the most recent sync log entry, or nil if the
// device has never attempted a sync.
func (s *Store) LastSyncAttempt() (*models.SyncLogEntry, error) {
	entry := &models.SyncLogEntry{}
	var success int
	var errs sql.NullString
	err := s.db.QueryRow(
		`SELECT id, started_at, finished_at, success, synced_items, errors FROM sync_log ORDER BY started_at DESC LIMIT 1`,
	).Scan(&entry.ID, &entry.StartedAt, &entry.FinishedAt, &success, &entry.SyncedItems, &errs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query sync log: %w", err)
	}
	entry.Success = success != 0
	if errs.Valid {
		entry.Errors = errs.String
	}
	return entry, nil
}

// --- User Operations ---

// SeedUsers inserts the default operator and supervisor accounts if
// they are not already present.
func (s *Store) SeedUsers() error {
	users := []models.User{
		{Username: "operator1", Password: "operator123", Role: models.RoleOperator, Name: "John Operator"},
		{Username: "operator2", Password: "operator123", Role: models.RoleOperator, Name: "Jane Operator"},
		{Username: "supervisor1", Password: "supervisor123", Role: models.RoleSupervisor, Name: "Bob Supervisor"},
	}
	for _, u := range users {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO users (id, username, password, role, name) VALUES (?, ?, ?, ?, ?)`,
			"user_"+u.Username, u.Username, u.Password, u.Role, u.Name,
		)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}
	return nil
}

// GetUserByUsername retrieves a user account. Returns nil if absent.
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(
		`SELECT id, username, password, role, name FROM users WHERE username = ?`, username,
	).Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// --- Stats ---

// Stats aggregates the dashboard counters.
func (s *Store) Stats() (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM downtime_events WHERE status = ?`, models.DowntimeActive,
	).Scan(&stats.ActiveDowntime)
	if err != nil {
		return nil, fmt.Errorf("count active downtime: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM maintenance_tasks WHERE status = ?`, models.MaintenancePending,
	).Scan(&stats.PendingMaintenance)
	if err != nil {
		return nil, fmt.Errorf("count pending maintenance: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM alerts WHERE acknowledged = 0`,
	).Scan(&stats.UnacknowledgedAlerts)
	if err != nil {
		return nil, fmt.Errorf("count unacknowledged alerts: %w", err)
	}

	minutes, err := s.todayDowntimeMinutes()
	if err != nil {
		return nil, err
	}
	stats.TodayDowntimeMinutes = minutes

	return stats, nil
}

// todayDowntimeMinutes sums downtime durations for events that started
// today (UTC). Active events count up to now.
func (s *Store) todayDowntimeMinutes() (int, error) {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	rows, err := s.db.Query(
		`SELECT start_time, end_time FROM downtime_events WHERE start_time >= ?`, dayStart,
	)
	if err != nil {
		return 0, fmt.Errorf("query today downtime: %w", err)
	}
	defer rows.Close()

	var total time.Duration
	for rows.Next() {
		var start time.Time
		var end sql.NullTime
		if err := rows.Scan(&start, &end); err != nil {
			return 0, fmt.Errorf("scan downtime span: %w", err)
		}
		stop := now
		if end.Valid {
			stop = end.Time
		}
		if stop.After(start) {
			total += stop.Sub(start)
		}
	}
	return int(total.Minutes()), rows.Err()
}

// --- Scan Helpers ---

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDowntimeEvent(r rowScanner) (*models.DowntimeEvent, error) {
	ev := &models.DowntimeEvent{}
	var endTime sql.NullTime
	var description sql.NullString
	var synced int

	err := r.Scan(&ev.ID, &ev.OperatorID, &ev.EquipmentID, &ev.EquipmentName,
		&ev.StartTime, &endTime, &ev.Reason, &description, &ev.Status,
		&synced, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		t := endTime.Time
		ev.EndTime = &t
	}
	if description.Valid {
		ev.Description = description.String
	}
	ev.Synced = synced != 0
	return ev, nil
}

func scanMaintenanceTask(r rowScanner) (*models.MaintenanceTask, error) {
	task := &models.MaintenanceTask{}
	var completedAt sql.NullTime
	var synced int

	err := r.Scan(&task.ID, &task.OperatorID, &task.EquipmentID, &task.EquipmentName,
		&task.ChecklistID, &task.ChecklistName, &task.Status, &completedAt,
		&synced, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	task.Synced = synced != 0
	return task, nil
}

func scanAlert(r rowScanner) (*models.Alert, error) {
	alert := &models.Alert{}
	var relatedID, acknowledgedBy sql.NullString
	var acknowledgedAt sql.NullTime
	var acknowledged, synced int

	err := r.Scan(&alert.ID, &alert.Type, &alert.Severity, &alert.Title, &alert.Message,
		&relatedID, &acknowledged, &acknowledgedBy, &acknowledgedAt, &synced, &alert.CreatedAt)
	if err != nil {
		return nil, err
	}
	if relatedID.Valid {
		alert.RelatedID = relatedID.String
	}
	if acknowledgedBy.Valid {
		alert.AcknowledgedBy = acknowledgedBy.String
	}
	if acknowledgedAt.Valid {
		t := acknowledgedAt.Time
		alert.AcknowledgedAt = &t
	}
	alert.Acknowledged = acknowledged != 0
	alert.Synced = synced != 0
	return alert, nil
}

// loadChecklistItems populates a task's owned checklist items.
func (s *Store) loadChecklistItems(task *models.MaintenanceTask) error {
	rows, err := s.db.Query(
		`SELECT id, task_id, item_text, checked, notes FROM maintenance_checklist_items WHERE task_id = ?`,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("query checklist items: %w", err)
	}
	defer rows.Close()

	task.Items = nil
	for rows.Next() {
		var item models.ChecklistItem
		var checked int
		var notes sql.NullString
		if err := rows.Scan(&item.ID, &item.TaskID, &item.ItemText, &checked, &notes); err != nil {
			return fmt.Errorf("scan checklist item: %w", err)
		}
		item.Checked = checked != 0
		if notes.Valid {
			item.Notes = notes.String
		}
		task.Items = append(task.Items, item)
	}
	return rows.Err()
}

// --- Query Helpers ---

func buildWhere(operatorID, status string, unsynced bool) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if operatorID != "" {
		conds = append(conds, `operator_id = ?`)
		args = append(args, operatorID)
	}
	if status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, status)
	}
	if unsynced {
		conds = append(conds, `synced = 0`)
	}
	return whereClause(conds), args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	out := ` WHERE ` + conds[0]
	for _, c := range conds[1:] {
		out += ` AND ` + c
	}
	return out
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += `, ` + s
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
