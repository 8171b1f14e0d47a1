package domain

import "time"

// EventType is the tag of an audit event.
type EventType string

const (
	EventTypeTaskCreated       EventType = "task.created"
	EventTypeTaskUpdated       EventType = "task.updated"
	EventTypeTaskAssigned      EventType = "task.assigned"
	EventTypeTaskStatusChanged EventType = "task.status_changed"
	EventTypeTaskDeleted       EventType = "task.deleted"
)

// EntityTypeTask is the entity type recorded for task events.
const EntityTypeTask = "task"

// AuditEvent is an append-only record of something that happened to an entity.
type AuditEvent struct {
	ID         string         `json:"id"`
	EventType  EventType      `json:"eventType"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	UserID     *string        `json:"userId"` // nil for system events
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// IsSystemEvent returns true if no user performed the action.
func (e *AuditEvent) IsSystemEvent() bool {
	return e.UserID == nil
}
