package domain

import "time"

// TaskStatus represents the progress state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// IsValid checks if the status is one of the allowed values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// Task is a unit of work assigned by an admin to a user.
// AssignedTo and CreatedBy are populated only on canonical (joined) reads.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	AssignedToID *string    `json:"assignedToId"`
	AssignedTo   *User      `json:"assignedTo"`
	CreatedByID  string     `json:"createdById"`
	CreatedBy    *User      `json:"createdBy"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsAssignedTo checks if the task is assigned to the given user.
func (t *Task) IsAssignedTo(userID string) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

// IsCreatedBy checks if the task was created by the given user.
func (t *Task) IsCreatedBy(userID string) bool {
	return t.CreatedByID == userID
}

// AssigneeName returns the display name of the assignee, or "unassigned" when unknown.
func (t *Task) AssigneeName() string {
	if t.AssignedTo == nil || t.AssignedTo.Name == "" {
		return "unassigned"
	}
	return t.AssignedTo.Name
}
