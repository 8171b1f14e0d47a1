package dto

import (
	"time"

	"github.com/mtlprog/taskhub/internal/domain"
)

// MessageResponse is a plain confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

// CreatedUserResponse is returned once, when a user is provisioned.
// It is the only response that carries the bearer token.
type CreatedUserResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// AuditEventInfo represents one entry of a task's history.
type AuditEventInfo struct {
	ID        string           `json:"id"`
	EventType domain.EventType `json:"eventType"`
	UserID    *string          `json:"userId"`
	Message   string           `json:"message"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// TaskHistoryResponse represents the response for GET /tasks/{id}/events.
type TaskHistoryResponse struct {
	TaskID string           `json:"taskId"`
	Events []AuditEventInfo `json:"events"`
}

// ToAuditEventInfo converts a domain audit event.
func ToAuditEventInfo(event *domain.AuditEvent) AuditEventInfo {
	return AuditEventInfo{
		ID:        event.ID,
		EventType: event.EventType,
		UserID:    event.UserID,
		Message:   event.Message,
		Metadata:  event.Metadata,
		CreatedAt: event.CreatedAt,
	}
}

// ToTaskHistory builds the history response for a task.
func ToTaskHistory(taskID string, events []*domain.AuditEvent) TaskHistoryResponse {
	infos := make([]AuditEventInfo, 0, len(events))
	for _, e := range events {
		infos = append(infos, ToAuditEventInfo(e))
	}
	return TaskHistoryResponse{TaskID: taskID, Events: infos}
}
