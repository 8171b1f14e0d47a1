package notify

import (
	"context"
	"time"

	"github.com/mtlprog/taskhub/internal/domain"
)

// Wire event names. Clients subscribe to these exact strings.
const (
	EventTaskUpdate       = "task-update"
	EventTaskNotification = "task-notification"
	EventTaskCreated      = "task-created"
	EventConnected        = "connected"
	EventJoinRoom         = "join-room"
)

// TaskUpdate is the payload of task-update and task-created.
type TaskUpdate struct {
	EventType domain.EventType `json:"eventType"`
	Task      any              `json:"task"`
	Timestamp time.Time        `json:"timestamp"`
}

// TaskNotification is the payload of task-notification.
type TaskNotification struct {
	EventType domain.EventType `json:"eventType"`
	Task      any              `json:"task"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

// DeletedTask is the task payload sent once the record no longer exists.
type DeletedTask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Dispatcher turns task events into envelopes on a Publisher.
type Dispatcher struct {
	pub Publisher
}

// NewDispatcher creates a Dispatcher over pub.
func NewDispatcher(pub Publisher) *Dispatcher {
	return &Dispatcher{pub: pub}
}

// BroadcastAll sends task-update to every connected session.
func (d *Dispatcher) BroadcastAll(ctx context.Context, eventType domain.EventType, task any, ts time.Time) error {
	return d.pub.Publish(ctx, TopicAll, Envelope{
		Event: EventTaskUpdate,
		Data:  TaskUpdate{EventType: eventType, Task: task, Timestamp: ts},
	})
}

// NotifyUser sends task-notification with the canonical message to one user's sessions.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID string, eventType domain.EventType, task any, title string, status domain.TaskStatus, ts time.Time) error {
	return d.pub.Publish(ctx, UserTopic(userID), Envelope{
		Event: EventTaskNotification,
		Data: TaskNotification{
			EventType: eventType,
			Task:      task,
			Message:   Message(eventType, title, status),
			Timestamp: ts,
		},
	})
}

// NotifyCreator sends the lighter task-created confirmation to the creator's sessions.
func (d *Dispatcher) NotifyCreator(ctx context.Context, userID string, eventType domain.EventType, task any, ts time.Time) error {
	return d.pub.Publish(ctx, UserTopic(userID), Envelope{
		Event: EventTaskCreated,
		Data:  TaskUpdate{EventType: eventType, Task: task, Timestamp: ts},
	})
}
