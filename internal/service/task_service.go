package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/taskhub/internal/cache"
	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/mtlprog/taskhub/internal/notify"
	"github.com/mtlprog/taskhub/internal/policy"
)

// TaskStore persists tasks. GetByID and the list methods resolve assignee and creator.
type TaskStore interface {
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	GetByID(ctx context.Context, taskID string) (*domain.Task, error)
	ListAll(ctx context.Context) ([]*domain.Task, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, taskID string) error
}

// UserFinder resolves users by ID.
type UserFinder interface {
	FindByID(ctx context.Context, userID string) (*domain.User, error)
}

// AuditRecorder appends and reads audit events.
type AuditRecorder interface {
	Append(ctx context.Context, event *domain.AuditEvent) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEvent, error)
}

// CreateTaskInput holds the fields accepted when creating a task.
type CreateTaskInput struct {
	Title        string
	Description  string
	Status       domain.TaskStatus
	AssignedToID string
}

// UpdateTaskInput holds a partial update. Nil fields are left untouched.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *domain.TaskStatus
	AssignedToID *string
}

// TaskService coordinates task mutations with audit, cache invalidation and notifications.
type TaskService struct {
	store     TaskStore
	audit     AuditRecorder
	cache     cache.Cache
	notifier  *notify.Dispatcher
	validator *Validator
	now       func() time.Time
}

// TaskServiceOption configures optional TaskService behaviour.
type TaskServiceOption func(*TaskService)

// WithClock overrides the clock used for notification timestamps.
func WithClock(now func() time.Time) TaskServiceOption {
	return func(s *TaskService) {
		s.now = now
	}
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	store TaskStore,
	users UserFinder,
	audit AuditRecorder,
	c cache.Cache,
	pub notify.Publisher,
	opts ...TaskServiceOption,
) *TaskService {
	s := &TaskService{
		store:     store,
		audit:     audit,
		cache:     c,
		notifier:  notify.NewDispatcher(pub),
		validator: NewValidator(users),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new task created by actingUserID.
func (s *TaskService) Create(ctx context.Context, in CreateTaskInput, actingUserID string) (*domain.Task, error) {
	title, err := s.validator.Title(in.Title)
	if err != nil {
		return nil, err
	}

	status := domain.TaskStatusPending
	if in.Status != "" {
		if err := s.validator.Status(in.Status); err != nil {
			return nil, err
		}
		status = in.Status
	}

	assignee, err := s.validator.Assignee(ctx, in.AssignedToID)
	if err != nil {
		return nil, err
	}

	assigneeID := assignee.ID
	created, err := s.store.Create(ctx, &domain.Task{
		Title:        title,
		Description:  in.Description,
		Status:       status,
		AssignedToID: &assigneeID,
		CreatedByID:  actingUserID,
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	created.AssignedTo = assignee

	// The task is committed from here on.
	ctx = context.WithoutCancel(ctx)
	task := s.reload(ctx, created)

	s.record(ctx, domain.EventTypeTaskCreated, task.ID, actingUserID,
		fmt.Sprintf(`Task "%s" was created`, task.Title),
		map[string]any{"task": task},
	)
	s.invalidate(ctx)
	s.publish(ctx, domain.EventTypeTaskCreated, task)

	slog.Info("task created", "task_id", task.ID, "user_id", actingUserID)

	return task, nil
}

// FindAll lists the tasks visible to the actor, through the cache.
func (s *TaskService) FindAll(ctx context.Context, actorID string, role domain.Role) ([]*domain.Task, error) {
	key := cache.TasksUserKey(actorID)
	if role == domain.RoleAdmin {
		key = cache.TasksAllKey
	}

	var cached []*domain.Task
	err := cache.GetJSON(ctx, s.cache, key, &cached)
	switch {
	case err == nil:
		return cached, nil
	case !isMiss(err):
		slog.Warn("cache read failed, falling back to store", "key", key, "error", err)
	}

	var tasks []*domain.Task
	if role == domain.RoleAdmin {
		tasks, err = s.store.ListAll(ctx)
	} else {
		tasks, err = s.store.ListForUser(ctx, actorID)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	if err := cache.SetJSON(ctx, s.cache, key, tasks, cache.TaskListTTL); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}

	return tasks, nil
}

// FindOne returns a single task if the actor may view it.
func (s *TaskService) FindOne(ctx context.Context, taskID, actorID string, role domain.Role) (*domain.Task, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := policy.AuthorizeView(role, actorID, task); err != nil {
		return nil, err
	}

	return task, nil
}

// Update applies a partial update and emits exactly one semantic event.
func (s *TaskService) Update(ctx context.Context, taskID string, in UpdateTaskInput, actorID string, role domain.Role) (*domain.Task, error) {
	current, err := s.FindOne(ctx, taskID, actorID, role)
	if err != nil {
		return nil, err
	}

	next := *current
	if in.Title != nil {
		title, err := s.validator.Title(*in.Title)
		if err != nil {
			return nil, err
		}
		next.Title = title
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Status != nil {
		if err := s.validator.Status(*in.Status); err != nil {
			return nil, err
		}
		next.Status = *in.Status
	}
	if in.AssignedToID != nil {
		assignee, err := s.validator.Assignee(ctx, *in.AssignedToID)
		if err != nil {
			return nil, err
		}
		// The joined assignee must follow the new id in case the re-read fails.
		assigneeID := assignee.ID
		next.AssignedToID = &assigneeID
		next.AssignedTo = assignee
	}

	assigneeChanged := in.AssignedToID != nil && !current.IsAssignedTo(*in.AssignedToID)
	statusChanged := in.Status != nil && *in.Status != current.Status

	if err := s.store.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("update task %s: %w", taskID, err)
	}

	ctx = context.WithoutCancel(ctx)
	task := s.reload(ctx, &next)

	metadata := map[string]any{"task": task}
	eventType := domain.EventTypeTaskUpdated
	message := fmt.Sprintf(`Task "%s" was updated`, task.Title)

	if statusChanged {
		metadata["oldStatus"] = current.Status
		metadata["newStatus"] = task.Status
		eventType = domain.EventTypeTaskStatusChanged
		message = fmt.Sprintf(`Task "%s" status changed to %s`, task.Title, task.Status)
	}
	if assigneeChanged {
		metadata["oldAssignedToId"] = current.AssignedToID
		metadata["assignedToId"] = *in.AssignedToID
		eventType = domain.EventTypeTaskAssigned
		message = fmt.Sprintf(`Task "%s" was assigned to %s`, task.Title, task.AssigneeName())
	}

	s.record(ctx, eventType, task.ID, actorID, message, metadata)
	s.invalidate(ctx)
	s.publish(ctx, eventType, task)

	slog.Info("task updated", "task_id", task.ID, "user_id", actorID, "event_type", eventType)

	return task, nil
}

// Remove deletes a task and tells every client, plus the former assignee.
func (s *TaskService) Remove(ctx context.Context, taskID, actorID string, role domain.Role) error {
	task, err := s.FindOne(ctx, taskID, actorID, role)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}

	ctx = context.WithoutCancel(ctx)

	s.record(ctx, domain.EventTypeTaskDeleted, taskID, actorID,
		fmt.Sprintf(`Task "%s" was deleted`, task.Title),
		map[string]any{"taskId": taskID},
	)
	s.invalidate(ctx)

	ts := s.now()
	deleted := notify.DeletedTask{ID: taskID, Title: task.Title}
	if err := s.notifier.BroadcastAll(ctx, domain.EventTypeTaskDeleted, deleted, ts); err != nil {
		slog.Warn("broadcast failed", "task_id", taskID, "error", err)
	}
	if task.AssignedToID != nil {
		err := s.notifier.NotifyUser(ctx, *task.AssignedToID, domain.EventTypeTaskDeleted, deleted, task.Title, task.Status, ts)
		if err != nil {
			slog.Warn("assignee notification failed", "task_id", taskID, "user_id", *task.AssignedToID, "error", err)
		}
	}

	slog.Info("task deleted", "task_id", taskID, "user_id", actorID)

	return nil
}

// History returns the audit trail of a task, newest first.
// Admins may read the trail of a task that no longer exists.
func (s *TaskService) History(ctx context.Context, taskID, actorID string, role domain.Role) ([]*domain.AuditEvent, error) {
	if _, err := s.FindOne(ctx, taskID, actorID, role); err != nil {
		if role != domain.RoleAdmin || !isNotFound(err) {
			return nil, err
		}
	}

	events, err := s.audit.ListByEntity(ctx, domain.EntityTypeTask, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	return events, nil
}

// reload re-reads the canonical record without a view check. The write already
// succeeded, so a failed read falls back to the written record.
func (s *TaskService) reload(ctx context.Context, written *domain.Task) *domain.Task {
	task, err := s.store.GetByID(ctx, written.ID)
	if err != nil {
		slog.Warn("canonical re-read failed", "task_id", written.ID, "error", err)
		return written
	}
	return task
}

func (s *TaskService) record(ctx context.Context, eventType domain.EventType, taskID, actorID, message string, metadata map[string]any) {
	actor := actorID
	event := &domain.AuditEvent{
		EventType:  eventType,
		EntityType: domain.EntityTypeTask,
		EntityID:   taskID,
		UserID:     &actor,
		Message:    message,
		Metadata:   metadata,
	}
	if err := s.audit.Append(ctx, event); err != nil {
		slog.Warn("audit append failed", "task_id", taskID, "event_type", eventType, "error", err)
	}
}

func (s *TaskService) invalidate(ctx context.Context) {
	n, err := cache.InvalidatePrefix(ctx, s.cache, cache.TasksPrefix, cache.TasksAllKey)
	if err != nil {
		slog.Warn("task cache invalidation failed", "error", err)
		return
	}
	slog.Debug("task cache invalidated", "keys", n)
}

// publish sends the broadcast, the assignee notification and the creator confirmation.
func (s *TaskService) publish(ctx context.Context, eventType domain.EventType, task *domain.Task) {
	ts := s.now()

	if err := s.notifier.BroadcastAll(ctx, eventType, task, ts); err != nil {
		slog.Warn("broadcast failed", "task_id", task.ID, "error", err)
	}

	if task.AssignedToID != nil {
		err := s.notifier.NotifyUser(ctx, *task.AssignedToID, eventType, task, task.Title, task.Status, ts)
		if err != nil {
			slog.Warn("assignee notification failed", "task_id", task.ID, "user_id", *task.AssignedToID, "error", err)
		}
	}

	if task.CreatedByID != "" {
		if err := s.notifier.NotifyCreator(ctx, task.CreatedByID, eventType, task, ts); err != nil {
			slog.Warn("creator notification failed", "task_id", task.ID, "user_id", task.CreatedByID, "error", err)
		}
	}
}
