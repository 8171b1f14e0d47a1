package dto_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/mtlprog/taskhub/internal/handler/dto"
	"github.com/stretchr/testify/assert"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"task not found", domain.ErrTaskNotFound, http.StatusNotFound, "TASK_NOT_FOUND"},
		{"wrapped user not found", fmt.Errorf("lookup: %w", domain.ErrUserNotFound), http.StatusNotFound, "USER_NOT_FOUND"},
		{"generic not found", domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"view denied", domain.ErrViewDenied, http.StatusForbidden, "INSUFFICIENT_ACCESS"},
		{"admin only", domain.ErrAdminOnly, http.StatusForbidden, "INSUFFICIENT_ACCESS"},
		{"invalid assignee", domain.ErrInvalidAssignee, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"empty title", domain.ErrEmptyTitle, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bare invalid argument", fmt.Errorf("%w: email is required", domain.ErrInvalidArgument), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"email taken", domain.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
		{"user has tasks", domain.ErrUserHasTasks, http.StatusConflict, "USER_HAS_TASKS"},
		{"promotion with assigned tasks", fmt.Errorf("%w: 2 task(s) still assigned", domain.ErrUserHasAssignedTasks), http.StatusConflict, "USER_HAS_ASSIGNED_TASKS"},
		{"invalid token", domain.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _ := dto.MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestMapDomainError_HidesInternalMessage(t *testing.T) {
	_, _, message := dto.MapDomainError(errors.New("pq: password authentication failed"))
	assert.Equal(t, "Internal server error", message)
}

func TestUpdateTaskRequest_ToInput(t *testing.T) {
	status := "completed"
	in := dto.UpdateTaskRequest{Status: &status}.ToInput()

	assert.Nil(t, in.Title)
	assert.Nil(t, in.AssignedToID)
	if assert.NotNil(t, in.Status) {
		assert.Equal(t, domain.TaskStatusCompleted, *in.Status)
	}
}

func TestTaskRequest_ValidateAssigneeID(t *testing.T) {
	ghost := "ghost"
	valid := "7f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"create with uuid", dto.CreateTaskRequest{AssignedToID: valid}.Validate(), false},
		{"create without assignee", dto.CreateTaskRequest{}.Validate(), false},
		{"create with malformed id", dto.CreateTaskRequest{AssignedToID: ghost}.Validate(), true},
		{"update without assignee", dto.UpdateTaskRequest{}.Validate(), false},
		{"update with uuid", dto.UpdateTaskRequest{AssignedToID: &valid}.Validate(), false},
		{"update with malformed id", dto.UpdateTaskRequest{AssignedToID: &ghost}.Validate(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.wantErr {
				assert.NoError(t, tt.err)
				return
			}
			assert.ErrorIs(t, tt.err, domain.ErrInvalidArgument)
			status, code, _ := dto.MapDomainError(tt.err)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "VALIDATION_ERROR", code)
		})
	}
}

func TestUpdateUserRequest_ToInputDropsRoleForProfile(t *testing.T) {
	role := "admin"
	req := dto.UpdateUserRequest{Role: &role}

	assert.Nil(t, req.ToInput(false).Role)
	if assert.NotNil(t, req.ToInput(true).Role) {
		assert.Equal(t, domain.RoleAdmin, *req.ToInput(true).Role)
	}
}

func TestToTaskHistory(t *testing.T) {
	actor := "user-1"
	resp := dto.ToTaskHistory("task-1", []*domain.AuditEvent{
		{ID: "e1", EventType: domain.EventTypeTaskCreated, UserID: &actor, Message: "Task created"},
	})

	assert.Equal(t, "task-1", resp.TaskID)
	assert.Len(t, resp.Events, 1)
	assert.Equal(t, domain.EventTypeTaskCreated, resp.Events[0].EventType)

	empty := dto.ToTaskHistory("task-2", nil)
	assert.NotNil(t, empty.Events)
}
