package domain_test

import (
	"fmt"
	"testing"

	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	cases := []struct {
		err   error
		class error
	}{
		{domain.ErrTaskNotFound, domain.ErrNotFound},
		{domain.ErrUserNotFound, domain.ErrNotFound},
		{domain.ErrEmptyTitle, domain.ErrInvalidArgument},
		{domain.ErrInvalidStatus, domain.ErrInvalidArgument},
		{domain.ErrAssigneeRequired, domain.ErrInvalidArgument},
		{domain.ErrInvalidAssignee, domain.ErrInvalidArgument},
		{domain.ErrViewDenied, domain.ErrForbidden},
		{domain.ErrAdminOnly, domain.ErrForbidden},
		{domain.ErrEmailTaken, domain.ErrInvalidArgument},
		{domain.ErrUserHasTasks, domain.ErrInvalidArgument},
		{domain.ErrUserHasAssignedTasks, domain.ErrInvalidArgument},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tc.err)
			assert.ErrorIs(t, wrapped, tc.err)
			assert.ErrorIs(t, wrapped, tc.class)
		})
	}

	assert.NotErrorIs(t, domain.ErrTaskNotFound, domain.ErrForbidden)
}

func TestTaskStatus_IsValid(t *testing.T) {
	assert.True(t, domain.TaskStatusPending.IsValid())
	assert.True(t, domain.TaskStatusInProgress.IsValid())
	assert.True(t, domain.TaskStatusCompleted.IsValid())
	assert.False(t, domain.TaskStatus("DONE").IsValid())
	assert.False(t, domain.TaskStatus("").IsValid())
}

func TestTask_Assignee(t *testing.T) {
	assignee := "u1"
	task := &domain.Task{AssignedToID: &assignee, CreatedByID: "admin"}

	assert.True(t, task.IsAssignedTo("u1"))
	assert.False(t, task.IsAssignedTo("admin"))
	assert.True(t, task.IsCreatedBy("admin"))
	assert.Equal(t, "unassigned", task.AssigneeName())

	task.AssignedTo = &domain.User{ID: "u1", Name: "Alice"}
	assert.Equal(t, "Alice", task.AssigneeName())

	assert.False(t, (&domain.Task{}).IsAssignedTo(""))
}
