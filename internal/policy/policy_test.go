package policy_test

import (
	"testing"

	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/mtlprog/taskhub/internal/policy"
	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestCanMutate(t *testing.T) {
	assert.True(t, policy.CanMutate(domain.RoleAdmin))
	assert.False(t, policy.CanMutate(domain.RoleUser))
	assert.False(t, policy.CanMutate(domain.Role("")))
}

func TestCanView(t *testing.T) {
	task := &domain.Task{ID: "t1", CreatedByID: "creator", AssignedToID: ptr("assignee")}
	unassigned := &domain.Task{ID: "t2", CreatedByID: "creator"}

	tests := []struct {
		name    string
		role    domain.Role
		actorID string
		task    *domain.Task
		want    bool
	}{
		{"admin sees any task", domain.RoleAdmin, "someone", task, true},
		{"admin sees unassigned task", domain.RoleAdmin, "someone", unassigned, true},
		{"assignee sees own task", domain.RoleUser, "assignee", task, true},
		{"stranger is denied", domain.RoleUser, "stranger", task, false},
		{"creator who is not assignee is denied", domain.RoleUser, "creator", task, false},
		{"nobody but admin sees unassigned task", domain.RoleUser, "creator", unassigned, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.CanView(tt.role, tt.actorID, tt.task))
		})
	}
}

func TestAuthorizeView_ReturnsForbidden(t *testing.T) {
	task := &domain.Task{ID: "t1", AssignedToID: ptr("assignee")}

	err := policy.AuthorizeView(domain.RoleUser, "stranger", task)
	assert.ErrorIs(t, err, domain.ErrViewDenied)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.NoError(t, policy.AuthorizeView(domain.RoleUser, "assignee", task))
}

func TestAuthorizeMutate(t *testing.T) {
	assert.NoError(t, policy.AuthorizeMutate(domain.RoleAdmin))
	assert.ErrorIs(t, policy.AuthorizeMutate(domain.RoleUser), domain.ErrForbidden)
}
