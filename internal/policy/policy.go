// Package policy holds the pure authorization decisions for task access.
// Nothing here performs I/O; callers fetch the task and pass it in.
package policy

import (
	"fmt"

	"github.com/mtlprog/taskhub/internal/domain"
)

// CanMutate reports whether the role may create, update or delete tasks.
func CanMutate(role domain.Role) bool {
	return role == domain.RoleAdmin
}

// CanView reports whether the actor may read the task.
// Non-admins need to be the assignee. Being the creator is not enough.
func CanView(role domain.Role, actorID string, task *domain.Task) bool {
	if role == domain.RoleAdmin {
		return true
	}
	return task.IsAssignedTo(actorID)
}

// AuthorizeMutate returns ErrAdminOnly when the role may not mutate tasks.
func AuthorizeMutate(role domain.Role) error {
	if !CanMutate(role) {
		return fmt.Errorf("%w: role %q", domain.ErrAdminOnly, role)
	}
	return nil
}

// AuthorizeView returns ErrViewDenied when the actor may not read the task.
func AuthorizeView(role domain.Role, actorID string, task *domain.Task) error {
	if !CanView(role, actorID, task) {
		return fmt.Errorf("%w: user %s, task %s", domain.ErrViewDenied, actorID, task.ID)
	}
	return nil
}
