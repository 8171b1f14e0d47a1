package dto

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/mtlprog/taskhub/internal/service"
)

// CreateTaskRequest represents the request body for POST /tasks.
type CreateTaskRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Status       string `json:"status,omitempty"`
	AssignedToID string `json:"assignedToId"`
}

// Validate rejects an assignee id that is not a UUID. An empty id is left to
// the service, which reports the missing assignee.
func (r CreateTaskRequest) Validate() error {
	return validateAssigneeID(r.AssignedToID)
}

// ToInput converts the request into service input.
func (r CreateTaskRequest) ToInput() service.CreateTaskInput {
	return service.CreateTaskInput{
		Title:        r.Title,
		Description:  r.Description,
		Status:       domain.TaskStatus(r.Status),
		AssignedToID: r.AssignedToID,
	}
}

// UpdateTaskRequest represents the request body for PATCH /tasks/{id}.
// Omitted fields are left unchanged.
type UpdateTaskRequest struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	Status       *string `json:"status,omitempty"`
	AssignedToID *string `json:"assignedToId,omitempty"`
}

// Validate rejects an assignee id that is not a UUID.
func (r UpdateTaskRequest) Validate() error {
	if r.AssignedToID == nil {
		return nil
	}
	return validateAssigneeID(*r.AssignedToID)
}

// ToInput converts the request into service input.
func (r UpdateTaskRequest) ToInput() service.UpdateTaskInput {
	in := service.UpdateTaskInput{
		Title:        r.Title,
		Description:  r.Description,
		AssignedToID: r.AssignedToID,
	}
	if r.Status != nil {
		status := domain.TaskStatus(*r.Status)
		in.Status = &status
	}
	return in
}

func validateAssigneeID(id string) error {
	if id == "" {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: assignedToId must be a valid UUID", domain.ErrInvalidArgument)
	}
	return nil
}

// CreateUserRequest represents the request body for POST /users.
type CreateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

// ToInput converts the request into service input.
func (r CreateUserRequest) ToInput() service.CreateUserInput {
	return service.CreateUserInput{
		Email: r.Email,
		Name:  r.Name,
		Role:  domain.Role(r.Role),
	}
}

// UpdateUserRequest represents the request body for PUT /users/{id} and /users/profile.
type UpdateUserRequest struct {
	Email *string `json:"email,omitempty"`
	Name  *string `json:"name,omitempty"`
	Role  *string `json:"role,omitempty"`
}

// ToInput converts the request into service input. allowRole is false for
// self-service profile edits, which may not change the role.
func (r UpdateUserRequest) ToInput(allowRole bool) service.UpdateUserInput {
	in := service.UpdateUserInput{Email: r.Email, Name: r.Name}
	if allowRole && r.Role != nil {
		role := domain.Role(*r.Role)
		in.Role = &role
	}
	return in
}
