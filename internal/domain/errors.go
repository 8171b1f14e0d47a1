package domain

import "errors"

// Error taxonomy. Specific errors wrap one of these roots so callers can match
// either the precise cause or its class with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("forbidden")
	ErrUnavailable     = errors.New("unavailable")
)

// Domain-specific errors for business logic validation.
var (
	// Task errors
	ErrTaskNotFound  = wrap(ErrNotFound, "task not found")
	ErrEmptyTitle    = wrap(ErrInvalidArgument, "title is required")
	ErrInvalidStatus = wrap(ErrInvalidArgument, "invalid task status")

	// Assignment errors
	ErrAssigneeRequired = wrap(ErrInvalidArgument, "task must be assigned to a user")
	ErrUserNotFound     = wrap(ErrNotFound, "user not found")
	ErrInvalidAssignee  = wrap(ErrInvalidArgument, `tasks can only be assigned to users with role "user"`)

	// User errors
	ErrEmailTaken           = wrap(ErrInvalidArgument, "email already in use")
	ErrUserHasTasks         = wrap(ErrInvalidArgument, "user still owns tasks")
	ErrUserHasAssignedTasks = wrap(ErrInvalidArgument, "user with assigned tasks cannot become admin")

	// Permission errors
	ErrViewDenied   = wrap(ErrForbidden, "you can only view tasks assigned to you")
	ErrAdminOnly    = wrap(ErrForbidden, "admin role required")
	ErrInvalidToken = errors.New("invalid authentication token")
)

// classError keeps its own message while matching its taxonomy root.
type classError struct {
	class error
	msg   string
}

func (e *classError) Error() string { return e.msg }
func (e *classError) Unwrap() error { return e.class }

func wrap(class error, msg string) error {
	return &classError{class: class, msg: msg}
}
