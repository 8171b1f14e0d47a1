package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mtlprog/taskhub/internal/domain"
)

// Validator checks task fields and assignment rules before anything is written.
type Validator struct {
	users UserFinder
}

// NewValidator creates a new Validator.
func NewValidator(users UserFinder) *Validator {
	return &Validator{users: users}
}

// Title trims the title and rejects it when nothing is left.
func (v *Validator) Title(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", domain.ErrEmptyTitle
	}
	return trimmed, nil
}

// Status rejects values outside the known task statuses.
func (v *Validator) Status(status domain.TaskStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	return nil
}

// Assignee verifies the user exists and may receive tasks.
// Admins are never valid assignees.
func (v *Validator) Assignee(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrAssigneeRequired
	}

	user, err := v.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Role != domain.RoleUser {
		return nil, fmt.Errorf("%w: user %s has role %q", domain.ErrInvalidAssignee, user.ID, user.Role)
	}

	return user, nil
}
