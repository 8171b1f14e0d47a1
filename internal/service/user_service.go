package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mtlprog/taskhub/internal/cache"
	"github.com/mtlprog/taskhub/internal/domain"
)

// UserStore persists users.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*domain.User, error)
	GetByToken(ctx context.Context, token string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, userID string) error
	CountAssignedTasks(ctx context.Context, userID string) (int, error)
}

// CreateUserInput holds the fields of a new user.
type CreateUserInput struct {
	Email string
	Name  string
	Role  domain.Role
}

// UpdateUserInput holds a partial user update.
type UpdateUserInput struct {
	Email *string
	Name  *string
	Role  *domain.Role
}

// UserService reads users through a cache and keeps the cache fresh on writes.
type UserService struct {
	store UserStore
	cache cache.Cache
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore, c cache.Cache) *UserService {
	return &UserService{store: store, cache: c}
}

// FindByID returns a user, cached for cache.UserTTL.
func (s *UserService) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	key := cache.UserKey(userID)

	var cached domain.User
	err := cache.GetJSON(ctx, s.cache, key, &cached)
	switch {
	case err == nil:
		return &cached, nil
	case !isMiss(err):
		slog.Warn("cache read failed, falling back to store", "key", key, "error", err)
	}

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, s.cache, key, user, cache.UserTTL); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
	return user, nil
}

// FindAll returns every user, cached for cache.UserTTL.
func (s *UserService) FindAll(ctx context.Context) ([]*domain.User, error) {
	var cached []*domain.User
	err := cache.GetJSON(ctx, s.cache, cache.UsersAllKey, &cached)
	switch {
	case err == nil:
		return cached, nil
	case !isMiss(err):
		slog.Warn("cache read failed, falling back to store", "key", cache.UsersAllKey, "error", err)
	}

	users, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	if err := cache.SetJSON(ctx, s.cache, cache.UsersAllKey, users, cache.UserTTL); err != nil {
		slog.Warn("cache write failed", "key", cache.UsersAllKey, "error", err)
	}
	return users, nil
}

// GetByToken resolves a bearer token. Tokens are never cached.
func (s *UserService) GetByToken(ctx context.Context, token string) (*domain.User, error) {
	return s.store.GetByToken(ctx, token)
}

// Create provisions a user with a freshly generated token.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidArgument)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role %q", domain.ErrInvalidArgument, role)
	}

	user, err := s.store.Create(ctx, &domain.User{
		Email: email,
		Name:  name,
		Role:  role,
		Token: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	s.forget(ctx, cache.UsersAllKey)
	return user, nil
}

// Update applies a partial update to a user.
func (s *UserService) Update(ctx context.Context, userID string, in UpdateUserInput) (*domain.User, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidArgument)
		}
		user.Email = email
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
		}
		user.Name = name
	}
	if in.Role != nil {
		if !in.Role.IsValid() {
			return nil, fmt.Errorf("%w: invalid role %q", domain.ErrInvalidArgument, *in.Role)
		}
		if *in.Role != domain.RoleUser && user.Role == domain.RoleUser {
			n, err := s.store.CountAssignedTasks(ctx, userID)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				return nil, fmt.Errorf("%w: %d task(s) still assigned", domain.ErrUserHasAssignedTasks, n)
			}
		}
		user.Role = *in.Role
	}

	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	s.forget(ctx, cache.UserKey(userID), cache.UsersAllKey)
	return s.store.GetByID(ctx, userID)
}

// Remove deletes a user.
func (s *UserService) Remove(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return err
	}

	// Tasks assigned to the user lose their assignee, so cached lists are stale too.
	ctx = context.WithoutCancel(ctx)
	s.forget(ctx, cache.UserKey(userID), cache.UsersAllKey)
	if _, err := cache.InvalidatePrefix(ctx, s.cache, cache.TasksPrefix, cache.TasksAllKey); err != nil {
		slog.Warn("task cache invalidation failed", "user_id", userID, "error", err)
	}
	return nil
}

func (s *UserService) forget(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		slog.Warn("cache delete failed", "keys", keys, "error", err)
	}
}
