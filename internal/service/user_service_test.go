package service_test

import (
	"context"
	"testing"

	"github.com/mtlprog/taskhub/internal/cache"
	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/mtlprog/taskhub/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture() (*userTable, *cache.Memory, *service.UserService) {
	users := newUserTable(
		&domain.User{ID: "admin-1", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin, Token: "token-admin"},
		&domain.User{ID: "user-1", Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser, Token: "token-alice"},
	)
	c := cache.NewMemory()
	return users, c, service.NewUserService(users, c)
}

func TestUserService_FindByIDIsCached(t *testing.T) {
	ctx := context.Background()
	users, c, svc := newUserFixture()

	first, err := svc.FindByID(ctx, "user-1")
	require.NoError(t, err)
	second, err := svc.FindByID(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 1, users.lookups)
	assert.Equal(t, first.Name, second.Name)
	assert.Empty(t, second.Token, "tokens never reach the cache")

	_, err = c.Get(ctx, cache.UserKey("user-1"))
	assert.NoError(t, err)
}

func TestUserService_FindByIDNotFound(t *testing.T) {
	_, _, svc := newUserFixture()

	_, err := svc.FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_FindAllIsCached(t *testing.T) {
	ctx := context.Background()
	users, _, svc := newUserFixture()

	for range 3 {
		list, err := svc.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Admin", list[0].Name)
	}
	assert.Equal(t, 1, users.lookups)
}

func TestUserService_BrokenCacheFallsBack(t *testing.T) {
	ctx := context.Background()
	users := newUserTable(&domain.User{ID: "user-1", Name: "Alice", Role: domain.RoleUser})
	svc := service.NewUserService(users, brokenCache{})

	user, err := svc.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	list, err := svc.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUserService_GetByToken(t *testing.T) {
	_, _, svc := newUserFixture()

	user, err := svc.GetByToken(context.Background(), "token-alice")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	_, err = svc.GetByToken(context.Background(), "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestUserService_CreateInvalidatesList(t *testing.T) {
	ctx := context.Background()
	_, c, svc := newUserFixture()

	_, err := svc.FindAll(ctx)
	require.NoError(t, err)

	user, err := svc.Create(ctx, service.CreateUserInput{Email: " carol@example.com ", Name: "Carol"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.NotEmpty(t, user.Token)

	_, err = c.Get(ctx, cache.UsersAllKey)
	assert.ErrorIs(t, err, cache.ErrMiss)

	list, err := svc.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	alice, err := svc.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", alice.Name, "new users never replace existing ones")
}

func TestUserService_CreateValidation(t *testing.T) {
	_, _, svc := newUserFixture()

	tests := []struct {
		name  string
		input service.CreateUserInput
	}{
		{"missing email", service.CreateUserInput{Name: "x"}},
		{"missing name", service.CreateUserInput{Email: "x@example.com"}},
		{"bad role", service.CreateUserInput{Email: "x@example.com", Name: "x", Role: "root"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}

	_, err := svc.Create(context.Background(), service.CreateUserInput{Email: "alice@example.com", Name: "Dup"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestUserService_UpdateRefreshesCache(t *testing.T) {
	ctx := context.Background()
	_, c, svc := newUserFixture()

	_, err := svc.FindByID(ctx, "user-1")
	require.NoError(t, err)

	name := "Alice Liddell"
	updated, err := svc.Update(ctx, "user-1", service.UpdateUserInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	_, err = c.Get(ctx, cache.UserKey("user-1"))
	assert.ErrorIs(t, err, cache.ErrMiss)

	fresh, err := svc.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, name, fresh.Name)

	bad := domain.Role("owner")
	_, err = svc.Update(ctx, "user-1", service.UpdateUserInput{Role: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUserService_PromotionWithAssignedTasksRejected(t *testing.T) {
	ctx := context.Background()
	users, _, svc := newUserFixture()
	users.assigned["user-1"] = 2

	admin := domain.RoleAdmin
	_, err := svc.Update(ctx, "user-1", service.UpdateUserInput{Role: &admin})
	assert.ErrorIs(t, err, domain.ErrUserHasAssignedTasks)

	user, err := svc.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)

	users.assigned["user-1"] = 0
	promoted, err := svc.Update(ctx, "user-1", service.UpdateUserInput{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)
}

func TestUserService_RemoveClearsTaskLists(t *testing.T) {
	ctx := context.Background()
	_, c, svc := newUserFixture()

	require.NoError(t, c.Set(ctx, cache.TasksAllKey, []byte(`[]`), 0))
	require.NoError(t, c.Set(ctx, cache.TasksUserKey("user-1"), []byte(`[]`), 0))

	require.NoError(t, svc.Remove(ctx, "user-1"))

	_, err := c.Get(ctx, cache.TasksAllKey)
	assert.ErrorIs(t, err, cache.ErrMiss)
	_, err = c.Get(ctx, cache.TasksUserKey("user-1"))
	assert.ErrorIs(t, err, cache.ErrMiss)

	_, err = svc.FindByID(ctx, "user-1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.ErrorIs(t, svc.Remove(ctx, "user-1"), domain.ErrUserNotFound)
}
