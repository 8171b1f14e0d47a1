package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", []byte("1"), TaskListTTL))
	require.NoError(t, m.Set(ctx, "forever", []byte("2"), 0))

	now = now.Add(TaskListTTL - time.Second)
	_, err := m.Get(ctx, "short")
	assert.NoError(t, err)

	now = now.Add(time.Second)
	_, err = m.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)

	_, err = m.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemory_ReturnedValueIsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", []byte("abc"), 0))

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'z'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemory_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, key := range []string{TasksAllKey, TasksUserKey("u1"), TasksUserKey("u2"), UserKey("u1"), UsersAllKey} {
		require.NoError(t, m.Set(ctx, key, []byte("x"), 0))
	}

	n, err := m.DeletePrefix(ctx, TasksPrefix)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = m.Get(ctx, TasksUserKey("u1"))
	assert.ErrorIs(t, err, ErrMiss)
	_, err = m.Get(ctx, UserKey("u1"))
	assert.NoError(t, err, "user entries live outside the tasks namespace")
	_, err = m.Get(ctx, UsersAllKey)
	assert.NoError(t, err)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type item struct {
		Name string `json:"name"`
	}
	require.NoError(t, SetJSON(ctx, m, "item", []item{{Name: "a"}, {Name: "b"}}, 0))

	var got []item
	require.NoError(t, GetJSON(ctx, m, "item", &got))
	assert.Equal(t, []item{{Name: "a"}, {Name: "b"}}, got)

	require.NoError(t, m.Set(ctx, "garbage", []byte("{not json"), 0))
	assert.ErrorIs(t, GetJSON(ctx, m, "garbage", &got), ErrMiss)
}
