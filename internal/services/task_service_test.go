package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bbr/taskbot/internal/cache"
	"github.com/bbr/taskbot/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type serviceFixture struct {
	svc     *TaskService
	store   *memoryStore
	redis   *miniredis.Miniredis
	counter *cacheCounter
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	store := newMemoryStore()
	counter := &cacheCounter{}
	return &serviceFixture{
		svc:     NewTaskService(store, cache.NewTaskCache(client, 0), counter, zap.NewNop()),
		store:   store,
		redis:   srv,
		counter: counter,
	}
}

func TestTaskService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("miss loads from the store and fills the cache", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Add(ctx, 42, "buy milk")
		require.NoError(t, err)

		tasks, err := f.svc.List(ctx, 42)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, 1, f.store.lists)
		assert.True(t, f.redis.Exists("tasks:42"))
		assert.Equal(t, 1, f.counter.count(metrics.CacheMiss))
	})

	t.Run("hit does not touch the store", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Add(ctx, 42, "buy milk")
		require.NoError(t, err)

		_, err = f.svc.List(ctx, 42)
		require.NoError(t, err)
		tasks, err := f.svc.List(ctx, 42)
		require.NoError(t, err)

		assert.Len(t, tasks, 1)
		assert.Equal(t, 1, f.store.lists)
		assert.Equal(t, 1, f.counter.count(metrics.CacheHit))
	})

	t.Run("corrupt cache entry falls back to the store", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Add(ctx, 42, "buy milk")
		require.NoError(t, err)
		require.NoError(t, f.redis.Set("tasks:42", "garbage"))

		tasks, err := f.svc.List(ctx, 42)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
		assert.Equal(t, 1, f.counter.count(metrics.CacheError))

		raw, err := f.redis.Get("tasks:42")
		require.NoError(t, err)
		assert.NotEqual(t, "garbage", raw)
	})

	t.Run("unavailable cache falls back to the store", func(t *testing.T) {
		store := newMemoryStore()
		svc := NewTaskService(store, brokenCache{}, nil, zap.NewNop())
		_, err := store.Create(ctx, 42, "x")
		require.NoError(t, err)

		tasks, err := svc.List(ctx, 42)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})

	t.Run("a change during a reload is not overwritten by the stale list", func(t *testing.T) {
		f := newServiceFixture(t)
		added := make(chan error, 1)
		f.store.afterList = func() {
			f.store.afterList = nil
			go func() {
				_, err := f.svc.Add(ctx, 42, "buy milk")
				added <- err
			}()
			// Give the concurrent add time to commit if it is not held back.
			time.Sleep(50 * time.Millisecond)
		}

		tasks, err := f.svc.List(ctx, 42)
		require.NoError(t, err)
		assert.Empty(t, tasks)
		require.NoError(t, <-added)

		tasks, err = f.svc.List(ctx, 42)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.failErr = errors.New("db down")

		_, err := f.svc.List(ctx, 42)
		assert.Error(t, err)
	})
}

func TestTaskService_MutationsInvalidateCache(t *testing.T) {
	ctx := context.Background()

	warm := func(t *testing.T, f *serviceFixture) {
		t.Helper()
		_, err := f.svc.List(ctx, 42)
		require.NoError(t, err)
		require.True(t, f.redis.Exists("tasks:42"))
	}

	t.Run("add", func(t *testing.T) {
		f := newServiceFixture(t)
		warm(t, f)
		_, err := f.svc.Add(ctx, 42, "x")
		require.NoError(t, err)
		assert.False(t, f.redis.Exists("tasks:42"))
	})

	t.Run("complete", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Add(ctx, 42, "x")
		require.NoError(t, err)
		warm(t, f)
		require.NoError(t, f.svc.Complete(ctx, 42, 1))
		assert.False(t, f.redis.Exists("tasks:42"))

		tasks, err := f.svc.List(ctx, 42)
		require.NoError(t, err)
		assert.True(t, tasks[0].Done)
	})

	t.Run("delete", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Add(ctx, 42, "x")
		require.NoError(t, err)
		warm(t, f)
		require.NoError(t, f.svc.Delete(ctx, 42, 1))
		assert.False(t, f.redis.Exists("tasks:42"))
	})

	t.Run("clear all with nothing to clear keeps the cache", func(t *testing.T) {
		f := newServiceFixture(t)
		warm(t, f)
		n, err := f.svc.ClearAll(ctx, 42)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.True(t, f.redis.Exists("tasks:42"))
	})

	t.Run("a cache outage does not fail the mutation", func(t *testing.T) {
		svc := NewTaskService(newMemoryStore(), brokenCache{}, nil, zap.NewNop())
		_, err := svc.Add(ctx, 42, "x")
		assert.NoError(t, err)
	})
}

func TestTaskService_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("numbers tasks sequentially", func(t *testing.T) {
		f := newServiceFixture(t)
		for i, text := range []string{"a", "b", "c"} {
			task, err := f.svc.Add(ctx, 42, text)
			require.NoError(t, err)
			assert.Equal(t, i+1, task.Position)
		}
	})

	t.Run("trims and rejects blank text", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Add(ctx, 42, "   ")
		assert.ErrorIs(t, err, ErrEmptyTask)

		task, err := f.svc.Add(ctx, 42, "  buy milk \n")
		require.NoError(t, err)
		assert.Equal(t, "buy milk", task.Text)
	})

	t.Run("users have independent lists", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Add(ctx, 1, "a")
		require.NoError(t, err)
		task, err := f.svc.Add(ctx, 2, "b")
		require.NoError(t, err)
		assert.Equal(t, 1, task.Position)
	})
}

func TestTaskService_DeleteRenumbers(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	for _, text := range []string{"a", "b", "c", "d"} {
		_, err := f.svc.Add(ctx, 42, text)
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.Delete(ctx, 42, 2))

	tasks, err := f.svc.List(ctx, 42)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for i, task := range tasks {
		assert.Equal(t, i+1, task.Position)
	}
	assert.Equal(t, []string{"a", "c", "d"}, []string{tasks[0].Text, tasks[1].Text, tasks[2].Text})

	next, err := f.svc.Add(ctx, 42, "e")
	require.NoError(t, err)
	assert.Equal(t, 4, next.Position)
}

func TestTaskService_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	assert.ErrorIs(t, f.svc.Complete(ctx, 42, 1), ErrTaskNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, 42, 1), ErrTaskNotFound)
	assert.ErrorIs(t, f.svc.Complete(ctx, 42, 0), ErrTaskNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, 42, -3), ErrTaskNotFound)
}

func TestTaskService_Bulk(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	for _, text := range []string{"a", "b", "c"} {
		_, err := f.svc.Add(ctx, 42, text)
		require.NoError(t, err)
	}
	require.NoError(t, f.svc.Complete(ctx, 42, 1))

	n, err := f.svc.CompleteAll(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = f.svc.CompleteAll(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.svc.ClearAll(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	tasks, err := f.svc.List(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
