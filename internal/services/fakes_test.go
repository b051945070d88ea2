package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bbr/taskbot/internal/models"
)

// memoryStore is an in-memory TaskStore following the same numbering rules as PostgreSQL.
type memoryStore struct {
	mu      sync.Mutex
	tasks   map[int64][]models.Task
	nextID  int64
	clock   time.Time
	lists   int
	failErr error

	// afterList runs once ListByUser has read the tasks, before they are returned.
	afterList func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		tasks: make(map[int64][]models.Task),
		clock: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memoryStore) ListByUser(_ context.Context, userID int64) ([]models.Task, error) {
	m.mu.Lock()
	if m.failErr != nil {
		m.mu.Unlock()
		return nil, m.failErr
	}
	m.lists++
	out := append([]models.Task{}, m.tasks[userID]...)
	hook := m.afterList
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memoryStore) Create(_ context.Context, userID int64, text string) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return models.Task{}, m.failErr
	}
	next := 1
	for _, t := range m.tasks[userID] {
		if t.Position >= next {
			next = t.Position + 1
		}
	}
	m.nextID++
	m.clock = m.clock.Add(time.Minute)
	task := models.Task{ID: m.nextID, UserID: userID, Text: text, CreatedAt: m.clock, Position: next}
	m.tasks[userID] = append(m.tasks[userID], task)
	return task, nil
}

func (m *memoryStore) MarkDone(_ context.Context, userID int64, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks[userID] {
		if t.Position == position {
			m.tasks[userID][i].Done = true
			return nil
		}
	}
	return ErrTaskNotFound
}

func (m *memoryStore) Delete(_ context.Context, userID int64, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.tasks[userID]
	for i, t := range list {
		if t.Position == position {
			list = append(list[:i], list[i+1:]...)
			sort.Slice(list, func(a, b int) bool { return list[a].CreatedAt.Before(list[b].CreatedAt) })
			for j := range list {
				list[j].Position = j + 1
			}
			m.tasks[userID] = list
			return nil
		}
	}
	return ErrTaskNotFound
}

func (m *memoryStore) DeleteAll(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.tasks[userID]))
	delete(m.tasks, userID)
	return n, nil
}

func (m *memoryStore) MarkAllDone(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i, t := range m.tasks[userID] {
		if !t.Done {
			m.tasks[userID][i].Done = true
			n++
		}
	}
	return n, nil
}

// brokenCache fails every call.
type brokenCache struct{}

var errCacheDown = errors.New("redis: connection refused")

func (brokenCache) Get(context.Context, int64) ([]models.Task, bool, error) {
	return nil, false, errCacheDown
}
func (brokenCache) Set(context.Context, int64, []models.Task) error { return errCacheDown }
func (brokenCache) Invalidate(context.Context, int64) error         { return errCacheDown }

type cacheCounter struct {
	mu      sync.Mutex
	results map[string]int
}

func (c *cacheCounter) CacheResult(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = make(map[string]int)
	}
	c.results[result]++
}

func (c *cacheCounter) count(result string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[result]
}
