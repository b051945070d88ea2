package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bbr/taskbot/internal/metrics"
	"github.com/bbr/taskbot/internal/models"
	"github.com/bbr/taskbot/internal/repositories"
	"go.uber.org/zap"
)

var (
	ErrEmptyTask    = errors.New("task text is empty")
	ErrTaskNotFound = repositories.ErrTaskNotFound
)

type TaskStore interface {
	ListByUser(ctx context.Context, userID int64) ([]models.Task, error)
	Create(ctx context.Context, userID int64, text string) (models.Task, error)
	MarkDone(ctx context.Context, userID int64, position int) error
	Delete(ctx context.Context, userID int64, position int) error
	DeleteAll(ctx context.Context, userID int64) (int64, error)
	MarkAllDone(ctx context.Context, userID int64) (int64, error)
}

type TaskCache interface {
	Get(ctx context.Context, userID int64) ([]models.Task, bool, error)
	Set(ctx context.Context, userID int64, tasks []models.Task) error
	Invalidate(ctx context.Context, userID int64) error
}

type CacheRecorder interface {
	CacheResult(result string)
}

// TaskService reads task lists through the cache and invalidates it on every change.
// Cache reloads and mutations of one user are serialised, so a reload never writes
// back a list that a concurrent change has already invalidated.
type TaskService struct {
	Store   TaskStore
	Cache   TaskCache
	Metrics CacheRecorder
	Logger  *zap.Logger

	locks [lockStripes]sync.Mutex
}

func NewTaskService(store TaskStore, cache TaskCache, m CacheRecorder, logger *zap.Logger) *TaskService {
	return &TaskService{Store: store, Cache: cache, Metrics: m, Logger: logger}
}

// List returns the user's tasks ordered by number. Cache failures fall back to PostgreSQL.
func (s *TaskService) List(ctx context.Context, userID int64) ([]models.Task, error) {
	tasks, ok, err := s.Cache.Get(ctx, userID)
	switch {
	case err != nil:
		s.recordCache(metrics.CacheError)
		s.Logger.Warn("task cache read failed", zap.Int64("user_id", userID), zap.Error(err))
	case ok:
		s.recordCache(metrics.CacheHit)
		s.Logger.Debug("tasks loaded from cache", zap.Int64("user_id", userID))
		return tasks, nil
	default:
		s.recordCache(metrics.CacheMiss)
	}

	unlock := s.lock(userID)
	defer unlock()

	tasks, err = s.Store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	s.Logger.Debug("tasks loaded from database", zap.Int64("user_id", userID), zap.Int("count", len(tasks)))

	if err := s.Cache.Set(ctx, userID, tasks); err != nil {
		s.Logger.Warn("task cache write failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return tasks, nil
}

func (s *TaskService) Add(ctx context.Context, userID int64, text string) (models.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Task{}, ErrEmptyTask
	}

	unlock := s.lock(userID)
	defer unlock()

	task, err := s.Store.Create(ctx, userID, text)
	if err != nil {
		return models.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.invalidate(ctx, userID)
	s.Logger.Info("task added", zap.Int64("user_id", userID), zap.Int("task", task.Position))
	return task, nil
}

func (s *TaskService) Complete(ctx context.Context, userID int64, position int) error {
	if position <= 0 {
		return ErrTaskNotFound
	}

	unlock := s.lock(userID)
	defer unlock()

	if err := s.Store.MarkDone(ctx, userID, position); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			s.Logger.Warn("task not found", zap.Int64("user_id", userID), zap.Int("task", position))
		}
		return err
	}
	s.invalidate(ctx, userID)
	s.Logger.Info("task marked done", zap.Int64("user_id", userID), zap.Int("task", position))
	return nil
}

func (s *TaskService) Delete(ctx context.Context, userID int64, position int) error {
	if position <= 0 {
		return ErrTaskNotFound
	}

	unlock := s.lock(userID)
	defer unlock()

	if err := s.Store.Delete(ctx, userID, position); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			s.Logger.Warn("task not found on delete", zap.Int64("user_id", userID), zap.Int("task", position))
		}
		return err
	}
	s.invalidate(ctx, userID)
	s.Logger.Info("task deleted", zap.Int64("user_id", userID), zap.Int("task", position))
	return nil
}

// ClearAll deletes every task of the user and returns how many were deleted.
func (s *TaskService) ClearAll(ctx context.Context, userID int64) (int64, error) {
	unlock := s.lock(userID)
	defer unlock()

	n, err := s.Store.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx, userID)
		s.Logger.Info("all tasks deleted", zap.Int64("user_id", userID), zap.Int64("count", n))
	}
	return n, nil
}

// CompleteAll marks every pending task as done and returns how many changed.
func (s *TaskService) CompleteAll(ctx context.Context, userID int64) (int64, error) {
	unlock := s.lock(userID)
	defer unlock()

	n, err := s.Store.MarkAllDone(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx, userID)
		s.Logger.Info("all tasks marked done", zap.Int64("user_id", userID), zap.Int64("count", n))
	}
	return n, nil
}

func (s *TaskService) lock(userID int64) func() {
	l := &s.locks[uint64(userID)%lockStripes]
	l.Lock()
	return l.Unlock
}

func (s *TaskService) invalidate(ctx context.Context, userID int64) {
	if err := s.Cache.Invalidate(ctx, userID); err != nil {
		s.Logger.Error("task cache invalidation failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	s.Logger.Debug("task cache invalidated", zap.Int64("user_id", userID))
}

func (s *TaskService) recordCache(result string) {
	if s.Metrics != nil {
		s.Metrics.CacheResult(result)
	}
}
