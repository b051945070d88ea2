package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bbr/taskbot/internal/models"
	"github.com/redis/go-redis/v9"
)

// TaskCache keeps a JSON copy of each user's task list under tasks:{user_id}.
type TaskCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewTaskCache(client *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{Client: client, TTL: ttl}
}

func Key(userID int64) string {
	return "tasks:" + strconv.FormatInt(userID, 10)
}

// Get returns the cached list. A miss is (nil, false, nil); an entry that does not
// decode is reported as an error.
func (c *TaskCache) Get(ctx context.Context, userID int64) ([]models.Task, bool, error) {
	raw, err := c.Client.Get(ctx, Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var tasks []models.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, false, fmt.Errorf("decode cached tasks: %w", err)
	}
	return tasks, true, nil
}

func (c *TaskCache) Set(ctx context.Context, userID int64, tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := c.Client.Set(ctx, Key(userID), raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *TaskCache) Invalidate(ctx context.Context, userID int64) error {
	if err := c.Client.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *TaskCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
