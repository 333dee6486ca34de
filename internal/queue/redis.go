package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/clout9/backend/pkg/config"
	"github.com/clout9/backend/pkg/logging"
	"github.com/clout9/backend/pkg/telemetry"
)

// ErrEmpty is returned by Dequeue when no task arrived before the
// blocking timeout elapsed.
var ErrEmpty = errors.New("queue is empty")

// Queue is the task broker interface. Enqueue is fire-and-forget from
// the producer's point of view: callers log failures and move on.
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	Close() error
	Health(ctx context.Context) error
}

// RedisQueue is a Redis list backed Queue
type RedisQueue struct {
	client *redis.Client
	key    string
}

// New creates a new Redis queue client
func New(cfg *config.RedisConfig) (*RedisQueue, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLogger().Info("Redis connection established")

	return &RedisQueue{
		client: client,
		key:    cfg.QueueKey,
	}, nil
}

// Enqueue pushes a task onto the queue
func (q *RedisQueue) Enqueue(ctx context.Context, task *Task) error {
	ctx, span := telemetry.StartSpan(ctx, "queue.enqueue")
	defer span.End()

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Dequeue blocks until a task arrives or timeout elapses
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	// BRPOP returns [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length %d", len(res))
	}
	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// Close closes the Redis connection
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Health checks Redis health
func (q *RedisQueue) Health(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
