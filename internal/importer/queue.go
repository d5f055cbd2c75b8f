package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultQueueKey = "qbank:queue:questions"

// Job asks the worker to import one stored workbook on behalf of ActorID.
type Job struct {
	ID         string    `json:"id"`
	EventID    int64     `json:"event_id"`
	ActorID    int64     `json:"actor_id"`
	Path       string    `json:"path"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func NewJob(eventID, actorID int64, path string) Job {
	return Job{
		ID:         uuid.NewString(),
		EventID:    eventID,
		ActorID:    actorID,
		Path:       path,
		EnqueuedAt: time.Now().UTC(),
	}
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (Job, error)
}

// RedisQueue is a FIFO list: LPUSH on enqueue, BRPOP on dequeue.
type RedisQueue struct {
	client *redis.Client
	key    string
	wait   time.Duration
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key, wait: 5 * time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue import job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		res, err := q.client.BRPop(ctx, q.wait, q.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			return Job{}, fmt.Errorf("dequeue import job: %w", err)
		}
		// res is [key, value].
		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return Job{}, fmt.Errorf("decode import job: %w", err)
		}
		return job, nil
	}
}

// MemoryQueue serves a single process when no Redis is configured.
type MemoryQueue struct {
	ch chan Job
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{ch: make(chan Job, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.ch:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}
