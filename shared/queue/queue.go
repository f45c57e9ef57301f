// Package queue is the background job layer between publish and its two
// asynchronous followers. It owns retry scheduling and backoff; job
// handlers only report success or failure.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type JobType string

const (
	JobWebhookDispatch JobType = "webhook_dispatch"
	JobMultimedia      JobType = "multimedia"
)

// Job is one unit of background work for a published alert.
type Job struct {
	Type            JobType `json:"type"`
	AlertIdentifier string  `json:"alertIdentifier"`
	Attempt         int     `json:"attempt"`
}

const (
	jobsKey    = "capwire:jobs"
	delayedKey = "capwire:jobs:delayed"
)

// Queue is a redis list with a companion sorted set for delayed retries,
// scored by ready-time.
type Queue struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Enqueue pushes a job for immediate pickup.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if _, err := q.rdb.LPush(ctx, jobsKey, payload).Result(); err != nil {
		return fmt.Errorf("failed adding job to queue: %s", err)
	}
	return nil
}

// EnqueueIn schedules a job to become ready after the delay.
func (q *Queue) EnqueueIn(ctx context.Context, job Job, delay time.Duration) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	readyAt := time.Now().Add(delay).Unix()
	if err := q.rdb.ZAdd(ctx, delayedKey, &redis.Z{
		Score:  float64(readyAt),
		Member: payload,
	}).Err(); err != nil {
		return fmt.Errorf("failed adding job to delayed set: %s", err)
	}
	return nil
}

// PromoteDue moves delayed jobs whose ready-time has passed onto the main
// queue.
func (q *Queue) PromoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	due, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed reading delayed set: %s", err)
	}

	for _, member := range due {
		removed, err := q.rdb.ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return err
		}
		// another worker may have promoted it first
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, jobsKey, member).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Dequeue blocks up to timeout for the next job. The second return is
// false when the timeout elapsed with nothing to do.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, bool, error) {
	res, err := q.rdb.BRPop(ctx, timeout, jobsKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed popping job: %s", err)
	}
	// BRPop returns [key, value]
	if len(res) != 2 {
		return nil, false, fmt.Errorf("unexpected BRPOP reply length %d", len(res))
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, false, fmt.Errorf("failed decoding job: %s", err)
	}
	return &job, true, nil
}
