package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/fetcher/internal/core/domain"
)

const defaultRetention = 24 * time.Hour

// JobStore is the broker queue plus result store for download jobs. Job
// payloads travel on a Redis list; the pollable state lives under a per-job
// key that expires after the retention window.
type JobStore struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewJobStore creates a job store over an established client. retention
// bounds how long terminal results stay pollable (24h when zero).
func NewJobStore(c *Client, retention time.Duration) *JobStore {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &JobStore{rdb: c.rdb, retention: retention}
}

// Key helpers
func queueKey() string {
	return "jobs:queue:downloads"
}

func stateKey(jobID string) string {
	return fmt.Sprintf("jobs:state:%s", jobID)
}

// Enqueue records the initial QUEUED state, then pushes the job onto the
// broker queue. State goes first: the moment the payload is visible on the
// queue a worker owns the state key, and the submitter must not write after
// that.
func (s *JobStore) Enqueue(ctx context.Context, job domain.Job) error {
	if err := s.SetState(ctx, domain.JobStatus{
		JobID:     job.ID,
		State:     domain.JobQueued,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.rdb.RPush(ctx, queueKey(), payload).Err(); err != nil {
		return fmt.Errorf("rpush failed: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job. found is false when the
// queue stayed empty.
func (s *JobStore) Dequeue(ctx context.Context, timeout time.Duration) (job domain.Job, found bool, err error) {
	res, err := s.rdb.BLPop(ctx, timeout, queueKey()).Result()
	if err == redis.Nil {
		return domain.Job{}, false, nil
	}
	if err != nil {
		return domain.Job{}, false, fmt.Errorf("blpop failed: %w", err)
	}
	// BLPOP returns [key, value].
	if len(res) != 2 {
		return domain.Job{}, false, fmt.Errorf("unexpected blpop reply length %d", len(res))
	}
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return domain.Job{}, false, fmt.Errorf("unmarshal job: %w", err)
	}
	return job, true, nil
}

// Requeue puts a job back at the head of the queue, used when a worker has
// to give the job up before starting it (at-least-once delivery).
func (s *JobStore) Requeue(ctx context.Context, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.rdb.LPush(ctx, queueKey(), payload).Err(); err != nil {
		return fmt.Errorf("lpush failed: %w", err)
	}
	return nil
}

// SetState records the pollable status of a job. A state already terminal is
// never overwritten: the first terminal payload stays until retention expiry.
// The read-then-write is safe because only the executing worker writes a
// given job's state.
func (s *JobStore) SetState(ctx context.Context, status domain.JobStatus) error {
	current, found, err := s.GetState(ctx, status.JobID)
	if err != nil {
		return err
	}
	if found && !current.State.CanTransitionTo(status.State) {
		return nil
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey(status.JobID), payload, s.retention).Err(); err != nil {
		return fmt.Errorf("setex failed: %w", err)
	}
	return nil
}

// GetState fetches the pollable status of a job. found is false for unknown
// or expired job ids.
func (s *JobStore) GetState(ctx context.Context, jobID string) (status domain.JobStatus, found bool, err error) {
	val, err := s.rdb.Get(ctx, stateKey(jobID)).Bytes()
	if err == redis.Nil {
		return domain.JobStatus{}, false, nil
	}
	if err != nil {
		return domain.JobStatus{}, false, fmt.Errorf("get failed: %w", err)
	}
	if err := json.Unmarshal(val, &status); err != nil {
		return domain.JobStatus{}, false, fmt.Errorf("unmarshal status: %w", err)
	}
	return status, true, nil
}
