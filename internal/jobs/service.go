// Package jobs manages the lifecycle of retrieval jobs: submission,
// polling, and worker-side execution through a bounded state machine.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/fetcher/internal/core/domain"
)

// Store is the broker/result-store contract the orchestrator depends on.
type Store interface {
	Enqueue(ctx context.Context, job domain.Job) error
	Dequeue(ctx context.Context, timeout time.Duration) (domain.Job, bool, error)
	Requeue(ctx context.Context, job domain.Job) error
	SetState(ctx context.Context, status domain.JobStatus) error
	GetState(ctx context.Context, jobID string) (domain.JobStatus, bool, error)
}

// Service is the public orchestrator surface. Submit and Poll are safe for
// concurrent callers; all synchronization lives in the external store.
type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		log:   slog.Default().With("component", "jobs"),
	}
}

// Submit enqueues a retrieval job and returns its id immediately.
func (s *Service) Submit(ctx context.Context, req domain.DownloadRequest) (string, error) {
	if req.FormatSelector == "" {
		req.FormatSelector = "bestvideo+bestaudio/best"
	}
	job := domain.Job{
		ID:         uuid.New().String(),
		Request:    req,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := s.store.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	s.log.Info("job submitted", "job_id", job.ID, "url", req.URL)
	return job.ID, nil
}

// Poll returns the current status of a job. An id the store does not know
// (not yet picked up, or already expired) reads as queued, matching the
// broker's pending semantics.
func (s *Service) Poll(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	status, found, err := s.store.GetState(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job state: %w", err)
	}
	if !found {
		return &domain.JobStatus{JobID: jobID, State: domain.JobQueued}, nil
	}
	return &status, nil
}
