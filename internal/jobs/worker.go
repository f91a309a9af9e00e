package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
)

// WorkerConfig holds configuration for the job worker loop.
type WorkerConfig struct {
	PollTimeout time.Duration // BLPOP block window (default: 5s)
	EmptySleep  time.Duration // Sleep after a broker error (default: 5s)
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollTimeout: 5 * time.Second,
		EmptySleep:  5 * time.Second,
	}
}

// Worker pulls jobs off the broker queue and hands each one to the executor.
// Each job runs on exactly one worker at a time; a job is owned from the
// moment it is popped until it reaches a terminal state.
type Worker struct {
	cfg      WorkerConfig
	store    Store
	executor *Executor
	log      *slog.Logger
}

// NewWorker creates a job worker.
func NewWorker(cfg WorkerConfig, store Store, executor *Executor) *Worker {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if cfg.EmptySleep <= 0 {
		cfg.EmptySleep = 5 * time.Second
	}
	return &Worker{
		cfg:      cfg,
		store:    store,
		executor: executor,
		log:      slog.Default().With("component", "worker"),
	}
}

// Run starts the worker loop. It returns when ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting download worker")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Download worker stopped")
			return nil
		default:
		}

		job, found, err := w.store.Dequeue(ctx, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error("Failed to pop job", "error", err)
			sleepOrDone(ctx, w.cfg.EmptySleep)
			continue
		}
		if !found {
			continue
		}

		// Shutdown raced the pop: hand the job back to the queue instead
		// of starting work on a dead context.
		if ctx.Err() != nil {
			w.requeue(job)
			w.log.Info("Download worker stopped")
			return nil
		}

		// Terminal-state recording belongs to the executor; the loop only
		// logs. Writing here would race the single-writer invariant.
		if err := w.executor.Execute(ctx, job); err != nil {
			w.log.Warn("Job finished with failure", "job_id", job.ID, "error", err)
		}
	}
}

// requeue re-pushes a popped job on a fresh context so at-least-once
// delivery holds across shutdown.
func (w *Worker) requeue(job domain.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.store.Requeue(ctx, job); err != nil {
		w.log.Error("Failed to requeue job", "job_id", job.ID, "error", err)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
