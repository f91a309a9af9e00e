package control

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/vietddude/fetcher/internal/core/config"
	redisclient "github.com/vietddude/fetcher/internal/infra/redis"
	"github.com/vietddude/fetcher/internal/infra/storage/postgres"
	"github.com/vietddude/fetcher/internal/infra/ytdlp"
	"github.com/vietddude/fetcher/internal/jobs"
)

// Worker is the download-worker application: a pool of loops pulling jobs
// from the broker and executing them.
type Worker struct {
	cfg         *config.AppConfig
	redisClient *redisclient.Client
	db          *postgres.DB
	store       *redisclient.JobStore
	executor    *jobs.Executor
	workers     int

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger
}

// jobArchiver adapts the history repo to the executor's Archiver contract.
type jobArchiver struct {
	repo *postgres.HistoryRepo
}

func (a *jobArchiver) Archive(ctx context.Context, jobID, videoID, title, filename, filePath string) error {
	return a.repo.Insert(ctx, postgres.DownloadRecord{
		JobID:    jobID,
		VideoID:  videoID,
		Title:    title,
		Filename: filename,
		FilePath: filePath,
	})
}

// NewWorker initializes all worker-side dependencies, including migrating
// the archive schema when a database is configured.
func NewWorker(ctx context.Context, cfg *config.AppConfig, migrationsDir string) (*Worker, error) {
	if err := os.MkdirAll(cfg.Downloads.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	redisClient, err := redisclient.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	runner := ytdlp.NewRunner(cfg.Extractor.Binary)
	if err := runner.CheckBinary(); err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	var db *postgres.DB
	var archive jobs.Archiver
	if cfg.Database.URL != "" {
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(migrationsDir); err != nil {
			_ = db.Close()
			_ = redisClient.Close()
			return nil, err
		}
		archive = &jobArchiver{repo: postgres.NewHistoryRepo(db)}
	}

	store := redisclient.NewJobStore(redisClient, cfg.Downloads.Retention)
	executor := jobs.NewExecutor(
		jobs.ExecutorConfig{
			DownloadDir:  cfg.Downloads.Dir,
			MaxAttempts:  cfg.Downloads.MaxAttempts,
			RetryBackoff: cfg.Downloads.RetryBackoff,
		},
		runner, store, cfg.Extractor.BaseOptions(), archive,
	)

	return &Worker{
		cfg:         cfg,
		redisClient: redisClient,
		db:          db,
		store:       store,
		executor:    executor,
		workers:     cfg.Downloads.Workers,
		log:         slog.Default().With("component", "control"),
	}, nil
}

// Start launches the worker pool.
func (w *Worker) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for i := 0; i < w.workers; i++ {
		loop := jobs.NewWorker(jobs.DefaultWorkerConfig(), w.store, w.executor)
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			_ = loop.Run(runCtx)
		}()
	}
	w.log.Info("worker pool started", "workers", w.workers)
	return nil
}

// Stop cancels the pool and waits for in-flight jobs to wind down.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.log.Warn("shutdown timeout, abandoning in-flight jobs")
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			w.log.Warn("DB close error", "error", err)
		}
	}
	if err := w.redisClient.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
