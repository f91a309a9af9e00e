package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/faults"
	"github.com/vietddude/fetcher/internal/infra/ytdlp"
	"github.com/vietddude/fetcher/internal/metrics"
)

// Downloader is the extraction backend contract for retrieval jobs.
type Downloader interface {
	Download(ctx context.Context, url string, opts ytdlp.Options, hook ytdlp.ProgressFunc) (*ytdlp.Info, error)
}

// Archiver records completed downloads durably. Optional; archiving failures
// never fail the job.
type Archiver interface {
	Archive(ctx context.Context, jobID, videoID, title, filename, filePath string) error
}

// ExecutorConfig holds retry and filesystem settings for job execution.
type ExecutorConfig struct {
	DownloadDir  string
	MaxAttempts  int
	RetryBackoff time.Duration // linear per-attempt step
}

// DefaultExecutorConfig returns the stock retry policy.
func DefaultExecutorConfig(dir string) ExecutorConfig {
	return ExecutorConfig{
		DownloadDir:  dir,
		MaxAttempts:  3,
		RetryBackoff: 30 * time.Second,
	}
}

// Executor runs one job at a time to a terminal state. It is the single
// writer for the state of every job it executes.
type Executor struct {
	cfg     ExecutorConfig
	backend Downloader
	store   Store
	base    ytdlp.Options
	archive Archiver
	log     *slog.Logger

	// sleep is swappable so retry backoff is testable.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor. base is the shared backend configuration;
// archive may be nil.
func NewExecutor(cfg ExecutorConfig, backend Downloader, store Store, base ytdlp.Options, archive Archiver) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 30 * time.Second
	}
	return &Executor{
		cfg:     cfg,
		backend: backend,
		store:   store,
		base:    base,
		archive: archive,
		log:     slog.Default().With("component", "executor"),
		sleep:   sleepCtx,
	}
}

// Execute drives a job to SUCCESS or FAILURE. Transient classified failures
// are retried with a backoff that grows linearly in the attempt number;
// everything else fails the job on the spot.
func (e *Executor) Execute(ctx context.Context, job domain.Job) error {
	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()
	started := time.Now()

	var cerr *faults.Classified
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		cerr = e.attempt(ctx, job, attempt)
		if cerr == nil {
			metrics.JobsTerminal.WithLabelValues(string(domain.JobSuccess)).Inc()
			metrics.JobDuration.Observe(time.Since(started).Seconds())
			return nil
		}
		if !cerr.Retryable || attempt == e.cfg.MaxAttempts {
			break
		}

		metrics.JobRetries.WithLabelValues(string(cerr.Category)).Inc()
		delay := e.cfg.RetryBackoff * time.Duration(attempt)
		e.log.Warn("attempt failed, retrying",
			"job_id", job.ID, "attempt", attempt, "category", cerr.Category, "backoff", delay)
		if err := e.sleep(ctx, delay); err != nil {
			break
		}
	}

	// Terminal failure: written exactly once, the store refuses any later
	// overwrite of a terminal state.
	e.log.Error("job failed", "job_id", job.ID, "category", cerr.Category, "error", cerr.Detail)
	if err := e.store.SetState(ctx, domain.JobStatus{
		JobID:     job.ID,
		State:     domain.JobFailure,
		Progress:  0,
		Error:     cerr,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		e.log.Error("failed to record job failure", "job_id", job.ID, "error", err)
	}
	metrics.JobsTerminal.WithLabelValues(string(domain.JobFailure)).Inc()
	metrics.JobDuration.Observe(time.Since(started).Seconds())
	return cerr
}

func (e *Executor) attempt(ctx context.Context, job domain.Job, attempt int) *faults.Classified {
	e.setState(ctx, domain.JobStatus{
		JobID:        job.ID,
		State:        domain.JobStarted,
		Progress:     0,
		ProgressText: "started",
		Attempt:      attempt,
	})

	videoID, _ := domain.ExtractVideoID(job.Request.URL)
	if videoID == "" {
		videoID = "video"
	}
	tmpName := SanitizeFilename(firstNonEmpty(job.Request.Filename, videoID))

	opts := e.base.
		Merge(ytdlp.Aria2cOptions(e.cfg.DownloadDir, tmpName+".%(ext)s")).
		Merge(ytdlp.Options{Format: job.Request.FormatSelector})

	// Progress is clamped monotonic: backend fragment restarts must not
	// make poll results go backwards.
	lastPct := 0.0
	hook := func(p ytdlp.Progress) {
		switch p.Status {
		case "downloading":
			total := p.TotalBytes
			if total == 0 {
				total = p.TotalBytesEstimate
			}
			pct := 0.0
			if total > 0 {
				pct = p.DownloadedBytes / total * 100
			}
			// Estimates can undershoot the real size; 100 is reserved
			// for the terminal success write.
			if pct > 99 {
				pct = 99
			}
			if pct < lastPct {
				pct = lastPct
			}
			lastPct = pct
			e.setState(ctx, domain.JobStatus{
				JobID:        job.ID,
				State:        domain.JobProgress,
				Progress:     round1(pct),
				ProgressText: fmt.Sprintf("%.1f%%  %s/s  ETA %s", round1(pct), orUnknown(p.SpeedText), orUnknown(p.ETAText)),
				Attempt:      attempt,
			})
		case "finished":
			lastPct = 99
			e.setState(ctx, domain.JobStatus{
				JobID:        job.ID,
				State:        domain.JobProgress,
				Progress:     99,
				ProgressText: "merging...",
				Attempt:      attempt,
			})
		}
	}

	info, err := e.backend.Download(ctx, job.Request.URL, opts, hook)
	if err != nil {
		return faults.Classify(err)
	}

	title := tmpName
	if info != nil && info.Title != "" {
		title = info.Title
	}
	final := FindArtifact(filepath.Join(e.cfg.DownloadDir, tmpName), artifactExts)
	if final == "" {
		return faults.ClassifyText("download finished but no artifact found on disk")
	}

	e.setState(ctx, domain.JobStatus{
		JobID:        job.ID,
		State:        domain.JobSuccess,
		Progress:     100,
		ProgressText: "done",
		Attempt:      attempt,
		Result: &domain.JobResult{
			FilePath: final,
			Filename: filepath.Base(final),
			Title:    title,
		},
	})
	e.log.Info("job succeeded", "job_id", job.ID, "file", final)

	if e.archive != nil {
		if err := e.archive.Archive(ctx, job.ID, videoID, title, filepath.Base(final), final); err != nil {
			e.log.Warn("failed to archive download", "job_id", job.ID, "error", err)
		}
	}
	return nil
}

func (e *Executor) setState(ctx context.Context, status domain.JobStatus) {
	status.UpdatedAt = time.Now().UTC()
	if err := e.store.SetState(ctx, status); err != nil {
		e.log.Warn("state update failed", "job_id", status.JobID, "state", status.State, "error", err)
	}
}

// artifactExts is the probe order for resolving the final artifact when the
// backend picked the extension on its own.
var artifactExts = []string{"mp4", "mkv", "webm", "mp3", "m4a", "opus"}

// FindArtifact probes base.<ext> in priority order, then falls back to the
// largest base.* match on disk.
func FindArtifact(base string, exts []string) string {
	for _, ext := range exts {
		p := base + "." + ext
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, err := filepath.Glob(base + ".*")
	if err != nil || len(matches) == 0 {
		return ""
	}
	best := ""
	var bestSize int64 = -1
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			continue
		}
		if fi.Size() > bestSize {
			best, bestSize = m, fi.Size()
		}
	}
	return best
}

var unsafeFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeFilename strips characters illegal on common filesystems and caps
// the length at 180 runes.
func SanitizeFilename(name string) string {
	clean := unsafeFilenameChars.ReplaceAllString(name, "_")
	runes := []rune(clean)
	if len(runes) > 180 {
		runes = runes[:180]
	}
	return string(runes)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
