package domain

import (
	"time"

	"github.com/vietddude/fetcher/internal/faults"
)

// JobState is one stop in the download job lifecycle.
type JobState string

const (
	JobQueued   JobState = "queued"
	JobStarted  JobState = "started"
	JobProgress JobState = "progress"
	JobSuccess  JobState = "success"
	JobFailure  JobState = "failure"
)

// Terminal reports whether the state ends the lifecycle.
func (s JobState) Terminal() bool {
	return s == JobSuccess || s == JobFailure
}

// CanTransitionTo enforces the state machine:
// queued -> started -> progress* -> success|failure. Terminal states accept
// no further transitions, so a late overwrite of a recorded failure is a no-op.
func (s JobState) CanTransitionTo(next JobState) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case JobQueued:
		return next != JobQueued
	case JobStarted, JobProgress:
		return next == JobStarted || next == JobProgress || next.Terminal()
	default:
		return true
	}
}

// DownloadRequest is the caller-supplied input for one retrieval job.
type DownloadRequest struct {
	URL            string `json:"url"`
	FormatSelector string `json:"format_selector,omitempty"`
	Filename       string `json:"filename,omitempty"`
}

// Job is one unit of retrieval work as carried on the broker queue.
type Job struct {
	ID         string          `json:"job_id"`
	Request    DownloadRequest `json:"request"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// JobResult holds the artifact location once a job succeeds.
type JobResult struct {
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
	Title    string `json:"title,omitempty"`
}

// JobStatus is the pollable view of a job. Only the worker executing the job
// writes it; everyone else reads.
type JobStatus struct {
	JobID        string             `json:"job_id"`
	State        JobState           `json:"status"`
	Progress     float64            `json:"progress"`
	ProgressText string             `json:"progress_str,omitempty"`
	Attempt      int                `json:"attempt,omitempty"`
	Result       *JobResult         `json:"result,omitempty"`
	Error        *faults.Classified `json:"error,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
