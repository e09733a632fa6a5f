package domain

import "time"

// JobStatus is the lifecycle state of an indexing job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the job has finished, successfully or not.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// IndexStats counts the work an indexing run actually performed.
type IndexStats struct {
	FilesProcessed int `json:"files_processed"`
	FilesSkipped   int `json:"files_skipped"`
	ChunksUpserted int `json:"chunks_upserted"`
	ChunksDeleted  int `json:"chunks_deleted"`
}

// IndexJob represents one indexing run, queued by a webhook, the trigger
// endpoint, or the file watcher. Jobs are retained in memory for a bounded
// window after completion, then garbage-collected.
type IndexJob struct {
	ID           string     `json:"job_id"`
	Collection   string     `json:"collection"`
	RepoPath     string     `json:"repo_path"`
	Status       JobStatus  `json:"status"`
	FilesChanged []string   `json:"files_changed,omitempty"`
	FilesDeleted []string   `json:"files_deleted,omitempty"`
	Force        bool       `json:"force,omitempty"`
	Stats        IndexStats `json:"stats"`
	Error        string     `json:"error,omitempty"`
	EnqueuedAt   time.Time  `json:"enqueued_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
